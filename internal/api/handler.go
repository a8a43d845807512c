package api

import (
	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type Handlers struct {
	commands *service.CommandService
	queries  *service.QueryService
	live     *ws.Server
}

func NewHandlers(commands *service.CommandService, queries *service.QueryService, live *ws.Server) *Handlers {
	return &Handlers{commands: commands, queries: queries, live: live}
}

type attachmentBody struct {
	Data     string `json:"data" validate:"required"`
	FileName string `json:"file_name" validate:"omitempty,max=255"`
}

// sendRequest accepts {text, kind, attachment} as well as the older
// {text, image|video, fileName} shape where the media is a data URL.
type sendRequest struct {
	Text       string          `json:"text"`
	Kind       string          `json:"kind" validate:"omitempty,oneof=text image video"`
	Attachment *attachmentBody `json:"attachment" validate:"omitempty"`
	Image      string          `json:"image"`
	Video      string          `json:"video"`
	FileName   string          `json:"fileName" validate:"omitempty,max=255"`
}

func (r sendRequest) command(sender, receiver string) service.SendCommand {
	cmd := service.SendCommand{
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       r.Text,
		Kind:       domain.Kind(r.Kind),
	}
	switch {
	case r.Attachment != nil:
		cmd.Attachment = &service.AttachmentUpload{Data: r.Attachment.Data, FileName: r.Attachment.FileName}
	case r.Image != "":
		cmd.Kind = domain.KindImage
		cmd.Attachment = &service.AttachmentUpload{Data: r.Image, FileName: r.FileName}
	case r.Video != "":
		cmd.Kind = domain.KindVideo
		cmd.Attachment = &service.AttachmentUpload{Data: r.Video, FileName: r.FileName}
	}
	return cmd
}

// counterpart reads and checks the :id route parameter. The value is copied out of the
// request buffer, which fasthttp reuses once the handler returns.
func counterpart(c *fiber.Ctx) (string, error) {
	id := utils.CopyString(c.Params("id"))
	if !domain.ValidID(id) {
		return "", domain.Validationf("invalid user id %q", id)
	}
	return id, nil
}

func (h *Handlers) sidebar(c *fiber.Ctx) error {
	entries, err := h.queries.Sidebar(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *Handlers) history(c *fiber.Ctx) error {
	other, err := counterpart(c)
	if err != nil {
		return err
	}
	msgs, err := h.queries.History(c.UserContext(), userID(c), other)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (h *Handlers) send(c *fiber.Ctx) error {
	receiver, err := counterpart(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Validationf("invalid body")
	}
	if err := domain.Validator().Struct(req); err != nil {
		return domain.Validationf("invalid body: %v", err)
	}
	msg, err := h.commands.Send(c.UserContext(), req.command(userID(c), receiver))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	sender, err := counterpart(c)
	if err != nil {
		return err
	}
	n, err := h.commands.MarkAllRead(c.UserContext(), userID(c), sender)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "messages marked as read", "modified": n})
}

func (h *Handlers) unread(c *fiber.Ctx) error {
	other, err := counterpart(c)
	if err != nil {
		return err
	}
	n, err := h.queries.UnreadCount(c.UserContext(), userID(c), other)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

func (h *Handlers) lastMessage(c *fiber.Ctx) error {
	other, err := counterpart(c)
	if err != nil {
		return err
	}
	m, err := h.queries.LastMessage(c.UserContext(), userID(c), other)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (h *Handlers) onlineUsers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"users": h.live.OnlineUsers(c.UserContext())})
}

func (h *Handlers) presence(c *fiber.Ctx) error {
	id, err := counterpart(c)
	if err != nil {
		return err
	}
	return c.JSON(h.live.Presence(c.UserContext(), id))
}
