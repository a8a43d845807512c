package service

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/media"
	"github.com/fathima-sithara/dm-service/internal/metrics"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"go.uber.org/zap"
)

var errUploadsDisabled = errors.New("media uploads are not configured")

const publishTimeout = 2 * time.Second

type AttachmentUpload struct {
	Data     string
	FileName string
}

type SendCommand struct {
	SenderID   string
	ReceiverID string
	Text       string
	Kind       domain.Kind
	Attachment *AttachmentUpload
}

// CommandService routes new messages and read marks: persist first, then push to the
// live connection and publish on the bus, both best effort.
type CommandService struct {
	repo       repository.MessageRepository
	uploader   media.MediaUploader
	reg        *registry.Registry
	pub        events.Publisher
	instanceID string
	log        *zap.Logger
}

// NewCommandService wires the router. uploader and pub may be nil.
func NewCommandService(repo repository.MessageRepository, uploader media.MediaUploader, reg *registry.Registry,
	pub events.Publisher, instanceID string, log *zap.Logger) *CommandService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &CommandService{repo: repo, uploader: uploader, reg: reg, pub: pub, instanceID: instanceID, log: log}
}

func (s *CommandService) Send(ctx context.Context, cmd SendCommand) (*domain.Message, error) {
	if err := domain.CheckPair(cmd.SenderID, cmd.ReceiverID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Text:       cmd.Text,
		Kind:       cmd.Kind,
	}
	if cmd.Attachment != nil {
		if cmd.Attachment.Data == "" {
			return nil, domain.Validationf("attachment data is empty")
		}
		if msg.Kind == "" {
			return nil, domain.Validationf("kind is required with an attachment")
		}
		// shape check before paying for the upload
		msg.Attachment = &domain.Attachment{URL: "pending"}
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if cmd.Attachment != nil {
		if s.uploader == nil {
			return nil, domain.Dependency("upload attachment", errUploadsDisabled)
		}
		att, err := s.uploader.Upload(ctx, cmd.Attachment.Data, msg.Kind, cmd.Attachment.FileName)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrDependency) {
				return nil, err
			}
			return nil, domain.Dependency("upload attachment", err)
		}
		msg.Attachment = att
	}

	stored, err := s.repo.Append(ctx, msg)
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues(string(stored.Kind)).Inc()

	push(s.reg, s.log, stored.ReceiverID, EventNewMessage, stored)
	s.publish(ctx, events.Event{Type: events.MessageCreated, Message: stored})

	return stored, nil
}

// MarkAllRead marks every message from senderID to readerID as read and notifies the sender.
func (s *CommandService) MarkAllRead(ctx context.Context, readerID, senderID string) (int64, error) {
	if err := domain.CheckPair(readerID, senderID); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, senderID, readerID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	push(s.reg, s.log, senderID, EventMessagesRead, ReadReceipt{ReaderID: readerID, Count: n, At: now})
	s.publish(ctx, events.Event{Type: events.MessagesRead, ReaderID: readerID, SenderID: senderID, Count: n})
	return n, nil
}

func (s *CommandService) publish(ctx context.Context, ev events.Event) {
	ev.Origin = s.instanceID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.pub.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		s.log.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type), "ok").Inc()
}
