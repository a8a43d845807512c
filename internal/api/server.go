package api

import (
	"slices"

	"github.com/fathima-sithara/dm-service/internal/metrics"
	"github.com/fathima-sithara/dm-service/internal/middleware"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/internal/ws"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Deps struct {
	Commands *service.CommandService
	Queries  *service.QueryService
	Users    repository.UserDirectory
	Tokens   TokenValidator
	Live     *ws.Server

	// optional
	IPLimiter   *middleware.IPRateLimiter
	SendLimiter *middleware.WindowLimiter

	// BodyLimit bounds request bodies; media arrives base64 encoded in the send body.
	BodyLimit int
	Log       *zap.Logger
}

func NewServer(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "dm-service",
		DisableStartupMessage: true,
		BodyLimit:             d.BodyLimit,
		ErrorHandler:          errorHandler(d.Log),
	})
	app.Use(middleware.ZapLogger(d.Log))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	h := NewHandlers(d.Commands, d.Queries, d.Live)
	authn := newAuthenticator(d.Tokens, d.Users, d.Log)

	limited := []fiber.Handler{}
	if d.IPLimiter != nil {
		limited = append(limited, d.IPLimiter.Handler())
	}

	app.Get("/ws", slices.Concat(limited, []fiber.Handler{d.Live.RequireUpgrade, authn.handler, d.Live.Handler()})...)

	api := app.Group("/api", slices.Concat(limited, []fiber.Handler{authn.handler})...)

	api.Get("/users/online", h.onlineUsers)
	api.Get("/users/:id/presence", h.presence)

	msgs := api.Group("/messages")
	msgs.Get("/users", h.sidebar)
	sendChain := []fiber.Handler{}
	if d.SendLimiter != nil {
		sendChain = append(sendChain, d.SendLimiter.MiddlewareByKey(userID))
	}
	msgs.Post("/send/:id", append(sendChain, h.send)...)
	msgs.Put("/read/:id", h.markRead)
	msgs.Get("/unread/:id", h.unread)
	msgs.Get("/last/:id", h.lastMessage)
	msgs.Get("/:id", h.history)

	return app
}
