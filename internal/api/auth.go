package api

import (
	"context"
	"sync"
	"time"

	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/internal/domain"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TokenValidator interface {
	Validate(token string) (*auth.Identity, error)
}

// authenticator verifies the bearer token (or the "token" query parameter, which browsers
// need for websocket upgrades) and puts the caller's id in c.Locals("user_id").
type authenticator struct {
	tokens   TokenValidator
	recorder repository.UserRecorder
	seen     sync.Map
	log      *zap.Logger
}

func newAuthenticator(tokens TokenValidator, users repository.UserDirectory, log *zap.Logger) *authenticator {
	a := &authenticator{tokens: tokens, log: log}
	if r, ok := users.(repository.UserRecorder); ok {
		a.recorder = r
	}
	return a
}

func (a *authenticator) handler(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		t, err := auth.ParseBearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return JSONError(c, fiber.StatusUnauthorized, "missing or malformed token")
		}
		token = t
	}

	id, err := a.tokens.Validate(token)
	if err != nil {
		return JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	if !domain.ValidID(id.UserID) {
		return JSONError(c, fiber.StatusUnauthorized, "invalid token subject")
	}

	a.remember(c.UserContext(), id)
	c.Locals("user_id", id.UserID)
	return c.Next()
}

// remember stores the caller in a directory that keeps its own user records. Failures only log.
func (a *authenticator) remember(ctx context.Context, id *auth.Identity) {
	if a.recorder == nil {
		return
	}
	if _, loaded := a.seen.LoadOrStore(id.UserID, struct{}{}); loaded {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	u := domain.User{ID: id.UserID, FullName: id.FullName, Email: id.Email, ProfilePic: id.ProfilePic}
	if err := a.recorder.RememberUser(ctx, u); err != nil {
		a.seen.Delete(id.UserID)
		a.log.Warn("remember user failed", zap.String("user_id", id.UserID), zap.Error(err))
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
