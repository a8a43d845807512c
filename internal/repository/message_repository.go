//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../mocks/mock_message_repository.go -package=mocks
package repository

import (
	"context"
	"errors"

	"github.com/fathima-sithara/dm-service/internal/domain"
)

var ErrNotFound = errors.New("not found")

// MessageRepository persists direct messages. History is ordered by creation time,
// ties broken by creation sequence, and is the same for (a, b) and (b, a).
type MessageRepository interface {
	Append(ctx context.Context, m *domain.Message) (*domain.Message, error)
	ConversationHistory(ctx context.Context, a, b string) ([]*domain.Message, error)
	UnreadCountFrom(ctx context.Context, senderID, receiverID string) (int64, error)
	// LastMessageBetween returns nil, nil when the pair never exchanged a message.
	LastMessageBetween(ctx context.Context, a, b string) (*domain.Message, error)
	MarkAllRead(ctx context.Context, senderID, receiverID string) (int64, error)
	// ConversationSummaries returns, for every counterpart of viewerID with at least one
	// message, the latest message and the number of messages unread by viewerID.
	ConversationSummaries(ctx context.Context, viewerID string) (map[string]domain.Summary, error)
}

type UserDirectory interface {
	ListUsersExcept(ctx context.Context, userID string) ([]domain.User, error)
}

// UserRecorder is implemented by directories that learn users from verified tokens.
type UserRecorder interface {
	RememberUser(ctx context.Context, u domain.User) error
}
