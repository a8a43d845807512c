//go:generate go run go.uber.org/mock/mockgen -source=events.go -destination=../mocks/mock_publisher.go -package=mocks
package events

import (
	"context"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
)

type Type string

const (
	MessageCreated Type = "message.created"
	MessagesRead   Type = "messages.read"
)

// Event is what instances exchange on the bus. Origin is the publishing instance, so a
// relay can skip events it has already pushed locally.
type Event struct {
	Type     Type            `json:"type"`
	Origin   string          `json:"origin"`
	Message  *domain.Message `json:"message,omitempty"`
	ReaderID string          `json:"reader_id,omitempty"`
	SenderID string          `json:"sender_id,omitempty"`
	Count    int64           `json:"count,omitempty"`
	At       time.Time       `json:"at"`
}

// Key is the partition key: every event of a conversation lands on the same partition.
func (e Event) Key() string {
	switch {
	case e.Message != nil:
		return domain.ConversationKey(e.Message.SenderID, e.Message.ReceiverID)
	case e.ReaderID != "" && e.SenderID != "":
		return domain.ConversationKey(e.ReaderID, e.SenderID)
	}
	return string(e.Type)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop drops every event. Used when no bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
