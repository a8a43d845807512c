package service

import (
	"time"

	"github.com/fathima-sithara/dm-service/internal/metrics"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"go.uber.org/zap"
)

// Events pushed to live connections.
const (
	EventNewMessage   = "newMessage"
	EventMessagesRead = "messagesRead"
)

// ReadReceipt tells a sender that readerID has read count of their messages.
type ReadReceipt struct {
	ReaderID string    `json:"reader_id"`
	Count    int64     `json:"count"`
	At       time.Time `json:"at"`
}

// push delivers to userID's live connection if there is one. Failures are logged and
// dropped: the message is already durable and will show up on the next history fetch.
func push(reg *registry.Registry, log *zap.Logger, userID, event string, payload any) {
	conn, ok := reg.Lookup(userID)
	if !ok {
		metrics.Pushes.WithLabelValues(metrics.PushOffline).Inc()
		return
	}
	if err := conn.Send(event, payload); err != nil {
		metrics.Pushes.WithLabelValues(metrics.PushDropped).Inc()
		log.Debug("push dropped", zap.String("user_id", userID), zap.String("event", event), zap.Error(err))
		return
	}
	metrics.Pushes.WithLabelValues(metrics.PushDelivered).Inc()
}
