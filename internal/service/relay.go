package service

import (
	"encoding/json"

	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"go.uber.org/zap"
)

// Relay applies bus events published by other instances to this instance's live connections.
type Relay struct {
	reg        *registry.Registry
	instanceID string
	log        *zap.Logger
}

func NewRelay(reg *registry.Registry, instanceID string, log *zap.Logger) *Relay {
	return &Relay{reg: reg, instanceID: instanceID, log: log}
}

// Handle matches the Kafka consumer callback.
func (r *Relay) Handle(key string, value []byte) {
	var ev events.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		r.log.Warn("relay: malformed event", zap.String("key", key), zap.Error(err))
		return
	}
	if ev.Origin == r.instanceID {
		return
	}

	switch ev.Type {
	case events.MessageCreated:
		if ev.Message == nil {
			r.log.Warn("relay: message.created without message", zap.String("key", key))
			return
		}
		push(r.reg, r.log, ev.Message.ReceiverID, EventNewMessage, ev.Message)
	case events.MessagesRead:
		if ev.SenderID == "" || ev.ReaderID == "" {
			return
		}
		push(r.reg, r.log, ev.SenderID, EventMessagesRead, ReadReceipt{ReaderID: ev.ReaderID, Count: ev.Count, At: ev.At})
	default:
		r.log.Debug("relay: ignoring event", zap.String("type", string(ev.Type)))
	}
}
