package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events on "<prefix>.<type>", e.g. "dm.message.created".
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("dm-service"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) Subject(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.Subject(ev.Type), b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
