package discovery

import (
	"fmt"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type Registration struct {
	ID      string
	Name    string
	Address string
	Port    int
}

// Registrar announces this instance in Consul with an HTTP check on /healthz.
type Registrar struct {
	client *consulapi.Client
	logger *zap.Logger
}

func NewRegistrar(addr string, logger *zap.Logger) (*Registrar, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Registrar{client: client, logger: logger}, nil
}

func (r *Registrar) Register(reg Registration) error {
	svc := &consulapi.AgentServiceRegistration{
		ID:      reg.ID,
		Name:    reg.Name,
		Address: reg.Address,
		Port:    reg.Port,
		Tags:    []string{"dm", "websocket"},
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s/healthz", hostPort(reg.Address, reg.Port)),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := r.client.Agent().ServiceRegister(svc); err != nil {
		return fmt.Errorf("consul register %s: %w", reg.ID, err)
	}
	r.logger.Info("registered in consul", zap.String("service", reg.Name), zap.String("id", reg.ID))
	return nil
}

func (r *Registrar) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("consul deregister %s: %w", id, err)
	}
	r.logger.Info("deregistered from consul", zap.String("id", id))
	return nil
}

// Peers returns the addresses of healthy instances of service.
func (r *Registrar) Peers(service string) ([]string, error) {
	entries, _, err := r.client.Health().Service(service, "", true, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, hostPort(e.Service.Address, e.Service.Port))
	}
	return out, nil
}

func hostPort(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	return host + ":" + strconv.Itoa(port)
}
