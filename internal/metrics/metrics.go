package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push outcomes.
const (
	PushDelivered = "delivered"
	PushOffline   = "offline"
	PushDropped   = "dropped"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_messages_sent_total",
		Help: "Messages persisted, by kind.",
	}, []string{"kind"})

	Pushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_push_total",
		Help: "Realtime push attempts, by result.",
	}, []string{"result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_events_published_total",
		Help: "Bus events published, by type and result.",
	}, []string{"type", "result"})

	UploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_media_upload_failures_total",
		Help: "Media uploads that failed on the object store.",
	})

	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dm_live_connections",
		Help: "Users with a registered live connection on this instance.",
	})
)

// Handler exposes the default registry for Prometheus scraping.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
