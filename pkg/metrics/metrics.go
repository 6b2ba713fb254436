package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive counts websocket connections currently open on
	// this instance.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "issueflow_ws_connections_active",
		Help: "Open websocket connections on this instance.",
	})

	// EventsPublished counts fan-out events this instance put on the bus.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issueflow_fanout_events_published_total",
		Help: "Comment events published to the bus.",
	})

	// EventsDelivered counts per-connection deliveries of broadcast
	// messages on this instance.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issueflow_fanout_deliveries_total",
		Help: "Broadcast messages delivered to local connections.",
	})

	// EventsDropped counts deliveries that failed and got the handle
	// pruned from its room.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "issueflow_fanout_drops_total",
		Help: "Broadcast deliveries that failed on a dead or stalled connection.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
