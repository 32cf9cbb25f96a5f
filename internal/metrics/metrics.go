// Package metrics registers the service's Prometheus collectors and serves
// the scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSockets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "amity_ws_active_connections",
		Help: "Open websocket connections",
	})
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amity_messages_sent_total",
		Help: "Messages persisted, by conversation kind",
	}, []string{"kind"})
	SweptConversations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amity_swept_conversations_total",
		Help: "Conversations deactivated by the expiry sweeper",
	}, []string{"kind"})
	EventsRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amity_events_relayed_total",
		Help: "Post-commit events handed to the notification relay",
	})
)

func Init() {
	prometheus.MustRegister(ActiveSockets, MessagesSent, SweptConversations, EventsRelayed)
}

// Handler serves the scrape endpoint, mounted on its own listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
