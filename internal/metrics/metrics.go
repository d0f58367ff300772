package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftchat_active_sessions",
		Help: "Open websocket sessions.",
	})

	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftchat_messages_persisted_total",
		Help: "Messages committed to the durable store.",
	})

	FanoutDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftchat_fanout_delivered_total",
		Help: "Live-push payloads enqueued to a subscriber.",
	})

	FanoutDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftchat_fanout_dropped_total",
		Help: "Live-push payloads dropped because a subscriber buffer was full.",
	})

	RegistryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftchat_registry_entries",
		Help: "Usernames currently present in the connection registry.",
	})
)
