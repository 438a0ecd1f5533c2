package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buildorite_ws_connections_active",
		Help: "Authenticated WebSocket connections currently registered",
	})

	WSMessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buildorite_ws_messages_dropped_total",
		Help: "WebSocket messages dropped because the client buffer was full",
	})
)
