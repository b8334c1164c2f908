// Package metrics exposes the Prometheus instruments tracked by the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks the number of WebSocket connections currently
	// registered with this process's hub.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relaychat_connections_active",
		Help: "Number of WebSocket connections currently registered.",
	})

	// MessagesBroadcast counts payloads fanned out to local connections.
	MessagesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relaychat_messages_broadcast_total",
		Help: "Total payloads broadcast to local connections.",
	})

	// BackendErrors counts failed state-backend operations by operation name.
	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaychat_backend_errors_total",
		Help: "Total state-backend operations that failed or timed out.",
	}, []string{"op"})
)
