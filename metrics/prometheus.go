package metrics

import (
	"time"
)

// RecordRequestLatency records the latency of an API request for endpoint
func RecordRequestLatency(endpoint string, start time.Time) {
	RequestLatencyHistogram.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// RecordWebSocketClients sets the number of connected websocket clients
func RecordWebSocketClients(count int) {
	WebSocketClientsGauge.Set(float64(count))
}
