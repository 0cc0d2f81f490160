// Registers:
//
//	#mercado_quote_updates_total
//	#mercado_messages_dropped_total
//	#mercado_reconnect_attempts_total
//	#mercado_connected
//	#go_* and process_* system metrics
//
// The handler is mounted on the API server under /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once              sync.Once
	quoteUpdates      *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	connectedGauge    prometheus.Gauge
)

func Init() {
	once.Do(func() {
		quoteUpdates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mercado_quote_updates_total",
				Help: "Number of quote rows merged into the in-memory tables",
			},
			[]string{"table"},
		)

		messagesDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mercado_messages_dropped_total",
				Help: "Number of inbound messages dropped before dispatch",
			},
			[]string{"table"},
		)

		reconnectAttempts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mercado_reconnect_attempts_total",
				Help: "Number of reconnection attempts made by the health monitor",
			},
		)

		connectedGauge = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mercado_connected",
				Help: "Whether the streaming connection is currently up (1) or down (0)",
			},
		)

		_ = prometheus.Register(quoteUpdates)
		_ = prometheus.Register(messagesDropped)
		_ = prometheus.Register(reconnectAttempts)
		_ = prometheus.Register(connectedGauge)
		_ = prometheus.Register(collectors.NewGoCollector())
		_ = prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler returns the HTTP handler serving the prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AddQuoteUpdates increases the update counter for a given table.
func AddQuoteUpdates(table string, n int) {
	if quoteUpdates != nil && n > 0 {
		quoteUpdates.WithLabelValues(table).Add(float64(n))
	}
}

// IncrementDropped increases the dropped-message counter for a table.
func IncrementDropped(table string) {
	if messagesDropped != nil {
		messagesDropped.WithLabelValues(table).Inc()
	}
}

// IncrementReconnectAttempts records one reconnection attempt.
func IncrementReconnectAttempts() {
	if reconnectAttempts != nil {
		reconnectAttempts.Inc()
	}
}

// SetConnected publishes the current connection flag.
func SetConnected(connected bool) {
	if connectedGauge == nil {
		return
	}
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
}
