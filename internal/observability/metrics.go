// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Race metrics
	RacesTotal   *prometheus.CounterVec
	RaceWinners  *prometheus.CounterVec
	RaceDuration prometheus.Histogram

	// Ledger metrics
	LogsReceived         prometheus.Counter
	CreateLogsQualified  prometheus.Counter
	TxFetchAttempts      *prometheus.CounterVec
	MetadataDecodeErrors prometheus.Counter

	// Feed metrics
	FeedEvents *prometheus.CounterVec

	// Watcher metrics
	WatcherErrors *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Handoff metrics
	HandoffsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launch_sniper"
	}

	return &Metrics{
		RacesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "race",
			Name:      "races_total",
			Help:      "Total number of races by outcome",
		}, []string{"outcome"}),
		RaceWinners: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "race",
			Name:      "winners_total",
			Help:      "Total number of races won by source",
		}, []string{"source"}),
		RaceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "race",
			Name:      "duration_seconds",
			Help:      "Time from race start to result in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 3600, 14400},
		}),

		LogsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "logs_received_total",
			Help:      "Total number of log notifications received",
		}),
		CreateLogsQualified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "create_logs_qualified_total",
			Help:      "Total number of notifications that carried a create instruction",
		}),
		TxFetchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tx_fetch_attempts_total",
			Help:      "Total number of getTransaction attempts by result",
		}, []string{"result"}),
		MetadataDecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "metadata_decode_errors_total",
			Help:      "Total number of metadata payloads that failed to decode",
		}),

		FeedEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Total number of feed events (newCoinCreated or other)",
		}, []string{"event"}),

		WatcherErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "errors_total",
			Help:      "Total number of terminal watcher errors by source",
		}, []string{"source"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		HandoffsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "deliveries_total",
			Help:      "Total number of handoff deliveries by status",
		}, []string{"status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRace records a finished race.
func RecordRace(outcome string, durationSeconds float64) {
	DefaultMetrics.RacesTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.RaceDuration.Observe(durationSeconds)
}

// RecordWinner records the source that won a race.
func RecordWinner(source string) {
	DefaultMetrics.RaceWinners.WithLabelValues(source).Inc()
}

// RecordLogReceived increments the log notifications counter.
func RecordLogReceived() {
	DefaultMetrics.LogsReceived.Inc()
}

// RecordCreateLog increments the qualified create logs counter.
func RecordCreateLog() {
	DefaultMetrics.CreateLogsQualified.Inc()
}

// RecordTxFetch records a getTransaction attempt result.
func RecordTxFetch(result string) {
	DefaultMetrics.TxFetchAttempts.WithLabelValues(result).Inc()
}

// RecordMetadataDecodeError increments the metadata decode error counter.
func RecordMetadataDecodeError() {
	DefaultMetrics.MetadataDecodeErrors.Inc()
}

// RecordFeedEvent increments the feed event counter. Event names come from
// the server, so anything but newCoinCreated is counted as "other".
func RecordFeedEvent(event string) {
	if event != "newCoinCreated" {
		event = "other"
	}
	DefaultMetrics.FeedEvents.WithLabelValues(event).Inc()
}

// RecordWatcherError records a terminal watcher error.
func RecordWatcherError(source string) {
	DefaultMetrics.WatcherErrors.WithLabelValues(source).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHandoff records a handoff delivery.
func RecordHandoff(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.HandoffsTotal.WithLabelValues(status).Inc()
}
