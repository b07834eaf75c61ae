package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency (ms)
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "outcome"},
	)

	// mail provider call latency (ms)
	MailFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_fetch_latency_ms",
			Help:    "Mail provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(25, 2, 10), // 25ms to ~12s
		},
		[]string{"endpoint", "status"},
	)

	AIExtractLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_extract_latency_ms",
			Help:    "AI fallback extraction latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// outcome: ok or a failure reason
	ExtractionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_total",
			Help: "Bank email extractions by bank and outcome",
		},
		[]string{"bank", "outcome"},
	)

	// outcome: created, duplicate, skipped, error
	IngestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_ingest_total",
			Help: "Total number of ingested mail messages by outcome",
		},
		[]string{"outcome"},
	)
)

// outcome: ack, requeue or panic
func RecordMQConsumeLatency(routingKey, outcome string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, outcome).Observe(float64(duration.Milliseconds()))
}

func RecordMailFetchLatency(endpoint, status string, duration time.Duration) {
	MailFetchLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func RecordAIExtractLatency(status string, duration time.Duration) {
	AIExtractLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementExtraction counts one extraction attempt. bank is empty when the
// sender matched no bank.
func IncrementExtraction(bank, outcome string) {
	if bank == "" {
		bank = "unknown"
	}
	ExtractionCount.WithLabelValues(bank, outcome).Inc()
}

func IncrementIngest(outcome string) {
	IngestCount.WithLabelValues(outcome).Inc()
}
