package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SubmissionsTotal counts finished submissions by outcome
	// (accepted, rejected, location_missing, media_error, classifier_error, in_flight, error).
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "danang_green",
		Subsystem: "reports",
		Name:      "submissions_total",
		Help:      "Total number of report submissions, labeled by outcome.",
	}, []string{"outcome"})

	// SubmissionDurationSeconds is the end-to-end pipeline time per submission.
	SubmissionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "danang_green",
		Subsystem: "reports",
		Name:      "submission_duration_seconds",
		Help:      "End-to-end time of the submission pipeline (ingest + classify + append).",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	// ClassifierDurationSeconds is the time per classifier call.
	ClassifierDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "danang_green",
		Subsystem: "classifier",
		Name:      "call_duration_seconds",
		Help:      "Time per classifier call, labeled by provider and call.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source", "call"})

	ReportsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "danang_green",
		Subsystem: "reports",
		Name:      "stored",
		Help:      "Number of reports currently held by the report store.",
	})

	StatusTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "danang_green",
		Subsystem: "reports",
		Name:      "status_transitions_total",
		Help:      "Total number of status transitions, labeled by target status.",
	}, []string{"status"})

	StorageWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "danang_green",
		Subsystem: "storage",
		Name:      "write_errors_total",
		Help:      "Total number of durable mirror writes that failed after retries.",
	})

	// PointsBalance mirrors the reward ledger total.
	PointsBalance = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "danang_green",
		Subsystem: "rewards",
		Name:      "points_balance",
		Help:      "Current reward ledger total.",
	})

	MapClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "danang_green",
		Subsystem: "map",
		Name:      "websocket_clients",
		Help:      "Number of connected map websocket clients.",
	})

	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "danang_green",
		Subsystem: "geocode",
		Name:      "requests_total",
		Help:      "Total number of geocoding searches, labeled by result (found, not_found, error).",
	}, []string{"result"})

	// RabbitMQConnected is 1 when the publisher considers itself connected.
	RabbitMQConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "danang_green",
		Subsystem: "events",
		Name:      "rabbitmq_connected",
		Help:      "Whether the report event publisher is currently connected (best-effort).",
	})

	// RabbitMQLastConnectSeconds is a unix timestamp (seconds) of last successful connect.
	RabbitMQLastConnectSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "danang_green",
		Subsystem: "events",
		Name:      "rabbitmq_last_connect_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last successful RabbitMQ connect (best-effort).",
	})

	PublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "danang_green",
		Subsystem: "events",
		Name:      "rabbitmq_publish_error_total",
		Help:      "Total number of report event publish errors.",
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			SubmissionDurationSeconds,
			ClassifierDurationSeconds,
			ReportsTotal,
			StatusTransitionsTotal,
			StorageWriteErrors,
			PointsBalance,
			MapClients,
			GeocodeRequestsTotal,
			RabbitMQConnected,
			RabbitMQLastConnectSeconds,
			PublishErrorTotal,
		)
	})
}

func NowUnixSeconds() float64 {
	return float64(time.Now().Unix())
}
