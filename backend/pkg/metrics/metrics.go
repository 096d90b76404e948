package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the live-advice hot path. Registered on the default
// registry and exposed via promhttp in cmd/server.
var (
	// TranscriptsProcessed counts transcript events consumed per role
	TranscriptsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bubbles",
		Name:      "transcripts_processed_total",
		Help:      "Number of transcript events processed.",
	}, []string{"role"})

	// AdviceEmitted counts wingman suggestions actually sent (non-WAITING)
	AdviceEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bubbles",
		Name:      "advice_emitted_total",
		Help:      "Number of wingman suggestions emitted.",
	})

	// RelationsApplied counts knowledge-graph edges added from extraction
	RelationsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bubbles",
		Name:      "relations_applied_total",
		Help:      "Number of extracted relations applied to knowledge graphs.",
	})

	// ConsultantQueries counts one-shot consultant questions answered
	ConsultantQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bubbles",
		Name:      "consultant_queries_total",
		Help:      "Number of consultant questions answered.",
	})

	// StorageFailures counts degraded store operations per table
	StorageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bubbles",
		Name:      "storage_failures_total",
		Help:      "Number of durable-store operations that degraded to a local fallback.",
	}, []string{"table"})

	// LiveSessions tracks currently connected users
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bubbles",
		Name:      "live_sessions",
		Help:      "Number of currently registered live sessions.",
	})
)
