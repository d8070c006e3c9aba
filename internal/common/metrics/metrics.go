// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsAnswered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_questions_answered_total",
			Help: "Total number of questions answered, by answer source",
		},
		[]string{"source"},
	)

	QuestionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_questions_failed_total",
			Help: "Total number of questions that ended in a fallback answer",
		},
		[]string{"source", "error_code"},
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_question_duration_seconds",
			Help: "Duration of question processing in seconds",
		},
		[]string{"source"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_hits_total",
			Help: "Total number of cache hits, by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_misses_total",
			Help: "Total number of cache misses, by cache name",
		},
		[]string{"cache"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_cache_entries",
			Help: "Number of live entries per cache",
		},
		[]string{"cache"},
	)

	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upstream_failures_total",
			Help: "Total number of failed calls to upstream services",
		},
		[]string{"service"},
	)
)
