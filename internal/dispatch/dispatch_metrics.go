package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the dispatch pipeline.
type Metrics struct {
	AttemptsTotal    *prometheus.CounterVec
	AttemptDuration  *prometheus.HistogramVec
	OutcomesTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	Rounds           prometheus.Histogram
	BackoffSeconds   prometheus.Counter
}

// NewMetrics registers and returns dispatch metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicamind_provider_attempts_total",
			Help: "Provider attempts by provider and result.",
		}, []string{"provider", "result"}),
		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ethicamind_provider_attempt_duration_seconds",
			Help:    "Duration of individual provider attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"provider"}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicamind_dispatch_outcomes_total",
			Help: "Dispatch outcomes by kind.",
		}, []string{"kind"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ethicamind_dispatch_duration_seconds",
			Help:    "End-to-end dispatch duration in seconds, backoff included.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms .. ~51s
		}, []string{"kind"}),
		Rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethicamind_dispatch_rounds",
			Help:    "Rounds used per dispatch.",
			Buckets: prometheus.LinearBuckets(1, 1, 5), // 1 .. 5
		}),
		BackoffSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethicamind_dispatch_backoff_seconds_total",
			Help: "Total time scheduled for backoff between rounds.",
		}),
	}

	reg.MustRegister(
		m.AttemptsTotal,
		m.AttemptDuration,
		m.OutcomesTotal,
		m.DispatchDuration,
		m.Rounds,
		m.BackoffSeconds,
	)

	return m
}

// Hooks returns dispatch Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnAttempt: func(provider string, ok bool, duration float64) {
			result := "success"
			if !ok {
				result = "failure"
			}
			m.AttemptsTotal.WithLabelValues(provider, result).Inc()
			m.AttemptDuration.WithLabelValues(provider).Observe(duration)
		},
		OnBackoff: func(_ int, delay time.Duration) {
			m.BackoffSeconds.Add(delay.Seconds())
		},
		OnComplete: func(o Outcome, duration float64) {
			m.OutcomesTotal.WithLabelValues(string(o.Kind)).Inc()
			m.DispatchDuration.WithLabelValues(string(o.Kind)).Observe(duration)
			m.Rounds.Observe(float64(o.Rounds))
		},
	}
}
