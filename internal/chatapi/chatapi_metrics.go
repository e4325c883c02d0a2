package chatapi

import "github.com/prometheus/client_golang/prometheus"

const (
	kindCrisis    = "crisis"
	kindGuardrail = "guardrail"
	kindReplied   = "replied"
	kindFallback  = "fallback"
	kindInvalid   = "invalid"
	kindError     = "error"
)

// Metrics holds Prometheus metrics for the chat endpoint.
type Metrics struct {
	ResponsesTotal   *prometheus.CounterVec
	EscalationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns chat endpoint metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResponsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicamind_chat_responses_total",
			Help: "Chat responses by kind (crisis, guardrail, replied, fallback, invalid, error).",
		}, []string{"kind"}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethicamind_crisis_escalations_total",
			Help: "Crisis escalation notices by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.ResponsesTotal, m.EscalationsTotal)
	return m
}

func (m *Metrics) observeResponse(kind string) {
	if m == nil {
		return
	}
	m.ResponsesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeEscalation(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.EscalationsTotal.WithLabelValues(result).Inc()
}
