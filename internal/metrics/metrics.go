package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_messages_total",
		Help: "Chat messages appended, by sender",
	}, []string{"sender"})

	modeClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_mode_classifications_total",
		Help: "Guidance mode classifications, by mode",
	}, []string{"mode"})

	crisisPreScreens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_crisis_prescreen_total",
		Help: "Crisis pre-screen results, by level",
	}, []string{"level"})

	riskOverrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_risk_overrides_total",
		Help: "Replies whose risk flag was raised by the local pre-screen",
	}, []string{"level"})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_llm_requests_total",
		Help: "Text generation requests, by status",
	}, []string{"status"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rmi_llm_request_duration_seconds",
		Help:    "Duration of text generation requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	contactCacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rmi_contact_cache_fallbacks_total",
		Help: "Contact listings served from the last-known-good cache",
	})

	stateFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_state_flushes_total",
		Help: "Debounced user-state writes, by status",
	}, []string{"status"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rmi_rate_limited_total",
		Help: "Requests rejected by a rate limiter, by limiter",
	}, []string{"limiter"})
)

// Metrics expone los registros de métricas. Un *Metrics nil no registra nada.
type Metrics struct{}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordMessage(sender string) {
	if m == nil {
		return
	}
	messagesTotal.WithLabelValues(sender).Inc()
}

func (m *Metrics) RecordMode(mode string) {
	if m == nil {
		return
	}
	modeClassifications.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordPreScreen(level string) {
	if m == nil {
		return
	}
	crisisPreScreens.WithLabelValues(level).Inc()
}

func (m *Metrics) RecordRiskOverride(level string) {
	if m == nil {
		return
	}
	riskOverrides.WithLabelValues(level).Inc()
}

// RecordLLMRequest registra una llamada al LLM; status es "ok", "error" o "timeout".
func (m *Metrics) RecordLLMRequest(status string, d time.Duration) {
	if m == nil {
		return
	}
	llmRequests.WithLabelValues(status).Inc()
	llmDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) RecordContactCacheFallback() {
	if m == nil {
		return
	}
	contactCacheFallbacks.Inc()
}

func (m *Metrics) RecordStateFlush(status string) {
	if m == nil {
		return
	}
	stateFlushes.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRateLimited(limiter string) {
	if m == nil {
		return
	}
	rateLimited.WithLabelValues(limiter).Inc()
}

// Handler sirve el registro por defecto de Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
