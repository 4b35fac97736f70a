// Package metrics exposes Prometheus instrumentation for the answer path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kalambet/askbot/internal/lang"
)

// Metrics holds the application's collectors. A nil *Metrics records nothing.
type Metrics struct {
	// Cascade metrics
	Answers       *prometheus.CounterVec
	AnswerLatency prometheus.Histogram
	AnswerErrors  *prometheus.CounterVec

	// Content cache metrics
	CacheBuilds        *prometheus.CounterVec
	CacheBuildDuration prometheus.Histogram
	CacheItems         *prometheus.GaugeVec

	// HTTP metrics
	Requests *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askbot_answers_total",
			Help: "Answered turns by result kind and language",
		}, []string{"kind", "lang"}),

		AnswerLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "askbot_answer_duration_seconds",
			Help:    "Time to answer one utterance",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		AnswerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askbot_answer_errors_total",
			Help: "Failed turns by error kind",
		}, []string{"error_type"}),

		CacheBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askbot_content_cache_builds_total",
			Help: "Content cache builds by language and outcome",
		}, []string{"lang", "outcome"}),

		CacheBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "askbot_content_cache_build_duration_seconds",
			Help:    "Time to build one language's content cache",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		CacheItems: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "askbot_content_cache_items",
			Help: "Indexed items per language and index",
		}, []string{"lang", "index"}),

		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "askbot_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// ObserveAnswer records one successful turn.
func (m *Metrics) ObserveAnswer(kind string, l lang.Code, d time.Duration) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(kind, string(l)).Inc()
	m.AnswerLatency.Observe(d.Seconds())
}

// ObserveError records one failed turn.
func (m *Metrics) ObserveError(errorType string) {
	if m == nil {
		return
	}
	m.AnswerErrors.WithLabelValues(errorType).Inc()
}

// CacheBuilt implements content.Observer.
func (m *Metrics) CacheBuilt(l lang.Code, categories, responses int, d time.Duration) {
	if m == nil {
		return
	}
	m.CacheBuilds.WithLabelValues(string(l), "ok").Inc()
	m.CacheBuildDuration.Observe(d.Seconds())
	m.CacheItems.WithLabelValues(string(l), "categories").Set(float64(categories))
	m.CacheItems.WithLabelValues(string(l), "responses").Set(float64(responses))
}

// CacheBuildFailed implements content.Observer.
func (m *Metrics) CacheBuildFailed(l lang.Code) {
	if m == nil {
		return
	}
	m.CacheBuilds.WithLabelValues(string(l), "error").Inc()
}

// ObserveRequest records one HTTP response.
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, code).Inc()
}
