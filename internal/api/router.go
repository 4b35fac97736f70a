// Package api exposes the chatbot over HTTP: the ask endpoint, the category
// browser, an MCP endpoint, the admin routes, health and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/askbot/internal/cascade"
	"github.com/kalambet/askbot/internal/convo"
	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/metrics"
	"github.com/kalambet/askbot/internal/session"
	"github.com/kalambet/askbot/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Answerer runs one conversation turn.
type Answerer interface {
	Answer(ctx context.Context, utterance string, s convo.Session) (cascade.Result, error)
}

// LoadedLanguages reports which content languages are warm.
type LoadedLanguages interface {
	Languages() []lang.Code
}

type Deps struct {
	Engine   Answerer
	Sessions session.Store
	Store    *storage.Store
	Cache    LoadedLanguages // optional; reported by /health
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // optional; nil disables /metrics

	// AdminToken guards /admin. Empty leaves the admin routes unmounted.
	AdminToken string
}

// NewHandler returns the full HTTP surface.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(observeRequests(deps.Metrics))

	r.Get("/health", handleHealth(deps))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	locks := &sessionLocks{}
	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", handleAsk(deps, locks))
		r.Delete("/session", handleResetSession(deps, locks))

		r.Get("/categories", handleCategories(deps))
		r.Get("/categories/{id}/subcategories", handleSubcategories(deps))
		r.Get("/categories/{id}/responses", handleCategoryResponses(deps))
	})

	r.Handle("/mcp", server.NewStreamableHTTPServer(newMCPServer(deps, locks)))

	if deps.AdminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(BearerAuth(deps.AdminToken))
			r.Get("/interactions", handleListInteractions(deps))
			r.Get("/settings", handleListSettings(deps))
			r.Put("/settings/{key}", handlePutSetting(deps))
		})
	}

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if deps.Cache != nil {
			langs := deps.Cache.Languages()
			if langs == nil {
				langs = []lang.Code{}
			}
			body["languages_loaded"] = langs
		}
		writeJSON(w, body)
	}
}

// observeRequests counts responses by route pattern and status code.
func observeRequests(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, strconv.Itoa(status))
		})
	}
}
