// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedback-pipeline/internal/common/logger"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the pipeline routes. The retrieval endpoints accept
// the feedback id on the path, the query string, or the request body.
func NewRouter(h *Handler, log logger.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/feedback", func(r chi.Router) {
		r.Post("/", h.SubmitFeedback)
		r.Get("/results", h.GetResults)
		r.Post("/results", h.GetResults)
		r.Get("/{feedback_id}/results", h.GetResults)
	})

	return r
}

// requestID assigns a request id when the caller did not send one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request handled", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  ww.Header().Get(requestIDHeader),
			})
		})
	}
}
