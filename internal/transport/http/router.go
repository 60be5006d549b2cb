package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/itemhub/action-analytics/internal/app"
)

// NewRouter builds the service's HTTP surface. All item and member routes
// require a resolved member identity; their traffic also feeds the action
// recorder.
func NewRouter(a *app.App) http.Handler {
	h := NewHandler(a)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.Log()))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Use(h.RecordActions)

		r.Get("/items/{id}", h.getItemAnalytics)
		r.Post("/items/{id}/export", h.requestExport)
		r.Delete("/members/{id}/delete", h.deleteMemberActions)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("action_analytics.http.request_served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
