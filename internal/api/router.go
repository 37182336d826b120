package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Weighting/internal/runner"
	"github.com/MikeSquared-Agency/Weighting/internal/store"
)

func NewRouter(s store.Store, rn *runner.Runner, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))
	r.Use(BodyLimitMiddleware(maxBodyBytes))

	rim := NewRimHandler(rn)
	plans := NewPlansHandler(s, rn)
	reverse := NewReverseHandler(s, rn)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rim/calculate", rim.Calculate)
		r.Post("/plans/classify", plans.Classify)

		r.Get("/subsets", plans.ListSubsets)
		r.Get("/subsets/{id}/plans", plans.Get)
		r.Post("/subsets/{id}/weights", plans.Weights)

		r.Post("/reverse", reverse.Create)
		r.Get("/reverse/{id}", reverse.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Put("/subsets/{id}/plans", plans.Put)
			r.Post("/reverse/{id}/commit", reverse.Commit)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
