package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// DiagnosticsToken mounts /debug/diagnostics behind a bearer token.
	// Empty leaves the route unmounted.
	DiagnosticsToken string
}

// NewRouter mounts every route with the standard middleware stack.
func NewRouter(h *Handlers, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	if opts.DiagnosticsToken != "" {
		r.With(middleware.BearerToken(opts.DiagnosticsToken)).Get("/debug/diagnostics", h.Diagnostics)
	} else {
		logger.Info("diagnostics endpoint disabled, set DIAGNOSTICS_TOKEN to enable")
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Visitor)

		r.Get("/", h.Index)
		r.Post("/process", h.Process)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/state", h.GetState)
			r.Post("/process", h.PostProcess)
			r.Delete("/session", h.DeleteSession)
		})
	})

	return r
}
