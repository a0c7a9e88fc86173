package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the admin API exposes.
type Deps struct {
	Passes      PassRunner
	Templates   TemplateManager
	Chains      ChainResolver
	Occurrences Completer
	Categories  CategoryLister
	Logger      *zap.Logger
}

// NewRouter builds the admin HTTP API.
func NewRouter(deps Deps) http.Handler {
	h := &handler{
		passes:      deps.Passes,
		templates:   deps.Templates,
		chains:      deps.Chains,
		occurrences: deps.Occurrences,
		categories:  deps.Categories,
		logger:      deps.Logger,
		clock:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, deps.Logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/passes", h.runPass)

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", h.createTemplate)
			r.Get("/{id}", h.getTemplate)
			r.Delete("/{id}", h.deleteTemplate)
		})

		r.Get("/instances/{id}/template", h.resolveTemplate)
		r.Post("/instances/{id}/complete", h.completeTask)
		r.Get("/users/{id}/categories", h.listCategories)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
