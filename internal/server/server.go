package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/clikanban/kanban/config"
	"github.com/clikanban/kanban/internal/app"
	"github.com/clikanban/kanban/internal/handlers"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	app        *app.App
}

// New wires the services named by cfg and constructs a Server with basic
// middleware and defaults. Metrics go to the default Prometheus registry.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	a, err := app.New(ctx, cfg, app.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, err
	}

	router := NewRouter(a, prometheus.DefaultGatherer)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		app:        a,
	}, nil
}

// NewRouter mounts every route of the API over a. gatherer backs /metrics.
func NewRouter(a *app.App, gatherer prometheus.Gatherer) *chi.Mux {
	authMiddleware := handlers.RequireAuth(a.Issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		instrument(a.Metrics),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, a.Auth, a.Users, a.Issuer)
	})
	router.Route("/boards", func(r chi.Router) {
		handlers.BoardRouter(r, a.Boards, a.Tasks, authMiddleware)
	})
	router.Route("/tasks", func(r chi.Router) {
		handlers.TaskRouter(r, a.Tasks, authMiddleware)
	})
	router.Route("/exports", func(r chi.Router) {
		handlers.ExportRouter(r, a.Boards, authMiddleware)
	})
	return router
}

// instrument records request latency by route pattern so board names and
// task ids do not become label values.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, route, strconv.Itoa(status), start)
		})
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("kanban server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.app.Close(); closeErr != nil {
		log.WithError(closeErr).Warn("close backends")
	}
	return err
}
