package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-feed-service/internal/report"
)

// FeedService is the host surface the API reads from and triggers.
type FeedService interface {
	Quakes() report.ListView
	Latest() report.HeadlineView
	Refresh(ctx context.Context) error
	RefreshHeadline(ctx context.Context) error
}

// Server exposes the quake API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	feed       FeedService
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Manual refreshes of each flow are limited
// to one per refreshEvery across all clients.
func NewServer(addr string, feed FeedService, ready sharedobs.ReadinessChecker, refreshEvery time.Duration, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		feed:   feed,
		logger: logger,
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/quakes", func(api chi.Router) {
		api.Get("/", s.handleQuakes)
		api.With(refreshLimit(refreshEvery, logger)).Post("/refresh", s.handleRefresh)
		api.Get("/latest", s.handleLatest)
		api.With(refreshLimit(refreshEvery, logger)).Post("/latest/refresh", s.handleRefreshHeadline)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleQuakes(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, presentList(s.feed.Quakes()))
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, presentHeadline(s.feed.Latest()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.writeRefresh(w, r, "list", s.feed.Refresh(r.Context()))
}

func (s *Server) handleRefreshHeadline(w http.ResponseWriter, r *http.Request) {
	s.writeRefresh(w, r, "headline", s.feed.RefreshHeadline(r.Context()))
}

func (s *Server) writeRefresh(w http.ResponseWriter, r *http.Request, flow string, err error) {
	if err == nil {
		sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
		return
	}

	status, body := refreshError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("refresh failed",
			"flow", flow,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}
	sharedobs.WriteJSON(w, status, body)
}
