// Package server exposes the catalog page, its JSON/SSE API, the playback
// session controls and the video surface websocket.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"jvsview/internal/catalog"
	"jvsview/internal/logger"
	"jvsview/internal/metrics"
	"jvsview/internal/models"
	"jvsview/internal/render"
	"jvsview/internal/session"
)

const defaultTitle = "JVS Streams"

// Catalog is the poller surface the server reads from.
type Catalog interface {
	Current() catalog.Snapshot
	Refresh()
	Subscribe() chan catalog.Snapshot
	Unsubscribe(ch chan catalog.Snapshot)
}

// Sessions is the playback session manager surface.
type Sessions interface {
	Select(id string) error
	Dismiss() error
	Snapshot() session.Snapshot
	Subscribe() chan session.Snapshot
	Unsubscribe(ch chan session.Snapshot)
}

// History lists stored playback records.
type History interface {
	ListPlayback(ctx context.Context, limit int) ([]models.PlaybackRecord, error)
	Ping() error
}

type Server struct {
	router   chi.Router
	catalog  Catalog
	sessions Sessions
	renderer *render.Renderer
	history  History
	surface  http.Handler
	metrics  *metrics.Metrics
	log      *slog.Logger

	title           string
	refreshInterval time.Duration
	corsOrigin      string
	refreshLimiter  *rate.Limiter

	done      chan struct{}
	closeOnce sync.Once
}

func NewServer(c Catalog, sessions Sessions, r *render.Renderer, opts ...Option) *Server {
	srv := &Server{
		router:          chi.NewRouter(),
		catalog:         c,
		sessions:        sessions,
		renderer:        r,
		log:             logger.Discard(),
		title:           defaultTitle,
		refreshInterval: catalog.DefaultInterval,
		refreshLimiter:  rate.NewLimiter(rate.Every(time.Second), 3),
		done:            make(chan struct{}),
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.RequestID)
	srv.router.Use(logger.RequestLogger(srv.log))
	if srv.metrics != nil {
		srv.router.Use(metrics.RequestMiddleware(srv.metrics))
	}
	srv.router.Use(middleware.Recoverer)
	srv.routes()
	return srv
}

// Close ends open event streams. http.Server.Shutdown does not cancel
// request contexts, so register it with RegisterOnShutdown.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

type Option func(*Server)

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithSurface mounts the video surface websocket handler.
func WithSurface(h http.Handler) Option {
	return func(s *Server) { s.surface = h }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithTitle(title string) Option {
	return func(s *Server) { s.title = title }
}

// WithRefreshInterval is advertised to the page for display only; the
// poller owns the actual schedule.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Server) { s.refreshInterval = d }
}

// WithRefreshLimit bounds manual refresh requests.
func WithRefreshLimit(r rate.Limit, burst int) Option {
	return func(s *Server) { s.refreshLimiter = rate.NewLimiter(r, burst) }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
