// Package http exposes the commitment, ledger, sweep, and calendar API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"scadenze/internal/cache"
	"scadenze/internal/core"
	"scadenze/internal/log"
	"scadenze/internal/middleware/ratelimit"
	"scadenze/internal/middleware/security"
	"scadenze/internal/middleware/trace"
	"scadenze/internal/services"
)

// LedgerStore is the ledger surface the API serves directly, bypassing the
// engine: manual entries and history reads.
type LedgerStore interface {
	CreateEntry(ctx context.Context, e core.LedgerEntry) (int64, error)
	ListEntries(ctx context.Context, ownerID string, start, end core.Date) ([]core.LedgerEntry, error)
}

// Pinger reports storage readiness for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries everything the server needs.
type Options struct {
	Addr        string
	Commitments *services.CommitmentService
	Engine      *services.Engine
	Projector   *services.Projector
	Ledger      LedgerStore
	Readiness   Pinger
	Logger      *log.Logger

	ProjectionCacheSize int
	ProjectionCacheTTL  time.Duration

	// RateLimit is requests per minute per client for mutating endpoints.
	// Zero disables limiting.
	RateLimit int
}

// Server is the HTTP front of the service.
type Server struct {
	http.Server

	commitments *services.CommitmentService
	engine      *services.Engine
	projector   *services.Projector
	ledger      LedgerStore
	readiness   Pinger
	logger      *log.Logger

	projectionCache *cache.LRUCache[[]services.DayProjection]
	projectionGroup singleflight.Group
	janitor         *cache.Janitor
	limiter         *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.ProjectionCacheSize <= 0 {
		opts.ProjectionCacheSize = 128
	}
	if opts.ProjectionCacheTTL <= 0 {
		opts.ProjectionCacheTTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		commitments:     opts.Commitments,
		engine:          opts.Engine,
		projector:       opts.Projector,
		ledger:          opts.Ledger,
		readiness:       opts.Readiness,
		logger:          opts.Logger.WithComponent(log.ComponentHTTP),
		projectionCache: cache.NewLRUCache[[]services.DayProjection](opts.ProjectionCacheSize, opts.ProjectionCacheTTL),
		janitor:         cache.NewJanitor(),
	}
	s.janitor.Register(s.projectionCache)
	s.janitor.Start(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	var api http.Handler = s.apiMux()
	if opts.RateLimit > 0 {
		s.limiter = ratelimit.NewLimiter(opts.RateLimit, time.Minute)
		api = s.limiter.Middleware(security.ExtractClientIP)(api)
	}
	api = security.HeadersMiddleware(security.DefaultHeadersConfig())(api)
	api = trace.NewMiddleware(opts.Logger, security.ExtractClientIP).Handler(api)
	mux.Handle("/api/", api)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) apiMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/commitments", s.handleCommitments)
	mux.HandleFunc("/api/commitments/", s.handleCommitmentByID)
	mux.HandleFunc("/api/entries", s.handleEntries)
	mux.HandleFunc("/api/sweep/run", s.handleSweepRun)
	mux.HandleFunc("/api/calendar", s.handleCalendar)
	return mux
}

// Shutdown stops the HTTP listener and background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.readiness.Ping(ctx); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateProjections drops an owner's cached calendar windows after any
// write that can change their forecast.
func (s *Server) invalidateProjections(ownerID string) {
	s.projectionCache.InvalidatePrefix(cache.OwnerPrefix(ownerID))
}
