package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/receipt"
)

const (
	maxReceiptUpload = 10 << 20
	cleanupInterval  = 5 * time.Minute
)

// Reader is the read side of the store.
type Reader interface {
	GetAll(ctx context.Context) ([]core.Transaction, error)
	GetByTag(ctx context.Context, name string) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	ListTags(ctx context.Context) ([]core.TagCount, error)
	Summary(ctx context.Context, r core.DateRange) (core.Summary, error)
	DailyTotals(ctx context.Context, r core.DateRange) ([]core.DailyTotal, error)
	Ping(ctx context.Context) error
}

// Writer creates and deletes transactions; implemented by
// services.TransactionService.
type Writer interface {
	Create(ctx context.Context, t core.Transaction) (int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Options configures NewServer. Zero values fall back to sane defaults.
type Options struct {
	Addr            string
	Reader          Reader
	Writer          Writer
	Scanner         *receipt.Scanner
	Metrics         *metrics.Metrics
	Logger          *log.Logger
	Currency        string
	CORSOrigins     string
	RateLimit       int
	RateLimitWindow time.Duration
	CacheSize       int
	CacheTTL        time.Duration
}

type Server struct {
	http.Server
	reader   Reader
	writer   Writer
	scanner  *receipt.Scanner
	metrics  *metrics.Metrics
	logger   *log.Logger
	currency string

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	// LRU caches of list reads, purged on every write
	listCache *cache.LRUCache[[]core.Transaction]
	tagsCache *cache.LRUCache[[]core.TagCount]
	caches    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer builds the API server and starts its background cleanup. Call
// Shutdown to stop both the listener and the cleanup goroutines.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Scanner == nil {
		opts.Scanner = receipt.NewScanner(nil)
	}
	if opts.Currency == "" {
		opts.Currency = "MYR"
	}
	if opts.CORSOrigins == "" {
		opts.CORSOrigins = "*"
	}

	s := &Server{
		reader:   opts.Reader,
		writer:   opts.Writer,
		scanner:  opts.Scanner,
		metrics:  opts.Metrics,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		currency: opts.Currency,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			Requests: opts.RateLimit,
			Window:   opts.RateLimitWindow,
		}),
		detector:  security.NewDetector(),
		listCache: cache.NewLRUCache[[]core.Transaction](opts.CacheSize, opts.CacheTTL),
		tagsCache: cache.NewLRUCache[[]core.TagCount](opts.CacheSize, opts.CacheTTL),
		caches:    cache.NewManager(),
	}
	s.listCache.OnLookup(s.metrics.CacheLookup)
	s.tagsCache.OnLookup(s.metrics.CacheLookup)
	s.caches.Register(s.listCache)
	s.caches.Register(s.tagsCache)
	s.caches.StartCleanup(cleanupInterval)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler(opts.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.Handle("POST /api/transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.Handle("DELETE /api/transactions/{id}", limited(http.HandlerFunc(s.handleDeleteTransaction)))
	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("GET /api/tags/{name}/transactions", s.handleTagTransactions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/daily-totals", s.handleDailyTotals)
	mux.Handle("POST /api/receipts/total", limited(http.HandlerFunc(s.handleReceiptTotal)))
	return mux
}

// handler wraps the routes with the middleware chain, outermost first:
// logger, recovery, headers, CORS, probe detection, tracing.
func (s *Server) handler(corsOrigins string) http.Handler {
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.metrics.ObserveHTTP)

	var h http.Handler = s.routes()
	h = tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = security.CORS(corsOrigins)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.Recovery(h)
	h = log.Middleware(s.logger)(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// invalidate drops every cached read after a write.
func (s *Server) invalidate() {
	s.listCache.Purge()
	s.tagsCache.Purge()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.reader.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
