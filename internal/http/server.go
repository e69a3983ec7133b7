package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/services"
	"salesdash/internal/source"
)

const (
	// readTimeout bounds a dataset load triggered by a request.
	readTimeout   = 7 * time.Second
	importTimeout = 2 * time.Minute
)

// DatasetReader returns the current dataset snapshot.
type DatasetReader interface {
	Rows(ctx context.Context) ([]core.SalesRow, error)
}

// ImportRequester starts an import, inline or queued.
type ImportRequester interface {
	RequestImport(ctx context.Context, path string) (services.ImportResult, error)
}

// Options wires the server's collaborators. Imports may be nil, in which
// case POST /api/imports answers 409. ImportLog, when set, adds the most
// recent import to /readyz.
type Options struct {
	Datasets       DatasetReader
	Imports        ImportRequester
	ImportLog      source.ImportLog
	Years          YearPair
	Logger         *applog.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server
	datasets DatasetReader
	imports  ImportRequester
	history  source.ImportLog
	years    YearPair
	logger   *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	if opts.Years.Base == 0 || opts.Years.Compare == 0 {
		opts.Years = YearPair{Base: 2024, Compare: 2025}
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		datasets:  opts.Datasets,
		imports:   opts.Imports,
		history:   opts.ImportLog,
		years:     opts.Years,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ClientIP, logger),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/overview", s.handleOverview)
	mux.HandleFunc("/api/years/{year}", s.handleYear)
	mux.HandleFunc("/api/comparison", s.handleComparison)
	mux.HandleFunc("/api/range", s.handleRange)
	mux.HandleFunc("/api/growth-table", s.handleGrowthTable)
	mux.HandleFunc("/api/contribution", s.handleContribution)
	mux.Handle("/api/imports", s.limiter.Middleware(detector.ClientIP, s.rateLimited)(http.HandlerFunc(s.handleImport)))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      importTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
