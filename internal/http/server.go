package http

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

const defaultKeepAlive = 25 * time.Second

// Options configures NewServer. Service, Sessions and Authenticator are
// required.
type Options struct {
	Addr          string
	Service       *services.TransactionService
	Sessions      *auth.Manager
	Authenticator auth.Authenticator
	Logger        *log.Logger

	RateLimit          ratelimit.Config
	CORSAllowedOrigins []string
	TrustedProxies     []string

	// SummaryCache is only read for /metrics; the service owns invalidation.
	SummaryCache *cache.LRUCache[core.Summary]

	// KeepAlive is the comment interval on live streams.
	KeepAlive time.Duration
	Clock     func() time.Time
}

type Server struct {
	http.Server

	svc       *services.TransactionService
	sessions  *auth.Manager
	authn     auth.Authenticator
	templates *templates

	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	summaries *cache.LRUCache[core.Summary]

	logger     *log.Logger
	structured *log.StructuredLogger
	metrics    appMetrics
	keepAlive  time.Duration
	now        func() time.Time

	baseCtx      context.Context
	baseCancel   context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer parses templates and builds the middleware chain, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("http server: transaction service is required")
	}
	if opts.Sessions == nil || opts.Authenticator == nil {
		return nil, errors.New("http server: sessions and authenticator are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	s := &Server{
		svc:        opts.Service,
		sessions:   opts.Sessions,
		authn:      opts.Authenticator,
		templates:  tmpl,
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   detector,
		summaries:  opts.SummaryCache,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		metrics:    appMetrics{startedAt: opts.Clock()},
		keepAlive:  opts.KeepAlive,
		now:        opts.Clock,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(s.routes(opts.CORSAllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Live streams clear their own write deadline.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	return s, nil
}

func (s *Server) routes(allowedOrigins []string) *http.ServeMux {
	mux := http.NewServeMux()

	page := func(h http.HandlerFunc) http.Handler {
		return s.sessions.Require(security.NoStore(h))
	}

	mux.Handle("GET /{$}", s.sessions.Optional(security.NoStore(http.HandlerFunc(s.handleIndex))))
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /dashboard", page(s.handleDashboard))
	mux.Handle("GET /transactions", page(s.handleTransactions))
	mux.Handle("POST /transactions", page(s.handleSaveTransaction))
	mux.Handle("POST /transactions/{id}/delete", page(s.handleDeleteTransaction))

	// UI partials
	mux.Handle("GET /ui/transactions/grid", page(s.handleGrid))
	mux.Handle("GET /ui/transactions/dialog", page(s.handleOpenDialog))
	mux.Handle("POST /ui/transactions/dialog/check", page(s.handleCheckDialog))
	mux.Handle("POST /ui/transactions/dialog/amount", page(s.handleFormatAmount))
	mux.Handle("GET /ui/transactions/dialog/close", page(s.handleCloseDialog))
	mux.Handle("GET /ui/transactions/delete-dialog", page(s.handleOpenDeleteDialog))
	mux.Handle("GET /ui/transactions/delete-dialog/close", page(s.handleCloseDeleteDialog))
	mux.Handle("GET /ui/dashboard/summary", page(s.handleSummary))

	mux.Handle("GET /live/transactions", s.sessions.Require(http.HandlerFunc(s.handleLiveTransactions)))
	mux.Handle("GET /live/summary", s.sessions.Require(http.HandlerFunc(s.handleLiveSummary)))

	mux.Handle("/api/", s.apiHandler(allowedOrigins))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	return mux
}

// apiHandler serves the JSON API behind CORS and the session cookie.
func (s *Server) apiHandler(allowedOrigins []string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.apiListTransactions)
	api.HandleFunc("POST /api/transactions", s.apiCreateTransaction)
	api.HandleFunc("GET /api/transactions/{id}", s.apiGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.apiUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.apiDeleteTransaction)
	api.HandleFunc("GET /api/summary", s.apiSummary)
	api.HandleFunc("GET /api/options", s.apiOptions)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler(s.sessions.RequireAPI(api))
}

// middleware wraps the mux, outermost first: tracing spans, request ids and
// access logs, threat detection, security headers, rate limiting and the
// request-scoped logger.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := log.Middleware(s.logger)(next)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)
	return otelhttp.NewHandler(h, "fintrack",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, "/static/") && r.URL.Path != "/healthz"
		}),
	)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again shortly.").
		TriggerNotification(NotificationWarning, "Too many requests. Please try again shortly.", 5000).
		Write(w)
}

// Shutdown ends live streams, then drains the HTTP server and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.baseCancel()
		shutdownErr = s.Server.Shutdown(ctx)
		s.limiter.Stop()
	})

	return shutdownErr
}
