package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"socios/internal/auth"
	"socios/internal/cache"
	"socios/internal/config"
	applog "socios/internal/log"
	"socios/internal/metrics"
	"socios/internal/middleware/ratelimit"
	"socios/internal/middleware/security"
	"socios/internal/middleware/trace"
	"socios/internal/ports"
	"socios/internal/services"
	appweb "socios/web"
)

// Deps are the collaborators the server needs.
type Deps struct {
	Members   *services.MemberService
	Deletions *services.DeletionService
	// Store answers readiness pings and user lookups.
	Store  ports.Store
	Logger *applog.Logger

	SearchDebounce time.Duration
	MetricsEnabled bool
	DevUserID      string
	RateLimit      ratelimit.Config
	// TrustedProxies lists the CIDRs allowed to set X-User-ID and
	// forwarding headers. Nil means config.DefaultTrustedProxies.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	members   *services.MemberService
	deletions *services.DeletionService
	store     ports.Store
	logger    *applog.Logger
	log       *applog.StructuredLogger

	proxies      *proxyPolicy
	rateLimiter  *ratelimit.Limiter
	cacheManager *cache.Manager

	searchDebounce time.Duration
	metricsEnabled bool
	started        time.Time
	now            func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Members == nil || deps.Deletions == nil || deps.Store == nil {
		return nil, errors.New("http server: members, deletions and store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	cidrs := deps.TrustedProxies
	if cidrs == nil {
		cidrs = config.DefaultTrustedProxies
	}
	proxies, err := newProxyPolicy(cidrs)
	if err != nil {
		return nil, err
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:      t,
		members:        deps.Members,
		deletions:      deps.Deletions,
		store:          deps.Store,
		logger:         logger,
		log:            applog.NewStructuredLogger(logger),
		proxies:        proxies,
		rateLimiter:    ratelimit.NewLimiter(deps.RateLimit),
		cacheManager:   cache.NewManager(),
		searchDebounce: deps.SearchDebounce,
		metricsEnabled: deps.MetricsEnabled,
		started:        time.Now(),
		now:            time.Now,
	}

	s.cacheManager.Register(deps.Members.RosterCache())
	s.cacheManager.StartCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	resolver := auth.NewResolver(deps.Store, deps.DevUserID, isPublicPath, proxies.fromProxy)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, proxies.clientIP)
	limit := s.rateLimiter.Middleware(proxies.clientIP, isReadOnly, s.onRateLimit)

	// Outermost first: trace, headers, rate limit, identity.
	s.Handler = tracer.Middleware(headers.Middleware(limit(resolver.Middleware(mux))))
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	s.handle(mux, "GET /healthz", applog.ComponentHTTP, s.handleHealth)
	s.handle(mux, "GET /readyz", applog.ComponentHTTP, s.handleReady)
	if s.metricsEnabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	s.handle(mux, "GET /{$}", applog.ComponentMembers, s.handleIndex)
	s.handle(mux, "GET /ui/members", applog.ComponentMembers, s.handleMembersTable)
	s.handle(mux, "POST /members", applog.ComponentMembers, s.handleCreateMember)
	s.handle(mux, "POST /members/{id}", applog.ComponentMembers, s.handleUpdateMember)
	s.handle(mux, "POST /members/{id}/status", applog.ComponentMembers, s.handleUpdateStatus)
	s.handle(mux, "DELETE /members/{id}", applog.ComponentMembers, s.handleDeleteMember)
	s.handle(mux, "POST /members/{id}/lot-measured", applog.ComponentMembers, s.handleSetLotMeasured)
	s.handle(mux, "POST /members/lots/measured", applog.ComponentMembers, s.handleBatchLotMeasured)
	s.handle(mux, "POST /incomes", applog.ComponentMembers, s.handleRecordIncome)
	s.handle(mux, "GET /members/export.csv", applog.ComponentExport, s.handleExportCSV)
	s.handle(mux, "GET /members/export.xlsx", applog.ComponentExport, s.handleExportXLSX)

	s.handle(mux, "GET /documents", applog.ComponentMembers, s.handleDocumentsPage)
	s.handle(mux, "GET /ui/documents", applog.ComponentMembers, s.handleDocumentsList)
	s.handle(mux, "POST /documents", applog.ComponentMembers, s.handleAddDocument)
	s.handle(mux, "DELETE /documents/{id}", applog.ComponentDeletion, s.handleDeleteDocument)

	s.handle(mux, "GET /deletion-requests", applog.ComponentDeletion, s.handleRequestsPage)
	s.handle(mux, "GET /ui/deletion-requests", applog.ComponentDeletion, s.handleRequestsList)
	s.handle(mux, "POST /deletion-requests/{id}/approve", applog.ComponentDeletion, s.handleApproveRequest)
	s.handle(mux, "POST /deletion-requests/{id}/reject", applog.ComponentDeletion, s.handleRejectRequest)
	s.handle(mux, "POST /deletion-requests/{id}/reconcile", applog.ComponentDeletion, s.handleReconcileRequest)
}

// handle registers h under the given log component and records request
// metrics under the route pattern.
func (s *Server) handle(mux *http.ServeMux, pattern, component string, h http.HandlerFunc) {
	mux.Handle(pattern, applog.ComponentMiddleware(component)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.ObserveHTTP(r.Method, pattern, rec.status, time.Since(start))
	})))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, s.proxies.clientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		TriggerErrorNotification("Demasiadas solicitudes, intente en un minuto").
		Write(w)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
