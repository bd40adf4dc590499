package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/cache"
	"wealthplanner/internal/log"
	"wealthplanner/internal/middleware/ratelimit"
	"wealthplanner/internal/middleware/security"
	"wealthplanner/internal/middleware/trace"
	"wealthplanner/internal/services"
	appweb "wealthplanner/web"
)

// staticMaxAge is the browser cache lifetime of embedded assets, in seconds.
const staticMaxAge = 3600

type Server struct {
	http.Server
	auth     *services.AuthService
	budget   *services.BudgetService
	settings *services.SettingsService
	issuer   *auth.Issuer
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	charts   cache.Cache[[]byte]
	logger   *log.Logger
	pages    map[string]*template.Template

	cookieSecure bool
}

// Deps are the collaborators of the server. Limiter, Detector, Charts and
// Logger get defaults when nil.
type Deps struct {
	Auth     *services.AuthService
	Budget   *services.BudgetService
	Settings *services.SettingsService
	Issuer   *auth.Issuer
	Limiter  *ratelimit.Limiter
	Detector *security.Detector
	Charts   cache.Cache[[]byte]
	Logger   *log.Logger

	CookieSecure bool
}

// NewServer configures routes, middleware and templates, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Auth == nil || d.Budget == nil || d.Settings == nil || d.Issuer == nil {
		return nil, fmt.Errorf("http server: auth, budget, settings and issuer are required")
	}
	if d.Logger == nil {
		d.Logger = log.New(log.DefaultConfig())
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if d.Detector == nil {
		d.Detector = security.NewDetector()
	}
	if d.Charts == nil {
		d.Charts = cache.NewLRUCache[[]byte](100, 10*time.Minute)
	}

	pages, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	s := &Server{
		auth:         d.Auth,
		budget:       d.Budget,
		settings:     d.Settings,
		issuer:       d.Issuer,
		limiter:      d.Limiter,
		detector:     d.Detector,
		charts:       d.Charts,
		logger:       d.Logger.WithComponent(log.ComponentHTTP),
		pages:        pages,
		cookieSecure: d.CookieSecure,
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}

	// The tracer derives its request logger from the one log.Middleware stores.
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, nil)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(d.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Login flow and public pages.
	mux.HandleFunc("GET /{$}", s.handleLogin)
	mux.HandleFunc("POST /check-user/{$}", s.handleCheckUser)
	mux.HandleFunc("GET /login-pin/{$}", s.handleLoginPINPage)
	mux.HandleFunc("POST /login-pin/{$}", s.handleLoginPIN)
	mux.HandleFunc("GET /send-otp/{$}", s.handleSendOTP)
	mux.HandleFunc("POST /send-otp/{$}", s.handleSendOTP)
	mux.HandleFunc("GET /verify-otp/{$}", s.handleVerifyOTPPage)
	mux.HandleFunc("POST /verify-otp/{$}", s.handleVerifyOTP)
	mux.Handle("GET /create-pin/{$}", s.requireSession(s.handleCreatePINPage))
	mux.Handle("POST /create-pin/{$}", s.requireSession(s.handleCreatePIN))
	mux.Handle("GET /setup/{$}", s.requireSession(s.handleSetupPage))
	mux.Handle("POST /setup/{$}", s.requireSession(s.handleSetup))
	mux.HandleFunc("GET /logout/{$}", s.handleLogout)
	mux.HandleFunc("GET /privacy-policy/{$}", s.handlePrivacy)
	mux.HandleFunc("GET /delete-account/{$}", s.handleDeleteAccountPage)
	mux.HandleFunc("POST /delete-account/{$}", s.handleDeleteAccount)

	// Pages behind the session cookie. They carry personal figures and are never cached.
	page := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.requireSession(h))
	}
	mux.Handle("GET /dashboard/{$}", page(s.handleDashboard))
	mux.Handle("GET /transactions/{$}", page(s.handleTransactions))
	mux.Handle("GET /history/{$}", page(s.handleHistory))
	mux.Handle("GET /advisor/{$}", page(s.handleAdvisor))
	mux.Handle("GET /savings/{$}", page(s.handleSavings))
	mux.Handle("GET /savings/chart.png", page(s.handleSavingsChart))
	mux.Handle("GET /settings/{$}", page(s.handleSettingsPage))
	mux.Handle("POST /settings/{$}", page(s.handleSettings))
	mux.Handle("POST /transaction/add/{$}", page(s.handleAddTransaction))
	mux.Handle("GET /transaction/delete/{id}/{$}", page(s.handleDeleteTransaction))
	mux.Handle("POST /transaction/delete/{id}/{$}", page(s.handleDeleteTransaction))
	mux.Handle("POST /transaction/reorder/{$}", page(s.handleReorder))
	mux.Handle("GET /export/{$}", page(s.handleExport))
	mux.Handle("POST /import/{$}", page(s.handleImport))
	mux.Handle("POST /reset/{$}", page(s.handleReset))
	mux.Handle("GET /toggle-theme/{$}", page(s.handleToggleTheme))
	mux.Handle("POST /toggle-theme/{$}", page(s.handleToggleTheme))

	s.apiRoutes(mux)
	return nil
}

func (s *Server) apiRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/send-otp/{$}", s.apiSendOTP)
	mux.HandleFunc("POST /api/auth/verify-otp/{$}", s.apiVerifyOTP)
	mux.HandleFunc("POST /api/auth/check-status/{$}", s.apiCheckStatus)
	mux.HandleFunc("POST /api/auth/register/{$}", s.apiRegister)
	mux.HandleFunc("POST /api/auth/login-pin/{$}", s.apiLoginPIN)
	mux.HandleFunc("POST /api/token/refresh/{$}", s.apiRefresh)

	api := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.requireBearer(h))
	}
	mux.Handle("GET /api/user/profile/{$}", api(s.apiProfile))
	mux.Handle("PUT /api/user/profile/{$}", api(s.apiUpdateProfile))
	mux.Handle("PATCH /api/user/profile/{$}", api(s.apiUpdateProfile))
	mux.Handle("POST /api/user/setup/{$}", api(s.apiSetup))
	mux.Handle("GET /api/transactions/{$}", api(s.apiListTransactions))
	mux.Handle("POST /api/transactions/{$}", api(s.apiCreateTransaction))
	mux.Handle("POST /api/transactions/reorder/{$}", api(s.apiReorder))
	mux.Handle("GET /api/transactions/{id}/{$}", api(s.apiGetTransaction))
	mux.Handle("PUT /api/transactions/{id}/{$}", api(s.apiUpdateTransaction))
	mux.Handle("PATCH /api/transactions/{id}/{$}", api(s.apiUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}/{$}", api(s.apiDeleteTransaction))
	mux.Handle("GET /api/dashboard/{$}", api(s.apiDashboard))
	mux.Handle("GET /api/savings/{$}", api(s.apiSavings))
	mux.Handle("GET /api/history/{$}", api(s.apiHistory))
	mux.Handle("GET /api/export/{$}", api(s.apiExport))
	mux.Handle("POST /api/import/{$}", api(s.apiImport))
	mux.Handle("POST /api/settings/reset/{$}", api(s.apiReset))
	mux.Handle("POST /api/settings/toggle-theme/{$}", api(s.apiToggleTheme))
}

// limitWrites rate limits every state-changing request per client IP. The
// login steps are all POSTs, so they are covered too.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	const msg = "Rate limit exceeded. Please try again later."
	if strings.HasPrefix(r.URL.Path, "/api/") {
		ErrorResponse(http.StatusTooManyRequests, msg).Write(w)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

// LogStats writes the request, rate limit and scan counters to the log.
func (s *Server) LogStats(ctx context.Context) {
	requests := s.tracer.GetMetrics()
	limits := s.limiter.GetMetrics()
	scans := s.detector.GetMetrics()
	s.logger.InfoContext(ctx, "HTTP stats",
		"requests_total", requests.TotalRequests,
		"last_response_us", requests.AverageResponseTime,
		"rate_limited", limits.TotalHits,
		"rate_limit_clients", limits.ClientCount,
		"suspicious_requests", scans.SuspiciousRequests,
		"blocked_requests", scans.BlockedRequests)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.budget.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
