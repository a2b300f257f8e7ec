// Package web provides the HTTP server, pages and JSON API of the cleaner.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/csvcleaner/internal/config"
	"github.com/JonMunkholm/csvcleaner/internal/history"
	"github.com/JonMunkholm/csvcleaner/internal/profile"
	"github.com/JonMunkholm/csvcleaner/internal/session"
	mw "github.com/JonMunkholm/csvcleaner/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// errRateLimited is mapped to RATE001.
var errRateLimited = errors.New("rate limit exceeded")

// Deps are the collaborators a Server needs.
type Deps struct {
	Sessions *session.Store
	Limiter  *session.Limiter
	Profiles *profile.Set
	History  history.Recorder
}

// Server is the HTTP server for the cleaner UI and API.
type Server struct {
	cfg      *config.Config
	sessions *session.Store
	limiter  *session.Limiter
	profiles *profile.Set
	history  history.Recorder

	router       *chi.Mux
	server       *http.Server
	rateLimiters []*rateLimiter
}

// NewServer wires routes and middleware. Nil dependencies get in-memory
// defaults built from cfg.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(cfg.Session.TTL, cfg.Session.MaxSessions)
	}
	if deps.Limiter == nil {
		deps.Limiter = session.NewLimiter(cfg.Load.MaxConcurrent, cfg.Load.MaxWaitTime)
	}
	if deps.Profiles == nil {
		deps.Profiles = profile.NewSet(cfg.Columns.Defaults)
	}
	if deps.History == nil {
		deps.History = history.NopStore{}
	}

	s := &Server{
		cfg:      cfg,
		sessions: deps.Sessions,
		limiter:  deps.Limiter,
		profiles: deps.Profiles,
		history:  deps.History,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealth)

	// Loading a file is the expensive step; it gets its own tighter limit.
	uploads := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		uploads = s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.With(uploads).Post("/upload", s.handleUpload)
	s.router.Route("/s/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/select", s.handleSelect)
		r.Post("/select-all", s.handleSelectAll)
		r.Post("/select-minimal", s.handleSelectMinimal)
		r.Post("/reset", s.handleReset)
		r.Get("/download", s.handleDownload)
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/profiles", s.handleAPIProfiles)
		r.Get("/history", s.handleAPIHistory)
		r.With(uploads).Post("/inspect", s.handleAPIInspect)
		r.With(uploads).Post("/clean", s.handleAPIClean)
	})
}

// defaultShutdownTimeout bounds Serve's graceful stop when none is configured.
const defaultShutdownTimeout = 30 * time.Second

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled, then stops gracefully.
// It returns only after running loads have drained and in-flight requests
// have finished, or the shutdown timeout has expired.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Wait for files being parsed (with timeout)
	if status := s.limiter.Status(); status.Active > 0 {
		slog.Info("waiting for loads to complete", "active", status.Active)
		if err := s.limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("loads did not complete in time", "error", err)
		} else {
			slog.Info("all loads completed")
		}
	}

	err := s.Shutdown(shutdownCtx)
	if serveErr := <-errCh; err == nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = serveErr
	}
	return err
}

// Shutdown gracefully stops the server and its background goroutines.
// It blocks until in-flight requests finish or ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.rateLimiters {
		rl.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness plus session and load counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"loads":    s.limiter.Status(),
		"history":  s.history.Enabled(),
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a limiter and registers it for Shutdown.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	s.rateLimiters = append(s.rateLimiters, rl)
	return rl
}

// cleanup drops visitors idle for two windows.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if rl.now().Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow consumes a token for ip and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rejects requests over the limit with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr, already rewritten by
// TrustedRealIP for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
