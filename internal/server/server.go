// Package server exposes the landing page and the contact form over HTTP.
//
// A visitor's first change to the form starts a session whose cookie selects
// their own contact.ContactForm; until then pages render an empty form. The page works as a plain HTML form with
// post/redirect/get; the embedded script upgrades it to JSON calls and a
// websocket stream of phase changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/contact"
	apperrors "github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/monitoring"
	"github.com/kasefra/landing/internal/site"
)

// maxBodyBytes bounds contact payloads.
const maxBodyBytes = 64 << 10

// Server serves the landing site.
type Server struct {
	cfg        *config.Config
	logger     logging.Logger
	errHandler *apperrors.Handler

	sender   *SwappableSender
	sessions *SessionStore
	limiter  *RateLimiter
	metrics  *monitoring.SubmissionMetrics
	health   *monitoring.HealthMonitor

	credentials   func() []string
	credentialsMu sync.RWMutex

	router     chi.Router
	httpServer *http.Server
	serverMu   sync.Mutex

	streams      sync.WaitGroup
	done         chan struct{}
	shutdownOnce sync.Once
}

// New wires a server around sender. The sender is wrapped so SetSender can
// replace it while forms are live.
func New(cfg *config.Config, sender contact.Sender, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		errHandler: apperrors.NewHandler(logger),
		sender:     NewSwappableSender(sender),
		limiter:    NewRateLimiter(cfg.Server.RateLimit, logger),
		metrics:    monitoring.NewSubmissionMetrics(),
		health:     monitoring.NewHealthMonitor(logger, cfg.Server.Environment),
		done:       make(chan struct{}),
	}

	email := cfg.Email
	s.credentials = email.MissingCredentials

	s.sessions = NewSessionStore(cfg.Server.SessionTTL, cfg.Server.MaxSessions, cfg.IsProduction(), s.newForm)

	s.health.RegisterCheck(monitoring.EmailProviderHealthChecker(s.missingCredentials))
	s.health.RegisterCheck(monitoring.SubmissionHealthChecker(s.metrics))
	s.health.RegisterCheck(monitoring.GoroutineHealthChecker())

	s.router = s.routes()
	return s
}

func (s *Server) newForm() *contact.ContactForm {
	return contact.NewContactForm(s.sender, contact.Options{
		Recipient: s.cfg.Email.Recipient,
		Logger:    s.logger.WithComponent("contact"),
		Recorder:  s.metrics,
	})
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityMiddleware(SecurityConfigFromAppConfig(s.cfg, s.logger)))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.health.HTTPHandler())
	r.Get("/api/metrics", s.handleMetrics)
	r.Get("/api/contact", s.handleSnapshot)
	r.Get(site.StreamPath, s.handleWebSocket)

	static := http.StripPrefix("/static/", http.FileServer(http.FS(site.Static())))
	r.Get("/static/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter))
		r.Post(site.FormAction, s.handleFormSubmit)
		r.Post(site.APIAction, s.handleAPISubmit)
		r.Patch("/api/contact/fields", s.handleUpdateField)
	})

	return r
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetSender replaces the outbound sender for every form, including those
// already open.
func (s *Server) SetSender(sender contact.Sender, email config.EmailConfig) {
	s.sender.Swap(sender)

	s.credentialsMu.Lock()
	s.credentials = email.MissingCredentials
	s.credentialsMu.Unlock()

	s.logger.Info(context.Background(), "Email sender replaced",
		"configured", len(email.MissingCredentials()) == 0)
}

func (s *Server) missingCredentials() []string {
	s.credentialsMu.RLock()
	defer s.credentialsMu.RUnlock()
	return s.credentials()
}

// Metrics returns the submission counters.
func (s *Server) Metrics() *monitoring.SubmissionMetrics {
	return s.metrics
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.serverMu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := s.httpServer
	s.serverMu.Unlock()

	s.sessions.Start(time.Minute)
	if s.cfg.Server.RateLimit.Enabled {
		s.limiter.Start(5 * time.Minute)
	}

	s.logger.Info(ctx, "Kasefra landing site listening",
		"address", ln.Addr().String(),
		"environment", s.cfg.Server.Environment,
		"email_configured", len(s.missingCredentials()) == 0)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes websocket streams, and waits for
// in-flight requests (including provider calls) until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		close(s.done)
		s.sessions.Stop()
		s.limiter.Stop()

		s.serverMu.Lock()
		srv := s.httpServer
		s.serverMu.Unlock()

		if srv != nil {
			shutdownErr = srv.Shutdown(ctx)
		}

		waited := make(chan struct{})
		go func() {
			s.streams.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			if shutdownErr == nil {
				shutdownErr = ctx.Err()
			}
		}
	})

	return shutdownErr
}
