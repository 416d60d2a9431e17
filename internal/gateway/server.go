// Package gateway serves the dashboard over HTTP and streams agent runs over
// WebSocket.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/agentdash/internal/config"
	"github.com/soyeahso/agentdash/internal/dashboard"
	"github.com/soyeahso/agentdash/internal/hooks"
	"github.com/soyeahso/agentdash/internal/logging"
	"github.com/soyeahso/agentdash/internal/metrics"
	"github.com/soyeahso/agentdash/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// Server is the dashboard HTTP + WebSocket server.
type Server struct {
	cfg      config.DashboardConfig
	auth     ResolvedAuth
	log      *logging.Logger
	dash     *dashboard.Dashboard
	clients  *clientSet
	handlers map[string]RequestHandler
	version  string
	eventSeq atomic.Int64

	// Optional collaborators; nil disables them.
	hooks   *hooks.Manager
	metrics *metrics.Metrics

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server for the given dashboard.
func New(cfg config.DashboardConfig, dash *dashboard.Dashboard, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		auth:        ResolveAuth(cfg.Auth),
		log:         log.Sub("gateway"),
		dash:        dash,
		clients:     newClientSet(log.Sub("clients")),
		handlers:    make(map[string]RequestHandler),
		version:     version.Version,
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerRPCHandlers()
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.AllowedOrigins, s.metrics)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.DashboardConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Bind != "loopback" && s.auth.Mode != "none" {
		s.log.Warn().Msg("TLS is not enabled; credentials will be transmitted in cleartext")
	}

	s.startedAt = time.Now()
	done := make(chan struct{})
	go s.authLimiter.run(done)

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Str("auth", s.auth.Mode).
		Str("namespace", s.dash.Namespace()).
		Msg("dashboard server ready")

	s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{
		"addr": ln.Addr().String(),
	})

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down dashboard server")
		s.hooks.Emit(context.Background(), hooks.EventServerStop, nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.closeAll()
		s.httpServer.Shutdown(shutdownCtx)
		close(done)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address, or empty before Start.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// Uptime returns the time since Start.
func (s *Server) Uptime() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}
