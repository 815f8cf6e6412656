// Package api provides the versefinder REST and WebSocket server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/FocuswithJustin/versefinder/internal/content"
	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

const shutdownTimeout = 10 * time.Second

// Server serves reference parsing and lookup over HTTP.
type Server struct {
	cfg      Config
	parser   ParserSource
	resolver *content.Resolver // nil when no provider is configured
	started  time.Time
	limiter  *RateLimiter
	proxies  []netip.Prefix
}

// New creates a server. resolver may be nil, in which case lookups answer
// 503.
//
// Forwarding headers are believed only from cfg.TrustedProxies. If that
// list does not parse, no proxy is trusted.
func New(cfg Config, parser ParserSource, resolver *content.Resolver) *Server {
	proxies, err := server.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logging.SecurityEvent("trusted_proxies_rejected", "api", "error", err)
		proxies = nil
	}
	return &Server{
		cfg:      cfg,
		parser:   parser,
		resolver: resolver,
		started:  time.Now(),
		proxies:  proxies,
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/books", s.handleBooks)
	mux.HandleFunc("/parse", s.handleParse)
	mux.HandleFunc("/lookup", s.handleLookup)
	mux.HandleFunc("/ws/lookup", s.handleWebSocket)

	return mux
}

// Handler builds the routes wrapped in the middleware chain. Calling it
// more than once replaces the rate limiter.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeaders(server.APICSPConfig(), s.setupRoutes())

	if s.limiter != nil {
		s.limiter.Stop()
		s.limiter = nil
	}
	if s.cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerSecond: s.cfg.RateLimit,
			BurstSize:         s.cfg.Burst,
			TrustedProxies:    s.proxies,
		})
		handler = s.limiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_second", s.cfg.RateLimit,
			"burst_size", s.cfg.Burst)
	}

	handler = server.CORSMiddleware(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	return logging.CombinedMiddleware(handler)
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.Close()

	provider := "none"
	if s.resolver != nil {
		provider = s.cfg.Provider
	}
	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"websocket_protocol", "ws",
		"books", s.parser.Registry().Len(),
		"provider", provider)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.Info("shutting down server", "port", s.cfg.Port)
		return srv.Shutdown(shutdownCtx)
	}
}
