package api

import (
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/config"
)

// Config holds server configuration.
type Config struct {
	Port           int
	RateLimit      float64  // Requests per second per client (0 = disabled)
	Burst          int      // Burst size
	AllowedOrigins []string // CORS and WebSocket allowed origins (empty = allow all)
	MaxQueryBytes  int      // Longest accepted query (0 = unlimited)
	TrustedProxies []string // IPs or CIDRs allowed to set X-Forwarded-For
	Version        string
	Provider       string // Provider kind reported by /health
}

// ConfigFrom derives the server configuration from the loaded file.
func ConfigFrom(cfg *config.Config, version string) Config {
	return Config{
		Port:           cfg.Server.Port,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxQueryBytes:  cfg.Server.MaxQueryBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
		Version:        version,
		Provider:       cfg.Provider.Kind,
	}
}

// ParserSource supplies the registry and parse options for each request.
// config.Manager implements it, so a reload takes effect on the next request.
type ParserSource interface {
	Registry() *refparse.Registry
	ParseOptions() refparse.Options
}

// StaticParser serves a fixed registry and options.
type StaticParser struct {
	Reg     *refparse.Registry
	Options refparse.Options
}

// Registry returns s.Reg.
func (s StaticParser) Registry() *refparse.Registry { return s.Reg }

// ParseOptions returns s.Options.
func (s StaticParser) ParseOptions() refparse.Options { return s.Options }
