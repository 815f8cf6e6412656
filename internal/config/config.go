// Package config loads the versefinder YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

// Config is the whole configuration file.
type Config struct {
	// Books replaces the built-in registry when non-empty.
	Books    []refparse.Book `yaml:"books,omitempty"`
	Parser   ParserConfig    `yaml:"parser"`
	Provider ProviderConfig  `yaml:"provider"`
	Cache    CacheConfig     `yaml:"cache"`
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
}

// ParserConfig tunes reference parsing.
type ParserConfig struct {
	DotSeparator bool `yaml:"dot_separator"`
}

// Provider kinds.
const (
	ProviderNone   = "none"
	ProviderSQLite = "sqlite"
	ProviderHTTP   = "http"
)

// ProviderConfig selects and configures the content provider.
type ProviderConfig struct {
	Kind        string        `yaml:"kind"`
	Database    string        `yaml:"database,omitempty"`
	URL         string        `yaml:"url,omitempty"`
	XPath       string        `yaml:"xpath,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	Attempts    uint          `yaml:"attempts"`
	Concurrency int           `yaml:"concurrency"`
}

// CacheConfig configures the lookup cache. A zero TTL disables it.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// ServerConfig configures `versefinder serve`.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	RateLimit      float64  `yaml:"rate_limit"` // requests per second per client, 0 disables
	Burst          int      `yaml:"burst"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	MaxQueryBytes  int      `yaml:"max_query_bytes"`
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"` // IPs or CIDRs
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{DotSeparator: true},
		Provider: ProviderConfig{
			Kind:        ProviderSQLite,
			Database:    "versefinder.db",
			Timeout:     10 * time.Second,
			Attempts:    3,
			Concurrency: 4,
		},
		Cache: CacheConfig{
			TTL:        10 * time.Minute,
			MaxEntries: 1000,
		},
		Server: ServerConfig{
			Port:          8081,
			RateLimit:     10,
			Burst:         20,
			MaxQueryBytes: 4096,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.NewParse("YAML", "", err.Error())
	}

	cfg.Provider.URL = ResolveEnvVars(cfg.Provider.URL)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Provider.Kind {
	case ProviderNone, ProviderSQLite:
		if c.Provider.Kind == ProviderSQLite && c.Provider.Database == "" {
			return errors.NewValidation("provider.database", "required for the sqlite provider")
		}
	case ProviderHTTP:
		if c.Provider.URL == "" || c.Provider.XPath == "" {
			return errors.NewValidation("provider", "the http provider needs url and xpath")
		}
	default:
		return errors.NewValidation("provider.kind", fmt.Sprintf("unknown provider %q", c.Provider.Kind))
	}

	if c.Provider.Concurrency < 0 {
		return errors.NewValidation("provider.concurrency", "must not be negative")
	}
	if c.Cache.TTL < 0 || c.Cache.MaxEntries < 0 {
		return errors.NewValidation("cache", "ttl and max_entries must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewValidation("server.port", fmt.Sprintf("%d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 || c.Server.Burst < 0 {
		return errors.NewValidation("server.rate_limit", "must not be negative")
	}
	if _, err := server.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return errors.NewValidation("server.trusted_proxies", err.Error())
	}

	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// Registry builds a registry from Books, or the built-in one.
func (c *Config) Registry() (*refparse.Registry, error) {
	if len(c.Books) == 0 {
		return refparse.DefaultRegistry(), nil
	}
	return refparse.NewRegistry(c.Books...)
}

// ParseOptions returns the parser options this configuration selects.
func (c *Config) ParseOptions() refparse.Options {
	return refparse.Options{DotSeparator: c.Parser.DotSeparator}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration, including the built-in
// books, to path.
func WriteDefault(path string) error {
	cfg := Default()
	cfg.Books = refparse.DefaultBooks()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# versefinder configuration
# provider.url may reference environment variables as ${NAME}

`)
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}
