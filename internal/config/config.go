// Package config provides configuration management for the landing site
// using Viper for loading from files, environment variables, and
// command-line flags.
//
// Credentials for the email-delivery provider are resolved here and handed
// to the provider client as plain values; nothing downstream reads the
// environment. The variable names used by the earlier Next.js deployment
// (EMAILJS_* and NEXT_PUBLIC_EMAILJS_*) are bound alongside the KASEFRA_
// prefixed ones, and a .env file is loaded first when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/validation"
)

// EnvPrefix is the prefix for automatically bound environment variables.
const EnvPrefix = "KASEFRA"

// DefaultRecipient receives every lead.
const DefaultRecipient = "ask@kasefra.io"

type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server" mapstructure:"server"`
	Email   EmailConfig   `yaml:"email" json:"email" mapstructure:"email"`
	Site    SiteConfig    `yaml:"site" json:"site" mapstructure:"site"`
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port" json:"port" mapstructure:"port"`
	Host            string          `yaml:"host" json:"host" mapstructure:"host"`
	Environment     string          `yaml:"environment" json:"environment" mapstructure:"environment"`
	AllowedOrigins  []string        `yaml:"allowed_origins" json:"allowed_origins" mapstructure:"allowed_origins"`
	SessionTTL      time.Duration   `yaml:"session_ttl" json:"session_ttl" mapstructure:"session_ttl"`
	MaxSessions     int             `yaml:"max_sessions" json:"max_sessions" mapstructure:"max_sessions"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute" mapstructure:"requests_per_minute"`
	BurstSize         int  `yaml:"burst_size" json:"burst_size" mapstructure:"burst_size"`
}

type EmailConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	ServiceID    string        `yaml:"service_id" json:"service_id" mapstructure:"service_id"`
	TemplateID   string        `yaml:"template_id" json:"template_id" mapstructure:"template_id"`
	PublicKey    string        `yaml:"public_key" json:"public_key" mapstructure:"public_key"`
	AccessToken  string        `yaml:"access_token,omitempty" json:"access_token,omitempty" mapstructure:"access_token"`
	Recipient    string        `yaml:"recipient" json:"recipient" mapstructure:"recipient"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff" mapstructure:"retry_backoff"`
}

// MissingCredentials lists the provider identifiers that are not set.
func (e EmailConfig) MissingCredentials() []string {
	var missing []string
	if e.ServiceID == "" {
		missing = append(missing, "service_id")
	}
	if e.TemplateID == "" {
		missing = append(missing, "template_id")
	}
	if e.PublicKey == "" {
		missing = append(missing, "public_key")
	}
	return missing
}

type SiteConfig struct {
	Title        string `yaml:"title" json:"title" mapstructure:"title"`
	Description  string `yaml:"description" json:"description" mapstructure:"description"`
	ContactEmail string `yaml:"contact_email" json:"contact_email" mapstructure:"contact_email"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// envAliases binds legacy variable names to config keys, in lookup order.
var envAliases = map[string][]string{
	"email.service_id":   {"KASEFRA_EMAIL_SERVICE_ID", "EMAILJS_SERVICE_ID", "NEXT_PUBLIC_EMAILJS_SERVICE_ID"},
	"email.template_id":  {"KASEFRA_EMAIL_TEMPLATE_ID", "EMAILJS_TEMPLATE_ID", "NEXT_PUBLIC_EMAILJS_TEMPLATE_ID"},
	"email.public_key":   {"KASEFRA_EMAIL_PUBLIC_KEY", "EMAILJS_PUBLIC_KEY", "NEXT_PUBLIC_EMAILJS_PUBLIC_KEY"},
	"email.access_token": {"KASEFRA_EMAIL_ACCESS_TOKEN", "EMAILJS_PRIVATE_KEY"},
}

// SetDefaults registers default values and environment aliases on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.max_sessions", 10000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests_per_minute", 120)
	v.SetDefault("server.rate_limit.burst_size", 30)

	v.SetDefault("email.endpoint", "https://api.emailjs.com")
	v.SetDefault("email.service_id", "")
	v.SetDefault("email.template_id", "")
	v.SetDefault("email.public_key", "")
	v.SetDefault("email.access_token", "")
	v.SetDefault("email.recipient", DefaultRecipient)
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.max_attempts", 1)
	v.SetDefault("email.retry_backoff", 500*time.Millisecond)

	v.SetDefault("site.title", "Kasefra - UAE's Smart Personal Finance Management")
	v.SetDefault("site.description", "Transform your financial life with Kasefra - UAE's leading personal finance platform with seamless banking integration, smart categorization, and powerful insights.")
	v.SetDefault("site.contact_email", DefaultRecipient)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	for key, envs := range envAliases {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
}

// LoadDotEnv loads the first readable .env style file among paths into the
// process environment. Variables already set are not overridden. It returns
// the file used, or "" when none was found.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env.local", ".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Email.MaxAttempts < 1 {
		cfg.Email.MaxAttempts = 1
	}
	if cfg.Site.ContactEmail == "" {
		cfg.Site.ContactEmail = cfg.Email.Recipient
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	out.Email.PublicKey = logging.MaskSecret(c.Email.PublicKey)
	out.Email.AccessToken = logging.MaskSecret(c.Email.AccessToken)
	return out
}

func validateConfig(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateEmailConfig(&cfg.Email); err != nil {
		return fmt.Errorf("email config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS pick a port in tests
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		return err
	}

	switch config.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("unknown environment %q", config.Environment)
	}

	if config.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}

	if config.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive")
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerMinute <= 0 || config.RateLimit.BurstSize <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_minute and burst_size")
	}

	return nil
}

func validateEmailConfig(config *EmailConfig) error {
	if err := validation.ValidateURL(config.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if err := validation.ValidateEmail(config.Recipient); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if config.RetryBackoff < 0 {
		return fmt.Errorf("retry_backoff must not be negative")
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	switch config.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", config.Format)
	}
}
