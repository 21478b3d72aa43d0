package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, 10000, cfg.Server.MaxSessions)
	assert.True(t, cfg.Server.RateLimit.Enabled)

	assert.Equal(t, "https://api.emailjs.com", cfg.Email.Endpoint)
	assert.Equal(t, DefaultRecipient, cfg.Email.Recipient)
	assert.Equal(t, 10*time.Second, cfg.Email.Timeout)
	assert.Equal(t, 1, cfg.Email.MaxAttempts)
	assert.ElementsMatch(t, []string{"service_id", "template_id", "public_key"}, cfg.Email.MissingCredentials())

	assert.Equal(t, DefaultRecipient, cfg.Site.ContactEmail)
	assert.Contains(t, cfg.Site.Title, "Kasefra")
	assert.Equal(t, "localhost:8080", cfg.Address())
	assert.False(t, cfg.IsProduction())
}

func TestLoadCredentialAliases(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "prefixed variables",
			env: map[string]string{
				"KASEFRA_EMAIL_SERVICE_ID":  "service_1",
				"KASEFRA_EMAIL_TEMPLATE_ID": "template_1",
				"KASEFRA_EMAIL_PUBLIC_KEY":  "pk_1",
			},
		},
		{
			name: "original deployment variables",
			env: map[string]string{
				"NEXT_PUBLIC_EMAILJS_SERVICE_ID":  "service_1",
				"NEXT_PUBLIC_EMAILJS_TEMPLATE_ID": "template_1",
				"NEXT_PUBLIC_EMAILJS_PUBLIC_KEY":  "pk_1",
			},
		},
		{
			name: "short variables",
			env: map[string]string{
				"EMAILJS_SERVICE_ID":  "service_1",
				"EMAILJS_TEMPLATE_ID": "template_1",
				"EMAILJS_PUBLIC_KEY":  "pk_1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFrom(newViper())
			require.NoError(t, err)
			assert.Equal(t, "service_1", cfg.Email.ServiceID)
			assert.Equal(t, "template_1", cfg.Email.TemplateID)
			assert.Equal(t, "pk_1", cfg.Email.PublicKey)
			assert.Empty(t, cfg.Email.MissingCredentials())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".kasefra.yml")
	content := `
server:
  port: 9090
  host: 0.0.0.0
  environment: production
  allowed_origins:
    - https://kasefra.io
  session_ttl: 5m
email:
  service_id: service_file
  template_id: template_file
  public_key: pk_file
  timeout: 3s
  max_attempts: 0
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://kasefra.io"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, "service_file", cfg.Email.ServiceID)
	assert.Equal(t, 3*time.Second, cfg.Email.Timeout)
	assert.Equal(t, 1, cfg.Email.MaxAttempts, "attempts are clamped to at least one")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr string
	}{
		{"port out of range", "server.port", 70000, "port 70000"},
		{"dangerous host", "server.host", "localhost;rm", "dangerous character"},
		{"unknown environment", "server.environment", "staging", "unknown environment"},
		{"bad endpoint scheme", "email.endpoint", "ftp://api.emailjs.com", "endpoint"},
		{"bad recipient", "email.recipient", "nobody", "recipient"},
		{"zero timeout", "email.timeout", "0s", "timeout"},
		{"bad log format", "logging.format", "xml", "log format"},
		{"no session capacity", "server.max_sessions", 0, "max_sessions"},
		{"rate limit without burst", "server.rate_limit.burst_size", 0, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadUnmarshalError(t *testing.T) {
	v := newViper()
	v.Set("server.port", "not-a-port")

	_, err := LoadFrom(v)
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	v := newViper()
	v.Set("email.public_key", "pk_live_abcdef")
	v.Set("email.access_token", "tok")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	red := cfg.Redacted()
	assert.Equal(t, "****cdef", red.Email.PublicKey)
	assert.Equal(t, "****", red.Email.AccessToken)
	assert.Equal(t, "pk_live_abcdef", cfg.Email.PublicKey, "original is untouched")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("KASEFRA_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KASEFRA_TEST_DOTENV") })

	used := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	assert.Equal(t, envFile, used)
	assert.Equal(t, "from-file", os.Getenv("KASEFRA_TEST_DOTENV"))

	assert.Empty(t, LoadDotEnv(filepath.Join(dir, "nope.env")))
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("email:\n  service_id: first\n"), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	w := NewWatcher(v)
	var got []*Config
	w.OnChange(func(cfg *Config, err error) {
		require.NoError(t, err)
		got = append(got, cfg)
	})

	require.NoError(t, os.WriteFile(path, []byte("email:\n  service_id: second\n"), 0o600))
	require.NoError(t, v.ReadInConfig())

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.Empty(t, got, "chmod does not reload")

	w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Email.ServiceID)
}

func TestWatcherStartWithoutFile(t *testing.T) {
	assert.False(t, NewWatcher(newViper()).Start())
}
