package server

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasefra/landing/internal/config"
)

func TestIsValidOrigin(t *testing.T) {
	allowed := []string{"https://kasefra.io", "https://www.kasefra.io/"}

	tests := []struct {
		name    string
		origin  string
		referer string
		want    bool
	}{
		{name: "same host", origin: "http://example.com", want: true},
		{name: "same host different case", origin: "http://EXAMPLE.com", want: true},
		{name: "configured origin", origin: "https://kasefra.io", want: true},
		{name: "configured origin with trailing slash", origin: "https://www.kasefra.io", want: true},
		{name: "foreign origin", origin: "https://evil.example", want: false},
		{name: "non-http scheme", origin: "file://example.com", want: false},
		{name: "referer fallback", referer: "http://example.com/#contact", want: true},
		{name: "foreign referer", referer: "https://evil.example/page", want: false},
		{name: "no origin or referer", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/contact", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.want, isValidOrigin(req, allowed))
		})
	}
}

func TestBuildCSPHeader(t *testing.T) {
	csp := DefaultSecurityConfig().CSP

	header := buildCSPHeader(csp, "abc123")
	assert.Contains(t, header, "script-src 'self' 'nonce-abc123'")
	assert.Contains(t, header, "frame-ancestors 'none'")
	assert.NotContains(t, header, "upgrade-insecure-requests")

	// the shared config is not mutated by the nonce
	assert.Equal(t, []string{"'self'"}, csp.ScriptSrc)

	assert.NotContains(t, buildCSPHeader(csp, ""), "nonce-")
}

func TestBuildHSTSHeader(t *testing.T) {
	assert.Equal(t, "max-age=60", buildHSTSHeader(&HSTSConfig{MaxAge: 60}))
	assert.Equal(t, "max-age=60; includeSubDomains; preload",
		buildHSTSHeader(&HSTSConfig{MaxAge: 60, IncludeSubDomains: true, Preload: true}))
}

func TestSecurityConfigFromAppConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Environment = "production"
	cfg.Server.AllowedOrigins = []string{"https://kasefra.io"}

	sc := SecurityConfigFromAppConfig(cfg, nil)
	require.NotNil(t, sc.HSTS)
	assert.True(t, sc.HSTS.Preload)
	assert.True(t, sc.CSP.UpgradeInsecureRequests)
	assert.NotContains(t, sc.CSP.ConnectSrc, "ws:")
	assert.Equal(t, []string{"https://kasefra.io"}, sc.AllowedOrigins)

	cfg.Server.Environment = "development"
	sc = SecurityConfigFromAppConfig(cfg, nil)
	assert.Nil(t, sc.HSTS)
	assert.False(t, sc.CSP.UpgradeInsecureRequests)
}

func TestSecurityMiddleware(t *testing.T) {
	var seenNonce string
	handler := SecurityMiddleware(DefaultSecurityConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenNonce = GetNonceFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("GET passes without origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotEmpty(t, seenNonce)
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "'nonce-"+seenNonce+"'")
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
		assert.Contains(t, rec.Header().Get("Permissions-Policy"), "camera=()")
		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS only over TLS")
	})

	t.Run("nonce differs per request", func(t *testing.T) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		first := seenNonce
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEqual(t, first, seenNonce)
	})

	t.Run("HSTS over TLS", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	})

	t.Run("POST without origin is forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("POST from same host passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.Header.Set("Origin", "http://example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGetNonceFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetNonceFromContext(req.Context()))
}

func TestGetClientIP(t *testing.T) {
	tests := map[string]string{
		"192.0.2.1:1234":     "192.0.2.1",
		"[2001:db8::1]:8080": "2001:db8::1",
		"192.0.2.7":          "192.0.2.7",
		"2001:db8::2":        "2001:db8::2",
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		assert.Equal(t, want, getClientIP(req), remote)
	}
}
