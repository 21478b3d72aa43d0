package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/validation"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	CSP                 *CSPConfig
	HSTS                *HSTSConfig
	XFrameOptions       string
	XContentTypeNoSniff bool
	ReferrerPolicy      string
	PermissionsPolicy   []string
	EnableNonce         bool
	AllowedOrigins      []string
	Logger              logging.Logger
}

// CSPConfig holds Content Security Policy configuration
type CSPConfig struct {
	DefaultSrc              []string
	ScriptSrc               []string
	StyleSrc                []string
	ImgSrc                  []string
	ConnectSrc              []string
	FontSrc                 []string
	ObjectSrc               []string
	FrameAncestors          []string
	BaseURI                 []string
	FormAction              []string
	UpgradeInsecureRequests bool
}

// HSTSConfig holds HTTP Strict Transport Security configuration
type HSTSConfig struct {
	MaxAge            int
	IncludeSubDomains bool
	Preload           bool
}

type nonceKey struct{}

// DefaultSecurityConfig returns the policy for the landing page: own
// scripts only, Google Fonts for styles and fonts, websocket back to self.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc:     []string{"'self'"},
			ScriptSrc:      []string{"'self'"},
			StyleSrc:       []string{"'self'", "https://fonts.googleapis.com"},
			ImgSrc:         []string{"'self'", "data:"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			FontSrc:        []string{"'self'", "https://fonts.gstatic.com"},
			ObjectSrc:      []string{"'none'"},
			FrameAncestors: []string{"'none'"},
			BaseURI:        []string{"'self'"},
			FormAction:     []string{"'self'"},
		},
		HSTS: &HSTSConfig{
			MaxAge:            31536000,
			IncludeSubDomains: true,
		},
		XFrameOptions:       "DENY",
		XContentTypeNoSniff: true,
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   []string{"camera=()", "microphone=()", "geolocation=()", "payment=()"},
		EnableNonce:         true,
	}
}

// SecurityConfigFromAppConfig creates security config from application config
func SecurityConfigFromAppConfig(cfg *config.Config, logger logging.Logger) *SecurityConfig {
	sc := DefaultSecurityConfig()
	sc.AllowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	sc.Logger = logger

	if cfg.IsProduction() {
		sc.CSP.ConnectSrc = []string{"'self'", "wss:"}
		sc.CSP.UpgradeInsecureRequests = true
		sc.HSTS.Preload = true
	} else {
		sc.HSTS = nil
	}

	return sc
}

// SecurityMiddleware creates a security middleware with the given configuration
func SecurityMiddleware(secConfig *SecurityConfig) func(http.Handler) http.Handler {
	if secConfig == nil {
		secConfig = DefaultSecurityConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var nonce string
			if secConfig.EnableNonce {
				nonce = generateNonce()
				r = r.WithContext(context.WithValue(r.Context(), nonceKey{}, nonce))
			}

			applySecurityHeaders(w, r, secConfig, nonce)

			// Browsers always send Origin on cross-site state changes.
			if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
				if !isValidOrigin(r, secConfig.AllowedOrigins) {
					if secConfig.Logger != nil {
						secConfig.Logger.Warn(r.Context(),
							errors.NewSecurityError(errors.ErrCodeInvalidOrigin, "invalid origin in request"),
							"Security: Invalid origin",
							"origin", logging.SanitizeForLog(r.Header.Get("Origin")),
							"referer", logging.SanitizeForLog(r.Header.Get("Referer")),
							"ip", getClientIP(r))
					}
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetNonceFromContext returns the CSP nonce for the current request.
func GetNonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey{}).(string)
	return nonce
}

func generateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func applySecurityHeaders(w http.ResponseWriter, r *http.Request, config *SecurityConfig, nonce string) {
	if config.CSP != nil {
		w.Header().Set("Content-Security-Policy", buildCSPHeader(config.CSP, nonce))
	}

	if config.HSTS != nil && r.TLS != nil {
		w.Header().Set("Strict-Transport-Security", buildHSTSHeader(config.HSTS))
	}

	if config.XFrameOptions != "" {
		w.Header().Set("X-Frame-Options", config.XFrameOptions)
	}

	if config.XContentTypeNoSniff {
		w.Header().Set("X-Content-Type-Options", "nosniff")
	}

	if config.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
	}

	if len(config.PermissionsPolicy) > 0 {
		w.Header().Set("Permissions-Policy", strings.Join(config.PermissionsPolicy, ", "))
	}

	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
}

func buildCSPHeader(csp *CSPConfig, nonce string) string {
	var directives []string

	addDirective := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
		}
	}

	scriptSrc := csp.ScriptSrc
	if nonce != "" {
		scriptSrc = append(append([]string(nil), scriptSrc...), fmt.Sprintf("'nonce-%s'", nonce))
	}

	addDirective("default-src", csp.DefaultSrc)
	addDirective("script-src", scriptSrc)
	addDirective("style-src", csp.StyleSrc)
	addDirective("img-src", csp.ImgSrc)
	addDirective("connect-src", csp.ConnectSrc)
	addDirective("font-src", csp.FontSrc)
	addDirective("object-src", csp.ObjectSrc)
	addDirective("frame-ancestors", csp.FrameAncestors)
	addDirective("base-uri", csp.BaseURI)
	addDirective("form-action", csp.FormAction)

	if csp.UpgradeInsecureRequests {
		directives = append(directives, "upgrade-insecure-requests")
	}

	return strings.Join(directives, "; ")
}

func buildHSTSHeader(hsts *HSTSConfig) string {
	header := fmt.Sprintf("max-age=%d", hsts.MaxAge)

	if hsts.IncludeSubDomains {
		header += "; includeSubDomains"
	}

	if hsts.Preload {
		header += "; preload"
	}

	return header
}

// requestOrigin returns the Origin header, falling back to the scheme and
// host of the Referer.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// isValidOrigin accepts same-host requests and the configured origins.
func isValidOrigin(r *http.Request, allowedOrigins []string) bool {
	origin := requestOrigin(r)
	if origin == "" {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	trimmed := make([]string, len(allowedOrigins))
	for i, allowed := range allowedOrigins {
		trimmed[i] = strings.TrimRight(allowed, "/")
	}
	return validation.ValidateOrigin(origin, trimmed) == nil
}

// getClientIP extracts the client IP address from the request. chi's RealIP
// middleware has already folded X-Forwarded-For and X-Real-IP into
// RemoteAddr.
func getClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if strings.HasPrefix(ip, "[") {
		if end := strings.Index(ip, "]"); end != -1 {
			return ip[1:end]
		}
	}
	if colonPos := strings.LastIndex(ip, ":"); colonPos != -1 && strings.Count(ip, ":") == 1 {
		ip = ip[:colonPos]
	}
	return ip
}
