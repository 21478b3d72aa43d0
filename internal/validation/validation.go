// Package validation holds the input checks shared by configuration loading
// and the HTTP layer: provider endpoints, addresses, hosts and origins.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

var dangerousChars = []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r"}

// ValidateURL checks that rawURL is an absolute http or https URL with a host
// and no shell metacharacters.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	for _, char := range dangerousChars {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %s", char)
		}
	}

	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains spaces")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ValidateEmail checks that addr is a bare address ("user@host"), not a
// display-name form.
func ValidateEmail(addr string) error {
	if addr == "" {
		return fmt.Errorf("email address is empty")
	}

	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("invalid email address %q: %w", addr, err)
	}

	if parsed.Address != addr {
		return fmt.Errorf("email address %q must not include a display name", addr)
	}

	return nil
}

// ValidateHost rejects bind hosts containing shell metacharacters or whitespace.
func ValidateHost(host string) error {
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}
	if strings.ContainsAny(host, " \t") {
		return fmt.Errorf("host contains whitespace")
	}

	return nil
}

// ValidateOrigin checks a request Origin header against an allow list.
// Entries may be full origins ("https://kasefra.io") or bare hosts ("kasefra.io").
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
