package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expectErr bool
	}{
		{"valid https URL", "https://api.emailjs.com", false},
		{"valid http URL with port", "http://127.0.0.1:3000", false},
		{"valid URL with path", "https://example.com/api/v1.0", false},
		{"javascript scheme", "javascript:alert(1)", true},
		{"file scheme", "file:///etc/passwd", true},
		{"command injection", "https://example.com;rm -rf /", true},
		{"spaces", "https://example.com/a b", true},
		{"missing host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ask@kasefra.io"))
	assert.NoError(t, ValidateEmail("aisha@example.com"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-address"))
	assert.Error(t, ValidateEmail("Kasefra <ask@kasefra.io>"))
}

func TestValidateHost(t *testing.T) {
	assert.NoError(t, ValidateHost("localhost"))
	assert.NoError(t, ValidateHost("0.0.0.0"))
	assert.NoError(t, ValidateHost(""))

	assert.Error(t, ValidateHost("localhost;ls"))
	assert.Error(t, ValidateHost("local host"))
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"https://kasefra.io", "localhost:8080"}

	assert.NoError(t, ValidateOrigin("https://kasefra.io", allowed))
	assert.NoError(t, ValidateOrigin("http://localhost:8080", allowed))

	assert.Error(t, ValidateOrigin("", allowed))
	assert.Error(t, ValidateOrigin("https://evil.example", allowed))
	assert.Error(t, ValidateOrigin("ftp://kasefra.io", allowed))
}
