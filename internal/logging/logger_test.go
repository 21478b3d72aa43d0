package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("contact").
		With("session", "abc").
		Error(context.Background(), errors.New("provider down"), "Submission failed", "attempt", 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "Submission failed", entry["msg"])
	assert.Equal(t, "contact", entry["component"])
	assert.Equal(t, "provider down", entry["error"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, float64(1), entry["attempt"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, nil, "warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Output: &buf})
	_ = parent.With("child", true)

	parent.Info(context.Background(), "from parent")
	assert.NotContains(t, buf.String(), "child")
}

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeForLog("public_key=abc"))
	assert.Equal(t, "hello", SanitizeForLog("hello"))

	long := strings.Repeat("a", 1200)
	out := SanitizeForLog(long)
	assert.True(t, strings.HasSuffix(out, "...[TRUNCATED]"))
	assert.Len(t, out, 1000+len("...[TRUNCATED]"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("aisha@example.com"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
	assert.Empty(t, MaskEmail(""))
	assert.Equal(t, "Ö***@example.com", MaskEmail("Özlem@example.com"))
	assert.Equal(t, "李***@example.cn", MaskEmail("李雷@example.cn"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****wxyz", MaskSecret("abcdwxyz"))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Empty(t, MaskSecret(""))
	assert.Equal(t, "****éèêë", MaskSecret("clé-éèêë"))
}
