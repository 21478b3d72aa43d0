package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasefra/landing/internal/contact"
	"github.com/kasefra/landing/internal/logging"
)

func staticCheck(name string, critical bool, status HealthStatus) HealthChecker {
	return NewHealthCheckFunc(name, critical, func(ctx context.Context) HealthCheck {
		return HealthCheck{Status: status}
	})
}

func TestHealthCheckFunc(t *testing.T) {
	t.Run("create health check function", func(t *testing.T) {
		checkFn := NewHealthCheckFunc("test_check", true, func(ctx context.Context) HealthCheck {
			return HealthCheck{Status: HealthStatusHealthy, Message: "All good"}
		})

		assert.Equal(t, "test_check", checkFn.Name())
		assert.True(t, checkFn.IsCritical())
		assert.Equal(t, "All good", checkFn.Check(context.Background()).Message)
	})

	t.Run("monitor fills name, criticality and timing", func(t *testing.T) {
		hm := NewHealthMonitor(logging.Nop(), "test")
		hm.RegisterCheck(staticCheck("disk", true, HealthStatusHealthy))

		results := hm.RunChecks(context.Background())
		require.Contains(t, results, "disk")
		assert.Equal(t, "disk", results["disk"].Name)
		assert.True(t, results["disk"].Critical)
		assert.False(t, results["disk"].LastChecked.IsZero())
	})

	t.Run("checks see the monitor timeout", func(t *testing.T) {
		hm := NewHealthMonitor(logging.Nop(), "test")
		hm.timeout = 20 * time.Millisecond
		hm.RegisterCheck(NewHealthCheckFunc("slow", false, func(ctx context.Context) HealthCheck {
			select {
			case <-time.After(time.Second):
				return HealthCheck{Status: HealthStatusHealthy}
			case <-ctx.Done():
				return HealthCheck{Status: HealthStatusUnhealthy, Message: "Timeout"}
			}
		}))

		results := hm.RunChecks(context.Background())
		assert.Equal(t, HealthStatusUnhealthy, results["slow"].Status)
	})
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthChecker
		want   HealthStatus
	}{
		{"no checks", nil, HealthStatusHealthy},
		{"all healthy", []HealthChecker{
			staticCheck("a", true, HealthStatusHealthy),
			staticCheck("b", false, HealthStatusHealthy),
		}, HealthStatusHealthy},
		{"non-critical unhealthy degrades", []HealthChecker{
			staticCheck("a", true, HealthStatusHealthy),
			staticCheck("b", false, HealthStatusUnhealthy),
		}, HealthStatusDegraded},
		{"critical unhealthy fails", []HealthChecker{
			staticCheck("a", true, HealthStatusUnhealthy),
			staticCheck("b", false, HealthStatusDegraded),
		}, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthMonitor(logging.Nop(), "test")
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}
			health := hm.GetHealth(context.Background())
			assert.Equal(t, tt.want, health.Status)
			assert.Equal(t, len(tt.checks), health.Summary.Total)
			assert.Equal(t, "test", health.Environment)
		})
	}
}

func TestHTTPHandler(t *testing.T) {
	t.Run("healthy returns 200", func(t *testing.T) {
		hm := NewHealthMonitor(logging.Nop(), "test")
		hm.RegisterCheck(staticCheck("a", true, HealthStatusHealthy))

		rec := httptest.NewRecorder()
		hm.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, HealthStatusHealthy, body.Status)
		assert.Contains(t, body.Checks, "a")
	})

	t.Run("unhealthy returns 503", func(t *testing.T) {
		hm := NewHealthMonitor(logging.Nop(), "test")
		hm.RegisterCheck(staticCheck("a", true, HealthStatusUnhealthy))

		rec := httptest.NewRecorder()
		hm.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestEmailProviderHealthChecker(t *testing.T) {
	var missing []string
	check := EmailProviderHealthChecker(func() []string { return missing })
	assert.False(t, check.IsCritical())

	assert.Equal(t, HealthStatusHealthy, check.Check(context.Background()).Status)

	missing = []string{"service_id"}
	result := check.Check(context.Background())
	assert.Equal(t, HealthStatusDegraded, result.Status)
	assert.Equal(t, []string{"service_id"}, result.Metadata["missing"])
}

func TestSubmissionHealthChecker(t *testing.T) {
	m := NewSubmissionMetrics()
	check := SubmissionHealthChecker(m)

	for i := 0; i < 4; i++ {
		m.RecordSubmission(contact.PhaseError, time.Millisecond)
	}
	assert.Equal(t, HealthStatusHealthy, check.Check(context.Background()).Status, "too few samples")

	m.RecordSubmission(contact.PhaseError, time.Millisecond)
	assert.Equal(t, HealthStatusDegraded, check.Check(context.Background()).Status)

	for i := 0; i < 6; i++ {
		m.RecordSubmission(contact.PhaseSuccess, time.Millisecond)
	}
	assert.Equal(t, HealthStatusHealthy, check.Check(context.Background()).Status)
}

func TestGoroutineHealthChecker(t *testing.T) {
	result := GoroutineHealthChecker().Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Positive(t, result.Metadata["count"])
}
