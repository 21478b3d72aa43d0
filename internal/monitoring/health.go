// Package monitoring provides health checks and submission counters for the
// landing site.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/kasefra/landing/internal/logging"
	"github.com/kasefra/landing/internal/version"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string                 `json:"name"`
	Status      HealthStatus           `json:"status"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Critical    bool                   `json:"critical"`
}

// HealthChecker defines the interface for health check functions
type HealthChecker interface {
	Check(ctx context.Context) HealthCheck
	Name() string
	IsCritical() bool
}

// HealthCheckFunc is a function that implements HealthChecker
type HealthCheckFunc struct {
	name     string
	checkFn  func(ctx context.Context) HealthCheck
	critical bool
}

func (h *HealthCheckFunc) Check(ctx context.Context) HealthCheck {
	return h.checkFn(ctx)
}

func (h *HealthCheckFunc) Name() string {
	return h.name
}

func (h *HealthCheckFunc) IsCritical() bool {
	return h.critical
}

// NewHealthCheckFunc creates a new health check function
func NewHealthCheckFunc(
	name string,
	critical bool,
	checkFn func(ctx context.Context) HealthCheck,
) *HealthCheckFunc {
	return &HealthCheckFunc{
		name:     name,
		checkFn:  checkFn,
		critical: critical,
	}
}

// HealthMonitor runs the registered checks on demand.
type HealthMonitor struct {
	checks      map[string]HealthChecker
	mutex       sync.RWMutex
	logger      logging.Logger
	timeout     time.Duration
	environment string
	started     time.Time
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status      HealthStatus           `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version,omitempty"`
	Uptime      time.Duration          `json:"uptime"`
	Checks      map[string]HealthCheck `json:"checks"`
	Summary     HealthSummary          `json:"summary"`
	SystemInfo  SystemInfo             `json:"system_info"`
	Environment string                 `json:"environment,omitempty"`
}

// HealthSummary provides a summary of health check results
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
	Unknown   int `json:"unknown"`
	Critical  int `json:"critical"`
}

// SystemInfo provides system information
type SystemInfo struct {
	Hostname  string    `json:"hostname"`
	Platform  string    `json:"platform"`
	GoVersion string    `json:"go_version"`
	StartTime time.Time `json:"start_time"`
	PID       int       `json:"pid"`
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(logger logging.Logger, environment string) *HealthMonitor {
	return &HealthMonitor{
		checks:      make(map[string]HealthChecker),
		logger:      logger.WithComponent("health_monitor"),
		timeout:     5 * time.Second,
		environment: environment,
		started:     time.Now(),
	}
}

// RegisterCheck registers a health check
func (hm *HealthMonitor) RegisterCheck(checker HealthChecker) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.checks[checker.Name()] = checker
}

// RunChecks executes every registered check concurrently.
func (hm *HealthMonitor) RunChecks(ctx context.Context) map[string]HealthCheck {
	hm.mutex.RLock()
	checks := make([]HealthChecker, 0, len(hm.checks))
	for _, checker := range hm.checks {
		checks = append(checks, checker)
	}
	hm.mutex.RUnlock()

	var wg sync.WaitGroup
	resultsChan := make(chan HealthCheck, len(checks))

	for _, checker := range checks {
		wg.Add(1)
		go func(checker HealthChecker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
			defer cancel()

			start := time.Now()
			result := checker.Check(checkCtx)
			result.Name = checker.Name()
			result.Critical = checker.IsCritical()
			result.Duration = time.Since(start)
			result.LastChecked = time.Now()

			resultsChan <- result
		}(checker)
	}
	wg.Wait()
	close(resultsChan)

	results := make(map[string]HealthCheck, len(checks))
	for result := range resultsChan {
		results[result.Name] = result
		if result.Status != HealthStatusHealthy {
			hm.logger.Warn(ctx, nil, "Health check failed",
				"name", result.Name,
				"status", string(result.Status),
				"message", result.Message)
		}
	}
	return results
}

// GetHealth runs the checks and summarises them.
func (hm *HealthMonitor) GetHealth(ctx context.Context) HealthResponse {
	checks := hm.RunChecks(ctx)

	return HealthResponse{
		Status:      overallStatus(checks),
		Timestamp:   time.Now(),
		Version:     version.GetShortVersion(),
		Uptime:      time.Since(hm.started),
		Checks:      checks,
		Summary:     summarize(checks),
		SystemInfo:  hm.systemInfo(),
		Environment: hm.environment,
	}
}

func summarize(checks map[string]HealthCheck) HealthSummary {
	summary := HealthSummary{Total: len(checks)}

	for _, check := range checks {
		switch check.Status {
		case HealthStatusHealthy:
			summary.Healthy++
		case HealthStatusUnhealthy:
			summary.Unhealthy++
		case HealthStatusDegraded:
			summary.Degraded++
		default:
			summary.Unknown++
		}
		if check.Critical {
			summary.Critical++
		}
	}

	return summary
}

// overallStatus is unhealthy when a critical check is unhealthy, degraded
// when any other check is not healthy, healthy otherwise.
func overallStatus(checks map[string]HealthCheck) HealthStatus {
	status := HealthStatusHealthy
	for _, check := range checks {
		switch {
		case check.Critical && check.Status == HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case check.Status != HealthStatusHealthy:
			status = HealthStatusDegraded
		}
	}
	return status
}

// HTTPHandler returns an HTTP handler for health checks
func (hm *HealthMonitor) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")

		switch health.Status {
		case HealthStatusHealthy, HealthStatusDegraded:
			w.WriteHeader(http.StatusOK)
		case HealthStatusUnhealthy:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(health); err != nil {
			hm.logger.Error(r.Context(), err, "Failed to encode health response")
		}
	}
}

// EmailProviderHealthChecker reports degraded while EmailJS credentials are
// missing. The page still serves, but every submission will fail.
func EmailProviderHealthChecker(missing func() []string) HealthChecker {
	return NewHealthCheckFunc("email_provider", false, func(ctx context.Context) HealthCheck {
		if m := missing(); len(m) > 0 {
			return HealthCheck{
				Status:   HealthStatusDegraded,
				Message:  "EmailJS credentials are not configured",
				Metadata: map[string]interface{}{"missing": m},
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "EmailJS credentials present",
		}
	})
}

// SubmissionHealthChecker degrades when most recent provider calls failed.
func SubmissionHealthChecker(m *SubmissionMetrics) HealthChecker {
	return NewHealthCheckFunc("submissions", false, func(ctx context.Context) HealthCheck {
		stats := m.Stats()
		check := HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "Submissions are being delivered",
			Metadata: map[string]interface{}{
				"succeeded": stats.Succeeded,
				"failed":    stats.Failed,
			},
		}
		if stats.Total() >= 5 && stats.Failed*2 > stats.Total() {
			check.Status = HealthStatusDegraded
			check.Message = fmt.Sprintf("%d of %d submissions failed", stats.Failed, stats.Total())
		}
		return check
	})
}

// GoroutineHealthChecker checks for goroutine leaks, which here usually
// mean websocket streams that were never released.
func GoroutineHealthChecker() HealthChecker {
	return NewHealthCheckFunc("goroutines", false, func(ctx context.Context) HealthCheck {
		goroutines := runtime.NumGoroutine()

		check := HealthCheck{
			Status:   HealthStatusHealthy,
			Message:  "Goroutine count is normal",
			Metadata: map[string]interface{}{"count": goroutines},
		}
		switch {
		case goroutines > 10000:
			check.Status = HealthStatusUnhealthy
			check.Message = fmt.Sprintf("Very high goroutine count: %d", goroutines)
		case goroutines > 1000:
			check.Status = HealthStatusDegraded
			check.Message = fmt.Sprintf("High goroutine count: %d", goroutines)
		}
		return check
	})
}

func (hm *HealthMonitor) systemInfo() SystemInfo {
	hostname, _ := os.Hostname()

	return SystemInfo{
		Hostname:  hostname,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
		StartTime: hm.started,
		PID:       os.Getpid(),
	}
}
