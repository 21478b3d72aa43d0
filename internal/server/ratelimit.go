package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kasefra/landing/internal/config"
	"github.com/kasefra/landing/internal/errors"
	"github.com/kasefra/landing/internal/logging"
)

// bucketExpiry is how long an idle client's bucket is kept.
const bucketExpiry = 10 * time.Minute

// RateLimiter implements token bucket rate limiting keyed by client IP.
type RateLimiter struct {
	buckets     map[string]*TokenBucket
	bucketMutex sync.Mutex
	config      config.RateLimitConfig
	logger      logging.Logger
	now         func() time.Time
	stopOnce    sync.Once
	stopCleaner chan struct{}
}

// TokenBucket represents a token bucket for one client.
type TokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	lastAccess time.Time
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a limiter. Call Start to evict idle buckets in the
// background and Stop to end it.
func NewRateLimiter(cfg config.RateLimitConfig, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RateLimiter{
		buckets:     make(map[string]*TokenBucket),
		config:      cfg,
		logger:      logger.WithComponent("ratelimit"),
		now:         time.Now,
		stopCleaner: make(chan struct{}),
	}
}

// Check consumes one token for key if available.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	if !rl.config.Enabled {
		return RateLimitResult{Allowed: true, Remaining: rl.config.BurstSize}
	}

	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &TokenBucket{
			tokens:     float64(rl.config.BurstSize),
			capacity:   float64(rl.config.BurstSize),
			refillRate: float64(rl.config.RequestsPerMinute) / 60,
			lastRefill: now,
		}
		rl.buckets[key] = bucket
	}
	bucket.lastAccess = now

	return bucket.consume(now)
}

func (tb *TokenBucket) consume(now time.Time) RateLimitResult {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens += elapsed * tb.refillRate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(tb.tokens)}
	}

	wait := time.Duration((1 - tb.tokens) / tb.refillRate * float64(time.Second))
	return RateLimitResult{Allowed: false, RetryAfter: wait}
}

// Start evicts idle buckets every interval until Stop is called.
func (rl *RateLimiter) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.performCleanup()
			case <-rl.stopCleaner:
				return
			}
		}
	}()
}

func (rl *RateLimiter) performCleanup() int {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	removed := 0
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastAccess) > bucketExpiry {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleaner) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	return map[string]interface{}{
		"enabled":          rl.config.Enabled,
		"requests_per_min": rl.config.RequestsPerMinute,
		"burst_size":       rl.config.BurstSize,
		"active_buckets":   len(rl.buckets),
	}
}

// RateLimitMiddleware creates HTTP middleware for rate limiting
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			result := limiter.Check(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()+0.5))

				limiter.logger.Warn(r.Context(),
					errors.NewSecurityError(errors.ErrCodeRateLimited, "rate limit exceeded"),
					"Rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method)

				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
