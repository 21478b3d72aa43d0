package monitoring

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kasefra/landing/internal/contact"
)

// MetricType represents different types of metrics.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric represents a single metric measurement.
type Metric struct {
	Name    string            `json:"name"`
	Type    MetricType        `json:"type"`
	Value   float64           `json:"value"`
	Labels  map[string]string `json:"labels,omitempty"`
	Help    string            `json:"help,omitempty"`
	Buckets map[string]int64  `json:"buckets,omitempty"`
}

// DefaultHistogramBuckets are upper bounds in seconds for provider latency.
var DefaultHistogramBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Histogram tracks distribution of values.
type Histogram struct {
	bounds  []float64
	buckets map[float64]int64
	count   int64
	sum     float64
	mutex   sync.RWMutex
}

// NewHistogram creates a histogram with the given upper bounds.
func NewHistogram(bounds []float64) *Histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)

	hist := &Histogram{
		bounds:  sorted,
		buckets: make(map[float64]int64, len(sorted)),
	}
	for _, b := range sorted {
		hist.buckets[b] = 0
	}
	return hist
}

// Observe adds an observation to every bucket whose bound is >= value.
func (h *Histogram) Observe(value float64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.count++
	h.sum += value
	for _, b := range h.bounds {
		if value <= b {
			h.buckets[b]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// Sum returns the total of all observations.
func (h *Histogram) Sum() float64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.sum
}

// Buckets returns cumulative counts keyed by formatted upper bound.
func (h *Histogram) Buckets() map[string]int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := make(map[string]int64, len(h.buckets)+1)
	for b, n := range h.buckets {
		out[strconv.FormatFloat(b, 'f', -1, 64)] = n
	}
	out["+Inf"] = h.count
	return out
}

// SubmissionMetrics counts contact form outcomes. It implements
// contact.Recorder.
type SubmissionMetrics struct {
	succeeded int64
	failed    int64
	rejected  int64
	conflicts int64
	latency   *Histogram
	started   time.Time
}

// NewSubmissionMetrics creates an empty recorder.
func NewSubmissionMetrics() *SubmissionMetrics {
	return &SubmissionMetrics{
		latency: NewHistogram(DefaultHistogramBuckets),
		started: time.Now(),
	}
}

// RecordSubmission records one attempt that reached the provider.
func (m *SubmissionMetrics) RecordSubmission(outcome contact.Phase, duration time.Duration) {
	switch outcome {
	case contact.PhaseSuccess:
		atomic.AddInt64(&m.succeeded, 1)
	case contact.PhaseError:
		atomic.AddInt64(&m.failed, 1)
	default:
		return
	}
	m.latency.Observe(duration.Seconds())
}

// RecordRejected counts a submission refused before any outbound call
// because required fields were empty.
func (m *SubmissionMetrics) RecordRejected() {
	atomic.AddInt64(&m.rejected, 1)
}

// RecordConflict counts a submission refused because another was in flight.
func (m *SubmissionMetrics) RecordConflict() {
	atomic.AddInt64(&m.conflicts, 1)
}

// SubmissionStats is a point-in-time copy of the counters.
type SubmissionStats struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
	Conflicts int64 `json:"conflicts"`
}

// Total is the number of attempts that reached the provider.
func (s SubmissionStats) Total() int64 {
	return s.Succeeded + s.Failed
}

// Stats returns the current counters.
func (m *SubmissionMetrics) Stats() SubmissionStats {
	return SubmissionStats{
		Succeeded: atomic.LoadInt64(&m.succeeded),
		Failed:    atomic.LoadInt64(&m.failed),
		Rejected:  atomic.LoadInt64(&m.rejected),
		Conflicts: atomic.LoadInt64(&m.conflicts),
	}
}

// Collect returns the metrics in the order they are reported.
func (m *SubmissionMetrics) Collect() []Metric {
	stats := m.Stats()
	counter := func(outcome string, v int64) Metric {
		return Metric{
			Name:   "kasefra_contact_submissions_total",
			Type:   MetricTypeCounter,
			Value:  float64(v),
			Labels: map[string]string{"outcome": outcome},
			Help:   "Contact form submissions by outcome.",
		}
	}

	return []Metric{
		counter("success", stats.Succeeded),
		counter("error", stats.Failed),
		counter("rejected", stats.Rejected),
		counter("conflict", stats.Conflicts),
		{
			Name:    "kasefra_contact_provider_seconds",
			Type:    MetricTypeHistogram,
			Value:   m.latency.Sum(),
			Help:    "Time spent in the email provider call.",
			Buckets: m.latency.Buckets(),
		},
		{
			Name:  "kasefra_uptime_seconds",
			Type:  MetricTypeGauge,
			Value: time.Since(m.started).Seconds(),
		},
	}
}
