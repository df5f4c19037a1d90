// Package metrics tracks backend call latency per pipeline stage.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a sliding window of samples for percentile queries.
type LatencyTracker struct {
	mu         sync.Mutex
	samples    []int64 // microseconds
	maxSamples int
	sorted     bool
	failures   int64
}

// NewLatencyTracker creates a tracker holding at most windowSize samples.
func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &LatencyTracker{
		samples:    make([]int64, 0, windowSize),
		maxSamples: windowSize,
	}
}

// Record records one call. Failed calls count toward latency as well.
func (lt *LatencyTracker) Record(d time.Duration, failed bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if failed {
		lt.failures++
	}

	// Drop the oldest 10% at once to avoid shifting on every insert
	if len(lt.samples) >= lt.maxSamples {
		drop := lt.maxSamples / 10
		if drop < 1 {
			drop = 1
		}
		lt.samples = append(lt.samples[:0], lt.samples[drop:]...)
	}

	lt.samples = append(lt.samples, d.Microseconds())
	lt.sorted = false
}

// Stats returns latency statistics including percentiles.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	n := len(lt.samples)
	if n == 0 {
		return LatencyStats{Failures: lt.failures}
	}

	if !lt.sorted {
		sort.Slice(lt.samples, func(i, j int) bool { return lt.samples[i] < lt.samples[j] })
		lt.sorted = true
	}

	var sum int64
	for _, v := range lt.samples {
		sum += v
	}

	return LatencyStats{
		Samples:  n,
		Failures: lt.failures,
		Min:      micros(lt.samples[0]),
		Max:      micros(lt.samples[n-1]),
		Avg:      micros(sum / int64(n)),
		P50:      micros(lt.percentile(0.50)),
		P95:      micros(lt.percentile(0.95)),
		P99:      micros(lt.percentile(0.99)),
	}
}

// must be called with lock held and sorted data
func (lt *LatencyTracker) percentile(p float64) int64 {
	idx := int(float64(len(lt.samples)-1) * p)
	return lt.samples[idx]
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// LatencyStats holds latency statistics.
type LatencyStats struct {
	Samples  int
	Failures int64
	Min      time.Duration
	Max      time.Duration
	Avg      time.Duration
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
}

// ToMap renders the stats in milliseconds for JSON responses.
func (s LatencyStats) ToMap() map[string]any {
	return map[string]any{
		"samples":  s.Samples,
		"failures": s.Failures,
		"min_ms":   ms(s.Min),
		"max_ms":   ms(s.Max),
		"avg_ms":   ms(s.Avg),
		"p50_ms":   ms(s.P50),
		"p95_ms":   ms(s.P95),
		"p99_ms":   ms(s.P99),
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Registry holds one tracker per pipeline stage.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*LatencyTracker
	window   int
}

// NewRegistry creates an empty registry.
func NewRegistry(windowSize int) *Registry {
	return &Registry{
		trackers: make(map[string]*LatencyTracker),
		window:   windowSize,
	}
}

// Record records a call for stage.
func (r *Registry) Record(stage string, d time.Duration, failed bool) {
	r.mu.RLock()
	tracker, ok := r.trackers[stage]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[stage]; !ok {
			tracker = NewLatencyTracker(r.window)
			r.trackers[stage] = tracker
		}
		r.mu.Unlock()
	}

	tracker.Record(d, failed)
}

// Stats returns statistics for stage.
func (r *Registry) Stats(stage string) LatencyStats {
	r.mu.RLock()
	tracker, ok := r.trackers[stage]
	r.mu.RUnlock()

	if !ok {
		return LatencyStats{}
	}
	return tracker.Stats()
}

// Snapshot returns every stage rendered with ToMap.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]any, len(r.trackers))
	for stage, tracker := range r.trackers {
		out[stage] = tracker.Stats().ToMap()
	}
	return out
}
