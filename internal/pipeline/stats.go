package pipeline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	format     string
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of latency samples.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LatencySnapshot is the overall aggregate plus one per file format.
type LatencySnapshot struct {
	Overall  StatsSnapshot            `json:"overall"`
	ByFormat map[string]StatsSnapshot `json:"by_format"`
}

// LatencyStats tracks recent per-document processing latencies. Samples
// older than maxAge are dropped, and at most maxSamples are kept.
type LatencyStats struct {
	mu         sync.Mutex
	samples    []sample
	maxAge     time.Duration
	maxSamples int
}

func NewLatencyStats(maxAge time.Duration, maxSamples int) *LatencyStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	return &LatencyStats{
		samples:    make([]sample, 0, 256),
		maxAge:     maxAge,
		maxSamples: maxSamples,
	}
}

func (s *LatencyStats) Record(format string, d time.Duration) {
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.samples) >= s.maxSamples {
		n := copy(s.samples, s.samples[len(s.samples)-s.maxSamples+1:])
		s.samples = s.samples[:n]
	}
	s.samples = append(s.samples, sample{
		timestamp:  now,
		format:     format,
		durationMs: durationMs,
	})
}

func (s *LatencyStats) Snapshot() LatencySnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	snap := LatencySnapshot{ByFormat: map[string]StatsSnapshot{}}
	if len(s.samples) == 0 {
		return snap
	}

	all := make([]int64, 0, len(s.samples))
	byFormat := make(map[string][]int64)
	for _, sm := range s.samples {
		all = append(all, sm.durationMs)
		byFormat[sm.format] = append(byFormat[sm.format], sm.durationMs)
	}
	snap.Overall = aggregate(all)
	for format, values := range byFormat {
		snap.ByFormat[format] = aggregate(values)
	}
	return snap
}

func aggregate(values []int64) StatsSnapshot {
	var sum int64
	for _, v := range values {
		sum += v
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (s *LatencyStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
