package common

import (
	"fmt"
	"sync"
	"time"
)

// Metrics accumulates decode throughput counters across one or more dive
// log decodes. All methods are safe for concurrent use so batch decoding
// can share one recorder.
type Metrics struct {
	mu      sync.Mutex
	start   time.Time
	end     time.Time
	bytes   int64
	dives   int64
	samples int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

// AddDive records one decoded dive log of the given size.
func (m *Metrics) AddDive(size int64) {
	m.mu.Lock()
	m.dives++
	if size > 0 {
		m.bytes += size
	}
	m.mu.Unlock()
}

// AddSamples records emitted sample values.
func (m *Metrics) AddSamples(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.samples += n
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration: m.elapsedLocked(),
		Bytes:    m.bytes,
		Dives:    m.dives,
		Samples:  m.samples,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration time.Duration
	Bytes    int64
	Dives    int64
	Samples  int64
}

func (s MetricsSnapshot) ThroughputBytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div := float64(unit)
	exp := 0
	for n := float64(b) / div; n >= unit && exp < 6; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.2f %s", float64(b)/div, prefixes[exp])
}
