// Package metrics records in-process timings for sage's hot paths: layout,
// connector routing, export rendering and backend fetches.
//
// Collection is on by default and can be switched off with SAGE_METRICS=0.
// Timings are accumulated with atomics, so any goroutine may record.
//
//	func route() {
//	    defer metrics.Timer(metrics.ConnectorRoute)()
//	    // ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/vanderheijden86/sage/pkg/debug"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("SAGE_METRICS") != "0")
}

// Enabled reports whether timings are being recorded.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric accumulates count, total, min and max for one operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats snapshots the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing m and returns the function that stops it. Use with
// defer.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		debug.LogTiming(m.name, d)
	}
}

// Registered metrics.
var (
	LayoutCompute  = newTimingMetric("layout_compute")
	ConnectorRoute = newTimingMetric("connector_route")
	ExportRender   = newTimingMetric("export_render")
	RoadmapFetch   = newTimingMetric("roadmap_fetch")
	ResourceSearch = newTimingMetric("resource_search")
	UIRender       = newTimingMetric("ui_render")
)

// All returns every registered metric.
func All() []*TimingMetric {
	return []*TimingMetric{
		LayoutCompute,
		ConnectorRoute,
		ExportRender,
		RoadmapFetch,
		ResourceSearch,
		UIRender,
	}
}

// ResetAll clears every registered metric.
func ResetAll() {
	for _, m := range All() {
		m.Reset()
	}
}

// AllStats returns stats for metrics that have at least one sample.
func AllStats() []TimingStats {
	var out []TimingStats
	for _, m := range All() {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	return out
}
