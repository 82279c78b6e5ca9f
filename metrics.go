// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational events from pools and graphs.
// Implement it to feed a monitoring system; see package metrics for a
// Prometheus implementation.
//
// Methods may be called concurrently from several graphs sharing a pool.
type MetricsCollector interface {
	// RecordAcquire is called for every successful pool acquire.
	// reused is false when a new physical resource was created.
	RecordAcquire(kind Kind, reused bool, sizeBytes uint64)

	// RecordRelease is called when a handle is returned to the pool.
	RecordRelease(kind Kind)

	// RecordFlush is called after a flush or budget trim destroyed or
	// queued count entries.
	RecordFlush(count int, synchronous bool, duration time.Duration)

	// RecordFrame is called after a graph finished Render.
	RecordFrame(graph string, stats FrameStats)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAcquire(Kind, bool, uint64)     {}
func (NoopMetricsCollector) RecordRelease(Kind)                   {}
func (NoopMetricsCollector) RecordFlush(int, bool, time.Duration) {}
func (NoopMetricsCollector) RecordFrame(string, FrameStats)       {}

// BasicMetricsCollector keeps counters in memory.
// Useful in tests and for quick diagnostics without external dependencies.
type BasicMetricsCollector struct {
	Allocations    atomic.Int64
	Reuses         atomic.Int64
	Releases       atomic.Int64
	AllocatedBytes atomic.Int64
	Flushes        atomic.Int64
	FlushedEntries atomic.Int64
	Frames         atomic.Int64
	Transitions    atomic.Int64
	SkippedPasses  atomic.Int64
}

// RecordAcquire implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAcquire(_ Kind, reused bool, sizeBytes uint64) {
	if reused {
		b.Reuses.Add(1)
		return
	}
	b.Allocations.Add(1)
	b.AllocatedBytes.Add(int64(sizeBytes)) //nolint:gosec // G115: sizes are far below int64 max
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(Kind) {
	b.Releases.Add(1)
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(count int, _ bool, _ time.Duration) {
	b.Flushes.Add(1)
	b.FlushedEntries.Add(int64(count))
}

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(_ string, stats FrameStats) {
	b.Frames.Add(1)
	b.Transitions.Add(int64(stats.Transitions))
	b.SkippedPasses.Add(int64(stats.SkippedPasses))
}

var (
	_ MetricsCollector = NoopMetricsCollector{}
	_ MetricsCollector = (*BasicMetricsCollector)(nil)
)
