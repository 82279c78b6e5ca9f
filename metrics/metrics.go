// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports framegraph pool and frame events to Prometheus.
//
// A Collector implements framegraph.MetricsCollector; pass it to
// framegraph.WithPoolMetrics and framegraph.WithMetrics, then register it
// with a prometheus.Registerer:
//
//	m := metrics.New()
//	m.MustRegister(prometheus.DefaultRegisterer)
//	pool := framegraph.NewPool(dev, framegraph.WithPoolMetrics(m))
//	fg := framegraph.New(pool, framegraph.WithMetrics(m))
package metrics

import (
	"time"

	"github.com/gogpu/framegraph"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "framegraph"

// Collector records framegraph events as Prometheus metrics.
type Collector struct {
	acquires       *prometheus.CounterVec
	releases       *prometheus.CounterVec
	allocatedBytes prometheus.Counter
	flushes        *prometheus.CounterVec
	flushedEntries prometheus.Counter
	flushLatency   prometheus.Histogram

	frames        *prometheus.CounterVec
	passes        *prometheus.GaugeVec
	skippedPasses *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	aliased       *prometheus.CounterVec
	phaseLatency  *prometheus.HistogramVec
}

var _ framegraph.MetricsCollector = (*Collector)(nil)

// New creates an unregistered Collector.
func New() *Collector {
	return &Collector{
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "acquires_total",
			Help:      "Pool acquires by resource kind and whether an existing entry was reused.",
		}, []string{"kind", "reused"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "releases_total",
			Help:      "Handles returned to the pool by resource kind.",
		}, []string{"kind"}),
		allocatedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "allocated_bytes_total",
			Help:      "Estimated bytes of physical resources created by the pool.",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "flushes_total",
			Help:      "Pool flushes by mode.",
		}, []string{"mode"}),
		flushedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "flushed_entries_total",
			Help:      "Pool entries destroyed or queued for destruction by flushes.",
		}),
		flushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "flush_duration_seconds",
			Help:      "Time spent in pool flushes, including GPU waits.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames rendered per graph.",
		}, []string{"graph"}),
		passes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "passes",
			Help:      "Passes registered in the last frame per graph.",
		}, []string{"graph"}),
		skippedPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_passes_total",
			Help:      "Passes skipped after a failed setup or contract violation.",
		}, []string{"graph"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Resource state transitions issued per graph.",
		}, []string{"graph"}),
		aliased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aliased_resources_total",
			Help:      "Resources backed by another resource freed earlier in the same frame.",
		}, []string{"graph"}),
		phaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent per frame phase.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~260ms
		}, []string{"graph", "phase"}),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.acquires, c.releases, c.allocatedBytes,
		c.flushes, c.flushedEntries, c.flushLatency,
		c.frames, c.passes, c.skippedPasses,
		c.transitions, c.aliased, c.phaseLatency,
	}
}

// Register registers every metric with r.
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, m := range c.collectors() {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister registers every metric with r and panics on error.
func (c *Collector) MustRegister(r prometheus.Registerer) {
	r.MustRegister(c.collectors()...)
}

// RecordAcquire implements framegraph.MetricsCollector.
func (c *Collector) RecordAcquire(kind framegraph.Kind, reused bool, sizeBytes uint64) {
	if reused {
		c.acquires.WithLabelValues(kind.String(), "true").Inc()
		return
	}
	c.acquires.WithLabelValues(kind.String(), "false").Inc()
	c.allocatedBytes.Add(float64(sizeBytes))
}

// RecordRelease implements framegraph.MetricsCollector.
func (c *Collector) RecordRelease(kind framegraph.Kind) {
	c.releases.WithLabelValues(kind.String()).Inc()
}

// RecordFlush implements framegraph.MetricsCollector.
func (c *Collector) RecordFlush(count int, synchronous bool, d time.Duration) {
	mode := "deferred"
	if synchronous {
		mode = "sync"
	}
	c.flushes.WithLabelValues(mode).Inc()
	c.flushedEntries.Add(float64(count))
	c.flushLatency.Observe(d.Seconds())
}

// RecordFrame implements framegraph.MetricsCollector.
func (c *Collector) RecordFrame(graph string, stats framegraph.FrameStats) {
	c.frames.WithLabelValues(graph).Inc()
	c.passes.WithLabelValues(graph).Set(float64(stats.Passes))
	c.skippedPasses.WithLabelValues(graph).Add(float64(stats.SkippedPasses))
	c.transitions.WithLabelValues(graph).Add(float64(stats.Transitions))
	c.aliased.WithLabelValues(graph).Add(float64(stats.Aliased))
	c.phaseLatency.WithLabelValues(graph, "setup").Observe(stats.Setup.Seconds())
	c.phaseLatency.WithLabelValues(graph, "build").Observe(stats.Build.Seconds())
	c.phaseLatency.WithLabelValues(graph, "render").Observe(stats.Render.Seconds())
}
