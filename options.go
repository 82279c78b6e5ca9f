// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "log/slog"

// Option configures a FrameGraph during creation.
//
// Example:
//
//	pool := framegraph.NewPool(device)
//	fg := framegraph.New(pool,
//		framegraph.WithName("main-view"),
//		framegraph.WithLogger(logger),
//	)
type Option func(*graphOptions)

// graphOptions holds optional configuration for FrameGraph creation.
type graphOptions struct {
	name     string
	logger   *slog.Logger
	metrics  MetricsCollector
	aliasing bool
}

// defaultGraphOptions returns the default graph options.
func defaultGraphOptions() graphOptions {
	return graphOptions{
		name:     "framegraph",
		logger:   nil, // package logger
		metrics:  NoopMetricsCollector{},
		aliasing: true,
	}
}

// WithName sets the graph name used in logs and metrics.
func WithName(name string) Option {
	return func(o *graphOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a logger for this graph instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *graphOptions) {
		o.logger = l
	}
}

// WithMetrics sets the collector receiving per-frame statistics.
// A nil collector disables collection.
func WithMetrics(m MetricsCollector) Option {
	return func(o *graphOptions) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithAliasing controls intra-frame reuse. When enabled (the default), a
// graph-owned resource whose last reading or writing pass has been built is
// handed to later resources of the same frame with a compatible descriptor.
// Disabling it keeps every resource backed by its own allocation until the
// frame ends, which is useful when debugging captures.
func WithAliasing(enabled bool) Option {
	return func(o *graphOptions) {
		o.aliasing = enabled
	}
}

// PoolOption configures a Pool during creation.
type PoolOption func(*poolOptions)

// poolOptions holds optional configuration for Pool creation.
type poolOptions struct {
	logger      *slog.Logger
	metrics     MetricsCollector
	budgetBytes uint64
}

// defaultPoolOptions returns the default pool options.
func defaultPoolOptions() poolOptions {
	return poolOptions{
		metrics: NoopMetricsCollector{},
	}
}

// WithPoolLogger sets a logger for the pool instead of the package logger.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(o *poolOptions) {
		o.logger = l
	}
}

// WithPoolMetrics sets the collector receiving allocation and flush events.
func WithPoolMetrics(m MetricsCollector) PoolOption {
	return func(o *poolOptions) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithBudget limits the estimated memory held by the pool, in megabytes.
// When an allocation would exceed it, the least recently used entries that
// are not in use are evicted first. Zero means unlimited.
func WithBudget(megabytes int) PoolOption {
	return func(o *poolOptions) {
		if megabytes <= 0 {
			o.budgetBytes = 0
			return
		}
		o.budgetBytes = uint64(megabytes) * 1024 * 1024
	}
}
