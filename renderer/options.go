// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// ErrInvalidOptions is wrapped by every Options validation error.
var ErrInvalidOptions = errors.New("renderer: invalid options")

// LightingMode selects how opaque geometry is lit.
type LightingMode uint8

const (
	// LightingForward shades opaque geometry while rasterizing it.
	LightingForward LightingMode = iota

	// LightingDeferred writes G-buffers, then shades them in a compute pass.
	LightingDeferred
)

// String returns the string representation of the lighting mode.
func (m LightingMode) String() string {
	switch m {
	case LightingForward:
		return "forward"
	case LightingDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseLightingMode parses "forward" or "deferred".
func ParseLightingMode(s string) (LightingMode, error) {
	switch s {
	case "forward":
		return LightingForward, nil
	case "deferred":
		return LightingDeferred, nil
	default:
		return 0, fmt.Errorf("%w: lighting mode %q", ErrInvalidOptions, s)
	}
}

// Options are the renderer settings read by views when they register their
// passes. They can change between frames.
type Options struct {
	Lighting     LightingMode
	MSAA         uint32 // samples per pixel: 1, 2, 4 or 8
	ZPrepass     bool
	Transparency bool
	PostProcess  bool
	Outline      bool
	ToolMode     bool
	Wireframe    bool

	// ShadowMaps is the number of shadow-casting lights per lit view.
	ShadowMaps    int
	ShadowMapSize uint32

	Width  uint32
	Height uint32

	ColorFormat  gputypes.TextureFormat // HDR scene color
	DepthFormat  gputypes.TextureFormat
	ShadowFormat gputypes.TextureFormat
	OutputFormat gputypes.TextureFormat // final target when the view does not import one

	// ZNear and ZFar are the camera clip planes depth is linearized with.
	// Exposure scales scene color before tone mapping. Zero selects the
	// default for each.
	ZNear    float32
	ZFar     float32
	Exposure float32
}

// Shading defaults used when the Options fields are zero.
const (
	DefaultZNear    = 0.1
	DefaultZFar     = 1000
	DefaultExposure = 1
)

// DefaultOptions returns forward lighting at 1280x720 with a depth prepass,
// transparency, post processing and one shadow map.
func DefaultOptions() Options {
	return Options{
		Lighting:      LightingForward,
		MSAA:          1,
		ZPrepass:      true,
		Transparency:  true,
		PostProcess:   true,
		ShadowMaps:    1,
		ShadowMapSize: 1024,
		Width:         1280,
		Height:        720,
		ColorFormat:   gputypes.TextureFormatRGBA16Float,
		DepthFormat:   gputypes.TextureFormatDepth24PlusStencil8,
		ShadowFormat:  gputypes.TextureFormatDepth32Float,
		OutputFormat:  gputypes.TextureFormatRGBA8Unorm,
		ZNear:         DefaultZNear,
		ZFar:          DefaultZFar,
		Exposure:      DefaultExposure,
	}
}

// Validate checks value ranges.
func (o Options) Validate() error {
	var errs []error
	if o.Lighting != LightingForward && o.Lighting != LightingDeferred {
		errs = append(errs, fmt.Errorf("%w: lighting %v", ErrInvalidOptions, o.Lighting))
	}
	switch o.MSAA {
	case 1, 2, 4, 8:
	default:
		errs = append(errs, fmt.Errorf("%w: msaa %d", ErrInvalidOptions, o.MSAA))
	}
	if o.Width == 0 || o.Height == 0 {
		errs = append(errs, fmt.Errorf("%w: resolution %dx%d", ErrInvalidOptions, o.Width, o.Height))
	}
	if o.ShadowMaps < 0 || o.ShadowMaps > MaxShadowMaps {
		errs = append(errs, fmt.Errorf("%w: %d shadow maps, max %d", ErrInvalidOptions, o.ShadowMaps, MaxShadowMaps))
	}
	if o.ShadowMaps > 0 && o.ShadowMapSize == 0 {
		errs = append(errs, fmt.Errorf("%w: shadow map size 0", ErrInvalidOptions))
	}
	if o.Lighting == LightingDeferred && o.ColorFormat != sceneColorFormat {
		errs = append(errs, fmt.Errorf("%w: deferred lighting writes %v color, got %v",
			ErrInvalidOptions, sceneColorFormat, o.ColorFormat))
	}
	if near, far := o.clipPlanes(); near < 0 || far <= near {
		errs = append(errs, fmt.Errorf("%w: clip planes %g..%g", ErrInvalidOptions, near, far))
	}
	if o.Exposure < 0 {
		errs = append(errs, fmt.Errorf("%w: exposure %g", ErrInvalidOptions, o.Exposure))
	}
	return errors.Join(errs...)
}

// clipPlanes returns ZNear and ZFar with zero fields defaulted.
func (o Options) clipPlanes() (near, far float32) {
	near, far = o.ZNear, o.ZFar
	if near == 0 {
		near = DefaultZNear
	}
	if far == 0 {
		far = DefaultZFar
	}
	return near, far
}

// exposure returns Exposure, defaulted when zero.
func (o Options) exposure() float32 {
	if o.Exposure == 0 {
		return DefaultExposure
	}
	return o.Exposure
}

// needsLinearDepth reports whether a pass after opaque reads linear depth.
func (o Options) needsLinearDepth() bool {
	return o.Outline || o.Transparency || o.PostProcess
}

// MaxShadowMaps bounds Options.ShadowMaps.
const MaxShadowMaps = 4

// Option configures a Renderer during creation.
type Option func(*rendererConfig)

type rendererConfig struct {
	logger   *slog.Logger
	metrics  framegraph.MetricsCollector
	budgetMB int
	aliasing bool
	backend  Backend
}

func defaultRendererConfig() rendererConfig {
	return rendererConfig{
		metrics:  framegraph.NoopMetricsCollector{},
		aliasing: true,
	}
}

// WithLogger sets the logger used by the renderer, its pool and graphs.
func WithLogger(l *slog.Logger) Option {
	return func(c *rendererConfig) {
		c.logger = l
	}
}

// WithMetrics sets the collector shared by the pool and every view graph.
func WithMetrics(m framegraph.MetricsCollector) Option {
	return func(c *rendererConfig) {
		if m == nil {
			m = framegraph.NoopMetricsCollector{}
		}
		c.metrics = m
	}
}

// WithBudget limits the transient pool, in megabytes.
func WithBudget(megabytes int) Option {
	return func(c *rendererConfig) {
		c.budgetMB = megabytes
	}
}

// WithAliasing controls intra-frame resource reuse in every view graph.
func WithAliasing(enabled bool) Option {
	return func(c *rendererConfig) {
		c.aliasing = enabled
	}
}

// WithBackend plays every recorded frame back to b after rendering.
func WithBackend(b Backend) Option {
	return func(c *rendererConfig) {
		c.backend = b
	}
}
