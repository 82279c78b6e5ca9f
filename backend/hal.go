// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/renderer"
)

// HALPlayback is the BackendHAL playback. It owns the shader cache used by
// the compute and blit pipelines.
type HALPlayback struct {
	*renderer.HALBackend
	shaders *wgpu.ShaderCache
}

func init() {
	Register(BackendHAL, func(dev *wgpu.Device) (Playback, error) {
		if dev == nil {
			return nil, ErrBackendNotAvailable
		}
		return NewHALPlayback(dev), nil
	})
}

// NewHALPlayback creates a HAL playback with a fresh shader cache for dev.
func NewHALPlayback(dev *wgpu.Device) *HALPlayback {
	shaders := wgpu.NewShaderCache(dev)
	return &HALPlayback{HALBackend: renderer.NewHALBackend(dev, shaders), shaders: shaders}
}

// Name returns the backend identifier.
func (p *HALPlayback) Name() string { return BackendHAL }

// Shaders returns the shader cache.
func (p *HALPlayback) Shaders() *wgpu.ShaderCache { return p.shaders }

// Close waits for the last submission, then destroys the pipelines and the
// cached shader modules. A wait timeout leaves the pipelines alive, as the
// GPU may still use them.
func (p *HALPlayback) Close() {
	if err := p.HALBackend.Close(); err != nil {
		return
	}
	p.shaders.Destroy()
}
