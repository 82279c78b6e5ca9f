// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultWaitTimeout bounds WaitSerial and Close.
const DefaultWaitTimeout = 5 * time.Second

var (
	// ErrNoHalProvider is returned by NewFromProvider when the provider does
	// not expose its HAL device and queue.
	ErrNoHalProvider = errors.New("wgpu: provider does not expose HAL types")

	// ErrTimeout is returned when the GPU does not reach a serial in time.
	ErrTimeout = errors.New("wgpu: GPU timeout")

	// ErrClosed is returned by operations on a closed Device.
	ErrClosed = errors.New("wgpu: device closed")
)

// halProvider is implemented by device providers that share their HAL
// objects (gogpu.App, ggcanvas hosts).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// inflight is a command buffer kept alive until its serial completes.
type inflight struct {
	serial uint64
	cmdBuf hal.CommandBuffer
}

// Device implements framegraph.Device on a HAL device and queue.
//
// Handles map to hal.Texture and hal.Buffer objects created by the device.
// Progress is tracked with one fence signalled to an increasing serial on
// every Submit, which gives the pool its timeline.
type Device struct {
	device hal.Device
	queue  hal.Queue
	fence  hal.Fence

	surfaceFormat gputypes.TextureFormat
	timeout       atomic.Int64 // time.Duration

	mu        sync.Mutex
	next      framegraph.Handle
	textures  map[framegraph.Handle]hal.Texture
	buffers   map[framegraph.Handle]hal.Buffer
	external  map[framegraph.Handle]hal.Texture
	views     map[framegraph.Handle]hal.TextureView
	depth     map[framegraph.Handle]hal.TextureView // depth-only views
	submitted uint64
	completed uint64
	pending   []inflight
	closed    bool
}

// NewDevice wraps a HAL device and queue. The caller keeps ownership of
// both; Close releases only what the Device created.
func NewDevice(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: nil device or queue")
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	d := &Device{
		device:        device,
		queue:         queue,
		fence:         fence,
		surfaceFormat: gputypes.TextureFormatBGRA8Unorm,
		textures:      make(map[framegraph.Handle]hal.Texture),
		buffers:       make(map[framegraph.Handle]hal.Buffer),
		external:      make(map[framegraph.Handle]hal.Texture),
		views:         make(map[framegraph.Handle]hal.TextureView),
		depth:         make(map[framegraph.Handle]hal.TextureView),
	}
	d.timeout.Store(int64(DefaultWaitTimeout))
	return d, nil
}

// NewFromProvider shares the GPU device of a host application. The provider
// must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHalProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHalProvider)
	}
	d, err := NewDevice(device, queue)
	if err != nil {
		return nil, err
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		d.surfaceFormat = f
	}
	return d, nil
}

// HalDevice returns the wrapped HAL device.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the wrapped HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// SurfaceFormat returns the presentation format of the host surface, or
// BGRA8Unorm when the device was not created from a provider.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surfaceFormat }

// SetWaitTimeout changes the timeout used by WaitSerial and Close. It is
// safe to call while another goroutine waits.
func (d *Device) SetWaitTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout.Store(int64(timeout))
	}
}

// WaitTimeout returns the timeout used by WaitSerial.
func (d *Device) WaitTimeout() time.Duration { return time.Duration(d.timeout.Load()) }

// CreateTexture creates a HAL texture for desc.
func (d *Device) CreateTexture(label string, desc *framegraph.TextureDesc) (framegraph.Handle, error) {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers,
		},
		MipLevelCount: desc.MipLevels,
		SampleCount:   desc.SampleCount,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return framegraph.InvalidHandle, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.device.DestroyTexture(tex)
		return framegraph.InvalidHandle, ErrClosed
	}
	d.next++
	d.textures[d.next] = tex
	return d.next, nil
}

// CreateBuffer creates a HAL buffer for desc.
func (d *Device) CreateBuffer(label string, desc *framegraph.BufferDesc) (framegraph.Handle, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return framegraph.InvalidHandle, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.device.DestroyBuffer(buf)
		return framegraph.InvalidHandle, ErrClosed
	}
	d.next++
	d.buffers[d.next] = buf
	return d.next, nil
}

// Destroy destroys the texture or buffer behind h. Unknown handles are
// ignored.
func (d *Device) Destroy(h framegraph.Handle) {
	d.mu.Lock()
	tex, isTex := d.textures[h]
	buf, isBuf := d.buffers[h]
	delete(d.textures, h)
	delete(d.buffers, h)
	delete(d.external, h)
	view, hasView := d.views[h]
	delete(d.views, h)
	depthView, hasDepthView := d.depth[h]
	delete(d.depth, h)
	d.mu.Unlock()

	if hasView {
		d.device.DestroyTextureView(view)
	}
	if hasDepthView {
		d.device.DestroyTextureView(depthView)
	}
	switch {
	case isTex:
		d.device.DestroyTexture(tex)
	case isBuf:
		d.device.DestroyBuffer(buf)
	}
}

// Texture returns the HAL texture behind h.
func (d *Device) Texture(h framegraph.Handle) (hal.Texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[h]; ok {
		return t, true
	}
	t, ok := d.external[h]
	return t, ok
}

// TextureView returns the default view of the texture behind h, creating it
// on first use. The view lives until the texture is destroyed or forgotten.
func (d *Device) TextureView(h framegraph.Handle) (hal.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked(h, d.views, gputypes.TextureAspectAll)
}

// DepthView returns a view of only the depth aspect of the texture behind h,
// as compute and fragment shaders sample it. It is cached like TextureView.
func (d *Device) DepthView(h framegraph.Handle) (hal.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked(h, d.depth, gputypes.TextureAspectDepthOnly)
}

func (d *Device) viewLocked(h framegraph.Handle, cache map[framegraph.Handle]hal.TextureView, aspect gputypes.TextureAspect) (hal.TextureView, error) {
	if v, ok := cache[h]; ok {
		return v, nil
	}
	tex, ok := d.textures[h]
	if !ok {
		tex, ok = d.external[h]
	}
	if !ok {
		return nil, fmt.Errorf("wgpu: texture view: unknown handle %d", h)
	}
	label := fmt.Sprintf("framegraph_view_%d", h)
	if aspect == gputypes.TextureAspectDepthOnly {
		label = fmt.Sprintf("framegraph_depth_view_%d", h)
	}
	v, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:  label,
		Aspect: aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture view %d: %w", h, err)
	}
	cache[h] = v
	return v, nil
}

// Buffer returns the HAL buffer behind h.
func (d *Device) Buffer(h framegraph.Handle) (hal.Buffer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[h]
	return b, ok
}

// ImportTexture registers a texture owned by the caller, such as a surface
// image, and returns a handle usable with FrameGraph.ImportTexture. Destroy
// on that handle only forgets the texture.
func (d *Device) ImportTexture(tex hal.Texture) framegraph.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.external[d.next] = tex
	return d.next
}
