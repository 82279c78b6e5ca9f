// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kind distinguishes textures from buffers.
type Kind uint8

const (
	// KindTexture is a texture resource.
	KindTexture Kind = iota

	// KindBuffer is a buffer resource.
	KindBuffer
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "Texture"
	case KindBuffer:
		return "Buffer"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// InitState is the policy applied to a resource's contents when a frame
// first touches it.
type InitState uint8

const (
	// InitClear clears the resource to its ClearValue.
	InitClear InitState = iota

	// InitPreserve keeps whatever the resource already contains.
	InitPreserve

	// InitDontCare leaves the contents undefined.
	InitDontCare
)

// String returns the string representation of the init state.
func (s InitState) String() string {
	switch s {
	case InitClear:
		return "Clear"
	case InitPreserve:
		return "Preserve"
	case InitDontCare:
		return "DontCare"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// LoadOp returns the attachment load operation matching the policy.
func (s InitState) LoadOp() gputypes.LoadOp {
	if s == InitClear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

// Default clear values, matching the optimized clear values most drivers
// use for fast clears.
var (
	DefaultClearColor   = gputypes.Color{R: 0, G: 0, B: 0, A: 1}
	DefaultClearDepth   = float32(1.0)
	DefaultClearStencil = uint32(0)
)

// ClearValue holds the values used when InitState is InitClear.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// DefaultClearValue returns the default clear color, depth and stencil.
func DefaultClearValue() ClearValue {
	return ClearValue{Color: DefaultClearColor, Depth: DefaultClearDepth, Stencil: DefaultClearStencil}
}

// TextureDesc describes a texture resource.
//
// Width, Height, Layers, MipLevels, SampleCount, Dimension, Format and Usage
// take part in pool matching. Init and Clear describe how a frame treats the
// contents and never prevent reuse.
type TextureDesc struct {
	Width       uint32
	Height      uint32
	Layers      uint32
	MipLevels   uint32
	SampleCount uint32
	Dimension   gputypes.TextureDimension
	Format      gputypes.TextureFormat
	Usage       gputypes.TextureUsage

	Init  InitState
	Clear ClearValue
}

// RenderTargetDesc returns a single-sample 2D color target that can also be
// sampled by later passes.
func RenderTargetDesc(width, height uint32, format gputypes.TextureFormat) TextureDesc {
	return TextureDesc{
		Width:       width,
		Height:      height,
		Layers:      1,
		MipLevels:   1,
		SampleCount: 1,
		Dimension:   gputypes.TextureDimension2D,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Init:        InitClear,
		Clear:       DefaultClearValue(),
	}
}

// DepthStencilDesc returns a 2D depth/stencil target that can be sampled.
func DepthStencilDesc(width, height uint32, format gputypes.TextureFormat) TextureDesc {
	return RenderTargetDesc(width, height, format)
}

// StorageTextureDesc returns a 2D texture writable from compute shaders.
func StorageTextureDesc(width, height uint32, format gputypes.TextureFormat) TextureDesc {
	d := RenderTargetDesc(width, height, format)
	d.Usage = gputypes.TextureUsageStorageBinding | gputypes.TextureUsageTextureBinding
	d.Init = InitDontCare
	return d
}

// normalize fills zero counts with their single-element defaults.
func (d TextureDesc) normalize() TextureDesc {
	if d.Layers == 0 {
		d.Layers = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.SampleCount == 0 {
		d.SampleCount = 1
	}
	return d
}

// Compatible reports whether a physical texture created for d can back o.
// Matching is exact: no field may differ, no superset usage is accepted.
func (d TextureDesc) Compatible(o TextureDesc) bool {
	a, b := d.normalize(), o.normalize()
	return a.Width == b.Width &&
		a.Height == b.Height &&
		a.Layers == b.Layers &&
		a.MipLevels == b.MipLevels &&
		a.SampleCount == b.SampleCount &&
		a.Dimension == b.Dimension &&
		a.Format == b.Format &&
		a.Usage == b.Usage
}

// SizeBytes estimates the memory footprint of the texture.
// Mip chains are approximated as 4/3 of the base level.
func (d TextureDesc) SizeBytes() uint64 {
	n := d.normalize()
	base := uint64(n.Width) * uint64(n.Height) * uint64(n.Layers) * uint64(n.SampleCount) * bytesPerPixel(n.Format)
	if n.MipLevels > 1 {
		return base * 4 / 3
	}
	return base
}

// String returns a compact description used in logs.
func (d TextureDesc) String() string {
	n := d.normalize()
	return fmt.Sprintf("Texture[%dx%dx%d mips=%d samples=%d fmt=%v usage=%#x]",
		n.Width, n.Height, n.Layers, n.MipLevels, n.SampleCount, n.Format, uint32(n.Usage))
}

// bytesPerPixel returns the size of one texel for the formats the graph
// commonly allocates. Unknown formats count as four bytes.
func bytesPerPixel(f gputypes.TextureFormat) uint64 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatR32Float:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// BufferDesc describes a buffer resource.
//
// Size, Stride and Usage take part in pool matching.
type BufferDesc struct {
	Size   uint64
	Stride uint32
	Usage  gputypes.BufferUsage

	Init InitState
}

// StorageBufferDesc returns a buffer of count elements of stride bytes that
// compute shaders can read and write.
func StorageBufferDesc(count uint64, stride uint32) BufferDesc {
	return BufferDesc{
		Size:   count * uint64(stride),
		Stride: stride,
		Usage:  gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		Init:   InitDontCare,
	}
}

// Compatible reports whether a physical buffer created for d can back o.
func (d BufferDesc) Compatible(o BufferDesc) bool {
	return d.Size == o.Size && d.Stride == o.Stride && d.Usage == o.Usage
}

// String returns a compact description used in logs.
func (d BufferDesc) String() string {
	return fmt.Sprintf("Buffer[size=%d stride=%d usage=%#x]", d.Size, d.Stride, uint32(d.Usage))
}
