// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Access is the state a resource must be in for a pass to use it.
type Access uint8

const (
	// AccessUndefined is the state of a freshly created resource.
	AccessUndefined Access = iota

	// AccessRenderTarget is color attachment output.
	AccessRenderTarget

	// AccessDepthStencilWrite is depth/stencil attachment with writes enabled.
	AccessDepthStencilWrite

	// AccessDepthStencilRead is depth/stencil attachment or sampling, read only.
	AccessDepthStencilRead

	// AccessShaderRead is sampled or read-only shader access.
	AccessShaderRead

	// AccessStorage is read/write shader access (UAV).
	AccessStorage

	// AccessCopySrc is the source of a copy.
	AccessCopySrc

	// AccessCopyDst is the destination of a copy.
	AccessCopyDst

	// AccessPresent is the state expected by the presentation engine.
	AccessPresent
)

// String returns the string representation of the access state.
func (a Access) String() string {
	switch a {
	case AccessUndefined:
		return "Undefined"
	case AccessRenderTarget:
		return "RenderTarget"
	case AccessDepthStencilWrite:
		return "DepthStencilWrite"
	case AccessDepthStencilRead:
		return "DepthStencilRead"
	case AccessShaderRead:
		return "ShaderRead"
	case AccessStorage:
		return "Storage"
	case AccessCopySrc:
		return "CopySrc"
	case AccessCopyDst:
		return "CopyDst"
	case AccessPresent:
		return "Present"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// Writes reports whether the access modifies the resource.
func (a Access) Writes() bool {
	switch a {
	case AccessRenderTarget, AccessDepthStencilWrite, AccessStorage, AccessCopyDst:
		return true
	default:
		return false
	}
}

// TextureUsage returns the texture usage flags that make the access legal.
// A descriptor needs at least one of them. Undefined and Present need none.
func (a Access) TextureUsage() gputypes.TextureUsage {
	switch a {
	case AccessRenderTarget, AccessDepthStencilWrite:
		return gputypes.TextureUsageRenderAttachment
	case AccessDepthStencilRead:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	case AccessShaderRead:
		return gputypes.TextureUsageTextureBinding
	case AccessStorage:
		return gputypes.TextureUsageStorageBinding
	case AccessCopySrc:
		return gputypes.TextureUsageCopySrc
	case AccessCopyDst:
		return gputypes.TextureUsageCopyDst
	default:
		return 0
	}
}

// BufferUsage returns the buffer usage flags that make the access legal.
// Accesses that make no sense for buffers return 0.
func (a Access) BufferUsage() gputypes.BufferUsage {
	switch a {
	case AccessShaderRead:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageStorage
	case AccessStorage:
		return gputypes.BufferUsageStorage
	case AccessCopySrc:
		return gputypes.BufferUsageCopySrc
	case AccessCopyDst:
		return gputypes.BufferUsageCopyDst
	default:
		return 0
	}
}

// permits reports whether a resource of kind k declared with the given usage
// flags can be accessed as a.
func (a Access) permits(k Kind, texUsage gputypes.TextureUsage, bufUsage gputypes.BufferUsage) bool {
	if k == KindBuffer {
		mask := a.BufferUsage()
		return mask != 0 && bufUsage&mask != 0
	}
	switch a {
	case AccessUndefined:
		return false
	case AccessPresent:
		return true
	}
	return texUsage&a.TextureUsage() != 0
}
