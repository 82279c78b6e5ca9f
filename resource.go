// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// Resource is a texture or buffer tracked by a FrameGraph for one frame.
//
// Graph-owned resources receive their handle from the pool during Build;
// imported resources carry the caller's handle from registration on and are
// never released or destroyed by the graph. A *Resource is valid until the
// frame it belongs to is cleaned up by Render or Reset.
type Resource struct {
	id       ResourceID
	kind     Kind
	tex      TextureDesc
	buf      BufferDesc
	handle   Handle
	imported bool

	// state is the access state after the last pass built so far.
	state Access

	resolved bool
	touched  bool  // a pass has used it this frame
	lastUse  int   // traversal position of the last pass using it, -1 if unused
	held     int32 // index into FrameGraph.held, -1 if not pool-backed
	creator  int32 // index of the pass that created it, -1 if registered by the frontend
}

// ID returns the resource identifier.
func (r *Resource) ID() ResourceID { return r.id }

// Kind returns whether the resource is a texture or a buffer.
func (r *Resource) Kind() Kind { return r.kind }

// TextureDesc returns the texture descriptor. It is the zero value for buffers.
func (r *Resource) TextureDesc() TextureDesc { return r.tex }

// BufferDesc returns the buffer descriptor. It is the zero value for textures.
func (r *Resource) BufferDesc() BufferDesc { return r.buf }

// Handle returns the physical handle, or InvalidHandle for a graph-owned
// resource that has not been resolved by Build yet.
func (r *Resource) Handle() Handle { return r.handle }

// Imported reports whether the resource is externally owned.
func (r *Resource) Imported() bool { return r.imported }

// Resolved reports whether the resource has physical backing.
func (r *Resource) Resolved() bool { return r.resolved }

// State returns the access state the resource is in after the passes built
// so far. After Build it is the state the frame leaves the resource in.
func (r *Resource) State() Access { return r.state }

// Init returns the initial-state policy from the descriptor.
func (r *Resource) Init() InitState {
	if r.kind == KindBuffer {
		return r.buf.Init
	}
	return r.tex.Init
}

// String implements fmt.Stringer.
func (r *Resource) String() string {
	owner := "owned"
	if r.imported {
		owner = "imported"
	}
	if r.kind == KindBuffer {
		return fmt.Sprintf("%s %q (%s, %s)", r.kind, r.id, r.buf, owner)
	}
	return fmt.Sprintf("%s %q (%s, %s)", r.kind, r.id, r.tex, owner)
}

// compatible reports whether an existing registration can stand for a new
// one of the same ID.
func (r *Resource) compatible(kind Kind, tex TextureDesc, buf BufferDesc) bool {
	if r.kind != kind {
		return false
	}
	if kind == KindTexture {
		return r.tex.Compatible(tex)
	}
	return r.buf.Compatible(buf)
}
