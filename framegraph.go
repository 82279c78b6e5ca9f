// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"log/slog"
)

// Phase is the position of a FrameGraph in its per-frame cycle.
type Phase uint8

const (
	// PhaseIdle accepts registrations and Setup.
	PhaseIdle Phase = iota

	// PhaseSetup follows Setup; passes have declared their resources.
	PhaseSetup

	// PhaseBuild follows Build; resources are resolved and transitions computed.
	PhaseBuild

	// PhaseRender is active while Render executes passes.
	PhaseRender
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseSetup:
		return "Setup"
	case PhaseBuild:
		return "Build"
	case PhaseRender:
		return "Render"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// heldResource is a pool handle acquired by this graph for the frame.
type heldResource struct {
	kind   Kind
	tex    TextureDesc
	buf    BufferDesc
	handle Handle
	state  Access
	owner  *Resource // nil once released for reuse within the frame
}

// FrameGraph schedules one view's passes for a frame.
//
// Each frame follows the cycle
//
//	registration (PushGroup, PopGroup, AddPass, Import*, Add*, SetOutput)
//	Setup  → passes declare their resources
//	Build  → resources are resolved through the Pool, transitions computed
//	Render → transitions and passes are issued to a CommandStream
//
// after which the graph is Idle again with an empty tree and table.
//
// A FrameGraph is driven by one goroutine. Several graphs may share a Pool
// and be set up and built concurrently, see SetupAndBuild.
type FrameGraph struct {
	pool *Pool
	opts graphOptions

	phase Phase
	table resourceTable
	tree  groupTree

	scopes []Scope
	passes []passRecord
	order  []int32

	output    ResourceID
	hasOutput bool
	result    Resource
	hasResult bool

	held []heldResource

	resized bool
	stats   FrameStats
	builder PassBuilder
	passCtx PassContext
}

// New creates a graph allocating its transient resources from pool.
func New(pool *Pool, opts ...Option) *FrameGraph {
	o := defaultGraphOptions()
	for _, opt := range opts {
		opt(&o)
	}
	g := &FrameGraph{
		pool:   pool,
		opts:   o,
		table:  newResourceTable(),
		tree:   newGroupTree(),
		scopes: []Scope{RootScope},
	}
	g.builder.g = g
	g.passCtx.g = g
	return g
}

func (g *FrameGraph) log() *slog.Logger { return loggerOrDefault(g.opts.logger) }

// Name returns the graph name.
func (g *FrameGraph) Name() string { return g.opts.name }

// Pool returns the pool the graph allocates from.
func (g *FrameGraph) Pool() *Pool { return g.pool }

// Phase returns the current phase.
func (g *FrameGraph) Phase() Phase { return g.phase }

// Stats returns the statistics of the last frame that reached Render.
func (g *FrameGraph) Stats() FrameStats { return g.stats }

// registering reports whether resource registration is open: while Idle,
// and during Setup so passes can create their resources.
func (g *FrameGraph) registering() bool {
	return g.phase == PhaseIdle || g.phase == PhaseSetup
}

// Scope returns the scope of the current group.
func (g *FrameGraph) Scope() Scope { return g.scopes[len(g.scopes)-1] }

// PushGroup opens a group named name under the current one. Passes and
// groups added until the matching PopGroup become its children.
func (g *FrameGraph) PushGroup(name string) error {
	if g.phase != PhaseIdle {
		return violation("", "PushGroup", ErrInvalidPhase)
	}
	g.tree.push(name)
	g.scopes = append(g.scopes, g.Scope().Child(name))
	return nil
}

// PopGroup closes the current group. Popping at the root is a contract
// violation and leaves the tree unchanged.
func (g *FrameGraph) PopGroup() error {
	if g.phase != PhaseIdle {
		return violation("", "PopGroup", ErrInvalidPhase)
	}
	if err := g.tree.pop(); err != nil {
		return violation("", "PopGroup", err)
	}
	g.scopes = g.scopes[:len(g.scopes)-1]
	return nil
}

// AddPass appends pass under the current group. Passes execute in
// depth-first registration order.
func (g *FrameGraph) AddPass(ctx RenderContext, pass Pass, name string) error {
	if g.phase != PhaseIdle {
		return violation(name, "AddPass", ErrInvalidPhase)
	}
	if pass == nil {
		return violation(name, "AddPass", ErrInvalidPass)
	}

	idx := len(g.passes)
	if idx < cap(g.passes) {
		g.passes = g.passes[:idx+1]
	} else {
		g.passes = append(g.passes, passRecord{})
	}
	rec := &g.passes[idx]
	rec.reset(name, ctx, pass, g.Scope())
	rec.node = g.tree.addPass(name, int32(idx)) //nolint:gosec // G115: pass count is small
	return nil
}

// ImportTexture binds an externally owned texture, such as a swap chain
// image, for this frame. state is the access state it is currently in. The
// graph never releases or destroys it.
func (g *FrameGraph) ImportTexture(id ResourceID, h Handle, desc TextureDesc, state Access) (*Resource, error) {
	return g.importResource("ImportTexture", id, KindTexture, h, desc, BufferDesc{}, state)
}

// ImportBuffer binds an externally owned buffer for this frame.
func (g *FrameGraph) ImportBuffer(id ResourceID, h Handle, desc BufferDesc, state Access) (*Resource, error) {
	return g.importResource("ImportBuffer", id, KindBuffer, h, TextureDesc{}, desc, state)
}

func (g *FrameGraph) importResource(op string, id ResourceID, kind Kind, h Handle, tex TextureDesc, buf BufferDesc, state Access) (*Resource, error) {
	if !g.registering() {
		return nil, violation("", op, ErrInvalidPhase)
	}
	if !h.IsValid() {
		return nil, violation("", op, fmt.Errorf("%w: %q imported with invalid handle", ErrResourceNotFound, id))
	}
	r, err := g.table.importResource(id, kind, h, tex, buf, state)
	if err != nil {
		return nil, violation("", op, fmt.Errorf("%w: %q", err, id))
	}
	return r, nil
}

// AddTexture registers a graph-owned texture. Its handle is resolved by
// Build. Registering an existing ID with a compatible descriptor returns the
// existing resource.
func (g *FrameGraph) AddTexture(id ResourceID, desc TextureDesc) (*Resource, error) {
	return g.add("AddTexture", id, KindTexture, desc, BufferDesc{})
}

// AddBuffer registers a graph-owned buffer.
func (g *FrameGraph) AddBuffer(id ResourceID, desc BufferDesc) (*Resource, error) {
	return g.add("AddBuffer", id, KindBuffer, TextureDesc{}, desc)
}

func (g *FrameGraph) add(op string, id ResourceID, kind Kind, tex TextureDesc, buf BufferDesc) (*Resource, error) {
	if !g.registering() {
		return nil, violation("", op, ErrInvalidPhase)
	}
	r, err := g.table.add(id, kind, tex, buf)
	if err != nil {
		return nil, violation("", op, fmt.Errorf("%w: %q", err, id))
	}
	return r, nil
}

// Texture looks up a texture registered this frame. A missing ID returns
// (nil, nil) unless mustExist is set.
func (g *FrameGraph) Texture(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := g.table.get(id, KindTexture, mustExist)
	if err != nil {
		return nil, violation("", "Texture", fmt.Errorf("%w: %q", err, id))
	}
	return r, nil
}

// Buffer looks up a buffer registered this frame.
func (g *FrameGraph) Buffer(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := g.table.get(id, KindBuffer, mustExist)
	if err != nil {
		return nil, violation("", "Buffer", fmt.Errorf("%w: %q", err, id))
	}
	return r, nil
}

// SetOutput designates the resource consumed after Render, typically by a
// present step. Build resolves it like any pass resource.
func (g *FrameGraph) SetOutput(id ResourceID) error {
	if !g.registering() {
		return violation("", "SetOutput", ErrInvalidPhase)
	}
	g.output = id
	g.hasOutput = id != ""
	return nil
}

// Output returns the resolved output of the frame. It is available from
// Build until the next Setup.
func (g *FrameGraph) Output() (Resource, bool) {
	return g.result, g.hasResult
}

// NotifyResized tells the graph the output resolution changed. The next
// Setup flushes unused pool entries without blocking.
func (g *FrameGraph) NotifyResized() {
	g.resized = true
}

// FlushTransientResources frees every pool entry not in use, including the
// backing of the previous frame's output, which must have been consumed.
// With synchronous set the call blocks until in-flight GPU work completes.
func (g *FrameGraph) FlushTransientResources(synchronous bool) error {
	if g.phase != PhaseIdle {
		return violation("", "FlushTransientResources", ErrInvalidPhase)
	}
	g.hasResult = false
	_, err := g.pool.Flush(synchronous)
	return err
}
