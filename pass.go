// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"time"
)

// Pass is a unit of rendering work.
//
// Setup runs once per frame during FrameGraph.Setup and declares the
// resources the pass reads and writes. Execute runs during FrameGraph.Render,
// after the transitions the pass needs have been applied to cmd.
type Pass interface {
	Setup(b *PassBuilder) error
	Execute(cmd CommandStream, ctx *PassContext) error
}

// PassFunc adapts a pair of functions to the Pass interface.
// A nil SetupFunc declares nothing; a nil ExecuteFunc does nothing.
type PassFunc struct {
	SetupFunc   func(b *PassBuilder) error
	ExecuteFunc func(cmd CommandStream, ctx *PassContext) error
}

// Setup calls f.SetupFunc.
func (f PassFunc) Setup(b *PassBuilder) error {
	if f.SetupFunc == nil {
		return nil
	}
	return f.SetupFunc(b)
}

// Execute calls f.ExecuteFunc.
func (f PassFunc) Execute(cmd CommandStream, ctx *PassContext) error {
	if f.ExecuteFunc == nil {
		return nil
	}
	return f.ExecuteFunc(cmd, ctx)
}

// ShaderPass selects the shader variant a pass renders with.
type ShaderPass uint8

// Shader passes used by the renderer.
const (
	ShaderPassZOnly ShaderPass = iota
	ShaderPassForward
	ShaderPassDeferred
	ShaderPassTransparent
	ShaderPassOutline
)

// Mat4 is a column-major 4x4 matrix.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// RenderContext is the snapshot of view state a pass is registered with.
type RenderContext struct {
	View       Mat4
	Projection Mat4
	Width      uint32
	Height     uint32
	ShaderPass ShaderPass
	ToolMode   bool
	Raytracing bool
	Wireframe  bool
	AlphaTest  bool
}

// DefaultRenderContext returns a context with identity matrices.
func DefaultRenderContext() RenderContext {
	return RenderContext{View: Identity(), Projection: Identity()}
}

// Transition is a state change applied to a resource before a pass runs.
type Transition struct {
	Resource ResourceID
	Kind     Kind
	Handle   Handle
	Before   Access
	After    Access

	// FirstUse is set on the first transition of a resource in the frame;
	// the pass should apply the resource's InitState.
	FirstUse bool
}

// accessDecl is one resource use declared by a pass during Setup.
type accessDecl struct {
	res    *Resource
	access Access
}

// passRecord is a registered pass and what Build resolved for it.
type passRecord struct {
	name        string
	ctx         RenderContext
	pass        Pass
	scope       Scope
	node        nodeID
	decls       []accessDecl
	transitions []Transition
	skipped     bool
}

func (p *passRecord) reset(name string, ctx RenderContext, pass Pass, scope Scope) {
	p.name = name
	p.ctx = ctx
	p.pass = pass
	p.scope = scope
	p.node = noNode
	clear(p.decls)
	p.decls = p.decls[:0]
	clear(p.transitions)
	p.transitions = p.transitions[:0]
	p.skipped = false
}

// PassBuilder is handed to Pass.Setup to create and declare resources.
//
// Every declaration returns an error on contract violation; the builder also
// remembers the violations, so a pass that ignores them is still skipped.
type PassBuilder struct {
	g    *FrameGraph
	rec  *passRecord
	idx  int32 // index of rec in FrameGraph.passes
	errs []error
}

// Name returns the pass name.
func (b *PassBuilder) Name() string { return b.rec.name }

// RenderContext returns the context the pass was registered with.
func (b *PassBuilder) RenderContext() RenderContext { return b.rec.ctx }

// Scope returns the group scope the pass was registered under.
func (b *PassBuilder) Scope() Scope { return b.rec.scope }

// ID qualifies name with the pass's group scope.
func (b *PassBuilder) ID(name string) ResourceID { return b.rec.scope.ID(name) }

func (b *PassBuilder) fail(op string, err error) error {
	v := violation(b.rec.name, op, err)
	b.errs = append(b.errs, v)
	return v
}

// Texture looks up a texture registered earlier this frame.
func (b *PassBuilder) Texture(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := b.g.table.get(id, KindTexture, mustExist)
	if err != nil {
		return nil, b.fail("Texture", err)
	}
	return r, nil
}

// Buffer looks up a buffer registered earlier this frame.
func (b *PassBuilder) Buffer(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := b.g.table.get(id, KindBuffer, mustExist)
	if err != nil {
		return nil, b.fail("Buffer", err)
	}
	return r, nil
}

// UseTexture declares that the pass accesses texture id in state access.
func (b *PassBuilder) UseTexture(id ResourceID, access Access) error {
	return b.use("UseTexture", id, KindTexture, access)
}

// UseBuffer declares that the pass accesses buffer id in state access.
func (b *PassBuilder) UseBuffer(id ResourceID, access Access) error {
	return b.use("UseBuffer", id, KindBuffer, access)
}

func (b *PassBuilder) use(op string, id ResourceID, kind Kind, access Access) error {
	r, err := b.g.table.get(id, kind, true)
	if err != nil {
		return b.fail(op, err)
	}
	if !access.permits(r.kind, r.tex.Usage, r.buf.Usage) {
		return b.fail(op, ErrUsageNotDeclared)
	}
	for _, d := range b.rec.decls {
		if d.res != r {
			continue
		}
		if d.access != access {
			return b.fail(op, ErrConflictingAccess)
		}
		return nil
	}
	b.rec.decls = append(b.rec.decls, accessDecl{res: r, access: access})
	return nil
}

// create registers a graph-owned resource and declares its first access.
func (b *PassBuilder) create(op string, id ResourceID, kind Kind, tex TextureDesc, buf BufferDesc, access Access) error {
	n := b.g.table.len()
	r, err := b.g.table.add(id, kind, tex, buf)
	if err != nil {
		return b.fail(op, err)
	}
	if b.g.table.len() > n {
		r.creator = b.idx
	}
	return b.use(op, id, kind, access)
}

// CreateRenderTarget registers a color target and declares a write to it.
func (b *PassBuilder) CreateRenderTarget(id ResourceID, desc TextureDesc) error {
	return b.create("CreateRenderTarget", id, KindTexture, desc, BufferDesc{}, AccessRenderTarget)
}

// CreateDepthStencil registers a depth/stencil target and declares a write to it.
func (b *PassBuilder) CreateDepthStencil(id ResourceID, desc TextureDesc) error {
	return b.create("CreateDepthStencil", id, KindTexture, desc, BufferDesc{}, AccessDepthStencilWrite)
}

// CreateRWTexture registers a storage texture and declares a write to it.
func (b *PassBuilder) CreateRWTexture(id ResourceID, desc TextureDesc) error {
	return b.create("CreateRWTexture", id, KindTexture, desc, BufferDesc{}, AccessStorage)
}

// CreateRWBuffer registers a storage buffer and declares a write to it.
func (b *PassBuilder) CreateRWBuffer(id ResourceID, desc BufferDesc) error {
	return b.create("CreateRWBuffer", id, KindBuffer, TextureDesc{}, desc, AccessStorage)
}

// WriteRenderTarget declares a color attachment write.
func (b *PassBuilder) WriteRenderTarget(id ResourceID) error {
	return b.use("WriteRenderTarget", id, KindTexture, AccessRenderTarget)
}

// ReadRenderTarget declares a sampled read of a color target.
func (b *PassBuilder) ReadRenderTarget(id ResourceID) error {
	return b.use("ReadRenderTarget", id, KindTexture, AccessShaderRead)
}

// WriteDepthStencil declares a depth/stencil attachment write.
func (b *PassBuilder) WriteDepthStencil(id ResourceID) error {
	return b.use("WriteDepthStencil", id, KindTexture, AccessDepthStencilWrite)
}

// ReadDepthStencil declares a read-only depth/stencil access.
func (b *PassBuilder) ReadDepthStencil(id ResourceID) error {
	return b.use("ReadDepthStencil", id, KindTexture, AccessDepthStencilRead)
}

// WriteRWTexture declares a storage write.
func (b *PassBuilder) WriteRWTexture(id ResourceID) error {
	return b.use("WriteRWTexture", id, KindTexture, AccessStorage)
}

// ReadRWTexture declares a shader read of a storage texture.
func (b *PassBuilder) ReadRWTexture(id ResourceID) error {
	return b.use("ReadRWTexture", id, KindTexture, AccessShaderRead)
}

// WriteRWBuffer declares a storage buffer write.
func (b *PassBuilder) WriteRWBuffer(id ResourceID) error {
	return b.use("WriteRWBuffer", id, KindBuffer, AccessStorage)
}

// ReadRWBuffer declares a shader read of a storage buffer.
func (b *PassBuilder) ReadRWBuffer(id ResourceID) error {
	return b.use("ReadRWBuffer", id, KindBuffer, AccessShaderRead)
}

// ReadBuffer declares a read of a uniform or storage buffer.
func (b *PassBuilder) ReadBuffer(id ResourceID) error {
	return b.use("ReadBuffer", id, KindBuffer, AccessShaderRead)
}

// err returns the violations collected during the pass's setup.
func (b *PassBuilder) err() error { return errors.Join(b.errs...) }

// PassContext is handed to Pass.Execute.
type PassContext struct {
	g   *FrameGraph
	rec *passRecord
}

// Name returns the pass name.
func (c *PassContext) Name() string { return c.rec.name }

// Path returns the group path the pass was registered under.
func (c *PassContext) Path() string { return c.g.tree.path(c.rec.node) }

// RenderContext returns the context the pass was registered with.
func (c *PassContext) RenderContext() RenderContext { return c.rec.ctx }

// ID qualifies name with the pass's group scope.
func (c *PassContext) ID(name string) ResourceID { return c.rec.scope.ID(name) }

// Transitions returns the transitions applied before the pass.
func (c *PassContext) Transitions() []Transition { return c.rec.transitions }

// Texture looks up a texture. Its handle is resolved.
func (c *PassContext) Texture(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := c.g.table.get(id, KindTexture, mustExist)
	if err != nil {
		return nil, violation(c.rec.name, "Texture", err)
	}
	return r, nil
}

// Buffer looks up a buffer. Its handle is resolved.
func (c *PassContext) Buffer(id ResourceID, mustExist bool) (*Resource, error) {
	r, err := c.g.table.get(id, KindBuffer, mustExist)
	if err != nil {
		return nil, violation(c.rec.name, "Buffer", err)
	}
	return r, nil
}

// FrameStats summarises one frame of a graph.
type FrameStats struct {
	Passes        int
	SkippedPasses int
	Resources     int
	Transitions   int

	// PoolAcquires counts resources backed by a pool acquisition;
	// Aliased counts resources that reused a backing released earlier in
	// the same frame.
	PoolAcquires int
	Aliased      int

	Setup  time.Duration
	Build  time.Duration
	Render time.Duration
}
