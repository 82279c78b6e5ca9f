// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// errNotRecording is returned by HALBackend commands outside Begin/End.
var errNotRecording = errors.New("renderer: backend is not recording")

// HALBackend plays recordings into HAL command buffers on a wgpu.Device.
//
// Barriers go through wgpu.CommandStream. Clears, draws and resolves become
// render passes over the cached views of their targets. Dispatches bind a
// compute pipeline built from the built-in shader, a uniform buffer holding
// the command's params and the input and output views. Blits draw a
// full-screen triangle that loads the source into the destination format.
//
// Pipelines live until Close. Uniform buffers and bind groups are freed once
// the GPU has finished the submission that used them.
type HALBackend struct {
	dev     *wgpu.Device
	shaders *wgpu.ShaderCache
	owned   bool // shaders was created by NewHALBackend

	stream *wgpu.CommandStream
	serial uint64

	compute map[string]*computePipeline
	blit    *blitPipeline
	cur     bindings
	retired []bindings

	renderPasses  int
	computePasses int
}

// computePipeline is a built-in compute shader ready to dispatch.
type computePipeline struct {
	layout      computeLayout
	groupLayout hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout
	pipeline    hal.ComputePipeline
}

// blitPipeline holds the blit layouts and one pipeline per target format.
type blitPipeline struct {
	module      hal.ShaderModule
	groupLayout hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout
	pipelines   map[gputypes.TextureFormat]hal.RenderPipeline
}

// bindings are the uniform buffers and bind groups one recording created.
type bindings struct {
	serial  uint64
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

// NewHALBackend creates a backend for dev. Shader modules are taken from
// shaders; when it is nil the backend creates its own cache and destroys it
// on Close.
func NewHALBackend(dev *wgpu.Device, shaders *wgpu.ShaderCache) *HALBackend {
	b := &HALBackend{dev: dev, shaders: shaders, compute: make(map[string]*computePipeline)}
	if shaders == nil {
		b.shaders = wgpu.NewShaderCache(dev)
		b.owned = true
	}
	return b
}

// Serial returns the submission serial of the last recording played back.
func (b *HALBackend) Serial() uint64 { return b.serial }

// Passes returns the number of render and compute passes encoded so far.
func (b *HALBackend) Passes() (render, compute int) {
	return b.renderPasses, b.computePasses
}

// Pipelines returns the number of compute and blit pipelines built so far.
func (b *HALBackend) Pipelines() (compute, blit int) {
	if b.blit != nil {
		blit = len(b.blit.pipelines)
	}
	return len(b.compute), blit
}

// Begin implements Backend. Bindings of completed submissions are freed.
func (b *HALBackend) Begin(label string) error {
	if b.stream != nil {
		return fmt.Errorf("renderer: begin %q while %q is recording", label, b.stream.Label())
	}
	b.reclaim(b.dev.CompletedSerial())
	s, err := b.dev.Begin(label)
	if err != nil {
		return err
	}
	b.stream = s
	return nil
}

// End implements Backend.
func (b *HALBackend) End() error {
	if b.stream == nil {
		return errNotRecording
	}
	s := b.stream
	b.stream = nil
	serial, err := s.Submit()
	if err != nil {
		b.destroy(b.cur)
		b.cur = bindings{}
		return err
	}
	b.serial = serial
	b.cur.serial = serial
	b.retired = append(b.retired, b.cur)
	b.cur = bindings{}
	return nil
}

// Abort implements Backend.
func (b *HALBackend) Abort() {
	if b.stream == nil {
		return
	}
	b.stream.Discard()
	b.stream = nil
	b.destroy(b.cur)
	b.cur = bindings{}
}

// Close waits for the last submission, then destroys the bindings, the
// pipelines and, when the backend created it, the shader cache.
func (b *HALBackend) Close() error {
	b.Abort()
	if b.serial > 0 {
		if err := b.dev.WaitSerial(b.serial); err != nil {
			return err
		}
	}
	b.reclaim(b.serial)

	dev := b.dev.HalDevice()
	for name, p := range b.compute {
		dev.DestroyComputePipeline(p.pipeline)
		dev.DestroyPipelineLayout(p.pipeLayout)
		dev.DestroyBindGroupLayout(p.groupLayout)
		delete(b.compute, name)
	}
	if b.blit != nil {
		for _, p := range b.blit.pipelines {
			dev.DestroyRenderPipeline(p)
		}
		dev.DestroyPipelineLayout(b.blit.pipeLayout)
		dev.DestroyBindGroupLayout(b.blit.groupLayout)
		b.blit = nil
	}
	if b.owned {
		b.shaders.Destroy()
	}
	return nil
}

// reclaim frees the bindings of submissions up to completed.
func (b *HALBackend) reclaim(completed uint64) {
	n := 0
	for _, r := range b.retired {
		if r.serial <= completed {
			b.destroy(r)
			continue
		}
		b.retired[n] = r
		n++
	}
	clear(b.retired[n:])
	b.retired = b.retired[:n]
}

func (b *HALBackend) destroy(r bindings) {
	dev := b.dev.HalDevice()
	for _, g := range r.groups {
		dev.DestroyBindGroup(g)
	}
	for _, buf := range r.buffers {
		dev.DestroyBuffer(buf)
	}
}

// Barrier implements Backend.
func (b *HALBackend) Barrier(ts []framegraph.Transition) {
	if b.stream == nil {
		return
	}
	b.stream.Transition(ts)
}

func (b *HALBackend) view(h framegraph.Handle) (hal.TextureView, error) {
	if b.stream == nil {
		return nil, errNotRecording
	}
	return b.dev.TextureView(h)
}

// Clear implements Backend.
func (b *HALBackend) Clear(c ClearCommand) error {
	v, err := b.view(c.Target)
	if err != nil {
		return err
	}
	desc := &hal.RenderPassDescriptor{Label: c.Pass + "_clear"}
	if c.Depth {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              v,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   c.Value.Depth,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: c.Value.Stencil,
		}
	} else {
		desc.ColorAttachments = []hal.RenderPassColorAttachment{{
			View:       v,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c.Value.Color,
		}}
	}
	b.renderPass(desc)
	return nil
}

// Draw implements Backend. The pass is opened with the draw's attachments;
// geometry is owned by the caller's scene and is not part of the recording.
func (b *HALBackend) Draw(c DrawCommand) error {
	desc := &hal.RenderPassDescriptor{Label: c.Pass}
	for _, h := range c.Color {
		v, err := b.view(h)
		if err != nil {
			return err
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:    v,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		})
	}
	if c.Depth.IsValid() {
		v, err := b.view(c.Depth)
		if err != nil {
			return err
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            v,
			DepthLoadOp:     gputypes.LoadOpLoad,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthReadOnly:   c.DepthReadOnly,
			StencilLoadOp:   gputypes.LoadOpLoad,
			StencilStoreOp:  gputypes.StoreOpStore,
			StencilReadOnly: c.DepthReadOnly,
		}
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return fmt.Errorf("renderer: draw %q has no attachments", c.Pass)
	}
	b.renderPass(desc)
	return nil
}

// Dispatch implements Backend.
func (b *HALBackend) Dispatch(c DispatchCommand) error {
	if b.stream == nil {
		return errNotRecording
	}
	p, err := b.computePipeline(c.Shader)
	if err != nil {
		return err
	}
	l := p.layout
	switch {
	case len(c.Inputs) != len(l.inputs):
		return fmt.Errorf("renderer: dispatch %q: %s reads %d inputs, got %d", c.Pass, c.Shader, len(l.inputs), len(c.Inputs))
	case c.Format != l.output:
		return fmt.Errorf("renderer: dispatch %q: %s writes %v, output is %v", c.Pass, c.Shader, l.output, c.Format)
	case uint64(len(c.Params)) != l.uniform:
		return fmt.Errorf("renderer: dispatch %q: %s takes %d bytes of params, got %d", c.Pass, c.Shader, l.uniform, len(c.Params))
	}

	ub, err := b.uniform(c.Pass, c.Params)
	if err != nil {
		return err
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(c.Inputs)+2)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Size: l.uniform},
	})
	for i, h := range c.Inputs {
		var v hal.TextureView
		if l.inputs[i].SampleType == gputypes.TextureSampleTypeDepth {
			v, err = b.dev.DepthView(h)
		} else {
			v, err = b.dev.TextureView(h)
		}
		if err != nil {
			return err
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i + 1), //nolint:gosec // G115: bounded by the layout
			Resource: gputypes.TextureViewBinding{TextureView: v.NativeHandle()},
		})
	}
	out, err := b.dev.TextureView(c.Output)
	if err != nil {
		return err
	}
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  uint32(len(c.Inputs) + 1), //nolint:gosec // G115: bounded by the layout
		Resource: gputypes.TextureViewBinding{TextureView: out.NativeHandle()},
	})
	group, err := b.bindGroup(c.Pass, p.groupLayout, entries)
	if err != nil {
		return err
	}

	pass := b.stream.Encoder().BeginComputePass(&hal.ComputePassDescriptor{Label: c.Pass})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Dispatch(c.X, c.Y, c.Z)
	pass.End()
	b.computePasses++
	return nil
}

// Resolve implements Backend.
func (b *HALBackend) Resolve(c ResolveCommand) error {
	src, err := b.view(c.Src)
	if err != nil {
		return err
	}
	dst, err := b.view(c.Dst)
	if err != nil {
		return err
	}
	b.renderPass(&hal.RenderPassDescriptor{
		Label: c.Pass + "_resolve",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:          src,
			ResolveTarget: dst,
			LoadOp:        gputypes.LoadOpLoad,
			StoreOp:       gputypes.StoreOpStore,
		}},
	})
	return nil
}

// Blit implements Backend. Src is bound as a texture and drawn into Dst with
// the blit pipeline for c.Format.
func (b *HALBackend) Blit(c BlitCommand) error {
	src, err := b.view(c.Src)
	if err != nil {
		return err
	}
	dst, err := b.view(c.Dst)
	if err != nil {
		return err
	}
	pipeline, err := b.blitPipeline(c.Format)
	if err != nil {
		return err
	}
	group, err := b.bindGroup(c.Pass, b.blit.groupLayout, []gputypes.BindGroupEntry{{
		Binding:  0,
		Resource: gputypes.TextureViewBinding{TextureView: src.NativeHandle()},
	}})
	if err != nil {
		return err
	}

	rp := b.stream.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
		Label: c.Pass + "_blit",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    dst,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, group, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
	b.renderPasses++
	return nil
}

func (b *HALBackend) renderPass(desc *hal.RenderPassDescriptor) {
	rp := b.stream.Encoder().BeginRenderPass(desc)
	rp.End()
	b.renderPasses++
}

// uniform creates a uniform buffer holding params for the current recording.
func (b *HALBackend) uniform(pass string, params []byte) (hal.Buffer, error) {
	buf, err := b.dev.HalDevice().CreateBuffer(&hal.BufferDescriptor{
		Label: pass + "_params",
		Size:  uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create params buffer for %q: %w", pass, err)
	}
	b.cur.buffers = append(b.cur.buffers, buf)
	if err := b.dev.HalQueue().WriteBuffer(buf, 0, params); err != nil {
		return nil, fmt.Errorf("renderer: write params for %q: %w", pass, err)
	}
	return buf, nil
}

// bindGroup creates a bind group freed with the current recording.
func (b *HALBackend) bindGroup(pass string, layout hal.BindGroupLayout, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
	g, err := b.dev.HalDevice().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   pass,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create bind group for %q: %w", pass, err)
	}
	b.cur.groups = append(b.cur.groups, g)
	return g, nil
}

// computePipeline returns the pipeline of the built-in compute shader name,
// building it on first use.
func (b *HALBackend) computePipeline(name string) (*computePipeline, error) {
	if p, ok := b.compute[name]; ok {
		return p, nil
	}
	src, err := ShaderSource(name)
	if err != nil {
		return nil, err
	}
	l, ok := computeLayouts[name]
	if !ok {
		return nil, fmt.Errorf("renderer: %q is not a compute shader", name)
	}
	module, err := b.shaders.Module(name, src)
	if err != nil {
		return nil, err
	}

	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(l.inputs)+2)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: l.uniform},
	})
	for i := range l.inputs {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i + 1), //nolint:gosec // G115: small table
			Visibility: gputypes.ShaderStageCompute,
			Texture:    &l.inputs[i],
		})
	}
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    uint32(len(l.inputs) + 1), //nolint:gosec // G115: small table
		Visibility: gputypes.ShaderStageCompute,
		StorageTexture: &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        l.output,
			ViewDimension: gputypes.TextureViewDimension2D,
		},
	})

	dev := b.dev.HalDevice()
	groupLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s bind group layout: %w", name, err)
	}
	pipeLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{groupLayout},
	})
	if err != nil {
		dev.DestroyBindGroupLayout(groupLayout)
		return nil, fmt.Errorf("renderer: create %s pipeline layout: %w", name, err)
	}
	pipeline, err := dev.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   name,
		Layout:  pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: computeEntryPoint},
	})
	if err != nil {
		dev.DestroyPipelineLayout(pipeLayout)
		dev.DestroyBindGroupLayout(groupLayout)
		return nil, fmt.Errorf("renderer: create %s pipeline: %w", name, err)
	}

	p := &computePipeline{layout: l, groupLayout: groupLayout, pipeLayout: pipeLayout, pipeline: pipeline}
	b.compute[name] = p
	return p, nil
}

// blitPipeline returns the blit pipeline rendering into format, building the
// shared layouts on first use.
func (b *HALBackend) blitPipeline(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	dev := b.dev.HalDevice()
	if b.blit == nil {
		module, err := b.shaders.Module(ShaderBlit, blitWGSL)
		if err != nil {
			return nil, err
		}
		groupLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "blit_bind_layout",
			Entries: []gputypes.BindGroupLayoutEntry{{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture:    &colorInput,
			}},
		})
		if err != nil {
			return nil, fmt.Errorf("renderer: create blit bind group layout: %w", err)
		}
		pipeLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            "blit_pipe_layout",
			BindGroupLayouts: []hal.BindGroupLayout{groupLayout},
		})
		if err != nil {
			dev.DestroyBindGroupLayout(groupLayout)
			return nil, fmt.Errorf("renderer: create blit pipeline layout: %w", err)
		}
		b.blit = &blitPipeline{
			module:      module,
			groupLayout: groupLayout,
			pipeLayout:  pipeLayout,
			pipelines:   make(map[gputypes.TextureFormat]hal.RenderPipeline),
		}
	}
	if p, ok := b.blit.pipelines[format]; ok {
		return p, nil
	}

	p, err := dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("blit_%v", format),
		Layout: b.blit.pipeLayout,
		Vertex: hal.VertexState{
			Module:     b.blit.module,
			EntryPoint: vertexEntryPoint,
		},
		Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     b.blit.module,
			EntryPoint: fragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create blit pipeline for %v: %w", format, err)
	}
	b.blit.pipelines[format] = p
	return p, nil
}

var _ Backend = (*HALBackend)(nil)
