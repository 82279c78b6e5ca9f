// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// Pass names.
const (
	PassBackground          = "Background"
	PassDepthPrepass        = "DepthPrepass"
	PassForwardOpaque       = "ForwardOpaque"
	PassResolveMSAA         = "ResolveMSAA"
	PassDeferredOpaque      = "DeferredOpaque"
	PassDeferredLighting    = "DeferredLighting"
	PassResolveDeferredMSAA = "ResolveDeferredMSAA"
	PassLinearizeDepth      = "LinearizeDepth"
	PassForwardTransparent  = "ForwardTransparent"
	PassOutlineMask         = "OutlineMask"
	PassPostProcess         = "PostProcess"
	PassFinalBlit           = "FinalBlit"
	PassShadowMap           = "ShadowMap"
)

// Local resource names, qualified by the view's scope.
const (
	ResColor          = "Color"
	ResColorMSAA      = "ColorMSAA"
	ResDepth          = "Depth"
	ResGBufferAlbedo  = "GBufferAlbedo"
	ResGBufferNormal  = "GBufferNormal"
	ResGBufferPBR     = "GBufferPBR"
	ResLinearDepth    = "LinearDepth"
	ResOutlineMask    = "OutlineMask"
	ResPostProcessUAV = "PostProcessUAV"
	ResFinal          = "Final"
	ResTarget         = "Target"
	ResShadowMap      = "ShadowMap"
)

var gbufferNames = [...]string{ResGBufferAlbedo, ResGBufferNormal, ResGBufferPBR}

// frame is what a lit view's passes share for one frame: the options they
// were registered with and the resources other groups provide.
type frame struct {
	opts    Options
	shadows []framegraph.ResourceID
	target  framegraph.ResourceID // imported target, "" to create Final
}

func (f *frame) msaa() bool { return f.opts.MSAA > 1 }

// sceneColor is the local name the opaque passes render color into.
func (f *frame) sceneColor() string {
	if f.msaa() && f.opts.Lighting == LightingForward {
		return ResColorMSAA
	}
	return ResColor
}

func (f *frame) colorDesc() framegraph.TextureDesc {
	d := framegraph.RenderTargetDesc(f.opts.Width, f.opts.Height, f.opts.ColorFormat)
	d.Usage |= gputypes.TextureUsageStorageBinding
	return d
}

func (f *frame) colorMSAADesc() framegraph.TextureDesc {
	d := framegraph.RenderTargetDesc(f.opts.Width, f.opts.Height, f.opts.ColorFormat)
	d.SampleCount = f.opts.MSAA
	return d
}

func (f *frame) depthDesc() framegraph.TextureDesc {
	d := framegraph.DepthStencilDesc(f.opts.Width, f.opts.Height, f.opts.DepthFormat)
	d.SampleCount = f.opts.MSAA
	return d
}

func (f *frame) gbufferDesc(name string) framegraph.TextureDesc {
	format := gputypes.TextureFormatRGBA8Unorm
	if name == ResGBufferNormal {
		format = gputypes.TextureFormatRGBA16Float
	}
	d := framegraph.RenderTargetDesc(f.opts.Width, f.opts.Height, format)
	d.SampleCount = f.opts.MSAA
	return d
}

// readShadows declares sampled reads of every shadow map.
func (f *frame) readShadows(b *framegraph.PassBuilder) error {
	for _, id := range f.shadows {
		if err := b.ReadDepthStencil(id); err != nil {
			return err
		}
	}
	return nil
}

// encoder returns the stream as an Encoder. Streams that only take
// transitions get nothing recorded.
func encoder(cmd framegraph.CommandStream) (Encoder, bool) {
	enc, ok := cmd.(Encoder)
	return enc, ok
}

func handle(ctx *framegraph.PassContext, name string) (framegraph.Handle, error) {
	r, err := ctx.Texture(ctx.ID(name), true)
	if err != nil {
		return framegraph.InvalidHandle, err
	}
	return r.Handle(), nil
}

// clearCreated clears a texture the pass created when its descriptor asks
// for it.
func clearCreated(enc Encoder, ctx *framegraph.PassContext, id framegraph.ResourceID, depth bool) error {
	r, err := ctx.Texture(id, true)
	if err != nil {
		return err
	}
	if r.Init() == framegraph.InitClear {
		enc.Clear(ctx.Name(), r.Handle(), depth, r.TextureDesc().Clear)
	}
	return nil
}

// backgroundPass creates and clears the scene color and depth targets.
type backgroundPass struct{ f *frame }

func (p backgroundPass) Setup(b *framegraph.PassBuilder) error {
	switch {
	case p.f.opts.Lighting == LightingDeferred:
	case p.f.msaa():
		if err := b.CreateRenderTarget(b.ID(ResColorMSAA), p.f.colorMSAADesc()); err != nil {
			return err
		}
	default:
		if err := b.CreateRenderTarget(b.ID(ResColor), p.f.colorDesc()); err != nil {
			return err
		}
	}
	return b.CreateDepthStencil(b.ID(ResDepth), p.f.depthDesc())
}

func (p backgroundPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	if p.f.opts.Lighting == LightingForward {
		if err := clearCreated(enc, ctx, ctx.ID(p.f.sceneColor()), false); err != nil {
			return err
		}
	}
	return clearCreated(enc, ctx, ctx.ID(ResDepth), true)
}

// depthPrepass lays down depth before shading.
type depthPrepass struct{ f *frame }

func (p depthPrepass) Setup(b *framegraph.PassBuilder) error {
	return b.WriteDepthStencil(b.ID(ResDepth))
}

func (p depthPrepass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	depth, err := handle(ctx, ResDepth)
	if err != nil {
		return err
	}
	rc := ctx.RenderContext()
	enc.Draw(DrawCommand{Pass: ctx.Name(), ShaderPass: rc.ShaderPass, Depth: depth, Wireframe: rc.Wireframe})
	return nil
}

// declareDepth declares the opaque passes' depth access: read-only after a
// prepass, written otherwise.
func (f *frame) declareDepth(b *framegraph.PassBuilder) error {
	if f.opts.ZPrepass {
		return b.ReadDepthStencil(b.ID(ResDepth))
	}
	return b.WriteDepthStencil(b.ID(ResDepth))
}

// forwardOpaquePass shades opaque geometry into the scene color.
type forwardOpaquePass struct{ f *frame }

func (p forwardOpaquePass) Setup(b *framegraph.PassBuilder) error {
	if err := b.WriteRenderTarget(b.ID(p.f.sceneColor())); err != nil {
		return err
	}
	if err := p.f.declareDepth(b); err != nil {
		return err
	}
	return p.f.readShadows(b)
}

func (p forwardOpaquePass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	color, err := handle(ctx, p.f.sceneColor())
	if err != nil {
		return err
	}
	depth, err := handle(ctx, ResDepth)
	if err != nil {
		return err
	}
	rc := ctx.RenderContext()
	enc.Draw(DrawCommand{
		Pass:          ctx.Name(),
		ShaderPass:    rc.ShaderPass,
		Color:         []framegraph.Handle{color},
		Depth:         depth,
		DepthReadOnly: p.f.opts.ZPrepass,
		Wireframe:     rc.Wireframe,
	})
	return nil
}

// resolveMSAAPass resolves the multisampled forward color into Color.
type resolveMSAAPass struct{ f *frame }

func (p resolveMSAAPass) Setup(b *framegraph.PassBuilder) error {
	if err := b.WriteRenderTarget(b.ID(ResColorMSAA)); err != nil {
		return err
	}
	d := p.f.colorDesc()
	d.Init = framegraph.InitDontCare
	return b.CreateRenderTarget(b.ID(ResColor), d)
}

func (p resolveMSAAPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	src, err := handle(ctx, ResColorMSAA)
	if err != nil {
		return err
	}
	dst, err := handle(ctx, ResColor)
	if err != nil {
		return err
	}
	enc.Resolve(ctx.Name(), src, dst)
	return nil
}

// deferredOpaquePass writes the G-buffers.
type deferredOpaquePass struct{ f *frame }

func (p deferredOpaquePass) Setup(b *framegraph.PassBuilder) error {
	for _, name := range gbufferNames {
		if err := b.CreateRenderTarget(b.ID(name), p.f.gbufferDesc(name)); err != nil {
			return err
		}
	}
	return p.f.declareDepth(b)
}

func (p deferredOpaquePass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	color := make([]framegraph.Handle, 0, len(gbufferNames))
	for _, name := range gbufferNames {
		if err := clearCreated(enc, ctx, ctx.ID(name), false); err != nil {
			return err
		}
		h, err := handle(ctx, name)
		if err != nil {
			return err
		}
		color = append(color, h)
	}
	depth, err := handle(ctx, ResDepth)
	if err != nil {
		return err
	}
	rc := ctx.RenderContext()
	enc.Draw(DrawCommand{
		Pass:          ctx.Name(),
		ShaderPass:    rc.ShaderPass,
		Color:         color,
		Depth:         depth,
		DepthReadOnly: p.f.opts.ZPrepass,
		Wireframe:     rc.Wireframe,
	})
	return nil
}

// deferredLightingPass shades the G-buffers into Color in a compute pass.
type deferredLightingPass struct{ f *frame }

func (p deferredLightingPass) Setup(b *framegraph.PassBuilder) error {
	for _, name := range gbufferNames {
		if err := b.ReadRenderTarget(b.ID(name)); err != nil {
			return err
		}
	}
	if err := b.ReadDepthStencil(b.ID(ResDepth)); err != nil {
		return err
	}
	if err := p.f.readShadows(b); err != nil {
		return err
	}
	d := p.f.colorDesc()
	d.Init = framegraph.InitDontCare
	return b.CreateRWTexture(b.ID(ResColor), d)
}

func (p deferredLightingPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	shader := ShaderDeferredLighting
	if p.f.msaa() {
		shader = ShaderDeferredLightingMSAA
	}
	rc := ctx.RenderContext()
	return dispatch(cmd, ctx, shader, lightParams(rc.Width, rc.Height), ResColor, gbufferNames[:]...)
}

// resolveDeferredMSAAPass resolves the edge samples the lighting pass
// shaded per pixel.
type resolveDeferredMSAAPass struct{ f *frame }

func (p resolveDeferredMSAAPass) Setup(b *framegraph.PassBuilder) error {
	for _, name := range gbufferNames {
		if err := b.ReadRenderTarget(b.ID(name)); err != nil {
			return err
		}
	}
	if err := b.ReadDepthStencil(b.ID(ResDepth)); err != nil {
		return err
	}
	return b.WriteRWTexture(b.ID(ResColor))
}

func (p resolveDeferredMSAAPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	rc := ctx.RenderContext()
	params := resolveParams(p.f.opts.MSAA, rc.Width, rc.Height)
	return dispatch(cmd, ctx, ShaderResolveGBuffer, params, ResColor, ResGBufferAlbedo)
}

// linearizeDepthPass converts depth to linear view depth for later passes.
type linearizeDepthPass struct{ f *frame }

func (p linearizeDepthPass) Setup(b *framegraph.PassBuilder) error {
	if err := b.ReadDepthStencil(b.ID(ResDepth)); err != nil {
		return err
	}
	return b.CreateRWTexture(b.ID(ResLinearDepth),
		framegraph.StorageTextureDesc(p.f.opts.Width, p.f.opts.Height, gputypes.TextureFormatR32Float))
}

func (p linearizeDepthPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	shader := ShaderLinearizeDepth
	if p.f.msaa() {
		shader = ShaderLinearizeDepthMSAA
	}
	rc := ctx.RenderContext()
	near, far := p.f.opts.clipPlanes()
	return dispatch(cmd, ctx, shader, cameraParams(near, far, rc.Width, rc.Height), ResLinearDepth, ResDepth)
}

// forwardTransparentPass blends transparent geometry over the resolved
// color. With MSAA the depth target has a different sample count, so depth
// is only tested against LinearDepth in the shader.
type forwardTransparentPass struct{ f *frame }

func (p forwardTransparentPass) Setup(b *framegraph.PassBuilder) error {
	if err := b.WriteRenderTarget(b.ID(ResColor)); err != nil {
		return err
	}
	if err := b.ReadRWTexture(b.ID(ResLinearDepth)); err != nil {
		return err
	}
	if !p.f.msaa() {
		if err := b.ReadDepthStencil(b.ID(ResDepth)); err != nil {
			return err
		}
	}
	return p.f.readShadows(b)
}

func (p forwardTransparentPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	color, err := handle(ctx, ResColor)
	if err != nil {
		return err
	}
	draw := DrawCommand{
		Pass:          ctx.Name(),
		ShaderPass:    ctx.RenderContext().ShaderPass,
		Color:         []framegraph.Handle{color},
		DepthReadOnly: true,
		Wireframe:     ctx.RenderContext().Wireframe,
	}
	if !p.f.msaa() {
		if draw.Depth, err = handle(ctx, ResDepth); err != nil {
			return err
		}
	}
	enc.Draw(draw)
	return nil
}

// outlineMaskPass renders selected objects into a mask for post processing.
type outlineMaskPass struct{ f *frame }

func (p outlineMaskPass) Setup(b *framegraph.PassBuilder) error {
	d := framegraph.RenderTargetDesc(p.f.opts.Width, p.f.opts.Height, gputypes.TextureFormatR8Unorm)
	d.Clear = framegraph.ClearValue{}
	if err := b.CreateRenderTarget(b.ID(ResOutlineMask), d); err != nil {
		return err
	}
	return b.ReadRWTexture(b.ID(ResLinearDepth))
}

func (p outlineMaskPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	id := ctx.ID(ResOutlineMask)
	if err := clearCreated(enc, ctx, id, false); err != nil {
		return err
	}
	mask, err := handle(ctx, ResOutlineMask)
	if err != nil {
		return err
	}
	enc.Draw(DrawCommand{Pass: ctx.Name(), ShaderPass: ctx.RenderContext().ShaderPass, Color: []framegraph.Handle{mask}})
	return nil
}

// postProcessPass tone maps Color into an LDR storage texture.
type postProcessPass struct{ f *frame }

func (p postProcessPass) Setup(b *framegraph.PassBuilder) error {
	if err := b.ReadRenderTarget(b.ID(ResColor)); err != nil {
		return err
	}
	if err := b.ReadRWTexture(b.ID(ResLinearDepth)); err != nil {
		return err
	}
	if p.f.opts.Outline {
		if err := b.ReadRenderTarget(b.ID(ResOutlineMask)); err != nil {
			return err
		}
	}
	return b.CreateRWTexture(b.ID(ResPostProcessUAV),
		framegraph.StorageTextureDesc(p.f.opts.Width, p.f.opts.Height, postProcessFormat))
}

// Execute binds Color as the mask with the outline weight at zero when no
// mask was drawn.
func (p postProcessPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	mask, outline := ResColor, float32(0)
	if p.f.opts.Outline {
		mask, outline = ResOutlineMask, 1
	}
	rc := ctx.RenderContext()
	params := postParams(p.f.opts.exposure(), outline, rc.Width, rc.Height)
	return dispatch(cmd, ctx, ShaderPostProcess, params, ResPostProcessUAV, ResColor, mask)
}

// finalBlitPass copies the last color result into the view's output.
type finalBlitPass struct{ f *frame }

func (p finalBlitPass) source() string {
	if p.f.opts.PostProcess {
		return ResPostProcessUAV
	}
	return ResColor
}

func (p finalBlitPass) output(b interface {
	ID(string) framegraph.ResourceID
}) framegraph.ResourceID {
	if p.f.target != "" {
		return p.f.target
	}
	return b.ID(ResFinal)
}

func (p finalBlitPass) Setup(b *framegraph.PassBuilder) error {
	if err := b.ReadRenderTarget(b.ID(p.source())); err != nil {
		return err
	}
	if p.f.target != "" {
		return b.WriteRenderTarget(p.f.target)
	}
	d := framegraph.RenderTargetDesc(p.f.opts.Width, p.f.opts.Height, p.f.opts.OutputFormat)
	d.Init = framegraph.InitDontCare
	return b.CreateRenderTarget(b.ID(ResFinal), d)
}

func (p finalBlitPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	src, err := handle(ctx, p.source())
	if err != nil {
		return err
	}
	dst, err := ctx.Texture(p.output(ctx), true)
	if err != nil {
		return err
	}
	enc.Blit(BlitCommand{Pass: ctx.Name(), Src: src, Dst: dst.Handle(), Format: dst.TextureDesc().Format})
	return nil
}

// shadowMapPass renders depth from a light into the group's ShadowMap.
type shadowMapPass struct {
	size   uint32
	format gputypes.TextureFormat
}

func (p shadowMapPass) Setup(b *framegraph.PassBuilder) error {
	return b.CreateDepthStencil(b.ID(ResShadowMap), framegraph.DepthStencilDesc(p.size, p.size, p.format))
}

func (p shadowMapPass) Execute(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	id := ctx.ID(ResShadowMap)
	if err := clearCreated(enc, ctx, id, true); err != nil {
		return err
	}
	depth, err := handle(ctx, ResShadowMap)
	if err != nil {
		return err
	}
	enc.Draw(DrawCommand{Pass: ctx.Name(), ShaderPass: ctx.RenderContext().ShaderPass, Depth: depth})
	return nil
}

// dispatch records a full-screen compute dispatch of shader that reads the
// textures named inputs and writes the one named output.
func dispatch(cmd framegraph.CommandStream, ctx *framegraph.PassContext, shader string,
	params []byte, output string, inputs ...string) error {
	enc, ok := encoder(cmd)
	if !ok {
		return nil
	}
	out, err := ctx.Texture(ctx.ID(output), true)
	if err != nil {
		return err
	}
	c := DispatchCommand{
		Pass:   ctx.Name(),
		Shader: shader,
		Params: params,
		Inputs: make([]framegraph.Handle, 0, len(inputs)),
		Output: out.Handle(),
		Format: out.TextureDesc().Format,
	}
	for _, name := range inputs {
		h, err := handle(ctx, name)
		if err != nil {
			return err
		}
		c.Inputs = append(c.Inputs, h)
	}
	rc := ctx.RenderContext()
	c.X, c.Y, c.Z = workgroups(rc.Width, rc.Height)
	enc.Dispatch(c)
	return nil
}

var (
	_ framegraph.Pass = backgroundPass{}
	_ framegraph.Pass = depthPrepass{}
	_ framegraph.Pass = forwardOpaquePass{}
	_ framegraph.Pass = resolveMSAAPass{}
	_ framegraph.Pass = deferredOpaquePass{}
	_ framegraph.Pass = deferredLightingPass{}
	_ framegraph.Pass = resolveDeferredMSAAPass{}
	_ framegraph.Pass = linearizeDepthPass{}
	_ framegraph.Pass = forwardTransparentPass{}
	_ framegraph.Pass = outlineMaskPass{}
	_ framegraph.Pass = postProcessPass{}
	_ framegraph.Pass = finalBlitPass{}
	_ framegraph.Pass = shadowMapPass{}
)
