// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// View registers its passes with a graph once per frame.
type View interface {
	// Name is the view's group name and scope.
	Name() string

	// Register adds the view's groups, passes and resources to g.
	Register(g *framegraph.FrameGraph, opts Options) error
}

// Camera is the view and projection a view renders with.
type Camera struct {
	View       framegraph.Mat4
	Projection framegraph.Mat4
}

// DefaultCamera returns identity matrices.
func DefaultCamera() Camera {
	return Camera{View: framegraph.Identity(), Projection: framegraph.Identity()}
}

// ShadowView renders one light's shadow map.
type ShadowView struct {
	name   string
	Camera Camera
}

// NewShadowView creates a shadow view named name.
func NewShadowView(name string) *ShadowView {
	return &ShadowView{name: name, Camera: DefaultCamera()}
}

// Name implements View.
func (v *ShadowView) Name() string { return v.name }

// Register adds the view's group with its shadow map pass.
func (v *ShadowView) Register(g *framegraph.FrameGraph, opts Options) error {
	if err := g.PushGroup(v.name); err != nil {
		return err
	}
	ctx := framegraph.RenderContext{
		View:       v.Camera.View,
		Projection: v.Camera.Projection,
		Width:      opts.ShadowMapSize,
		Height:     opts.ShadowMapSize,
		ShaderPass: framegraph.ShaderPassZOnly,
	}
	err := g.AddPass(ctx, shadowMapPass{size: opts.ShadowMapSize, format: opts.ShadowFormat}, PassShadowMap)
	return errors.Join(err, g.PopGroup())
}

// ShadowMapID returns the ID of the map v renders when registered inside
// the group scope.
func (v *ShadowView) ShadowMapID(scope framegraph.Scope) framegraph.ResourceID {
	return scope.Child(v.name).ID(ResShadowMap)
}

// LitView renders a camera's view of the scene, lit by its shadow views,
// into a target.
type LitView struct {
	name   string
	Camera Camera

	target       framegraph.Handle
	targetFormat gputypes.TextureFormat
	targetState  framegraph.Access

	shadows []*ShadowView
}

// NewLitView creates a lit view named name with one shadow view per light.
// Without a target the view renders into a graph-owned Final texture.
func NewLitView(name string, lights int) *LitView {
	v := &LitView{name: name, Camera: DefaultCamera()}
	for i := range lights {
		v.shadows = append(v.shadows, NewShadowView(fmt.Sprintf("Light%d", i)))
	}
	return v
}

// Name implements View.
func (v *LitView) Name() string { return v.name }

// Shadows returns the view's shadow views.
func (v *LitView) Shadows() []*ShadowView { return v.shadows }

// SetTarget makes the view render into an externally owned texture, such as
// a swap chain image in state. An invalid handle restores the graph-owned
// target.
func (v *LitView) SetTarget(h framegraph.Handle, format gputypes.TextureFormat, state framegraph.Access) {
	v.target = h
	v.targetFormat = format
	v.targetState = state
}

// Register adds the view's groups, its shadow views and the pass chain
// selected by opts. The final color is the graph output.
func (v *LitView) Register(g *framegraph.FrameGraph, opts Options) error {
	if err := g.PushGroup(v.name); err != nil {
		return err
	}
	scope := g.Scope()

	f := &frame{opts: opts}
	var errs []error
	if v.target.IsValid() {
		desc := framegraph.RenderTargetDesc(opts.Width, opts.Height, v.targetFormat)
		desc.Init = framegraph.InitDontCare
		f.target = scope.ID(ResTarget)
		if _, err := g.ImportTexture(f.target, v.target, desc, v.targetState); err != nil {
			errs = append(errs, err)
			f.target = ""
		}
	}

	errs = append(errs, v.registerShadows(g, f))

	ctx := framegraph.RenderContext{
		View:       v.Camera.View,
		Projection: v.Camera.Projection,
		Width:      opts.Width,
		Height:     opts.Height,
		ToolMode:   opts.ToolMode,
		Wireframe:  opts.Wireframe,
	}
	add := func(pass framegraph.Pass, name string, shader framegraph.ShaderPass) {
		c := ctx
		c.ShaderPass = shader
		c.AlphaTest = name == PassDepthPrepass
		errs = append(errs, g.AddPass(c, pass, name))
	}

	add(backgroundPass{f}, PassBackground, framegraph.ShaderPassForward)
	if opts.ZPrepass {
		add(depthPrepass{f}, PassDepthPrepass, framegraph.ShaderPassZOnly)
	}
	switch opts.Lighting {
	case LightingDeferred:
		add(deferredOpaquePass{f}, PassDeferredOpaque, framegraph.ShaderPassDeferred)
		add(deferredLightingPass{f}, PassDeferredLighting, framegraph.ShaderPassDeferred)
		if f.msaa() {
			add(resolveDeferredMSAAPass{f}, PassResolveDeferredMSAA, framegraph.ShaderPassDeferred)
		}
	default:
		add(forwardOpaquePass{f}, PassForwardOpaque, framegraph.ShaderPassForward)
		if f.msaa() {
			add(resolveMSAAPass{f}, PassResolveMSAA, framegraph.ShaderPassForward)
		}
	}
	if opts.needsLinearDepth() {
		add(linearizeDepthPass{f}, PassLinearizeDepth, framegraph.ShaderPassZOnly)
	}
	if opts.Transparency {
		add(forwardTransparentPass{f}, PassForwardTransparent, framegraph.ShaderPassTransparent)
	}
	if opts.Outline {
		add(outlineMaskPass{f}, PassOutlineMask, framegraph.ShaderPassOutline)
	}
	if opts.PostProcess {
		add(postProcessPass{f}, PassPostProcess, framegraph.ShaderPassForward)
	}
	blit := finalBlitPass{f}
	add(blit, PassFinalBlit, framegraph.ShaderPassForward)

	errs = append(errs, g.PopGroup())
	errs = append(errs, g.SetOutput(blit.output(scope)))
	return errors.Join(errs...)
}

// registerShadows adds the Shadows group and records the IDs of the maps it
// produces in f.
func (v *LitView) registerShadows(g *framegraph.FrameGraph, f *frame) error {
	n := min(len(v.shadows), f.opts.ShadowMaps)
	if n == 0 {
		return nil
	}
	if err := g.PushGroup("Shadows"); err != nil {
		return err
	}
	scope := g.Scope()
	var errs []error
	for _, s := range v.shadows[:n] {
		if err := s.Register(g, f.opts); err != nil {
			errs = append(errs, err)
			continue
		}
		f.shadows = append(f.shadows, s.ShadowMapID(scope))
	}
	errs = append(errs, g.PopGroup())
	return errors.Join(errs...)
}

var (
	_ View = (*LitView)(nil)
	_ View = (*ShadowView)(nil)
)
