// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/fgtest"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

func newTestRenderer(t *testing.T, opts Options, options ...Option) (*Renderer, *fgtest.FakeDevice) {
	t.Helper()
	dev := fgtest.NewFakeDevice()
	r, err := New(dev, opts, options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
	return r, dev
}

func renderFrame(t *testing.T, r *Renderer) *Frame {
	t.Helper()
	f, err := r.RenderFrame(context.Background())
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	return f
}

// passNames returns the distinct pass names in command order.
func passNames(rec *Recording) []string {
	var names []string
	add := func(name string) {
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	for _, c := range rec.Commands() {
		switch c := c.(type) {
		case ClearCommand:
			add(c.Pass)
		case DrawCommand:
			add(c.Pass)
		case DispatchCommand:
			add(c.Pass)
		case ResolveCommand:
			add(c.Pass)
		case BlitCommand:
			add(c.Pass)
		}
	}
	return names
}

// dispatches returns the recorded dispatches keyed by pass name.
func dispatches(rec *Recording) map[string]DispatchCommand {
	m := make(map[string]DispatchCommand)
	for _, c := range rec.Commands() {
		if d, ok := c.(DispatchCommand); ok {
			m[d.Pass] = d
		}
	}
	return m
}

func TestNewErrors(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Error("New(nil device) should fail")
	}
	opts := DefaultOptions()
	opts.MSAA = 3
	if _, err := New(fgtest.NewFakeDevice(), opts); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("New(msaa 3) error = %v, want ErrInvalidOptions", err)
	}
}

func TestRenderFrameForward(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}

	f := renderFrame(t, r)
	if f.Number != 1 {
		t.Errorf("Number = %d, want 1", f.Number)
	}
	if len(f.Recordings) != 1 {
		t.Fatalf("len(Recordings) = %d, want 1", len(f.Recordings))
	}
	rec := f.Recordings[0]

	want := []string{
		PassShadowMap, PassBackground, PassDepthPrepass, PassForwardOpaque,
		PassLinearizeDepth, PassForwardTransparent, PassPostProcess, PassFinalBlit,
	}
	if diff := cmp.Diff(want, passNames(rec)); diff != "" {
		t.Errorf("pass order mismatch (-want +got):\n%s", diff)
	}

	counts := []struct {
		typ  CommandType
		want int
	}{
		{CmdBarrier, 7},
		{CmdClear, 3},
		{CmdDraw, 4},
		{CmdDispatch, 2},
		{CmdResolve, 0},
		{CmdBlit, 1},
	}
	for _, c := range counts {
		if got := rec.Count(c.typ); got != c.want {
			t.Errorf("Count(%s) = %d, want %d", c.typ, got, c.want)
		}
	}

	stats := f.Stats["Main"]
	if stats.Passes != 8 || stats.SkippedPasses != 0 {
		t.Errorf("Stats = %+v, want 8 passes, 0 skipped", stats)
	}

	d := dispatches(rec)
	lin := d[PassLinearizeDepth]
	if lin.Shader != ShaderLinearizeDepth || len(lin.Inputs) != 1 || lin.Format != gputypes.TextureFormatR32Float {
		t.Errorf("LinearizeDepth dispatch = %+v", lin)
	}
	if lin.X != 160 || lin.Y != 90 || lin.Z != 1 {
		t.Errorf("LinearizeDepth groups = %d x %d x %d, want 160 x 90 x 1", lin.X, lin.Y, lin.Z)
	}
	post := d[PassPostProcess]
	if post.Shader != ShaderPostProcess || post.Format != postProcessFormat {
		t.Errorf("PostProcess dispatch = %+v", post)
	}
	// Without an outline mask the scene color is bound twice.
	if len(post.Inputs) != 2 || post.Inputs[0] != post.Inputs[1] {
		t.Errorf("PostProcess inputs = %v, want color twice", post.Inputs)
	}
	if !bytes.Equal(post.Params, postParams(DefaultExposure, 0, 1280, 720)) {
		t.Errorf("PostProcess params = %v", post.Params)
	}
	for _, c := range rec.Commands() {
		if b, ok := c.(BlitCommand); ok && b.Format != gputypes.TextureFormatRGBA8Unorm {
			t.Errorf("blit Format = %v, want RGBA8Unorm", b.Format)
		}
	}

	out, ok := f.Outputs["Main"]
	if !ok {
		t.Fatal("no output for Main")
	}
	if out.ID() != "Main/Final" {
		t.Errorf("output ID = %q, want %q", out.ID(), "Main/Final")
	}
	if !out.Handle().IsValid() || out.Imported() {
		t.Errorf("output = %v, want a resolved graph-owned texture", &out)
	}
	if got := dev.Created(); got != 6 {
		t.Errorf("Created() = %d, want 6", got)
	}
}

func TestRenderFrameReusesPool(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}

	for i := range 4 {
		renderFrame(t, r)
		if got := dev.Created(); got != 6 {
			t.Errorf("frame %d: Created() = %d, want 6", i+1, got)
		}
		for _, e := range r.Pool().Entries() {
			if e.Used {
				t.Errorf("frame %d: pool entry %d still used after the frame", i+1, e.Handle)
			}
		}
	}
}

func TestRenderFrameDeferredMSAA(t *testing.T) {
	opts := DefaultOptions()
	opts.Lighting = LightingDeferred
	opts.MSAA = 4
	opts.Outline = true
	opts.ShadowMaps = 2
	r, _ := newTestRenderer(t, opts)
	if err := r.AddView(NewLitView("Main", 2)); err != nil {
		t.Fatal(err)
	}

	f := renderFrame(t, r)
	rec := f.Recordings[0]
	want := []string{
		PassShadowMap, PassBackground, PassDepthPrepass, PassDeferredOpaque,
		PassDeferredLighting, PassResolveDeferredMSAA, PassLinearizeDepth,
		PassForwardTransparent, PassOutlineMask, PassPostProcess, PassFinalBlit,
	}
	// Both shadow maps record under the same pass name.
	if diff := cmp.Diff(want, passNames(rec)); diff != "" {
		t.Errorf("pass order mismatch (-want +got):\n%s", diff)
	}
	if stats := f.Stats["Main"]; stats.Passes != 12 || stats.SkippedPasses != 0 {
		t.Errorf("Stats = %+v, want 12 passes, 0 skipped", stats)
	}
	if got := rec.Count(CmdDispatch); got != 4 {
		t.Errorf("Count(Dispatch) = %d, want 4", got)
	}

	d := dispatches(rec)
	shaders := map[string]string{
		PassDeferredLighting:    ShaderDeferredLightingMSAA,
		PassResolveDeferredMSAA: ShaderResolveGBuffer,
		PassLinearizeDepth:      ShaderLinearizeDepthMSAA,
		PassPostProcess:         ShaderPostProcess,
	}
	for pass, shader := range shaders {
		c := d[pass]
		if c.Shader != shader {
			t.Errorf("%s shader = %q, want %q", pass, c.Shader, shader)
		}
		if l := computeLayouts[shader]; len(c.Inputs) != len(l.inputs) || c.Format != l.output {
			t.Errorf("%s dispatch does not match the %s layout: %+v", pass, shader, c)
		}
	}
	if got := d[PassResolveDeferredMSAA].Params[0]; got != 4 {
		t.Errorf("ResolveDeferredMSAA samples = %d, want 4", got)
	}
	if post := d[PassPostProcess]; post.Inputs[0] == post.Inputs[1] {
		t.Error("PostProcess should read the outline mask")
	}

	g, ok := r.Graph("Main")
	if !ok {
		t.Fatal("Graph(Main) not found")
	}
	if g.Phase() != framegraph.PhaseIdle {
		t.Errorf("Phase() = %s, want Idle", g.Phase())
	}
}

func TestRenderFrameForwardMSAA(t *testing.T) {
	opts := DefaultOptions()
	opts.MSAA = 4
	r, dev := newTestRenderer(t, opts)
	if err := r.AddView(NewLitView("Main", 0)); err != nil {
		t.Fatal(err)
	}

	f := renderFrame(t, r)
	rec := f.Recordings[0]
	if got := rec.Count(CmdResolve); got != 1 {
		t.Errorf("Count(Resolve) = %d, want 1", got)
	}

	var msaa int
	for _, c := range rec.Commands() {
		d, ok := c.(DrawCommand)
		if !ok || d.Pass != PassForwardTransparent {
			continue
		}
		if d.Depth.IsValid() {
			t.Error("transparent draw binds the multisampled depth target")
		}
	}
	for h := framegraph.Handle(1); h <= framegraph.Handle(dev.Created()); h++ {
		if info, ok := dev.Info(h); ok && info.Texture.SampleCount == 4 {
			msaa++
		}
	}
	if msaa != 2 {
		t.Errorf("multisampled textures = %d, want 2 (color, depth)", msaa)
	}
}

func TestRenderFrameMinimal(t *testing.T) {
	opts := DefaultOptions()
	opts.ZPrepass = false
	opts.Transparency = false
	opts.PostProcess = false
	opts.ShadowMaps = 0
	r, _ := newTestRenderer(t, opts)
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}

	f := renderFrame(t, r)
	want := []string{PassBackground, PassForwardOpaque, PassFinalBlit}
	if diff := cmp.Diff(want, passNames(f.Recordings[0])); diff != "" {
		t.Errorf("pass order mismatch (-want +got):\n%s", diff)
	}
	for _, c := range f.Recordings[0].Commands() {
		if d, ok := c.(DrawCommand); ok && d.DepthReadOnly {
			t.Errorf("draw %q is depth read-only without a prepass", d.Pass)
		}
	}
}

func TestRenderFrameImportedTarget(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	v := NewLitView("Main", 1)
	const swapchain = framegraph.Handle(1000)
	v.SetTarget(swapchain, gputypes.TextureFormatBGRA8Unorm, framegraph.AccessPresent)
	if err := r.AddView(v); err != nil {
		t.Fatal(err)
	}

	f := renderFrame(t, r)
	out := f.Outputs["Main"]
	if out.ID() != "Main/Target" || !out.Imported() || out.Handle() != swapchain {
		t.Errorf("output = %v, want imported Main/Target", &out)
	}

	var blits int
	for _, c := range f.Recordings[0].Commands() {
		if b, ok := c.(BlitCommand); ok {
			blits++
			if b.Dst != swapchain || b.Format != gputypes.TextureFormatBGRA8Unorm {
				t.Errorf("blit Dst = %d %v, want %d BGRA8Unorm", b.Dst, b.Format, swapchain)
			}
		}
	}
	if blits != 1 {
		t.Errorf("blits = %d, want 1", blits)
	}
	if got := dev.Created(); got != 5 {
		t.Errorf("Created() = %d, want 5", got)
	}
}

func TestRenderFrameTwoViews(t *testing.T) {
	metrics := &framegraph.BasicMetricsCollector{}
	r, dev := newTestRenderer(t, DefaultOptions(), WithMetrics(metrics))
	for _, name := range []string{"Main", "Minimap"} {
		if err := r.AddView(NewLitView(name, 1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.AddView(NewLitView("Main", 0)); err == nil {
		t.Error("AddView(duplicate) should fail")
	}

	f := renderFrame(t, r)
	if len(f.Recordings) != 2 {
		t.Fatalf("len(Recordings) = %d, want 2", len(f.Recordings))
	}
	if got := f.Recordings[1].Label(); got != "Minimap_frame1" {
		t.Errorf("Label() = %q, want %q", got, "Minimap_frame1")
	}
	minimap := f.Outputs["Minimap"]
	if got := minimap.ID(); got != "Minimap/Final" {
		t.Errorf("Minimap output = %q, want %q", got, "Minimap/Final")
	}
	if got := dev.Created(); got != 12 {
		t.Errorf("Created() after frame 1 = %d, want 12", got)
	}

	renderFrame(t, r)
	if got := dev.Created(); got != 12 {
		t.Errorf("Created() after frame 2 = %d, want 12", got)
	}
	if got := metrics.Frames.Load(); got != 4 {
		t.Errorf("Frames = %d, want 4", got)
	}
	if got := metrics.Reuses.Load(); got != 12 {
		t.Errorf("Reuses = %d, want 12", got)
	}
}

func TestResize(t *testing.T) {
	r, _ := newTestRenderer(t, DefaultOptions())
	if err := r.AddView(NewLitView("Main", 0)); err != nil {
		t.Fatal(err)
	}
	renderFrame(t, r)

	if err := r.Resize(0, 100); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Resize(0, 100) error = %v, want ErrInvalidOptions", err)
	}
	if err := r.Resize(640, 360); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	f := renderFrame(t, r)
	mainOut := f.Outputs["Main"]
	desc := mainOut.TextureDesc()
	if desc.Width != 640 || desc.Height != 360 {
		t.Errorf("output size = %dx%d, want 640x360", desc.Width, desc.Height)
	}
	for _, e := range r.Pool().Entries() {
		if e.Kind == framegraph.KindTexture && e.Texture.Width == 1280 {
			t.Errorf("pool keeps 1280-wide entry %v after resize", e.Texture)
		}
	}
}

func TestRenderFrameBackend(t *testing.T) {
	b := &logBackend{}
	r, _ := newTestRenderer(t, DefaultOptions(), WithBackend(b))
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}
	renderFrame(t, r)
	renderFrame(t, r)

	if got := b.begins; got != 2 {
		t.Errorf("begins = %d, want 2", got)
	}
	if got := b.ends; got != 2 {
		t.Errorf("ends = %d, want 2", got)
	}
}

func TestFlushAndClose(t *testing.T) {
	dev := fgtest.NewFakeDevice()
	r, err := New(dev, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}
	renderFrame(t, r)

	if err := r.Flush(true); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := dev.Live(); got != 0 {
		t.Errorf("Live() after Flush = %d, want 0", got)
	}

	renderFrame(t, r)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := dev.Live(); got != 0 {
		t.Errorf("Live() after Close = %d, want 0", got)
	}
	if _, err := r.RenderFrame(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderFrame() after Close error = %v, want ErrClosed", err)
	}
	if err := r.AddView(NewLitView("Other", 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("AddView() after Close error = %v, want ErrClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestRenderFrameCanceled(t *testing.T) {
	r, _ := newTestRenderer(t, DefaultOptions())
	if err := r.AddView(NewLitView("Main", 1)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := r.RenderFrame(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RenderFrame() error = %v, want context.Canceled", err)
	}
	if len(f.Recordings) != 0 {
		t.Errorf("len(Recordings) = %d, want 0", len(f.Recordings))
	}

	// The graph was reset and renders normally afterwards.
	f = renderFrame(t, r)
	if len(f.Recordings) != 1 {
		t.Errorf("len(Recordings) = %d, want 1", len(f.Recordings))
	}
}
