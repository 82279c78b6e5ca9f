// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/fgtest"
	"github.com/google/go-cmp/cmp"
)

func TestShadowMapID(t *testing.T) {
	v := NewShadowView("Light1")
	got := v.ShadowMapID(framegraph.NewScope("Main", "Shadows"))
	if want := framegraph.ResourceID("Main/Shadows/Light1/ShadowMap"); got != want {
		t.Errorf("ShadowMapID() = %q, want %q", got, want)
	}
}

func TestLitViewShadowCount(t *testing.T) {
	v := NewLitView("Main", 3)
	if got := len(v.Shadows()); got != 3 {
		t.Fatalf("len(Shadows()) = %d, want 3", got)
	}

	// Options cap the number of shadow views registered.
	opts := DefaultOptions()
	opts.ShadowMaps = 2
	g := framegraph.New(framegraph.NewPool(fgtest.NewFakeDevice()))
	if err := v.Register(g, opts); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := g.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	for i, want := range []bool{true, true, false} {
		id := framegraph.NewScope("Main", "Shadows").Child(v.Shadows()[i].Name()).ID(ResShadowMap)
		r, err := g.Texture(id, false)
		if err != nil {
			t.Fatal(err)
		}
		if got := r != nil; got != want {
			t.Errorf("%s registered = %v, want %v", id, got, want)
		}
	}
	if err := g.Reset(); err != nil {
		t.Errorf("Reset() = %v", err)
	}
}

// A stream that is not an Encoder still receives every transition.
func TestLitViewTransitions(t *testing.T) {
	opts := DefaultOptions()
	opts.ShadowMaps = 0
	opts.Transparency = false
	opts.PostProcess = false
	g := framegraph.New(framegraph.NewPool(fgtest.NewFakeDevice()), framegraph.WithName("Main"))
	if err := NewLitView("Main", 0).Register(g, opts); err != nil {
		t.Fatal(err)
	}
	if err := g.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := g.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	s := &fgtest.RecordingStream{}
	if err := g.Render(s); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var got []framegraph.Access
	for _, tr := range s.TransitionsFor("Main/Depth") {
		got = append(got, tr.After)
	}
	want := []framegraph.Access{framegraph.AccessDepthStencilWrite, framegraph.AccessDepthStencilRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Depth transitions mismatch (-want +got):\n%s", diff)
	}

	got = got[:0]
	for _, tr := range s.TransitionsFor("Main/Color") {
		got = append(got, tr.After)
	}
	want = []framegraph.Access{framegraph.AccessRenderTarget, framegraph.AccessShaderRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Color transitions mismatch (-want +got):\n%s", diff)
	}
}
