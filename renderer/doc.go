// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer builds a scene renderer on top of framegraph.
//
// Views are the frontend. A LitView registers, under a group named after
// the view, a Shadows group with one ShadowView per light, followed by the
// pass chain selected by Options:
//
//	Background
//	DepthPrepass          (ZPrepass)
//	ForwardOpaque         (forward)   ResolveMSAA (MSAA > 1)
//	DeferredOpaque        (deferred)
//	DeferredLighting      (deferred)  ResolveDeferredMSAA (MSAA > 1)
//	LinearizeDepth        (Transparency, Outline or PostProcess)
//	ForwardTransparent    (Transparency)
//	OutlineMask           (Outline)
//	PostProcess           (PostProcess)
//	FinalBlit
//
// Passes use local resource names ("Color", "Depth") qualified by the
// view's scope, so several views can share a graph without collisions.
//
// Passes record into a Recorder, the framegraph.CommandStream the Renderer
// hands to FrameGraph.Render. The resulting Recording is a list of
// commands that can be inspected or played back to a Backend such as
// HALBackend, which encodes them into HAL command buffers:
//
//	dev, _ := wgpu.NewDevice(halDevice, halQueue)
//	r, _ := renderer.New(dev, renderer.DefaultOptions(),
//	    renderer.WithBackend(renderer.NewHALBackend(dev, wgpu.NewShaderCache(dev))))
//	_ = r.AddView(renderer.NewLitView("Main", 1))
//	frame, err := r.RenderFrame(ctx)
package renderer
