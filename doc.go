// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph schedules a frame's GPU work as a tree of passes.
//
// # Overview
//
// A frontend (a "view") registers passes into named groups. During Setup
// each pass declares the textures and buffers it reads and writes. Build
// resolves the physical backing of those resources through a shared Pool and
// computes the state transitions each pass needs. Render applies the
// transitions and executes the passes against a CommandStream, in
// depth-first registration order.
//
// # Quick Start
//
//	pool := framegraph.NewPool(device)
//	fg := framegraph.New(pool, framegraph.WithName("main"))
//
//	fg.PushGroup("World")
//	fg.AddPass(framegraph.DefaultRenderContext(), framegraph.PassFunc{
//		SetupFunc: func(b *framegraph.PassBuilder) error {
//			return b.CreateRenderTarget(b.ID("Color"), framegraph.RenderTargetDesc(1280, 720, gputypes.TextureFormatRGBA8Unorm))
//		},
//		ExecuteFunc: func(cmd framegraph.CommandStream, ctx *framegraph.PassContext) error {
//			color, err := ctx.Texture(ctx.ID("Color"), true)
//			// draw into color.Handle()
//			return err
//		},
//	}, "Opaque")
//	fg.PopGroup()
//	fg.SetOutput(framegraph.NewScope("World").ID("Color"))
//
//	if err := fg.Setup(); err != nil { ... }
//	if err := fg.Build(); err != nil { ... }
//	if err := fg.Render(cmd); err != nil { ... }
//
// # Resources
//
// Graph-owned resources (AddTexture, AddBuffer and the PassBuilder Create
// helpers) are backed by the Pool, which matches descriptors exactly and
// keeps physical resources alive across frames until flushed. Imported
// resources (ImportTexture, ImportBuffer) are owned by the caller; the graph
// only tracks their state for the frame.
//
// Resource IDs are strings. A Scope qualifies local names with the group
// path, so passes in different groups can each use "Color" or "Depth".
//
// # Errors
//
// Programmer errors (unbalanced groups, calls in the wrong phase,
// incompatible re-registration, missing required resources) are reported as
// *ViolationError. By default the offending pass is skipped and the error is
// returned; building with the framegraph_debug tag makes them panic.
// Allocation failures abort the frame and wrap ErrAllocation.
//
// # Backends
//
// The graph talks to the GPU through the Device and CommandStream
// interfaces. Package backend/wgpu implements them on gogpu/wgpu's HAL;
// package fgtest provides in-memory fakes for tests.
package framegraph
