// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the framegraph device layer on gogpu/wgpu's HAL.
//
// A Device wraps a hal.Device and hal.Queue. It creates the textures and
// buffers the framegraph.Pool asks for and exposes a timeline built on one
// fence that Submit signals to an increasing serial, so the pool knows when a
// released resource is no longer in flight.
//
// A CommandStream records a frame into a HAL command encoder. Transitions
// computed by FrameGraph.Build are turned into texture and buffer barriers
// before each pass executes.
//
// # Usage
//
//	dev, err := wgpu.NewFromProvider(app) // or wgpu.NewDevice(halDevice, halQueue)
//	pool := framegraph.NewPool(dev)
//	fg := framegraph.New(pool)
//	...
//	cmd, err := dev.Begin("frame")
//	err = fg.Render(cmd)
//	serial, err := cmd.Submit()
//
// Shaders used by passes are compiled from WGSL with naga and cached per
// label by a ShaderCache.
//
// Tests run against the noop HAL backend and can be skipped with the nogpu
// build tag.
package wgpu
