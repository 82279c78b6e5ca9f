// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend provides named playback backends for renderer recordings.
//
// Backends are registered via init() functions and selected at runtime:
//
//	p, err := backend.Get(backend.BackendHAL, dev)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	r, err := renderer.New(dev, opts, renderer.WithBackend(p))
//
// Default(dev) returns the first backend that can run on dev in the order
// hal, trace. The trace backend needs no device and logs every command at
// debug level.
//
// The wgpu subpackage holds the device that framegraph pools allocate from.
package backend
