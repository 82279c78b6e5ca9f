// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/renderer"
)

var errNotRecording = errors.New("backend: trace is not recording")

// TraceBackend is a device-free playback. It logs every command at debug
// level and counts commands by type, which makes it useful for inspecting
// the passes a graph emits without a GPU.
type TraceBackend struct {
	logger *slog.Logger

	label     string
	recording bool
	buffers   int
	counts    map[renderer.CommandType]int
}

func init() {
	Register(BackendTrace, func(*wgpu.Device) (Playback, error) {
		return NewTraceBackend(nil), nil
	})
}

// NewTraceBackend creates a trace backend logging to logger, or to
// framegraph.Logger() when logger is nil.
func NewTraceBackend(logger *slog.Logger) *TraceBackend {
	if logger == nil {
		logger = framegraph.Logger()
	}
	return &TraceBackend{logger: logger, counts: make(map[renderer.CommandType]int)}
}

// Name returns the backend identifier.
func (b *TraceBackend) Name() string { return BackendTrace }

// Close is a no-op.
func (b *TraceBackend) Close() {}

// Buffers returns the number of recordings ended successfully.
func (b *TraceBackend) Buffers() int { return b.buffers }

// Count returns the number of commands of type t played back.
func (b *TraceBackend) Count(t renderer.CommandType) int { return b.counts[t] }

// Begin implements renderer.Backend.
func (b *TraceBackend) Begin(label string) error {
	if b.recording {
		return fmt.Errorf("backend: trace begin %q while %q is recording", label, b.label)
	}
	b.label, b.recording = label, true
	b.logger.Debug("trace: begin", "label", label)
	return nil
}

// End implements renderer.Backend.
func (b *TraceBackend) End() error {
	if !b.recording {
		return errNotRecording
	}
	b.recording = false
	b.buffers++
	b.logger.Debug("trace: end", "label", b.label)
	return nil
}

// Abort implements renderer.Backend.
func (b *TraceBackend) Abort() {
	if b.recording {
		b.logger.Debug("trace: abort", "label", b.label)
	}
	b.recording = false
}

// Barrier implements renderer.Backend.
func (b *TraceBackend) Barrier(ts []framegraph.Transition) {
	if !b.recording {
		return
	}
	b.counts[renderer.CmdBarrier]++
	for _, t := range ts {
		b.logger.Debug("trace: barrier", "resource", t.Resource, "handle", t.Handle, "before", t.Before, "after", t.After)
	}
}

func (b *TraceBackend) record(t renderer.CommandType, pass string, attrs ...any) error {
	if !b.recording {
		return errNotRecording
	}
	b.counts[t]++
	b.logger.Debug("trace: "+t.String(), append([]any{"pass", pass}, attrs...)...)
	return nil
}

// Clear implements renderer.Backend.
func (b *TraceBackend) Clear(c renderer.ClearCommand) error {
	return b.record(renderer.CmdClear, c.Pass, "target", c.Target, "depth", c.Depth)
}

// Draw implements renderer.Backend.
func (b *TraceBackend) Draw(c renderer.DrawCommand) error {
	return b.record(renderer.CmdDraw, c.Pass,
		"shader_pass", c.ShaderPass, "color", c.Color, "depth", c.Depth, "depth_read_only", c.DepthReadOnly)
}

// Dispatch implements renderer.Backend.
func (b *TraceBackend) Dispatch(c renderer.DispatchCommand) error {
	return b.record(renderer.CmdDispatch, c.Pass, "shader", c.Shader, "inputs", c.Inputs,
		"output", c.Output, "format", c.Format, "params", len(c.Params), "x", c.X, "y", c.Y, "z", c.Z)
}

// Resolve implements renderer.Backend.
func (b *TraceBackend) Resolve(c renderer.ResolveCommand) error {
	return b.record(renderer.CmdResolve, c.Pass, "src", c.Src, "dst", c.Dst)
}

// Blit implements renderer.Backend.
func (b *TraceBackend) Blit(c renderer.BlitCommand) error {
	return b.record(renderer.CmdBlit, c.Pass, "src", c.Src, "dst", c.Dst, "format", c.Format)
}

var _ Playback = (*TraceBackend)(nil)
