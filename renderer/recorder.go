// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"
	"slices"

	"github.com/gogpu/framegraph"
)

// Encoder is the command interface passes record into. Passes obtain it from
// the framegraph.CommandStream with a type assertion.
type Encoder interface {
	framegraph.CommandStream
	Clear(pass string, target framegraph.Handle, depth bool, value framegraph.ClearValue)
	Draw(cmd DrawCommand)
	Dispatch(cmd DispatchCommand)
	Resolve(pass string, src, dst framegraph.Handle)
	Blit(cmd BlitCommand)
}

// Recorder records the commands of one view graph's frame.
//
// Recorder implements framegraph.CommandStream and Encoder. Call Finish to
// obtain an immutable Recording that can be played back to a Backend.
type Recorder struct {
	label    string
	commands []Command
}

// NewRecorder creates a recorder. label names the command buffer on playback.
func NewRecorder(label string) *Recorder {
	return &Recorder{label: label}
}

// Transition implements framegraph.CommandStream.
func (r *Recorder) Transition(barriers []framegraph.Transition) {
	r.commands = append(r.commands, BarrierCommand{Transitions: slices.Clone(barriers)})
}

// Clear records a clear of target.
func (r *Recorder) Clear(pass string, target framegraph.Handle, depth bool, value framegraph.ClearValue) {
	r.commands = append(r.commands, ClearCommand{Pass: pass, Target: target, Depth: depth, Value: value})
}

// Draw records a draw.
func (r *Recorder) Draw(cmd DrawCommand) {
	cmd.Color = slices.Clone(cmd.Color)
	r.commands = append(r.commands, cmd)
}

// Dispatch records a compute dispatch.
func (r *Recorder) Dispatch(cmd DispatchCommand) {
	cmd.Params = slices.Clone(cmd.Params)
	cmd.Inputs = slices.Clone(cmd.Inputs)
	r.commands = append(r.commands, cmd)
}

// Resolve records a multisample resolve.
func (r *Recorder) Resolve(pass string, src, dst framegraph.Handle) {
	r.commands = append(r.commands, ResolveCommand{Pass: pass, Src: src, Dst: dst})
}

// Blit records a copy.
func (r *Recorder) Blit(cmd BlitCommand) {
	r.commands = append(r.commands, cmd)
}

// Len returns the number of commands recorded so far.
func (r *Recorder) Len() int {
	return len(r.commands)
}

// Finish returns the recorded commands. The recorder is reset.
func (r *Recorder) Finish() *Recording {
	rec := &Recording{label: r.label, commands: r.commands}
	r.commands = nil
	return rec
}

// Recording is an immutable list of recorded commands.
type Recording struct {
	label    string
	commands []Command
}

// Label returns the recording label.
func (r *Recording) Label() string {
	return r.label
}

// Commands returns the recorded commands.
func (r *Recording) Commands() []Command {
	return r.commands
}

// Count returns how many commands of type t were recorded.
func (r *Recording) Count(t CommandType) int {
	n := 0
	for _, c := range r.commands {
		if c.Type() == t {
			n++
		}
	}
	return n
}

// Playback replays the recording to the given backend.
func (r *Recording) Playback(backend Backend) error {
	if err := backend.Begin(r.label); err != nil {
		return err
	}

	for i, cmd := range r.commands {
		var err error
		switch c := cmd.(type) {
		case BarrierCommand:
			backend.Barrier(c.Transitions)
		case ClearCommand:
			err = backend.Clear(c)
		case DrawCommand:
			err = backend.Draw(c)
		case DispatchCommand:
			err = backend.Dispatch(c)
		case ResolveCommand:
			err = backend.Resolve(c)
		case BlitCommand:
			err = backend.Blit(c)
		default:
			err = fmt.Errorf("unknown command type %T", cmd)
		}
		if err != nil {
			backend.Abort()
			return fmt.Errorf("renderer: playback %q command %d (%s): %w", r.label, i, cmd.Type(), err)
		}
	}

	return backend.End()
}

// Backend executes recorded commands.
type Backend interface {
	// Begin starts a command buffer labelled label.
	Begin(label string) error

	// End submits the command buffer.
	End() error

	// Abort discards the command buffer after a failed command.
	Abort()

	Barrier(transitions []framegraph.Transition)
	Clear(c ClearCommand) error
	Draw(c DrawCommand) error
	Dispatch(c DispatchCommand) error
	Resolve(c ResolveCommand) error
	Blit(c BlitCommand) error
}

var (
	_ framegraph.CommandStream = (*Recorder)(nil)
	_ Encoder                  = (*Recorder)(nil)
)
