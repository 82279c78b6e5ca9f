// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
)

// CommandType identifies the type of a recorded command.
type CommandType uint8

const (
	CmdBarrier  CommandType = iota // Resource state transitions
	CmdClear                       // Clear a color or depth target
	CmdDraw                        // Rasterize into attachments
	CmdDispatch                    // Run a compute shader
	CmdResolve                     // Resolve a multisampled target
	CmdBlit                        // Copy with format conversion
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdBarrier:  "Barrier",
	CmdClear:    "Clear",
	CmdDraw:     "Draw",
	CmdDispatch: "Dispatch",
	CmdResolve:  "Resolve",
	CmdBlit:     "Blit",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is implemented by all recorded commands.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// BarrierCommand applies the transitions Build computed for a pass.
type BarrierCommand struct {
	Transitions []framegraph.Transition
}

// ClearCommand clears Target to Value before its first use in the frame.
type ClearCommand struct {
	Pass   string
	Target framegraph.Handle
	Depth  bool
	Value  framegraph.ClearValue
}

// DrawCommand rasterizes the view's geometry for one shader pass.
type DrawCommand struct {
	Pass          string
	ShaderPass    framegraph.ShaderPass
	Color         []framegraph.Handle
	Depth         framegraph.Handle
	DepthReadOnly bool
	Wireframe     bool
}

// DispatchCommand runs the compute shader named Shader over X*Y*Z workgroups.
// Params fill the shader's uniform, Inputs are bound in order after it and
// Output, a storage texture in Format, is bound last.
type DispatchCommand struct {
	Pass    string
	Shader  string
	Params  []byte
	Inputs  []framegraph.Handle
	Output  framegraph.Handle
	Format  gputypes.TextureFormat
	X, Y, Z uint32
}

// ResolveCommand resolves the multisampled Src into Dst.
type ResolveCommand struct {
	Pass string
	Src  framegraph.Handle
	Dst  framegraph.Handle
}

// BlitCommand copies Src into Dst, converting to Format, the format of Dst.
type BlitCommand struct {
	Pass   string
	Src    framegraph.Handle
	Dst    framegraph.Handle
	Format gputypes.TextureFormat
}

func (BarrierCommand) Type() CommandType  { return CmdBarrier }
func (ClearCommand) Type() CommandType    { return CmdClear }
func (DrawCommand) Type() CommandType     { return CmdDraw }
func (DispatchCommand) Type() CommandType { return CmdDispatch }
func (ResolveCommand) Type() CommandType  { return CmdResolve }
func (BlitCommand) Type() CommandType     { return CmdBlit }
