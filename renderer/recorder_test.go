// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

// logBackend records the calls it receives.
type logBackend struct {
	calls  []string
	begins int
	ends   int
	aborts int

	failOn CommandType
	fail   bool
}

func (b *logBackend) Begin(label string) error {
	b.begins++
	b.calls = append(b.calls, "begin "+label)
	return nil
}

func (b *logBackend) End() error {
	b.ends++
	b.calls = append(b.calls, "end")
	return nil
}

func (b *logBackend) Abort() {
	b.aborts++
	b.calls = append(b.calls, "abort")
}

func (b *logBackend) Barrier(ts []framegraph.Transition) {
	b.calls = append(b.calls, fmt.Sprintf("barrier %d", len(ts)))
}

func (b *logBackend) record(t CommandType, pass string) error {
	if b.fail && b.failOn == t {
		return errors.New("device lost")
	}
	b.calls = append(b.calls, strings.ToLower(t.String())+" "+pass)
	return nil
}

func (b *logBackend) Clear(c ClearCommand) error       { return b.record(CmdClear, c.Pass) }
func (b *logBackend) Draw(c DrawCommand) error         { return b.record(CmdDraw, c.Pass) }
func (b *logBackend) Dispatch(c DispatchCommand) error { return b.record(CmdDispatch, c.Pass) }
func (b *logBackend) Resolve(c ResolveCommand) error   { return b.record(CmdResolve, c.Pass) }
func (b *logBackend) Blit(c BlitCommand) error         { return b.record(CmdBlit, c.Pass) }

func TestCommandTypeString(t *testing.T) {
	tests := []struct {
		typ  CommandType
		want string
	}{
		{CmdBarrier, "Barrier"},
		{CmdClear, "Clear"},
		{CmdDraw, "Draw"},
		{CmdDispatch, "Dispatch"},
		{CmdResolve, "Resolve"},
		{CmdBlit, "Blit"},
		{CommandType(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("CommandType(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func recordSample() *Recorder {
	r := NewRecorder("sample")
	r.Transition([]framegraph.Transition{{Resource: "Color", Handle: 1, Before: framegraph.AccessUndefined, After: framegraph.AccessRenderTarget}})
	r.Clear("Background", 1, false, framegraph.DefaultClearValue())
	r.Draw(DrawCommand{Pass: "Opaque", Color: []framegraph.Handle{1}})
	r.Dispatch(DispatchCommand{
		Pass:   "Post",
		Shader: ShaderPostProcess,
		Params: postParams(1, 0, 16, 16),
		Inputs: []framegraph.Handle{1, 1},
		Output: 2,
		Format: gputypes.TextureFormatRGBA8Unorm,
		X:      2, Y: 2, Z: 1,
	})
	r.Resolve("Resolve", 1, 2)
	r.Blit(BlitCommand{Pass: "Final", Src: 2, Dst: 3, Format: gputypes.TextureFormatBGRA8Unorm})
	return r
}

func TestRecorderFinish(t *testing.T) {
	r := recordSample()
	if got := r.Len(); got != 6 {
		t.Errorf("Len() = %d, want 6", got)
	}
	rec := r.Finish()
	if got := r.Len(); got != 0 {
		t.Errorf("Len() after Finish = %d, want 0", got)
	}
	if rec.Label() != "sample" {
		t.Errorf("Label() = %q, want %q", rec.Label(), "sample")
	}

	var types []CommandType
	for _, c := range rec.Commands() {
		types = append(types, c.Type())
	}
	want := []CommandType{CmdBarrier, CmdClear, CmdDraw, CmdDispatch, CmdResolve, CmdBlit}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("command types mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorderCopiesSlices(t *testing.T) {
	r := NewRecorder("copy")
	ts := []framegraph.Transition{{Resource: "A"}}
	color := []framegraph.Handle{1}
	params := []byte{1, 2}
	r.Transition(ts)
	r.Draw(DrawCommand{Color: color})
	r.Dispatch(DispatchCommand{Params: params, Inputs: color})
	ts[0].Resource = "B"
	color[0] = 9
	params[0] = 9

	cmds := r.Finish().Commands()
	if got := cmds[0].(BarrierCommand).Transitions[0].Resource; got != "A" {
		t.Errorf("recorded transition = %q, want %q", got, "A")
	}
	if got := cmds[1].(DrawCommand).Color[0]; got != 1 {
		t.Errorf("recorded color = %d, want 1", got)
	}
	d := cmds[2].(DispatchCommand)
	if d.Inputs[0] != 1 || d.Params[0] != 1 {
		t.Errorf("recorded dispatch inputs = %v, params = %v, want [1], [1 2]", d.Inputs, d.Params)
	}
}

func TestPlayback(t *testing.T) {
	rec := recordSample().Finish()
	b := &logBackend{}
	if err := rec.Playback(b); err != nil {
		t.Fatalf("Playback() error = %v", err)
	}
	want := []string{
		"begin sample",
		"barrier 1",
		"clear Background",
		"draw Opaque",
		"dispatch Post",
		"resolve Resolve",
		"blit Final",
		"end",
	}
	if diff := cmp.Diff(want, b.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaybackError(t *testing.T) {
	rec := recordSample().Finish()
	b := &logBackend{fail: true, failOn: CmdDispatch}
	err := rec.Playback(b)
	if err == nil {
		t.Fatal("Playback() should fail")
	}
	if !strings.Contains(err.Error(), "Dispatch") {
		t.Errorf("error %q does not name the command", err)
	}
	if b.aborts != 1 || b.ends != 0 {
		t.Errorf("aborts = %d, ends = %d, want 1, 0", b.aborts, b.ends)
	}
}

func TestShaderSources(t *testing.T) {
	for _, name := range ShaderNames() {
		t.Run(name, func(t *testing.T) {
			src, err := ShaderSource(name)
			if err != nil {
				t.Fatal(err)
			}
			required := []string{"@compute", "@workgroup_size(8, 8, 1)", "fn cs_main", "textureStore"}
			if name == ShaderBlit {
				required = []string{"@vertex", "fn vs_main", "@fragment", "fn fs_main", "textureLoad"}
			} else if _, ok := computeLayouts[name]; !ok {
				t.Errorf("%s has no compute layout", name)
			}
			for _, s := range required {
				if !strings.Contains(src, s) {
					t.Errorf("%s shader source missing %q", name, s)
				}
			}
		})
	}
	if got := len(ShaderNames()); got != 7 {
		t.Errorf("len(ShaderNames()) = %d, want 7", got)
	}
	if _, err := ShaderSource("missing"); err == nil {
		t.Error("ShaderSource(missing) should fail")
	}
}

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		w, h    uint32
		x, y, z uint32
	}{
		{1, 1, 1, 1, 1},
		{8, 8, 1, 1, 1},
		{9, 16, 2, 2, 1},
		{1280, 720, 160, 90, 1},
	}
	for _, tt := range tests {
		x, y, z := workgroups(tt.w, tt.h)
		if x != tt.x || y != tt.y || z != tt.z {
			t.Errorf("workgroups(%d, %d) = (%d, %d, %d), want (%d, %d, %d)", tt.w, tt.h, x, y, z, tt.x, tt.y, tt.z)
		}
	}
}

func TestUniformParams(t *testing.T) {
	le := binary.LittleEndian
	f32 := func(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) }

	tests := []struct {
		shader string
		params []byte
	}{
		{ShaderLinearizeDepth, cameraParams(0.1, 100, 640, 480)},
		{ShaderDeferredLighting, lightParams(640, 480)},
		{ShaderResolveGBuffer, resolveParams(4, 640, 480)},
		{ShaderPostProcess, postParams(2, 1, 640, 480)},
	}
	for _, tt := range tests {
		if got, want := uint64(len(tt.params)), computeLayouts[tt.shader].uniform; got != want {
			t.Errorf("%s params = %d bytes, want %d", tt.shader, got, want)
		}
	}

	camera := cameraParams(0.1, 100, 640, 480)
	if f32(camera[0:]) != 0.1 || f32(camera[4:]) != 100 || le.Uint32(camera[8:]) != 640 || le.Uint32(camera[12:]) != 480 {
		t.Errorf("cameraParams = %v", camera)
	}
	light := lightParams(640, 480)
	if f32(light[4:]) != -1 || f32(light[12:]) != lightIntensity || f32(light[28:]) != lightAmbient {
		t.Errorf("lightParams direction, intensity or ambient misplaced: %v", light)
	}
	if le.Uint32(light[32:]) != 640 || le.Uint32(light[36:]) != 480 {
		t.Errorf("lightParams size = %d x %d, want 640 x 480", le.Uint32(light[32:]), le.Uint32(light[36:]))
	}
	post := postParams(2, 1, 640, 480)
	if f32(post[0:]) != 2 || f32(post[4:]) != 1 || le.Uint32(post[8:]) != 640 {
		t.Errorf("postParams = %v", post)
	}
	if got := le.Uint32(resolveParams(4, 640, 480)); got != 4 {
		t.Errorf("resolveParams samples = %d, want 4", got)
	}
}
