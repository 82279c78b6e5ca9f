// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrStreamFinished is returned when a submitted or discarded stream is used.
var ErrStreamFinished = errors.New("wgpu: command stream already finished")

// CommandStream records one frame's commands into a HAL command encoder.
//
// It implements framegraph.CommandStream: the transitions computed by
// FrameGraph.Build become texture and buffer barriers. Passes type-assert
// the stream to *CommandStream to reach the encoder and the device.
type CommandStream struct {
	dev     *Device
	encoder hal.CommandEncoder
	label   string

	texBarriers []hal.TextureBarrier
	bufBarriers []hal.BufferBarrier

	barriers int
	unknown  int
	finished bool
}

// Begin creates an encoder and starts recording a stream named label.
func (d *Device) Begin(label string) (*CommandStream, error) {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder %q: %w", label, err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding %q: %w", label, err)
	}
	return &CommandStream{dev: d, encoder: encoder, label: label}, nil
}

// Device returns the device the stream records for.
func (s *CommandStream) Device() *Device { return s.dev }

// Encoder returns the HAL encoder for recording passes.
func (s *CommandStream) Encoder() hal.CommandEncoder { return s.encoder }

// Label returns the stream name.
func (s *CommandStream) Label() string { return s.label }

// Barriers returns the number of barriers recorded so far.
func (s *CommandStream) Barriers() int { return s.barriers }

// Transition records one barrier per transition. Transitions of handles the
// device does not know are dropped and logged.
func (s *CommandStream) Transition(ts []framegraph.Transition) {
	if s.finished {
		return
	}
	s.texBarriers = s.texBarriers[:0]
	s.bufBarriers = s.bufBarriers[:0]

	for _, t := range ts {
		switch t.Kind {
		case framegraph.KindTexture:
			tex, ok := s.dev.Texture(t.Handle)
			if !ok {
				s.drop(t)
				continue
			}
			s.texBarriers = append(s.texBarriers, hal.TextureBarrier{
				Texture: tex,
				Usage: hal.TextureUsageTransition{
					OldUsage: textureUsage(t.Before),
					NewUsage: textureUsage(t.After),
				},
			})
		case framegraph.KindBuffer:
			buf, ok := s.dev.Buffer(t.Handle)
			if !ok {
				s.drop(t)
				continue
			}
			s.bufBarriers = append(s.bufBarriers, hal.BufferBarrier{
				Buffer: buf,
				Usage: hal.BufferUsageTransition{
					OldUsage: t.Before.BufferUsage(),
					NewUsage: t.After.BufferUsage(),
				},
			})
		}
	}

	if len(s.texBarriers) > 0 {
		s.encoder.TransitionTextures(s.texBarriers)
	}
	if len(s.bufBarriers) > 0 {
		s.encoder.TransitionBuffers(s.bufBarriers)
	}
	s.barriers += len(s.texBarriers) + len(s.bufBarriers)
}

func (s *CommandStream) drop(t framegraph.Transition) {
	s.unknown++
	framegraph.Logger().Warn("wgpu: transition for unknown handle",
		"stream", s.label, "resource", string(t.Resource), "handle", uint64(t.Handle))
}

// textureUsage maps an access state to the usage a texture is transitioned
// to. A presentable image is kept in render attachment usage; the surface
// performs the final layout change.
func textureUsage(a framegraph.Access) gputypes.TextureUsage {
	if a == framegraph.AccessPresent {
		return gputypes.TextureUsageRenderAttachment
	}
	return a.TextureUsage()
}

// Submit ends encoding and submits the stream. It returns the serial that
// completes with it.
func (s *CommandStream) Submit() (uint64, error) {
	if s.finished {
		return 0, ErrStreamFinished
	}
	s.finished = true

	cmdBuf, err := s.encoder.EndEncoding()
	if err != nil {
		return 0, fmt.Errorf("wgpu: end encoding %q: %w", s.label, err)
	}
	serial, err := s.dev.Submit(cmdBuf)
	if err != nil {
		s.dev.device.FreeCommandBuffer(cmdBuf)
		return 0, err
	}
	return serial, nil
}

// Discard abandons the recorded commands.
func (s *CommandStream) Discard() {
	if s.finished {
		return
	}
	s.finished = true
	s.encoder.DiscardEncoding()
}
