// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fgtest provides in-memory implementations of the framegraph
// device and command stream contracts for tests.
package fgtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/framegraph"
)

// ResourceInfo describes a resource created by a FakeDevice.
type ResourceInfo struct {
	Label   string
	Kind    framegraph.Kind
	Texture framegraph.TextureDesc
	Buffer  framegraph.BufferDesc
}

// FakeDevice is a framegraph.Device that hands out sequential handles and
// simulates a GPU timeline with explicit submissions and completions.
//
// Destroying a handle while submitted work has not completed is counted in
// InFlightDestroys, which lets tests verify flush synchronisation.
type FakeDevice struct {
	mu sync.Mutex

	next      framegraph.Handle
	live      map[framegraph.Handle]ResourceInfo
	created   int
	destroyed []framegraph.Handle

	submitted uint64
	completed uint64
	waits     int

	inFlightDestroys int

	// FailCreate, when set, is returned by every create call.
	FailCreate error
}

// NewFakeDevice returns an empty fake device.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{live: make(map[framegraph.Handle]ResourceInfo)}
}

func (d *FakeDevice) create(info ResourceInfo) (framegraph.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate != nil {
		return framegraph.InvalidHandle, d.FailCreate
	}
	d.next++
	d.live[d.next] = info
	d.created++
	return d.next, nil
}

// CreateTexture implements framegraph.ResourceFactory.
func (d *FakeDevice) CreateTexture(label string, desc *framegraph.TextureDesc) (framegraph.Handle, error) {
	return d.create(ResourceInfo{Label: label, Kind: framegraph.KindTexture, Texture: *desc})
}

// CreateBuffer implements framegraph.ResourceFactory.
func (d *FakeDevice) CreateBuffer(label string, desc *framegraph.BufferDesc) (framegraph.Handle, error) {
	return d.create(ResourceInfo{Label: label, Kind: framegraph.KindBuffer, Buffer: *desc})
}

// Destroy implements framegraph.ResourceFactory.
func (d *FakeDevice) Destroy(h framegraph.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[h]; !ok {
		panic(fmt.Sprintf("fgtest: destroy of unknown handle %d", h))
	}
	if d.completed < d.submitted {
		d.inFlightDestroys++
	}
	delete(d.live, h)
	d.destroyed = append(d.destroyed, h)
}

// SubmittedSerial implements framegraph.Timeline.
func (d *FakeDevice) SubmittedSerial() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

// CompletedSerial implements framegraph.Timeline.
func (d *FakeDevice) CompletedSerial() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed
}

// WaitSerial implements framegraph.Timeline. The fake GPU finishes
// everything up to serial immediately.
func (d *FakeDevice) WaitSerial(serial uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if serial > d.submitted {
		return fmt.Errorf("fgtest: wait for serial %d beyond last submission %d", serial, d.submitted)
	}
	d.waits++
	if serial > d.completed {
		d.completed = serial
	}
	return nil
}

// Submit simulates a command buffer submission and returns its serial.
func (d *FakeDevice) Submit() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted++
	return d.submitted
}

// Complete marks every submission up to serial as finished.
func (d *FakeDevice) Complete(serial uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if serial > d.submitted {
		serial = d.submitted
	}
	if serial > d.completed {
		d.completed = serial
	}
}

// Created returns how many resources were created in total.
func (d *FakeDevice) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Live returns how many resources are alive.
func (d *FakeDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Info returns what h was created with.
func (d *FakeDevice) Info(h framegraph.Handle) (ResourceInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.live[h]
	return info, ok
}

// Destroyed returns the destroyed handles in order.
func (d *FakeDevice) Destroyed() []framegraph.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]framegraph.Handle(nil), d.destroyed...)
}

// Waits returns how many times WaitSerial was called.
func (d *FakeDevice) Waits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waits
}

// InFlightDestroys returns how many resources were destroyed while
// submitted work was still pending.
func (d *FakeDevice) InFlightDestroys() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlightDestroys
}

var _ framegraph.Device = (*FakeDevice)(nil)

// RecordingStream is a framegraph.CommandStream that records transitions
// and pass executions in order.
type RecordingStream struct {
	Transitions []framegraph.Transition
	Events      []string
}

// Transition implements framegraph.CommandStream.
func (s *RecordingStream) Transition(barriers []framegraph.Transition) {
	for _, b := range barriers {
		s.Transitions = append(s.Transitions, b)
		s.Events = append(s.Events, fmt.Sprintf("transition %s %s->%s", b.Resource, b.Before, b.After))
	}
}

// Exec records that the named pass executed.
func (s *RecordingStream) Exec(pass string) {
	s.Events = append(s.Events, "exec "+pass)
}

// Executed returns the names of executed passes in order.
func (s *RecordingStream) Executed() []string {
	var out []string
	for _, e := range s.Events {
		if name, ok := strings.CutPrefix(e, "exec "); ok {
			out = append(out, name)
		}
	}
	return out
}

// TransitionsFor returns the transitions recorded for id.
func (s *RecordingStream) TransitionsFor(id framegraph.ResourceID) []framegraph.Transition {
	var out []framegraph.Transition
	for _, t := range s.Transitions {
		if t.Resource == id {
			out = append(out, t)
		}
	}
	return out
}

var _ framegraph.CommandStream = (*RecordingStream)(nil)

// RecordingPass returns a pass whose Setup runs setup (if not nil) and whose
// Execute records name on the stream when it is a *RecordingStream.
func RecordingPass(name string, setup func(b *framegraph.PassBuilder) error) framegraph.Pass {
	return framegraph.PassFunc{
		SetupFunc: setup,
		ExecuteFunc: func(cmd framegraph.CommandStream, _ *framegraph.PassContext) error {
			if s, ok := cmd.(*RecordingStream); ok {
				s.Exec(name)
			}
			return nil
		},
	}
}
