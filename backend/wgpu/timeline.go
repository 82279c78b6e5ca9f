// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Submit submits command buffers to the queue and returns the serial the
// device fence is signalled to once they complete. The command buffers are
// freed after that serial is observed.
func (d *Device) Submit(cmdBufs ...hal.CommandBuffer) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}

	serial := d.submitted + 1
	if err := d.queue.Submit(cmdBufs, d.fence, serial); err != nil {
		return 0, fmt.Errorf("wgpu: submit serial %d: %w", serial, err)
	}
	d.submitted = serial
	for _, cb := range cmdBufs {
		d.pending = append(d.pending, inflight{serial: serial, cmdBuf: cb})
	}
	return serial, nil
}

// SubmittedSerial returns the serial of the most recent Submit.
func (d *Device) SubmittedSerial() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitted
}

// CompletedSerial polls the fence and returns the highest completed serial.
func (d *Device) CompletedSerial() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollLocked()
	return d.completed
}

// pollLocked advances completed as far as the fence allows without blocking.
func (d *Device) pollLocked() {
	for d.completed < d.submitted {
		ok, err := d.device.Wait(d.fence, d.completed+1, 0)
		if err != nil || !ok {
			break
		}
		d.completed++
	}
	d.freeCompletedLocked()
}

// freeCompletedLocked frees the command buffers of completed submissions.
func (d *Device) freeCompletedLocked() {
	n := 0
	for _, p := range d.pending {
		if p.serial <= d.completed {
			d.device.FreeCommandBuffer(p.cmdBuf)
			continue
		}
		d.pending[n] = p
		n++
	}
	clear(d.pending[n:])
	d.pending = d.pending[:n]
}

// WaitSerial blocks until serial has completed or the wait timeout expires.
func (d *Device) WaitSerial(serial uint64) error {
	d.mu.Lock()
	if serial > d.submitted {
		submitted := d.submitted
		d.mu.Unlock()
		return fmt.Errorf("wgpu: wait for serial %d, last submitted %d", serial, submitted)
	}
	if serial <= d.completed {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	timeout := d.WaitTimeout()
	ok, err := d.device.Wait(d.fence, serial, timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for serial %d: %w", serial, err)
	}
	if !ok {
		return fmt.Errorf("%w: serial %d after %v", ErrTimeout, serial, timeout)
	}

	d.mu.Lock()
	if serial > d.completed {
		d.completed = serial
	}
	d.freeCompletedLocked()
	d.mu.Unlock()
	return nil
}

// Close waits for submitted work, then destroys every view, texture and
// buffer the Device created and its fence. Imported textures are left
// alone. The HAL device and queue stay owned by the caller.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	submitted := d.submitted
	d.mu.Unlock()

	var errs []error
	if submitted > 0 {
		errs = append(errs, d.WaitSerial(submitted))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, p := range d.pending {
		d.device.FreeCommandBuffer(p.cmdBuf)
	}
	d.pending = nil
	for h, v := range d.views {
		d.device.DestroyTextureView(v)
		delete(d.views, h)
	}
	for h, v := range d.depth {
		d.device.DestroyTextureView(v)
		delete(d.depth, h)
	}
	for h, t := range d.textures {
		d.device.DestroyTexture(t)
		delete(d.textures, h)
	}
	for h, b := range d.buffers {
		d.device.DestroyBuffer(b)
		delete(d.buffers, h)
	}
	clear(d.external)
	d.device.DestroyFence(d.fence)
	d.fence = nil
	return errors.Join(errs...)
}
