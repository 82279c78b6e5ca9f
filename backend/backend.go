// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/framegraph/renderer"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot run on the given device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendHAL plays recordings into HAL command buffers.
	BackendHAL = "hal"
	// BackendTrace logs and counts recorded commands without a device.
	BackendTrace = "trace"
)

// Playback is a renderer.Backend selected by name.
//
// Playbacks are registered via Register() and created with Get() or
// Default().
type Playback interface {
	renderer.Backend

	// Name returns the backend identifier (e.g., "hal", "trace").
	Name() string

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}

// Serialer is implemented by playbacks that submit GPU work. Serial
// returns the submission serial of the last recording played back.
type Serialer interface {
	Serial() uint64
}
