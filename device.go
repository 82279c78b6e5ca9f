// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// Handle is an opaque reference to a physical GPU resource.
//
// Handles are produced by a [ResourceFactory]. The graph and the pool never
// interpret them; the factory is responsible for mapping a Handle to the
// real backend object (hal.Texture, hal.Buffer, ...).
type Handle uint64

// InvalidHandle is the zero Handle. It never refers to a live resource.
const InvalidHandle Handle = 0

// IsValid reports whether h refers to a resource.
func (h Handle) IsValid() bool { return h != InvalidHandle }

// ResourceFactory creates and destroys physical resources.
//
// Implementations live in the device layer (see backend/wgpu). Create
// methods must return an error rather than an invalid handle when the device
// cannot satisfy the request.
type ResourceFactory interface {
	// CreateTexture allocates a texture described by desc.
	// label is a debug name derived from the requesting resource.
	CreateTexture(label string, desc *TextureDesc) (Handle, error)

	// CreateBuffer allocates a buffer described by desc.
	CreateBuffer(label string, desc *BufferDesc) (Handle, error)

	// Destroy releases a resource previously created by this factory.
	Destroy(h Handle)
}

// Timeline exposes GPU progress as monotonically increasing submission serials.
//
// A serial is the value signalled once every command submitted up to that
// point has finished executing on the GPU.
type Timeline interface {
	// SubmittedSerial returns the serial of the most recent submission.
	SubmittedSerial() uint64

	// CompletedSerial returns the highest serial known to have completed.
	CompletedSerial() uint64

	// WaitSerial blocks until serial has completed.
	WaitSerial(serial uint64) error
}

// Device is the device-layer contract consumed by the pool.
type Device interface {
	ResourceFactory
	Timeline
}

// CommandStream receives the transitions computed by Build.
//
// Anything else a pass records (draws, dispatches, copies) goes through the
// concrete stream type, which passes obtain with a type assertion.
type CommandStream interface {
	// Transition applies barriers before the pass that needs them runs.
	Transition(barriers []Transition)
}
