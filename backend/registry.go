// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/framegraph/backend/wgpu"
)

// Factory creates a playback for dev. dev may be nil for backends that do
// not touch the GPU.
type Factory func(dev *wgpu.Device) (Playback, error)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendHAL, BackendTrace}
)

// Register registers a backend factory with the given name.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of the registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get creates the backend registered under name for dev.
func Get(name string, dev *wgpu.Device) (Playback, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return factory(dev)
}

// Default returns the first backend in priority order that can be created
// for dev, falling back to any other registered backend.
func Default(dev *wgpu.Device) (Playback, error) {
	registryMu.RLock()
	ordered := make([]Factory, 0, len(backends))
	for _, name := range backendPriority {
		if f, ok := backends[name]; ok {
			ordered = append(ordered, f)
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !slices.Contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	for _, name := range rest {
		ordered = append(ordered, backends[name])
	}
	registryMu.RUnlock()

	for _, factory := range ordered {
		if p, err := factory(dev); err == nil && p != nil {
			return p, nil
		}
	}
	return nil, ErrBackendNotAvailable
}
