// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("wgpu: compile shader: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// ShaderCache compiles WGSL once per label and keeps the HAL shader modules
// until Destroy.
type ShaderCache struct {
	dev *Device

	mu      sync.Mutex
	modules map[string]hal.ShaderModule
}

// NewShaderCache creates an empty cache for dev.
func NewShaderCache(dev *Device) *ShaderCache {
	return &ShaderCache{dev: dev, modules: make(map[string]hal.ShaderModule)}
}

// Module returns the shader module for label, compiling source on first use.
func (c *ShaderCache) Module(label, source string) (hal.ShaderModule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.modules[label]; ok {
		return m, nil
	}

	code, err := CompileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	m, err := c.dev.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %q: %w", label, err)
	}
	c.modules[label] = m
	return m, nil
}

// Len returns the number of cached modules.
func (c *ShaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}

// Destroy destroys every cached module.
func (c *ShaderCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for label, m := range c.modules {
		c.dev.device.DestroyShaderModule(m)
		delete(c.modules, label)
	}
}
