// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/gputypes"
)

// Built-in shaders. All but ShaderBlit are compute shaders dispatched by the
// lit view's passes; ShaderBlit draws the final copy.
const (
	ShaderLinearizeDepth       = "linearize_depth"
	ShaderLinearizeDepthMSAA   = "linearize_depth_msaa"
	ShaderDeferredLighting     = "deferred_lighting"
	ShaderDeferredLightingMSAA = "deferred_lighting_msaa"
	ShaderResolveGBuffer       = "resolve_gbuffer"
	ShaderPostProcess          = "post_process"
	ShaderBlit                 = "blit"
)

// Entry points of the built-in shaders.
const (
	computeEntryPoint  = "cs_main"
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

//go:embed shaders/linearize_depth.wgsl
var linearizeDepthWGSL string

//go:embed shaders/linearize_depth_msaa.wgsl
var linearizeDepthMSAAWGSL string

//go:embed shaders/deferred_lighting.wgsl
var deferredLightingWGSL string

//go:embed shaders/deferred_lighting_msaa.wgsl
var deferredLightingMSAAWGSL string

//go:embed shaders/resolve_gbuffer.wgsl
var resolveGBufferWGSL string

//go:embed shaders/post_process.wgsl
var postProcessWGSL string

//go:embed shaders/blit.wgsl
var blitWGSL string

var shaderSources = map[string]string{
	ShaderLinearizeDepth:       linearizeDepthWGSL,
	ShaderLinearizeDepthMSAA:   linearizeDepthMSAAWGSL,
	ShaderDeferredLighting:     deferredLightingWGSL,
	ShaderDeferredLightingMSAA: deferredLightingMSAAWGSL,
	ShaderResolveGBuffer:       resolveGBufferWGSL,
	ShaderPostProcess:          postProcessWGSL,
	ShaderBlit:                 blitWGSL,
}

// ShaderSource returns the WGSL source of a built-in shader.
func ShaderSource(name string) (string, error) {
	src, ok := shaderSources[name]
	if !ok {
		return "", fmt.Errorf("renderer: unknown shader %q", name)
	}
	return src, nil
}

// ShaderNames returns the names of the built-in shaders, sorted.
func ShaderNames() []string {
	names := make([]string, 0, len(shaderSources))
	for name := range shaderSources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// workgroups returns the 8x8 workgroup grid covering width x height.
func workgroups(width, height uint32) (x, y, z uint32) {
	return (width + 7) / 8, (height + 7) / 8, 1
}

// computeLayout is bind group 0 of a compute shader: the uniform at binding
// 0, inputs at bindings 1..n and the storage output at n+1.
type computeLayout struct {
	uniform uint64
	inputs  []gputypes.TextureBindingLayout
	output  gputypes.TextureFormat
}

var (
	colorInput = gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	colorInputMS = gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
		Multisampled:  true,
	}
	depthInput = gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeDepth,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	depthInputMS = gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeDepth,
		ViewDimension: gputypes.TextureViewDimension2D,
		Multisampled:  true,
	}
)

const (
	cameraParamsSize  = 16
	lightParamsSize   = 48
	resolveParamsSize = 16
	postParamsSize    = 16
)

var computeLayouts = map[string]computeLayout{
	ShaderLinearizeDepth: {
		uniform: cameraParamsSize,
		inputs:  []gputypes.TextureBindingLayout{depthInput},
		output:  gputypes.TextureFormatR32Float,
	},
	ShaderLinearizeDepthMSAA: {
		uniform: cameraParamsSize,
		inputs:  []gputypes.TextureBindingLayout{depthInputMS},
		output:  gputypes.TextureFormatR32Float,
	},
	ShaderDeferredLighting: {
		uniform: lightParamsSize,
		inputs:  []gputypes.TextureBindingLayout{colorInput, colorInput, colorInput},
		output:  gputypes.TextureFormatRGBA16Float,
	},
	ShaderDeferredLightingMSAA: {
		uniform: lightParamsSize,
		inputs:  []gputypes.TextureBindingLayout{colorInputMS, colorInputMS, colorInputMS},
		output:  gputypes.TextureFormatRGBA16Float,
	},
	ShaderResolveGBuffer: {
		uniform: resolveParamsSize,
		inputs:  []gputypes.TextureBindingLayout{colorInputMS},
		output:  gputypes.TextureFormatRGBA16Float,
	},
	ShaderPostProcess: {
		uniform: postParamsSize,
		inputs:  []gputypes.TextureBindingLayout{colorInput, colorInput},
		output:  gputypes.TextureFormatRGBA8Unorm,
	},
}

// Storage formats the compute shaders write.
const (
	sceneColorFormat  = gputypes.TextureFormatRGBA16Float
	postProcessFormat = gputypes.TextureFormatRGBA8Unorm
)

// Directional light shaded by the deferred lighting pass.
var (
	lightDirection = [3]float32{0, -1, 0}
	lightColor     = [3]float32{1, 1, 1}
)

const (
	lightIntensity = 1
	lightAmbient   = 0.1
)

func putFloat(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

// cameraParams serializes the Camera uniform of linearize_depth.
func cameraParams(near, far float32, width, height uint32) []byte {
	buf := make([]byte, cameraParamsSize)
	le := binary.LittleEndian
	putFloat(buf[0:4], near)
	putFloat(buf[4:8], far)
	le.PutUint32(buf[8:12], width)
	le.PutUint32(buf[12:16], height)
	return buf
}

// lightParams serializes the Light uniform of deferred_lighting. WGSL aligns
// each vec3 to 16 bytes and pads the struct to 48.
func lightParams(width, height uint32) []byte {
	buf := make([]byte, lightParamsSize)
	le := binary.LittleEndian
	for i, v := range lightDirection {
		putFloat(buf[i*4:], v)
	}
	putFloat(buf[12:16], lightIntensity)
	for i, v := range lightColor {
		putFloat(buf[16+i*4:], v)
	}
	putFloat(buf[28:32], lightAmbient)
	le.PutUint32(buf[32:36], width)
	le.PutUint32(buf[36:40], height)
	return buf
}

// resolveParams serializes the Params uniform of resolve_gbuffer.
func resolveParams(samples, width, height uint32) []byte {
	buf := make([]byte, resolveParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], samples)
	le.PutUint32(buf[4:8], width)
	le.PutUint32(buf[8:12], height)
	return buf
}

// postParams serializes the Params uniform of post_process. outline is 0
// when no mask is drawn.
func postParams(exposure, outline float32, width, height uint32) []byte {
	buf := make([]byte, postParamsSize)
	le := binary.LittleEndian
	putFloat(buf[0:4], exposure)
	putFloat(buf[4:8], outline)
	le.PutUint32(buf[8:12], width)
	le.PutUint32(buf[12:16], height)
	return buf
}
