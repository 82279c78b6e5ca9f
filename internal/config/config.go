// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads renderer settings from HCL files.
//
// A file holds at most one renderer block and one pool block:
//
//	frames = 120
//
//	renderer {
//	  lighting     = "deferred"
//	  msaa         = 4
//	  width        = screen.width
//	  height       = max(screen.height, 240)
//	  shadow_maps  = 2
//	  post_process = true
//	}
//
//	pool {
//	  budget_mb = 256
//	}
//
// Expressions may reference the screen object (width and height) and the
// min and max functions. Unknown attributes and blocks are errors.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// Lighting modes accepted by the lighting attribute.
const (
	LightingForward  = "forward"
	LightingDeferred = "deferred"
)

// Renderer holds the decoded renderer block.
type Renderer struct {
	Lighting     string
	MSAA         int
	ZPrepass     bool
	Transparency bool
	PostProcess  bool
	Outline      bool
	ToolMode     bool
	Wireframe    bool
	ShadowMaps   int
	Width        int
	Height       int
	Aliasing     bool
}

// Pool holds the decoded pool block.
type Pool struct {
	BudgetMB int
}

// Config is the decoded contents of a configuration file.
type Config struct {
	Frames   int
	Renderer Renderer
	Pool     Pool
}

// Screen describes the output surface exposed to expressions.
type Screen struct {
	Width  int
	Height int
}

// Default returns the configuration used when no file is given.
func Default(screen Screen) Config {
	return Config{
		Frames: 60,
		Renderer: Renderer{
			Lighting:     LightingForward,
			MSAA:         1,
			ZPrepass:     true,
			Transparency: true,
			PostProcess:  true,
			ShadowMaps:   1,
			Width:        screen.Width,
			Height:       screen.Height,
			Aliasing:     true,
		},
	}
}

// fileRoot is the top level of a configuration file.
type fileRoot struct {
	Frames   *int           `hcl:"frames,optional"`
	Renderer *rendererBlock `hcl:"renderer,block"`
	Pool     *poolBlock     `hcl:"pool,block"`
}

type rendererBlock struct {
	Lighting     *string `hcl:"lighting,optional"`
	MSAA         *int    `hcl:"msaa,optional"`
	ZPrepass     *bool   `hcl:"z_prepass,optional"`
	Transparency *bool   `hcl:"transparency,optional"`
	PostProcess  *bool   `hcl:"post_process,optional"`
	Outline      *bool   `hcl:"outline,optional"`
	ToolMode     *bool   `hcl:"tool_mode,optional"`
	Wireframe    *bool   `hcl:"wireframe,optional"`
	ShadowMaps   *int    `hcl:"shadow_maps,optional"`
	Width        *int    `hcl:"width,optional"`
	Height       *int    `hcl:"height,optional"`
	Aliasing     *bool   `hcl:"aliasing,optional"`
}

type poolBlock struct {
	BudgetMB *int `hcl:"budget_mb,optional"`
}

// evalContext exposes the screen and helper functions to expressions.
func evalContext(screen Screen) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"screen": cty.ObjectVal(map[string]cty.Value{
				"width":  cty.NumberIntVal(int64(screen.Width)),
				"height": cty.NumberIntVal(int64(screen.Height)),
			}),
		},
		Functions: map[string]function.Function{
			"min": stdlib.MinFunc,
			"max": stdlib.MaxFunc,
		},
	}
}

// LoadFile reads and decodes the configuration file at path.
func LoadFile(path string, screen Screen) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(src, path, screen)
}

// Parse decodes HCL source. filename is only used in diagnostics.
func Parse(src []byte, filename string, screen Screen) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(screen), &root)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := Default(screen)
	if root.Frames != nil {
		cfg.Frames = *root.Frames
	}
	if r := root.Renderer; r != nil {
		set(&cfg.Renderer.Lighting, r.Lighting)
		set(&cfg.Renderer.MSAA, r.MSAA)
		set(&cfg.Renderer.ZPrepass, r.ZPrepass)
		set(&cfg.Renderer.Transparency, r.Transparency)
		set(&cfg.Renderer.PostProcess, r.PostProcess)
		set(&cfg.Renderer.Outline, r.Outline)
		set(&cfg.Renderer.ToolMode, r.ToolMode)
		set(&cfg.Renderer.Wireframe, r.Wireframe)
		set(&cfg.Renderer.ShadowMaps, r.ShadowMaps)
		set(&cfg.Renderer.Width, r.Width)
		set(&cfg.Renderer.Height, r.Height)
		set(&cfg.Renderer.Aliasing, r.Aliasing)
	}
	if p := root.Pool; p != nil {
		set(&cfg.Pool.BudgetMB, p.BudgetMB)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	r := c.Renderer
	var errs []error
	if r.Lighting != LightingForward && r.Lighting != LightingDeferred {
		errs = append(errs, fmt.Errorf("%w: lighting %q, want %q or %q", ErrInvalid, r.Lighting, LightingForward, LightingDeferred))
	}
	switch r.MSAA {
	case 1, 2, 4, 8:
	default:
		errs = append(errs, fmt.Errorf("%w: msaa %d, want 1, 2, 4 or 8", ErrInvalid, r.MSAA))
	}
	if r.Width <= 0 || r.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: resolution %dx%d", ErrInvalid, r.Width, r.Height))
	}
	if r.ShadowMaps < 0 || r.ShadowMaps > 4 {
		errs = append(errs, fmt.Errorf("%w: shadow_maps %d, want 0..4", ErrInvalid, r.ShadowMaps))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("%w: frames %d", ErrInvalid, c.Frames))
	}
	if c.Pool.BudgetMB < 0 {
		errs = append(errs, fmt.Errorf("%w: budget_mb %d", ErrInvalid, c.Pool.BudgetMB))
	}
	return errors.Join(errs...)
}
