// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/internal/config"
	"github.com/gogpu/framegraph/renderer"
)

var screen = config.Screen{Width: 320, Height: 240}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default(screen)
	cfg.Renderer.Lighting = config.LightingDeferred
	cfg.Renderer.MSAA = 4
	cfg.Renderer.Outline = true

	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig() error = %v", err)
	}
	if opts.Lighting != renderer.LightingDeferred || opts.MSAA != 4 || !opts.Outline {
		t.Errorf("options = %+v, want deferred, msaa 4, outline", opts)
	}
	if opts.Width != 320 || opts.Height != 240 {
		t.Errorf("size = %dx%d, want 320x240", opts.Width, opts.Height)
	}

	cfg.Renderer.Lighting = "raytraced"
	if _, err := optionsFromConfig(cfg); err == nil {
		t.Error("optionsFromConfig(raytraced) should fail")
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default(screen)
	cfg.Frames = 3
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, playback := range backend.Available() {
		if err := run(context.Background(), logger, cfg, 2, playback, "", 0); err != nil {
			t.Errorf("run(%s) error = %v", playback, err)
		}
	}
	if err := run(context.Background(), logger, cfg, 1, "vulkan", "", 0); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("run(vulkan) error = %v, want ErrBackendNotAvailable", err)
	}
}
