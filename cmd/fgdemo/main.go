// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command fgdemo renders frames of a lit scene view headlessly on the noop
// HAL device and reports what the frame graph did.
//
// Renderer settings come from an optional HCL file (see internal/config).
// Recordings play back through the backend named by -backend (hal or trace).
// With -metrics the Prometheus metrics are served while frames render and
// for -hold afterwards.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/backend/wgpu"
	"github.com/gogpu/framegraph/internal/config"
	"github.com/gogpu/framegraph/metrics"
	"github.com/gogpu/framegraph/renderer"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		configPath  = flag.String("config", "", "HCL renderer configuration file")
		width       = flag.Int("width", 1280, "screen width exposed to the configuration")
		height      = flag.Int("height", 720, "screen height exposed to the configuration")
		frames      = flag.Int("frames", -1, "frames to render, overrides the configuration when >= 0")
		views       = flag.Int("views", 1, "number of lit views")
		playback    = flag.String("backend", backend.BackendHAL, "playback backend: "+strings.Join(backend.Available(), ", "))
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :2112")
		hold        = flag.Duration("hold", 0, "keep serving metrics this long after rendering")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framegraph.SetLogger(logger)

	screen := config.Screen{Width: *width, Height: *height}
	cfg := config.Default(screen)
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath, screen); err != nil {
			logger.Error("fgdemo: load configuration", "err", err)
			os.Exit(2)
		}
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, cfg, *views, *playback, *metricsAddr, *hold); err != nil {
		logger.Error("fgdemo: failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, views int, playback, metricsAddr string, hold time.Duration) error {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return err
	}

	collector := metrics.New()
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := collector.Register(reg); err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("fgdemo: serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("fgdemo: metrics server", "err", err)
			}
		}()
		defer func() {
			if hold > 0 {
				logger.Info("fgdemo: holding metrics endpoint", "for", hold)
				select {
				case <-time.After(hold):
				case <-ctx.Done():
				}
			}
			_ = srv.Close()
		}()
	}

	dev, cleanup, err := openNoopDevice()
	if err != nil {
		return err
	}
	defer cleanup()

	pb, err := backend.Get(playback, dev)
	if err != nil {
		return err
	}
	defer pb.Close()

	r, err := renderer.New(dev, opts,
		renderer.WithLogger(logger),
		renderer.WithMetrics(collector),
		renderer.WithBudget(cfg.Pool.BudgetMB),
		renderer.WithAliasing(cfg.Renderer.Aliasing),
		renderer.WithBackend(pb),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("fgdemo: close renderer", "err", err)
		}
	}()

	for i := range views {
		if err := r.AddView(renderer.NewLitView(fmt.Sprintf("View%d", i), opts.ShadowMaps)); err != nil {
			return err
		}
	}

	logger.Info("fgdemo: rendering",
		"frames", cfg.Frames, "views", views, "backend", pb.Name(), "lighting", opts.Lighting.String(),
		"msaa", opts.MSAA, "width", opts.Width, "height", opts.Height)

	var total time.Duration
	rendered := 0
	for rendered < cfg.Frames {
		if err := ctx.Err(); err != nil {
			break
		}
		f, err := r.RenderFrame(ctx)
		if err != nil {
			logger.Warn("fgdemo: frame", "frame", rendered+1, "err", err)
		}
		if f == nil {
			return err
		}
		rendered++
		total += f.Duration
		for name, s := range f.Stats {
			logger.Debug("fgdemo: view",
				"frame", f.Number, "view", name, "passes", s.Passes, "skipped", s.SkippedPasses,
				"transitions", s.Transitions, "acquires", s.PoolAcquires, "aliased", s.Aliased)
		}
		if s, ok := pb.(backend.Serialer); ok {
			if err := dev.WaitSerial(s.Serial()); err != nil {
				return err
			}
		}
	}

	if err := r.Flush(true); err != nil {
		return err
	}

	var avg time.Duration
	if rendered > 0 {
		avg = total / time.Duration(rendered)
	}
	logger.Info("fgdemo: done",
		"frames", rendered, "avg_frame", avg, "submitted", dev.SubmittedSerial(),
		"pool", r.Pool().Stats().String())
	return nil
}

// optionsFromConfig converts the decoded configuration to renderer options.
func optionsFromConfig(cfg config.Config) (renderer.Options, error) {
	c := cfg.Renderer
	lighting, err := renderer.ParseLightingMode(c.Lighting)
	if err != nil {
		return renderer.Options{}, err
	}
	opts := renderer.DefaultOptions()
	opts.Lighting = lighting
	opts.MSAA = uint32(c.MSAA)     //nolint:gosec // G115: validated to 1..8
	opts.Width = uint32(c.Width)   //nolint:gosec // G115: validated positive
	opts.Height = uint32(c.Height) //nolint:gosec // G115: validated positive
	opts.ZPrepass = c.ZPrepass
	opts.Transparency = c.Transparency
	opts.PostProcess = c.PostProcess
	opts.Outline = c.Outline
	opts.ToolMode = c.ToolMode
	opts.Wireframe = c.Wireframe
	opts.ShadowMaps = c.ShadowMaps
	return opts, opts.Validate()
}

// openNoopDevice opens the noop HAL adapter.
func openNoopDevice() (*wgpu.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open adapter: %w", err)
	}
	dev, err := wgpu.NewDevice(openDev.Device, openDev.Queue)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, nil, err
	}
	cleanup := func() {
		_ = dev.Close()
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return dev, cleanup, nil
}
