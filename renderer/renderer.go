// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/framegraph"
)

// ErrClosed is returned by a Renderer after Close.
var ErrClosed = errors.New("renderer: closed")

// Renderer drives one FrameGraph per view over a shared transient pool.
//
// Every frame each view registers its passes, all graphs are set up and
// built concurrently, then rendered in view order into recordings that are
// played back to the configured Backend.
//
// A Renderer is driven by one goroutine.
type Renderer struct {
	opts Options
	cfg  rendererConfig

	pool   *framegraph.Pool
	views  []View
	graphs []*framegraph.FrameGraph

	frame  uint64
	closed bool
}

// Frame is the result of one RenderFrame call.
type Frame struct {
	Number uint64

	// Recordings holds the commands of each rendered view, in view order.
	Recordings []*Recording

	// Outputs maps view names to their resolved output. The backing is
	// released to the pool but stays valid until the next frame's Build or a
	// flush.
	Outputs map[string]framegraph.Resource

	Stats    map[string]framegraph.FrameStats
	Duration time.Duration
}

// New creates a renderer allocating from device.
func New(device framegraph.Device, opts Options, options ...Option) (*Renderer, error) {
	if device == nil {
		return nil, errors.New("renderer: nil device")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultRendererConfig()
	for _, o := range options {
		o(&cfg)
	}
	pool := framegraph.NewPool(device,
		framegraph.WithPoolLogger(cfg.logger),
		framegraph.WithPoolMetrics(cfg.metrics),
		framegraph.WithBudget(cfg.budgetMB),
	)
	return &Renderer{opts: opts, cfg: cfg, pool: pool}, nil
}

func (r *Renderer) log() *slog.Logger {
	if r.cfg.logger != nil {
		return r.cfg.logger
	}
	return framegraph.Logger()
}

// Options returns the current options.
func (r *Renderer) Options() Options { return r.opts }

// Pool returns the shared transient pool.
func (r *Renderer) Pool() *framegraph.Pool { return r.pool }

// Views returns the registered views in render order.
func (r *Renderer) Views() []View { return r.views }

// AddView appends v with its own graph. View names must be unique.
func (r *Renderer) AddView(v View) error {
	if r.closed {
		return ErrClosed
	}
	for _, existing := range r.views {
		if existing.Name() == v.Name() {
			return fmt.Errorf("renderer: duplicate view %q", v.Name())
		}
	}
	g := framegraph.New(r.pool,
		framegraph.WithName(v.Name()),
		framegraph.WithLogger(r.cfg.logger),
		framegraph.WithMetrics(r.cfg.metrics),
		framegraph.WithAliasing(r.cfg.aliasing),
	)
	r.views = append(r.views, v)
	r.graphs = append(r.graphs, g)
	return nil
}

// Graph returns the graph of the named view.
func (r *Renderer) Graph(name string) (*framegraph.FrameGraph, bool) {
	for i, v := range r.views {
		if v.Name() == name {
			return r.graphs[i], true
		}
	}
	return nil, false
}

// SetOptions replaces the options used from the next frame on. A resolution
// change flushes unused pool entries at the next Setup.
func (r *Renderer) SetOptions(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	resized := opts.Width != r.opts.Width || opts.Height != r.opts.Height
	r.opts = opts
	if resized {
		for _, g := range r.graphs {
			g.NotifyResized()
		}
		r.log().Info("renderer: resized", "width", opts.Width, "height", opts.Height)
	}
	return nil
}

// Resize changes the output resolution.
func (r *Renderer) Resize(width, height uint32) error {
	opts := r.opts
	opts.Width = width
	opts.Height = height
	return r.SetOptions(opts)
}

// RenderFrame registers, sets up, builds and renders every view.
//
// Contract violations skip the offending passes and are returned joined
// with the frame; the frame is still rendered. A graph whose build failed
// is reset and produces no recording.
func (r *Renderer) RenderFrame(ctx context.Context) (*Frame, error) {
	if r.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	r.frame++
	f := &Frame{
		Number:  r.frame,
		Outputs: make(map[string]framegraph.Resource, len(r.views)),
		Stats:   make(map[string]framegraph.FrameStats, len(r.views)),
	}

	var errs []error
	for i, v := range r.views {
		if err := v.Register(r.graphs[i], r.opts); err != nil {
			errs = append(errs, fmt.Errorf("renderer: register %q: %w", v.Name(), err))
		}
	}

	if err := framegraph.SetupAndBuild(ctx, r.graphs...); err != nil {
		errs = append(errs, err)
	}

	for i, g := range r.graphs {
		name := r.views[i].Name()
		if g.Phase() != framegraph.PhaseBuild {
			r.log().Warn("renderer: view not rendered", "view", name, "frame", r.frame, "phase", g.Phase().String())
			errs = append(errs, g.Reset())
			continue
		}
		out, hasOut := g.Output()

		rec := NewRecorder(fmt.Sprintf("%s_frame%d", name, r.frame))
		if err := g.Render(rec); err != nil {
			errs = append(errs, err)
		}
		recording := rec.Finish()
		f.Recordings = append(f.Recordings, recording)
		f.Stats[name] = g.Stats()
		if hasOut {
			f.Outputs[name] = out
		}

		if r.cfg.backend != nil {
			if err := recording.Playback(r.cfg.backend); err != nil {
				errs = append(errs, err)
			}
		}
	}

	f.Duration = time.Since(start)
	r.log().Debug("renderer: frame", "frame", r.frame, "views", len(r.views), "duration", f.Duration)
	return f, errors.Join(errs...)
}

// Flush frees every pool entry no view holds. With synchronous set it
// waits for the GPU first.
func (r *Renderer) Flush(synchronous bool) error {
	if r.closed {
		return ErrClosed
	}
	var errs []error
	for _, g := range r.graphs {
		errs = append(errs, g.FlushTransientResources(synchronous))
	}
	return errors.Join(errs...)
}

// Close releases every graph's resources and closes the pool.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, g := range r.graphs {
		errs = append(errs, g.Reset())
	}
	errs = append(errs, r.pool.Close())
	return errors.Join(errs...)
}
