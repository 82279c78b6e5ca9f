// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"time"
)

// Render issues every pass that was not skipped, in execution order: first
// its transitions through cmd.Transition, then Pass.Execute. Execution
// errors do not stop later passes; they are returned joined.
//
// Render always ends the frame. The tree and table are cleared and every
// pool handle the graph acquired is released. Releasing does not free the
// backing, so the output's handle stays valid for a present step until the
// next Build or flush.
func (g *FrameGraph) Render(cmd CommandStream) error {
	if g.phase != PhaseBuild {
		return violation("", "Render", fmt.Errorf("%w: Render called in %s", ErrInvalidPhase, g.phase))
	}
	start := time.Now()
	g.phase = PhaseRender

	var errs []error
	ctx := &g.passCtx
	for _, idx := range g.order {
		rec := &g.passes[idx]
		if rec.skipped {
			continue
		}
		if len(rec.transitions) > 0 {
			cmd.Transition(rec.transitions)
		}
		ctx.rec = rec
		if err := rec.pass.Execute(cmd, ctx); err != nil {
			errs = append(errs, fmt.Errorf("framegraph: pass %q: %w", rec.name, err))
		}
	}
	ctx.rec = nil

	if err := g.endFrame(); err != nil {
		errs = append(errs, err)
	}

	g.stats.Render = time.Since(start)
	g.opts.metrics.RecordFrame(g.opts.name, g.stats)
	return errors.Join(errs...)
}

// endFrame releases the frame's pool handles and clears per-frame state.
func (g *FrameGraph) endFrame() error {
	err := g.releaseHeld()
	g.clearFrame()
	return err
}
