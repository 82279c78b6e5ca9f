// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Setup closes registration and runs every pass's Setup in execution order.
//
// Open groups at this point are a contract violation; they are closed and
// reported. A pass whose Setup fails or violates a contract is skipped for
// the frame and its error is returned, joined with the others. The graph
// still moves to PhaseSetup in that case. Only a call in the wrong phase
// leaves the state unchanged.
func (g *FrameGraph) Setup() error {
	if g.phase != PhaseIdle {
		return violation("", "Setup", fmt.Errorf("%w: Setup called in %s", ErrInvalidPhase, g.phase))
	}
	start := time.Now()

	var errs []error
	if g.tree.depth != 0 {
		errs = append(errs, violation("", "Setup", fmt.Errorf("%w: %d group(s) left open", ErrUnbalancedGroups, g.tree.depth)))
		for g.tree.depth > 0 {
			_ = g.tree.pop()
		}
		g.scopes = g.scopes[:1]
	}

	g.hasResult = false
	if g.resized {
		g.resized = false
		n, err := g.pool.Flush(false)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		g.log().Info("framegraph: flushed after resize", "graph", g.opts.name, "entries", n)
	}

	g.phase = PhaseSetup
	g.order = g.tree.passOrder(g.order[:0])
	g.stats = FrameStats{Passes: len(g.order)}

	for _, idx := range g.order {
		rec := &g.passes[idx]
		b := &g.builder
		b.rec = rec
		b.idx = idx
		clear(b.errs)
		b.errs = b.errs[:0]

		err := rec.pass.Setup(b)
		if verr := b.err(); verr != nil {
			err = errors.Join(verr, err)
		}
		if err != nil {
			rec.skipped = true
			clear(rec.decls)
			rec.decls = rec.decls[:0]
			g.stats.SkippedPasses++
			g.log().Warn("framegraph: pass skipped", "graph", g.opts.name, "pass", rec.name, "err", err)
			if !isViolation(err) {
				err = fmt.Errorf("framegraph: pass %q setup: %w", rec.name, err)
			}
			errs = append(errs, err)
		}
	}
	g.builder.rec = nil

	g.stats.Setup = time.Since(start)
	return errors.Join(errs...)
}

// isViolation reports whether err carries a ViolationError.
func isViolation(err error) bool {
	var v *ViolationError
	return errors.As(err, &v)
}

// Build resolves the physical backing of every resource and computes the
// transitions each pass needs.
//
// Passes are visited in execution order. A graph-owned resource is resolved
// at its first use, from the graph's own resources freed earlier in the
// frame when aliasing is enabled, otherwise from the Pool. A transition is
// recorded only when the required access differs from the resource's current
// state. After its last use a graph-owned resource other than the output is
// freed for reuse later in the frame. Registered resources no pass touched,
// and the output, are resolved last; resources created by a skipped pass
// are left without backing unless they are the output.
//
// A missing output is a contract violation: it is returned and the frame
// has no output. An allocation failure aborts the frame: everything acquired
// is released and the graph returns to PhaseIdle.
func (g *FrameGraph) Build() error {
	if g.phase != PhaseSetup {
		return violation("", "Build", fmt.Errorf("%w: Build called in %s", ErrInvalidPhase, g.phase))
	}
	start := time.Now()

	var outputRes *Resource
	var errs []error
	if g.hasOutput {
		r, ok := g.table.lookup(g.output)
		if !ok {
			errs = append(errs, violation("", "Build", fmt.Errorf("%w: output %q", ErrResourceNotFound, g.output)))
		} else {
			outputRes = r
		}
	}

	for pos, idx := range g.order {
		rec := &g.passes[idx]
		if rec.skipped {
			continue
		}
		for _, d := range rec.decls {
			d.res.lastUse = pos
		}
	}

	debug := g.log().Enabled(context.Background(), slog.LevelDebug)
	for pos, idx := range g.order {
		rec := &g.passes[idx]
		if rec.skipped {
			continue
		}
		for _, d := range rec.decls {
			r := d.res
			first := !r.touched
			r.touched = true
			if !r.resolved {
				if err := g.resolve(r); err != nil {
					g.abort()
					return err
				}
			}
			if r.state != d.access {
				rec.transitions = append(rec.transitions, Transition{
					Resource: r.id,
					Kind:     r.kind,
					Handle:   r.handle,
					Before:   r.state,
					After:    d.access,
					FirstUse: first,
				})
				r.state = d.access
			}
		}
		g.stats.Transitions += len(rec.transitions)

		if g.opts.aliasing {
			for _, d := range rec.decls {
				if d.res.lastUse == pos && d.res != outputRes {
					g.free(d.res)
				}
			}
		}

		if debug {
			for _, t := range rec.transitions {
				g.log().Debug("framegraph: transition",
					"graph", g.opts.name, "pass", rec.name,
					"resource", string(t.Resource), "before", t.Before.String(), "after", t.After.String())
			}
		}
	}

	for _, r := range g.table.order {
		if r.resolved {
			continue
		}
		if r.creator >= 0 && g.passes[r.creator].skipped && r != outputRes {
			continue
		}
		if err := g.resolve(r); err != nil {
			g.abort()
			return err
		}
	}

	for i := range g.held {
		if o := g.held[i].owner; o != nil {
			g.held[i].state = o.state
		}
	}

	if outputRes != nil {
		g.result = *outputRes
		g.hasResult = true
	}

	g.stats.Resources = g.table.len()
	g.stats.Build = time.Since(start)
	g.phase = PhaseBuild
	return errors.Join(errs...)
}

// resolve gives r its physical backing.
func (g *FrameGraph) resolve(r *Resource) error {
	if r.imported {
		r.resolved = true
		return nil
	}

	if g.opts.aliasing {
		for i := range g.held {
			h := &g.held[i]
			if h.owner != nil || h.kind != r.kind {
				continue
			}
			if (r.kind == KindTexture && !h.tex.Compatible(r.tex)) || (r.kind == KindBuffer && !h.buf.Compatible(r.buf)) {
				continue
			}
			h.owner = r
			r.handle = h.handle
			r.state = h.state
			r.held = int32(i) //nolint:gosec // G115: bounded by resources per frame
			r.resolved = true
			g.stats.Aliased++
			return nil
		}
	}

	var (
		h     Handle
		state Access
		err   error
	)
	if r.kind == KindTexture {
		h, state, err = g.pool.AcquireTexture(string(r.id), r.tex)
	} else {
		h, state, err = g.pool.AcquireBuffer(string(r.id), r.buf)
	}
	if err != nil {
		return fmt.Errorf("framegraph: resolve %q: %w", r.id, err)
	}

	r.handle = h
	r.state = state
	r.held = int32(len(g.held)) //nolint:gosec // G115: bounded by resources per frame
	r.resolved = true
	g.held = append(g.held, heldResource{
		kind:   r.kind,
		tex:    r.tex,
		buf:    r.buf,
		handle: h,
		state:  state,
		owner:  r,
	})
	g.stats.PoolAcquires++
	return nil
}

// free makes r's backing available to resources resolved later this frame.
func (g *FrameGraph) free(r *Resource) {
	if r.imported || r.held < 0 {
		return
	}
	h := &g.held[r.held]
	if h.owner != r {
		return
	}
	h.state = r.state
	h.owner = nil
}

// Reset abandons the current frame from any phase: every resource the
// graph acquired is released and the graph returns to PhaseIdle with an
// empty tree and table.
func (g *FrameGraph) Reset() error {
	err := g.releaseHeld()
	g.hasResult = false
	g.clearFrame()
	return err
}

// abort releases everything after a failed Build.
func (g *FrameGraph) abort() {
	if err := g.Reset(); err != nil {
		g.log().Warn("framegraph: release after failed build", "graph", g.opts.name, "err", err)
	}
}

// releaseHeld returns every held handle to the pool.
func (g *FrameGraph) releaseHeld() error {
	var errs []error
	for i := range g.held {
		h := &g.held[i]
		state := h.state
		if h.owner != nil {
			state = h.owner.state
		}
		if err := g.pool.Release(h.handle, state); err != nil {
			errs = append(errs, err)
		}
	}
	clear(g.held)
	g.held = g.held[:0]
	return errors.Join(errs...)
}

// clearFrame drops the per-frame tree, table and pass records.
func (g *FrameGraph) clearFrame() {
	for i := range g.passes {
		g.passes[i].reset("", RenderContext{}, nil, RootScope)
	}
	g.passes = g.passes[:0]
	g.order = g.order[:0]
	g.tree.reset()
	g.table.reset()
	g.scopes = g.scopes[:1]
	g.output = ""
	g.hasOutput = false
	g.phase = PhaseIdle
}
