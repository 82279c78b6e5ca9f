// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SetupAndBuild runs Setup and Build of independent graphs concurrently.
// The graphs may share a Pool; each must have a distinct *FrameGraph.
//
// Contract violations of one graph do not affect the others. A fatal error
// (wrong phase, allocation failure) cancels ctx, and graphs that have not
// started yet are left untouched in PhaseIdle with ctx's error; running
// graphs always finish. Render the graphs afterwards, in the order their
// command streams are submitted.
func SetupAndBuild(ctx context.Context, graphs ...*FrameGraph) error {
	errs := make([]error, len(graphs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, g := range graphs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("framegraph %q: %w", g.Name(), err)
				return err
			}

			setupErr := g.Setup()
			if g.Phase() != PhaseSetup {
				errs[i] = fmt.Errorf("framegraph %q: %w", g.Name(), setupErr)
				return setupErr
			}

			buildErr := g.Build()
			if err := errors.Join(setupErr, buildErr); err != nil {
				errs[i] = fmt.Errorf("framegraph %q: %w", g.Name(), err)
			}
			if g.Phase() != PhaseBuild {
				return buildErr
			}
			return nil
		})
	}

	_ = eg.Wait() // errors are collected per graph
	return errors.Join(errs...)
}
