// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !framegraph_debug

package framegraph_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/fgtest"
)

func TestGraphLogsSkippedPass(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	g := framegraph.New(framegraph.NewPool(fgtest.NewFakeDevice()),
		framegraph.WithLogger(logger), framegraph.WithName("logged"))
	addPass(t, g, "Broken", func(b *framegraph.PassBuilder) error {
		return b.ReadRenderTarget("Missing")
	})
	addPass(t, g, "Draw", createColor("Color", colorDesc(4, 4)))
	_ = g.Setup()
	_ = g.Build()
	_ = g.Render(&fgtest.RecordingStream{})

	out := buf.String()
	for _, want := range []string{"pass skipped", "pass=Broken", "graph=logged", "transition", "resource=Color"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestPoolUsesPackageLogger(t *testing.T) {
	orig := framegraph.Logger()
	t.Cleanup(func() { framegraph.SetLogger(orig) })

	var buf bytes.Buffer
	framegraph.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	pool := framegraph.NewPool(fgtest.NewFakeDevice())
	_, _, _ = pool.AcquireTexture("Shadow", colorDesc(4, 4))
	_, _ = pool.Flush(false)

	out := buf.String()
	for _, want := range []string{"pool allocated", "label=Shadow", "pool flushed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestDefaultLoggingIsSilent(t *testing.T) {
	orig := framegraph.Logger()
	t.Cleanup(func() { framegraph.SetLogger(orig) })
	framegraph.SetLogger(nil)

	pool := framegraph.NewPool(fgtest.NewFakeDevice(), framegraph.WithPoolLogger(nil))
	g := framegraph.New(pool)
	addPass(t, g, "Draw", createColor("Color", colorDesc(4, 4)))
	runFrame(t, g)
}
