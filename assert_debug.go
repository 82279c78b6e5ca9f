// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build framegraph_debug

package framegraph

// Debug builds treat contract violations as assertions.
const debugAssertions = true

func assertContract(err error) {
	panic(err)
}
