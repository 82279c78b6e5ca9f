// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !framegraph_debug

package framegraph

// Release builds report contract violations as errors and skip the
// offending pass.
const debugAssertions = false

func assertContract(error) {}
