// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestAccessPermits(t *testing.T) {
	rt := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
	storage := gputypes.TextureUsageStorageBinding
	uniform := gputypes.BufferUsageUniform
	ssbo := gputypes.BufferUsageStorage

	tests := []struct {
		name   string
		access Access
		kind   Kind
		tex    gputypes.TextureUsage
		buf    gputypes.BufferUsage
		want   bool
	}{
		{"render target", AccessRenderTarget, KindTexture, rt, 0, true},
		{"sample render target", AccessShaderRead, KindTexture, rt, 0, true},
		{"storage on render target", AccessStorage, KindTexture, rt, 0, false},
		{"storage texture", AccessStorage, KindTexture, storage, 0, true},
		{"present always", AccessPresent, KindTexture, 0, 0, true},
		{"undefined never", AccessUndefined, KindTexture, rt, 0, false},
		{"uniform read", AccessShaderRead, KindBuffer, 0, uniform, true},
		{"storage read", AccessShaderRead, KindBuffer, 0, ssbo, true},
		{"uniform write", AccessStorage, KindBuffer, 0, uniform, false},
		{"buffer as render target", AccessRenderTarget, KindBuffer, 0, ssbo, false},
		{"copy dst", AccessCopyDst, KindBuffer, 0, gputypes.BufferUsageCopyDst, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.access.permits(tt.kind, tt.tex, tt.buf); got != tt.want {
				t.Errorf("%v.permits(%v) = %v, want %v", tt.access, tt.kind, got, tt.want)
			}
		})
	}
}

func TestAccessWrites(t *testing.T) {
	writes := map[Access]bool{
		AccessUndefined:         false,
		AccessRenderTarget:      true,
		AccessDepthStencilWrite: true,
		AccessDepthStencilRead:  false,
		AccessShaderRead:        false,
		AccessStorage:           true,
		AccessCopySrc:           false,
		AccessCopyDst:           true,
		AccessPresent:           false,
	}
	for a, want := range writes {
		if got := a.Writes(); got != want {
			t.Errorf("%v.Writes() = %v, want %v", a, got, want)
		}
	}
}
