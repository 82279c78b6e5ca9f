// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// poolEntry is one physical resource owned by the pool.
type poolEntry struct {
	kind    Kind
	tex     TextureDesc
	buf     BufferDesc
	handle  Handle
	state   Access
	size    uint64
	lastUse uint64
}

func (e *poolEntry) matches(kind Kind, tex TextureDesc, buf BufferDesc) bool {
	if e.kind != kind {
		return false
	}
	if kind == KindTexture {
		return e.tex.Compatible(tex)
	}
	return e.buf.Compatible(buf)
}

// pendingRelease is a handle waiting for the GPU to finish with it.
type pendingRelease struct {
	handle Handle
	serial uint64
}

// Pool is a reuse cache of physical textures and buffers shared by any
// number of graphs.
//
// Acquire is first-fit over entries not in use whose descriptor matches
// exactly; otherwise a new resource is created through the Device. Release
// makes an entry eligible again without freeing memory. Memory is only
// returned by Flush, by budget trimming, or by Close.
//
// Pool is safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	device  Device
	metrics MetricsCollector
	logger  *slog.Logger

	entries []poolEntry
	used    *bitset.BitSet
	index   map[Handle]int
	pending []pendingRelease

	budgetBytes uint64 // 0 means unlimited
	usedBytes   uint64
	tick        uint64

	allocations uint64
	reuses      uint64
	evictions   uint64

	closed bool
}

// NewPool creates an empty pool allocating through device.
func NewPool(device Device, opts ...PoolOption) *Pool {
	o := defaultPoolOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool{
		device:      device,
		metrics:     o.metrics,
		logger:      o.logger,
		used:        bitset.New(0),
		index:       make(map[Handle]int),
		budgetBytes: o.budgetBytes,
	}
}

func (p *Pool) log() *slog.Logger { return loggerOrDefault(p.logger) }

// AcquireTexture returns a texture compatible with desc, together with the
// access state it was last left in. label names a newly created texture.
func (p *Pool) AcquireTexture(label string, desc TextureDesc) (Handle, Access, error) {
	return p.acquire(label, KindTexture, desc, BufferDesc{})
}

// AcquireBuffer returns a buffer compatible with desc, together with the
// access state it was last left in.
func (p *Pool) AcquireBuffer(label string, desc BufferDesc) (Handle, Access, error) {
	return p.acquire(label, KindBuffer, TextureDesc{}, desc)
}

func (p *Pool) acquire(label string, kind Kind, tex TextureDesc, buf BufferDesc) (Handle, Access, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return InvalidHandle, AccessUndefined, ErrPoolClosed
	}
	p.collectLocked()
	p.tick++

	for i := range p.entries {
		if p.used.Test(uint(i)) {
			continue
		}
		e := &p.entries[i]
		if !e.matches(kind, tex, buf) {
			continue
		}
		p.used.Set(uint(i))
		e.lastUse = p.tick
		p.reuses++
		p.metrics.RecordAcquire(kind, true, e.size)
		return e.handle, e.state, nil
	}

	size := buf.Size
	if kind == KindTexture {
		size = tex.SizeBytes()
	}
	if err := p.reserveLocked(size); err != nil {
		return InvalidHandle, AccessUndefined, err
	}

	var (
		h   Handle
		err error
	)
	if kind == KindTexture {
		h, err = p.device.CreateTexture(label, &tex)
	} else {
		h, err = p.device.CreateBuffer(label, &buf)
	}
	if err != nil {
		return InvalidHandle, AccessUndefined, fmt.Errorf("%w: %s %q: %w", ErrAllocation, kind, label, err)
	}
	if !h.IsValid() {
		return InvalidHandle, AccessUndefined, fmt.Errorf("%w: %s %q: device returned invalid handle", ErrAllocation, kind, label)
	}

	idx := len(p.entries)
	p.entries = append(p.entries, poolEntry{
		kind:    kind,
		tex:     tex,
		buf:     buf,
		handle:  h,
		state:   AccessUndefined,
		size:    size,
		lastUse: p.tick,
	})
	p.used.Set(uint(idx))
	p.index[h] = idx
	p.usedBytes += size
	p.allocations++
	p.metrics.RecordAcquire(kind, false, size)

	if l := p.log(); l.Enabled(context.Background(), slog.LevelDebug) {
		if kind == KindTexture {
			l.Debug("framegraph: pool allocated", "label", label, "desc", tex.String(), "handle", uint64(h))
		} else {
			l.Debug("framegraph: pool allocated", "label", label, "desc", buf.String(), "handle", uint64(h))
		}
	}
	return h, AccessUndefined, nil
}

// Release marks the entry owning h unused and records the access state the
// resource was left in. The memory is not freed.
func (p *Pool) Release(h Handle, state Access) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	idx, ok := p.index[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, uint64(h))
	}
	p.used.Clear(uint(idx))
	p.entries[idx].state = state
	p.metrics.RecordRelease(p.entries[idx].kind)
	return nil
}

// Flush frees every entry that is not currently in use and returns how many
// entries were removed.
//
// With synchronous set, Flush blocks until all GPU work submitted so far has
// completed and destroys the resources before returning. Otherwise the
// resources are queued and destroyed by a later Collect (or Acquire) once the
// timeline has passed the current submission serial. Either way the removed
// entries are never handed out again.
func (p *Pool) Flush(synchronous bool) (int, error) {
	start := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPoolClosed
	}
	removed := p.removeUnusedLocked(func(*poolEntry) bool { return true })
	serial := p.device.SubmittedSerial()
	for _, e := range removed {
		p.pending = append(p.pending, pendingRelease{handle: e.handle, serial: serial})
	}

	if !synchronous {
		p.collectLocked()
		p.mu.Unlock()
		p.metrics.RecordFlush(len(removed), false, time.Since(start))
		p.log().Info("framegraph: pool flushed", "entries", len(removed), "synchronous", false)
		return len(removed), nil
	}

	// Take ownership of everything pending so the wait happens without
	// holding the lock.
	drain := p.pending
	p.pending = nil
	p.mu.Unlock()

	if err := p.device.WaitSerial(serial); err != nil {
		p.mu.Lock()
		p.pending = append(drain, p.pending...)
		p.mu.Unlock()
		return len(removed), fmt.Errorf("framegraph: synchronous flush: %w", err)
	}
	for _, r := range drain {
		p.device.Destroy(r.handle)
	}

	p.metrics.RecordFlush(len(removed), true, time.Since(start))
	p.log().Info("framegraph: pool flushed", "entries", len(removed), "synchronous", true)
	return len(removed), nil
}

// Collect destroys queued resources whose GPU work has completed and
// returns how many were destroyed.
func (p *Pool) Collect() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collectLocked()
}

// collectLocked destroys completed pending releases. Caller must hold mu.
func (p *Pool) collectLocked() int {
	if len(p.pending) == 0 {
		return 0
	}
	completed := p.device.CompletedSerial()
	kept := p.pending[:0]
	n := 0
	for _, r := range p.pending {
		if r.serial <= completed {
			p.device.Destroy(r.handle)
			n++
			continue
		}
		kept = append(kept, r)
	}
	clear(p.pending[len(kept):])
	p.pending = kept
	return n
}

// reserveLocked makes room for size bytes under the budget by evicting the
// least recently used unused entries. Caller must hold mu.
func (p *Pool) reserveLocked(size uint64) error {
	if p.budgetBytes == 0 || p.usedBytes+size <= p.budgetBytes {
		return nil
	}
	if size > p.budgetBytes {
		return fmt.Errorf("%w: request of %d MB exceeds total budget %d MB",
			ErrMemoryBudgetExceeded, size/(1024*1024), p.budgetBytes/(1024*1024))
	}

	need := p.usedBytes + size - p.budgetBytes
	candidates := make([]int, 0, len(p.entries))
	for i := range p.entries {
		if !p.used.Test(uint(i)) {
			candidates = append(candidates, i)
		}
	}
	slices.SortFunc(candidates, func(a, b int) int {
		return cmp.Compare(p.entries[a].lastUse, p.entries[b].lastUse)
	})

	victims := make(map[Handle]struct{})
	var freed uint64
	for _, i := range candidates {
		if freed >= need {
			break
		}
		victims[p.entries[i].handle] = struct{}{}
		freed += p.entries[i].size
	}
	if freed < need {
		return fmt.Errorf("%w: need %d bytes, %d bytes reclaimable",
			ErrMemoryBudgetExceeded, need, freed)
	}

	removed := p.removeUnusedLocked(func(e *poolEntry) bool {
		_, ok := victims[e.handle]
		return ok
	})
	serial := p.device.SubmittedSerial()
	for _, e := range removed {
		p.pending = append(p.pending, pendingRelease{handle: e.handle, serial: serial})
	}
	p.evictions += uint64(len(removed))
	p.metrics.RecordFlush(len(removed), false, 0)
	p.log().Warn("framegraph: pool trimmed to fit budget", "evicted", len(removed), "bytes", freed)
	return nil
}

// removeUnusedLocked removes unused entries selected by keep from the pool,
// compacting the entry slice and rebuilding the index and used flags.
// Caller must hold mu.
func (p *Pool) removeUnusedLocked(selected func(*poolEntry) bool) []poolEntry {
	var removed []poolEntry
	kept := p.entries[:0]
	used := bitset.New(uint(len(p.entries)))
	for i := range p.entries {
		e := p.entries[i]
		inUse := p.used.Test(uint(i))
		if !inUse && selected(&e) {
			removed = append(removed, e)
			delete(p.index, e.handle)
			p.usedBytes -= e.size
			continue
		}
		if inUse {
			used.Set(uint(len(kept)))
		}
		p.index[e.handle] = len(kept)
		kept = append(kept, e)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	p.used = used
	return removed
}

// Close waits for the GPU, destroys every resource the pool owns, used or
// not, and marks the pool closed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	entries := p.entries
	pending := p.pending
	p.entries = nil
	p.pending = nil
	p.index = nil
	p.used = bitset.New(0)
	p.usedBytes = 0
	p.mu.Unlock()

	err := p.device.WaitSerial(p.device.SubmittedSerial())
	for _, e := range entries {
		p.device.Destroy(e.handle)
	}
	for _, r := range pending {
		p.device.Destroy(r.handle)
	}
	if err != nil {
		return fmt.Errorf("framegraph: close pool: %w", err)
	}
	return nil
}

// EntryInfo is a snapshot of one pool entry.
type EntryInfo struct {
	Kind    Kind
	Texture TextureDesc
	Buffer  BufferDesc
	Handle  Handle
	Used    bool
	State   Access
	Size    uint64
}

// Entries returns a snapshot of all entries in pool order.
func (p *Pool) Entries() []EntryInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]EntryInfo, len(p.entries))
	for i, e := range p.entries {
		out[i] = EntryInfo{
			Kind:    e.kind,
			Texture: e.tex,
			Buffer:  e.buf,
			Handle:  e.handle,
			Used:    p.used.Test(uint(i)),
			State:   e.state,
			Size:    e.size,
		}
	}
	return out
}

// PoolStats contains pool usage statistics.
type PoolStats struct {
	// Textures and Buffers count live entries per kind.
	Textures int
	Buffers  int

	// InUse counts entries currently acquired.
	InUse int

	// Pending counts resources awaiting destruction.
	Pending int

	// UsedBytes is the estimated memory held by live entries.
	UsedBytes uint64

	// BudgetBytes is the configured budget, 0 when unlimited.
	BudgetBytes uint64

	// Allocations, Reuses and Evictions are lifetime counters.
	Allocations uint64
	Reuses      uint64
	Evictions   uint64
}

// String returns a human-readable summary.
func (s PoolStats) String() string {
	budget := "unlimited"
	if s.BudgetBytes > 0 {
		budget = fmt.Sprintf("%d MB", s.BudgetBytes/(1024*1024))
	}
	return fmt.Sprintf("Pool[%d textures, %d buffers, %d in use, %d pending, %d/%s, %d allocs, %d reuses, %d evictions]",
		s.Textures, s.Buffers, s.InUse, s.Pending,
		s.UsedBytes/(1024*1024), budget,
		s.Allocations, s.Reuses, s.Evictions)
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PoolStats{
		InUse:       int(p.used.Count()), //nolint:gosec // G115: bounded by entry count
		Pending:     len(p.pending),
		UsedBytes:   p.usedBytes,
		BudgetBytes: p.budgetBytes,
		Allocations: p.allocations,
		Reuses:      p.reuses,
		Evictions:   p.evictions,
	}
	for i := range p.entries {
		if p.entries[i].kind == KindTexture {
			s.Textures++
		} else {
			s.Buffers++
		}
	}
	return s
}

// IsPoolError reports whether err originates from the pool's device or
// budget handling rather than from a contract violation.
func IsPoolError(err error) bool {
	return errors.Is(err, ErrAllocation) || errors.Is(err, ErrMemoryBudgetExceeded) || errors.Is(err, ErrPoolClosed)
}
