// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

// Package pool provides a type-safe, statistics-tracking wrapper around
// sync.Pool, adapted from the teacher's node pool (which reused *node[V]
// trie nodes) to instead reuse the []int index-assignment scratch buffers
// that the partitioner allocates at every recursion step. A ball tree's
// construction is dominated by exactly these transient "which indices go to
// which child" slices, so the adaptation keeps the teacher's pooling idiom
// while repurposing it for this package's actual allocation hot spot.
package pool

import (
	"sync"
	"sync/atomic"
)

// IndexSlicePool reuses []int buffers of at least a requested capacity.
type IndexSlicePool struct {
	pool sync.Pool

	totalAllocated atomic.Int64
	currentLive    atomic.Int64
}

// New creates a ready-to-use IndexSlicePool.
func New() *IndexSlicePool {
	p := &IndexSlicePool{}
	p.pool.New = func() any {
		p.totalAllocated.Add(1)
		s := make([]int, 0, 16)
		return &s
	}
	return p
}

// Get returns a zero-length slice with at least capacity cap. If p is nil,
// a fresh slice is allocated and tracking is skipped.
func (p *IndexSlicePool) Get(capHint int) []int {
	if p == nil {
		return make([]int, 0, capHint)
	}
	p.currentLive.Add(1)
	s := *(p.pool.Get().(*[]int))
	if cap(s) < capHint {
		s = make([]int, 0, capHint)
	}
	return s[:0]
}

// Put returns a slice to the pool for reuse. If p is nil, the slice is
// discarded.
func (p *IndexSlicePool) Put(s []int) {
	if p == nil {
		return
	}
	p.currentLive.Add(-1)
	s = s[:0]
	p.pool.Put(&s)
}

// Stats returns the number of currently checked-out buffers and the total
// ever allocated, for build diagnostics.
func (p *IndexSlicePool) Stats() (live, total int64) {
	if p == nil {
		return 0, 0
	}
	return p.currentLive.Load(), p.totalAllocated.Load()
}
