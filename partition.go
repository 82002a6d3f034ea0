// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"context"
	"log/slog"
	"math"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/entrocakes/cakes/internal/pool"
	"github.com/entrocakes/cakes/internal/rng"
)

// BuildTree partitions ds into a ball-tree hierarchy, seeded for
// reproducibility (spec §4.2). Construction proceeds iteratively over an
// explicit work stack rather than native recursion so that skewed datasets
// producing trees thousands of levels deep cannot overflow the call stack
// (spec §4.2 "Avoiding deep recursion"; §9). When opts.Parallel is set, it
// dispatches to ParBuildTree instead, producing an identical tree built
// with independent child subtrees fanned out across a worker pool.
func BuildTree[I any, U Number](ds Dataset[I, U], opts BuildOptions[U]) *Ball[U] {
	if opts.Parallel {
		return ParBuildTree[I, U](ds, opts)
	}

	n := ds.Cardinality()
	if n == 0 {
		panic(&InvariantViolation{Msg: "cannot build a tree over an empty dataset"})
	}

	buildID := uuid.NewString()
	bufs := pool.New()

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	root := &Ball[U]{BuildID: buildID}

	type task struct {
		node    *Ball[U]
		indices []int
		depth   int
		seed    uint64
	}

	stack := []task{{root, all, 0, opts.Seed}}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fillNodeMeta(ds, t.node, t.indices, t.depth, t.seed, buildID, opts.MaxSampleSize)

		if stopPartitioning(t.node, t.depth, opts) {
			continue
		}

		children := computeChildren(ds, t.indices, t.depth, t.seed, opts, bufs)
		edges := make([]ChildEdge[U], len(children))
		for i, c := range children {
			childNode := &Ball[U]{BuildID: buildID}
			edges[i] = ChildEdge[U]{Extremum: c.extremum, Extent: c.extent, Child: childNode}
			stack = append(stack, task{childNode, c.indices, t.depth + 1, c.seed})
		}
		t.node.children = edges

		if opts.Logger != nil && t.depth == 0 {
			opts.Logger.Debug("cakes: partitioned root", slog.Int("cardinality", t.node.Cardinality()), slog.Int("children", len(edges)))
		}
	}

	return root
}

// ParBuildTree is the concurrent sibling of BuildTree: independent child
// subtrees are built on a bounded worker pool (golang.org/x/sync/errgroup),
// while each child's extrema-sampling seed is derived deterministically
// from its parent's seed and its sibling index (internal/rng.ChildSeed), so
// the resulting tree is identical to BuildTree's regardless of scheduling
// order (spec §4.2 "Parallel variant"; §5 "Ordering guarantees"). It always
// builds in parallel, independent of opts.Parallel, which only controls
// BuildTree's dispatch; call it directly when a caller wants concurrent
// construction unconditionally rather than via an option.
func ParBuildTree[I any, U Number](ds Dataset[I, U], opts BuildOptions[U]) *Ball[U] {
	n := ds.Cardinality()
	if n == 0 {
		panic(&InvariantViolation{Msg: "cannot build a tree over an empty dataset"})
	}

	buildID := uuid.NewString()
	bufs := pool.New()
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	var build func(indices []int, depth int, seed uint64) *Ball[U]
	build = func(indices []int, depth int, seed uint64) *Ball[U] {
		node := &Ball[U]{BuildID: buildID}
		fillNodeMeta(ds, node, indices, depth, seed, buildID, opts.MaxSampleSize)
		if stopPartitioning(node, depth, opts) {
			return node
		}

		children := computeChildren(ds, indices, depth, seed, opts, bufs)
		built := make([]*Ball[U], len(children))

		g, _ := errgroup.WithContext(context.Background())
		for i, c := range children {
			i, c := i, c
			select {
			case sem <- struct{}{}:
				g.Go(func() error {
					defer func() { <-sem }()
					built[i] = build(c.indices, depth+1, c.seed)
					return nil
				})
			default:
				// Pool saturated: build inline rather than block forever on
				// an unbuffered fan-out.
				built[i] = build(c.indices, depth+1, c.seed)
			}
		}
		_ = g.Wait()

		edges := make([]ChildEdge[U], len(children))
		for i, c := range children {
			edges[i] = ChildEdge[U]{Extremum: c.extremum, Extent: c.extent, Child: built[i]}
		}
		node.children = edges
		return node
	}

	return build(all, 0, opts.Seed)
}

// fillNodeMeta computes a node's center, radial, radius, and LFD in place
// (spec §4.2 "Extrema selection" step 1 and "LFD").
func fillNodeMeta[I any, U Number](ds Dataset[I, U], node *Ball[U], indices []int, depth int, seed uint64, buildID string, maxSampleSize int) {
	node.depth = depth
	node.indices = indices
	node.BuildID = buildID

	if len(indices) == 1 {
		node.argCenter = indices[0]
		node.argRadial = indices[0]
		node.radius = 0
		node.lfd = 1.0
		return
	}

	r := rng.New(seed)
	sample := indices
	if len(indices) > maxSampleSize {
		sample = rng.Sample(r, indices, maxSampleSize)
	}

	argCenter := argminSumDistance(ds, sample)
	dists := ds.OneToMany(argCenter, indices)
	argRadial, radius := argmaxByValue(indices, dists)

	node.argCenter = argCenter
	node.argRadial = argRadial
	node.radius = radius
	node.lfd = computeLFD(dists, radius)
}

// stopPartitioning applies the unconditional stopping rules (cardinality
// <= 1, radius < Epsilon, depth cap) before consulting the caller's
// ShouldPartition predicate (spec §4.2 "Stopping").
func stopPartitioning[U Number](node *Ball[U], depth int, opts BuildOptions[U]) bool {
	if node.Cardinality() <= 1 {
		return true
	}
	if node.radius < Epsilon[U]() {
		return true
	}
	if depth >= opts.MaxDepth {
		if opts.Logger != nil {
			opts.Logger.Warn("cakes: hit max build depth, stopping partition", slog.Int("depth", depth), slog.Int("cardinality", node.Cardinality()))
		}
		return true
	}
	return !opts.ShouldPartition(node)
}

type childSpec[U Number] struct {
	indices  []int
	extremum int
	extent   U
	seed     uint64
}

// computeChildren selects extrema, assigns every non-extremum index to its
// nearest extremum, and returns one childSpec per resulting child (spec
// §4.2 "Extrema selection" step 2 and "Assignment").
func computeChildren[I any, U Number](ds Dataset[I, U], indices []int, depth int, seed uint64, opts BuildOptions[U], bufs *pool.IndexSlicePool) []childSpec[U] {
	r := rng.New(seed)
	sample := indices
	if len(indices) > opts.MaxSampleSize {
		sample = rng.Sample(r, indices, opts.MaxSampleSize)
	}
	argCenter := argminSumDistance(ds, sample)
	_ = argCenter // center already known on node; recomputed here only for extrema seeding determinism parity.

	// Seed extrema with the radial point (farthest from argCenter).
	centerDists := ds.OneToMany(argCenter, indices)
	argRadial, _ := argmaxByValue(indices, centerDists)

	posOf := make(map[int]int, len(indices))
	for k, idx := range indices {
		posOf[idx] = k
	}

	extrema := []int{argRadial}
	isExtremum := map[int]bool{argRadial: true}

	distToExtrema := make([][]U, 0, opts.BranchingFactor)
	first := ds.OneToMany(argRadial, indices)
	distToExtrema = append(distToExtrema, first)

	minDist := make([]U, len(indices))
	copy(minDist, first)

	for len(extrema) < opts.BranchingFactor {
		best := -1
		var bestVal U
		for k, idx := range indices {
			if isExtremum[idx] {
				continue
			}
			v := minDist[k]
			if best == -1 || v > bestVal || (v == bestVal && idx < indices[best]) {
				best = k
				bestVal = v
			}
		}
		if best == -1 {
			break
		}
		newExt := indices[best]
		extrema = append(extrema, newExt)
		isExtremum[newExt] = true
		d := ds.OneToMany(newExt, indices)
		distToExtrema = append(distToExtrema, d)
		for k := range indices {
			if d[k] < minDist[k] {
				minDist[k] = d[k]
			}
		}
	}

	if len(extrema) < 2 {
		panic(&InvariantViolation{Msg: "partitioner selected fewer than two extrema for a node eligible to split"})
	}

	assigned := make([][]int, len(extrema))
	for e, idx := range extrema {
		assigned[e] = bufs.Get(4)
		assigned[e] = append(assigned[e], idx)
	}

	for k, idx := range indices {
		if isExtremum[idx] {
			continue
		}
		bestE := 0
		bestVal := distToExtrema[0][k]
		for e := 1; e < len(extrema); e++ {
			v := distToExtrema[e][k]
			if v < bestVal || (v == bestVal && extrema[e] < extrema[bestE]) {
				bestVal = v
				bestE = e
			}
		}
		assigned[bestE] = append(assigned[bestE], idx)
	}

	children := make([]childSpec[U], len(extrema))
	for e, idx := range extrema {
		var extent U
		for _, member := range assigned[e] {
			d := distToExtrema[e][posOf[member]]
			if d > extent {
				extent = d
			}
		}
		memberCopy := make([]int, len(assigned[e]))
		copy(memberCopy, assigned[e])
		bufs.Put(assigned[e])
		children[e] = childSpec[U]{
			indices:  memberCopy,
			extremum: idx,
			extent:   extent,
			seed:     rng.ChildSeed(seed, e),
		}
	}

	return children
}

// argminSumDistance returns the index in sample minimizing the sum of
// distances to every other member of sample, the approximate geometric
// median of spec §4.2 step 1. Ties favor the lowest index.
func argminSumDistance[I any, U Number](ds Dataset[I, U], sample []int) int {
	if len(sample) == 1 {
		return sample[0]
	}
	best := sample[0]
	var bestSum U
	first := true
	for _, i := range sample {
		var sum U
		var dists []U
		if ds.Expensive() {
			dists = ds.ParOneToMany(i, sample)
		} else {
			dists = ds.OneToMany(i, sample)
		}
		for _, d := range dists {
			sum += d
		}
		if first || sum < bestSum || (sum == bestSum && i < best) {
			best = i
			bestSum = sum
			first = false
		}
	}
	return best
}

// argmaxByValue returns the index (from indices) achieving the maximum
// value in the parallel dists slice, and that maximum value. Ties favor
// the lowest index.
func argmaxByValue[U Number](indices []int, dists []U) (int, U) {
	best := indices[0]
	bestVal := dists[0]
	for k := 1; k < len(indices); k++ {
		if dists[k] > bestVal || (dists[k] == bestVal && indices[k] < best) {
			best = indices[k]
			bestVal = dists[k]
		}
	}
	return best, bestVal
}

// computeLFD implements spec §4.2 "LFD": log2(|I| / |{j : d(center,j) <=
// radius/2}|), or 1.0 when the denominator is non-positive or the radius
// is zero.
func computeLFD[U Number](dists []U, radius U) float64 {
	if radius == 0 {
		return 1.0
	}
	half := radius / 2
	count := 0
	for _, d := range dists {
		if d <= half {
			count++
		}
	}
	if count <= 0 {
		return 1.0
	}
	return math.Log2(float64(len(dists)) / float64(count))
}
