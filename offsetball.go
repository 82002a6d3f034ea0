// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// OffsetBall is the permuted sibling of Ball: instead of storing its own
// index slice, it records an offset and cardinality into a dataset that has
// been physically reordered (via Permutable.Permute) so that every node's
// membership is the contiguous range [offset, offset+cardinality) (spec
// §4.4 "Offset adaptation"). This trades a per-node slice allocation and an
// indirection for O(1) membership tests and cache-friendly scans.
type OffsetBall[U Number] struct {
	depth       int
	offset      int
	cardinality int
	argCenter   int
	argRadial   int
	radius      U
	lfd         float64
	children    []ChildEdge[U]

	BuildID string
}

var _ Node[float64] = (*OffsetBall[float64])(nil)

func (o *OffsetBall[U]) Depth() int       { return o.depth }
func (o *OffsetBall[U]) Cardinality() int { return o.cardinality }
func (o *OffsetBall[U]) ArgCenter() int   { return o.argCenter }
func (o *OffsetBall[U]) ArgRadial() int   { return o.argRadial }
func (o *OffsetBall[U]) Radius() U        { return o.radius }
func (o *OffsetBall[U]) LFD() float64     { return o.lfd }
func (o *OffsetBall[U]) IsLeaf() bool     { return len(o.children) == 0 }

// Offset returns the start of this node's contiguous range in the adapted
// dataset's current order.
func (o *OffsetBall[U]) Offset() int { return o.offset }

// Indices materializes this node's membership as [offset, offset+card).
func (o *OffsetBall[U]) Indices() []int {
	out := make([]int, o.cardinality)
	for i := range out {
		out[i] = o.offset + i
	}
	return out
}

func (o *OffsetBall[U]) Children() []ChildEdge[U] {
	if o.children == nil {
		return nil
	}
	out := make([]ChildEdge[U], len(o.children))
	copy(out, o.children)
	return out
}

type offsetAssignment[U Number] struct {
	src    *Ball[U]
	offset int
}

// planOffsets walks root in pre-order, assigning each node the offset at
// which its subtree's contiguous block begins. This pass must run
// sequentially: offsets are a running prefix sum over cardinalities and
// each node's offset depends on every node visited before it in pre-order
// (spec §4.4 "offset assignment ... inherently sequential").
func planOffsets[U Number](root *Ball[U]) []offsetAssignment[U] {
	order := make([]offsetAssignment[U], 0, root.Cardinality())
	type frame struct {
		node   *Ball[U]
		offset int
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, offsetAssignment[U]{f.node, f.offset})

		if f.node.IsLeaf() {
			continue
		}
		children := f.node.children
		childFrames := make([]frame, len(children))
		running := f.offset
		for i, ce := range children {
			cb := ce.Child.(*Ball[U])
			childFrames[i] = frame{cb, running}
			running += cb.Cardinality()
		}
		for i := len(childFrames) - 1; i >= 0; i-- {
			stack = append(stack, childFrames[i])
		}
	}
	return order
}

// buildSigmaAndPositions derives the permutation sigma (sigma[newPos] =
// oldIndex) from the offset plan, by copying each leaf's membership
// directly into its assigned range, plus the inverse map from an old index
// to its new position (needed to remap ArgCenter/ArgRadial, which were
// recorded against the dataset's pre-permutation indices).
func buildSigmaAndPositions[U Number](root *Ball[U], order []offsetAssignment[U]) (sigma []int, positionOf []int) {
	n := root.Cardinality()
	sigma = make([]int, n)
	for _, a := range order {
		if !a.src.IsLeaf() {
			continue
		}
		copy(sigma[a.offset:a.offset+a.src.Cardinality()], a.src.Indices())
	}
	positionOf = make([]int, n)
	for pos, old := range sigma {
		positionOf[old] = pos
	}
	return sigma, positionOf
}

// assembleOffsetBalls turns the offset plan into a tree of *OffsetBall,
// remapping every ArgCenter/ArgRadial through positionOf. build is the
// per-node constructor (sequential loop or parallel fan-out).
func assembleOffsetBalls[U Number](order []offsetAssignment[U], positionOf []int, buildID string, build func(f func(offsetAssignment[U]) *OffsetBall[U]) []*OffsetBall[U]) *OffsetBall[U] {
	makeNode := func(a offsetAssignment[U]) *OffsetBall[U] {
		return &OffsetBall[U]{
			depth:       a.src.Depth(),
			offset:      a.offset,
			cardinality: a.src.Cardinality(),
			argCenter:   positionOf[a.src.ArgCenter()],
			argRadial:   positionOf[a.src.ArgRadial()],
			radius:      a.src.Radius(),
			lfd:         a.src.LFD(),
			BuildID:     buildID,
		}
	}
	built := build(makeNode)

	byBall := make(map[*Ball[U]]*OffsetBall[U], len(order))
	for i, a := range order {
		byBall[a.src] = built[i]
	}
	for i, a := range order {
		if a.src.IsLeaf() {
			continue
		}
		edges := make([]ChildEdge[U], len(a.src.children))
		for j, ce := range a.src.children {
			childBall := ce.Child.(*Ball[U])
			edges[j] = ChildEdge[U]{
				Extremum: positionOf[ce.Extremum],
				Extent:   ce.Extent,
				Child:    byBall[childBall],
			}
		}
		built[i].children = edges
	}
	return byBall[order[0].src]
}

// Adapt permutes ds so that every node of root occupies a contiguous index
// range, returning the equivalent OffsetBall tree and the permutation that
// was applied (spec §4.4). root must have been built over ds in its
// current, pre-adaptation order.
func Adapt[U Number](ds Permutable, root *Ball[U]) (*OffsetBall[U], []int) {
	order := planOffsets(root)
	sigma, positionOf := buildSigmaAndPositions(root, order)

	tree := assembleOffsetBalls(order, positionOf, root.BuildID, func(f func(offsetAssignment[U]) *OffsetBall[U]) []*OffsetBall[U] {
		built := make([]*OffsetBall[U], len(order))
		for i, a := range order {
			built[i] = f(a)
		}
		return built
	})

	ds.Permute(sigma)
	return tree, sigma
}

// ParAdapt is Adapt's concurrent sibling: the offset-assignment pass still
// runs sequentially (it must, see planOffsets), but the independent
// per-node OffsetBall construction fans out across an errgroup-bounded
// pool (spec §4.4 "parallel child adaptation").
func ParAdapt[U Number](ds Permutable, root *Ball[U]) (*OffsetBall[U], []int) {
	order := planOffsets(root)
	sigma, positionOf := buildSigmaAndPositions(root, order)

	tree := assembleOffsetBalls(order, positionOf, root.BuildID, func(f func(offsetAssignment[U]) *OffsetBall[U]) []*OffsetBall[U] {
		built := make([]*OffsetBall[U], len(order))
		var g errgroup.Group
		g.SetLimit(runtime.GOMAXPROCS(0))
		const chunkSize = 256
		for start := 0; start < len(order); start += chunkSize {
			end := start + chunkSize
			if end > len(order) {
				end = len(order)
			}
			start, end := start, end
			g.Go(func() error {
				for i := start; i < end; i++ {
					built[i] = f(order[i])
				}
				return nil
			})
		}
		_ = g.Wait()
		return built
	})

	ds.Permute(sigma)
	return tree, sigma
}
