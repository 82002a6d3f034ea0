// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import "sort"

// PermutableDataset is the combination Adapt/BuildCompressed need: a
// Dataset that can also be physically reordered in place.
type PermutableDataset[I any, U Number] interface {
	Dataset[I, U]
	Permutable
}

// SquishyChildEdge mirrors ChildEdge but keeps the concrete *SquishyBall
// type so Trim can recurse without a type assertion.
type SquishyChildEdge[U Number] struct {
	Extremum int
	Extent   U
	Child    *SquishyBall[U]
}

// SquishyBall augments an OffsetBall with the cost metadata spec §6
// ("Compression") uses to decide whether a subtree is cheaper to store as
// one compressed leaf (unitaryCost) than as its children stored
// separately, recursively (recursiveCost). Trim applies that decision,
// collapsing any subtree where the unitary encoding is no more expensive.
type SquishyBall[U Number] struct {
	*OffsetBall[U]

	children      []SquishyChildEdge[U]
	unitaryCost   int
	recursiveCost int
	leaf          bool
}

var _ Node[float64] = (*SquishyBall[float64])(nil)

// IsLeaf reports whether this node is a tree leaf or has been collapsed by
// Trim, shadowing the embedded OffsetBall's structural leaf status.
func (s *SquishyBall[U]) IsLeaf() bool { return s.leaf || len(s.children) == 0 }

// Children shadows OffsetBall.Children to respect Trim's collapse
// decision: a trimmed node reports no children even if its underlying
// OffsetBall originally had some.
func (s *SquishyBall[U]) Children() []ChildEdge[U] {
	if s.IsLeaf() {
		return nil
	}
	out := make([]ChildEdge[U], len(s.children))
	for i, ce := range s.children {
		out[i] = ChildEdge[U]{Extremum: ce.Extremum, Extent: ce.Extent, Child: ce.Child}
	}
	return out
}

// UnitaryCost returns the encoded byte size if this subtree were stored as
// a single compressed leaf.
func (s *SquishyBall[U]) UnitaryCost() int { return s.unitaryCost }

// RecursiveCost returns the encoded byte size if each child chooses its
// own best encoding independently.
func (s *SquishyBall[U]) RecursiveCost() int { return s.recursiveCost }

// BuildSquishyBall computes unitary and recursive costs bottom-up over ob,
// using encoder to measure each candidate leaf's encoded size against ds.
// It does not trim; call Trim on the result to apply the cost decision.
func BuildSquishyBall[I any, U Number](ds Dataset[I, U], encoder Encoder[I], ob *OffsetBall[U]) *SquishyBall[U] {
	var preorder []*OffsetBall[U]
	stack := []*OffsetBall[U]{ob}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		preorder = append(preorder, n)
		for _, ce := range n.Children() {
			stack = append(stack, ce.Child.(*OffsetBall[U]))
		}
	}

	byNode := make(map[*OffsetBall[U]]*SquishyBall[U], len(preorder))
	for i := len(preorder) - 1; i >= 0; i-- {
		n := preorder[i]
		leafBytes := encodeLeaf(ds, encoder, n)
		sb := &SquishyBall[U]{OffsetBall: n, unitaryCost: len(leafBytes)}

		edges := n.Children()
		if len(edges) == 0 {
			sb.recursiveCost = sb.unitaryCost
			sb.leaf = true
			byNode[n] = sb
			continue
		}

		children := make([]SquishyChildEdge[U], len(edges))
		recSum := 0
		for j, ce := range edges {
			childOb := ce.Child.(*OffsetBall[U])
			childSb := byNode[childOb]
			children[j] = SquishyChildEdge[U]{Extremum: ce.Extremum, Extent: ce.Extent, Child: childSb}
			recSum += minInt(childSb.unitaryCost, childSb.recursiveCost)
		}
		sb.children = children
		sb.recursiveCost = recSum
		byNode[n] = sb
	}

	return byNode[ob]
}

// Trim collapses any subtree whose unitary cost is no greater than its
// recursive cost into a single compressed leaf, recursing into kept
// children otherwise (spec §6 "Trim").
func (s *SquishyBall[U]) Trim() {
	if len(s.children) == 0 {
		s.leaf = true
		return
	}
	if s.unitaryCost <= s.recursiveCost {
		s.leaf = true
		s.children = nil
		return
	}
	for _, ce := range s.children {
		ce.Child.Trim()
	}
}

// encodeLeaf serializes every member of ob, in offset order, as a delta
// against ob's center: [arg_center:u64][cardinality:u64] followed by
// cardinality repetitions of [encoding_length:u64][encoding bytes] (spec
// §6 "leaf byte layout").
func encodeLeaf[I any, U Number](ds Dataset[I, U], encoder Encoder[I], ob *OffsetBall[U]) []byte {
	ref := ds.Get(ob.ArgCenter())
	buf := make([]byte, 0, 16+16*ob.Cardinality())
	buf = putUint64(buf, uint64(ob.ArgCenter()))
	buf = putUint64(buf, uint64(ob.Cardinality()))
	for _, idx := range ob.Indices() {
		enc := encoder.Encode(ref, ds.Get(idx))
		buf = putUint64(buf, uint64(len(enc)))
		buf = append(buf, enc...)
	}
	return buf
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BuildCompressed adapts root's dataset into offset form, computes and
// applies the squishy-ball trim decision, and serializes every resulting
// leaf into a CompressedDataset. dist is the item-to-item metric used by
// the compressed dataset's decoded members, which are reconstructed values
// rather than indices back into ds.
func BuildCompressed[I any, U Number](ds PermutableDataset[I, U], encoder Encoder[I], dist func(a, b I) U, root *Ball[U]) (*CompressedDataset[I, U], *SquishyBall[U], []int) {
	ob, sigma := Adapt[U](ds, root)
	sq := BuildSquishyBall[I, U](ds, encoder, ob)
	sq.Trim()

	type leafInfo struct {
		offset int
		bytes  []byte
		center int
	}
	var leaves []leafInfo
	stack := []*SquishyBall[U]{sq}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			leaves = append(leaves, leafInfo{n.Offset(), encodeLeaf(ds, encoder, n.OffsetBall), n.ArgCenter()})
			continue
		}
		for _, ce := range n.children {
			stack = append(stack, ce.Child)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].offset < leaves[j].offset })

	centers := make(map[int]I, len(leaves))
	var buf []byte
	leafKeys := make([]int, len(leaves))
	leafStart := make([]int, len(leaves))
	for i, l := range leaves {
		leafKeys[i] = l.offset
		leafStart[i] = len(buf)
		buf = append(buf, l.bytes...)
		centers[l.center] = ds.Get(l.center)
	}

	cds := NewCompressedDataset[I, U](
		root.Cardinality(), centers, buf, leafKeys, leafStart,
		encoder, dist,
		ds.Identity(), ds.Symmetry(), ds.TriangleInequality(), ds.Expensive(),
		root.BuildID,
	)
	return cds, sq, sigma
}
