// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrocakes/cakes/internal/vecdata"
)

func abs1D(a, b float64) float64 { return math.Abs(a - b) }

func line(n int) *vecdata.Dataset[float64, float64] {
	items := make([]float64, n)
	for i := range items {
		items[i] = float64(i)
	}
	return vecdata.New[float64, float64](items, abs1D, true, true, true, false)
}

// collectIndices gathers every leaf's membership across the tree.
func collectIndices[U Number](root Node[U]) []int {
	var out []int
	stack := []Node[U]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			out = append(out, n.Indices()...)
			continue
		}
		for _, ce := range n.Children() {
			stack = append(stack, ce.Child)
		}
	}
	return out
}

func TestBuildTreePartitionsEveryIndexExactlyOnce(t *testing.T) {
	ds := line(50)
	opts := NewBuildOptions[float64](WithSeed[float64](1))
	root := BuildTree[float64, float64](ds, opts)

	got := collectIndices[float64](root)
	require.Len(t, got, 50)
	seen := map[int]bool{}
	for _, idx := range got {
		assert.False(t, seen[idx], "index %d appears more than once", idx)
		seen[idx] = true
	}
	for i := 0; i < 50; i++ {
		assert.True(t, seen[i], "index %d missing from tree", i)
	}
}

func TestBuildTreeLeavesAreSingletonsUnderDefaultPredicate(t *testing.T) {
	ds := line(30)
	opts := NewBuildOptions[float64](WithSeed[float64](2))
	root := BuildTree[float64, float64](ds, opts)

	stack := []Node[float64]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			assert.LessOrEqual(t, n.Cardinality(), 1)
			continue
		}
		for _, ce := range n.Children() {
			stack = append(stack, ce.Child)
		}
	}
}

func TestBuildTreeRadiusNeverIncreasesDownward(t *testing.T) {
	ds := line(60)
	opts := NewBuildOptions[float64](WithSeed[float64](3))
	root := BuildTree[float64, float64](ds, opts)

	var walk func(n Node[float64])
	walk = func(n Node[float64]) {
		for _, ce := range n.Children() {
			assert.LessOrEqual(t, ce.Child.Radius(), n.Radius(),
				"child radius must not exceed parent radius")
			walk(ce.Child)
		}
	}
	walk(root)
}

func TestBuildTreeMinCardinalityStopsEarlier(t *testing.T) {
	ds := line(40)
	opts := NewBuildOptions[float64](WithSeed[float64](4), WithShouldPartition[float64](MinCardinality[float64](5)))
	root := BuildTree[float64, float64](ds, opts)

	stack := []Node[float64]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			assert.LessOrEqual(t, n.Cardinality(), 5)
			continue
		}
		for _, ce := range n.Children() {
			stack = append(stack, ce.Child)
		}
	}
}

func TestBuildTreeDeterministicGivenSeed(t *testing.T) {
	ds1 := line(40)
	ds2 := line(40)
	opts := NewBuildOptions[float64](WithSeed[float64](99))

	r1 := BuildTree[float64, float64](ds1, opts)
	r2 := BuildTree[float64, float64](ds2, opts)

	assert.Equal(t, structuralFingerprint(r1), structuralFingerprint(r2))
}

func TestParBuildTreeMatchesSequential(t *testing.T) {
	ds1 := line(80)
	ds2 := line(80)
	opts := NewBuildOptions[float64](WithSeed[float64](123))

	seq := BuildTree[float64, float64](ds1, opts)
	par := ParBuildTree[float64, float64](ds2, opts)

	assert.Equal(t, structuralFingerprint(seq), structuralFingerprint(par))
}

func TestWithParallelDispatchesBuildTreeToParBuildTree(t *testing.T) {
	ds1 := line(80)
	ds2 := line(80)
	opts := NewBuildOptions[float64](WithSeed[float64](124))
	parOpts := NewBuildOptions[float64](WithSeed[float64](124), WithParallel[float64](true))

	seq := BuildTree[float64, float64](ds1, opts)
	dispatched := BuildTree[float64, float64](ds2, parOpts)

	assert.Equal(t, structuralFingerprint(seq), structuralFingerprint(dispatched))
}

func TestBuildTreePanicsOnEmptyDataset(t *testing.T) {
	ds := line(0)
	opts := NewBuildOptions[float64]()
	assert.Panics(t, func() { BuildTree[float64, float64](ds, opts) })
}

// structuralFingerprint renders a tree's shape, as every node's membership
// in pre-order, as a comparable string, independent of pointer identity,
// for determinism assertions between two independently built trees.
func structuralFingerprint[U Number](n Node[U]) string {
	s := ""
	var walk func(n Node[U])
	walk = func(n Node[U]) {
		s += intsToString(n.Indices()) + "|"
		for _, ce := range n.Children() {
			walk(ce.Child)
		}
	}
	walk(n)
	return s
}

func intsToString(xs []int) string {
	out := ""
	for _, x := range xs {
		out += string(rune('a' + x%26))
	}
	return out
}
