// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrocakes/cakes/internal/vecdata"
)

// P2: every member of a node lies within the node's radius of its center.
func TestPropertyRadiusBound(t *testing.T) {
	r := rand.New(rand.NewPCG(100, 100))
	items := make([]float64, 300)
	for i := range items {
		items[i] = r.Float64() * 500
	}
	ds := vecdata.New[float64, float64](items, abs1D, true, true, true, false)
	opts := NewBuildOptions[float64](WithSeed[float64](17))
	root := BuildTree[float64, float64](ds, opts)

	var walk func(n *Ball[float64])
	walk = func(n *Ball[float64]) {
		center := ds.Get(n.ArgCenter())
		for _, idx := range n.Indices() {
			assert.LessOrEqual(t, abs1D(center, ds.Get(idx)), n.Radius())
		}
		for _, ce := range n.Children() {
			walk(ce.Child.(*Ball[float64]))
		}
	}
	walk(root)
}

// P5: decode(ref, encode(ref, x)) == x for every leaf item.
func TestPropertyEncodeDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(101, 101))
	items := make([]float64, 80)
	for i := range items {
		items[i] = r.Float64()*2000 - 1000
	}
	ds := vecdata.New[float64, float64](items, abs1D, true, true, true, false)
	enc := float64DeltaEncoder{}

	for i := 0; i < len(items); i++ {
		for j := 0; j < len(items); j++ {
			ref, target := ds.Get(i), ds.Get(j)
			got := enc.Decode(ref, enc.Encode(ref, target))
			assert.InDelta(t, target, got, 1e-9)
		}
	}
}

// P8: building a tree twice with the same seed yields identical structure,
// centers, radii and LFDs.
func TestPropertyBuildIdempotenceAcrossSeeds(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 999} {
		ds1 := line(90)
		ds2 := line(90)
		opts := NewBuildOptions[float64](WithSeed[float64](seed))

		r1 := BuildTree[float64, float64](ds1, opts)
		r2 := BuildTree[float64, float64](ds2, opts)

		assert.Equal(t, fullFingerprint(r1), fullFingerprint(r2), "seed=%d", seed)
	}
}

func fullFingerprint[U Number](n *Ball[U]) string {
	s := ""
	var walk func(n *Ball[U])
	walk = func(n *Ball[U]) {
		s += intsToString(n.Indices()) + "|"
		s += intsToString([]int{n.ArgCenter(), n.ArgRadial()}) + "|"
		s += fmt.Sprintf("%v|%v|", n.Radius(), n.LFD())
		for _, ce := range n.Children() {
			walk(ce.Child.(*Ball[U]))
		}
	}
	walk(n)
	return s
}

// S1: ten points on the real line, query at the origin, k=3.
func TestScenarioS1NearestThreeOnTheLine(t *testing.T) {
	items := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ds := vecdata.New[float64, float64](items, abs1D, true, true, true, false)
	opts := NewBuildOptions[float64]()
	root := BuildTree[float64, float64](ds, opts)

	hits := Knn[float64, float64](ds, root, 0.0, 3, DepthFirst)
	require.Len(t, hits, 3)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	assert.Equal(t, []float64{1, 2, 3}, []float64{hits[0].Distance, hits[1].Distance, hits[2].Distance})
	assert.Equal(t, []int{0, 1, 2}, hitIndices[float64](hits))
}

// S3: a 21x21 integer grid centered on the origin, query=(0,0), k=5. The
// origin is itself a grid point, so the nearest hit is the origin at
// distance 0, followed by its four axis neighbors at distance 1.
func TestScenarioS3GridAxisNeighbors(t *testing.T) {
	type pt struct{ x, y int }
	euclid := func(a, b pt) float64 {
		dx, dy := float64(a.x-b.x), float64(a.y-b.y)
		return math.Sqrt(dx*dx + dy*dy)
	}

	var items []pt
	for x := -10; x <= 10; x++ {
		for y := -10; y <= 10; y++ {
			items = append(items, pt{x, y})
		}
	}
	ds := vecdata.New[pt, float64](items, euclid, true, true, true, false)
	opts := NewBuildOptions[float64](WithSeed[float64](77))
	root := BuildTree[pt, float64](ds, opts)

	hits := Knn[pt, float64](ds, root, pt{0, 0}, 5, DepthFirst)
	require.Len(t, hits, 5)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	for _, h := range hits[1:] {
		assert.InDelta(t, 1.0, h.Distance, 1e-9)
	}
}

// S4-style scenario: clumps of near-identical strings under Levenshtein
// distance, with every search variant agreeing on index sets (P6) and RNN
// returning at least the query's own clump.
func levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return float64(prev[len(rb)])
}

func mutate(r *rand.Rand, s string, edits int) string {
	alphabet := "abcdefghij"
	b := []rune(s)
	for e := 0; e < edits; e++ {
		pos := r.IntN(len(b))
		b[pos] = rune(alphabet[r.IntN(len(alphabet))])
	}
	return string(b)
}

func TestScenarioS4LevenshteinClumpsAgreeAcrossAlgorithms(t *testing.T) {
	r := rand.New(rand.NewPCG(202, 202))
	const clumps, perClump = 6, 6
	var items []string
	var clumpOf []int
	seeds := make([]string, clumps)
	for c := 0; c < clumps; c++ {
		base := make([]rune, 20)
		for i := range base {
			base[i] = rune("abcdefghij"[r.IntN(10)])
		}
		seeds[c] = string(base)
		for p := 0; p < perClump; p++ {
			items = append(items, mutate(r, seeds[c], 1))
			clumpOf = append(clumpOf, c)
		}
	}

	ds := vecdata.New[string, float64](items, levenshtein, true, true, true, true)
	opts := NewBuildOptions[float64](WithSeed[float64](303))
	root := BuildTree[string, float64](ds, opts)

	query := seeds[0]
	algos := []KnnAlgorithm{Linear, RepeatedRnn, BreadthFirst, DepthFirst}
	want := hitIndices[float64](Knn[string, float64](ds, root, query, perClump, Linear))
	for _, algo := range algos {
		got := hitIndices[float64](Knn[string, float64](ds, root, query, perClump, algo))
		assert.Equal(t, want, got, "algo=%v", algo)
	}

	rnnHits := RNN[string, float64](ds, root, query, 8.0)
	rnnIdx := map[int]bool{}
	for _, h := range rnnHits {
		rnnIdx[h.Index] = true
	}
	for i, c := range clumpOf {
		if c == 0 {
			assert.True(t, rnnIdx[i], "clump 0 member %d missing from RNN(radius=8)", i)
		}
	}
}
