// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"sort"
	"unsafe"
)

type bfPointCandidate[U Number] struct {
	index    int
	distance U
}

type bfNodeCandidate[U Number] struct {
	node       Node[U]
	dMin, dMax U
}

// knnBreadthFirst expands the tree level by level. At each round it
// computes a threshold tau: the smallest dMax such that the combined
// weight (point candidates count 1, unexpanded node candidates count their
// full cardinality as a worst-case bound) of everything with dMax <= tau
// reaches k. Node candidates are then split by the sieve: dMin > tau is
// not_needed and dropped; leaves with dMin <= tau are expanded into exact
// point candidates; internal nodes with dMin <= tau are expanded into
// their children for the next round (spec §4.3 "Breadth-first").
func knnBreadthFirst[I any, U Number](ds Dataset[I, U], root Node[U], query I, k int) []Hit[U] {
	var points []bfPointCandidate[U]

	dCenter := ds.QueryToOne(query, root.ArgCenter())
	nodes := []bfNodeCandidate[U]{{root, subNonNeg(dCenter, root.Radius()), addSat(dCenter, root.Radius())}}

	for len(nodes) > 0 {
		tau := breadthFirstTau(points, nodes, k)

		var nextNodes []bfNodeCandidate[U]
		for _, nc := range nodes {
			if nc.dMin > tau {
				continue // not_needed
			}
			if nc.node.IsLeaf() {
				idxs := nc.node.Indices()
				var dists []U
				if ds.Expensive() {
					dists = ds.ParQueryToMany(query, idxs)
				} else {
					dists = ds.QueryToMany(query, idxs)
				}
				for i, idx := range idxs {
					points = append(points, bfPointCandidate[U]{idx, dists[i]})
				}
				continue
			}
			for _, ce := range nc.node.Children() {
				d := ds.QueryToOne(query, ce.Child.ArgCenter())
				nextNodes = append(nextNodes, bfNodeCandidate[U]{
					node: ce.Child,
					dMin: subNonNeg(d, ce.Child.Radius()),
					dMax: addSat(d, ce.Child.Radius()),
				})
			}
		}

		kept := points[:0]
		for _, p := range points {
			if p.distance <= tau {
				kept = append(kept, p)
			}
		}
		points = kept
		nodes = nextNodes
	}

	hits := make([]Hit[U], len(points))
	for i, p := range points {
		hits[i] = Hit[U]{Index: p.index, Distance: p.distance}
	}
	sortHitsByDistance(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// breadthFirstTau returns the smallest dMax value whose cumulative weight
// (across points and node candidates, sorted ascending by dMax) reaches k,
// or the largest dMax present when the total weight never reaches k (every
// candidate is still needed).
func breadthFirstTau[U Number](points []bfPointCandidate[U], nodes []bfNodeCandidate[U], k int) U {
	type weighted struct {
		val    U
		weight int
	}
	items := make([]weighted, 0, len(points)+len(nodes))
	for _, p := range points {
		items = append(items, weighted{p.distance, 1})
	}
	for _, n := range nodes {
		items = append(items, weighted{n.dMax, n.node.Cardinality()})
	}
	if len(items) == 0 {
		var zero U
		return zero
	}
	sort.Slice(items, func(i, j int) bool { return items[i].val < items[j].val })
	total := 0
	for _, it := range items {
		total += it.weight
		if total >= k {
			return it.val
		}
	}
	return items[len(items)-1].val
}

// addSat adds two non-negative values a+b, saturating at U's maximum
// representable value instead of wrapping, so a root ball's dMax bound
// cannot overflow on narrow integral instantiations.
func addSat[U Number](a, b U) U {
	sum := a + b
	if sum >= a && sum >= b {
		return sum
	}
	// Integral overflow wrapped the sum: return U's maximum value.
	var neg U
	neg--
	bits := 8 * uint(unsafe.Sizeof(sum))
	if neg < 0 {
		bits--
	}
	return U(uint64(1)<<bits - 1)
}
