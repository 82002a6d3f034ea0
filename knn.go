// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import "sort"

// KnnAlgorithm selects among the four k-nearest-neighbor strategies of
// spec §4.3, which trade off differently between distance-call count and
// bookkeeping overhead depending on dataset size, k, and LFD.
type KnnAlgorithm int

const (
	// Linear computes the distance from query to every dataset member and
	// keeps the k smallest. No pruning; always correct, always the
	// slowest for large trees.
	Linear KnnAlgorithm = iota
	// RepeatedRnn runs RNN with a growing radius until at least k hits are
	// found, then keeps the k closest.
	RepeatedRnn
	// BreadthFirst expands the tree level by level, pruning subtrees whose
	// optimistic distance bound already exceeds the current k-th best
	// bound (a "sieve").
	BreadthFirst
	// DepthFirst performs branch-and-bound descent, visiting the
	// closest-bound child first and pruning on a running k-th-best
	// threshold.
	DepthFirst
)

// Knn finds the k nearest members of root to query using algo.
func Knn[I any, U Number](ds Dataset[I, U], root Node[U], query I, k int, algo KnnAlgorithm) []Hit[U] {
	if k <= 0 {
		return nil
	}
	if !ds.TriangleInequality() && (algo == BreadthFirst || algo == DepthFirst) {
		// Their pruning bounds are unsound without the triangle inequality.
		algo = Linear
	}
	switch algo {
	case Linear:
		return knnLinear(ds, root, query, k)
	case RepeatedRnn:
		return knnRepeatedRnn(ds, root, query, k, 2.0)
	case BreadthFirst:
		return knnBreadthFirst(ds, root, query, k)
	case DepthFirst:
		return knnDepthFirst(ds, root, query, k)
	default:
		panic(&InvariantViolation{Msg: "unknown k-NN algorithm"})
	}
}

func knnLinear[I any, U Number](ds Dataset[I, U], root Node[U], query I, k int) []Hit[U] {
	indices := root.Indices()
	var dists []U
	if ds.Expensive() {
		dists = ds.ParQueryToMany(query, indices)
	} else {
		dists = ds.QueryToMany(query, indices)
	}
	hits := make([]Hit[U], len(indices))
	for i, idx := range indices {
		hits[i] = Hit[U]{Index: idx, Distance: dists[i]}
	}
	sortHitsByDistance(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// sortHitsByDistance orders hits ascending by distance, tie-broken by the
// lowest index, matching the assignment tie-break convention used
// throughout partitioning and search (spec §4.2, §4.3).
func sortHitsByDistance[U Number](hits []Hit[U]) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Index < hits[j].Index
	})
}
