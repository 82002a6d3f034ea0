// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchRNN runs RNN for every query in queries, preserving order.
func BatchRNN[I any, U Number](ds Dataset[I, U], root Node[U], queries []I, radius U) [][]Hit[U] {
	out := make([][]Hit[U], len(queries))
	for i, q := range queries {
		out[i] = RNN(ds, root, q, radius)
	}
	return out
}

// ParBatchRNN is BatchRNN's concurrent sibling, fanning queries out across
// an errgroup-bounded pool (spec §5 "Batch operations").
func ParBatchRNN[I any, U Number](ds Dataset[I, U], root Node[U], queries []I, radius U) [][]Hit[U] {
	out := make([][]Hit[U], len(queries))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			out[i] = RNN(ds, root, q, radius)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// BatchKnn runs Knn for every query in queries, preserving order.
func BatchKnn[I any, U Number](ds Dataset[I, U], root Node[U], queries []I, k int, algo KnnAlgorithm) [][]Hit[U] {
	out := make([][]Hit[U], len(queries))
	for i, q := range queries {
		out[i] = Knn(ds, root, q, k, algo)
	}
	return out
}

// ParBatchKnn is BatchKnn's concurrent sibling.
func ParBatchKnn[I any, U Number](ds Dataset[I, U], root Node[U], queries []I, k int, algo KnnAlgorithm) [][]Hit[U] {
	out := make([][]Hit[U], len(queries))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			out[i] = Knn(ds, root, q, k, algo)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
