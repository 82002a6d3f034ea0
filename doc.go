// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

// Package cakes implements entropy-scaling similarity search over arbitrary
// metric spaces.
//
// A dataset of items equipped with a distance function is recursively
// partitioned into a hierarchy of balls (a ball tree). Range queries (all
// points within a radius of a query) and k-nearest-neighbor queries are then
// answered by descending the hierarchy and pruning subtrees using
// triangle-inequality bounds on each ball's radius.
//
// The package also supports a permuted/offset variant of the tree, which
// reorders the underlying dataset so each cluster's members form a
// contiguous range, and a compressed dataset built from the permuted tree
// that stores each leaf cluster as byte-encoded deltas against its center,
// allowing search with on-the-fly partial decompression.
//
// Four k-nearest-neighbor strategies are provided (linear, repeated-RNN,
// breadth-first sieve, depth-first) for comparison and benchmarking; all are
// exact and must agree on the returned index set.
package cakes
