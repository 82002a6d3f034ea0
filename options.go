// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import "log/slog"

// defaultMaxDepth bounds recursion depth on degenerate inputs (spec §4.2:
// "a depth cap ... required so trees may reach depth >> 1000"). It is large
// enough not to interfere with any realistic dataset while still halting
// pathological ones (e.g. a dataset of N identical-but-for-one-bit points
// under a metric with many ties).
const defaultMaxDepth = 4096

// defaultBranchingFactor is the number of children a partitioned node is
// split into (spec §4.2 step 2's "desired branching factor", default 2).
const defaultBranchingFactor = 2

// defaultSampleCap bounds the size of the sample S used to choose a node's
// approximate geometric median (spec §4.2 step 1). Below this cardinality,
// every member of the node is sampled.
const defaultSampleCap = 100

// ShouldPartition decides whether a ball should be split into children.
// Partitioning always stops regardless of this predicate when cardinality
// <= 1 or radius < Epsilon (spec §4.2 "Stopping").
type ShouldPartition[U Number] func(b *Ball[U]) bool

// MinCardinality returns a ShouldPartition predicate that partitions any
// node whose cardinality exceeds n.
func MinCardinality[U Number](n int) ShouldPartition[U] {
	return func(b *Ball[U]) bool { return b.Cardinality() > n }
}

// BuildOptions configures BuildTree and ParBuildTree.
type BuildOptions[U Number] struct {
	// Seed makes extrema-sampling reproducible (spec §4.2: "a random
	// sample with a caller-supplied seed for reproducibility").
	Seed uint64

	// BranchingFactor is the number of children per partitioned node.
	// Defaults to 2 when zero.
	BranchingFactor int

	// MaxSampleSize bounds the sample used for center selection. Defaults
	// to defaultSampleCap when zero.
	MaxSampleSize int

	// MaxDepth bounds recursion depth. Defaults to defaultMaxDepth when
	// zero.
	MaxDepth int

	// ShouldPartition decides whether to keep splitting a node. Defaults to
	// MinCardinality(1) (partition any node with more than one member) when
	// nil.
	ShouldPartition ShouldPartition[U]

	// Parallel makes BuildTree dispatch to ParBuildTree, running independent
	// child subtrees concurrently via an errgroup-bounded worker pool.
	// Determinism is preserved because each child is assigned a
	// deterministic sub-seed (internal/rng) regardless of completion order.
	// Has no effect when calling ParBuildTree directly, which is always
	// concurrent.
	Parallel bool

	// Logger receives build diagnostics (the root's partition, depth-cap
	// hits). Nil disables logging entirely; this is the default.
	Logger *slog.Logger
}

// BuildOption mutates a BuildOptions value in place.
type BuildOption[U Number] func(*BuildOptions[U])

// NewBuildOptions builds a BuildOptions from zero or more BuildOption
// values, applying documented defaults for any field left unset.
func NewBuildOptions[U Number](opts ...BuildOption[U]) BuildOptions[U] {
	o := BuildOptions[U]{
		BranchingFactor: defaultBranchingFactor,
		MaxSampleSize:   defaultSampleCap,
		MaxDepth:        defaultMaxDepth,
	}
	for _, f := range opts {
		f(&o)
	}
	if o.BranchingFactor <= 0 {
		o.BranchingFactor = defaultBranchingFactor
	}
	if o.MaxSampleSize <= 0 {
		o.MaxSampleSize = defaultSampleCap
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.ShouldPartition == nil {
		o.ShouldPartition = MinCardinality[U](1)
	}
	return o
}

// WithSeed sets the reproducibility seed.
func WithSeed[U Number](seed uint64) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.Seed = seed }
}

// WithBranchingFactor overrides the default branching factor of 2.
func WithBranchingFactor[U Number](n int) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.BranchingFactor = n }
}

// WithMaxSampleSize overrides the default center-selection sample cap.
func WithMaxSampleSize[U Number](n int) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.MaxSampleSize = n }
}

// WithMaxDepth overrides the default recursion depth cap.
func WithMaxDepth[U Number](n int) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.MaxDepth = n }
}

// WithShouldPartition overrides the default stopping predicate.
func WithShouldPartition[U Number](p ShouldPartition[U]) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.ShouldPartition = p }
}

// WithParallel makes BuildTree dispatch to ParBuildTree for concurrent
// child-subtree construction.
func WithParallel[U Number](parallel bool) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.Parallel = parallel }
}

// WithLogger attaches a structured logger for build diagnostics.
func WithLogger[U Number](l *slog.Logger) BuildOption[U] {
	return func(o *BuildOptions[U]) { o.Logger = l }
}
