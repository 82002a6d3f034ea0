// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrocakes/cakes/internal/vecdata"
)

func TestSaveLoadCompressedRoundTrip(t *testing.T) {
	ds := line(70)
	opts := NewBuildOptions[float64](WithSeed[float64](51))
	root := BuildTree[float64, float64](ds, opts)

	cds, _, _ := BuildCompressed[float64, float64](ds, float64DeltaEncoder{}, abs1D, root)

	var buf bytes.Buffer
	require.NoError(t, SaveCompressed[float64, float64](&buf, cds, float64Codec{}))

	loaded, err := LoadCompressed[float64, float64](&buf, float64Codec{}, float64DeltaEncoder{}, abs1D)
	require.NoError(t, err)

	assert.Equal(t, cds.Cardinality(), loaded.Cardinality())
	assert.Equal(t, cds.Identity(), loaded.Identity())
	assert.Equal(t, cds.Symmetry(), loaded.Symmetry())
	assert.Equal(t, cds.TriangleInequality(), loaded.TriangleInequality())
	assert.Equal(t, cds.Expensive(), loaded.Expensive())
	assert.Equal(t, cds.BuildID, loaded.BuildID)

	others := make([]int, cds.Cardinality())
	for i := range others {
		others[i] = i
	}
	for i := 0; i < cds.Cardinality(); i++ {
		want := cds.OneToMany(i, others)
		got := loaded.OneToMany(i, others)
		assert.Equal(t, want, got, "index %d", i)
	}
}

func TestSaveLoadCompressedGetMatchesForCenters(t *testing.T) {
	ds := line(25)
	opts := NewBuildOptions[float64](WithSeed[float64](52))
	root := BuildTree[float64, float64](ds, opts)

	cds, _, _ := BuildCompressed[float64, float64](ds, float64DeltaEncoder{}, abs1D, root)

	var buf bytes.Buffer
	require.NoError(t, SaveCompressed[float64, float64](&buf, cds, float64Codec{}))

	loaded, err := LoadCompressed[float64, float64](&buf, float64Codec{}, float64DeltaEncoder{}, abs1D)
	require.NoError(t, err)

	for idx, item := range cds.centers {
		assert.Equal(t, item, loaded.Get(idx))
	}
}

func TestSaveCompressedCompressesLargeRepetitiveBlobs(t *testing.T) {
	// A wide dataset with many near-identical points produces leaf bytes
	// with enough repetition for LZF to shrink, exercising the compressed
	// branch of SaveCompressed/LoadCompressed.
	const n = 400
	items := make([]float64, n)
	for i := range items {
		items[i] = float64(i % 3)
	}
	ds := vecdata.New[float64, float64](items, abs1D, true, true, true, false)
	opts := NewBuildOptions[float64](WithSeed[float64](53))
	root := BuildTree[float64, float64](ds, opts)

	cds, _, _ := BuildCompressed[float64, float64](ds, float64DeltaEncoder{}, abs1D, root)

	var buf bytes.Buffer
	require.NoError(t, SaveCompressed[float64, float64](&buf, cds, float64Codec{}))

	loaded, err := LoadCompressed[float64, float64](&buf, float64Codec{}, float64DeltaEncoder{}, abs1D)
	require.NoError(t, err)

	others := make([]int, n)
	for i := range others {
		others[i] = i
	}
	assert.Equal(t, cds.OneToMany(0, others), loaded.OneToMany(0, others))
}
