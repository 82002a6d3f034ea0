// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"encoding/binary"
	"math"
)

// float64DeltaEncoder encodes an item as its IEEE-754 delta from a
// reference item, sufficient to exercise the compressed-dataset byte
// format in tests.
type float64DeltaEncoder struct{}

func (float64DeltaEncoder) Encode(reference, target float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(target-reference))
	return buf
}

func (float64DeltaEncoder) Decode(reference float64, data []byte) float64 {
	delta := math.Float64frombits(binary.LittleEndian.Uint64(data))
	return reference + delta
}

// float64Codec implements ItemCodec[float64] for persistence tests.
type float64Codec struct{}

func (float64Codec) Marshal(item float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(item))
	return buf
}

func (float64Codec) Unmarshal(data []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(data))
}
