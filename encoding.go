// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import "encoding/binary"

// Encoder produces and consumes a content-addressed delta encoding of one
// item relative to a reference item (spec §6 "Compression"). Encode must
// be the exact inverse of Decode: Decode(reference, Encode(reference,
// target)) == target.
type Encoder[I any] interface {
	Encode(reference, target I) []byte
	Decode(reference I, data []byte) I
}

// putUint64 appends v to buf in little-endian order (spec §6 "leaf byte
// layout ... little-endian").
func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// readUint64 reads a little-endian uint64 from the front of data,
// returning the value and the remaining bytes.
func readUint64(data []byte) (uint64, []byte) {
	if len(data) < 8 {
		panic(&EncodingMismatch{Msg: "truncated uint64 field in compressed leaf"})
	}
	return binary.LittleEndian.Uint64(data[:8]), data[8:]
}
