// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"io"

	"github.com/zhuyie/golzf"
)

// ItemCodec serializes a whole item to and from bytes, used only for the
// center table persisted alongside the delta-encoded leaf bytes (spec §6
// "Persistence"). It is distinct from Encoder, which encodes a delta
// relative to a reference rather than an item in isolation.
type ItemCodec[I any] interface {
	Marshal(item I) []byte
	Unmarshal(data []byte) I
}

// SaveCompressed writes cds to w: the leaf byte blob (optionally LZF
// compressed when that shrinks it), the leaf offset table, the center
// table, and the build ID, all length-prefixed little-endian per spec §6.
func SaveCompressed[I any, U Number](w io.Writer, cds *CompressedDataset[I, U], codec ItemCodec[I]) error {
	var buf []byte
	buf = putUint64(buf, uint64(cds.cardinality))

	buf = putUint64(buf, uint64(len(cds.leafKeys)))
	for _, k := range cds.leafKeys {
		buf = putUint64(buf, uint64(k))
	}

	compressed, ok := compressLZF(cds.leafBytes)
	if ok {
		buf = putUint64(buf, 1) // compression flag
		buf = putUint64(buf, uint64(len(cds.leafBytes)))
		buf = putUint64(buf, uint64(len(compressed)))
		buf = append(buf, compressed...)
	} else {
		buf = putUint64(buf, 0)
		buf = putUint64(buf, uint64(len(cds.leafBytes)))
		buf = append(buf, cds.leafBytes...)
	}

	buf = putUint64(buf, uint64(len(cds.centers)))
	for idx, item := range cds.centers {
		enc := codec.Marshal(item)
		buf = putUint64(buf, uint64(idx))
		buf = putUint64(buf, uint64(len(enc)))
		buf = append(buf, enc...)
	}

	idBytes := []byte(cds.BuildID)
	buf = putUint64(buf, uint64(len(idBytes)))
	buf = append(buf, idBytes...)

	buf = putUint64(buf, boolToUint64(cds.identity))
	buf = putUint64(buf, boolToUint64(cds.symmetry))
	buf = putUint64(buf, boolToUint64(cds.triangleInequality))
	buf = putUint64(buf, boolToUint64(cds.expensive))

	_, err := w.Write(buf)
	if err != nil {
		return &IOError{Op: "cakes.SaveCompressed", Err: err}
	}
	return nil
}

// LoadCompressed reconstructs a CompressedDataset from bytes written by
// SaveCompressed. encoder and dist must match what originally built cds;
// they are not persisted, since a delta encoder is ordinarily a stateless
// value type tied to the calling program, not serialized data.
func LoadCompressed[I any, U Number](r io.Reader, codec ItemCodec[I], encoder Encoder[I], dist func(a, b I) U) (*CompressedDataset[I, U], error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, &IOError{Op: "cakes.LoadCompressed", Err: err}
	}
	data := all

	cardinality64, data := readUint64(data)
	numLeaves, data := readUint64(data)
	leafKeys := make([]int, numLeaves)
	for i := range leafKeys {
		var k uint64
		k, data = readUint64(data)
		leafKeys[i] = int(k)
	}

	compressedFlag, data := readUint64(data)
	uncompressedLen, data := readUint64(data)
	var leafBytes []byte
	if compressedFlag == 1 {
		compressedLen, rest := readUint64(data)
		leafBytes = decompressLZF(rest[:compressedLen], int(uncompressedLen))
		data = rest[compressedLen:]
	} else {
		leafBytes = append([]byte(nil), data[:uncompressedLen]...)
		data = data[uncompressedLen:]
	}

	leafStart := make([]int, len(leafKeys))
	pos := 0
	for i := range leafStart {
		leafStart[i] = pos
		pos += leafBlockLen(leafBytes[pos:])
	}

	numCenters, data := readUint64(data)
	centers := make(map[int]I, numCenters)
	for i := uint64(0); i < numCenters; i++ {
		var idx, length uint64
		idx, data = readUint64(data)
		length, data = readUint64(data)
		centers[int(idx)] = codec.Unmarshal(data[:length])
		data = data[length:]
	}

	idLen, data := readUint64(data)
	buildID := string(data[:idLen])
	data = data[idLen:]

	var identity, symmetry, triangleInequality, expensive uint64
	identity, data = readUint64(data)
	symmetry, data = readUint64(data)
	triangleInequality, data = readUint64(data)
	expensive, _ = readUint64(data)

	return NewCompressedDataset[I, U](
		int(cardinality64), centers, leafBytes, leafKeys, leafStart,
		encoder, dist,
		identity == 1, symmetry == 1, triangleInequality == 1, expensive == 1,
		buildID,
	), nil
}

// leafBlockLen parses a single leaf's header and member entries without
// decoding them, returning how many bytes the block occupies.
func leafBlockLen(data []byte) int {
	start := len(data)
	_, data = readUint64(data)
	cardinality, data := readUint64(data)
	for i := uint64(0); i < cardinality; i++ {
		var length uint64
		length, data = readUint64(data)
		data = data[length:]
	}
	return start - len(data)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// compressLZF attempts an LZF compression pass over data into a new buffer,
// reporting ok=false when the library declines (incompressible input, per
// golzf's convention of returning an error rather than growing the
// output) so the caller can fall back to storing the block raw.
func compressLZF(data []byte) (compressed []byte, ok bool) {
	if len(data) == 0 {
		return nil, false
	}
	out := make([]byte, len(data))
	n, err := golzf.Compress(data, out)
	if err != nil || n <= 0 || n >= len(data) {
		return nil, false
	}
	return out[:n], true
}

func decompressLZF(data []byte, originalLen int) []byte {
	out := make([]byte, originalLen)
	n, err := golzf.Decompress(data, out)
	if err != nil {
		panic(&IOError{Op: "lzf-decompress", Err: err})
	}
	return out[:n]
}
