// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import "sort"

// CompressedDataset is a Dataset whose members are stored as delta
// encodings against their enclosing leaf's center, decoded on demand (spec
// §6 "Compressed dataset"). It assumes its index space is contiguous
// leaf ranges, the same layout OffsetBall/Adapt produces: leaf n owns
// [leafKeys[n], leafKeys[n]+cardinality).
//
// Get is legal only for a leaf center (spec §6 "Get is only defined for
// centers"); every other access must go through OneToMany/QueryToMany,
// which decode straight from the leaf bytes rather than routing through
// Get, since decoding a single non-center member still requires parsing
// its whole leaf's byte range.
type CompressedDataset[I any, U Number] struct {
	cardinality int
	centers     map[int]I
	leafBytes   []byte
	leafKeys    []int // sorted leaf start offsets
	leafStart   []int // byte offset into leafBytes for each leaf, parallel to leafKeys

	encoder Encoder[I]
	dist    func(a, b I) U

	identity           bool
	symmetry           bool
	triangleInequality bool
	expensive          bool

	// BuildID tags which BuildTree/BuildCompressed run produced this
	// dataset, for diagnostics and for detecting an accidental mismatch
	// between a loaded compressed dataset and a tree built separately.
	BuildID string
}

var _ Dataset[int, float64] = (*CompressedDataset[int, float64])(nil)

// NewCompressedDataset assembles a CompressedDataset from its raw parts.
// leafKeys and leafStart must be sorted ascending by leafKeys and parallel
// to each other; centers must contain every leaf's arg_center. Built by
// BuildCompressed, exposed for callers reconstructing one from persisted
// bytes (see persist.go).
func NewCompressedDataset[I any, U Number](
	cardinality int,
	centers map[int]I,
	leafBytes []byte,
	leafKeys []int,
	leafStart []int,
	encoder Encoder[I],
	dist func(a, b I) U,
	identity, symmetry, triangleInequality, expensive bool,
	buildID string,
) *CompressedDataset[I, U] {
	return &CompressedDataset[I, U]{
		cardinality:        cardinality,
		centers:            centers,
		leafBytes:          leafBytes,
		leafKeys:           leafKeys,
		leafStart:          leafStart,
		encoder:            encoder,
		dist:               dist,
		identity:           identity,
		symmetry:           symmetry,
		triangleInequality: triangleInequality,
		expensive:          expensive,
		BuildID:            buildID,
	}
}

func (c *CompressedDataset[I, U]) Cardinality() int        { return c.cardinality }
func (c *CompressedDataset[I, U]) Identity() bool           { return c.identity }
func (c *CompressedDataset[I, U]) Symmetry() bool           { return c.symmetry }
func (c *CompressedDataset[I, U]) TriangleInequality() bool { return c.triangleInequality }
func (c *CompressedDataset[I, U]) Expensive() bool          { return c.expensive }

// Get returns the item at i if and only if i is a leaf center.
func (c *CompressedDataset[I, U]) Get(i int) I {
	if item, ok := c.centers[i]; ok {
		return item
	}
	panic(&DataAccessError{Index: i, Msg: "Get is only defined for compressed leaf centers"})
}

// leafFor returns the position in leafKeys/leafStart of the leaf owning
// global index i.
func (c *CompressedDataset[I, U]) leafFor(i int) int {
	n := sort.Search(len(c.leafKeys), func(k int) bool { return c.leafKeys[k] > i }) - 1
	if n < 0 || n >= len(c.leafKeys) {
		panic(&DataAccessError{Index: i, Msg: "index does not belong to any compressed leaf"})
	}
	return n
}

// decodeLeaf decodes every member of the leaf at position n, in offset
// order, against its center.
func (c *CompressedDataset[I, U]) decodeLeaf(n int) []I {
	data := c.leafBytes[c.leafStart[n]:]
	argCenter, data := readUint64(data)
	cardinality, data := readUint64(data)
	ref, ok := c.centers[int(argCenter)]
	if !ok {
		panic(&EncodingMismatch{Msg: "compressed leaf references a center not present in the centers table"})
	}
	out := make([]I, cardinality)
	for p := uint64(0); p < cardinality; p++ {
		length, rest := readUint64(data)
		if length > uint64(len(rest)) {
			panic(&EncodingMismatch{Msg: "compressed leaf member length exceeds the remaining leaf bytes"})
		}
		out[p] = c.encoder.Decode(ref, rest[:length])
		data = rest[length:]
	}
	return out
}

// item returns the decoded (or cached center) item at global index i.
func (c *CompressedDataset[I, U]) item(i int) I {
	if v, ok := c.centers[i]; ok {
		return v
	}
	n := c.leafFor(i)
	members := c.decodeLeaf(n)
	return members[i-c.leafKeys[n]]
}

func (c *CompressedDataset[I, U]) OneToOne(i, j int) U {
	return c.dist(c.item(i), c.item(j))
}

func (c *CompressedDataset[I, U]) OneToMany(i int, js []int) []U {
	a := c.item(i)
	return c.decodeAndDistance(a, js)
}

func (c *CompressedDataset[I, U]) QueryToOne(q I, i int) U {
	return c.dist(q, c.item(i))
}

func (c *CompressedDataset[I, U]) QueryToMany(q I, is []int) []U {
	return c.decodeAndDistance(q, is)
}

func (c *CompressedDataset[I, U]) ParOneToMany(i int, js []int) []U { return c.OneToMany(i, js) }
func (c *CompressedDataset[I, U]) ParQueryToMany(q I, is []int) []U { return c.QueryToMany(q, is) }

// decodeAndDistance groups is by owning leaf so each leaf is decoded at
// most once, then computes the distance from reference to every requested
// member.
func (c *CompressedDataset[I, U]) decodeAndDistance(reference I, is []int) []U {
	out := make([]U, len(is))
	leafCache := make(map[int][]I)
	for k, idx := range is {
		if v, ok := c.centers[idx]; ok {
			out[k] = c.dist(reference, v)
			continue
		}
		n := c.leafFor(idx)
		members, ok := leafCache[n]
		if !ok {
			members = c.decodeLeaf(n)
			leafCache[n] = members
		}
		out[k] = c.dist(reference, members[idx-c.leafKeys[n]])
	}
	return out
}
