// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

// Number is the constraint on distance values: a totally ordered numeric
// type admitting zero, addition, subtraction, and multiplication, with
// explicit conversion to and from float64. Both integral and floating
// distances satisfy it.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Epsilon returns the tolerance used to guard zero-radius and
// zero-denominator arithmetic for U. For floating types it is a small
// positive value; for integral types it is zero — integral distances carry
// no fractional tolerance.
func Epsilon[U Number]() U {
	var zero U
	switch any(zero).(type) {
	case float32, float64:
		return U(1e-9)
	default:
		return U(0)
	}
}

// toFloat64 converts a distance value to float64 for arithmetic (LFD,
// radius-growth factors) that has no natural meaning in integer domains.
func toFloat64[U Number](u U) float64 {
	return float64(u)
}
