// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

// Package dump renders a ball-tree as indented text or JSON, adapted from
// the teacher's dumper/stringify helpers for inspecting a routing table's
// node hierarchy.
package dump

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/entrocakes/cakes"
)

// Fprint writes an indented, one-line-per-node rendering of root to w.
func Fprint[U cakes.Number](w io.Writer, root cakes.Node[U]) error {
	return fprint(w, root, "")
}

func fprint[U cakes.Number](w io.Writer, n cakes.Node[U], prefix string) error {
	_, err := fmt.Fprintf(w, "%sdepth=%d card=%d center=%d radial=%d radius=%v lfd=%.3f leaf=%v\n",
		prefix, n.Depth(), n.Cardinality(), n.ArgCenter(), n.ArgRadial(), n.Radius(), n.LFD(), n.IsLeaf())
	if err != nil {
		return err
	}
	for _, ce := range n.Children() {
		if err := fprint(w, ce.Child, prefix+"  "); err != nil {
			return err
		}
	}
	return nil
}

type jsonNode struct {
	Depth       int        `json:"depth"`
	Cardinality int        `json:"cardinality"`
	ArgCenter   int        `json:"arg_center"`
	ArgRadial   int        `json:"arg_radial"`
	Radius      float64    `json:"radius"`
	LFD         float64    `json:"lfd"`
	Children    []jsonNode `json:"children,omitempty"`
}

// ToJSON marshals root's full structure to JSON.
func ToJSON[U cakes.Number](root cakes.Node[U]) ([]byte, error) {
	return json.Marshal(toJSONNode(root))
}

func toJSONNode[U cakes.Number](n cakes.Node[U]) jsonNode {
	jn := jsonNode{
		Depth:       n.Depth(),
		Cardinality: n.Cardinality(),
		ArgCenter:   n.ArgCenter(),
		ArgRadial:   n.ArgRadial(),
		Radius:      float64(n.Radius()),
		LFD:         n.LFD(),
	}
	for _, ce := range n.Children() {
		jn.Children = append(jn.Children, toJSONNode(ce.Child))
	}
	return jn
}
