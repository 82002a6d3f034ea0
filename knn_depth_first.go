// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import (
	"container/heap"
	"sort"
)

// hitMaxHeap is a bounded max-heap over Hits, used by knnDepthFirst to
// track the k best candidates found so far; its root is always the
// current k-th best (worst-of-the-best) distance.
type hitMaxHeap[U Number] []Hit[U]

func (h hitMaxHeap[U]) Len() int { return len(h) }
func (h hitMaxHeap[U]) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	return h[i].Index > h[j].Index
}
func (h hitMaxHeap[U]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitMaxHeap[U]) Push(x interface{}) { *h = append(*h, x.(Hit[U])) }
func (h *hitMaxHeap[U]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func pushBounded[U Number](h *hitMaxHeap[U], hit Hit[U], k int) {
	if h.Len() < k {
		heap.Push(h, hit)
		return
	}
	if hit.Distance < (*h)[0].Distance || (hit.Distance == (*h)[0].Distance && hit.Index < (*h)[0].Index) {
		(*h)[0] = hit
		heap.Fix(h, 0)
	}
}

// knnDepthFirst performs branch-and-bound descent: children are visited in
// ascending d_min order (closest bound first), and any node whose d_min
// exceeds the current k-th best distance is pruned outright (spec §4.3
// "Depth-first").
func knnDepthFirst[I any, U Number](ds Dataset[I, U], root Node[U], query I, k int) []Hit[U] {
	h := &hitMaxHeap[U]{}
	heap.Init(h)

	type boundedNode struct {
		node Node[U]
		dMin U
	}
	stack := []boundedNode{{root, subNonNeg(ds.QueryToOne(query, root.ArgCenter()), root.Radius())}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if h.Len() >= k && top.dMin > (*h)[0].Distance {
			continue
		}

		n := top.node
		if n.IsLeaf() {
			idxs := n.Indices()
			var dists []U
			if ds.Expensive() {
				dists = ds.ParQueryToMany(query, idxs)
			} else {
				dists = ds.QueryToMany(query, idxs)
			}
			for i, idx := range idxs {
				pushBounded(h, Hit[U]{Index: idx, Distance: dists[i]}, k)
			}
			continue
		}

		children := n.Children()
		bounds := make([]boundedNode, len(children))
		for i, ce := range children {
			d := ds.QueryToOne(query, ce.Child.ArgCenter())
			bounds[i] = boundedNode{ce.Child, subNonNeg(d, ce.Child.Radius())}
		}
		// Descending by dMin so the stack (LIFO) pops the closest child
		// first, giving the required ascending-d_min visiting order.
		sort.Slice(bounds, func(i, j int) bool { return bounds[i].dMin > bounds[j].dMin })
		stack = append(stack, bounds...)
	}

	hits := make([]Hit[U], h.Len())
	copy(hits, *h)
	sortHitsByDistance(hits)
	return hits
}
