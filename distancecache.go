// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

package cakes

import lru "github.com/hashicorp/golang-lru/v2"

type distancePairKey struct{ a, b int }

// cachedDataset memoizes OneToOne and OneToMany results in a bounded LRU,
// intended for datasets with Expensive() == true where callers re-request
// the same pair of indices (spec §9 "optional distance memoization").
// Query-to-item distances (QueryToOne, QueryToMany, ParQueryToMany) are not
// cached. It embeds the wrapped Dataset so every unoverridden method,
// including the axiom flags and ParQueryToMany, is promoted straight
// through; ParOneToMany is overridden to go through the cached OneToMany.
type cachedDataset[I any, U Number] struct {
	Dataset[I, U]
	cache     *lru.Cache[distancePairKey, U]
	symmetric bool
}

// WithDistanceCache wraps inner with an LRU of up to size recently
// evaluated pairwise distances. Meant for metrics where Expensive() is
// true, since a cheap metric's cache lookups cost more than recomputing.
func WithDistanceCache[I any, U Number](inner Dataset[I, U], size int) (Dataset[I, U], error) {
	c, err := lru.New[distancePairKey, U](size)
	if err != nil {
		return nil, err
	}
	return &cachedDataset[I, U]{Dataset: inner, cache: c, symmetric: inner.Symmetry()}, nil
}

func (d *cachedDataset[I, U]) key(i, j int) distancePairKey {
	if d.symmetric && i > j {
		i, j = j, i
	}
	return distancePairKey{i, j}
}

func (d *cachedDataset[I, U]) OneToOne(i, j int) U {
	k := d.key(i, j)
	if v, ok := d.cache.Get(k); ok {
		return v
	}
	v := d.Dataset.OneToOne(i, j)
	d.cache.Add(k, v)
	return v
}

func (d *cachedDataset[I, U]) OneToMany(i int, js []int) []U {
	out := make([]U, len(js))
	var misses, missPos []int
	for p, j := range js {
		if v, ok := d.cache.Get(d.key(i, j)); ok {
			out[p] = v
			continue
		}
		misses = append(misses, j)
		missPos = append(missPos, p)
	}
	if len(misses) > 0 {
		resolved := d.Dataset.OneToMany(i, misses)
		for k, j := range misses {
			out[missPos[k]] = resolved[k]
			d.cache.Add(d.key(i, j), resolved[k])
		}
	}
	return out
}

func (d *cachedDataset[I, U]) ParOneToMany(i int, js []int) []U { return d.OneToMany(i, js) }
