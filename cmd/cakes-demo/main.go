// Copyright (c) 2025 The cakes authors
// SPDX-License-Identifier: MIT

// Command cakes-demo builds a ball tree over a synthetic set of random
// points and runs a handful of k-NN queries against it, printing results.
// It exists to exercise the library end to end, not as a supported tool.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"github.com/entrocakes/cakes"
	"github.com/entrocakes/cakes/internal/diag"
	"github.com/entrocakes/cakes/internal/dump"
	"github.com/entrocakes/cakes/internal/vecdata"
)

type point struct {
	x, y float64
}

func euclidean(a, b point) float64 {
	dx, dy := a.x-b.x, a.y-b.y
	return math.Sqrt(dx*dx + dy*dy)
}

func main() {
	n := flag.Int("n", 10000, "number of points")
	k := flag.Int("k", 5, "neighbors to find")
	seed := flag.Uint64("seed", 42, "build seed")
	queries := flag.Int("queries", 3, "number of queries to run")
	dumpTree := flag.Bool("dump", false, "print the built tree's structure to stderr before querying")
	cacheSize := flag.Int("cache", 0, "LRU distance cache size; 0 disables caching")
	flag.Parse()

	logger := diag.New()

	r := rand.New(rand.NewPCG(*seed, *seed))
	points := make([]point, *n)
	for i := range points {
		points[i] = point{x: r.Float64() * 1000, y: r.Float64() * 1000}
	}

	ds := vecdata.New[point, float64](points, euclidean, true, true, true, false)

	opts := cakes.NewBuildOptions[float64](
		cakes.WithSeed[float64](*seed),
		cakes.WithLogger[float64](logger),
		cakes.WithParallel[float64](true),
	)
	root := cakes.BuildTree[point, float64](ds, opts)

	logger.Info("built tree", slog.Int("cardinality", root.Cardinality()), slog.Int("depth", maxDepth(root)))

	if *dumpTree {
		if err := dump.Fprint[float64](os.Stderr, root); err != nil {
			logger.Error("dump tree", slog.Any("err", err))
		}
	}

	queryDS := cakes.Dataset[point, float64](ds)
	if *cacheSize > 0 {
		cached, err := cakes.WithDistanceCache[point, float64](ds, *cacheSize)
		if err != nil {
			logger.Error("build distance cache", slog.Any("err", err))
		} else {
			queryDS = cached
		}
	}

	for q := 0; q < *queries; q++ {
		query := point{x: r.Float64() * 1000, y: r.Float64() * 1000}
		hits := cakes.Knn[point, float64](queryDS, root, query, *k, cakes.DepthFirst)
		fmt.Printf("query %d (%.2f, %.2f):\n", q, query.x, query.y)
		for _, h := range hits {
			fmt.Printf("  index=%d distance=%.4f\n", h.Index, h.Distance)
		}
	}

	os.Exit(0)
}

func maxDepth[U cakes.Number](n cakes.Node[U]) int {
	best := n.Depth()
	for _, ce := range n.Children() {
		if d := maxDepth(ce.Child); d > best {
			best = d
		}
	}
	return best
}
