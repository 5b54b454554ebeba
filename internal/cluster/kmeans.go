// Package cluster groups page elements into vertical columns by clustering
// their horizontal centers.
package cluster

import (
	"math"
	"math/rand"
	"sort"
)

// Columns is a fitted 1-D k-means model. It is fit once per page on image
// x-centers and then reused to label arbitrary x-coordinates, so identifier
// entries end up in the same column space as the images.
type Columns struct {
	centroids []float64
}

// Fit clusters the given x-coordinates into at most k columns using Lloyd's
// algorithm with seeded random initialization, so identical input and seed
// always produce identical labels. When fewer points than k exist the model
// degrades to min(k, len(xs)) clusters instead of failing.
func Fit(xs []float64, k int, seed int64, maxIterations int) *Columns {
	if k < 1 {
		k = 1
	}
	if k > len(xs) {
		k = len(xs)
	}
	if len(xs) == 0 {
		return &Columns{}
	}
	if maxIterations <= 0 {
		maxIterations = 100
	}

	centroids := initialCentroids(xs, k, seed)
	labels := make([]int, len(xs))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, x := range xs {
			c := nearest(centroids, x)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([]float64, len(centroids))
		counts := make([]int, len(centroids))
		for i, x := range xs {
			sums[labels[i]] += x
			counts[labels[i]]++
		}
		for c := range centroids {
			// An emptied cluster keeps its centroid rather than erroring;
			// on plate layouts this only happens with degenerate input.
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
	}

	return &Columns{centroids: centroids}
}

// K returns the number of fitted columns.
func (c *Columns) K() int {
	return len(c.centroids)
}

// Assign labels an x-coordinate with its nearest column. Returns -1 for an
// empty model.
func (c *Columns) Assign(x float64) int {
	if len(c.centroids) == 0 {
		return -1
	}
	return nearest(c.centroids, x)
}

// initialCentroids picks k distinct sample values, seeded. Distinct values
// are preferred so clusters do not collapse on pages where several images
// share an x-center.
func initialCentroids(xs []float64, k int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))

	distinct := make([]float64, 0, len(xs))
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			distinct = append(distinct, x)
		}
	}
	sort.Float64s(distinct)

	if len(distinct) <= k {
		centroids := make([]float64, len(distinct), k)
		copy(centroids, distinct)
		for len(centroids) < k {
			centroids = append(centroids, xs[rng.Intn(len(xs))])
		}
		return centroids
	}

	centroids := make([]float64, 0, k)
	for _, i := range rng.Perm(len(distinct))[:k] {
		centroids = append(centroids, distinct[i])
	}
	return centroids
}

func nearest(centroids []float64, x float64) int {
	best := 0
	bestDist := math.Abs(centroids[0] - x)
	for i := 1; i < len(centroids); i++ {
		if d := math.Abs(centroids[i] - x); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
