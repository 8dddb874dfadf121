// Package cluster groups segment directions into the three reconstruction
// axes with k-means++ and ranks the groups by fitted slope.
package cluster

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerate is returned when a cluster ends up empty or two clusters
// share a direction, which happens when the sketch has fewer than three
// distinct direction groups.
var ErrDegenerate = errors.New("degenerate clustering")

// KMeans partitions points into k clusters. Seeding is deterministic: the
// first point is the first centroid and each following centroid is the point
// farthest from its nearest chosen centroid. iters Lloyd iterations follow,
// empty clusters keep their previous centroid.
//
// The returned assignment maps each point to its cluster index.
func KMeans(points []r3.Vec, k, iters int) (assign []int, centroids []r3.Vec) {
	if len(points) == 0 || k <= 0 {
		return nil, nil
	}
	centroids = seed(points, k)
	assign = make([]int, len(points))
	var (
		sums   = make([]r3.Vec, k)
		counts = make([]int, k)
	)
	for it := 0; it < iters; it++ {
		for i := range sums {
			sums[i], counts[i] = r3.Vec{}, 0
		}
		for i, p := range points {
			c := nearest(p, centroids)
			assign[i] = c
			sums[c] = r3.Add(sums[c], p)
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			centroids[c] = r3.Scale(1/float64(counts[c]), sums[c])
		}
	}
	if iters <= 0 {
		for i, p := range points {
			assign[i] = nearest(p, centroids)
		}
	}
	return assign, centroids
}

func seed(points []r3.Vec, k int) []r3.Vec {
	centroids := make([]r3.Vec, 1, k)
	centroids[0] = points[0]
	for len(centroids) < k {
		best, bestDist := 0, math.Inf(-1)
		for i, p := range points {
			d := r3.Norm(r3.Sub(p, centroids[nearest(p, centroids)]))
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		centroids = append(centroids, points[best])
	}
	return centroids
}

// nearest returns the index of the closest centroid. Ties go to the lower index.
func nearest(p r3.Vec, centroids []r3.Vec) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := r3.Norm(r3.Sub(p, c)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
