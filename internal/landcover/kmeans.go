package landcover

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type run struct {
	centroids  [][]float64
	labels     []int
	inertia    float64
	iterations int
	shift      float64
	converged  bool
}

// tolerance scales the relative tolerance by the mean per-feature variance.
func tolerance(points [][]float64, rel float64) float64 {
	if len(points) == 0 {
		return 0
	}
	dims := len(points[0])
	col := make([]float64, len(points))
	var total float64
	for k := 0; k < dims; k++ {
		for i, p := range points {
			col[i] = p[k]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return rel * total / float64(dims)
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func nearest(p []float64, centroids [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

// seedPlusPlus picks k initial centroids with k-means++.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.IntN(len(points))]
	centroids = append(centroids, append([]float64(nil), first...))

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, first)
	}
	for len(centroids) < k {
		sum := floats.Sum(d2)
		idx := 0
		if sum == 0 {
			idx = rng.IntN(len(points))
		} else {
			target := rng.Float64() * sum
			var acc float64
			idx = len(points) - 1
			for i, d := range d2 {
				acc += d
				if acc > target {
					idx = i
					break
				}
			}
		}
		next := append([]float64(nil), points[idx]...)
		centroids = append(centroids, next)
		for i, p := range points {
			if d := sqDist(p, next); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

// assign labels every point with its nearest centroid and returns the inertia.
func assign(points [][]float64, centroids [][]float64, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		c, d := nearest(p, centroids)
		labels[i] = c
		inertia += d
	}
	return inertia
}

// update recomputes centroids as cluster means. An empty cluster takes the
// point lying farthest from its current centroid.
func update(points [][]float64, labels []int, old [][]float64) [][]float64 {
	k, dims := len(old), len(old[0])
	next := make([][]float64, k)
	counts := make([]int, k)
	for c := range next {
		next[c] = make([]float64, dims)
	}
	for i, p := range points {
		floats.Add(next[labels[i]], p)
		counts[labels[i]]++
	}
	taken := make(map[int]bool)
	for c := range next {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), next[c])
			continue
		}
		far, farD := -1, -1.0
		for i, p := range points {
			if taken[i] {
				continue
			}
			if d := sqDist(p, old[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			copy(next[c], old[c])
			continue
		}
		taken[far] = true
		copy(next[c], points[far])
	}
	return next
}

// lloyd runs one k-means restart.
func lloyd(points [][]float64, k, maxIter int, tol float64, rng *rand.Rand) run {
	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, len(points))
	r := run{}
	for r.iterations < maxIter {
		r.iterations++
		assign(points, centroids, labels)
		next := update(points, labels, centroids)
		r.shift = 0
		for c := range next {
			r.shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if r.shift <= tol {
			r.converged = true
			break
		}
	}
	r.inertia = assign(points, centroids, labels)
	r.centroids = centroids
	r.labels = labels
	return r
}
