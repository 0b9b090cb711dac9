package stats

import "math"

// NoiseLabel marks points DBSCAN left unassigned.
const NoiseLabel = -1

// Point is a 2-D observation for pairwise-column clustering.
type Point struct {
	X, Y float64
}

// DBSCAN clusters 2-D points by density. eps is the neighborhood radius and
// minPts the minimum neighborhood size (the point itself included) for a
// point to be a core point. Returns one label per point, NoiseLabel for
// points in no cluster; cluster ids are assigned in scan order, so results
// are deterministic for a fixed input order.
func DBSCAN(points []Point, eps float64, minPts int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	visited := make([]bool, n)
	next := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			continue // stays noise unless claimed by a later cluster
		}

		cluster := next
		next++
		labels[i] = cluster

		// Expand the cluster breadth-first.
		queue := neighbors
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				jn := regionQuery(points, j, eps)
				if len(jn) >= minPts {
					queue = append(queue, jn...)
				}
			}
			if labels[j] == NoiseLabel {
				labels[j] = cluster
			}
		}
	}
	return labels
}

func regionQuery(points []Point, i int, eps float64) []int {
	var out []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func euclidean(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Silhouette computes the mean silhouette coefficient over all points,
// treating every distinct label (noise included) as its own cluster.
// Returns NaN when fewer than two distinct labels exist. Points in singleton
// clusters contribute zero.
func Silhouette(points []Point, labels []int) float64 {
	n := len(points)
	if n == 0 || n != len(labels) {
		return math.NaN()
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 {
		return math.NaN()
	}

	var total float64
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] <= 1 {
			continue // silhouette of a singleton is defined as 0
		}

		// Mean distance to own cluster and to each other cluster.
		sums := make(map[int]float64)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sums[labels[j]] += euclidean(points[i], points[j])
		}

		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for l, s := range sums {
			if l == own {
				continue
			}
			if mean := s / float64(sizes[l]); mean < b {
				b = mean
			}
		}

		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}
