package cluster

import "math"

// PrimMST links n points through a minimum spanning tree of the dense n*n
// distance matrix dist. Each edge is [parent, child, distance], listed in the
// order the children joined; Label replays them into a single-linkage
// dendrogram.
//
// Affinity rows are always finite, so unreachable points (+Inf or NaN
// distances) only come from a precomputed matrix. They are attached to point
// 0 at +Inf and reported once.
func PrimMST(dist []float64, n int) [][3]float64 {
	if n <= 1 {
		return nil
	}

	// link[j] is the cheapest known distance from j to the tree, via parent[j].
	link := make([]float64, n)
	parent := make([]int, n)
	joined := make([]bool, n)
	for j := range link {
		link[j] = math.Inf(1)
	}

	edges := make([][3]float64, 0, n-1)
	unreachable := 0
	last := 0
	joined[0] = true

	for len(edges) < n-1 {
		row := dist[last*n : (last+1)*n]
		next := -1
		for j, d := range row {
			if joined[j] {
				continue
			}
			if d < link[j] {
				link[j], parent[j] = d, last
			}
			if next < 0 || link[j] < link[next] {
				next = j
			}
		}

		if math.IsInf(link[next], 1) {
			unreachable++
		}
		edges = append(edges, [3]float64{float64(parent[next]), float64(next), link[next]})
		joined[next] = true
		last = next
	}

	if unreachable > 0 {
		log.WithField("edges", unreachable).Warn("spanning tree joins disconnected points at +Inf")
	}
	return edges
}
