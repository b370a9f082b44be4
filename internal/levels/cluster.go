package levels

import "sort"

// Cluster merges nearby raw prices into one representative price per group.
// Input is sorted ascending, then greedily chained: a point joins the
// current cluster while it lies within tolerance of the LAST raw point
// added, not of the running mean, so a cluster's total span may exceed one
// tolerance width. Downstream scoring relies on this chaining behavior; do
// not switch to centroid distance. Each emitted level is the arithmetic
// mean of its cluster. Empty input yields empty output.
func Cluster(points []float64, tolerance float64) []float64 {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]float64, len(points))
	copy(sorted, points)
	sort.Float64s(sorted)

	var out []float64
	clusterSum := sorted[0]
	clusterLen := 1
	last := sorted[0]

	for _, p := range sorted[1:] {
		if p-last <= tolerance {
			clusterSum += p
			clusterLen++
		} else {
			out = append(out, clusterSum/float64(clusterLen))
			clusterSum = p
			clusterLen = 1
		}
		last = p
	}
	out = append(out, clusterSum/float64(clusterLen))
	return out
}
