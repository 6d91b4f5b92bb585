// Package cluster groups unit-norm face embeddings into identity clusters
// using density-based clustering with a data-driven radius.
package cluster

import (
	"fmt"
	"math"
	"sort"
)

// NoiseLabel marks embeddings that belong to no stable group.
const NoiseLabel = "noise"

// Result holds one label per input embedding, in input order. Equal labels
// denote the same identity.
type Result struct {
	Labels     []string
	Eps        float64
	MinSamples int
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// distanceMatrix computes the full pairwise cosine-distance matrix.
func distanceMatrix(embeddings [][]float32) [][]float64 {
	n := len(embeddings)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := CosineDistance(embeddings[i], embeddings[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// percentile returns the p-th percentile of sample using linear interpolation
// between closest ranks. Sample is sorted in place.
func percentile(sample []float64, p float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sort.Float64s(sample)
	rank := p / 100 * float64(len(sample)-1)
	lower := int(math.Floor(rank))
	if lower >= len(sample)-1 {
		return sample[len(sample)-1]
	}
	frac := rank - float64(lower)
	return sample[lower] + frac*(sample[lower+1]-sample[lower])
}

// estimateEps picks the clustering radius from the strictly-lower triangle of
// the distance matrix. The 25th percentile keeps groups tight: false splits
// are cheaper to fix in review than false merges.
func estimateEps(dist [][]float64) float64 {
	n := len(dist)
	if n <= 1 {
		return 0.3
	}
	sample := make([]float64, 0, n*(n-1)/2)
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			sample = append(sample, dist[i][j])
		}
	}
	return math.Max(0.2, percentile(sample, 25)*0.8)
}

// Cluster partitions embeddings into identity groups. Labels are assigned as
// cluster_001, cluster_002, ... in the order clusters are first encountered
// scanning the inputs left to right, so the labeling is deterministic for a
// fixed input order. Outliers get NoiseLabel.
func Cluster(embeddings [][]float32, minSamples int) Result {
	if len(embeddings) == 0 {
		return Result{Labels: []string{}, Eps: 0, MinSamples: minSamples}
	}

	dist := distanceMatrix(embeddings)
	eps := estimateEps(dist)
	raw := dbscan(dist, eps, minSamples)

	labels := make([]string, len(raw))
	names := make(map[int]string)
	count := 0
	for i, r := range raw {
		if r == rawNoise {
			labels[i] = NoiseLabel
			continue
		}
		name, ok := names[r]
		if !ok {
			count++
			name = fmt.Sprintf("cluster_%03d", count)
			names[r] = name
		}
		labels[i] = name
	}
	return Result{Labels: labels, Eps: eps, MinSamples: minSamples}
}

const (
	rawUnclassified = 0
	rawNoise        = -1
)

// dbscan runs density-based clustering over a precomputed distance matrix.
// A point is a core point when its eps-neighborhood (itself included) holds
// at least minSamples points.
func dbscan(dist [][]float64, eps float64, minSamples int) []int {
	n := len(dist)
	labels := make([]int, n)
	current := 0

	region := func(p int) []int {
		var neighbors []int
		for q := 0; q < n; q++ {
			if dist[p][q] <= eps {
				neighbors = append(neighbors, q)
			}
		}
		return neighbors
	}

	for p := 0; p < n; p++ {
		if labels[p] != rawUnclassified {
			continue
		}
		neighbors := region(p)
		if len(neighbors) < minSamples {
			labels[p] = rawNoise
			continue
		}

		current++
		labels[p] = current

		seeds := append([]int(nil), neighbors...)
		for i := 0; i < len(seeds); i++ {
			q := seeds[i]
			if labels[q] == rawNoise {
				labels[q] = current // border point reached from a core point
			}
			if labels[q] != rawUnclassified {
				continue
			}
			labels[q] = current
			qNeighbors := region(q)
			if len(qNeighbors) >= minSamples {
				seeds = append(seeds, qNeighbors...)
			}
		}
	}
	return labels
}
