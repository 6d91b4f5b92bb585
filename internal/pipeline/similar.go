package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/chronoface/internal/cluster"
)

const hnswMaxNeighbors = 16

// SimilarIndex is the per-run approximate-nearest-neighbor index over face
// embeddings. Built once after clustering; read-only afterwards.
type SimilarIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	count int
}

func newSimilarIndex() *SimilarIndex {
	return &SimilarIndex{}
}

// buildSimilarIndex indexes every face of the run that has an embedding.
func buildSimilarIndex(run *RunContext) *SimilarIndex {
	idx := &SimilarIndex{}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for _, faceID := range run.FaceOrder {
		face := run.Faces[faceID]
		if len(face.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(faceID, face.Embedding))
		idx.count++
	}
	if idx.count > 0 {
		idx.graph = g
	}
	return idx
}

// searchOverfetch widens graph queries beyond the requested k. The graph
// search is approximate and does not order its candidates, so we pull
// extra, re-rank by exact distance and truncate.
const searchOverfetch = 4

// Search returns up to k face ids nearest to the query embedding, sorted
// by ascending cosine distance.
func (idx *SimilarIndex) Search(query []float32, k int) ([]string, []float64) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || k <= 0 {
		return nil, nil
	}

	type scored struct {
		id   string
		dist float64
	}
	neighbors := idx.graph.Search(query, k+searchOverfetch)
	ranked := make([]scored, 0, len(neighbors))
	for _, n := range neighbors {
		ranked = append(ranked, scored{n.Key, cluster.CosineDistance(query, n.Value)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].dist < ranked[j].dist
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	ids := make([]string, 0, len(ranked))
	distances := make([]float64, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.id)
		distances = append(distances, r.dist)
	}
	return ids, distances
}

// SimilarFace pairs a face with its distance to the query face.
type SimilarFace struct {
	Face     FaceItem `json:"face"`
	Distance float64  `json:"distance"`
}

// SimilarFaces returns the k faces most similar to the given face,
// excluding the face itself.
func (m *Manager) SimilarFaces(runID, faceID string, k int) ([]SimilarFace, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()

	face, ok := run.Faces[faceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown face %q", ErrInvalidRequest, faceID)
	}
	if run.similar == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	// fetch one extra so the query face itself can be dropped
	ids, distances := run.similar.Search(face.Embedding, k+1)
	out := make([]SimilarFace, 0, k)
	for i, id := range ids {
		if id == faceID {
			continue
		}
		neighbor, ok := run.Faces[id]
		if !ok {
			continue
		}
		out = append(out, SimilarFace{
			Face:     run.faceItem(neighbor),
			Distance: distances[i],
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}
