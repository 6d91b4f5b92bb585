package pipeline

import (
	"errors"
	"testing"
)

func similarFixture(t *testing.T) (*Manager, *RunContext) {
	t.Helper()
	m, run := reviewFixture(t)
	run.Faces["f1"].Embedding = []float32{1, 0, 0}
	run.Faces["f2"].Embedding = []float32{0.98, 0.199, 0}
	run.Faces["f3"].Embedding = []float32{0, 1, 0}
	run.Faces["f4"].Embedding = []float32{0, 0, 1}
	run.Faces["f5"].Embedding = []float32{0.97, 0.24, 0}
	run.Faces["f6"].Embedding = []float32{0, 0.98, 0.199}
	run.similar = buildSimilarIndex(run)
	return m, run
}

func TestSimilarFaces(t *testing.T) {
	m, run := similarFixture(t)

	got, err := m.SimilarFaces(run.RunID, "f1", 2)
	if err != nil {
		t.Fatalf("SimilarFaces failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("neighbors = %d, want 2", len(got))
	}
	for _, n := range got {
		if n.Face.FaceID == "f1" {
			t.Error("query face returned as its own neighbor")
		}
		if n.Face.FaceID == "f3" || n.Face.FaceID == "f4" {
			t.Errorf("orthogonal face %s among nearest neighbors", n.Face.FaceID)
		}
	}
	if got[0].Distance > got[1].Distance {
		t.Errorf("neighbors not sorted by distance: %v", got)
	}
}

// The graph search is approximate and unordered; the wrapper must re-rank
// by exact distance so the true nearest neighbors come first.
func TestSimilarIndexSearchRanksByDistance(t *testing.T) {
	_, run := similarFixture(t)

	ids, distances := run.similar.Search([]float32{1, 0, 0}, 3)
	if len(ids) != 3 {
		t.Fatalf("results = %d, want 3", len(ids))
	}
	want := []string{"f1", "f2", "f5"}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("position %d = %q, want %q (ids %v)", i, ids[i], id, ids)
		}
	}
	for i := 1; i < len(distances); i++ {
		if distances[i-1] > distances[i] {
			t.Errorf("distances not ascending: %v", distances)
		}
	}
}

func TestSimilarFacesUnknownIDs(t *testing.T) {
	m, run := similarFixture(t)

	if _, err := m.SimilarFaces("ghost", "f1", 3); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := m.SimilarFaces(run.RunID, "ghost", 3); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSimilarIndexEmpty(t *testing.T) {
	idx := newSimilarIndex()
	if ids, _ := idx.Search([]float32{1, 0, 0}, 5); ids != nil {
		t.Errorf("empty index returned %v", ids)
	}
}
