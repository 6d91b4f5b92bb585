package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/kozaktomas/chronoface/internal/bucket"
)

// BucketSummary describes one time bucket of a run.
type BucketSummary struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	PhotoCount int    `json:"photo_count"`
	FaceCount  int    `json:"face_count"`
}

// ClusterSummary describes one identity cluster of a run.
type ClusterSummary struct {
	ClusterID string `json:"cluster_id"`
	FaceCount int    `json:"face_count"`
	Label     string `json:"label"`
}

// FaceItem is the wire form of a face.
type FaceItem struct {
	FaceID         string    `json:"face_id"`
	PhotoID        string    `json:"photo_id"`
	Bucket         string    `json:"bucket"`
	BBox           [4]int    `json:"bbox"`
	Score          float64   `json:"score"`
	SizePx         int       `json:"size_px"`
	EmbeddingID    string    `json:"embedding_id"`
	ClusterID      string    `json:"cluster_id"`
	Accepted       *bool     `json:"accepted"`
	ThumbURL       string    `json:"thumb_url"`
	PhotoPath      string    `json:"photo_path"`
	PhotoTimestamp time.Time `json:"photo_timestamp"`
}

// ListBuckets returns the run's buckets in chronological order.
func (m *Manager) ListBuckets(runID string) ([]BucketSummary, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()

	keys := make([]string, 0, len(run.BucketLabels))
	for key := range run.BucketLabels {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bucket.Less(keys[i], keys[j])
	})

	out := make([]BucketSummary, 0, len(keys))
	for _, key := range keys {
		out = append(out, BucketSummary{
			Key:        key,
			Label:      run.BucketLabels[key],
			PhotoCount: len(run.PhotosByBucket[key]),
			FaceCount:  len(run.FacesByBucket[key]),
		})
	}
	return out, nil
}

// ListClusters returns the run's clusters, noise always last, otherwise
// sorted by cluster id.
func (m *Manager) ListClusters(runID string) ([]ClusterSummary, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()

	ids := make([]string, 0, len(run.Clusters))
	for id := range run.Clusters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i] == ClusterNoise {
			return false
		}
		if ids[j] == ClusterNoise {
			return true
		}
		return ids[i] < ids[j]
	})

	out := make([]ClusterSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, ClusterSummary{
			ClusterID: id,
			FaceCount: len(run.Clusters[id]),
			Label:     run.clusterLabel(id),
		})
	}
	return out, nil
}

// clusterLabel prefers the reviewer-assigned name over the generated one.
func (r *RunContext) clusterLabel(clusterID string) string {
	if name, ok := r.ClusterNames[clusterID]; ok {
		return name
	}
	if clusterID == ClusterNoise {
		return "Noise"
	}
	return fmt.Sprintf("Person %s", clusterID)
}

// ListFaces returns the faces of a bucket ("all" for the whole run) in
// enumeration order.
func (m *Manager) ListFaces(runID, bucketKey string) ([]FaceItem, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()

	var ids []string
	if bucketKey == BucketAll || bucketKey == "" {
		ids = run.FaceOrder
	} else {
		ids = run.FacesByBucket[bucketKey]
	}

	out := make([]FaceItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, run.faceItem(run.Faces[id]))
	}
	return out, nil
}

// ListClusterFaces returns the member faces of one cluster in membership
// order.
func (m *Manager) ListClusterFaces(runID, clusterID string) ([]FaceItem, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()

	members := run.Clusters[clusterID]
	out := make([]FaceItem, 0, len(members))
	for _, id := range members {
		if face, ok := run.Faces[id]; ok {
			out = append(out, run.faceItem(face))
		}
	}
	return out, nil
}

// SkippedFiles returns the run's skip list.
func (m *Manager) SkippedFiles(runID string) ([]SkippedFile, error) {
	run, err := m.Get(runID)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()
	out := make([]SkippedFile, len(run.Skipped))
	copy(out, run.Skipped)
	return out, nil
}

// FaceItem converts a face record to its wire form.
func (r *RunContext) FaceItem(f *FaceRecord) FaceItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.faceItem(f)
}

// faceItem is FaceItem for callers already holding the run lock.
func (r *RunContext) faceItem(f *FaceRecord) FaceItem {
	item := FaceItem{
		FaceID:      f.FaceID,
		PhotoID:     f.PhotoID,
		Bucket:      f.BucketKey,
		BBox:        f.BBox,
		Score:       f.Score,
		SizePx:      f.SizePx,
		EmbeddingID: f.EmbeddingID,
		ClusterID:   f.ClusterID,
		Accepted:    f.Accepted,
		ThumbURL:    fmt.Sprintf("/static/faces/%s.jpg", f.FaceID),
	}
	if photo, ok := r.Photos[f.PhotoID]; ok {
		item.PhotoPath = photo.Path
		item.PhotoTimestamp = photo.Timestamp
	}
	return item
}

// FaceItems converts a slice of face records to wire form.
func (r *RunContext) FaceItems(faces []*FaceRecord) []FaceItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FaceItem, 0, len(faces))
	for _, f := range faces {
		out = append(out, r.faceItem(f))
	}
	return out
}
