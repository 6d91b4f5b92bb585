package pipeline

import (
	"fmt"
	"strings"
)

// MergeOp merges the trailing clusters into the first one.
type MergeOp struct {
	Clusters []string `json:"clusters"`
}

// SplitOp moves the named faces out of a cluster into a derived one.
type SplitOp struct {
	ClusterID string   `json:"cluster_id"`
	FaceIDs   []string `json:"face_ids"`
}

// ReviewRequest is one batch of review mutations. Unknown face and cluster
// ids are ignored so client retries stay idempotent.
type ReviewRequest struct {
	RunID          string     `json:"run_id"`
	Accept         []string   `json:"accept"`
	Reject         []string   `json:"reject"`
	AcceptClusters []string   `json:"accept_clusters"`
	RejectClusters []string   `json:"reject_clusters"`
	MergeClusters  []MergeOp  `json:"merge_clusters"`
	SplitClusters  []SplitOp  `json:"split_clusters"`
}

// ApplyReview applies all mutations in the request and returns the full
// face collection in enumeration order.
func (m *Manager) ApplyReview(req ReviewRequest) ([]*FaceRecord, error) {
	run, err := m.Get(req.RunID)
	if err != nil {
		return nil, err
	}

	run.reviewMu.Lock()
	defer run.reviewMu.Unlock()
	run.mu.Lock()
	defer run.mu.Unlock()

	setAccepted(run, req.Accept, true)
	setAccepted(run, req.Reject, false)
	setClusterAccepted(run, req.AcceptClusters, true)
	setClusterAccepted(run, req.RejectClusters, false)
	for _, op := range req.MergeClusters {
		mergeClusters(run, op.Clusters)
	}
	for _, op := range req.SplitClusters {
		splitCluster(run, op.ClusterID, op.FaceIDs)
	}

	return run.allFaces(), nil
}

// RenameCluster assigns a display name to a cluster. Names are unique per
// run under diacritic-insensitive comparison.
func (m *Manager) RenameCluster(runID, clusterID, name string) error {
	run, err := m.Get(runID)
	if err != nil {
		return err
	}

	run.reviewMu.Lock()
	defer run.reviewMu.Unlock()
	run.mu.Lock()
	defer run.mu.Unlock()

	if _, ok := run.Clusters[clusterID]; !ok {
		return fmt.Errorf("%w: unknown cluster %q", ErrInvalidRequest, clusterID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		delete(run.ClusterNames, clusterID)
		return nil
	}
	normalized := NormalizeName(name)
	for id, existing := range run.ClusterNames {
		if id != clusterID && NormalizeName(existing) == normalized {
			return fmt.Errorf("%w: name %q already used by %s", ErrInvalidRequest, name, id)
		}
	}
	run.ClusterNames[clusterID] = name
	return nil
}

func setAccepted(run *RunContext, faceIDs []string, accepted bool) {
	for _, id := range faceIDs {
		if face, ok := run.Faces[id]; ok {
			v := accepted
			face.Accepted = &v
		}
	}
}

func setClusterAccepted(run *RunContext, clusterIDs []string, accepted bool) {
	for _, clusterID := range clusterIDs {
		for _, faceID := range run.Clusters[clusterID] {
			if face, ok := run.Faces[faceID]; ok {
				v := accepted
				face.Accepted = &v
			}
		}
	}
}

// mergeClusters folds every cluster after the first into the first. Fewer
// than two ids is a no-op; a missing source is skipped; a missing target is
// created.
func mergeClusters(run *RunContext, ids []string) {
	if len(ids) < 2 {
		return
	}
	target := ids[0]
	for _, source := range ids[1:] {
		if source == target {
			continue
		}
		members, ok := run.Clusters[source]
		if !ok {
			continue
		}
		for _, faceID := range members {
			if face, ok := run.Faces[faceID]; ok {
				face.ClusterID = target
			}
		}
		run.Clusters[target] = dedupe(append(run.Clusters[target], members...))
		delete(run.Clusters, source)
	}
}

// splitCluster extracts the named faces into a cluster with a derived id.
// The derived id gets a counter suffix when earlier splits already took the
// plain one.
func splitCluster(run *RunContext, clusterID string, faceIDs []string) {
	members, ok := run.Clusters[clusterID]
	if !ok || len(faceIDs) == 0 {
		return
	}

	extract := make(map[string]bool, len(faceIDs))
	for _, id := range faceIDs {
		extract[id] = true
	}

	var moved, kept []string
	for _, faceID := range members {
		if extract[faceID] {
			moved = append(moved, faceID)
		} else {
			kept = append(kept, faceID)
		}
	}
	if len(moved) == 0 {
		return
	}

	newID := deriveSplitID(run, clusterID)
	for _, faceID := range moved {
		if face, ok := run.Faces[faceID]; ok {
			face.ClusterID = newID
		}
	}
	run.Clusters[clusterID] = kept
	run.Clusters[newID] = moved
}

// deriveSplitID returns clusterID + "_split", adding a numeric suffix when
// that id is already taken by a previous split.
func deriveSplitID(run *RunContext, clusterID string) string {
	base := clusterID + "_split"
	id := base
	for n := 2; ; n++ {
		if _, taken := run.Clusters[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s%d", base, n)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// allFaces returns the run's faces in enumeration order.
func (r *RunContext) allFaces() []*FaceRecord {
	out := make([]*FaceRecord, 0, len(r.FaceOrder))
	for _, id := range r.FaceOrder {
		out = append(out, r.Faces[id])
	}
	return out
}
