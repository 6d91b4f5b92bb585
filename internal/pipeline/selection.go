package pipeline

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/kozaktomas/chronoface/internal/bucket"
)

// SelectionPolicy decides which review states qualify a face for rendering.
type SelectionPolicy string

const (
	// SelectAcceptedOnly keeps faces explicitly marked accepted.
	SelectAcceptedOnly SelectionPolicy = "accepted_only"
	// SelectAcceptedAndUnreviewed keeps everything not explicitly rejected.
	SelectAcceptedAndUnreviewed SelectionPolicy = "accepted_and_unreviewed"
)

// SortMode orders the selected faces for rendering.
type SortMode string

const (
	SortByTime    SortMode = "by_time"
	SortByCluster SortMode = "by_cluster"
	SortRandom    SortMode = "random"
)

// BucketAll selects faces across every bucket of the run.
const BucketAll = "all"

// SelectFaces returns the faces of a bucket filtered by the review policy.
// An explicit allow-list overrides the policy entirely.
func (r *RunContext) SelectFaces(bucketKey string, policy SelectionPolicy, allowList []string) []*FaceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	if bucketKey == BucketAll || bucketKey == "" {
		ids = r.FaceOrder
	} else {
		ids = r.FacesByBucket[bucketKey]
	}

	if len(allowList) > 0 {
		allowed := make(map[string]bool, len(allowList))
		for _, id := range allowList {
			allowed[id] = true
		}
		var out []*FaceRecord
		for _, id := range ids {
			if allowed[id] {
				out = append(out, r.Faces[id])
			}
		}
		return out
	}

	var out []*FaceRecord
	for _, id := range ids {
		face := r.Faces[id]
		switch policy {
		case SelectAcceptedOnly:
			if face.Accepted != nil && *face.Accepted {
				out = append(out, face)
			}
		default:
			if face.Accepted == nil || *face.Accepted {
				out = append(out, face)
			}
		}
	}
	return out
}

// SortFaces orders faces for rendering. The random mode shuffles with a
// seed derived from run id, bucket and mode so the same inputs always
// produce the same layout.
func (r *RunContext) SortFaces(faces []*FaceRecord, mode SortMode, bucketKey string) []*FaceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*FaceRecord, len(faces))
	copy(out, faces)

	timestamp := func(f *FaceRecord) int64 {
		if photo, ok := r.Photos[f.PhotoID]; ok {
			return photo.Timestamp.UnixNano()
		}
		return 0
	}

	switch mode {
	case SortByCluster:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].ClusterID != out[j].ClusterID {
				return out[i].ClusterID < out[j].ClusterID
			}
			return timestamp(out[i]) < timestamp(out[j])
		})
	case SortRandom:
		h := fnv.New64a()
		h.Write([]byte(r.RunID))
		h.Write([]byte(bucketKey))
		h.Write([]byte(mode))
		rng := rand.New(rand.NewSource(int64(h.Sum64())))
		rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return timestamp(out[i]) < timestamp(out[j])
		})
	}
	return out
}

// TileLabel formats a face's capture date for a collage tile, at a detail
// level matching the run's bucket granularity.
func (r *RunContext) TileLabel(f *FaceRecord) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	photo, ok := r.Photos[f.PhotoID]
	if !ok {
		return ""
	}
	switch r.Parameters.Bucket {
	case bucket.Day:
		return photo.Timestamp.Format("15:04")
	case bucket.Week, bucket.Month, bucket.Year:
		return photo.Timestamp.Format("Jan 02")
	}
	return photo.Timestamp.Format("Jan 02, 2006")
}
