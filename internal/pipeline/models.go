// Package pipeline owns the run state machine: scanning a photo folder,
// detecting and embedding faces, clustering them into identities, and the
// review mutations applied afterwards.
package pipeline

import (
	"sync"
	"time"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/cluster"
)

// Phase is one stage of the run state machine.
type Phase string

// Run phases, in pipeline order. PhaseError is reachable from any phase.
const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseDetecting  Phase = "detecting"
	PhaseEmbedding  Phase = "embedding"
	PhaseClustering Phase = "clustering"
	PhaseDone       Phase = "done"
	PhaseError      Phase = "error"
)

// Sentinel cluster identifiers. Generated cluster ids use the cluster_NNN
// namespace so they cannot collide with these.
const (
	ClusterNoise      = cluster.NoiseLabel
	ClusterUnassigned = "unassigned"
)

// RunParameters are the immutable settings of one run.
type RunParameters struct {
	Folder            string
	Bucket            bucket.Granularity
	MaxEdge           int
	MinFacePx         int
	ThumbEdge         int
	DownscaleDetector bool
}

// PhotoRecord is one accepted source photo. Immutable after scanning.
type PhotoRecord struct {
	PhotoID     string
	Path        string
	Timestamp   time.Time
	BucketKey   string
	BucketLabel string
	ThumbPath   string
	Width       int
	Height      int
	DetectScale float64 // original long edge / detection-space long edge, >= 1
}

// FaceRecord is one detected face. Embedding and ClusterID are rewritten by
// the clustering engine and review mutations; the rest is immutable.
type FaceRecord struct {
	FaceID      string
	PhotoID     string
	BucketKey   string
	BBox        [4]int // x, y, w, h in detection-space pixels
	Score       float64
	SizePx      int
	EmbeddingID string
	Embedding   []float32
	ClusterID   string
	Accepted    *bool // nil = unreviewed
	ThumbPath   string
}

// RunStats carries the progress counters shown to the caller.
type RunStats struct {
	Processed int
	Total     int
	Message   string
}

// StatusSnapshot is the wire form of a run's current state.
type StatusSnapshot struct {
	RunID     string `json:"run_id"`
	Phase     Phase  `json:"phase"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// SkippedFile records a source file that never became a photo.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RunContext is the aggregate root for one run. The mu lock covers phase,
// stats and the data indices below: the pipeline worker and the review
// engine take the write lock while mutating them, queries take the read
// lock, so browsing a run is safe while its worker is still indexing.
// Review batches are additionally serialized through reviewMu.
type RunContext struct {
	RunID      string
	Parameters RunParameters

	mu          sync.RWMutex
	phase       Phase
	stats       RunStats
	startedAt   time.Time
	completedAt time.Time

	Photos         map[string]*PhotoRecord
	PhotoOrder     []string // insertion order of photo ids
	PhotosByBucket map[string][]string
	Faces          map[string]*FaceRecord
	FaceOrder      []string // insertion order of face ids
	FacesByBucket  map[string][]string
	BucketLabels   map[string]string
	Clusters       map[string][]string // cluster id -> member face ids
	ClusterNames   map[string]string   // reviewer-assigned display names

	Skipped []SkippedFile
	Errors  []string

	channel  *EventChannel
	similar  *SimilarIndex
	reviewMu sync.Mutex
}

func newRunContext(runID string, params RunParameters) *RunContext {
	return &RunContext{
		RunID:          runID,
		Parameters:     params,
		phase:          PhaseIdle,
		startedAt:      time.Now().UTC(),
		Photos:         make(map[string]*PhotoRecord),
		PhotosByBucket: make(map[string][]string),
		Faces:          make(map[string]*FaceRecord),
		FacesByBucket:  make(map[string][]string),
		BucketLabels:   make(map[string]string),
		Clusters:       make(map[string][]string),
		ClusterNames:   make(map[string]string),
	}
}

// UpdatePhase moves the run to a new phase and stamps completion on
// terminal phases.
func (r *RunContext) UpdatePhase(phase Phase, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
	r.stats.Message = message
	if phase == PhaseDone || phase == PhaseError {
		r.completedAt = time.Now().UTC()
	}
}

// Phase returns the current phase.
func (r *RunContext) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// setProgress updates the progress counters.
func (r *RunContext) setProgress(processed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Processed = processed
	r.stats.Total = total
}

// setProcessed bumps only the processed counter.
func (r *RunContext) setProcessed(processed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Processed = processed
}

// setTotal revises only the total counter.
func (r *RunContext) setTotal(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Total = total
}

// addSkipped appends one entry to the run's skip list.
func (r *RunContext) addSkipped(s SkippedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, s)
}

// Status returns a consistent snapshot of the run's progress.
func (r *RunContext) Status() StatusSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return StatusSnapshot{
		RunID:     r.RunID,
		Phase:     r.phase,
		Processed: r.stats.Processed,
		Total:     r.stats.Total,
		Message:   r.stats.Message,
	}
}

// StartedAt returns when the run was created.
func (r *RunContext) StartedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startedAt
}

// CompletedAt returns when the run reached a terminal phase (zero while
// still running).
func (r *RunContext) CompletedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.completedAt
}
