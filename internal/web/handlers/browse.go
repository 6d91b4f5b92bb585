package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

// BrowseHandler serves the bucket, cluster and face views of a finished run.
type BrowseHandler struct {
	config  *config.Config
	manager *pipeline.Manager
}

// NewBrowseHandler creates a browse handler.
func NewBrowseHandler(cfg *config.Config, manager *pipeline.Manager) *BrowseHandler {
	return &BrowseHandler{config: cfg, manager: manager}
}

// Buckets returns the run's time buckets in chronological order.
func (h *BrowseHandler) Buckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.manager.ListBuckets(chi.URLParam(r, "runId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

// Clusters returns the run's identity clusters, noise last.
func (h *BrowseHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.manager.ListClusters(chi.URLParam(r, "runId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

// ClusterFaces returns the member faces of one cluster.
func (h *BrowseHandler) ClusterFaces(w http.ResponseWriter, r *http.Request) {
	faces, err := h.manager.ListClusterFaces(chi.URLParam(r, "runId"), chi.URLParam(r, "clusterId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}

// Faces returns the faces of one bucket, or all faces when the bucket query
// parameter is absent.
func (h *BrowseHandler) Faces(w http.ResponseWriter, r *http.Request) {
	bucketKey := r.URL.Query().Get("bucket")
	if bucketKey == "" {
		bucketKey = pipeline.BucketAll
	}
	faces, err := h.manager.ListFaces(chi.URLParam(r, "runId"), bucketKey)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}

// Similar returns faces most similar to the given face.
func (h *BrowseHandler) Similar(w http.ResponseWriter, r *http.Request) {
	k := 10
	if v := r.URL.Query().Get("k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			k = n
		}
	}

	similar, err := h.manager.SimilarFaces(chi.URLParam(r, "runId"), chi.URLParam(r, "faceId"), k)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if similar == nil {
		similar = []pipeline.SimilarFace{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"similar": similar})
}
