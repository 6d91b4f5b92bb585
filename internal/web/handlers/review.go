package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/chronoface/internal/ai"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

// ReviewHandler applies review mutations and cluster naming.
type ReviewHandler struct {
	config   *config.Config
	manager  *pipeline.Manager
	provider ai.Provider // nil when no AI backend is configured
}

// NewReviewHandler creates a review handler. The provider may be nil.
func NewReviewHandler(cfg *config.Config, manager *pipeline.Manager, provider ai.Provider) *ReviewHandler {
	return &ReviewHandler{config: cfg, manager: manager, provider: provider}
}

// Apply applies a batch of accept/reject/merge/split mutations and returns
// the full face collection.
func (h *ReviewHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.RunID = chi.URLParam(r, "runId")

	faces, err := h.manager.ApplyReview(req)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	run, err := h.manager.Get(req.RunID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": run.FaceItems(faces)})
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename assigns a display name to a cluster.
func (h *ReviewHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	runID := chi.URLParam(r, "runId")
	clusterID := chi.URLParam(r, "clusterId")
	if err := h.manager.RenameCluster(runID, clusterID, req.Name); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"cluster_id": clusterID,
		"name":       req.Name,
	})
}

// maxSuggestionFaces bounds how many face crops are sent to the model.
const maxSuggestionFaces = 4

// SuggestName asks the configured AI provider for a cluster display name.
func (h *ReviewHandler) SuggestName(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		respondError(w, http.StatusServiceUnavailable, "no AI provider configured")
		return
	}

	runID := chi.URLParam(r, "runId")
	clusterID := chi.URLParam(r, "clusterId")
	run, err := h.manager.Get(runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	faces, err := h.manager.ListClusterFaces(runID, clusterID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if len(faces) == 0 {
		respondError(w, http.StatusBadRequest, "cluster has no faces")
		return
	}

	var images [][]byte
	for _, face := range faces {
		if len(images) == maxSuggestionFaces {
			break
		}
		record, ok := run.Faces[face.FaceID]
		if !ok {
			continue
		}
		data, err := os.ReadFile(record.ThumbPath)
		if err != nil {
			log.Warn().Err(err).Str("face_id", face.FaceID).Msg("face thumbnail unreadable")
			continue
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		respondError(w, http.StatusInternalServerError, "no readable face thumbnails")
		return
	}

	existing := make([]string, 0, len(run.ClusterNames))
	for _, name := range run.ClusterNames {
		existing = append(existing, name)
	}

	suggestion, err := h.provider.SuggestClusterName(r.Context(), images, existing)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}
