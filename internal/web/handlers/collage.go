package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/chronoface/internal/collage"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

// CollageHandler renders face collages for a finished run.
type CollageHandler struct {
	config  *config.Config
	manager *pipeline.Manager
}

// NewCollageHandler creates a collage handler.
func NewCollageHandler(cfg *config.Config, manager *pipeline.Manager) *CollageHandler {
	return &CollageHandler{config: cfg, manager: manager}
}

type collageRequest struct {
	Bucket   string   `json:"bucket"`
	Policy   string   `json:"policy"`
	Order    string   `json:"order"`
	FaceIDs  []string `json:"face_ids"`
	Format   string   `json:"format"`
	Title    string   `json:"title"`
	Columns  int      `json:"columns"`
	MaxFaces int      `json:"max_faces"`
	Rounded  *bool    `json:"rounded"`
	Labels   *bool    `json:"labels"`
}

// Render builds a collage from the selected faces of one bucket and writes
// it under the static collage directory.
func (h *CollageHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req collageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	runID := chi.URLParam(r, "runId")
	run, err := h.manager.Get(runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	bucketKey := req.Bucket
	if bucketKey == "" {
		bucketKey = pipeline.BucketAll
	}
	policy := pipeline.SelectionPolicy(req.Policy)
	if req.Policy == "" {
		policy = pipeline.SelectAcceptedAndUnreviewed
	}
	order := pipeline.SortMode(req.Order)
	if req.Order == "" {
		order = pipeline.SortByTime
	}

	faces := run.SelectFaces(bucketKey, policy, req.FaceIDs)
	if len(faces) == 0 {
		respondError(w, http.StatusBadRequest, "no faces selected")
		return
	}
	faces = run.SortFaces(faces, order, bucketKey)
	if req.MaxFaces > 0 && len(faces) > req.MaxFaces {
		faces = faces[:req.MaxFaces]
	}

	tiles := make([]collage.Tile, 0, len(faces))
	for _, face := range faces {
		img, err := imaging.Open(face.ThumbPath)
		if err != nil {
			log.Warn().Err(err).Str("face_id", face.FaceID).Msg("face thumbnail unreadable")
			continue
		}
		tiles = append(tiles, collage.Tile{Image: img, Label: run.TileLabel(face)})
	}
	if len(tiles) == 0 {
		respondError(w, http.StatusInternalServerError, "no readable face thumbnails")
		return
	}

	rounded := true
	if req.Rounded != nil {
		rounded = *req.Rounded
	}
	labels := true
	if req.Labels != nil {
		labels = *req.Labels
	}

	title := req.Title
	if title == "" {
		if label, ok := run.BucketLabels[bucketKey]; ok {
			title = label
		}
	}

	img, err := collage.Render(tiles, collage.Options{
		Format:  req.Format,
		Title:   title,
		Columns: req.Columns,
		Rounded: rounded,
		Labels:  labels,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	dir := filepath.Join(h.config.CollageDir(), runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	name := fmt.Sprintf("%s.jpg", sanitizeFilename(bucketKey))
	path := filepath.Join(dir, name)
	if err := collage.Save(path, img, h.config.ThumbQuality); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"path":       path,
		"url":        fmt.Sprintf("/static/collages/%s/%s", runID, name),
		"face_count": len(tiles),
	})
}

// sanitizeFilename keeps bucket keys filesystem-safe.
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
