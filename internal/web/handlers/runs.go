package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/chronoface/internal/bucket"
	"github.com/kozaktomas/chronoface/internal/config"
	"github.com/kozaktomas/chronoface/internal/pipeline"
)

// Default run parameters, applied when the request omits them.
const (
	defaultMaxEdge   = 1600
	defaultMinFacePx = 40
	defaultThumbEdge = 320
)

// RunsHandler starts runs and exposes their status and event streams.
type RunsHandler struct {
	config  *config.Config
	manager *pipeline.Manager
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(cfg *config.Config, manager *pipeline.Manager) *RunsHandler {
	return &RunsHandler{config: cfg, manager: manager}
}

type scanRequest struct {
	Folder            string `json:"folder"`
	Bucket            string `json:"bucket"`
	MaxEdge           int    `json:"max_edge"`
	MinFacePx         int    `json:"min_face_px"`
	ThumbEdge         int    `json:"thumb_edge"`
	DownscaleDetector *bool  `json:"downscale_detector"`
}

// Start launches a new background run.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	params := pipeline.RunParameters{
		Folder:            req.Folder,
		Bucket:            bucket.Granularity(req.Bucket),
		MaxEdge:           req.MaxEdge,
		MinFacePx:         req.MinFacePx,
		ThumbEdge:         req.ThumbEdge,
		DownscaleDetector: true,
	}
	if req.Bucket == "" {
		params.Bucket = bucket.Month
	}
	if params.MaxEdge == 0 {
		params.MaxEdge = defaultMaxEdge
	}
	if params.MinFacePx == 0 {
		params.MinFacePx = defaultMinFacePx
	}
	if params.ThumbEdge == 0 {
		params.ThumbEdge = defaultThumbEdge
	}
	if req.DownscaleDetector != nil {
		params.DownscaleDetector = *req.DownscaleDetector
	}

	run, err := h.manager.StartRun(params)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, run.Status())
}

// Status returns the current status snapshot of one run.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	run, err := h.manager.Get(chi.URLParam(r, "runId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run.Status())
}

// List returns the status of all known runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	runs := h.manager.Runs()
	out := make([]pipeline.StatusSnapshot, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.Status())
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// Skipped returns the run's skip list.
func (h *RunsHandler) Skipped(w http.ResponseWriter, r *http.Request) {
	skipped, err := h.manager.SkippedFiles(chi.URLParam(r, "runId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if skipped == nil {
		skipped = []pipeline.SkippedFile{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"skipped": skipped})
}

// Events streams the run's events via SSE until a terminal event arrives or
// the client disconnects.
func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")
	run, err := h.manager.Get(runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	ch, err := h.manager.GetChannel(runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sendSSEEvent(w, flusher, "status", run.Status())

	for {
		ev, ok, err := ch.Next(r.Context())
		if err != nil || !ok {
			return
		}
		sendSSEEvent(w, flusher, ev.Name, ev.Data)
		if ev.Terminal() {
			return
		}
	}
}

// sendSSEEvent writes one server-sent event and flushes it to the client.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
