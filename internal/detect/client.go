// Package detect talks to the local face inference service that runs the
// detection and embedding models.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

// ErrModelUnavailable indicates the inference service cannot be reached; a
// run must not start without it.
var ErrModelUnavailable = errors.New("face model service unavailable")

// Detection is one face found in an image. The bounding box is x, y, w, h in
// the pixel space of the submitted image.
type Detection struct {
	BBox      [4]int        `json:"bbox"`
	Score     float64       `json:"score"`
	Landmarks [5][2]float64 `json:"landmarks"`
}

// Client calls the face inference HTTP service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the inference service at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Ping verifies the inference service is reachable and its models are loaded.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

// Detect runs face detection on a JPEG-encoded image. Results are sorted by
// descending confidence.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Detection, error) {
	body, err := c.postImage(ctx, "/detect", imageData)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Faces []Detection `json:"faces"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing detect response: %w", err)
	}

	sort.SliceStable(resp.Faces, func(i, j int) bool {
		return resp.Faces[i].Score > resp.Faces[j].Score
	})
	return resp.Faces, nil
}

// Embed computes the identity embedding for a cropped face image. The service
// returns unit-norm vectors; the pipeline consumes them as-is.
func (c *Client) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	body, err := c.postImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Dim       int       `json:"dim"`
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing embed response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("embed response contained no vector")
	}
	if resp.Dim != 0 && resp.Dim != len(resp.Embedding) {
		return nil, fmt.Errorf("embedding dim mismatch: header %d, vector %d", resp.Dim, len(resp.Embedding))
	}
	return resp.Embedding, nil
}

// postImage uploads an image as a multipart form and returns the raw
// response body.
func (c *Client) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
