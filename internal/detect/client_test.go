package detect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestPingUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Ping(context.Background())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestPingConnectionRefused(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if err := client.Ping(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestDetectSortsByScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{"bbox": []int{10, 10, 40, 50}, "score": 0.61},
				{"bbox": []int{80, 20, 30, 30}, "score": 0.93},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	faces, err := client.Detect(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if faces[0].Score != 0.93 {
		t.Errorf("faces not sorted by descending score: %v", faces)
	}
	if faces[1].BBox != [4]int{10, 10, 40, 50} {
		t.Errorf("unexpected bbox %v", faces[1].BBox)
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"dim":       3,
			"embedding": []float32{0.6, 0.8, 0},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	vec, err := client.Embed(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.6 {
		t.Errorf("unexpected embedding %v", vec)
	}
}

func TestEmbedDimMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dim":       512,
			"embedding": []float32{0.1, 0.2},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Embed(context.Background(), []byte("fake-jpeg")); err == nil {
		t.Error("expected error for dim mismatch")
	}
}

func TestDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Detect(context.Background(), []byte("fake-jpeg")); err == nil {
		t.Error("expected error for server failure")
	}
}
