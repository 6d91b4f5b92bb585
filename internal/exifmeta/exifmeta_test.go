package exifmeta

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating test image: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return path
}

func TestReadCaptureTimeUnreadable(t *testing.T) {
	_, reason := ReadCaptureTime(filepath.Join(t.TempDir(), "does-not-exist.jpg"))
	if reason != ReasonUnreadable {
		t.Errorf("reason = %q; want %q", reason, ReasonUnreadable)
	}
}

func TestReadCaptureTimeMissingExif(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "plain.jpg")
	ts, reason := ReadCaptureTime(path)
	if reason != ReasonMissing {
		t.Errorf("reason = %q; want %q", reason, ReasonMissing)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time, got %v", ts)
	}
}

func TestReadCaptureTimeGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.jpg")
	if err := os.WriteFile(path, []byte("not an image at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, reason := ReadCaptureTime(path)
	if reason != ReasonMissing {
		t.Errorf("reason = %q; want %q", reason, ReasonMissing)
	}
}
