package imageio

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func testImage(w, h int) image.Image {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	return img
}

func TestEnsureMaxEdge(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		maxEdge int
		wantW   int
		wantH   int
	}{
		{"landscape downscaled", 1600, 800, 400, 400, 200},
		{"portrait downscaled", 600, 1200, 300, 150, 300},
		{"already small", 100, 50, 400, 100, 50},
		{"disabled", 1600, 800, 0, 1600, 800},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := EnsureMaxEdge(testImage(tc.w, tc.h), tc.maxEdge)
			b := out.Bounds()
			if b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Errorf("got %dx%d; want %dx%d", b.Dx(), b.Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestCropFaceIsSquare(t *testing.T) {
	img := testImage(400, 300)
	crop := CropFace(img, 100, 80, 60, 40, 0.25)
	b := crop.Bounds()
	if b.Dx() != 60 || b.Dy() != 60 {
		t.Errorf("crop = %dx%d; want 60x60", b.Dx(), b.Dy())
	}
}

func TestCropFaceClampsToImage(t *testing.T) {
	img := testImage(100, 100)
	// Box hangs over the top-left corner.
	crop := CropFace(img, 0, 0, 40, 40, 0.5)
	b := crop.Bounds()
	if b.Dx() != 40 || b.Dy() != 40 {
		t.Errorf("crop = %dx%d; want 40x40", b.Dx(), b.Dy())
	}
}

func TestSaveThumb(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "thumbs")
	path, err := SaveThumb(dir, "photo-1", testImage(300, 200), 64, 90)
	if err != nil {
		t.Fatalf("SaveThumb failed: %v", err)
	}
	if filepath.Base(path) != "photo-1.jpg" {
		t.Errorf("unexpected thumb name %q", path)
	}

	saved, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("opening saved thumb: %v", err)
	}
	if saved.Bounds().Dx() != 64 || saved.Bounds().Dy() != 64 {
		t.Errorf("thumb = %dx%d; want 64x64", saved.Bounds().Dx(), saved.Bounds().Dy())
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(testImage(32, 32), 85)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty JPEG data")
	}
	// JPEG magic bytes.
	if data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("missing JPEG SOI marker: % x", data[:2])
	}
}
