// Package imageio wraps image loading, resizing and thumbnail generation
// for the processing pipeline.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Load opens an image with its EXIF orientation applied.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", path, err)
	}
	return img, nil
}

// EnsureMaxEdge downscales an image so its long edge is at most maxEdge.
// Images already within bounds are returned unchanged.
func EnsureMaxEdge(img image.Image, maxEdge int) image.Image {
	if maxEdge <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxEdge && bounds.Dy() <= maxEdge {
		return img
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

// CropFace cuts a square region around a face bounding box, padded by the
// given margin fraction and clamped to the image edges.
func CropFace(img image.Image, x, y, w, h int, margin float64) image.Image {
	cx := float64(x) + float64(w)/2
	cy := float64(y) + float64(h)/2
	size := float64(max(w, h)) * (1 + margin)
	half := size / 2

	bounds := img.Bounds()
	left := max(int(cx-half), bounds.Min.X)
	top := max(int(cy-half), bounds.Min.Y)
	right := min(int(cx+half), bounds.Max.X)
	bottom := min(int(cy+half), bounds.Max.Y)

	crop := imaging.Crop(img, image.Rect(left, top, right, bottom))
	edge := max(w, h)
	return imaging.Fill(crop, edge, edge, imaging.Center, imaging.Lanczos)
}

// SaveThumb writes a square JPEG thumbnail named after id into dir and
// returns its path.
func SaveThumb(dir, id string, img image.Image, edge, quality int) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating thumbnail dir: %w", err)
	}
	thumb := imaging.Fill(img, edge, edge, imaging.Center, imaging.Lanczos)
	path := filepath.Join(dir, id+".jpg")
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("saving thumbnail %s: %w", path, err)
	}
	return path, nil
}

// EncodeJPEG encodes an image as JPEG bytes for upload to the inference
// service.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
