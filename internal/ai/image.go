package ai

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// promptJPEGQuality is the re-encode quality for shrunk face crops.
const promptJPEGQuality = 85

// shrinkThumb bounds a JPEG face thumbnail to maxEdge pixels on its longer
// side before it goes into a vision prompt. Thumbnails already within
// bounds pass through untouched.
func shrinkThumb(data []byte, maxEdge int) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding face thumbnail: %w", err)
	}

	b := src.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return data, nil
	}

	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: promptJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding shrunk thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
