package collage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func testTile(c color.NRGBA, label string) Tile {
	img := image.NewNRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return Tile{Image: img, Label: label}
}

func TestFormats(t *testing.T) {
	formats, err := Formats()
	if err != nil {
		t.Fatalf("Formats failed: %v", err)
	}
	a4, ok := formats["a4"]
	if !ok {
		t.Fatal("a4 format missing")
	}
	if a4.Width != 2480 || a4.Height != 3508 {
		t.Errorf("a4 = %dx%d, want 2480x3508", a4.Width, a4.Height)
	}
	if _, ok := formats["a5"]; !ok {
		t.Error("a5 format missing")
	}
	if _, ok := formats["a3"]; !ok {
		t.Error("a3 format missing")
	}
}

func TestRenderGrid(t *testing.T) {
	tiles := []Tile{
		testTile(color.NRGBA{200, 40, 40, 255}, "Mar 01"),
		testTile(color.NRGBA{40, 200, 40, 255}, "Mar 02"),
		testTile(color.NRGBA{40, 40, 200, 255}, "Mar 03"),
		testTile(color.NRGBA{200, 200, 40, 255}, "Mar 04"),
		testTile(color.NRGBA{40, 200, 200, 255}, "Mar 05"),
	}

	img, err := Render(tiles, Options{
		Width:   600,
		Height:  800,
		Title:   "March 2024",
		Rounded: true,
		Labels:  true,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 800 {
		t.Errorf("canvas = %dx%d, want 600x800", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderPaperFormat(t *testing.T) {
	tiles := []Tile{testTile(color.NRGBA{100, 100, 100, 255}, "")}

	img, err := Render(tiles, Options{Format: "a5"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds().Dx() != 1748 || img.Bounds().Dy() != 2480 {
		t.Errorf("canvas = %dx%d, want a5 1748x2480", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	tiles := []Tile{testTile(color.NRGBA{0, 0, 0, 255}, "")}
	if _, err := Render(tiles, Options{Format: "letter"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderNoTiles(t *testing.T) {
	if _, err := Render(nil, Options{Width: 100, Height: 100}); err == nil {
		t.Error("expected error for empty tile list")
	}
}

func TestRenderFixedColumns(t *testing.T) {
	tiles := make([]Tile, 6)
	for i := range tiles {
		tiles[i] = testTile(color.NRGBA{uint8(i * 40), 80, 80, 255}, "")
	}
	img, err := Render(tiles, Options{Width: 400, Height: 900, Columns: 2})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if img.Bounds().Dx() != 400 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestSave(t *testing.T) {
	tiles := []Tile{testTile(color.NRGBA{10, 120, 70, 255}, "")}
	img, err := Render(tiles, Options{Width: 200, Height: 300})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "collage.jpg")
	if err := Save(path, img, 90); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("collage not written: %v", err)
	}
	loaded, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("reopening collage: %v", err)
	}
	if loaded.Bounds().Dx() != 200 {
		t.Errorf("reloaded width = %d, want 200", loaded.Bounds().Dx())
	}
}

func TestRoundedMaskCorners(t *testing.T) {
	mask := roundedMask(40, 40, 10)
	if mask.AlphaAt(0, 0).A != 0 {
		t.Error("corner pixel should be transparent")
	}
	if mask.AlphaAt(20, 20).A != 255 {
		t.Error("center pixel should be opaque")
	}
	if mask.AlphaAt(20, 0).A != 255 {
		t.Error("edge midpoint should be opaque")
	}
}
