// Package collage renders a printable grid of face crops for one time
// bucket, with optional title and per-tile date labels.
package collage

import (
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var formatsYAML []byte

// Format is a paper size in pixels.
type Format struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Formats returns the known paper formats keyed by lowercase name.
func Formats() (map[string]Format, error) {
	var payload struct {
		Formats map[string]Format `yaml:"formats"`
	}
	if err := yaml.Unmarshal(formatsYAML, &payload); err != nil {
		return nil, fmt.Errorf("parsing formats: %w", err)
	}
	return payload.Formats, nil
}

// Tile is one face image with an optional label drawn underneath.
type Tile struct {
	Image image.Image
	Label string
}

// Options controls collage layout.
type Options struct {
	Format  string // paper format name; ignored when Width/Height are set
	Width   int
	Height  int
	Title   string
	Columns int  // 0 picks a near-square grid
	Rounded bool // round tile corners
	Labels  bool // draw tile labels
}

const (
	marginFrac  = 0.04 // page margin as a fraction of page width
	gapFrac     = 0.015
	cornerFrac  = 0.12 // corner radius as a fraction of tile size
	titleFrac   = 0.05 // title height as a fraction of page height
	labelFrac   = 0.30 // label strip height as a fraction of tile size
	maxLabelPt  = 28.0
	background  = 0xff
)

// Render lays the tiles out on a single page. Tiles are cropped square and
// placed row by row; the last row is centered.
func Render(tiles []Tile, opts Options) (image.Image, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("no tiles to render")
	}

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		formats, err := Formats()
		if err != nil {
			return nil, err
		}
		name := strings.ToLower(opts.Format)
		if name == "" {
			name = "a4"
		}
		f, ok := formats[name]
		if !ok {
			return nil, fmt.Errorf("unknown paper format %q", opts.Format)
		}
		width, height = f.Width, f.Height
	}

	canvas := imaging.New(width, height, color.NRGBA{background, background, background, 255})

	margin := int(float64(width) * marginFrac)
	gap := int(float64(width) * gapFrac)
	top := margin
	if opts.Title != "" {
		titleH := int(float64(height) * titleFrac)
		if err := drawTitle(canvas, opts.Title, width, margin, titleH); err != nil {
			return nil, err
		}
		top += titleH + gap
	}

	cols := opts.Columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(tiles)))))
	}
	if cols > len(tiles) {
		cols = len(tiles)
	}
	rows := (len(tiles) + cols - 1) / cols

	tileW := (width - 2*margin - (cols-1)*gap) / cols
	labelH := 0
	if opts.Labels {
		labelH = int(float64(tileW) * labelFrac)
	}
	cellH := tileW + labelH

	// shrink tiles if the grid overflows the page
	availH := height - top - margin
	if rows*cellH+(rows-1)*gap > availH {
		scale := float64(availH-(rows-1)*gap) / float64(rows*cellH)
		tileW = int(float64(tileW) * scale)
		if opts.Labels {
			labelH = int(float64(tileW) * labelFrac)
		}
		cellH = tileW + labelH
	}
	if tileW < 1 {
		return nil, fmt.Errorf("too many tiles for the page")
	}

	for i, tile := range tiles {
		row := i / cols
		col := i % cols

		// center the final, possibly short row
		rowCount := cols
		if row == rows-1 {
			rowCount = len(tiles) - row*cols
		}
		rowWidth := rowCount*tileW + (rowCount-1)*gap
		x := (width-rowWidth)/2 + col*(tileW+gap)
		y := top + row*(cellH+gap)

		square := imaging.Fill(tile.Image, tileW, tileW, imaging.Center, imaging.Lanczos)
		placeTile(canvas, square, x, y, opts.Rounded)

		if opts.Labels && tile.Label != "" {
			if err := drawLabel(canvas, tile.Label, x, y+tileW, tileW, labelH); err != nil {
				return nil, err
			}
		}
	}

	return canvas, nil
}

// placeTile draws a square tile at (x, y), optionally masked with rounded
// corners.
func placeTile(canvas *image.NRGBA, tile image.Image, x, y int, rounded bool) {
	rect := image.Rect(x, y, x+tile.Bounds().Dx(), y+tile.Bounds().Dy())
	if !rounded {
		draw.Draw(canvas, rect, tile, tile.Bounds().Min, draw.Over)
		return
	}
	radius := int(float64(tile.Bounds().Dx()) * cornerFrac)
	mask := roundedMask(tile.Bounds().Dx(), tile.Bounds().Dy(), radius)
	draw.DrawMask(canvas, rect, tile, tile.Bounds().Min, mask, image.Point{}, draw.Over)
}

// roundedMask builds an alpha mask with quarter-circle corners.
func roundedMask(w, h, radius int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var cx, cy int
			inCorner := false
			switch {
			case x < radius && y < radius:
				cx, cy, inCorner = radius, radius, true
			case x >= w-radius && y < radius:
				cx, cy, inCorner = w-radius-1, radius, true
			case x < radius && y >= h-radius:
				cx, cy, inCorner = radius, h-radius-1, true
			case x >= w-radius && y >= h-radius:
				cx, cy, inCorner = w-radius-1, h-radius-1, true
			}
			if !inCorner {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
				continue
			}
			dx, dy := float64(x-cx), float64(y-cy)
			if math.Sqrt(dx*dx+dy*dy) <= float64(radius) {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return mask
}

func drawTitle(canvas *image.NRGBA, title string, pageWidth, margin, titleH int) error {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fmt.Errorf("parsing title font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(titleH) * 0.6,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("building title face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{30, 30, 30, 255}),
		Face: face,
	}
	textW := d.MeasureString(title).Ceil()
	d.Dot = fixed.P((pageWidth-textW)/2, margin+int(float64(titleH)*0.7))
	d.DrawString(title)
	return nil
}

func drawLabel(canvas *image.NRGBA, label string, x, y, tileW, labelH int) error {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("parsing label font: %w", err)
	}
	size := float64(labelH) * 0.5
	if size > maxLabelPt {
		size = maxLabelPt
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("building label face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{90, 90, 90, 255}),
		Face: face,
	}
	textW := d.MeasureString(label).Ceil()
	if textW > tileW {
		textW = tileW
	}
	d.Dot = fixed.P(x+(tileW-textW)/2, y+int(float64(labelH)*0.7))
	d.DrawString(label)
	return nil
}

// Save writes the collage as a JPEG.
func Save(path string, img image.Image, quality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("saving collage: %w", err)
	}
	return nil
}
