package builder

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/draw"

	"skytiler/pyramid"
)

// Thumbnail size
const (
	ThumbnailFile   = "thumb.jpg"
	ThumbnailWidth  = 96
	ThumbnailHeight = 45
)

// WriteThumbnail renders the root tile, stretched between the lowest and
// highest recorded percentiles, into a small JPEG. North is up.
func (b *Builder) WriteThumbnail() error {
	if b.Store == nil {
		return fmt.Errorf("thumbnail: no tile store")
	}
	root, ok, err := b.Store.Get(pyramid.NewAddress(0, 0, 0))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("thumbnail: root tile missing")
	}
	lo, hi := b.stretch()
	gray := render(root, lo, hi)

	// centre crop with the thumbnail's aspect ratio
	ts := root.Size
	h := ts * ThumbnailHeight / ThumbnailWidth
	crop := image.Rect(0, (ts-h)/2, ts, (ts-h)/2+h)
	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), gray, crop, draw.Over, nil)

	path := filepath.Join(b.Dir, ThumbnailFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, dst, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	b.Index.Thumbnail = ThumbnailFile
	return nil
}

// stretch picks the display range: the values at the lowest and highest
// recorded percentiles, else the data range.
func (b *Builder) stretch() (lo, hi float64) {
	lo, hi = b.Index.DataMin, b.Index.DataMax
	first, last := math.Inf(1), math.Inf(-1)
	for k := range b.Index.Percentiles {
		p, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		first, last = math.Min(first, p), math.Max(last, p)
	}
	if !(first < last) {
		return lo, hi
	}
	if v, ok := b.Percentile(first); ok {
		lo = v
	}
	if v, ok := b.Percentile(last); ok {
		hi = v
	}
	return lo, hi
}

// render maps samples linearly onto 8-bit gray; NaN becomes transparent.
// Tile row 0 is the southern edge, so rows are flipped.
func render(t *pyramid.Tile, lo, hi float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Size, t.Size))
	span := hi - lo
	for y := 0; y < t.Size; y++ {
		for x := 0; x < t.Size; x++ {
			v := t.At(x, y)
			if math.IsNaN(v) {
				continue
			}
			g := 255.0
			if span > 0 {
				g = math.Max(0, math.Min(255, (v-lo)/span*255))
			}
			img.SetNRGBA(x, t.Size-1-y, color.NRGBA{R: uint8(g), G: uint8(g), B: uint8(g), A: 255})
		}
	}
	return img
}
