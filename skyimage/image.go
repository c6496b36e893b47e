// Package skyimage holds input images that carry a sky-coordinate
// transform, and the collection and layer-selection rules used to load them.
package skyimage

import (
	"errors"
	"fmt"
	"math"

	"skytiler/wcs"
)

// Description is what is known about an image before its pixels are read.
type Description struct {
	Path      string
	Layer     int
	Width     int
	Height    int
	Transform wcs.Transform
}

// SkyImage is a 2-D grid of samples with its transform. Pixels are stored
// row-major in transform pixel order: index y*Width+x holds pixel (x, y).
// NaN marks missing data. A SkyImage is read-only once loaded.
type SkyImage struct {
	Description
	Pixels []float64
}

// New wraps a pixel buffer. It fails if the buffer does not match the shape.
func New(desc Description, pixels []float64) (*SkyImage, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("skyimage: bad shape %dx%d", desc.Width, desc.Height)
	}
	if len(pixels) != desc.Width*desc.Height {
		return nil, fmt.Errorf("skyimage: %d pixels for a %dx%d image", len(pixels), desc.Width, desc.Height)
	}
	return &SkyImage{Description: desc, Pixels: pixels}, nil
}

// At returns pixel (x, y), or NaN outside the image.
func (im *SkyImage) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= im.Width || y >= im.Height {
		return math.NaN()
	}
	return im.Pixels[y*im.Width+x]
}

var (
	// ErrLayerRange is returned when a selected layer does not exist.
	ErrLayerRange = errors.New("layer index out of range")
	// ErrNotImage is returned when a selected layer is not a 2-D image.
	ErrNotImage = errors.New("layer is not a 2-D image")
	// ErrNoImage is returned when auto-detection finds no image layer.
	ErrNoImage = errors.New("no 2-D image layer found")
)

// LoadError reports a failure to describe or load one input.
type LoadError struct {
	Path  string
	Layer int
	Err   error
}

func (e *LoadError) Error() string {
	if e.Layer == AutoLayer {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", e.Path, e.Layer, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
