// Package wcs maps image pixel positions to sky positions.
//
// Sky positions are carried as orb.Point values holding (longitude,
// latitude) in degrees, e.g. (RA, Dec) for equatorial frames. Pixel
// positions are 0-based: (0, 0) is the centre of the first pixel of the
// first row.
package wcs

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Frame is the celestial coordinate frame of a transform.
type Frame int

// Supported frames
const (
	FrameUnknown Frame = iota
	FrameEquatorial
	FrameGalactic
	FrameEcliptic
)

func (f Frame) String() string {
	switch f {
	case FrameEquatorial:
		return "equatorial"
	case FrameGalactic:
		return "galactic"
	case FrameEcliptic:
		return "ecliptic"
	default:
		return "unknown"
	}
}

var (
	// ErrNotProjectable is returned for sky positions that have no image in
	// the projection plane (90 degrees or more from the tangent point).
	ErrNotProjectable = errors.New("wcs: position cannot be projected")
	// ErrSingular is returned when the linear pixel transformation has no
	// inverse.
	ErrSingular = errors.New("wcs: singular pixel transformation")
)

// Transform is the coordinate transform capability the tiling engine
// consumes. Implementations must be safe for concurrent use.
type Transform interface {
	PixelToWorld(x, y float64) (orb.Point, error)
	WorldToPixel(p orb.Point) (x, y float64, err error)
	// PixelScale is the approximate size of one pixel, in degrees.
	PixelScale() float64
	Frame() Frame
}

// Separation returns the great-circle distance between two sky positions,
// in degrees.
func Separation(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / orb.EarthRadius * 180 / math.Pi
}

// Corners returns the sky positions of the four outer corners of a
// width x height pixel grid, in the order (0,0), (w,0), (w,h), (0,h).
func Corners(t Transform, width, height int) ([4]orb.Point, error) {
	var out [4]orb.Point
	pix := [4][2]float64{
		{0, 0},
		{float64(width), 0},
		{float64(width), float64(height)},
		{0, float64(height)},
	}
	for i, p := range pix {
		w, err := t.PixelToWorld(p[0], p[1])
		if err != nil {
			return out, err
		}
		out[i] = w
	}
	return out, nil
}

func normalizeLon(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
