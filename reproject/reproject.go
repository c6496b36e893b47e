// Package reproject resamples sky images from one pixel grid onto another
// through their coordinate transforms.
package reproject

import (
	"fmt"
	"math"

	"skytiler/skyimage"
	"skytiler/wcs"
)

// Method is the interpolation used when sampling the source.
type Method int

// Interpolation methods
const (
	Bilinear Method = iota
	Nearest
)

// ParseMethod maps a configured name to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "bilinear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	default:
		return Bilinear, fmt.Errorf("unknown interpolation %q", s)
	}
}

// Reprojector maps every target pixel centre to the sky and back into the
// source grid, then samples the source there. It holds no mutable state.
type Reprojector struct {
	Method Method
}

// Reproject returns width*height samples for the target grid and a mask of
// the samples that received source data.
func (r Reprojector) Reproject(target wcs.Transform, width, height int, src *skyimage.SkyImage) ([]float64, []bool, error) {
	if target == nil || src == nil || src.Transform == nil {
		return nil, nil, fmt.Errorf("reproject: missing transform")
	}
	if len(src.Pixels) != src.Width*src.Height {
		return nil, nil, fmt.Errorf("reproject: %s has %d pixels for %dx%d", src.Path, len(src.Pixels), src.Width, src.Height)
	}
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("reproject: bad target shape %dx%d", width, height)
	}

	data := make([]float64, width*height)
	valid := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := y*width + x
			data[k] = math.NaN()
			w, err := target.PixelToWorld(float64(x), float64(y))
			if err != nil {
				continue
			}
			sx, sy, err := src.Transform.WorldToPixel(w)
			if err != nil || !inside(src, sx, sy) {
				continue
			}
			var v float64
			if r.Method == Nearest {
				v = src.At(int(math.Floor(sx+0.5)), int(math.Floor(sy+0.5)))
			} else {
				v = bilinear(src, sx, sy)
			}
			if !math.IsNaN(v) {
				data[k] = v
				valid[k] = true
			}
		}
	}
	return data, valid, nil
}

func inside(src *skyimage.SkyImage, x, y float64) bool {
	return x >= -0.5 && y >= -0.5 && x < float64(src.Width)-0.5 && y < float64(src.Height)-0.5
}

// bilinear weights the four surrounding pixels, ignoring NaN and
// out-of-image neighbours.
func bilinear(src *skyimage.SkyImage, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	sum, weight := 0.0, 0.0
	for _, n := range [4]struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	} {
		if n.w == 0 {
			continue
		}
		v := src.At(ix+n.dx, iy+n.dy)
		if math.IsNaN(v) {
			continue
		}
		sum += v * n.w
		weight += n.w
	}
	if weight == 0 {
		return math.NaN()
	}
	return sum / weight
}
