package mosaic

import (
	"fmt"
	"math"
)

// Merger reduces one 2x2 block, given in raster order (top-left, top-right,
// bottom-left, bottom-right), to a single sample. It must return NaN when
// all four inputs are NaN and a valid sample otherwise.
type Merger func(block [4]float64) float64

// Average is the mean of the valid samples.
func Average(block [4]float64) float64 {
	sum, n := 0.0, 0
	for _, v := range block {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Max is the largest valid sample.
func Max(block [4]float64) float64 {
	out := math.NaN()
	for _, v := range block {
		if !math.IsNaN(v) && (math.IsNaN(out) || v > out) {
			out = v
		}
	}
	return out
}

// Min is the smallest valid sample.
func Min(block [4]float64) float64 {
	out := math.NaN()
	for _, v := range block {
		if !math.IsNaN(v) && (math.IsNaN(out) || v < out) {
			out = v
		}
	}
	return out
}

// Nearest keeps the first valid sample in raster order.
func Nearest(block [4]float64) float64 {
	for _, v := range block {
		if !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// MergerByName maps a configured merge policy name to its Merger.
func MergerByName(name string) (Merger, error) {
	switch name {
	case "", "average", "mean":
		return Average, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	case "nearest", "first":
		return Nearest, nil
	default:
		return nil, fmt.Errorf("unknown merge policy %q", name)
	}
}

// Reduce halves a width x height row-major grid in both axes, merging each
// 2x2 block with m. width and height must be even.
func Reduce(src []float64, width, height int, m Merger) []float64 {
	w, h := width/2, height/2
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		top := src[2*y*width:]
		bottom := src[(2*y+1)*width:]
		for x := 0; x < w; x++ {
			out[y*w+x] = m([4]float64{top[2*x], top[2*x+1], bottom[2*x], bottom[2*x+1]})
		}
	}
	return out
}
