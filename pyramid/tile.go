// Package pyramid holds the quad-tree tile layout shared by the tiling and
// cascading stages, and the stores tiles are written to.
package pyramid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/maptile"
)

// DefaultTileSize 默认瓦片大小
const DefaultTileSize = 256

// LevelMin 最小级别
const LevelMin = 0

// LevelMax 最大级别
const LevelMax = 20

// Tile encodings
const (
	Raw  string = "raw"  // little-endian float64 samples
	GZIP string = "gzip" // raw, gzip compressed
)

// Address is a tile position: level Z, column X, row Y. Level 0 is the
// single root tile; level L has 2^L x 2^L tiles.
type Address = maptile.Tile

// NewAddress builds an Address.
func NewAddress(level, x, y int) Address {
	return Address{X: uint32(x), Y: uint32(y), Z: maptile.Zoom(level)}
}

// InRange reports whether a lies inside the 2^Z x 2^Z grid of its level.
func InRange(a Address) bool {
	if int(a.Z) > LevelMax {
		return false
	}
	n := uint32(1) << a.Z
	return a.X < n && a.Y < n
}

// Tile is a Size x Size grid of samples, row-major; NaN means no data.
// Tiles are not modified once written to a Store.
type Tile struct {
	Size int
	Data []float64
}

// NewTile returns a tile with every sample set to NaN.
func NewTile(size int) *Tile {
	t := &Tile{Size: size, Data: make([]float64, size*size)}
	for i := range t.Data {
		t.Data[i] = math.NaN()
	}
	return t
}

// At returns sample (x, y).
func (t *Tile) At(x, y int) float64 { return t.Data[y*t.Size+x] }

// Set stores sample (x, y).
func (t *Tile) Set(x, y int, v float64) { t.Data[y*t.Size+x] = v }

// Valid counts the non-NaN samples.
func (t *Tile) Valid() int {
	n := 0
	for _, v := range t.Data {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Range returns the minimum and maximum valid samples, or NaN, NaN.
func (t *Tile) Range() (min, max float64) {
	min, max = math.NaN(), math.NaN()
	for _, v := range t.Data {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return min, max
}

func (t *Tile) check(size int) error {
	if t.Size != size || len(t.Data) != size*size {
		return fmt.Errorf("pyramid: tile is %dx%d (%d samples), store expects %dx%d",
			t.Size, t.Size, len(t.Data), size, size)
	}
	return nil
}
