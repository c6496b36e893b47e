package mosaic

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"skytiler/pyramid"
	"skytiler/skyimage"
	"skytiler/wcs"
)

// Reprojector resamples a source image onto a target pixel grid. It returns
// width*height samples in row-major order and a mask of which samples hold
// valid data. It must be deterministic and safe for concurrent use.
type Reprojector interface {
	Reproject(target wcs.Transform, width, height int, src *skyimage.SkyImage) ([]float64, []bool, error)
}

// Overlap decides which image wins where valid pixels of several inputs
// land on the same tile pixel.
type Overlap int

// Overlap policies
const (
	// LastWins lets later images in collection order overwrite earlier ones.
	LastWins Overlap = iota
	// FirstWins keeps the first valid sample written.
	FirstWins
)

// ParseOverlap maps a configured policy name to an Overlap.
func ParseOverlap(s string) (Overlap, error) {
	switch s {
	case "", "last":
		return LastWins, nil
	case "first":
		return FirstWins, nil
	default:
		return LastWins, fmt.Errorf("unknown overlap policy %q", s)
	}
}

func (o Overlap) put(t *pyramid.Tile, x, y int, v float64) {
	if math.IsNaN(v) {
		return
	}
	if o == FirstWins && !math.IsNaN(t.At(x, y)) {
		return
	}
	t.Set(x, y, v)
}

// Tiler fills the deepest pyramid level from the input images.
type Tiler struct {
	Plan   *Plan
	Images []*skyimage.SkyImage
	Store  pyramid.Store
	// Reprojector is only used by the generic layout.
	Reprojector Reprojector
	Overlap     Overlap
	Workers     int
	Logger      logrus.FieldLogger
	// OnTile is called after each tile is written. It may be called
	// concurrently.
	OnTile func(pyramid.Address)
}

type fillFunc func(a pyramid.Address, t *pyramid.Tile) error

// Run writes every populated deepest-level tile and returns their
// addresses. Any failure aborts the whole level.
func (tl *Tiler) Run(ctx context.Context) ([]pyramid.Address, error) {
	fill, err := tl.filler()
	if err != nil {
		return nil, err
	}
	addrs := tl.Plan.Populated()
	log := tl.logger()
	log.WithFields(logrus.Fields{
		"level":  tl.Plan.Level,
		"tiles":  len(addrs),
		"layout": tl.Plan.Layout.String(),
	}).Info("tiling deepest level")

	err = forEach(ctx, tl.Workers, addrs, func(_ context.Context, a pyramid.Address) error {
		t := pyramid.NewTile(tl.Plan.TileSize)
		if err := fill(a, t); err != nil {
			return err
		}
		if err := tl.Store.Put(a, t); err != nil {
			return tilingErr(a, "", err)
		}
		log.Debugf("tile(z:%d, x:%d, y:%d) written, %d valid", a.Z, a.X, a.Y, t.Valid())
		if tl.OnTile != nil {
			tl.OnTile(a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (tl *Tiler) logger() logrus.FieldLogger {
	if tl.Logger == nil {
		return logrus.StandardLogger()
	}
	return tl.Logger
}

// filler validates the inputs against the plan and picks the layout's fill
// function once.
func (tl *Tiler) filler() (fillFunc, error) {
	if tl.Plan == nil || tl.Store == nil {
		return nil, fmt.Errorf("tiler needs a plan and a store")
	}
	if tl.Store.TileSize() != tl.Plan.TileSize {
		return nil, fmt.Errorf("store tile size %d, plan tile size %d", tl.Store.TileSize(), tl.Plan.TileSize)
	}
	if len(tl.Images) != len(tl.Plan.Extents) {
		return nil, fmt.Errorf("%d images for a plan of %d", len(tl.Images), len(tl.Plan.Extents))
	}

	switch layout := tl.Plan.Layout.(type) {
	case SharedLayout:
		for i, im := range tl.Images {
			if tl.Plan.Extents[i].Dx() != im.Width || tl.Plan.Extents[i].Dy() != im.Height {
				return nil, inputErr(im.Path, fmt.Errorf("image is %dx%d, plan expects %dx%d",
					im.Width, im.Height, tl.Plan.Extents[i].Dx(), tl.Plan.Extents[i].Dy()))
			}
		}
		return tl.sharedFill(layout), nil
	case GenericLayout:
		if tl.Reprojector == nil {
			return nil, fmt.Errorf("generic layout needs a reprojector")
		}
		return tl.genericFill, nil
	default:
		return nil, fmt.Errorf("unknown layout %T", layout)
	}
}

// sharedFill copies the overlap of each image with the tile.
func (tl *Tiler) sharedFill(layout SharedLayout) fillFunc {
	return func(a pyramid.Address, t *pyramid.Tile) error {
		tb := pyramid.Bounds(a, tl.Plan.TileSize)
		for i, im := range tl.Images {
			r := tl.Plan.Extents[i].Intersect(tb)
			if r.Empty() {
				continue
			}
			off := layout.Offsets[i]
			for gy := r.Min.Y; gy < r.Max.Y; gy++ {
				row := im.Pixels[(gy-off.Y)*im.Width:]
				for gx := r.Min.X; gx < r.Max.X; gx++ {
					tl.Overlap.put(t, gx-tb.Min.X, gy-tb.Min.Y, row[gx-off.X])
				}
			}
		}
		return nil
	}
}

// genericFill resamples each overlapping image onto the tile's grid.
func (tl *Tiler) genericFill(a pyramid.Address, t *pyramid.Tile) error {
	ts := tl.Plan.TileSize
	tb := pyramid.Bounds(a, ts)
	target := tl.Plan.TileTransform(a)
	for i, im := range tl.Images {
		if !tl.Plan.Extents[i].Overlaps(tb) {
			continue
		}
		data, valid, err := tl.Reprojector.Reproject(target, ts, ts, im)
		if err != nil {
			return tilingErr(a, im.Path, err)
		}
		if len(data) != ts*ts || len(valid) != ts*ts {
			return tilingErr(a, im.Path, fmt.Errorf("reprojection returned %d samples, want %d", len(data), ts*ts))
		}
		for y := 0; y < ts; y++ {
			for x := 0; x < ts; x++ {
				if k := y*ts + x; valid[k] {
					tl.Overlap.put(t, x, y, data[k])
				}
			}
		}
	}
	return nil
}
