// Package builder collects what is known about a finished pyramid and
// writes its index, thumbnail, histogram and footprints next to the tiles.
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"skytiler/hips"
	"skytiler/mosaic"
	"skytiler/pyramid"
)

// Projections recorded in the index.
const (
	ProjectionTAN     = "tan"
	ProjectionHEALPix = "healpix"
)

// HiPSURL is the tile path template of HiPSgen output.
const HiPSURL = "Norder{0}/Dir{1}/Npix{2}"

// MetadataSink is implemented by stores that keep their own metadata table.
type MetadataSink interface {
	SetMetadata(name, value string) error
}

// Builder accumulates the index of one output directory.
type Builder struct {
	Dir    string
	Store  pyramid.Store
	Index  Index
	Logger logrus.FieldLogger

	populated []pyramid.Address
}

// New returns a builder named after dir. store may be nil for outputs that
// were written by an external tool.
func New(dir string, store pyramid.Store) *Builder {
	b := &Builder{Dir: dir, Store: store}
	b.SetName(filepath.Base(filepath.Clean(dir)))
	if store != nil {
		b.Index.TileSize = store.TileSize()
	}
	return b
}

// SetName sets the pyramid's display name.
func (b *Builder) SetName(name string) { b.Index.Name = name }

// ApplyPlan records the geometry of a locally tiled pyramid.
func (b *Builder) ApplyPlan(plan *mosaic.Plan) error {
	center, err := plan.Center()
	if err != nil {
		return err
	}
	b.Index.Projection = ProjectionTAN
	b.Index.Layout = plan.Layout.String()
	b.Index.TileSize = plan.TileSize
	b.Index.TileLevels = plan.Level
	b.Index.CenterX = center[0]
	b.Index.CenterY = center[1]
	b.Index.BaseDegreesPerTile = plan.BaseDegreesPerTile()
	b.Index.Frame = plan.Reference.Frame().String()
	return nil
}

// ApplyHiPS records the geometry reported by HiPSgen.
func (b *Builder) ApplyHiPS(p *hips.Properties) {
	b.Index.Projection = ProjectionHEALPix
	b.Index.Layout = ""
	b.Index.TileLevels = p.Order
	b.Index.CenterX = p.InitialRA
	b.Index.CenterY = p.InitialDec
	b.Index.BaseDegreesPerTile = p.InitialFOV
	b.Index.URL = HiPSURL
	if v, ok := p.Values["hips_tile_width"]; ok {
		if n, err := strconv.Atoi(fmt.Sprint(v)); err == nil {
			b.Index.TileSize = n
		}
	}
}

// Cascade builds the upper levels with c and records the deepest-level
// summary in the index.
func (b *Builder) Cascade(ctx context.Context, c *mosaic.Cascader, deepest int, populated []pyramid.Address) error {
	if c.Store == nil {
		c.Store = b.Store
	}
	summary, err := c.Run(ctx, deepest, populated)
	if err != nil {
		return err
	}
	b.populated = populated
	b.Index.TileLevels = deepest
	b.Index.Samples = summary.Count
	b.Index.DataMin = summary.Min
	b.Index.DataMax = summary.Max
	b.Index.Percentiles = make(map[string]float64, len(summary.Percentiles))
	keys := make([]float64, 0, len(summary.Percentiles))
	for p, v := range summary.Percentiles {
		b.Index.Percentiles[percentileKey(p)] = v
		keys = append(keys, p)
	}
	sort.Float64s(keys)
	b.logger().WithFields(logrus.Fields{
		"samples":     summary.Count,
		"min":         summary.Min,
		"max":         summary.Max,
		"percentiles": keys,
	}).Info("cascade finished")
	return nil
}

// Percentile returns a recorded percentile.
func (b *Builder) Percentile(p float64) (float64, bool) {
	v, ok := b.Index.Percentiles[percentileKey(p)]
	return v, ok
}

func percentileKey(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64)
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Logger == nil {
		return logrus.StandardLogger()
	}
	return b.Logger
}
