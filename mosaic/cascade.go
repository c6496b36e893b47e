package mosaic

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"skytiler/pyramid"
)

// Cascader builds every level above the deepest by 2x2 downsampling.
type Cascader struct {
	Store   pyramid.Store
	Merger  Merger
	Workers int
	// Percentiles requested for the deepest level, in [0, 100].
	Percentiles []float64
	Logger      logrus.FieldLogger
	// OnLevel is called before a level is built with its tile count.
	OnLevel func(level, tiles int)
	// OnTile is called after each parent tile is written. It may be called
	// concurrently.
	OnTile func(pyramid.Address)
}

// Run summarises the deepest level, then builds levels deepest-1 down to 0
// from the given deepest-level tiles. Each level is complete before the
// next one starts reading it; any failure aborts the remaining levels.
func (c *Cascader) Run(ctx context.Context, deepest int, populated []pyramid.Address) (Summary, error) {
	for _, a := range populated {
		if int(a.Z) != deepest {
			return Summary{}, cascadeErr(a, fmt.Errorf("address is not at deepest level %d", deepest))
		}
	}
	merger := c.Merger
	if merger == nil {
		merger = Average
	}
	log := c.logger()

	summary, err := Summarize(ctx, c.Store, populated, c.Percentiles, c.Workers)
	if err != nil {
		return Summary{}, err
	}

	current := populated
	for level := deepest; level >= 1; level-- {
		parents := pyramid.Parents(current)
		if c.OnLevel != nil {
			c.OnLevel(level-1, len(parents))
		}
		log.WithFields(logrus.Fields{"level": level - 1, "tiles": len(parents)}).Info("cascading")

		err := forEach(ctx, c.Workers, parents, func(_ context.Context, p pyramid.Address) error {
			if err := c.mergeTile(p, merger); err != nil {
				return err
			}
			if c.OnTile != nil {
				c.OnTile(p)
			}
			return nil
		})
		if err != nil {
			return summary, err
		}
		current = parents
	}
	return summary, nil
}

func (c *Cascader) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// mergeTile reduces each present child and places it in its quadrant.
func (c *Cascader) mergeTile(parent pyramid.Address, merger Merger) error {
	ts := c.Store.TileSize()
	half := ts / 2
	out := pyramid.NewTile(ts)
	present := 0
	for _, child := range parent.Children() {
		t, ok, err := c.Store.Get(child)
		if err != nil {
			return cascadeErr(child, err)
		}
		if !ok {
			continue
		}
		present++
		small := Reduce(t.Data, ts, ts, merger)
		dx, dy := pyramid.Quadrant(child)
		for y := 0; y < half; y++ {
			copy(out.Data[(dy*half+y)*ts+dx*half:], small[y*half:(y+1)*half])
		}
	}
	if present == 0 {
		return nil
	}
	if err := c.Store.Put(parent, out); err != nil {
		return cascadeErr(parent, err)
	}
	return nil
}

// Summary describes the valid samples of the deepest level.
type Summary struct {
	// Percentiles maps each requested percentile to its sample value. It
	// is empty when the level has no valid samples.
	Percentiles map[float64]float64
	Count       int
	Min         float64
	Max         float64
}
