package builder

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// HistogramFile is the name of the base-level histogram image.
const HistogramFile = "histogram.png"

// WriteHistogram plots the distribution of valid samples of the deepest
// level. It must run after Cascade.
func (b *Builder) WriteHistogram(bins int) error {
	if b.Store == nil || len(b.populated) == 0 {
		return fmt.Errorf("histogram: nothing tiled")
	}
	var values plotter.Values
	for _, a := range b.populated {
		t, ok, err := b.Store.Get(a)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, v := range t.Data {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return fmt.Errorf("histogram: no valid samples")
	}
	if bins < 1 {
		bins = 64
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s, level %d", b.Index.Name, b.Index.TileLevels)
	p.X.Label.Text = "value"
	p.Y.Label.Text = "samples"
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(b.Dir, HistogramFile)); err != nil {
		return err
	}
	b.Index.Histogram = HistogramFile
	return nil
}
