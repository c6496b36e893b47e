package mosaic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"skytiler/pyramid"
)

// DefaultPercentiles are reported when none are configured.
var DefaultPercentiles = []float64{1, 99}

// Summarize reads the given tiles and computes percentiles over their valid
// samples. A missing tile contributes nothing.
func Summarize(ctx context.Context, store pyramid.Store, addrs []pyramid.Address, percentiles []float64, workers int) (Summary, error) {
	for _, p := range percentiles {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return Summary{}, fmt.Errorf("percentile %g out of range", p)
		}
	}

	var (
		mu     sync.Mutex
		values []float64
	)
	err := forEach(ctx, workers, addrs, func(_ context.Context, a pyramid.Address) error {
		t, ok, err := store.Get(a)
		if err != nil {
			return cascadeErr(a, err)
		}
		if !ok {
			return nil
		}
		valid := make([]float64, 0, len(t.Data))
		for _, v := range t.Data {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		mu.Lock()
		values = append(values, valid...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		Percentiles: make(map[float64]float64, len(percentiles)),
		Count:       len(values),
		Min:         math.NaN(),
		Max:         math.NaN(),
	}
	if len(values) == 0 {
		return out, nil
	}
	sort.Float64s(values)
	out.Min = floats.Min(values)
	out.Max = floats.Max(values)
	for _, p := range percentiles {
		out.Percentiles[p] = stat.Quantile(p/100, stat.Empirical, values, nil)
	}
	return out, nil
}
