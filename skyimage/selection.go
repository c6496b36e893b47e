package skyimage

import (
	"fmt"
	"strconv"
	"strings"
)

// AutoLayer asks the loader to pick the first multi-dimensional,
// non-tabular layer.
const AutoLayer = -1

type selectionKind int

const (
	selectAuto selectionKind = iota
	selectGlobal
	selectPerImage
)

// Selection decides which layer (HDU) of each input file is used.
type Selection struct {
	kind    selectionKind
	index   int
	indices []int
}

// Auto selects the first 2-D image layer of every file.
func Auto() Selection { return Selection{kind: selectAuto} }

// Global selects the same layer index in every file.
func Global(index int) Selection { return Selection{kind: selectGlobal, index: index} }

// PerImage selects one layer index per file, in collection order.
func PerImage(indices ...int) Selection {
	return Selection{kind: selectPerImage, indices: append([]int(nil), indices...)}
}

// FromIndices maps a configured index list to a Selection: none is Auto, one
// is Global, more is PerImage.
func FromIndices(indices []int) Selection {
	switch len(indices) {
	case 0:
		return Auto()
	case 1:
		return Global(indices[0])
	default:
		return PerImage(indices...)
	}
}

// IsAuto reports whether layers are auto-detected.
func (s Selection) IsAuto() bool { return s.kind == selectAuto }

// Validate checks the selection against the number of inputs.
func (s Selection) Validate(n int) error {
	switch s.kind {
	case selectGlobal:
		if s.index < 0 {
			return fmt.Errorf("layer index %d: %w", s.index, ErrLayerRange)
		}
	case selectPerImage:
		if len(s.indices) != n {
			return fmt.Errorf("%d layer indices for %d inputs", len(s.indices), n)
		}
		for _, idx := range s.indices {
			if idx < 0 {
				return fmt.Errorf("layer index %d: %w", idx, ErrLayerRange)
			}
		}
	}
	return nil
}

// For resolves the layer of the i-th input; AutoLayer means auto-detect.
func (s Selection) For(i int) int {
	switch s.kind {
	case selectGlobal:
		return s.index
	case selectPerImage:
		if i < len(s.indices) {
			return s.indices[i]
		}
		return AutoLayer
	default:
		return AutoLayer
	}
}

// Indices lists the resolved layer of each of n inputs, or nil for Auto.
func (s Selection) Indices(n int) []int {
	if s.kind == selectAuto {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = s.For(i)
	}
	return out
}

func (s Selection) String() string {
	switch s.kind {
	case selectGlobal:
		return strconv.Itoa(s.index)
	case selectPerImage:
		parts := make([]string, len(s.indices))
		for i, idx := range s.indices {
			parts[i] = strconv.Itoa(idx)
		}
		return strings.Join(parts, ",")
	default:
		return "auto"
	}
}
