package mosaic

import (
	"errors"
	"fmt"
	"strings"

	"skytiler/pyramid"
	"skytiler/skyimage"
)

// Kind classifies engine failures by the stage that raised them.
type Kind int

// Error kinds
const (
	KindInput Kind = iota + 1
	KindPlanning
	KindTiling
	KindCascade
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input error"
	case KindPlanning:
		return "planning error"
	case KindTiling:
		return "tiling error"
	case KindCascade:
		return "cascade error"
	default:
		return "error"
	}
}

var (
	// ErrDegenerate is returned when the union footprint has no area or
	// cannot be projected onto one tangent plane.
	ErrDegenerate = errors.New("footprint cannot be represented")
	// ErrTooLarge is returned when the pyramid would exceed pyramid.LevelMax.
	ErrTooLarge = errors.New("footprint needs too many levels")
	// ErrFrameMismatch is returned when inputs use different celestial frames.
	ErrFrameMismatch = errors.New("inputs use different coordinate frames")
	// ErrNoTransform is returned for an input without a coordinate transform.
	ErrNoTransform = errors.New("missing coordinate transform")
	// ErrDisjoint is returned when an input neither overlaps nor touches
	// the footprint of the others.
	ErrDisjoint = errors.New("inputs do not overlap")
)

// Error is a fatal engine failure with the input and tile it concerns.
type Error struct {
	Kind Kind
	Path string
	Addr *pyramid.Address
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Addr != nil {
		fmt.Fprintf(&b, ": tile %d/%d/%d", e.Addr.Z, e.Addr.X, e.Addr.Y)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": input %s", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an engine Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func inputErr(path string, err error) error {
	var le *skyimage.LoadError
	if path == "" && errors.As(err, &le) {
		path = le.Path
	}
	return &Error{Kind: KindInput, Path: path, Err: err}
}

func planningErr(path string, err error) error {
	return &Error{Kind: KindPlanning, Path: path, Err: err}
}

func tilingErr(addr pyramid.Address, path string, err error) error {
	return &Error{Kind: KindTiling, Addr: &addr, Path: path, Err: err}
}

func cascadeErr(addr pyramid.Address, err error) error {
	return &Error{Kind: KindCascade, Addr: &addr, Err: err}
}
