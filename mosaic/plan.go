package mosaic

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"skytiler/pyramid"
	"skytiler/skyimage"
	"skytiler/wcs"
)

// DefaultTolerance is how far apart, in degrees, two tangent points may be
// while still counting as one shared projection.
const DefaultTolerance = 1e-6

// pixelTolerance is how far from a whole number of pixels two reference
// pixels may differ for images to share one pixel grid.
const pixelTolerance = 1e-6

// perimeterSamples is the number of points per image edge projected when
// measuring a footprint on the reference plane.
const perimeterSamples = 16

// Layout is the tiling strategy chosen by the planner: SharedLayout or
// GenericLayout. It is chosen once and never re-evaluated per tile.
type Layout interface {
	isLayout()
	String() string
}

// SharedLayout is used when every image shares the reference projection.
// Pixel (x, y) of image i lands on global pixel (x, y) + Offsets[i].
type SharedLayout struct {
	Offsets []image.Point
}

func (SharedLayout) isLayout()      {}
func (SharedLayout) String() string { return "shared-projection" }

// GenericLayout is used when images differ in projection; each image is
// resampled onto every tile it touches.
type GenericLayout struct{}

func (GenericLayout) isLayout()      {}
func (GenericLayout) String() string { return "generic" }

// Plan is the global pixelization of a mosaic. It is computed once and read
// concurrently by the tiler, so it must not be modified after Plan returns.
type Plan struct {
	TileSize int
	// Level is the deepest pyramid level.
	Level int
	// Reference maps global pixels of the deepest level to the sky.
	Reference *wcs.TAN
	Layout    Layout
	// Extents are the data rectangles of each input, in global pixels of
	// the deepest level, in collection order.
	Extents []image.Rectangle
}

// GridSize is the width and height of the deepest level, in pixels.
func (p *Plan) GridSize() int { return p.TileSize << uint(p.Level) }

// Populated lists the deepest-level tiles that overlap any input.
func (p *Plan) Populated() []pyramid.Address {
	return pyramid.Covering(p.Level, p.TileSize, p.Extents...)
}

// TileTransform is the transform of one deepest-level tile's pixel grid.
func (p *Plan) TileTransform(a pyramid.Address) *wcs.TAN {
	b := pyramid.Bounds(a, p.TileSize)
	return p.Reference.Offset(float64(b.Min.X), float64(b.Min.Y))
}

// Center is the sky position at the centre of the grid.
func (p *Plan) Center() (orb.Point, error) {
	c := float64(p.GridSize())/2 - 0.5
	return p.Reference.PixelToWorld(c, c)
}

// BaseDegreesPerTile is the angular size of the root tile.
func (p *Plan) BaseDegreesPerTile() float64 {
	return p.Reference.PixelScale() * float64(p.GridSize())
}

// LevelFor is the smallest level whose grid is at least extent pixels wide.
func LevelFor(extent, tileSize int) int {
	level := 0
	for tileSize<<uint(level) < extent {
		level++
	}
	return level
}

// Planner computes the global pixelization of a local mosaic.
type Planner struct {
	TileSize  int
	Tolerance float64
	// AllowDisjoint accepts inputs whose footprints do not form one
	// connected region; the gaps are left empty.
	AllowDisjoint bool
	Logger        logrus.FieldLogger
}

// NewPlanner returns a planner with default tolerance.
func NewPlanner(tileSize int) *Planner {
	return &Planner{
		TileSize:  tileSize,
		Tolerance: DefaultTolerance,
		Logger:    logrus.StandardLogger(),
	}
}

// Plan picks the tiling strategy and computes the global grid. Images that
// share one tangent projection keep their native pixels; otherwise a new
// tangent projection at the finest native pixel scale is centred on the
// union footprint.
func (pl *Planner) Plan(descs []skyimage.Description) (*Plan, error) {
	if len(descs) == 0 {
		return nil, planningErr("", fmt.Errorf("no inputs: %w", ErrDegenerate))
	}
	if pl.TileSize <= 0 || pl.TileSize%2 != 0 {
		return nil, planningErr("", fmt.Errorf("tile size %d must be positive and even", pl.TileSize))
	}
	for _, d := range descs {
		if d.Transform == nil {
			return nil, inputErr(d.Path, ErrNoTransform)
		}
		if d.Width <= 0 || d.Height <= 0 {
			return nil, planningErr(d.Path, fmt.Errorf("shape %dx%d: %w", d.Width, d.Height, ErrDegenerate))
		}
		if d.Transform.Frame() != descs[0].Transform.Frame() {
			return nil, planningErr(d.Path, fmt.Errorf("%s vs %s: %w",
				d.Transform.Frame(), descs[0].Transform.Frame(), ErrFrameMismatch))
		}
	}

	var (
		plan *Plan
		err  error
	)
	if tans, ok := pl.sharedProjection(descs); ok {
		plan, err = pl.planShared(descs, tans)
	} else {
		plan, err = pl.planGeneric(descs)
	}
	if err != nil {
		return nil, err
	}
	pl.logger().WithFields(logrus.Fields{
		"layout": plan.Layout.String(),
		"level":  plan.Level,
		"grid":   plan.GridSize(),
		"inputs": len(descs),
	}).Info("global pixelization computed")
	return plan, nil
}

func (pl *Planner) logger() logrus.FieldLogger {
	if pl.Logger == nil {
		return logrus.StandardLogger()
	}
	return pl.Logger
}

func (pl *Planner) tolerance() float64 {
	if pl.Tolerance <= 0 {
		return DefaultTolerance
	}
	return pl.Tolerance
}

func (pl *Planner) sharedProjection(descs []skyimage.Description) ([]*wcs.TAN, bool) {
	tans := make([]*wcs.TAN, len(descs))
	for i, d := range descs {
		t, ok := d.Transform.(*wcs.TAN)
		if !ok {
			return nil, false
		}
		if i > 0 && !tans[0].SameProjection(t, pl.tolerance()) {
			pl.logger().Debugf("%s does not share the projection of %s", d.Path, descs[0].Path)
			return nil, false
		}
		if i > 0 && !wholePixels(tans[0], t) {
			pl.logger().Debugf("%s is offset from %s by a fraction of a pixel", d.Path, descs[0].Path)
			return nil, false
		}
		tans[i] = t
	}
	return tans, true
}

func (pl *Planner) planShared(descs []skyimage.Description, tans []*wcs.TAN) (*Plan, error) {
	ref := tans[0]
	offsets := make([]image.Point, len(descs))
	var box image.Rectangle
	for i, t := range tans {
		// same intermediate coordinates: x + 1 - crpix = x' + 1 - crpix_ref
		o := image.Pt(
			int(math.Round(ref.CRPIX[0]-t.CRPIX[0])),
			int(math.Round(ref.CRPIX[1]-t.CRPIX[1])),
		)
		offsets[i] = o
		r := image.Rect(o.X, o.Y, o.X+descs[i].Width, o.Y+descs[i].Height)
		if i == 0 {
			box = r
		} else {
			box = box.Union(r)
		}
	}

	level, pad, err := pl.grid(box)
	if err != nil {
		return nil, err
	}
	shift := pad.Sub(box.Min)
	extents := make([]image.Rectangle, len(descs))
	for i := range offsets {
		offsets[i] = offsets[i].Add(shift)
		extents[i] = image.Rect(offsets[i].X, offsets[i].Y,
			offsets[i].X+descs[i].Width, offsets[i].Y+descs[i].Height)
	}
	if err := pl.connected(descs, extents); err != nil {
		return nil, err
	}
	return &Plan{
		TileSize:  pl.TileSize,
		Level:     level,
		Reference: ref.Offset(float64(-shift.X), float64(-shift.Y)),
		Layout:    SharedLayout{Offsets: offsets},
		Extents:   extents,
	}, nil
}

func (pl *Planner) planGeneric(descs []skyimage.Description) (*Plan, error) {
	scale := math.Inf(1)
	for _, d := range descs {
		s := d.Transform.PixelScale()
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, inputErr(d.Path, fmt.Errorf("bad pixel scale %g", s))
		}
		scale = math.Min(scale, s)
	}

	center, err := footprintCenter(descs)
	if err != nil {
		return nil, err
	}
	prov, err := wcs.NewTAN(center, [2]float64{1, 1},
		[2][2]float64{{-scale, 0}, {0, scale}}, descs[0].Transform.Frame())
	if err != nil {
		return nil, planningErr("", err)
	}

	bounds := make([]orb.Bound, len(descs))
	var union orb.Bound
	for i, d := range descs {
		b, err := projectedBound(prov, d)
		if err != nil {
			return nil, planningErr(d.Path, err)
		}
		bounds[i] = b
		if i == 0 {
			union = b
		} else {
			union = union.Union(b)
		}
	}

	box := pixelRect(union)
	level, pad, err := pl.grid(box)
	if err != nil {
		return nil, err
	}
	shift := pad.Sub(box.Min)
	extents := make([]image.Rectangle, len(descs))
	for i, b := range bounds {
		extents[i] = pixelRect(b).Add(shift)
	}
	if err := pl.connected(descs, extents); err != nil {
		return nil, err
	}
	return &Plan{
		TileSize:  pl.TileSize,
		Level:     level,
		Reference: prov.Offset(float64(-shift.X), float64(-shift.Y)),
		Layout:    GenericLayout{},
		Extents:   extents,
	}, nil
}

// wholePixels reports whether the reference pixels of t and u differ by a
// whole number of pixels on both axes.
func wholePixels(t, u *wcs.TAN) bool {
	for k := 0; k < 2; k++ {
		d := t.CRPIX[k] - u.CRPIX[k]
		if math.Abs(d-math.Round(d)) > pixelTolerance {
			return false
		}
	}
	return true
}

// connected checks that the extents, grown by one pixel so that touching
// edges count, form a single connected region.
func (pl *Planner) connected(descs []skyimage.Description, extents []image.Rectangle) error {
	if pl.AllowDisjoint || len(extents) < 2 {
		return nil
	}
	reached := make([]bool, len(extents))
	reached[0] = true
	queue := []int{0}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		grown := extents[i].Inset(-1)
		for j := range extents {
			if !reached[j] && grown.Overlaps(extents[j]) {
				reached[j] = true
				queue = append(queue, j)
			}
		}
	}
	for j, ok := range reached {
		if !ok {
			return planningErr(descs[j].Path, fmt.Errorf("%v is apart from %s: %w",
				extents[j], descs[0].Path, ErrDisjoint))
		}
	}
	return nil
}

// grid sizes the deepest level for a data box and centres the box in it.
func (pl *Planner) grid(box image.Rectangle) (int, image.Point, error) {
	w, h := box.Dx(), box.Dy()
	if w <= 0 || h <= 0 {
		return 0, image.Point{}, planningErr("", ErrDegenerate)
	}
	extent := w
	if h > extent {
		extent = h
	}
	level := LevelFor(extent, pl.TileSize)
	if level > pyramid.LevelMax {
		return 0, image.Point{}, planningErr("", fmt.Errorf("%dx%d pixels: %w", w, h, ErrTooLarge))
	}
	n := pl.TileSize << uint(level)
	return level, image.Pt((n-w)/2, (n-h)/2), nil
}

// footprintCenter is the normalised mean of every corner's unit vector.
func footprintCenter(descs []skyimage.Description) (orb.Point, error) {
	var x, y, z float64
	for _, d := range descs {
		corners, err := wcs.Corners(d.Transform, d.Width, d.Height)
		if err != nil {
			return orb.Point{}, inputErr(d.Path, err)
		}
		for _, c := range corners {
			lon, lat := c[0]*math.Pi/180, c[1]*math.Pi/180
			x += math.Cos(lat) * math.Cos(lon)
			y += math.Cos(lat) * math.Sin(lon)
			z += math.Sin(lat)
		}
	}
	if math.Sqrt(x*x+y*y+z*z) < 1e-9 {
		return orb.Point{}, planningErr("", fmt.Errorf("no mean direction: %w", ErrDegenerate))
	}
	return orb.Point{
		math.Atan2(y, x) * 180 / math.Pi,
		math.Atan2(z, math.Hypot(x, y)) * 180 / math.Pi,
	}, nil
}

// projectedBound is the bounding box of an image's perimeter on the
// reference plane, in reference pixels.
func projectedBound(ref *wcs.TAN, d skyimage.Description) (orb.Bound, error) {
	x1 := float64(d.Width) - 0.5
	y1 := float64(d.Height) - 0.5
	var b orb.Bound
	first := true
	for k := 0; k <= perimeterSamples; k++ {
		f := float64(k) / perimeterSamples
		xs := -0.5 + f*(x1+0.5)
		ys := -0.5 + f*(y1+0.5)
		for _, p := range [][2]float64{{xs, -0.5}, {xs, y1}, {-0.5, ys}, {x1, ys}} {
			w, err := d.Transform.PixelToWorld(p[0], p[1])
			if err != nil {
				return b, err
			}
			px, py, err := ref.WorldToPixel(w)
			if err != nil {
				if errors.Is(err, wcs.ErrNotProjectable) {
					return b, fmt.Errorf("%v: %w", err, ErrDegenerate)
				}
				return b, err
			}
			pt := orb.Point{px, py}
			if first {
				b = orb.Bound{Min: pt, Max: pt}
				first = false
			} else {
				b = b.Extend(pt)
			}
		}
	}
	return b, nil
}

// pixelRect converts a continuous bound to the pixels whose centres it
// covers; pixel i spans [i-0.5, i+0.5).
func pixelRect(b orb.Bound) image.Rectangle {
	return image.Rect(
		int(math.Floor(b.Min[0]+0.5)),
		int(math.Floor(b.Min[1]+0.5)),
		int(math.Ceil(b.Max[0]+0.5)),
		int(math.Ceil(b.Max[1]+0.5)),
	)
}
