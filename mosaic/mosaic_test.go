package mosaic

import (
	"context"
	"errors"
	"image"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skytiler/pyramid"
	"skytiler/reproject"
	"skytiler/skyimage"
	"skytiler/wcs"
)

const arcsec = 1.0 / 3600

func tan(t *testing.T, ra, dec, crpixX, crpixY, scale float64, frame wcs.Frame) *wcs.TAN {
	t.Helper()
	tr, err := wcs.NewTAN(orb.Point{ra, dec}, [2]float64{crpixX, crpixY},
		[2][2]float64{{-scale, 0}, {0, scale}}, frame)
	require.NoError(t, err)
	return tr
}

func constImage(t *testing.T, path string, tr wcs.Transform, w, h int, v float64) *skyimage.SkyImage {
	t.Helper()
	px := make([]float64, w*h)
	for i := range px {
		px[i] = v
	}
	im, err := skyimage.New(skyimage.Description{Path: path, Width: w, Height: h, Transform: tr}, px)
	require.NoError(t, err)
	return im
}

func descs(ims ...*skyimage.SkyImage) []skyimage.Description {
	out := make([]skyimage.Description, len(ims))
	for i, im := range ims {
		out[i] = im.Description
	}
	return out
}

func TestReduce(t *testing.T) {
	nan := math.NaN()
	got := Reduce([]float64{nan, 1, 3, nan}, 2, 2, Average)
	assert.Equal(t, []float64{2}, got)

	got = Reduce([]float64{nan, nan, nan, nan}, 2, 2, Average)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0]))

	src := []float64{
		1, 2, nan, nan,
		3, 4, nan, 8,
	}
	opt := cmpopts.EquateNaNs()
	for name, want := range map[string][]float64{
		"average": {2.5, 8},
		"max":     {4, 8},
		"min":     {1, 8},
		"nearest": {1, 8},
	} {
		m, err := MergerByName(name)
		require.NoError(t, err)
		if diff := cmp.Diff(want, Reduce(src, 4, 2, m), opt); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}
	_, err := MergerByName("median")
	assert.Error(t, err)
}

func TestMergersNeverInventData(t *testing.T) {
	nan := math.NaN()
	for _, m := range []Merger{Average, Max, Min, Nearest} {
		assert.True(t, math.IsNaN(m([4]float64{nan, nan, nan, nan})))
		assert.Equal(t, 7.0, m([4]float64{nan, nan, 7, nan}))
	}
}

func TestClassify(t *testing.T) {
	a := constImage(t, "a", tan(t, 150, 2, 50, 50, 0.01, wcs.FrameEquatorial), 100, 100, 1)
	b := constImage(t, "b", tan(t, 150.5, 2.3, 50, 50, 0.01, wcs.FrameEquatorial), 100, 100, 1)

	c, err := Classify(descs(a, b))
	require.NoError(t, err)
	assert.Equal(t, Local, c.Coverage)
	assert.Less(t, c.MaxSeparation, 2.0)

	far := constImage(t, "far", tan(t, 180, 2, 50, 50, 0.01, wcs.FrameEquatorial), 100, 100, 1)
	c, err = Classify(descs(a, far))
	require.NoError(t, err)
	assert.Equal(t, Wide, c.Coverage)
	assert.Greater(t, c.MaxSeparation, WideThreshold)

	// one image spanning 25 degrees
	big := constImage(t, "big", tan(t, 10, 0, 250, 250, 0.05, wcs.FrameEquatorial), 500, 500, 1)
	c, err = Classify(descs(big))
	require.NoError(t, err)
	assert.Equal(t, Wide, c.Coverage)

	_, err = Classify([]skyimage.Description{{Path: "bare", Width: 1, Height: 1}})
	assert.True(t, IsKind(err, KindInput))
	assert.True(t, errors.Is(err, ErrNoTransform))
}

type fakeLoader struct{}

func (fakeLoader) Describe(path string, layer int) (skyimage.Description, error) {
	if path == "broken" {
		return skyimage.Description{}, errors.New("unreadable")
	}
	return skyimage.Description{Path: path, Width: 10, Height: 10,
		Transform: &wcs.TAN{CRPIX: [2]float64{5, 5}, CRVAL: orb.Point{1, 1}, CD: [2][2]float64{{-0.01, 0}, {0, 0.01}}}}, nil
}

func (fakeLoader) Load(path string, layer int) (*skyimage.SkyImage, error) {
	return nil, errors.New("not used")
}

func TestClassifyCollection(t *testing.T) {
	c, err := ClassifyCollection(skyimage.NewCollection([]string{"x", "y"}, skyimage.Auto(), fakeLoader{}))
	require.NoError(t, err)
	assert.Equal(t, Local, c.Coverage)

	_, err = ClassifyCollection(skyimage.NewCollection([]string{"x", "broken"}, skyimage.Auto(), fakeLoader{}))
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindInput, e.Kind)
	assert.Equal(t, "broken", e.Path)
}

func TestLevelFor(t *testing.T) {
	for _, c := range []struct{ extent, level int }{
		{1, 0}, {256, 0}, {257, 1}, {512, 1}, {513, 2}, {5000, 5},
	} {
		assert.Equal(t, c.level, LevelFor(c.extent, 256), "extent %d", c.extent)
	}
}

// sharedPair is two images on one projection, b starting 100 pixels right
// of a and overlapping it by 100 columns.
func sharedPair(t *testing.T) (a, b *skyimage.SkyImage) {
	a = constImage(t, "a", tan(t, 80, -20, 100, 50, arcsec, wcs.FrameEquatorial), 200, 100, 1)
	b = constImage(t, "b", tan(t, 80, -20, 0, 50, arcsec, wcs.FrameEquatorial), 200, 100, 2)
	return a, b
}

func TestPlanShared(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	layout, ok := plan.Layout.(SharedLayout)
	require.True(t, ok, "layout %s", plan.Layout)
	assert.Equal(t, 1, plan.Level)
	assert.Equal(t, 512, plan.GridSize())
	assert.Equal(t, []image.Point{{106, 206}, {206, 206}}, layout.Offsets)
	assert.Equal(t, []image.Rectangle{image.Rect(106, 206, 306, 306), image.Rect(206, 206, 406, 306)}, plan.Extents)
	assert.Equal(t, []pyramid.Address{
		pyramid.NewAddress(1, 0, 0), pyramid.NewAddress(1, 1, 0),
		pyramid.NewAddress(1, 0, 1), pyramid.NewAddress(1, 1, 1),
	}, plan.Populated())

	// global pixel of a's (0, 0) maps to the same sky position
	want, err := a.Transform.PixelToWorld(0, 0)
	require.NoError(t, err)
	got, err := plan.Reference.PixelToWorld(106, 206)
	require.NoError(t, err)
	assert.InDelta(t, want[0], got[0], 1e-9)
	assert.InDelta(t, want[1], got[1], 1e-9)
	assert.InDelta(t, arcsec*512, plan.BaseDegreesPerTile(), 1e-12)
}

func TestPlanGeneric(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, 2*arcsec, wcs.FrameEquatorial), 100, 100, 5)
	b := constImage(t, "b", tan(t, 80.02, -20.01, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 5)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	assert.IsType(t, GenericLayout{}, plan.Layout)
	assert.InDelta(t, arcsec, plan.Reference.PixelScale(), 1e-15)
	grid := image.Rect(0, 0, plan.GridSize(), plan.GridSize())
	for i, e := range plan.Extents {
		assert.False(t, e.Empty(), "extent %d", i)
		assert.True(t, e.In(grid), "extent %d %v outside %v", i, e, grid)
	}
	// a is twice as coarse, so it spans about 200 reference pixels
	assert.InDelta(t, 200, plan.Extents[0].Dx(), 2)
	assert.InDelta(t, 100, plan.Extents[1].Dx(), 2)
}

func TestPlanTouching(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 1)
	// b starts on the column right after a ends
	b := constImage(t, "b", tan(t, 80, -20, -50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 2)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	assert.IsType(t, SharedLayout{}, plan.Layout)
	assert.Equal(t, plan.Extents[0].Max.X, plan.Extents[1].Min.X)
}

func TestPlanFractionalOffset(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 1)
	b := constImage(t, "b", tan(t, 80, -20, 50.5, 50, arcsec, wcs.FrameEquatorial), 100, 100, 2)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	assert.IsType(t, GenericLayout{}, plan.Layout)

	// every pixel of b lands where its sky position says
	w, err := b.Transform.PixelToWorld(10, 20)
	require.NoError(t, err)
	gx, gy, err := plan.Reference.WorldToPixel(w)
	require.NoError(t, err)
	c := plan.Extents[1]
	assert.True(t, image.Pt(int(math.Floor(gx+0.5)), int(math.Floor(gy+0.5))).In(c))
}

func TestPlanErrors(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 1)
	g := constImage(t, "g", tan(t, 80, -20, 50, 50, arcsec, wcs.FrameGalactic), 100, 100, 1)

	_, err := NewPlanner(256).Plan(descs(a, g))
	assert.True(t, IsKind(err, KindPlanning))
	assert.True(t, errors.Is(err, ErrFrameMismatch))

	_, err = NewPlanner(256).Plan(nil)
	assert.True(t, IsKind(err, KindPlanning))
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = NewPlanner(255).Plan(descs(a))
	assert.True(t, IsKind(err, KindPlanning))

	_, err = NewPlanner(256).Plan([]skyimage.Description{{Path: "bare", Width: 4, Height: 4}})
	assert.True(t, IsKind(err, KindInput))

	far := constImage(t, "far", tan(t, 85, -20, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 1)
	_, err = NewPlanner(256).Plan(descs(a, far))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindPlanning, e.Kind)
	assert.Equal(t, "far", e.Path)
	assert.True(t, errors.Is(err, ErrDisjoint))

	// same projection, 500 pixels apart
	apart := constImage(t, "apart", tan(t, 80, -20, -450, 50, arcsec, wcs.FrameEquatorial), 100, 100, 1)
	_, err = NewPlanner(256).Plan(descs(a, apart))
	assert.True(t, errors.Is(err, ErrDisjoint))

	pl := NewPlanner(256)
	pl.AllowDisjoint = true
	plan, err := pl.Plan(descs(a, far))
	require.NoError(t, err)
	assert.False(t, plan.Extents[0].Overlaps(plan.Extents[1]))

	// a square degree of one-milliarcsecond pixels needs more than 20 levels
	huge := skyimage.Description{Path: "huge", Width: 1 << 22, Height: 1 << 22,
		Transform: tan(t, 0, 0, 1, 1, 1e-3*arcsec, wcs.FrameEquatorial)}
	_, err = NewPlanner(2).Plan([]skyimage.Description{huge})
	assert.True(t, IsKind(err, KindPlanning))
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func runTiler(t *testing.T, plan *Plan, overlap Overlap, ims ...*skyimage.SkyImage) *pyramid.MemoryStore {
	t.Helper()
	store := pyramid.NewMemoryStore(plan.TileSize)
	tl := &Tiler{
		Plan:        plan,
		Images:      ims,
		Store:       store,
		Reprojector: reproject.Reprojector{},
		Overlap:     overlap,
		Workers:     4,
	}
	addrs, err := tl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, plan.Populated(), addrs)
	assert.Equal(t, len(addrs), store.Len())
	return store
}

func get(t *testing.T, s pyramid.Store, a pyramid.Address) *pyramid.Tile {
	t.Helper()
	tile, ok, err := s.Get(a)
	require.NoError(t, err)
	require.True(t, ok, "tile %v missing", a)
	return tile
}

func TestTileShared(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	last := runTiler(t, plan, LastWins, a, b)
	first := runTiler(t, plan, FirstWins, a, b)

	t00 := get(t, last, pyramid.NewAddress(1, 0, 0))
	assert.True(t, math.IsNaN(t00.At(0, 0)))
	assert.True(t, math.IsNaN(t00.At(150, 205)))
	assert.Equal(t, 1.0, t00.At(150, 250))
	assert.Equal(t, 2.0, t00.At(250, 250))
	assert.Equal(t, 1.0, get(t, first, pyramid.NewAddress(1, 0, 0)).At(250, 250))
	assert.Equal(t, 2.0, get(t, last, pyramid.NewAddress(1, 1, 0)).At(144, 250))

	t01 := get(t, last, pyramid.NewAddress(1, 0, 1))
	assert.Equal(t, 1.0, t01.At(106, 0))
	assert.Equal(t, 2.0, t01.At(255, 49))
	assert.True(t, math.IsNaN(t01.At(106, 50)))

	// 200*100 + 200*100 - 100*100 distinct pixels
	total := 0
	for _, addr := range plan.Populated() {
		total += get(t, last, addr).Valid()
	}
	assert.Equal(t, 30000, total)
}

func TestTileIdempotent(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, 2*arcsec, wcs.FrameEquatorial), 100, 100, 5)
	for i := range a.Pixels {
		a.Pixels[i] = float64(i % 17)
	}
	b := constImage(t, "b", tan(t, 80.02, -20.01, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 7)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	s1 := runTiler(t, plan, LastWins, a, b)
	s2 := runTiler(t, plan, LastWins, a, b)
	for _, addr := range plan.Populated() {
		if diff := cmp.Diff(get(t, s1, addr).Data, get(t, s2, addr).Data, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("tile %v differs (-first +second):\n%s", addr, diff)
		}
	}
}

func TestTileGeneric(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, 2*arcsec, wcs.FrameEquatorial), 100, 100, 5)
	b := constImage(t, "b", tan(t, 80.02, -20.01, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 5)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	store := runTiler(t, plan, LastWins, a, b)

	valid := 0
	for _, addr := range plan.Populated() {
		for _, v := range get(t, store, addr).Data {
			if !math.IsNaN(v) {
				valid++
				assert.InDelta(t, 5, v, 1e-9)
			}
		}
	}
	// a covers about 200x200 reference pixels, b about 100x100
	assert.Greater(t, valid, 39000)
}

// pixelOf returns the deepest-level tile and the position in it where the
// sky position of pixel (x, y) of im lands.
func pixelOf(t *testing.T, plan *Plan, im *skyimage.SkyImage, x, y float64) (pyramid.Address, int, int) {
	t.Helper()
	w, err := im.Transform.PixelToWorld(x, y)
	require.NoError(t, err)
	fx, fy, err := plan.Reference.WorldToPixel(w)
	require.NoError(t, err)
	gx, gy := int(math.Floor(fx+0.5)), int(math.Floor(fy+0.5))
	ts := plan.TileSize
	return pyramid.NewAddress(plan.Level, gx/ts, gy/ts), gx % ts, gy % ts
}

func TestTileGenericOverlap(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, 2*arcsec, wcs.FrameEquatorial), 100, 100, 5)
	b := constImage(t, "b", tan(t, 80.02, -20.01, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 7)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	require.IsType(t, GenericLayout{}, plan.Layout)

	last := runTiler(t, plan, LastWins, a, b)
	first := runTiler(t, plan, FirstWins, a, b)

	// the centre of b is also inside a
	addr, x, y := pixelOf(t, plan, b, 49.5, 49.5)
	assert.InDelta(t, 7, get(t, last, addr).At(x, y), 1e-9)
	assert.InDelta(t, 5, get(t, first, addr).At(x, y), 1e-9)

	// the centre of a is outside b
	addr, x, y = pixelOf(t, plan, a, 49.5, 49.5)
	assert.InDelta(t, 5, get(t, last, addr).At(x, y), 1e-9)
	assert.InDelta(t, 5, get(t, first, addr).At(x, y), 1e-9)
}

// brokenReprojector fails for one input and can truncate its output.
type brokenReprojector struct {
	failPath string
	short    bool
}

func (r brokenReprojector) Reproject(target wcs.Transform, width, height int, src *skyimage.SkyImage) ([]float64, []bool, error) {
	if src.Path == r.failPath {
		return nil, nil, errors.New("no overlap with target grid")
	}
	data, valid, err := reproject.Reprojector{}.Reproject(target, width, height, src)
	if r.short && err == nil {
		return data[:1], valid[:1], nil
	}
	return data, valid, err
}

func TestTileReprojectionFailure(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, 2*arcsec, wcs.FrameEquatorial), 100, 100, 5)
	b := constImage(t, "b", tan(t, 80.02, -20.01, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 7)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	for name, r := range map[string]brokenReprojector{
		"error": {failPath: "b"},
		"short": {short: true},
	} {
		tl := &Tiler{
			Plan:        plan,
			Images:      []*skyimage.SkyImage{a, b},
			Store:       pyramid.NewMemoryStore(plan.TileSize),
			Reprojector: r,
			Workers:     1,
		}
		_, err := tl.Run(context.Background())
		var e *Error
		require.True(t, errors.As(err, &e), name)
		assert.Equal(t, KindTiling, e.Kind, name)
		require.NotNil(t, e.Addr, name)
		assert.Contains(t, plan.Populated(), *e.Addr, name)
		if name == "error" {
			assert.Equal(t, "b", e.Path)
		} else {
			assert.Contains(t, []string{"a", "b"}, e.Path)
			assert.Contains(t, e.Error(), "reprojection returned 1 samples")
		}
	}
}

type failingStore struct {
	*pyramid.MemoryStore
	failPut func(pyramid.Address) bool
	failGet func(pyramid.Address) bool
}

var errDisk = errors.New("disk full")

func (s *failingStore) Put(a pyramid.Address, t *pyramid.Tile) error {
	if s.failPut != nil && s.failPut(a) {
		return errDisk
	}
	return s.MemoryStore.Put(a, t)
}

func (s *failingStore) Get(a pyramid.Address) (*pyramid.Tile, bool, error) {
	if s.failGet != nil && s.failGet(a) {
		return nil, false, errDisk
	}
	return s.MemoryStore.Get(a)
}

func TestTileStoreFailure(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	bad := pyramid.NewAddress(1, 1, 1)
	store := &failingStore{
		MemoryStore: pyramid.NewMemoryStore(256),
		failPut:     func(x pyramid.Address) bool { return x == bad },
	}
	_, err = (&Tiler{Plan: plan, Images: []*skyimage.SkyImage{a, b}, Store: store, Workers: 1}).Run(context.Background())
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindTiling, e.Kind)
	require.NotNil(t, e.Addr)
	assert.Equal(t, bad, *e.Addr)
	assert.True(t, errors.Is(err, errDisk))
}

func TestTileValidation(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)

	_, err = (&Tiler{Plan: plan, Images: []*skyimage.SkyImage{a}, Store: pyramid.NewMemoryStore(256)}).Run(context.Background())
	assert.Error(t, err)
	_, err = (&Tiler{Plan: plan, Images: []*skyimage.SkyImage{a, b}, Store: pyramid.NewMemoryStore(128)}).Run(context.Background())
	assert.Error(t, err)

	generic := *plan
	generic.Layout = GenericLayout{}
	_, err = (&Tiler{Plan: &generic, Images: []*skyimage.SkyImage{a, b}, Store: pyramid.NewMemoryStore(256)}).Run(context.Background())
	assert.Error(t, err)
}

func TestCascade(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	store := runTiler(t, plan, LastWins, a, b)

	var levels []int
	var written int32
	c := &Cascader{
		Store:       store,
		Merger:      Average,
		Workers:     2,
		Percentiles: []float64{0, 50, 100},
		OnLevel:     func(level, _ int) { levels = append(levels, level) },
		OnTile:      func(pyramid.Address) { atomic.AddInt32(&written, 1) },
	}
	summary, err := c.Run(context.Background(), plan.Level, plan.Populated())
	require.NoError(t, err)
	assert.Equal(t, []int{0}, levels)
	assert.EqualValues(t, 1, written)
	assert.Equal(t, 5, store.Len())

	root := get(t, store, pyramid.NewAddress(0, 0, 0))
	children := 0
	for _, child := range pyramid.NewAddress(0, 0, 0).Children() {
		children += get(t, store, child).Valid()
	}
	assert.LessOrEqual(t, root.Valid(), children)
	// global (250, 250) at level 1 is only b's data under LastWins
	assert.Equal(t, 2.0, root.At(125, 125))
	assert.Equal(t, 1.0, root.At(60, 125))
	assert.True(t, math.IsNaN(root.At(0, 0)))

	assert.Equal(t, 30000, summary.Count)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 2.0, summary.Max)
	assert.Equal(t, map[float64]float64{0: 1, 50: 2, 100: 2}, summary.Percentiles)
}

func TestCascadeSingleImage(t *testing.T) {
	a := constImage(t, "a", tan(t, 80, -20, 50, 50, arcsec, wcs.FrameEquatorial), 100, 100, 3)
	plan, err := NewPlanner(256).Plan(descs(a))
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Level)
	store := runTiler(t, plan, LastWins, a)

	var levels []int
	_, err = (&Cascader{Store: store, OnLevel: func(l, _ int) { levels = append(levels, l) }}).
		Run(context.Background(), plan.Level, plan.Populated())
	require.NoError(t, err)
	assert.Empty(t, levels)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 10000, get(t, store, pyramid.NewAddress(0, 0, 0)).Valid())

	_, ok, err := store.Get(pyramid.NewAddress(1, 0, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCascadeFailures(t *testing.T) {
	a, b := sharedPair(t)
	plan, err := NewPlanner(256).Plan(descs(a, b))
	require.NoError(t, err)
	mem := runTiler(t, plan, LastWins, a, b)

	_, err = (&Cascader{Store: mem}).Run(context.Background(), plan.Level, plan.Populated())
	require.NoError(t, err)
	// the root already exists
	_, err = (&Cascader{Store: mem}).Run(context.Background(), plan.Level, plan.Populated())
	assert.True(t, IsKind(err, KindCascade))
	assert.True(t, errors.Is(err, pyramid.ErrTileExists))

	store := &failingStore{
		MemoryStore: runTiler(t, plan, LastWins, a, b),
		failGet:     func(x pyramid.Address) bool { return x == pyramid.NewAddress(1, 1, 0) },
	}
	_, err = (&Cascader{Store: store}).Run(context.Background(), plan.Level, plan.Populated())
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindCascade, e.Kind)
	assert.Equal(t, pyramid.NewAddress(1, 1, 0), *e.Addr)

	_, err = (&Cascader{Store: mem}).Run(context.Background(), plan.Level+1, plan.Populated())
	assert.True(t, IsKind(err, KindCascade))
}

func TestSummarizeEmpty(t *testing.T) {
	store := pyramid.NewMemoryStore(4)
	addr := pyramid.NewAddress(0, 0, 0)
	require.NoError(t, store.Put(addr, pyramid.NewTile(4)))

	s, err := Summarize(context.Background(), store, []pyramid.Address{addr, pyramid.NewAddress(1, 0, 0)}, DefaultPercentiles, 0)
	require.NoError(t, err)
	assert.Empty(t, s.Percentiles)
	assert.Zero(t, s.Count)
	assert.True(t, math.IsNaN(s.Min))

	_, err = Summarize(context.Background(), store, []pyramid.Address{addr}, []float64{101}, 0)
	assert.Error(t, err)
}

func TestForEachCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	addrs := pyramid.Covering(2, 2, image.Rect(0, 0, 8, 8))
	var calls int32
	err := forEach(ctx, 2, addrs, func(context.Context, pyramid.Address) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))

	boom := errors.New("boom")
	err = forEach(context.Background(), 3, addrs, func(_ context.Context, a pyramid.Address) error {
		if a.X == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFootprints(t *testing.T) {
	a, b := sharedPair(t)
	fc, err := Footprints(descs(a, b))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly[0], 5)
	assert.Equal(t, poly[0][0], poly[0][4])
	assert.Equal(t, "a", fc.Features[0].Properties["path"])
	assert.Equal(t, 200, fc.Features[1].Properties["width"])
}
