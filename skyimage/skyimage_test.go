package skyimage

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection(t *testing.T) {
	auto := FromIndices(nil)
	assert.True(t, auto.IsAuto())
	assert.Equal(t, AutoLayer, auto.For(3))
	assert.Nil(t, auto.Indices(2))
	assert.Equal(t, "auto", auto.String())

	global := FromIndices([]int{2})
	assert.Equal(t, 2, global.For(0))
	assert.Equal(t, []int{2, 2, 2}, global.Indices(3))
	require.NoError(t, global.Validate(5))

	per := FromIndices([]int{0, 3})
	assert.Equal(t, 3, per.For(1))
	assert.Equal(t, "0,3", per.String())
	require.NoError(t, per.Validate(2))
	assert.Error(t, per.Validate(3))

	assert.ErrorIs(t, Global(-1).Validate(1), ErrLayerRange)
}

type fakeLoader struct {
	layers map[string]int
	fail   map[string]error
}

func (f fakeLoader) Describe(path string, layer int) (Description, error) {
	if err := f.fail[path]; err != nil {
		return Description{}, err
	}
	if layer == AutoLayer {
		layer = f.layers[path]
	}
	return Description{Path: path, Layer: layer, Width: 4, Height: 2}, nil
}

func (f fakeLoader) Load(path string, layer int) (*SkyImage, error) {
	d, err := f.Describe(path, layer)
	if err != nil {
		return nil, err
	}
	return New(d, make([]float64, 8))
}

func TestCollectionOrder(t *testing.T) {
	c := NewCollection([]string{"a.fits", "b.fits"}, PerImage(1, 0), fakeLoader{})

	descs, err := c.Descriptions()
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "a.fits", descs[0].Path)
	assert.Equal(t, 1, descs[0].Layer)
	assert.Equal(t, 0, descs[1].Layer)

	imgs, err := c.Images()
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "b.fits", imgs[1].Path)
}

func TestCollectionErrors(t *testing.T) {
	_, err := NewCollection(nil, Auto(), fakeLoader{}).Descriptions()
	assert.Error(t, err)

	_, err = NewCollection([]string{"a", "b"}, PerImage(0), fakeLoader{}).Descriptions()
	var le *LoadError
	require.ErrorAs(t, err, &le)

	boom := errors.New("boom")
	_, err = NewCollection([]string{"a", "b"}, Auto(), fakeLoader{fail: map[string]error{"b": boom}}).Images()
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "b", le.Path)
	assert.ErrorIs(t, err, boom)
}

func TestSkyImage(t *testing.T) {
	_, err := New(Description{Width: 2, Height: 2}, make([]float64, 3))
	assert.Error(t, err)

	im, err := New(Description{Width: 2, Height: 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3.0, im.At(0, 1))
	assert.True(t, math.IsNaN(im.At(2, 0)))
	assert.True(t, math.IsNaN(im.At(0, -1)))
}

func TestFITSLoaderMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.fits")
	_, err := FITSLoader{}.Describe(path, AutoLayer)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, path, le.Path)
}

func TestPlanar(t *testing.T) {
	assert.True(t, planar([]int{10, 20}))
	assert.True(t, planar([]int{10, 20, 1}))
	assert.False(t, planar([]int{10, 20, 3}))
	assert.False(t, planar([]int{10}))
	assert.False(t, planar([]int{0, 20}))
}
