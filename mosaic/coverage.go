// Package mosaic turns a collection of sky images into a tile pyramid: it
// classifies the sky coverage, plans one global pixelization, tiles the
// deepest level and cascades it up to the root.
package mosaic

import (
	"github.com/paulmach/orb"

	"skytiler/skyimage"
	"skytiler/wcs"
)

// WideThreshold is the largest corner-to-corner separation, in degrees, a
// mosaic may span and still be tiled locally.
const WideThreshold = 20.0

// Coverage says which pipeline handles a mosaic.
type Coverage int

// Coverage values
const (
	Local Coverage = iota
	Wide
)

func (c Coverage) String() string {
	if c == Wide {
		return "wide"
	}
	return "local"
}

// Classification is the outcome of Classify.
type Classification struct {
	Coverage Coverage
	// MaxSeparation is the largest corner-to-corner separation, in degrees.
	MaxSeparation float64
}

// ClassifyCollection describes the collection's inputs and classifies them.
func ClassifyCollection(c *skyimage.Collection) (Classification, error) {
	descs, err := DescribeCollection(c)
	if err != nil {
		return Classification{}, err
	}
	return Classify(descs)
}

// DescribeCollection describes every input, reporting failures as input
// errors.
func DescribeCollection(c *skyimage.Collection) ([]skyimage.Description, error) {
	descs, err := c.Descriptions()
	if err != nil {
		return nil, inputErr("", err)
	}
	return descs, nil
}

// Classify computes the four sky corners of every image and compares every
// pair of corners in the combined set. The mosaic is Wide when the largest
// separation exceeds WideThreshold.
func Classify(descs []skyimage.Description) (Classification, error) {
	corners := make([]orb.Point, 0, 4*len(descs))
	for _, d := range descs {
		if d.Transform == nil {
			return Classification{}, inputErr(d.Path, ErrNoTransform)
		}
		c, err := wcs.Corners(d.Transform, d.Width, d.Height)
		if err != nil {
			return Classification{}, inputErr(d.Path, err)
		}
		corners = append(corners, c[:]...)
	}

	max := 0.0
	for i := range corners {
		for j := i + 1; j < len(corners); j++ {
			if d := wcs.Separation(corners[i], corners[j]); d > max {
				max = d
			}
		}
	}

	out := Classification{Coverage: Local, MaxSeparation: max}
	if max > WideThreshold {
		out.Coverage = Wide
	}
	return out, nil
}

// LoadImages reads the pixels of every input, reporting failures as input
// errors.
func LoadImages(c *skyimage.Collection) ([]*skyimage.SkyImage, error) {
	images, err := c.Images()
	if err != nil {
		return nil, inputErr("", err)
	}
	return images, nil
}
