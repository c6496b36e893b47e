package mosaic

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"skytiler/skyimage"
	"skytiler/wcs"
)

// Footprints returns each input's corner polygon as a GeoJSON feature with
// (longitude, latitude) in degrees.
func Footprints(descs []skyimage.Description) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, d := range descs {
		if d.Transform == nil {
			return nil, inputErr(d.Path, ErrNoTransform)
		}
		c, err := wcs.Corners(d.Transform, d.Width, d.Height)
		if err != nil {
			return nil, inputErr(d.Path, err)
		}
		ring := orb.Ring{c[0], c[1], c[2], c[3], c[0]}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["path"] = d.Path
		f.Properties["layer"] = d.Layer
		f.Properties["width"] = d.Width
		f.Properties["height"] = d.Height
		fc.Append(f)
	}
	return fc, nil
}
