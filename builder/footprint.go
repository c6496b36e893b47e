package builder

import (
	"os"
	"path/filepath"

	"skytiler/mosaic"
	"skytiler/skyimage"
)

// FootprintsFile is the GeoJSON file of input footprints.
const FootprintsFile = "footprints.geojson"

// WriteFootprints saves the corner polygon of every input.
func (b *Builder) WriteFootprints(descs []skyimage.Description) error {
	fc, err := mosaic.Footprints(descs)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.Dir, FootprintsFile), data, 0644); err != nil {
		return err
	}
	b.Index.Footprints = FootprintsFile
	return nil
}
