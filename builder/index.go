package builder

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// IndexFile is the name of the index document inside an output directory.
const IndexFile = "index.toml"

// Index describes a finished pyramid.
type Index struct {
	Name       string `toml:"name"`
	Projection string `toml:"projection"`
	Layout     string `toml:"layout,omitempty"`
	Frame      string `toml:"frame,omitempty"`
	TileSize   int    `toml:"tile_size"`
	// TileLevels is the deepest level.
	TileLevels         int     `toml:"tile_levels"`
	CenterX            float64 `toml:"center_x"`
	CenterY            float64 `toml:"center_y"`
	BaseDegreesPerTile float64 `toml:"base_degrees_per_tile"`
	// URL is the tile path template relative to the index.
	URL         string             `toml:"url"`
	Encoding    string             `toml:"encoding,omitempty"`
	Samples     int                `toml:"samples"`
	DataMin     float64            `toml:"data_min"`
	DataMax     float64            `toml:"data_max"`
	Percentiles map[string]float64 `toml:"percentiles,omitempty"`
	Thumbnail   string             `toml:"thumbnail,omitempty"`
	Histogram   string             `toml:"histogram,omitempty"`
	Footprints  string             `toml:"footprints,omitempty"`
	RunID       string             `toml:"run_id,omitempty"`
	Created     time.Time          `toml:"created"`
}

// WriteIndex writes the index document and, when the store keeps
// metadata, mirrors the main fields there.
func (b *Builder) WriteIndex() error {
	if b.Index.Created.IsZero() {
		b.Index.Created = time.Now().UTC().Truncate(time.Second)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(b.Index); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.MkdirAll(b.Dir, os.ModePerm); err != nil {
		return err
	}
	path := filepath.Join(b.Dir, IndexFile)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return err
	}
	b.logger().Infof("index written to %s ~", path)

	if sink, ok := b.Store.(MetadataSink); ok {
		return writeMetadata(sink, b.Index)
	}
	return nil
}

func writeMetadata(sink MetadataSink, idx Index) error {
	fields := [][2]string{
		{"name", idx.Name},
		{"format", idx.Encoding},
		{"projection", idx.Projection},
		{"minzoom", "0"},
		{"maxzoom", strconv.Itoa(idx.TileLevels)},
		{"tile_size", strconv.Itoa(idx.TileSize)},
		{"center", fmt.Sprintf("%g,%g,0", idx.CenterX, idx.CenterY)},
		{"base_degrees_per_tile", strconv.FormatFloat(idx.BaseDegreesPerTile, 'g', -1, 64)},
	}
	if !math.IsNaN(idx.DataMin) {
		fields = append(fields,
			[2]string{"data_min", strconv.FormatFloat(idx.DataMin, 'g', -1, 64)},
			[2]string{"data_max", strconv.FormatFloat(idx.DataMax, 'g', -1, 64)})
	}
	for _, f := range fields {
		if err := sink.SetMetadata(f[0], f[1]); err != nil {
			return fmt.Errorf("metadata %s: %w", f[0], err)
		}
	}
	return nil
}

// ReadIndex loads the index document of an output directory.
func ReadIndex(dir string) (*Index, error) {
	var idx Index
	if _, err := toml.DecodeFile(filepath.Join(dir, IndexFile), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}
