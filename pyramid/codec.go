package pyramid

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode serialises a tile with the given encoding.
func Encode(t *Tile, encoding string) ([]byte, error) {
	raw := make([]byte, 8*len(t.Data))
	for i, v := range t.Data {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	switch encoding {
	case "", Raw:
		return raw, nil
	case GZIP:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("pyramid: unknown tile encoding %q", encoding)
	}
}

// Decode parses a tile written by Encode. A short or oversized payload is an
// error, never a partial tile.
func Decode(b []byte, encoding string, size int) (*Tile, error) {
	switch encoding {
	case "", Raw:
	case GZIP:
		zr, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if b, err = io.ReadAll(zr); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("pyramid: unknown tile encoding %q", encoding)
	}
	if len(b) != 8*size*size {
		return nil, fmt.Errorf("pyramid: tile payload is %d bytes, want %d", len(b), 8*size*size)
	}
	t := &Tile{Size: size, Data: make([]float64, size*size)}
	for i := range t.Data {
		t.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return t, nil
}
