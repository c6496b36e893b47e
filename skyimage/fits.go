package skyimage

import (
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"

	"skytiler/wcs"
)

// FITSLoader reads images and their WCS from FITS files.
type FITSLoader struct{}

// Describe implements Loader.
func (FITSLoader) Describe(path string, layer int) (Description, error) {
	im, err := readFITS(path, layer, false)
	if err != nil {
		return Description{}, err
	}
	return im.Description, nil
}

// Load implements Loader.
func (FITSLoader) Load(path string, layer int) (*SkyImage, error) {
	return readFITS(path, layer, true)
}

func readFITS(path string, layer int, withData bool) (*SkyImage, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Layer: layer, Err: err}
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, &LoadError{Path: path, Layer: layer, Err: err}
	}
	defer f.Close()

	img, idx, err := selectHDU(f.HDUs(), layer)
	if err != nil {
		return nil, &LoadError{Path: path, Layer: layer, Err: err}
	}

	hdr := img.Header()
	axes := hdr.Axes()
	desc := Description{
		Path:   path,
		Layer:  idx,
		Width:  axes[0],
		Height: axes[1],
	}
	tr, err := wcs.FromHeader(fitsHeader{hdr})
	if err != nil {
		return nil, &LoadError{Path: path, Layer: idx, Err: err}
	}
	desc.Transform = tr

	if !withData {
		return &SkyImage{Description: desc}, nil
	}
	pixels, err := readPixels(img, desc.Width*desc.Height)
	if err != nil {
		return nil, &LoadError{Path: path, Layer: idx, Err: err}
	}
	return New(desc, pixels)
}

func selectHDU(hdus []fitsio.HDU, layer int) (fitsio.Image, int, error) {
	if layer == AutoLayer {
		for i, hdu := range hdus {
			img, ok := hdu.(fitsio.Image)
			if !ok || hdu.Type() != fitsio.IMAGE_HDU {
				continue
			}
			if len(hdu.Header().Axes()) > 1 {
				if !planar(hdu.Header().Axes()) {
					return nil, i, ErrNotImage
				}
				return img, i, nil
			}
		}
		return nil, AutoLayer, ErrNoImage
	}

	if layer < 0 || layer >= len(hdus) {
		return nil, layer, fmt.Errorf("%w (file has %d)", ErrLayerRange, len(hdus))
	}
	hdu := hdus[layer]
	img, ok := hdu.(fitsio.Image)
	if !ok || hdu.Type() != fitsio.IMAGE_HDU || !planar(hdu.Header().Axes()) {
		return nil, layer, ErrNotImage
	}
	return img, layer, nil
}

// planar accepts NAXIS >= 2 where every axis past the second is degenerate.
func planar(axes []int) bool {
	if len(axes) < 2 || axes[0] <= 0 || axes[1] <= 0 {
		return false
	}
	for _, n := range axes[2:] {
		if n != 1 {
			return false
		}
	}
	return true
}

type number interface {
	~uint8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func readPixels(img fitsio.Image, n int) ([]float64, error) {
	hdr := img.Header()
	h := fitsHeader{hdr}
	bscale, ok := h.Float("BSCALE")
	if !ok {
		bscale = 1
	}
	bzero, _ := h.Float("BZERO")
	blank, hasBlank := h.Float("BLANK")

	switch hdr.Bitpix() {
	case 8:
		return readAs(img, make([]uint8, n), bscale, bzero, blank, hasBlank)
	case 16:
		return readAs(img, make([]int16, n), bscale, bzero, blank, hasBlank)
	case 32:
		return readAs(img, make([]int32, n), bscale, bzero, blank, hasBlank)
	case 64:
		return readAs(img, make([]int64, n), bscale, bzero, blank, hasBlank)
	case -32:
		return readAs(img, make([]float32, n), bscale, bzero, 0, false)
	case -64:
		return readAs(img, make([]float64, n), bscale, bzero, 0, false)
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", hdr.Bitpix())
	}
}

func readAs[T number](img fitsio.Image, raw []T, bscale, bzero, blank float64, hasBlank bool) ([]float64, error) {
	if err := img.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		f := float64(v)
		if hasBlank && f == blank {
			out[i] = math.NaN()
			continue
		}
		out[i] = bzero + bscale*f
	}
	return out, nil
}

// fitsHeader adapts a FITS header to wcs.Header.
type fitsHeader struct {
	hdr *fitsio.Header
}

func (h fitsHeader) Float(key string) (float64, bool) {
	card := h.hdr.Get(key)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

func (h fitsHeader) String(key string) (string, bool) {
	card := h.hdr.Get(key)
	if card == nil {
		return "", false
	}
	s, ok := card.Value.(string)
	return s, ok
}
