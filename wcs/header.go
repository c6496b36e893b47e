package wcs

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Header gives access to FITS-style WCS keywords.
type Header interface {
	Float(key string) (float64, bool)
	String(key string) (string, bool)
}

// Keywords is an in-memory Header.
type Keywords map[string]interface{}

// Float implements Header.
func (k Keywords) Float(key string) (float64, bool) {
	switch v := k[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String implements Header.
func (k Keywords) String(key string) (string, bool) {
	v, ok := k[key].(string)
	return v, ok
}

// FromHeader builds a gnomonic transform from FITS WCS keywords. The linear
// part is taken from CDi_j, else from PCi_j and CDELTi, else from CDELTi and
// CROTA2.
func FromHeader(h Header) (*TAN, error) {
	ctype1, ok1 := h.String("CTYPE1")
	ctype2, ok2 := h.String("CTYPE2")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("wcs: missing CTYPE1/CTYPE2")
	}
	lonAxis, proj1, err := splitCtype(ctype1)
	if err != nil {
		return nil, err
	}
	latAxis, proj2, err := splitCtype(ctype2)
	if err != nil {
		return nil, err
	}
	if proj1 != "TAN" || proj2 != "TAN" {
		return nil, fmt.Errorf("wcs: unsupported projection %q/%q", ctype1, ctype2)
	}
	frame, err := frameOf(lonAxis, latAxis)
	if err != nil {
		return nil, err
	}

	var crval orb.Point
	var crpix [2]float64
	for i, axis := range []string{"1", "2"} {
		v, ok := h.Float("CRVAL" + axis)
		if !ok {
			return nil, fmt.Errorf("wcs: missing CRVAL%s", axis)
		}
		crval[i] = v
		p, ok := h.Float("CRPIX" + axis)
		if !ok {
			return nil, fmt.Errorf("wcs: missing CRPIX%s", axis)
		}
		crpix[i] = p
	}

	cd, err := linearPart(h)
	if err != nil {
		return nil, err
	}
	t, err := NewTAN(crval, crpix, cd, frame)
	if err != nil {
		return nil, fmt.Errorf("wcs: %s %s: %w", ctype1, ctype2, err)
	}
	return t, nil
}

func splitCtype(ctype string) (axis, proj string, err error) {
	ctype = strings.ToUpper(strings.TrimSpace(ctype))
	if len(ctype) < 8 || ctype[4] != '-' {
		return "", "", fmt.Errorf("wcs: malformed CTYPE %q", ctype)
	}
	return strings.TrimRight(ctype[:4], "-"), ctype[5:8], nil
}

func frameOf(lon, lat string) (Frame, error) {
	switch {
	case lon == "RA" && lat == "DEC":
		return FrameEquatorial, nil
	case lon == "GLON" && lat == "GLAT":
		return FrameGalactic, nil
	case lon == "ELON" && lat == "ELAT":
		return FrameEcliptic, nil
	default:
		return FrameUnknown, fmt.Errorf("wcs: unsupported axis pair %s/%s", lon, lat)
	}
}

func linearPart(h Header) ([2][2]float64, error) {
	var cd [2][2]float64
	haveCD := false
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v, ok := h.Float(fmt.Sprintf("CD%d_%d", i+1, j+1)); ok {
				cd[i][j] = v
				haveCD = true
			}
		}
	}
	if haveCD {
		return cd, nil
	}

	cdelt1, ok1 := h.Float("CDELT1")
	cdelt2, ok2 := h.Float("CDELT2")
	if !ok1 || !ok2 {
		return cd, fmt.Errorf("wcs: no CDi_j or CDELTi keywords")
	}
	cdelt := [2]float64{cdelt1, cdelt2}

	pc := [2][2]float64{{1, 0}, {0, 1}}
	havePC := false
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v, ok := h.Float(fmt.Sprintf("PC%d_%d", i+1, j+1)); ok {
				pc[i][j] = v
				havePC = true
			}
		}
	}
	if !havePC {
		if rot, ok := h.Float("CROTA2"); ok {
			s, c := math.Sincos(deg2rad(rot))
			pc = [2][2]float64{{c, -s * cdelt2 / cdelt1}, {s * cdelt1 / cdelt2, c}}
		}
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			cd[i][j] = cdelt[i] * pc[i][j]
		}
	}
	return cd, nil
}
