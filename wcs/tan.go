package wcs

import (
	"math"

	"github.com/paulmach/orb"
)

// TAN is a gnomonic (tangent-plane) projection with a linear CD matrix, the
// projection used by most narrow-field astronomical images.
type TAN struct {
	// CRPIX is the 1-based reference pixel.
	CRPIX [2]float64
	// CRVAL is the tangent point on the sky, in degrees.
	CRVAL orb.Point
	// CD maps pixel offsets to intermediate world coordinates, in degrees.
	CD [2][2]float64

	frame Frame
	inv   [2][2]float64
}

// NewTAN builds a gnomonic transform.
func NewTAN(crval orb.Point, crpix [2]float64, cd [2][2]float64, frame Frame) (*TAN, error) {
	det := cd[0][0]*cd[1][1] - cd[0][1]*cd[1][0]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, ErrSingular
	}
	t := &TAN{
		CRPIX: crpix,
		CRVAL: orb.Point{normalizeLon(crval[0]), crval[1]},
		CD:    cd,
		frame: frame,
	}
	t.inv = [2][2]float64{
		{cd[1][1] / det, -cd[0][1] / det},
		{-cd[1][0] / det, cd[0][0] / det},
	}
	return t, nil
}

// Frame implements Transform.
func (t *TAN) Frame() Frame { return t.frame }

// PixelScale implements Transform.
func (t *TAN) PixelScale() float64 {
	return math.Sqrt(math.Abs(t.CD[0][0]*t.CD[1][1] - t.CD[0][1]*t.CD[1][0]))
}

// Offset returns the same projection re-anchored so that pixel (0, 0) of the
// result is pixel (dx, dy) of t.
func (t *TAN) Offset(dx, dy float64) *TAN {
	o := *t
	o.CRPIX = [2]float64{t.CRPIX[0] - dx, t.CRPIX[1] - dy}
	return &o
}

// PixelToWorld implements Transform.
func (t *TAN) PixelToWorld(x, y float64) (orb.Point, error) {
	dx := x + 1 - t.CRPIX[0]
	dy := y + 1 - t.CRPIX[1]
	xi := deg2rad(t.CD[0][0]*dx + t.CD[0][1]*dy)
	eta := deg2rad(t.CD[1][0]*dx + t.CD[1][1]*dy)

	lon0 := deg2rad(t.CRVAL[0])
	lat0 := deg2rad(t.CRVAL[1])
	sin0, cos0 := math.Sincos(lat0)

	denom := cos0 - eta*sin0
	lon := lon0 + math.Atan2(xi, denom)
	lat := math.Atan2(sin0+eta*cos0, math.Hypot(xi, denom))
	return orb.Point{normalizeLon(rad2deg(lon)), rad2deg(lat)}, nil
}

// WorldToPixel implements Transform.
func (t *TAN) WorldToPixel(p orb.Point) (float64, float64, error) {
	lon := deg2rad(p[0])
	lat := deg2rad(p[1])
	lon0 := deg2rad(t.CRVAL[0])
	lat0 := deg2rad(t.CRVAL[1])

	sinLat, cosLat := math.Sincos(lat)
	sin0, cos0 := math.Sincos(lat0)
	sinDL, cosDL := math.Sincos(lon - lon0)

	cosc := sin0*sinLat + cos0*cosLat*cosDL
	if cosc <= 0 {
		return math.NaN(), math.NaN(), ErrNotProjectable
	}
	xi := rad2deg(cosLat * sinDL / cosc)
	eta := rad2deg((cos0*sinLat - sin0*cosLat*cosDL) / cosc)

	dx := t.inv[0][0]*xi + t.inv[0][1]*eta
	dy := t.inv[1][0]*xi + t.inv[1][1]*eta
	return dx + t.CRPIX[0] - 1, dy + t.CRPIX[1] - 1, nil
}

// SameProjection reports whether u shares t's frame, tangent point and
// linear transformation, within tol degrees for the tangent point and a
// relative tol for the CD matrix.
func (t *TAN) SameProjection(u *TAN, tol float64) bool {
	if t.frame != u.frame {
		return false
	}
	if Separation(t.CRVAL, u.CRVAL) > tol {
		return false
	}
	scale := t.PixelScale()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if math.Abs(t.CD[i][j]-u.CD[i][j]) > tol*scale {
				return false
			}
		}
	}
	return true
}
