// Package viewport projects a rectangular imaging field onto the sky and
// answers cheap containment queries against it.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/litescript/ls-nightsky/internal/astro"
)

// ErrInvalidFoV is returned for non-positive sizes or a field of 180° or more.
var ErrInvalidFoV = errors.New("invalid field of view")

// FoV is the sky footprint of an image centred on Center.
//
// Image x points east and y points north before rotation. Rotation turns the
// frame counter-clockwise from north through east.
type FoV struct {
	Center   astro.Coordinates
	VFoV     float64 // degrees
	HFoV     float64 // degrees, VFoV scaled by the aspect ratio
	Width    int     // pixels
	Height   int     // pixels
	Rotation float64 // degrees

	TopLeft     astro.Coordinates
	TopRight    astro.Coordinates
	BottomLeft  astro.Coordinates
	BottomRight astro.Coordinates

	// Bounding box. RA bounds are offsets from the centre in degrees so the
	// range never has to wrap; Dec bounds are folded into the centre's
	// hemisphere.
	polar          bool
	raMinOffset    float64
	raMaxOffset    float64
	absDecMin      float64
	absDecMax      float64
	southernCentre bool
}

// New computes the footprint for center with a vertical field vFoV degrees,
// an image of width×height pixels and rotation degrees.
func New(center astro.Coordinates, vFoV float64, width, height int, rotation float64) (*FoV, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrInvalidFoV, width, height)
	}
	if !(vFoV > 0 && vFoV < 180) {
		return nil, fmt.Errorf("%w: vertical %v°", ErrInvalidFoV, vFoV)
	}

	f := &FoV{
		Center:   center,
		VFoV:     vFoV,
		HFoV:     vFoV * float64(width) / float64(height),
		Width:    width,
		Height:   height,
		Rotation: rotation,
	}
	f.compute()
	return f, nil
}

func (f *FoV) compute() {
	halfW, halfH := f.HFoV/2, f.VFoV/2
	rot := astro.ByDegree(f.Rotation)
	shift := func(x, y float64) astro.Coordinates {
		return f.Center.Shift(astro.ByDegree(x), astro.ByDegree(y), rot)
	}

	f.TopLeft = shift(-halfW, halfH)
	f.TopRight = shift(halfW, halfH)
	f.BottomLeft = shift(-halfW, -halfH)
	f.BottomRight = shift(halfW, -halfH)

	// Edge midpoints bound Dec on the curved top and bottom edges.
	outline := []astro.Coordinates{
		f.TopLeft, f.TopRight, f.BottomLeft, f.BottomRight,
		shift(0, halfH), shift(0, -halfH), shift(-halfW, 0), shift(halfW, 0),
	}

	f.southernCentre = f.Center.Dec.Degrees() < 0
	fold := func(dec float64) float64 {
		if f.southernCentre {
			return -dec
		}
		return dec
	}

	centreDec := fold(f.Center.Dec.Degrees())
	f.absDecMin, f.absDecMax = centreDec, centreDec
	for _, c := range outline {
		d := fold(c.Dec.Degrees())
		f.absDecMin = math.Min(f.absDecMin, d)
		f.absDecMax = math.Max(f.absDecMax, d)
	}

	// Near the pole every RA is in view and the field hangs from the pole.
	if centreDec+halfH >= 90 {
		f.polar = true
		f.absDecMax = 90
		f.absDecMin = math.Min(f.absDecMin, 90-f.VFoV)
		f.raMinOffset, f.raMaxOffset = -180, 180
		return
	}

	f.raMinOffset, f.raMaxOffset = 0, 0
	for _, c := range outline {
		off := raOffset(c.RADegrees(), f.Center.RADegrees())
		f.raMinOffset = math.Min(f.raMinOffset, off)
		f.raMaxOffset = math.Max(f.raMaxOffset, off)
	}
}

// raOffset returns ra - centre in degrees, wrapped to [-180, 180).
func raOffset(ra, centre float64) float64 {
	return astro.EuclidianModulus(ra-centre+180, 360) - 180
}

// Polar reports whether the field reaches a celestial pole.
func (f *FoV) Polar() bool {
	return f.polar
}

// RARange returns the RA bounds in degrees, each in [0, 360). When lo is
// greater than hi the range wraps through 0h.
func (f *FoV) RARange() (lo, hi float64) {
	if f.polar {
		return 0, 360
	}
	c := f.Center.RADegrees()
	return astro.EuclidianModulus(c+f.raMinOffset, 360), astro.EuclidianModulus(c+f.raMaxOffset, 360)
}

// RAExtent returns the width of the RA bounds in degrees; 360 near a pole.
func (f *FoV) RAExtent() float64 {
	return f.raMaxOffset - f.raMinOffset
}

// DecRange returns the Dec bounds in degrees, lo <= hi.
func (f *FoV) DecRange() (lo, hi float64) {
	if f.southernCentre {
		return -f.absDecMax, -f.absDecMin
	}
	return f.absDecMin, f.absDecMax
}

// ContainsCoordinates reports whether c falls inside the bounding box of the
// field. It is a culling test, not an exact projection test. c must be in the
// same epoch as the centre.
func (f *FoV) ContainsCoordinates(c astro.Coordinates) bool {
	return f.Contains(c.RADegrees(), c.Dec.Degrees())
}

// Contains is ContainsCoordinates for RA and Dec in degrees.
func (f *FoV) Contains(raDeg, decDeg float64) bool {
	d := decDeg
	if f.southernCentre {
		d = -d
	}
	if d < f.absDecMin || d > f.absDecMax {
		return false
	}
	if f.polar {
		return true
	}
	off := raOffset(raDeg, f.Center.RADegrees())
	return off >= f.raMinOffset && off <= f.raMaxOffset
}

// ArcSecPerPixel returns the image scale.
func (f *FoV) ArcSecPerPixel() float64 {
	return f.VFoV * 3600 / float64(f.Height)
}

// Pan returns the field moved by dx, dy pixels along the image axes.
func (f *FoV) Pan(dx, dy float64) *FoV {
	scale := f.VFoV / float64(f.Height)
	centre := f.Center.Shift(astro.ByDegree(dx*scale), astro.ByDegree(dy*scale), astro.ByDegree(f.Rotation))
	return f.WithCenter(centre)
}

// WithCenter returns the same field centred on c.
func (f *FoV) WithCenter(c astro.Coordinates) *FoV {
	n := &FoV{
		Center:   c,
		VFoV:     f.VFoV,
		HFoV:     f.HFoV,
		Width:    f.Width,
		Height:   f.Height,
		Rotation: f.Rotation,
	}
	n.compute()
	return n
}

// WithRotation returns the same field rotated to rotation degrees.
func (f *FoV) WithRotation(rotation float64) *FoV {
	n := f.WithCenter(f.Center)
	n.Rotation = rotation
	n.compute()
	return n
}
