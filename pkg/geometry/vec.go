// Package geometry provides the 2D primitives used by the DRC engine:
// integer-nanometer vectors, segments, rectangles, polygon sets and
// curve flattening. Distance comparisons are done on squared nanometer
// values; square roots are taken only when a human-readable clearance
// has to be reported.
package geometry

import "math"

// Coordinate conversion constants
// KiCad stores board coordinates in files as millimeters; the DRC engine
// works in integer nanometers so clearance comparisons stay exact.
const (
	NanometersPerMM  = 1e6
	NanometersPerMil = 25400
)

// FromMM converts a millimeter value to nanometers.
func FromMM(mm float64) int64 {
	return int64(math.Round(mm * NanometersPerMM))
}

// ToMM converts a nanometer value to millimeters.
func ToMM(nm int64) float64 {
	return float64(nm) / NanometersPerMM
}

// FromMils converts a mil (1/1000 inch) value to nanometers.
func FromMils(mils int64) int64 {
	return mils * NanometersPerMil
}

// Vec is a 2D point or displacement in nanometers.
type Vec struct {
	X int64
	Y int64
}

// VecFromMM builds a Vec from millimeter coordinates.
func VecFromMM(x, y float64) Vec {
	return Vec{X: FromMM(x), Y: FromMM(y)}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Mid returns the midpoint of v and o, rounded toward negative infinity.
func (v Vec) Mid(o Vec) Vec {
	return Vec{X: (v.X + o.X) / 2, Y: (v.Y + o.Y) / 2}
}

// SquaredLength returns |v|² in nm².
func (v Vec) SquaredLength() int64 {
	return v.X*v.X + v.Y*v.Y
}

// Length returns |v| in nm. This takes a square root; callers in hot
// loops should compare SquaredLength against Square'd thresholds instead.
func (v Vec) Length() float64 {
	return math.Sqrt(float64(v.SquaredLength()))
}

// SquaredDistance returns |v-o|² in nm².
func (v Vec) SquaredDistance(o Vec) int64 {
	return v.Sub(o).SquaredLength()
}

// Cross returns the z component of v × o.
func (v Vec) Cross(o Vec) int64 {
	return v.X*o.Y - v.Y*o.X
}

// Dot returns v · o.
func (v Vec) Dot(o Vec) int64 {
	return v.X*o.X + v.Y*o.Y
}

// Rotate returns v rotated by angle degrees around the origin.
// Used for transforming pad offsets by footprint orientation.
func (v Vec) Rotate(degrees float64) Vec {
	rad := degrees * math.Pi / 180.0
	sin, cos := math.Sincos(rad)
	x := float64(v.X)*cos - float64(v.Y)*sin
	y := float64(v.X)*sin + float64(v.Y)*cos
	return Vec{X: int64(math.Round(x)), Y: int64(math.Round(y))}
}

// Square returns d² for a scalar clearance value.
func Square(d int64) int64 {
	return d * d
}
