package geometry

import "math"

// Seg is a line segment between two points, in nanometers.
type Seg struct {
	A Vec
	B Vec
}

// SquaredLength returns the squared segment length.
func (s Seg) SquaredLength() int64 {
	return s.B.Sub(s.A).SquaredLength()
}

// Length returns the segment length in nm.
func (s Seg) Length() float64 {
	return s.B.Sub(s.A).Length()
}

// NearestPoint returns the point on the segment closest to p.
func (s Seg) NearestPoint(p Vec) Vec {
	d := s.B.Sub(s.A)
	l2 := d.SquaredLength()
	if l2 == 0 {
		return s.A
	}

	// Projection parameter computed in float64: the int64 dot product is
	// exact, only the division rounds.
	t := float64(p.Sub(s.A).Dot(d)) / float64(l2)
	if t <= 0 {
		return s.A
	}
	if t >= 1 {
		return s.B
	}
	return Vec{
		X: s.A.X + int64(math.Round(t*float64(d.X))),
		Y: s.A.Y + int64(math.Round(t*float64(d.Y))),
	}
}

// SquaredDistanceToPoint returns the squared distance from p to the segment.
func (s Seg) SquaredDistanceToPoint(p Vec) int64 {
	return s.NearestPoint(p).SquaredDistance(p)
}

// Intersects reports whether the two segments cross or touch.
func (s Seg) Intersects(o Seg) bool {
	d1 := direction(o.A, o.B, s.A)
	d2 := direction(o.A, o.B, s.B)
	d3 := direction(s.A, s.B, o.A)
	d4 := direction(s.A, s.B, o.B)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(o.A, o.B, s.A)) ||
		(d2 == 0 && onSegment(o.A, o.B, s.B)) ||
		(d3 == 0 && onSegment(s.A, s.B, o.A)) ||
		(d4 == 0 && onSegment(s.A, s.B, o.B))
}

func direction(a, b, p Vec) int64 {
	return b.Sub(a).Cross(p.Sub(a))
}

func onSegment(a, b, p Vec) bool {
	return min64(a.X, b.X) <= p.X && p.X <= max64(a.X, b.X) &&
		min64(a.Y, b.Y) <= p.Y && p.Y <= max64(a.Y, b.Y)
}

// IntersectionPoint returns a crossing point of the two segments. Valid
// only when Intersects already reported true; for collinear overlap it
// returns an endpoint inside the overlap.
func (s Seg) IntersectionPoint(o Seg) Vec {
	d := s.B.Sub(s.A)
	e := o.B.Sub(o.A)
	denom := d.Cross(e)

	if denom == 0 {
		// Collinear or parallel touch: pick an endpoint lying on the other
		// segment, checked in a fixed order for determinism.
		for _, p := range []Vec{s.A, s.B, o.A, o.B} {
			if o.SquaredDistanceToPoint(p) == 0 && s.SquaredDistanceToPoint(p) == 0 {
				return p
			}
		}
		return s.A
	}

	t := float64(o.A.Sub(s.A).Cross(e)) / float64(denom)
	return Vec{
		X: s.A.X + int64(math.Round(t*float64(d.X))),
		Y: s.A.Y + int64(math.Round(t*float64(d.Y))),
	}
}

// SquaredDistance returns the squared center-line distance between two
// segments. Zero when they intersect. Symmetric in its arguments.
func (s Seg) SquaredDistance(o Seg) int64 {
	d2, _ := s.SquaredDistanceWitness(o)
	return d2
}

// SquaredDistanceWitness returns the squared distance between two segments
// together with the witness point at which the minimum is achieved (the
// midpoint of the shortest connecting segment, or the crossing point when
// the segments intersect). The distance is symmetric; the witness is
// deterministic for a given argument order.
func (s Seg) SquaredDistanceWitness(o Seg) (int64, Vec) {
	if s.Intersects(o) {
		return 0, s.IntersectionPoint(o)
	}

	best := int64(math.MaxInt64)
	var from, to Vec

	check := func(p Vec, seg Seg) {
		q := seg.NearestPoint(p)
		if d2 := q.SquaredDistance(p); d2 < best {
			best = d2
			from, to = p, q
		}
	}

	check(s.A, o)
	check(s.B, o)
	check(o.A, s)
	check(o.B, s)

	return best, from.Mid(to)
}

// WidthsCollide reports whether two segments of the given widths come
// closer than clearance, and returns the squared center distance and the
// witness point. Widths and clearance are center-expansion values: the
// collision threshold is clearance + (widthA+widthB)/2.
func (s Seg) WidthsCollide(o Seg, widthA, widthB, clearance int64) (bool, int64, Vec) {
	allowed := clearance + (widthA+widthB)/2
	d2, witness := s.SquaredDistanceWitness(o)
	return d2 < Square(allowed), d2, witness
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
