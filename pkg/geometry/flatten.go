package geometry

import "math"

// Curve flattening. Segment counts depend only on the curve parameters
// and the caller's tolerance, so flattening identical inputs always
// yields identical polylines.

// minFlattenTol keeps the chord-error formula stable for zero or
// degenerate tolerances (1 micron).
const minFlattenTol = 1000

// arcSegmentCount returns the number of chords needed to keep the chord
// error of an arc of the given radius below tol over sweep degrees.
func arcSegmentCount(radius, tol int64, sweepDeg float64) int {
	if tol < minFlattenTol {
		tol = minFlattenTol
	}
	if radius <= tol {
		return 1
	}
	// Chord error e = r(1 - cos(θ/2)) per chord of angle θ.
	step := 2 * math.Acos(1-float64(tol)/float64(radius))
	n := int(math.Ceil(math.Abs(sweepDeg) * math.Pi / 180.0 / step))
	if n < 1 {
		n = 1
	}
	return n
}

// CircleToSegments flattens a full circle to a closed polyline.
func CircleToSegments(center Vec, radius, tol int64) []Seg {
	n := arcSegmentCount(radius, tol, 360)
	if n < 8 {
		n = 8
	}

	pts := make([]Vec, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Vec{
			X: center.X + int64(math.Round(float64(radius)*math.Cos(a))),
			Y: center.Y + int64(math.Round(float64(radius)*math.Sin(a))),
		}
	}

	segs := make([]Seg, n)
	for i := 0; i < n; i++ {
		segs[i] = Seg{A: pts[i], B: pts[(i+1)%n]}
	}
	return segs
}

// CirclePolygon flattens a full circle to a closed ring.
func CirclePolygon(center Vec, radius, tol int64) Polygon {
	segs := CircleToSegments(center, radius, tol)
	ring := make(Polygon, len(segs))
	for i, s := range segs {
		ring[i] = s.A
	}
	return ring
}

// ArcCenter computes the center of the circle through three points.
// Returns false when the points are colinear.
func ArcCenter(start, mid, end Vec) (Vec, bool) {
	ax, ay := float64(start.X), float64(start.Y)
	bx, by := float64(mid.X), float64(mid.Y)
	cx, cy := float64(end.X), float64(end.Y)

	d := 2 * (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by))
	if d == 0 {
		return Vec{}, false
	}

	ux := ((ax*ax+ay*ay)*(by-cy) + (bx*bx+by*by)*(cy-ay) + (cx*cx+cy*cy)*(ay-by)) / d
	uy := ((ax*ax+ay*ay)*(cx-bx) + (bx*bx+by*by)*(ax-cx) + (cx*cx+cy*cy)*(bx-ax)) / d

	return Vec{X: int64(math.Round(ux)), Y: int64(math.Round(uy))}, true
}

// ArcToSegments flattens a three-point arc (start, mid on arc, end) to a
// polyline. Colinear inputs degenerate to the single start-end chord.
func ArcToSegments(start, mid, end Vec, tol int64) []Seg {
	center, ok := ArcCenter(start, mid, end)
	if !ok {
		return []Seg{{A: start, B: end}}
	}

	radius := int64(math.Round(start.Sub(center).Length()))

	a0 := math.Atan2(float64(start.Y-center.Y), float64(start.X-center.X))
	am := math.Atan2(float64(mid.Y-center.Y), float64(mid.X-center.X))
	a1 := math.Atan2(float64(end.Y-center.Y), float64(end.X-center.X))

	// Choose the sweep direction that passes through the mid point.
	ccwSweep := normalizeAngle(a1 - a0)
	ccwMid := normalizeAngle(am - a0)
	sweep := ccwSweep
	if ccwMid > ccwSweep {
		sweep = ccwSweep - 2*math.Pi
	}

	n := arcSegmentCount(radius, tol, sweep*180/math.Pi)

	pts := make([]Vec, 0, n+1)
	pts = append(pts, start)
	for i := 1; i < n; i++ {
		a := a0 + sweep*float64(i)/float64(n)
		pts = append(pts, Vec{
			X: center.X + int64(math.Round(float64(radius)*math.Cos(a))),
			Y: center.Y + int64(math.Round(float64(radius)*math.Sin(a))),
		})
	}
	pts = append(pts, end)

	segs := make([]Seg, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		segs = append(segs, Seg{A: pts[i], B: pts[i+1]})
	}
	return segs
}

// normalizeAngle maps an angle to [0, 2π).
func normalizeAngle(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// BezierToSegments flattens a cubic Bezier to a polyline. Subdivision is
// recursive on control-point flatness against tol, with a fixed depth cap.
func BezierToSegments(p0, p1, p2, p3 Vec, tol int64) []Seg {
	if tol < minFlattenTol {
		tol = minFlattenTol
	}

	var pts []Vec
	pts = append(pts, p0)
	subdivideBezier(p0, p1, p2, p3, tol, 0, &pts)
	pts = append(pts, p3)

	segs := make([]Seg, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		if pts[i] != pts[i+1] {
			segs = append(segs, Seg{A: pts[i], B: pts[i+1]})
		}
	}
	return segs
}

const maxBezierDepth = 16

func subdivideBezier(p0, p1, p2, p3 Vec, tol int64, depth int, pts *[]Vec) {
	// Flat enough when both control points are within tol of the chord.
	chord := Seg{A: p0, B: p3}
	if depth >= maxBezierDepth ||
		(chord.SquaredDistanceToPoint(p1) <= Square(tol) &&
			chord.SquaredDistanceToPoint(p2) <= Square(tol)) {
		return
	}

	// de Casteljau split at t = 1/2
	p01 := p0.Mid(p1)
	p12 := p1.Mid(p2)
	p23 := p2.Mid(p3)
	p012 := p01.Mid(p12)
	p123 := p12.Mid(p23)
	mid := p012.Mid(p123)

	subdivideBezier(p0, p01, p012, mid, tol, depth+1, pts)
	*pts = append(*pts, mid)
	subdivideBezier(mid, p123, p23, p3, tol, depth+1, pts)
}
