package geometry

// Rect is an axis-aligned bounding rectangle in nanometers. The zero
// value is an empty rect (Min > Max) that Expand grows from.
type Rect struct {
	Min Vec
	Max Vec
}

// NewRect creates an empty rectangle ready for Expand.
func NewRect() Rect {
	const big = int64(1) << 62
	return Rect{
		Min: Vec{X: big, Y: big},
		Max: Vec{X: -big, Y: -big},
	}
}

// RectAround builds the rectangle covering a center point inflated by
// radius on all sides.
func RectAround(center Vec, radius int64) Rect {
	return Rect{
		Min: Vec{X: center.X - radius, Y: center.Y - radius},
		Max: Vec{X: center.X + radius, Y: center.Y + radius},
	}
}

// IsEmpty reports whether the rectangle covers no area.
func (r Rect) IsEmpty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

// Expand grows the rectangle to include p.
func (r *Rect) Expand(p Vec) {
	if p.X < r.Min.X {
		r.Min.X = p.X
	}
	if p.Y < r.Min.Y {
		r.Min.Y = p.Y
	}
	if p.X > r.Max.X {
		r.Max.X = p.X
	}
	if p.Y > r.Max.Y {
		r.Max.Y = p.Y
	}
}

// ExpandRect grows the rectangle to include another rectangle.
func (r *Rect) ExpandRect(o Rect) {
	if !o.IsEmpty() {
		r.Expand(o.Min)
		r.Expand(o.Max)
	}
}

// Inflate returns the rectangle grown by d on every side.
func (r Rect) Inflate(d int64) Rect {
	return Rect{
		Min: Vec{X: r.Min.X - d, Y: r.Min.Y - d},
		Max: Vec{X: r.Max.X + d, Y: r.Max.Y + d},
	}
}

// Intersects reports whether the two rectangles overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && r.Max.X >= o.Min.X &&
		r.Min.Y <= o.Max.Y && r.Max.Y >= o.Min.Y
}

// Contains reports whether p lies inside or on the rectangle.
func (r Rect) Contains(p Vec) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Center returns the rectangle's center point.
func (r Rect) Center() Vec {
	return r.Min.Mid(r.Max)
}

// CollidesSeg reports whether the segment comes within clearance of the
// rectangle. Used as the cheap prune before exact shape tests.
func (r Rect) CollidesSeg(s Seg, clearance int64) bool {
	grown := r.Inflate(clearance)

	if grown.Contains(s.A) || grown.Contains(s.B) {
		return true
	}

	corners := [4]Vec{
		grown.Min,
		{X: grown.Max.X, Y: grown.Min.Y},
		grown.Max,
		{X: grown.Min.X, Y: grown.Max.Y},
	}
	for i := range corners {
		edge := Seg{A: corners[i], B: corners[(i+1)%4]}
		if s.Intersects(edge) {
			return true
		}
	}
	return false
}
