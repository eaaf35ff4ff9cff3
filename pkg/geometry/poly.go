package geometry

import "math"

// Polygon is a closed ring of vertices; the edge from the last vertex back
// to the first is implicit.
type Polygon []Vec

// Segments returns the boundary edges of the ring.
func (p Polygon) Segments() []Seg {
	if len(p) < 2 {
		return nil
	}
	segs := make([]Seg, 0, len(p))
	for i := range p {
		segs = append(segs, Seg{A: p[i], B: p[(i+1)%len(p)]})
	}
	return segs
}

// BoundingRect returns the ring's bounding rectangle.
func (p Polygon) BoundingRect() Rect {
	r := NewRect()
	for _, v := range p {
		r.Expand(v)
	}
	return r
}

// Contains reports whether pt lies inside the ring or on its boundary.
func (p Polygon) Contains(pt Vec) bool {
	if len(p) < 3 {
		return false
	}

	// Boundary counts as contained: separation zero semantics.
	for _, s := range p.Segments() {
		if s.SquaredDistanceToPoint(pt) == 0 {
			return true
		}
	}

	// Even-odd ray cast toward +X.
	inside := false
	for i := range p {
		a := p[i]
		b := p[(i+1)%len(p)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			// x coordinate where the edge crosses the ray
			x := float64(a.X) + float64(pt.Y-a.Y)/float64(b.Y-a.Y)*float64(b.X-a.X)
			if float64(pt.X) < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Decolinearized returns a copy of the ring with colinear corners removed.
// Zone outlines are stored with redundant vertices where fills abut the
// board edge; dropping them keeps the smoothed outline minimal and the
// vertex-containment test meaningful.
func (p Polygon) Decolinearized() Polygon {
	if len(p) < 3 {
		return append(Polygon(nil), p...)
	}
	out := make(Polygon, 0, len(p))
	for i := range p {
		prev := p[(i+len(p)-1)%len(p)]
		cur := p[i]
		next := p[(i+1)%len(p)]
		if next.Sub(cur).Cross(cur.Sub(prev)) != 0 {
			out = append(out, cur)
		}
	}
	if len(out) < 3 {
		// Fully degenerate ring; keep the original so callers still see it.
		return append(Polygon(nil), p...)
	}
	return out
}

// Outline is one filled region: an outer ring with optional holes.
type Outline struct {
	Ring  Polygon
	Holes []Polygon
}

// PolySet is a set of filled regions, mirroring the shape KiCad uses for
// zone fills, pad shapes and courtyards.
type PolySet struct {
	Outlines []Outline
}

// PolySetFromRing builds a single-outline PolySet.
func PolySetFromRing(ring Polygon) PolySet {
	return PolySet{Outlines: []Outline{{Ring: ring}}}
}

// IsEmpty reports whether the set has no outlines.
func (ps PolySet) IsEmpty() bool {
	return len(ps.Outlines) == 0
}

// BoundingRect returns the bounding rectangle of all outlines.
func (ps PolySet) BoundingRect() Rect {
	r := NewRect()
	for _, o := range ps.Outlines {
		r.ExpandRect(o.Ring.BoundingRect())
	}
	return r
}

// Vertices returns every vertex of every ring, outline rings first, in
// storage order.
func (ps PolySet) Vertices() []Vec {
	var out []Vec
	for _, o := range ps.Outlines {
		out = append(out, o.Ring...)
		for _, h := range o.Holes {
			out = append(out, h...)
		}
	}
	return out
}

// Segments returns every boundary edge, holes included.
func (ps PolySet) Segments() []Seg {
	var out []Seg
	for _, o := range ps.Outlines {
		out = append(out, o.Ring.Segments()...)
		for _, h := range o.Holes {
			out = append(out, h.Segments()...)
		}
	}
	return out
}

// Contains reports whether pt lies inside the filled region (inside an
// outer ring and not strictly inside one of its holes).
func (ps PolySet) Contains(pt Vec) bool {
	for _, o := range ps.Outlines {
		if !o.Ring.Contains(pt) {
			continue
		}
		inHole := false
		for _, h := range o.Holes {
			onEdge := false
			for _, s := range h.Segments() {
				if s.SquaredDistanceToPoint(pt) == 0 {
					onEdge = true
					break
				}
			}
			if !onEdge && h.Contains(pt) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// SquaredDistanceToPoint returns the squared distance from pt to the
// filled region: zero when pt is inside, otherwise the distance to the
// nearest boundary edge.
func (ps PolySet) SquaredDistanceToPoint(pt Vec) int64 {
	if ps.Contains(pt) {
		return 0
	}
	best := int64(math.MaxInt64)
	for _, s := range ps.Segments() {
		if d2 := s.SquaredDistanceToPoint(pt); d2 < best {
			best = d2
		}
	}
	return best
}

// SquaredDistanceToSeg returns the squared distance from the segment to
// the filled region: zero when the segment crosses or lies inside it.
func (ps PolySet) SquaredDistanceToSeg(seg Seg) int64 {
	if ps.Contains(seg.A) || ps.Contains(seg.B) {
		return 0
	}
	best := int64(math.MaxInt64)
	for _, s := range ps.Segments() {
		d2, _ := s.SquaredDistanceWitness(seg)
		if d2 < best {
			best = d2
			if best == 0 {
				break
			}
		}
	}
	return best
}

// IntersectionWitness reports whether the two filled regions overlap and,
// when they do, returns the first vertex of the overlap: the first vertex
// of ps contained in other, else the first vertex of other contained in
// ps, else the first boundary crossing point. The scan order is fixed, so
// the witness is reproducible.
func (ps PolySet) IntersectionWitness(other PolySet) (Vec, bool) {
	for _, v := range ps.Vertices() {
		if other.Contains(v) {
			return v, true
		}
	}
	for _, v := range other.Vertices() {
		if ps.Contains(v) {
			return v, true
		}
	}
	for _, a := range ps.Segments() {
		for _, b := range other.Segments() {
			if a.Intersects(b) {
				return a.IntersectionPoint(b), true
			}
		}
	}
	return Vec{}, false
}
