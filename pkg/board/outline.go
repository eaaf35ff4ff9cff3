package board

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// chainSnap is the endpoint matching distance when chaining outline
// segments into rings (10 µm, generous against rounding in exports).
const chainSnap = int64(10000)

// ChainRings assembles unordered outline segments into closed rings by
// matching endpoints. Returns an error naming the break point when a
// chain cannot be closed.
func ChainRings(segs []geometry.Seg) ([]geometry.Polygon, error) {
	remaining := make([]geometry.Seg, 0, len(segs))
	for _, s := range segs {
		if s.A != s.B {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == 0 {
		return nil, nil
	}

	snap2 := geometry.Square(chainSnap)
	var rings []geometry.Polygon

	for len(remaining) > 0 {
		// Start a new chain from the first unused segment.
		cur := remaining[0]
		remaining = remaining[1:]
		ring := geometry.Polygon{cur.A, cur.B}
		head := cur.A
		tail := cur.B

		for {
			if tail.SquaredDistance(head) <= snap2 && len(ring) > 2 {
				// Closed: drop the duplicated closing vertex.
				rings = append(rings, ring[:len(ring)-1])
				break
			}

			found := -1
			flip := false
			for i, s := range remaining {
				if s.A.SquaredDistance(tail) <= snap2 {
					found = i
					break
				}
				if s.B.SquaredDistance(tail) <= snap2 {
					found = i
					flip = true
					break
				}
			}
			if found < 0 {
				return nil, fmt.Errorf("outline not closed near (%.3f, %.3f) mm",
					geometry.ToMM(tail.X), geometry.ToMM(tail.Y))
			}

			next := remaining[found]
			remaining = append(remaining[:found], remaining[found+1:]...)
			if flip {
				next.A, next.B = next.B, next.A
			}
			ring = append(ring, next.B)
			tail = next.B
		}
	}

	return rings, nil
}

// Courtyard builds the footprint's courtyard outline for its own side.
// Returns an empty set when the footprint has no courtyard graphics, and
// an error when the courtyard exists but does not form closed rings.
func (fp *Footprint) Courtyard(tol int64) (geometry.PolySet, error) {
	return fp.CourtyardOn(fp.CourtyardLayer(), tol)
}

// CourtyardOn builds the courtyard rings drawn on one specific
// courtyard layer.
func (fp *Footprint) CourtyardOn(layer string, tol int64) (geometry.PolySet, error) {
	var segs []geometry.Seg
	for _, g := range fp.Graphics {
		if g.Layer == layer {
			segs = append(segs, g.ToSegments(tol)...)
		}
	}
	if len(segs) == 0 {
		return geometry.PolySet{}, nil
	}

	rings, err := ChainRings(segs)
	if err != nil {
		return geometry.PolySet{}, fmt.Errorf("courtyard of %s: %w", fp.Reference, err)
	}

	ps := geometry.PolySet{}
	for _, r := range rings {
		ps.Outlines = append(ps.Outlines, geometry.Outline{Ring: r})
	}
	return ps, nil
}
