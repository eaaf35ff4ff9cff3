package geometry

import (
	"testing"
)

func square(cx, cy, half int64) Polygon {
	return Polygon{
		{X: cx - half, Y: cy - half},
		{X: cx + half, Y: cy - half},
		{X: cx + half, Y: cy + half},
		{X: cx - half, Y: cy + half},
	}
}

func TestPolygonContains(t *testing.T) {
	ring := square(0, 0, 1000)

	tests := []struct {
		name string
		pt   Vec
		want bool
	}{
		{name: "center", pt: Vec{X: 0, Y: 0}, want: true},
		{name: "on edge", pt: Vec{X: 1000, Y: 0}, want: true},
		{name: "on corner", pt: Vec{X: 1000, Y: 1000}, want: true},
		{name: "outside right", pt: Vec{X: 1001, Y: 0}, want: false},
		{name: "far away", pt: Vec{X: 50000, Y: 50000}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ring.Contains(tt.pt); got != tt.want {
				t.Errorf("Contains(%+v) = %v, want %v", tt.pt, got, tt.want)
			}
		})
	}
}

func TestPolySetContainsWithHole(t *testing.T) {
	ps := PolySet{Outlines: []Outline{{
		Ring:  square(0, 0, 2000),
		Holes: []Polygon{square(0, 0, 500)},
	}}}

	if !ps.Contains(Vec{X: 1000, Y: 0}) {
		t.Errorf("point in ring outside hole reported as not contained")
	}
	if ps.Contains(Vec{X: 0, Y: 0}) {
		t.Errorf("point inside hole reported as contained")
	}
	// Hole boundary still belongs to the copper
	if !ps.Contains(Vec{X: 500, Y: 0}) {
		t.Errorf("point on hole boundary reported as not contained")
	}
}

func TestPolySetSquaredDistanceToSeg(t *testing.T) {
	ps := PolySetFromRing(square(0, 0, 1000))

	tests := []struct {
		name string
		seg  Seg
		want int64
	}{
		{
			name: "crossing the region",
			seg:  Seg{A: Vec{X: -3000, Y: 0}, B: Vec{X: 3000, Y: 0}},
			want: 0,
		},
		{
			name: "fully inside",
			seg:  Seg{A: Vec{X: -200, Y: 0}, B: Vec{X: 200, Y: 0}},
			want: 0,
		},
		{
			name: "outside parallel to edge",
			seg:  Seg{A: Vec{X: -1000, Y: 1800}, B: Vec{X: 1000, Y: 1800}},
			want: 640000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ps.SquaredDistanceToSeg(tt.seg); got != tt.want {
				t.Errorf("SquaredDistanceToSeg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolySetIntersectionWitness(t *testing.T) {
	a := PolySetFromRing(square(0, 0, 1000))

	t.Run("overlapping squares", func(t *testing.T) {
		b := PolySetFromRing(square(1500, 0, 1000))

		pt, hit := a.IntersectionWitness(b)
		if !hit {
			t.Fatalf("IntersectionWitness() = false for overlapping regions")
		}
		// The witness is the first vertex of a inside b.
		if !b.Contains(pt) || !a.Contains(pt) {
			t.Errorf("witness %+v not inside both regions", pt)
		}
	})

	t.Run("disjoint squares", func(t *testing.T) {
		b := PolySetFromRing(square(5000, 5000, 1000))

		if _, hit := a.IntersectionWitness(b); hit {
			t.Errorf("IntersectionWitness() = true for disjoint regions")
		}
	})

	t.Run("containment without vertex inside", func(t *testing.T) {
		// Small square fully inside the big one: its vertices are inside.
		b := PolySetFromRing(square(0, 0, 200))

		if _, hit := a.IntersectionWitness(b); !hit {
			t.Errorf("IntersectionWitness() = false for contained region")
		}
	})
}

func TestDecolinearized(t *testing.T) {
	ring := Polygon{
		{X: 0, Y: 0},
		{X: 500, Y: 0}, // colinear with neighbors
		{X: 1000, Y: 0},
		{X: 1000, Y: 1000},
		{X: 0, Y: 1000},
	}

	got := ring.Decolinearized()
	if len(got) != 4 {
		t.Fatalf("Decolinearized() kept %d vertices, want 4", len(got))
	}
	for _, v := range got {
		if v == (Vec{X: 500, Y: 0}) {
			t.Errorf("colinear vertex survived: %+v", v)
		}
	}
}

func TestCircleFlatteningDeterministic(t *testing.T) {
	center := Vec{X: 1000, Y: 2000}

	a := CircleToSegments(center, 500000, 5000)
	b := CircleToSegments(center, 500000, 5000)

	if len(a) != len(b) {
		t.Fatalf("flattening not deterministic: %d vs %d segments", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("segment %d differs between identical flattenings", i)
		}
	}

	// A tighter tolerance must not produce fewer segments.
	tight := CircleToSegments(center, 500000, 500)
	if len(tight) < len(a) {
		t.Errorf("tolerance 500 produced %d segments, coarser 5000 produced %d", len(tight), len(a))
	}
}

func TestArcToSegmentsEndpoints(t *testing.T) {
	start := Vec{X: 1000, Y: 0}
	mid := Vec{X: 0, Y: 1000}
	end := Vec{X: -1000, Y: 0}

	segs := ArcToSegments(start, mid, end, 2000)
	if len(segs) == 0 {
		t.Fatalf("ArcToSegments() returned no segments")
	}
	if segs[0].A != start {
		t.Errorf("first segment starts at %+v, want %+v", segs[0].A, start)
	}
	if segs[len(segs)-1].B != end {
		t.Errorf("last segment ends at %+v, want %+v", segs[len(segs)-1].B, end)
	}

	// Every interior vertex stays within tolerance of the unit circle.
	for _, s := range segs {
		r := s.A.Sub(Vec{}).Length()
		if r < 995 || r > 1005 {
			t.Errorf("arc vertex radius %f outside tolerance band", r)
		}
	}
}

func TestBezierToSegments(t *testing.T) {
	p0 := Vec{X: 0, Y: 0}
	p1 := Vec{X: 0, Y: 100000}
	p2 := Vec{X: 100000, Y: 100000}
	p3 := Vec{X: 100000, Y: 0}

	segs := BezierToSegments(p0, p1, p2, p3, 2000)
	if len(segs) < 2 {
		t.Fatalf("BezierToSegments() returned %d segments, want a real polyline", len(segs))
	}
	if segs[0].A != p0 {
		t.Errorf("polyline starts at %+v, want %+v", segs[0].A, p0)
	}
	if segs[len(segs)-1].B != p3 {
		t.Errorf("polyline ends at %+v, want %+v", segs[len(segs)-1].B, p3)
	}

	// Determinism: identical inputs, identical polyline.
	again := BezierToSegments(p0, p1, p2, p3, 2000)
	if len(again) != len(segs) {
		t.Fatalf("bezier flattening not deterministic")
	}
}
