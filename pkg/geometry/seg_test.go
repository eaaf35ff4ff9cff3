package geometry

import (
	"testing"
)

func TestSegSquaredDistanceToPoint(t *testing.T) {
	seg := Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 1000, Y: 0}}

	tests := []struct {
		name string
		pt   Vec
		want int64
	}{
		{name: "on segment", pt: Vec{X: 500, Y: 0}, want: 0},
		{name: "at endpoint", pt: Vec{X: 1000, Y: 0}, want: 0},
		{name: "above middle", pt: Vec{X: 500, Y: 300}, want: 90000},
		{name: "beyond end", pt: Vec{X: 1400, Y: 0}, want: 160000},
		{name: "beyond start diagonal", pt: Vec{X: -300, Y: 400}, want: 250000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := seg.SquaredDistanceToPoint(tt.pt); got != tt.want {
				t.Errorf("SquaredDistanceToPoint() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSegSquaredDistanceSymmetric(t *testing.T) {
	tests := []struct {
		name string
		a    Seg
		b    Seg
		want int64
	}{
		{
			name: "parallel horizontal",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 1000, Y: 0}},
			b:    Seg{A: Vec{X: 0, Y: 500}, B: Vec{X: 1000, Y: 500}},
			want: 250000,
		},
		{
			name: "crossing",
			a:    Seg{A: Vec{X: -500, Y: 0}, B: Vec{X: 500, Y: 0}},
			b:    Seg{A: Vec{X: 0, Y: -500}, B: Vec{X: 0, Y: 500}},
			want: 0,
		},
		{
			name: "touching endpoints",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 1000, Y: 0}},
			b:    Seg{A: Vec{X: 1000, Y: 0}, B: Vec{X: 2000, Y: 500}},
			want: 0,
		},
		{
			name: "diagonal offset",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 1000, Y: 0}},
			b:    Seg{A: Vec{X: 2000, Y: 0}, B: Vec{X: 3000, Y: 0}},
			want: 1000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := tt.a.SquaredDistance(tt.b)
			ba := tt.b.SquaredDistance(tt.a)

			if ab != tt.want {
				t.Errorf("SquaredDistance(a,b) = %d, want %d", ab, tt.want)
			}
			if ab != ba {
				t.Errorf("distance not symmetric: a->b = %d, b->a = %d", ab, ba)
			}
		})
	}
}

func TestSegWitnessOnCrossing(t *testing.T) {
	a := Seg{A: Vec{X: -1000, Y: 0}, B: Vec{X: 1000, Y: 0}}
	b := Seg{A: Vec{X: 0, Y: -1000}, B: Vec{X: 0, Y: 1000}}

	d2, witness := a.SquaredDistanceWitness(b)
	if d2 != 0 {
		t.Fatalf("SquaredDistanceWitness() distance = %d, want 0", d2)
	}
	if witness != (Vec{X: 0, Y: 0}) {
		t.Errorf("witness = %+v, want origin", witness)
	}
}

func TestSegWidthsCollide(t *testing.T) {
	a := Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 10000, Y: 0}}
	b := Seg{A: Vec{X: 0, Y: 3000}, B: Vec{X: 10000, Y: 3000}}

	// Center distance 3000; widths 1000 each leave 2000 of air.
	if hit, _, _ := a.WidthsCollide(b, 1000, 1000, 1999); hit {
		t.Errorf("WidthsCollide() = true below threshold, want false")
	}
	if hit, _, _ := a.WidthsCollide(b, 1000, 1000, 2001); !hit {
		t.Errorf("WidthsCollide() = false above threshold, want true")
	}
}

func TestSegIntersects(t *testing.T) {
	tests := []struct {
		name string
		a    Seg
		b    Seg
		want bool
	}{
		{
			name: "plain crossing",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 10, Y: 10}},
			b:    Seg{A: Vec{X: 0, Y: 10}, B: Vec{X: 10, Y: 0}},
			want: true,
		},
		{
			name: "collinear overlap",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 10, Y: 0}},
			b:    Seg{A: Vec{X: 5, Y: 0}, B: Vec{X: 15, Y: 0}},
			want: true,
		},
		{
			name: "collinear disjoint",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 10, Y: 0}},
			b:    Seg{A: Vec{X: 20, Y: 0}, B: Vec{X: 30, Y: 0}},
			want: false,
		},
		{
			name: "near miss",
			a:    Seg{A: Vec{X: 0, Y: 0}, B: Vec{X: 10, Y: 0}},
			b:    Seg{A: Vec{X: 0, Y: 1}, B: Vec{X: 10, Y: 1}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}
