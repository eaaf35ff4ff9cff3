package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// drilledHole is one hole on the board, from a pad or a via.
type drilledHole struct {
	item   board.Item
	pos    geometry.Vec
	radius int64 // largest drill half-extent
}

// testDrilledHoles enforces the hole-to-hole minimum between every pair
// of drilled features. Holes are compared edge to edge: center distance
// minus both radii.
func (rc *runContext) testDrilledHoles() {
	min := rc.brd.Settings.HoleToHoleMin
	if min <= 0 {
		return
	}

	var holes []drilledHole
	for _, p := range rc.brd.AllPads() {
		if !p.HasDrill() {
			continue
		}
		r := p.DrillW
		if p.DrillH > r {
			r = p.DrillH
		}
		holes = append(holes, drilledHole{item: p, pos: p.Pos, radius: r / 2})
	}
	for _, v := range rc.brd.Vias {
		if v.Drill <= 0 {
			continue
		}
		holes = append(holes, drilledHole{item: v, pos: v.Pos, radius: v.Drill / 2})
	}

	for i, a := range holes {
		for _, b := range holes[i+1:] {
			// Coincident holes are the same physical drill.
			if a.pos == b.pos {
				continue
			}
			limit := min + a.radius + b.radius
			dSq := a.pos.SquaredDistance(b.pos)
			if dSq >= geometry.Square(limit) {
				continue
			}
			actual := clamp0(isqrt(dSq) - a.radius - b.radius)
			rc.accept(NewViolation(ErrDrilledHolesTooClose, a.item, b.item, a.pos.Mid(b.pos),
				"drilled holes too close (board minimum %s; actual %s)",
				fmtMM(min), fmtMM(actual)))
		}
	}
}
