package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// testPadToPad runs the sorted-scan pad clearance test. Pads are sorted
// by (x, y); for each reference pad the scan stops once a candidate's x
// exceeds refPad.x + clearance + refPad radius + the largest bounding
// radius on the board. That bound is exact: no later candidate can be
// closer.
func (rc *runContext) testPadToPad() {
	pads := rc.brd.SortedPads()
	if len(pads) < 2 {
		return
	}

	maxRadius := int64(0)
	for _, p := range pads {
		if r := p.BoundingRadius(); r > maxRadius {
			maxRadius = r
		}
	}

	for i, ref := range pads {
		clearance, _ := rc.resolver.EffectiveClearance(ref, nil)
		xLimit := ref.Pos.X + clearance + ref.BoundingRadius() + maxRadius

		// Candidates left of the reference were already paired with it.
		rc.checkPadAgainst(ref, pads[i+1:], xLimit)
	}
}

// checkPadAgainst tests one reference pad against the candidates. The
// first violation stops the scan for this reference pad; the caller
// iterates all pads so every offender still gets reported.
func (rc *runContext) checkPadAgainst(ref *board.Pad, candidates []*board.Pad, xLimit int64) {
	allCopper := rc.brd.CopperLayers()

	for _, other := range candidates {
		if other.Pos.X > xLimit {
			return
		}
		if other == ref {
			continue
		}

		// The same net never violates itself. Net 0 is "no net" and
		// does not tie pads together.
		if ref.Net() != 0 && ref.Net() == other.Net() {
			continue
		}

		// Same-footprint pads sharing a number are electrically tied
		// (thermal pads split into several anchors).
		if ref.Parent != nil && ref.Parent == other.Parent && ref.Number == other.Number {
			continue
		}

		if !ref.LayerNames.Overlaps(other.LayerNames) {
			// Layer-disjoint pads only interact through drilled holes.
			if other.HasDrill() {
				if hole := other.HoleAsPad(allCopper); !rc.padClearanceOK(ref, hole, ref, other) {
					return
				}
			}
			if ref.HasDrill() {
				if hole := ref.HoleAsPad(allCopper); !rc.padClearanceOK(hole, other, ref, other) {
					return
				}
			}
			continue
		}

		if !rc.padClearanceOK(ref, other, ref, other) {
			return
		}
	}
}

// padClearanceOK measures the copper separation of a pad pair and emits
// a violation when it is below the resolved clearance. a and b carry
// the geometry; blameA and blameB are the board pads the violation
// names, so a synthetic hole stand-in never appears in a result.
func (rc *runContext) padClearanceOK(a, b, blameA, blameB *board.Pad) bool {
	// Coincident holes are a legitimate stack (e.g. NPTH reuse): same
	// position, same size and orientation passes.
	if a.HasDrill() && b.HasDrill() && holesCoincide(a, b) {
		return true
	}

	clearance, source := rc.resolver.EffectiveClearance(blameA, blameB)

	pa := a.Polygon(flattenTolerance)
	pb := b.Polygon(flattenTolerance)

	// Bounding-circle prune
	centerDist := a.Pos.SquaredDistance(b.Pos)
	bound := clearance + a.BoundingRadius() + b.BoundingRadius()
	if centerDist > geometry.Square(bound) {
		return true
	}

	minSq := int64(-1)
	for _, s := range pb.Segments() {
		d := pa.SquaredDistanceToSeg(s)
		if minSq < 0 || d < minSq {
			minSq = d
		}
		if minSq == 0 {
			break
		}
	}
	if minSq < 0 {
		return true
	}
	// Full containment leaves no crossing edges.
	if minSq > 0 && (pa.Contains(b.Pos) || pb.Contains(a.Pos)) {
		minSq = 0
	}

	if minSq >= geometry.Square(clearance) {
		return true
	}

	rc.accept(NewViolation(ErrPadNearPad, blameA, blameB, a.Pos.Mid(b.Pos),
		"pads too close (%s %s; actual %s)",
		source, fmtMM(clearance), fmtMM(isqrt(minSq))))
	return false
}

// holesCoincide reports whether two drilled pads share position, drill
// size and, for oblong drills, orientation.
func holesCoincide(a, b *board.Pad) bool {
	if a.Pos != b.Pos {
		return false
	}
	if a.DrillW != b.DrillW || a.DrillH != b.DrillH || a.DrillOblong != b.DrillOblong {
		return false
	}
	if a.DrillOblong && a.Rotation != b.Rotation {
		return false
	}
	return true
}

// isqrt returns the integer square root of a squared distance, for
// reporting actual clearances.
func isqrt(sq int64) int64 {
	if sq <= 0 {
		return 0
	}
	x := int64(1)
	for x*x < sq {
		x <<= 1
	}
	for {
		y := (x + sq/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}
