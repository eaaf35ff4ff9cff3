package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// keepoutPairClearance is the nominal clearance between two keepout
// outlines: touching is the only failure.
const keepoutPairClearance = 1

// zoneOutline returns the smoothed outline of a zone, computed once per
// run. Smoothing drops colinear corners so segment pairing does not
// duplicate witness points along straight edges.
func (rc *runContext) zoneOutline(z *board.Zone) geometry.PolySet {
	if rc.zoneOutlines == nil {
		rc.zoneOutlines = make(map[*board.Zone]geometry.PolySet)
	}
	if ps, ok := rc.zoneOutlines[z]; ok {
		return ps
	}
	ps := geometry.PolySetFromRing(z.Outline.Decolinearized())
	rc.zoneOutlines[z] = ps
	return ps
}

// testZones runs zone-to-zone separation and the dead-net check.
func (rc *runContext) testZones() {
	zones := rc.brd.AllZones()

	for _, z := range zones {
		if !z.Keepout && z.IsOnCopperLayer() && rc.zoneNetIsDead(z) {
			rc.accept(NewViolation(ErrZoneHasEmptyNet, z, nil, zoneAnchor(z),
				"zone net '%s' has no pads", z.NetName))
		}
	}

	for i, a := range zones {
		for _, b := range zones[i+1:] {
			rc.testZonePair(a, b)
		}
	}
}

// zoneNetIsDead reports a copper zone assigned to a net with no pads.
func (rc *runContext) zoneNetIsDead(z *board.Zone) bool {
	if z.NetCode < 0 {
		return true
	}
	if z.NetCode == 0 {
		return false // intentionally unassigned pour
	}
	return rc.conn.PadCountForNet(z.NetCode) == 0
}

func zoneAnchor(z *board.Zone) geometry.Vec {
	if len(z.Outline) > 0 {
		return z.Outline[0]
	}
	return geometry.Vec{}
}

// testZonePair applies the skip rules, then corner containment in both
// directions, then boundary segment separation with per-witness-point
// minimum dedup.
func (rc *runContext) testZonePair(a, b *board.Zone) {
	if a == b {
		return
	}
	if a.Layer != b.Layer {
		return
	}
	if a.NetCode > 0 && a.NetCode == b.NetCode {
		return
	}
	if a.Priority != b.Priority {
		return
	}
	if a.Keepout != b.Keepout {
		return
	}

	outA := rc.zoneOutline(a)
	outB := rc.zoneOutline(b)
	if outA.IsEmpty() || outB.IsEmpty() {
		return
	}

	clearance := int64(keepoutPairClearance)
	source := "keepout"
	if !a.Keepout {
		clearance, source = rc.resolver.EffectiveClearance(a, b)
	}

	// Corners of one zone inside the other are hard intersections.
	for _, corner := range outA.Vertices() {
		if outB.Contains(corner) {
			rc.accept(NewViolation(ErrZonesIntersect, a, b, corner,
				"zone corner inside zone '%s'", b.NetName))
		}
	}
	for _, corner := range outB.Vertices() {
		if outA.Contains(corner) {
			rc.accept(NewViolation(ErrZonesIntersect, b, a, corner,
				"zone corner inside zone '%s'", a.NetName))
		}
	}

	// Boundary separation: keep the minimum observed separation per
	// witness point so crossing outlines report once per crossing.
	type conflict struct {
		sep      int64
		crossing bool
	}
	conflicts := make(map[geometry.Vec]conflict)

	var order []geometry.Vec
	for _, sa := range outA.Segments() {
		for _, sb := range outB.Segments() {
			if sa.Intersects(sb) {
				pt := sa.IntersectionPoint(sb)
				if c, seen := conflicts[pt]; !seen || c.sep > 0 {
					if !seen {
						order = append(order, pt)
					}
					conflicts[pt] = conflict{sep: 0, crossing: true}
				}
				continue
			}
			dSq, witness := sa.SquaredDistanceWitness(sb)
			if dSq >= geometry.Square(clearance) {
				continue
			}
			sep := isqrt(dSq)
			if c, seen := conflicts[witness]; !seen || sep < c.sep {
				if !seen {
					order = append(order, witness)
				}
				conflicts[witness] = conflict{sep: sep}
			}
		}
	}

	for _, pt := range order {
		c := conflicts[pt]
		if c.crossing || c.sep <= 0 {
			rc.accept(NewViolation(ErrZonesIntersect, a, b, pt, "zone outlines intersect"))
		} else {
			rc.accept(NewViolation(ErrZonesTooClose, a, b, pt,
				"zones too close (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(c.sep)))
		}
	}
}
