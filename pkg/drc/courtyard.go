package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// courtyardInfo caches one footprint's assembled courtyard for the
// pairwise overlap scan.
type courtyardInfo struct {
	fp      *board.Footprint
	front   geometry.PolySet
	back    geometry.PolySet
	frontBB geometry.Rect
	backBB  geometry.Rect
}

// testCourtyards reports missing and malformed courtyards, overlapping
// courtyards of footprint pairs, and through-hole pads landing inside
// another footprint's courtyard.
func (rc *runContext) testCourtyards() {
	infos := make([]*courtyardInfo, 0, len(rc.brd.Footprints))

	for _, fp := range rc.brd.Footprints {
		info := &courtyardInfo{fp: fp}
		malformed := false

		front, err := fp.CourtyardOn(board.LayerFrontCourtyard, flattenTolerance)
		if err != nil {
			malformed = true
		} else {
			info.front = front
		}
		back, err := fp.CourtyardOn(board.LayerBackCourtyard, flattenTolerance)
		if err != nil {
			malformed = true
		} else {
			info.back = back
		}

		if malformed {
			rc.accept(NewViolation(ErrMalformedCourtyard, fp, nil, fp.Pos,
				"footprint '%s' has a malformed courtyard outline", fp.Reference))
			continue
		}
		if info.front.IsEmpty() && info.back.IsEmpty() {
			rc.accept(NewViolation(ErrMissingCourtyard, fp, nil, fp.Pos,
				"footprint '%s' has no courtyard", fp.Reference))
			continue
		}

		info.frontBB = info.front.BoundingRect()
		info.backBB = info.back.BoundingRect()
		infos = append(infos, info)
	}

	for i, a := range infos {
		for _, b := range infos[i+1:] {
			rc.testCourtyardPair(a, b)
		}
	}

	rc.testPadsInCourtyards(infos)
}

// testCourtyardPair checks front-against-front and back-against-back.
func (rc *runContext) testCourtyardPair(a, b *courtyardInfo) {
	if !a.front.IsEmpty() && !b.front.IsEmpty() && a.frontBB.Intersects(b.frontBB) {
		if at, ok := a.front.IntersectionWitness(b.front); ok {
			rc.accept(NewViolation(ErrCourtyardsOverlap, a.fp, b.fp, at,
				"courtyards of '%s' and '%s' overlap", a.fp.Reference, b.fp.Reference))
		}
	}
	if !a.back.IsEmpty() && !b.back.IsEmpty() && a.backBB.Intersects(b.backBB) {
		if at, ok := a.back.IntersectionWitness(b.back); ok {
			rc.accept(NewViolation(ErrCourtyardsOverlap, a.fp, b.fp, at,
				"courtyards of '%s' and '%s' overlap", a.fp.Reference, b.fp.Reference))
		}
	}
}

// testPadsInCourtyards flags drilled pads of one footprint landing
// inside another footprint's courtyard. A hole through a neighbor's
// courtyard blocks assembly even when copper clearances pass.
func (rc *runContext) testPadsInCourtyards(infos []*courtyardInfo) {
	for _, info := range infos {
		for _, other := range rc.brd.Footprints {
			if other == info.fp {
				continue
			}
			for _, p := range other.Pads {
				if !p.HasDrill() {
					continue
				}
				kind := ErrPTHInCourtyard
				if p.Type == "np_thru_hole" {
					kind = ErrNPTHInCourtyard
				}
				if !info.front.IsEmpty() && info.frontBB.Contains(p.Pos) && info.front.Contains(p.Pos) {
					rc.accept(NewViolation(kind, p, info.fp, p.Pos,
						"hole of pad '%s' inside courtyard of '%s'", p.Number, info.fp.Reference))
					continue
				}
				if !info.back.IsEmpty() && info.backBB.Contains(p.Pos) && info.back.Contains(p.Pos) {
					rc.accept(NewViolation(kind, p, info.fp, p.Pos,
						"hole of pad '%s' inside courtyard of '%s'", p.Number, info.fp.Reference))
				}
			}
		}
	}
}
