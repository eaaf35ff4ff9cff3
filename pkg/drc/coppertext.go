package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// copperItem is a text or graphic flattened to stroke segments on a
// copper layer.
type copperItem struct {
	item  board.Item
	layer string
	width int64 // stroke pen width
	segs  []geometry.Seg
	bbox  geometry.Rect
}

// testCopperTextAndGraphics checks tracks, vias and pads against text
// and graphic strokes placed on copper layers. Items flatten once; the
// bounding box gives the fast rejection path.
func (rc *runContext) testCopperTextAndGraphics() {
	items := rc.collectCopperStrokes()
	if len(items) == 0 {
		return
	}

	for _, ci := range items {
		rc.testCopperStrokes(ci)
	}
}

func (rc *runContext) collectCopperStrokes() []*copperItem {
	var out []*copperItem

	add := func(it board.Item, layer string, width int64) {
		if !board.IsCopperLayerName(layer) {
			return
		}
		segs := it.ToSegments(flattenTolerance)
		if len(segs) == 0 {
			return
		}
		bbox := geometry.NewRect()
		for _, s := range segs {
			bbox.Expand(s.A)
			bbox.Expand(s.B)
		}
		out = append(out, &copperItem{item: it, layer: layer, width: width, segs: segs, bbox: bbox})
	}

	for _, t := range rc.brd.AllTexts() {
		if !t.Visible {
			continue
		}
		add(t, t.Layer, t.PenWidth())
	}
	for _, g := range rc.brd.Graphics {
		add(g, g.Layer, g.Width)
	}
	for _, fp := range rc.brd.Footprints {
		for _, g := range fp.Graphics {
			add(g, g.Layer, g.Width)
		}
	}
	return out
}

// testCopperStrokes pairs one flattened item with all copper features on
// its layer.
func (rc *runContext) testCopperStrokes(ci *copperItem) {
	half := ci.width / 2

	for _, t := range rc.brd.Tracks {
		if t.Layer != ci.layer {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(t, ci.item)
		allowed := clearance + half + t.Width/2
		seg := t.Seg()
		if !ci.bbox.CollidesSeg(seg, allowed) {
			continue
		}
		if dSq, ok := minSegDistance(ci.segs, seg); ok && dSq < geometry.Square(allowed) {
			actual := clamp0(isqrt(dSq) - half - t.Width/2)
			rc.accept(NewViolation(ErrTrackNearCopperItem, t, ci.item,
				locateAlongTrackToSegs(seg, ci.segs),
				"track too close to copper item (%s %s; actual %s)",
				source, fmtMM(clearance), fmtMM(actual)))
		}
	}

	for _, v := range rc.brd.Vias {
		if !v.LayerSpan.Contains(ci.layer) {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(v, ci.item)
		allowed := clearance + half + v.Size/2
		if !ci.bbox.Inflate(allowed).Contains(v.Pos) {
			continue
		}
		if dSq, ok := minPointDistance(ci.segs, v.Pos); ok && dSq < geometry.Square(allowed) {
			actual := clamp0(isqrt(dSq) - half - v.Size/2)
			rc.accept(NewViolation(ErrViaNearCopperItem, v, ci.item, v.Pos,
				"via too close to copper item (%s %s; actual %s)",
				source, fmtMM(clearance), fmtMM(actual)))
		}
	}

	for _, p := range rc.brd.AllPads() {
		if !p.LayerNames.Contains(ci.layer) {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(p, ci.item)
		allowed := clearance + half
		if !ci.bbox.Inflate(allowed + p.BoundingRadius()).Contains(p.Pos) {
			continue
		}
		poly := p.Polygon(flattenTolerance)
		minSq := int64(-1)
		for _, s := range ci.segs {
			d := poly.SquaredDistanceToSeg(s)
			if minSq < 0 || d < minSq {
				minSq = d
			}
			if minSq == 0 {
				break
			}
		}
		if minSq >= 0 && minSq < geometry.Square(allowed) {
			actual := clamp0(isqrt(minSq) - half)
			rc.accept(NewViolation(ErrPadNearCopperItem, p, ci.item, p.Pos,
				"pad too close to copper item (%s %s; actual %s)",
				source, fmtMM(clearance), fmtMM(actual)))
		}
	}
}

// minSegDistance returns the minimum squared distance from any stroke
// segment to the probe segment.
func minSegDistance(segs []geometry.Seg, probe geometry.Seg) (int64, bool) {
	best := int64(-1)
	for _, s := range segs {
		d := s.SquaredDistance(probe)
		if best < 0 || d < best {
			best = d
		}
		if best == 0 {
			break
		}
	}
	return best, best >= 0
}

// minPointDistance returns the minimum squared distance from any stroke
// segment to a point.
func minPointDistance(segs []geometry.Seg, p geometry.Vec) (int64, bool) {
	best := int64(-1)
	for _, s := range segs {
		d := s.SquaredDistanceToPoint(p)
		if best < 0 || d < best {
			best = d
		}
		if best == 0 {
			break
		}
	}
	return best, best >= 0
}

// locateAlongTrackToSegs bisects the track toward the nearest stroke
// segment.
func locateAlongTrackToSegs(track geometry.Seg, segs []geometry.Seg) geometry.Vec {
	best := segs[0]
	bestD := int64(-1)
	for _, s := range segs {
		d := s.SquaredDistance(track)
		if bestD < 0 || d < bestD {
			bestD = d
			best = s
		}
	}
	return locateAlongTrackToSeg(track, best)
}

func clamp0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
