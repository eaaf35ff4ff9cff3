package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// testKeepouts checks every keepout zone against the item categories it
// excludes.
func (rc *runContext) testKeepouts() {
	for _, z := range rc.brd.Zones {
		if !z.Keepout {
			continue
		}
		outline := rc.zoneOutline(z)
		if outline.IsEmpty() {
			continue
		}
		bbox := outline.BoundingRect()

		if z.NoTracks {
			for _, t := range rc.brd.Tracks {
				if t.Layer != z.Layer {
					continue
				}
				seg := t.Seg()
				if !bbox.CollidesSeg(seg, t.Width/2) {
					continue
				}
				// Center line against the outline with the half-width
				// as reach: inside or touching is a violation.
				if rc.segHitsOutline(seg, outline, t.Width/2) {
					rc.accept(NewViolation(ErrTrackInsideKeepout, t, z,
						locateAlongTrack(seg, &outline),
						"track inside keepout area"))
				}
			}
		}

		if z.NoVias {
			for _, v := range rc.brd.Vias {
				if !v.LayerSpan.Contains(z.Layer) {
					continue
				}
				if outline.SquaredDistanceToPoint(v.Pos) <= geometry.Square(v.Size/2) {
					rc.accept(NewViolation(ErrViaInsideKeepout, v, z, v.Pos,
						"via inside keepout area"))
				}
			}
		}

		if z.NoPads || z.NoFootprints {
			for _, fp := range rc.brd.Footprints {
				rc.testFootprintAgainstKeepout(fp, z, outline, bbox)
			}
		}
	}
}

// segHitsOutline reports whether a widened segment reaches the keepout:
// an endpoint inside, or the center line within reach of the boundary.
func (rc *runContext) segHitsOutline(seg geometry.Seg, outline geometry.PolySet, reach int64) bool {
	if outline.Contains(seg.A) || outline.Contains(seg.B) {
		return true
	}
	return outline.SquaredDistanceToSeg(seg) <= geometry.Square(reach)
}

// testFootprintAgainstKeepout checks a footprint's pads and/or body
// against one keepout. Bounding boxes prune before the exact polygon
// intersection; the violation is placed at the first intersection vertex.
func (rc *runContext) testFootprintAgainstKeepout(fp *board.Footprint, z *board.Zone, outline geometry.PolySet, bbox geometry.Rect) {
	if z.NoPads {
		for _, p := range fp.Pads {
			if !p.LayerNames.Contains(z.Layer) {
				continue
			}
			if !bbox.Intersects(geometry.RectAround(p.Pos, p.BoundingRadius())) {
				continue
			}
			if at, ok := outline.IntersectionWitness(p.Polygon(flattenTolerance)); ok {
				rc.accept(NewViolation(ErrPadInsideKeepout, p, z, at,
					"pad inside keepout area"))
			}
		}
	}

	if z.NoFootprints {
		if fp.Layer != z.Layer && fp.CourtyardLayer() != z.Layer {
			return
		}
		body := fp.BoundingBox()
		if !bbox.Intersects(body) {
			return
		}
		if at, ok := outline.IntersectionWitness(geometry.PolySetFromRing(fp.BoundingPolygon())); ok {
			rc.accept(NewViolation(ErrFootprintInsideKeepout, fp, z, at,
				"footprint inside keepout area"))
		}
	}
}
