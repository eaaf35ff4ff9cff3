package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// testTracks scans the ordered track list once, pairing each segment
// only with subsequent items. Progress is reported every progressBatch
// segments and cancellation is polled at the same boundary; an abort
// stops the scan without touching violations already found. Returns
// false when the scan was aborted.
func (rc *runContext) testTracks() bool {
	rc.testVias()

	tracks := rc.brd.Tracks
	total := len(tracks)

	for i, t := range tracks {
		if i%progressBatch == 0 {
			rc.progress.Progress("tracks", i, total)
			if rc.canceled() {
				return false
			}
		}
		rc.testTrack(i, t)
	}
	rc.progress.Progress("tracks", total, total)

	// Vias are scanned as reference items after every track segment,
	// so each track-to-via pair is owned by the track scan and a via
	// reference only pairs with subsequent vias.
	vias := rc.brd.Vias
	for i, v := range vias {
		if i%progressBatch == 0 {
			rc.progress.Progress("vias", i, len(vias))
			if rc.canceled() {
				return false
			}
		}
		rc.testViaClearances(i, v)
	}
	rc.progress.Progress("vias", len(vias), len(vias))
	return true
}

// testViaClearances runs the copper clearance checks for one via
// barrel: subsequent vias, all pads sharing a layer with the span, and
// copper zones. The same report gating as testTrack applies.
func (rc *runContext) testViaClearances(index int, v *board.Via) {
	report := func(viol *Violation) bool {
		rc.accept(viol)
		return rc.opts.ReportAllTrackErrors
	}

	for _, other := range rc.brd.Vias[index+1:] {
		if !v.LayerSpan.Overlaps(other.LayerSpan) {
			continue
		}
		if v.NetCode != 0 && v.NetCode == other.NetCode {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(v, other)
		allowed := clearance + v.Size/2 + other.Size/2
		dSq := v.Pos.SquaredDistance(other.Pos)
		if dSq >= geometry.Square(allowed) {
			continue
		}
		actual := clamp0(isqrt(dSq) - v.Size/2 - other.Size/2)
		if !report(NewViolation(ErrViaNearVia, v, other, v.Pos.Mid(other.Pos),
			"vias too close (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
			return
		}
	}

	for _, p := range rc.brd.AllPads() {
		if !p.LayerNames.Overlaps(v.LayerSpan) {
			continue
		}
		if v.NetCode != 0 && v.NetCode == p.NetCode {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(v, p)
		bound := clearance + v.Size/2 + p.BoundingRadius()
		if v.Pos.SquaredDistance(p.Pos) >= geometry.Square(bound) {
			continue
		}
		poly := p.Polygon(flattenTolerance)
		dSq := poly.SquaredDistanceToPoint(v.Pos)
		allowed := clearance + v.Size/2
		if dSq >= geometry.Square(allowed) {
			continue
		}
		actual := clamp0(isqrt(dSq) - v.Size/2)
		if !report(NewViolation(ErrViaNearPad, v, p, v.Pos,
			"via too close to pad (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
			return
		}
	}

	if rc.opts.Zones {
		for _, z := range rc.brd.Zones {
			if z.Keepout || !v.LayerSpan.Contains(z.Layer) {
				continue
			}
			if v.NetCode != 0 && v.NetCode == z.NetCode {
				continue
			}
			outline := rc.zoneOutline(z)
			if outline.IsEmpty() {
				continue
			}
			clearance, source := rc.resolver.EffectiveClearance(v, z)
			allowed := clearance + v.Size/2
			dSq := outline.SquaredDistanceToPoint(v.Pos)
			if dSq >= geometry.Square(allowed) {
				continue
			}
			actual := clamp0(isqrt(dSq) - v.Size/2)
			if !report(NewViolation(ErrViaNearZone, v, z, v.Pos,
				"via too close to zone (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
				return
			}
		}
	}
}

// testVias checks every via's geometry floors and dangling state.
func (rc *runContext) testVias() {
	ds := &rc.brd.Settings
	for _, v := range rc.brd.Vias {
		switch v.Type {
		case board.MicroVia:
			if v.Size < ds.MicroViasMinSize {
				rc.accept(NewViolation(ErrTooSmallMicroViaSize, v, nil, v.Pos,
					"micro via size %s below board minimum %s", fmtMM(v.Size), fmtMM(ds.MicroViasMinSize)))
			}
			if v.Drill < ds.MicroViasMinDrill {
				rc.accept(NewViolation(ErrTooSmallMicroViaDrill, v, nil, v.Pos,
					"micro via drill %s below board minimum %s", fmtMM(v.Drill), fmtMM(ds.MicroViasMinDrill)))
			}
		default:
			if v.Size < ds.ViasMinSize {
				rc.accept(NewViolation(ErrTooSmallViaSize, v, nil, v.Pos,
					"via size %s below board minimum %s", fmtMM(v.Size), fmtMM(ds.ViasMinSize)))
			}
			if v.Drill < ds.MinThroughDrill {
				rc.accept(NewViolation(ErrTooSmallViaDrill, v, nil, v.Pos,
					"via drill %s below board minimum %s", fmtMM(v.Drill), fmtMM(ds.MinThroughDrill)))
			}
		}

		if v.Drill >= v.Size {
			rc.accept(NewViolation(ErrViaHoleBiggerThanPad, v, nil, v.Pos,
				"via drill %s leaves no copper (size %s)", fmtMM(v.Drill), fmtMM(v.Size)))
		} else if annulus := (v.Size - v.Drill) / 2; annulus < rc.brd.Settings.ViasMinAnnulus {
			rc.accept(NewViolation(ErrTooSmallViaAnnulus, v, nil, v.Pos,
				"via annulus %s below board minimum %s", fmtMM(annulus), fmtMM(rc.brd.Settings.ViasMinAnnulus)))
		}

		if rc.conn != nil && rc.viaDangling(v) {
			rc.accept(NewViolation(ErrDanglingVia, v, nil, v.Pos, "via connects to nothing"))
		}
	}
}

// viaDangling reports a via whose cluster holds no other item.
func (rc *runContext) viaDangling(v *board.Via) bool {
	if v.NetCode == 0 {
		return true
	}
	for _, cl := range rc.conn.Clusters() {
		for _, it := range cl.Items {
			if it == board.Item(v) {
				return len(cl.Items) < 2
			}
		}
	}
	return true
}

// testTrack runs every check for one segment. With ReportAllTrackErrors
// disabled the first violation ends this segment's scan; the outer loop
// still visits every segment.
func (rc *runContext) testTrack(index int, t *board.Track) {
	report := func(v *Violation) bool {
		rc.accept(v)
		return rc.opts.ReportAllTrackErrors
	}

	if t.Width < rc.brd.Settings.TrackMinWidth {
		if !report(NewViolation(ErrTooSmallTrackWidth, t, nil, t.Start.Mid(t.End),
			"track width %s below board minimum %s", fmtMM(t.Width), fmtMM(rc.brd.Settings.TrackMinWidth))) {
			return
		}
	}

	if rc.conn != nil {
		if dangling, at := rc.conn.TrackEndpointDangling(t); dangling {
			if !report(NewViolation(ErrDanglingTrack, t, nil, at, "track end connects to nothing")) {
				return
			}
		}
	}

	seg := t.Seg()

	// Subsequent segments only; earlier pairs were already tested.
	for _, other := range rc.brd.Tracks[index+1:] {
		if other.Layer != t.Layer {
			continue
		}
		if t.NetCode != 0 && t.NetCode == other.NetCode {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(t, other)
		collides, dSq, witness := seg.WidthsCollide(other.Seg(), t.Width, other.Width, clearance)
		if !collides {
			continue
		}
		kind := ErrTrackNearTrack
		if dSq == 0 && seg.Intersects(other.Seg()) {
			kind = ErrTracksCrossing
		}
		actual := clamp0(isqrt(dSq) - (t.Width+other.Width)/2)
		if !report(NewViolation(kind, t, other, witness,
			"tracks too close (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
			return
		}
	}

	for _, v := range rc.brd.Vias {
		if !v.LayerSpan.Contains(t.Layer) {
			continue
		}
		if t.NetCode != 0 && t.NetCode == v.NetCode {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(t, v)
		allowed := clearance + t.Width/2 + v.Size/2
		dSq := seg.SquaredDistanceToPoint(v.Pos)
		if dSq >= geometry.Square(allowed) {
			continue
		}
		actual := isqrt(dSq) - t.Width/2 - v.Size/2
		if actual < 0 {
			actual = 0
		}
		if !report(NewViolation(ErrTrackNearVia, t, v, seg.NearestPoint(v.Pos),
			"track too close to via (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
			return
		}
	}

	for _, p := range rc.brd.AllPads() {
		if !p.LayerNames.Contains(t.Layer) {
			continue
		}
		if t.NetCode != 0 && t.NetCode == p.NetCode {
			continue
		}
		clearance, source := rc.resolver.EffectiveClearance(t, p)
		poly := p.Polygon(flattenTolerance)

		bound := clearance + t.Width/2 + p.BoundingRadius()
		if !geometry.RectAround(p.Pos, bound).CollidesSeg(seg, 0) {
			continue
		}

		dSq := poly.SquaredDistanceToSeg(seg)
		allowed := clearance + t.Width/2
		if dSq >= geometry.Square(allowed) {
			continue
		}
		actual := isqrt(dSq) - t.Width/2
		if actual < 0 {
			actual = 0
		}
		if !report(NewViolation(ErrTrackNearPad, t, p, locateAlongTrack(seg, &poly),
			"track too close to pad (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
			return
		}
	}

	if rc.opts.Zones {
		for _, z := range rc.brd.Zones {
			if z.Keepout || z.Layer != t.Layer {
				continue
			}
			if t.NetCode != 0 && t.NetCode == z.NetCode {
				continue
			}
			outline := rc.zoneOutline(z)
			if outline.IsEmpty() {
				continue
			}
			clearance, source := rc.resolver.EffectiveClearance(t, z)
			allowed := clearance + t.Width/2
			dSq := outline.SquaredDistanceToSeg(seg)
			if dSq >= geometry.Square(allowed) {
				continue
			}
			actual := isqrt(dSq) - t.Width/2
			if actual < 0 {
				actual = 0
			}
			if !report(NewViolation(ErrTrackNearZone, t, z, locateAlongTrack(seg, &outline),
				"track too close to zone (%s %s; actual %s)", source, fmtMM(clearance), fmtMM(actual))) {
				return
			}
		}
	}
}
