package drc

import (
	"context"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
)

// newRunContext builds a driver context over a board for direct driver
// tests, collecting into a fresh result set.
func newRunContext(b *board.Board, opts Options) (*runContext, *ResultSet) {
	results := &ResultSet{}
	rc := &runContext{
		ctx:      context.Background(),
		brd:      b,
		opts:     opts,
		resolver: NewResolver(b, nil),
		conn:     connectivity.Build(b),
		progress: nopProgress{},
		sink:     filteredSink{results: results},
	}
	return rc, results
}

func copperTrack(net int, x1, y1, x2, y2 float64) *board.Track {
	return &board.Track{
		Start:   geometry.VecFromMM(x1, y1),
		End:     geometry.VecFromMM(x2, y2),
		Width:   geometry.FromMM(0.25),
		Layer:   board.LayerFrontCopper,
		NetCode: net,
	}
}

func squareZone(net int, netName string, cx, cy, half float64) *board.Zone {
	return &board.Zone{
		NetCode: net,
		NetName: netName,
		Layer:   board.LayerFrontCopper,
		Outline: geometry.Polygon{
			geometry.VecFromMM(cx-half, cy-half),
			geometry.VecFromMM(cx+half, cy-half),
			geometry.VecFromMM(cx+half, cy+half),
			geometry.VecFromMM(cx-half, cy+half),
		},
	}
}

func TestTracksCrossing(t *testing.T) {
	b := testBoard()
	b.Tracks = append(b.Tracks,
		copperTrack(1, 0, 0, 10, 10),
		copperTrack(2, 0, 10, 10, 0),
	)

	rc, results := newRunContext(b, Options{ReportAllTrackErrors: true})
	if !rc.testTracks() {
		t.Fatal("scan should not abort")
	}

	crossings := 0
	for _, v := range results.Violations {
		if v.Kind == ErrTracksCrossing {
			crossings++
			want := geometry.VecFromMM(5, 5)
			if v.Location.SquaredDistance(want) > geometry.Square(geometry.FromMM(0.01)) {
				t.Errorf("crossing located at %v, want near %v", v.Location, want)
			}
		}
	}
	if crossings != 1 {
		t.Fatalf("got %d crossing violations, want 1", crossings)
	}
}

func TestTrackClearanceToTrack(t *testing.T) {
	tests := []struct {
		name    string
		y2      float64
		net2    int
		wantHit bool
	}{
		{name: "parallel too close", y2: 0.3, net2: 2, wantHit: true},
		{name: "parallel with margin", y2: 1.0, net2: 2, wantHit: false},
		{name: "same net ignored", y2: 0.3, net2: 1, wantHit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBoard()
			b.Tracks = append(b.Tracks,
				copperTrack(1, 0, 0, 10, 0),
				copperTrack(tt.net2, 0, tt.y2, 10, tt.y2),
			)
			rc, results := newRunContext(b, Options{ReportAllTrackErrors: true})
			rc.testTracks()

			hits := 0
			for _, v := range results.Violations {
				if v.Kind == ErrTrackNearTrack {
					hits++
				}
			}
			// Center distance 0.3mm, widths 0.25: copper gap 0.05 < 0.2.
			if tt.wantHit && hits != 1 {
				t.Fatalf("got %d track-near-track violations, want 1", hits)
			}
			if !tt.wantHit && hits != 0 {
				t.Fatalf("got %d track-near-track violations, want 0", hits)
			}
		})
	}
}

func TestFirstViolationStopsSegmentScan(t *testing.T) {
	b := testBoard()
	// Every track here both dangles and violates clearance; without
	// ReportAllTrackErrors each one stops after its first finding.
	b.Tracks = append(b.Tracks,
		copperTrack(1, 0, 0, 10, 0),
		copperTrack(2, 0, 0.3, 10, 0.3),
		copperTrack(3, 0, -0.3, 10, -0.3),
	)
	rc, results := newRunContext(b, Options{})
	rc.testTracks()

	perTrack := map[board.Item]int{}
	for _, v := range results.Violations {
		perTrack[v.Primary]++
	}
	for item, n := range perTrack {
		if n > 1 {
			t.Errorf("segment %v produced %d violations in single-report mode", item, n)
		}
	}
	if len(results.Violations) != len(b.Tracks) {
		t.Errorf("got %d violations, want one per track", len(results.Violations))
	}
}

func TestViaFloors(t *testing.T) {
	b := testBoard()
	b.Vias = append(b.Vias, &board.Via{
		Pos:       geometry.VecFromMM(5, 5),
		Size:      geometry.FromMM(0.3), // below 0.4 floor
		Drill:     geometry.FromMM(0.2), // below 0.3 floor
		LayerSpan: board.LayerSet{board.LayerFrontCopper, board.LayerBackCopper},
		NetCode:   1,
	})
	rc, results := newRunContext(b, Options{})
	rc.testVias()

	kinds := map[ErrorKind]int{}
	for _, v := range results.Violations {
		kinds[v.Kind]++
	}
	if kinds[ErrTooSmallViaSize] != 1 {
		t.Errorf("via size violations = %d, want 1", kinds[ErrTooSmallViaSize])
	}
	if kinds[ErrTooSmallViaDrill] != 1 {
		t.Errorf("via drill violations = %d, want 1", kinds[ErrTooSmallViaDrill])
	}
}

func TestZonesOverlapping(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 50, 50))
	addFootprint(b, "R2", rectPad(2, 60, 50))
	b.Zones = append(b.Zones,
		squareZone(1, "GND", 5, 5, 5),
		squareZone(2, "VCC", 8, 7, 5), // corner well inside the first
	)

	rc, results := newRunContext(b, Options{Zones: true})
	rc.testZones()

	intersects, tooClose := 0, 0
	for _, v := range results.Violations {
		switch v.Kind {
		case ErrZonesIntersect:
			intersects++
		case ErrZonesTooClose:
			tooClose++
		}
	}
	if intersects == 0 {
		t.Error("overlapping zones should intersect")
	}
	if tooClose != 0 {
		t.Errorf("got %d too-close violations for overlapping zones, want 0", tooClose)
	}
}

func TestZonesSeparated(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 50, 50))
	addFootprint(b, "R2", rectPad(2, 60, 50))
	b.Zones = append(b.Zones,
		squareZone(1, "GND", 5, 5, 5),
		squareZone(2, "VCC", 25, 5, 5), // 10mm apart edge to edge
	)

	rc, results := newRunContext(b, Options{Zones: true})
	rc.testZones()

	for _, v := range results.Violations {
		if v.Kind == ErrZonesIntersect || v.Kind == ErrZonesTooClose {
			t.Fatalf("separated zones produced %v", v)
		}
	}
}

func TestZonePairSkipRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a, b *board.Zone)
	}{
		{name: "different layers", mutate: func(a, b *board.Zone) { b.Layer = board.LayerBackCopper }},
		{name: "same positive net", mutate: func(a, b *board.Zone) { b.NetCode = a.NetCode; b.NetName = a.NetName }},
		{name: "different priority", mutate: func(a, b *board.Zone) { b.Priority = 2 }},
		{name: "keepout mismatch", mutate: func(a, b *board.Zone) { b.Keepout = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBoard()
			addFootprint(b, "R1", rectPad(1, 50, 50))
			addFootprint(b, "R2", rectPad(2, 60, 50))
			za := squareZone(1, "GND", 5, 5, 5)
			zb := squareZone(2, "VCC", 5, 5, 5)
			tt.mutate(za, zb)
			b.Zones = append(b.Zones, za, zb)

			rc, results := newRunContext(b, Options{Zones: true})
			rc.testZonePair(za, zb)

			if len(results.Violations) != 0 {
				t.Fatalf("skipped pair produced %d violations", len(results.Violations))
			}
		})
	}
}

func TestZoneHasEmptyNet(t *testing.T) {
	b := testBoard()
	// Net 1 has no pads anywhere on the board.
	b.Zones = append(b.Zones, squareZone(1, "GND", 5, 5, 5))

	rc, results := newRunContext(b, Options{Zones: true})
	rc.testZones()

	found := 0
	for _, v := range results.Violations {
		if v.Kind == ErrZoneHasEmptyNet {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("got %d empty-net violations, want 1", found)
	}
}

func TestTrackInsideKeepout(t *testing.T) {
	b := testBoard()
	keepout := squareZone(0, "", 5, 5, 5)
	keepout.Keepout = true
	keepout.NoTracks = true
	b.Zones = append(b.Zones, keepout)
	b.Tracks = append(b.Tracks, copperTrack(1, 3, 5, 7, 5))

	rc, results := newRunContext(b, Options{Keepouts: true})
	rc.testKeepouts()

	hits := results.Violations
	if len(hits) != 1 || hits[0].Kind != ErrTrackInsideKeepout {
		t.Fatalf("violations = %v, want exactly one track-inside-keepout", hits)
	}
	if hits[0].Primary != board.Item(b.Tracks[0]) {
		t.Error("violation should reference the track")
	}
	if hits[0].Secondary != board.Item(keepout) {
		t.Error("violation should reference the keepout zone")
	}
}

func TestKeepoutRespectsExclusionFlags(t *testing.T) {
	b := testBoard()
	keepout := squareZone(0, "", 5, 5, 5)
	keepout.Keepout = true
	keepout.NoVias = true // tracks allowed
	b.Zones = append(b.Zones, keepout)
	b.Tracks = append(b.Tracks, copperTrack(1, 3, 5, 7, 5))
	b.Vias = append(b.Vias, &board.Via{
		Pos:       geometry.VecFromMM(5, 5),
		Size:      geometry.FromMM(0.8),
		Drill:     geometry.FromMM(0.4),
		LayerSpan: board.LayerSet{board.LayerFrontCopper, board.LayerBackCopper},
		NetCode:   1,
	})

	rc, results := newRunContext(b, Options{Keepouts: true})
	rc.testKeepouts()

	if len(results.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(results.Violations))
	}
	if results.Violations[0].Kind != ErrViaInsideKeepout {
		t.Errorf("kind = %v, want via-inside-keepout", results.Violations[0].Kind)
	}
}

func TestTrackNearCopperText(t *testing.T) {
	b := testBoard()
	b.Texts = append(b.Texts, &board.Text{
		Text:    "GND",
		Pos:     geometry.VecFromMM(5, 0),
		Layer:   board.LayerFrontCopper,
		Visible: true,
		Size:    geometry.VecFromMM(1, 1),
	})
	// Text half-height is 0.5mm; a track center line 0.7mm below the
	// text center leaves under 0.1mm of copper gap.
	b.Tracks = append(b.Tracks, copperTrack(1, 0, 0.7, 10, 0.7))

	rc, results := newRunContext(b, Options{})
	rc.testCopperTextAndGraphics()

	hits := 0
	for _, v := range results.Violations {
		if v.Kind == ErrTrackNearCopperItem {
			hits++
		}
	}
	if hits != 1 {
		t.Fatalf("got %d track-near-copper violations, want 1", hits)
	}
}

func TestCopperTextIgnoresSilkscreen(t *testing.T) {
	b := testBoard()
	b.Texts = append(b.Texts, &board.Text{
		Text:    "GND",
		Pos:     geometry.VecFromMM(5, 0),
		Layer:   "F.SilkS",
		Visible: true,
		Size:    geometry.VecFromMM(1, 1),
	})
	b.Tracks = append(b.Tracks, copperTrack(1, 0, 0.1, 10, 0.1))

	rc, results := newRunContext(b, Options{})
	rc.testCopperTextAndGraphics()

	if len(results.Violations) != 0 {
		t.Fatalf("silkscreen text produced %d violations", len(results.Violations))
	}
}

func courtyardSquare(fp *board.Footprint, layer string, cx, cy, half float64) {
	corners := []geometry.Vec{
		geometry.VecFromMM(cx-half, cy-half),
		geometry.VecFromMM(cx+half, cy-half),
		geometry.VecFromMM(cx+half, cy+half),
		geometry.VecFromMM(cx-half, cy+half),
	}
	for i := range corners {
		fp.Graphics = append(fp.Graphics, &board.Graphic{
			Shape: board.GraphicLine,
			Layer: layer,
			Start: corners[i],
			End:   corners[(i+1)%len(corners)],
		})
	}
}

func TestCourtyards(t *testing.T) {
	b := testBoard()
	f1 := addFootprint(b, "U1", rectPad(1, 0, 0))
	courtyardSquare(f1, board.LayerFrontCourtyard, 0, 0, 2)
	f2 := addFootprint(b, "U2", rectPad(2, 3, 0))
	courtyardSquare(f2, board.LayerFrontCourtyard, 3, 0, 2) // overlaps f1
	f3 := addFootprint(b, "U3", rectPad(3, 20, 0))          // no courtyard at all
	_ = f3

	rc, results := newRunContext(b, Options{})
	rc.testCourtyards()

	kinds := map[ErrorKind]int{}
	for _, v := range results.Violations {
		kinds[v.Kind]++
	}
	if kinds[ErrCourtyardsOverlap] != 1 {
		t.Errorf("overlap violations = %d, want 1", kinds[ErrCourtyardsOverlap])
	}
	if kinds[ErrMissingCourtyard] != 1 {
		t.Errorf("missing-courtyard violations = %d, want 1", kinds[ErrMissingCourtyard])
	}
}

func TestMalformedCourtyard(t *testing.T) {
	b := testBoard()
	fp := addFootprint(b, "U1", rectPad(1, 0, 0))
	// One open segment cannot close a ring.
	fp.Graphics = append(fp.Graphics, &board.Graphic{
		Shape: board.GraphicLine,
		Layer: board.LayerFrontCourtyard,
		Start: geometry.VecFromMM(-1, -1),
		End:   geometry.VecFromMM(1, -1),
	})

	rc, results := newRunContext(b, Options{})
	rc.testCourtyards()

	if len(results.Violations) != 1 || results.Violations[0].Kind != ErrMalformedCourtyard {
		t.Fatalf("violations = %v, want exactly one malformed-courtyard", results.Violations)
	}
}

func TestResolverSelectorOverride(t *testing.T) {
	b := testBoard()
	fp := addFootprint(b, "R1", rectPad(1, 0, 0)) // net 1 = GND
	_ = fp

	p, err := rules.NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}
	rs, err := p.ParseString("test.rules", `
(rule "pour" (clearance 0.5mm))
(selector (match_netname "GND") (rule "pour"))
`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	resolver := NewResolver(b, rs)
	pad := b.Footprints[0].Pads[0]

	value, source := resolver.EffectiveClearance(pad, nil)
	if value != geometry.FromMM(0.5) {
		t.Errorf("clearance = %d, want %d from the rule", value, geometry.FromMM(0.5))
	}
	if !strings.Contains(source, "pour") {
		t.Errorf("source = %q, want the rule name", source)
	}
}

func TestResolverNetClassAndFloor(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 0, 0))
	pad := b.Footprints[0].Pads[0]

	resolver := NewResolver(b, nil)
	value, source := resolver.EffectiveClearance(pad, nil)
	if value != geometry.FromMM(0.2) {
		t.Errorf("clearance = %d, want netclass default", value)
	}
	if !strings.Contains(source, "Default") {
		t.Errorf("source = %q, want the netclass name", source)
	}

	// The board minimum floors a class requesting less.
	b.Settings.NetClasses.Default.Clearance = geometry.FromMM(0.05)
	b.Settings.MinClearance = geometry.FromMM(0.3)
	value, source = resolver.EffectiveClearance(pad, nil)
	if value != geometry.FromMM(0.3) {
		t.Errorf("clearance = %d, want the board minimum", value)
	}
	if source != "board minimum" {
		t.Errorf("source = %q, want board minimum", source)
	}
}

func TestLocateAlongTrack(t *testing.T) {
	shape := geometry.PolySetFromRing(geometry.Polygon{
		geometry.VecFromMM(9, -1),
		geometry.VecFromMM(11, -1),
		geometry.VecFromMM(11, 1),
		geometry.VecFromMM(9, 1),
	})
	track := geometry.Seg{A: geometry.VecFromMM(0, 0), B: geometry.VecFromMM(10, 0)}

	pt := locateAlongTrack(track, &shape)
	if pt.Y != 0 {
		t.Errorf("bisection left the track: %v", pt)
	}
	if pt.X < geometry.FromMM(9) || pt.X > geometry.FromMM(10) {
		t.Errorf("point %v not in the conflicting stretch", pt)
	}
	// Termination with a degenerate (point) track.
	short := geometry.Seg{A: geometry.VecFromMM(5, 5), B: geometry.VecFromMM(5, 5)}
	if got := locateAlongTrack(short, &shape); got != short.A {
		t.Errorf("degenerate track located at %v, want its endpoint", got)
	}
}

func throughVia(net int, x, y float64) *board.Via {
	return &board.Via{
		Pos:       geometry.VecFromMM(x, y),
		Size:      geometry.FromMM(0.8),
		Drill:     geometry.FromMM(0.4),
		LayerSpan: board.LayerSet{board.LayerFrontCopper, board.LayerBackCopper},
		NetCode:   net,
	}
}

func TestViaNearVia(t *testing.T) {
	b := testBoard()
	// Barrels 0.1mm apart with 0.2mm required; holes stay legal.
	b.Vias = append(b.Vias, throughVia(1, 5, 5), throughVia(2, 5, 5.9))

	rs := run(t, b, DefaultOptions())

	hits := rs.ByKind(ErrViaNearVia)
	if len(hits) != 1 {
		t.Fatalf("got %d via-near-via violations, want 1", len(hits))
	}
	if len(rs.ByKind(ErrDrilledHolesTooClose)) != 0 {
		t.Error("hole spacing is legal; no drilled-hole violation expected")
	}
	if hits[0].Primary != board.Item(b.Vias[0]) || hits[0].Secondary != board.Item(b.Vias[1]) {
		t.Error("violation should name both vias")
	}
}

func TestViaNearViaSameNetIgnored(t *testing.T) {
	b := testBoard()
	b.Vias = append(b.Vias, throughVia(1, 5, 5), throughVia(1, 5, 5.9))

	rs := run(t, b, DefaultOptions())
	if n := len(rs.ByKind(ErrViaNearVia)); n != 0 {
		t.Fatalf("got %d via-near-via violations on one net, want 0", n)
	}
}

func TestViaNearPad(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 5, 5))
	// Pad edge at y=5.5, via copper starts at y=5.6.
	b.Vias = append(b.Vias, throughVia(2, 5, 6.0))

	rc, results := newRunContext(b, Options{})
	rc.testViaClearances(0, b.Vias[0])

	hits := 0
	for _, v := range results.Violations {
		if v.Kind == ErrViaNearPad {
			hits++
		}
	}
	if hits != 1 {
		t.Fatalf("got %d via-near-pad violations, want 1", hits)
	}
}

func TestViaNearZone(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 50, 50))
	b.Zones = append(b.Zones, squareZone(1, "GND", 5, 5, 5))
	b.Vias = append(b.Vias, throughVia(2, 10.5, 5))

	rc, results := newRunContext(b, Options{Zones: true})
	rc.testViaClearances(0, b.Vias[0])

	hits := 0
	for _, v := range results.Violations {
		if v.Kind == ErrViaNearZone {
			hits++
		}
	}
	if hits != 1 {
		t.Fatalf("got %d via-near-zone violations, want 1", hits)
	}
}

func TestHoleStandInBlamesRealPads(t *testing.T) {
	b := testBoard()
	drilled := &board.Pad{
		Number:     "1",
		Type:       "thru_hole",
		Shape:      board.PadShapeCircle,
		Pos:        geometry.VecFromMM(0, 0),
		Size:       geometry.VecFromMM(0.6, 0.6),
		DrillW:     geometry.FromMM(0.5),
		DrillH:     geometry.FromMM(0.5),
		LayerNames: board.LayerSet{board.LayerFrontCopper},
		NetCode:    1,
	}
	backPad := &board.Pad{
		Number:     "1",
		Type:       "smd",
		Shape:      board.PadShapeRect,
		Pos:        geometry.VecFromMM(0.55, 0),
		Size:       geometry.VecFromMM(1, 1),
		LayerNames: board.LayerSet{board.LayerBackCopper},
		NetCode:    2,
	}
	addFootprint(b, "J1", drilled)
	addFootprint(b, "R2", backPad)

	rc, results := newRunContext(b, Options{PadToPad: true})
	rc.testPadToPad()

	hits := results.Violations
	if len(hits) != 1 || hits[0].Kind != ErrPadNearPad {
		t.Fatalf("violations = %v, want exactly one pad-near-pad", hits)
	}
	// The drill stand-in carries the geometry; the result names the
	// board pads.
	if hits[0].Primary != board.Item(drilled) {
		t.Errorf("primary = %v, want the drilled pad", hits[0].Primary)
	}
	if hits[0].Secondary != board.Item(backPad) {
		t.Errorf("secondary = %v, want the back-side pad", hits[0].Secondary)
	}
}
