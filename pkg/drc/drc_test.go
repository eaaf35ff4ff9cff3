package drc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

func testBoard() *board.Board {
	return &board.Board{
		Layers: []board.Layer{
			{Number: 0, Name: "F.Cu", Type: "signal"},
			{Number: 31, Name: "B.Cu", Type: "signal"},
			{Number: 44, Name: "Edge.Cuts", Type: "user"},
			{Number: 46, Name: "B.CrtYd", Type: "user"},
			{Number: 47, Name: "F.CrtYd", Type: "user"},
		},
		Nets: []board.Net{
			{Code: 0, Name: ""},
			{Code: 1, Name: "GND"},
			{Code: 2, Name: "VCC"},
			{Code: 3, Name: "SIG"},
		},
		Settings: board.DefaultDesignSettings(),
	}
}

func addFootprint(b *board.Board, ref string, pads ...*board.Pad) *board.Footprint {
	fp := &board.Footprint{Reference: ref, Value: "test", Layer: board.LayerFrontCopper}
	if len(pads) > 0 {
		fp.Pos = pads[0].Pos
	}
	for _, p := range pads {
		p.Parent = fp
		fp.Pads = append(fp.Pads, p)
	}
	b.Footprints = append(b.Footprints, fp)
	return fp
}

func rectPad(net int, x, y float64) *board.Pad {
	return &board.Pad{
		Number:     "1",
		Type:       "smd",
		Shape:      board.PadShapeRect,
		Pos:        geometry.VecFromMM(x, y),
		Size:       geometry.VecFromMM(1, 1),
		LayerNames: board.LayerSet{board.LayerFrontCopper},
		NetCode:    net,
	}
}

func run(t *testing.T, b *board.Board, opts Options) *ResultSet {
	t.Helper()
	r := &Runner{Board: b}
	rs, err := r.RunTests(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	return rs
}

func TestNetClassBelowFloorIsFatal(t *testing.T) {
	b := testBoard()
	b.Settings.MinClearance = geometry.FromMM(0.2)
	b.Settings.NetClasses.Default.Clearance = geometry.FromMM(0.15)

	// Pads that would also violate clearance; the net-class failure
	// must suppress the geometric phase entirely.
	addFootprint(b, "R1", rectPad(1, 0, 0))
	addFootprint(b, "R2", rectPad(2, 1.05, 0))

	rs := run(t, b, DefaultOptions())

	ncv := rs.ByKind(ErrNetClassClearance)
	if len(ncv) != 1 {
		t.Fatalf("got %d netclass clearance violations, want exactly 1", len(ncv))
	}
	msg := ncv[0].Message
	if !strings.Contains(msg, "Default") {
		t.Errorf("message %q does not name the Default class", msg)
	}
	if !strings.Contains(msg, "0.2000 mm") || !strings.Contains(msg, "0.1500 mm") {
		t.Errorf("message %q does not carry required and actual values", msg)
	}

	if got := rs.ByKind(ErrPadNearPad); len(got) != 0 {
		t.Errorf("geometry checks ran after a fatal netclass failure (%d pad violations)", len(got))
	}
	if !rs.Ran {
		t.Error("Ran should be true even after a fatal netclass phase")
	}
}

func TestNetClassCheckReportsAllFields(t *testing.T) {
	b := testBoard()
	b.Settings.MinClearance = geometry.FromMM(0.2)
	user := &board.NetClass{
		Name:         "Tiny",
		Clearance:    geometry.FromMM(0.1), // below floor
		TrackWidth:   geometry.FromMM(0.1), // below floor
		ViaDiameter:  geometry.FromMM(0.8),
		ViaDrill:     geometry.FromMM(0.4),
		UViaDiameter: geometry.FromMM(0.3),
		UViaDrill:    geometry.FromMM(0.1),
	}
	b.Settings.NetClasses.Add(user)

	rs := run(t, b, DefaultOptions())

	if got := len(rs.ByKind(ErrNetClassClearance)); got != 1 {
		t.Errorf("clearance violations = %d, want 1", got)
	}
	if got := len(rs.ByKind(ErrNetClassTrackWidth)); got != 1 {
		t.Errorf("track width violations = %d, want 1", got)
	}

	// Idempotent: a second run yields the identical violation set.
	rs2 := run(t, b, DefaultOptions())
	if len(rs2.Violations) != len(rs.Violations) {
		t.Fatalf("second run found %d violations, first %d", len(rs2.Violations), len(rs.Violations))
	}
	for i := range rs.Violations {
		if rs.Violations[i].Kind != rs2.Violations[i].Kind || rs.Violations[i].Message != rs2.Violations[i].Message {
			t.Errorf("violation %d differs between runs", i)
		}
	}
}

func TestPadToPadClearance(t *testing.T) {
	tests := []struct {
		name    string
		netB    int
		xB      float64
		wantHit bool
	}{
		{name: "too close different nets", netB: 2, xB: 1.05, wantHit: true},
		{name: "sufficient gap", netB: 2, xB: 1.5, wantHit: false},
		{name: "same net never violates", netB: 1, xB: 1.05, wantHit: false},
		{name: "far beyond scan bound", netB: 2, xB: 50, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBoard()
			addFootprint(b, "R1", rectPad(1, 0, 0))
			addFootprint(b, "R2", rectPad(tt.netB, tt.xB, 0))

			rs := run(t, b, DefaultOptions())
			got := rs.ByKind(ErrPadNearPad)
			if tt.wantHit && len(got) != 1 {
				t.Fatalf("got %d pad violations, want 1", len(got))
			}
			if !tt.wantHit && len(got) != 0 {
				t.Fatalf("got %d pad violations, want 0: %v", len(got), got[0])
			}
			if tt.wantHit {
				if !strings.Contains(got[0].Message, "0.2000 mm") {
					t.Errorf("message %q does not name the required clearance", got[0].Message)
				}
			}
		})
	}
}

func TestPadToPadStopsAtFirstPerReference(t *testing.T) {
	b := testBoard()
	// One reference pad with two offenders to its right: the scan stops
	// after the first, the second offender is found when it becomes the
	// reference of its own pair (net differs), so both pairs still
	// surface without double counting.
	addFootprint(b, "R1", rectPad(1, 0, 0))
	addFootprint(b, "R2", rectPad(2, 1.05, 0))
	addFootprint(b, "R3", rectPad(3, 2.10, 0))

	rs := run(t, b, DefaultOptions())
	got := rs.ByKind(ErrPadNearPad)
	// Pairs (R1,R2) and (R2,R3) violate; (R1,R3) is out of reach.
	if len(got) != 2 {
		t.Fatalf("got %d pad violations, want 2", len(got))
	}
}

func TestDrilledHoleClearance(t *testing.T) {
	b := testBoard()
	mk := func(net int, x float64) *board.Pad {
		p := rectPad(net, x, 0)
		p.Type = "thru_hole"
		p.Shape = board.PadShapeCircle
		p.Size = geometry.VecFromMM(1.6, 1.6)
		p.DrillW = geometry.FromMM(0.8)
		p.DrillH = geometry.FromMM(0.8)
		p.LayerNames = board.LayerSet{board.LayerFrontCopper, board.LayerBackCopper}
		return p
	}
	// Hole edges 0.2mm apart, floor is 0.25mm.
	addFootprint(b, "J1", mk(1, 0))
	addFootprint(b, "J2", mk(2, 1.0))

	rs := run(t, b, DefaultOptions())
	got := rs.ByKind(ErrDrilledHolesTooClose)
	if len(got) != 1 {
		t.Fatalf("got %d drilled-hole violations, want 1", len(got))
	}
	if !strings.Contains(got[0].Message, "0.2500 mm") {
		t.Errorf("message %q does not name the hole-to-hole floor", got[0].Message)
	}
}

func TestExtraFootprintAgainstNetlist(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 0, 0))
	addFootprint(b, "R9", rectPad(2, 20, 0))

	r := &Runner{
		Board:   b,
		Netlist: []NetlistComponent{{Reference: "R1", Value: "10k"}},
	}
	opts := DefaultOptions()
	opts.TestFootprints = true
	rs, err := r.RunTests(context.Background(), opts)
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}

	if !rs.FootprintsChecked {
		t.Fatal("FootprintsChecked should be set")
	}
	var extras, missing []*FootprintIssue
	for _, f := range rs.Footprints {
		switch f.Kind {
		case ErrExtraFootprint:
			extras = append(extras, f)
		case ErrMissingFootprint:
			missing = append(missing, f)
		}
	}
	if len(extras) != 1 || extras[0].Reference != "R9" {
		t.Errorf("extras = %v, want exactly R9", extras)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestFootprintReconciliation(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 0, 0))
	addFootprint(b, "R2", rectPad(2, 10, 0))
	addFootprint(b, "r2", rectPad(3, 20, 0)) // duplicate, case-insensitive

	issues := reconcileFootprints(b, []NetlistComponent{
		{Reference: "R1"},
		{Reference: "R2"},
		{Reference: "C1"},
	})

	kinds := map[ErrorKind]int{}
	for _, i := range issues {
		kinds[i.Kind]++
	}
	if kinds[ErrDuplicateFootprint] != 1 {
		t.Errorf("duplicates = %d, want 1", kinds[ErrDuplicateFootprint])
	}
	if kinds[ErrMissingFootprint] != 1 {
		t.Errorf("missing = %d, want 1", kinds[ErrMissingFootprint])
	}
	if kinds[ErrExtraFootprint] != 0 {
		t.Errorf("extras = %d, want 0", kinds[ErrExtraFootprint])
	}
}

func TestSeverityPolicyDropsAtSink(t *testing.T) {
	b := testBoard()
	addFootprint(b, "R1", rectPad(1, 0, 0))
	addFootprint(b, "R2", rectPad(2, 1.05, 0))

	policy, err := NewSeverityPolicy([]string{"pad_near_pad", "missing_courtyard"})
	if err != nil {
		t.Fatalf("NewSeverityPolicy() error = %v", err)
	}
	r := &Runner{Board: b, Policy: policy}
	rs, err := r.RunTests(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	if got := rs.ByKind(ErrPadNearPad); len(got) != 0 {
		t.Errorf("ignored kind reached the result set (%d violations)", len(got))
	}
}

func TestSeverityPolicyRejectsUnknownName(t *testing.T) {
	if _, err := NewSeverityPolicy([]string{"not_a_kind"}); err == nil {
		t.Fatal("unknown kind name should be rejected")
	}
}

type cancelingProgress struct {
	after int
	calls int
}

func (p *cancelingProgress) Progress(string, int, int) { p.calls++ }
func (p *cancelingProgress) Canceled() bool            { return p.calls > p.after }

func TestCancellationStopsRun(t *testing.T) {
	b := testBoard()
	for i := 0; i < 3; i++ {
		tr := &board.Track{
			Start:   geometry.VecFromMM(float64(i*10), 0),
			End:     geometry.VecFromMM(float64(i*10+5), 0),
			Width:   geometry.FromMM(0.25),
			Layer:   board.LayerFrontCopper,
			NetCode: 1,
		}
		b.Tracks = append(b.Tracks, tr)
	}

	r := &Runner{Board: b, Progress: &cancelingProgress{after: 0}}
	rs, err := r.RunTests(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	if !rs.Canceled {
		t.Error("run should report cancellation")
	}
}

func TestContextCancellation(t *testing.T) {
	b := testBoard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Board: b}
	rs, err := r.RunTests(ctx, DefaultOptions())
	if err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	if !rs.Canceled {
		t.Error("canceled context should stop the run")
	}
}

func TestUnresolvedTextVariables(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Rev ${REVISION}", true},
		{"${A} and ${B}", true},
		{"plain text", false},
		{"dollar $ brace } apart", false},
		{"${unclosed", false},
	}
	for _, tt := range tests {
		if got := hasUnresolvedVar(tt.text); got != tt.want {
			t.Errorf("hasUnresolvedVar(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	b := testBoard()
	b.Texts = append(b.Texts, &board.Text{
		Text:    "Rev ${REVISION}",
		Pos:     geometry.VecFromMM(5, 5),
		Layer:   "F.SilkS",
		Visible: true,
		Size:    geometry.VecFromMM(1, 1),
	})
	rs := run(t, b, DefaultOptions())
	if got := rs.ByKind(ErrUnresolvedVariable); len(got) != 1 {
		t.Fatalf("got %d unresolved-variable violations, want 1", len(got))
	}
}

func TestDisabledLayerItems(t *testing.T) {
	b := testBoard()
	b.Settings.EnabledLayers = board.LayerSet{"F.Cu", "B.Cu"}
	b.Tracks = append(b.Tracks, &board.Track{
		Start:   geometry.VecFromMM(0, 0),
		End:     geometry.VecFromMM(5, 0),
		Width:   geometry.FromMM(0.25),
		Layer:   "In1.Cu",
		NetCode: 1,
	})

	rs := run(t, b, DefaultOptions())
	if got := rs.ByKind(ErrDisabledLayerItem); len(got) != 1 {
		t.Fatalf("got %d disabled-layer violations, want 1", len(got))
	}
}

func TestInvalidOutline(t *testing.T) {
	b := testBoard()
	// Two edge segments that do not close a ring.
	b.Graphics = append(b.Graphics,
		&board.Graphic{Shape: board.GraphicLine, Layer: board.LayerEdgeCuts,
			Start: geometry.VecFromMM(0, 0), End: geometry.VecFromMM(50, 0)},
		&board.Graphic{Shape: board.GraphicLine, Layer: board.LayerEdgeCuts,
			Start: geometry.VecFromMM(50, 0), End: geometry.VecFromMM(50, 30)},
	)

	rs := run(t, b, DefaultOptions())
	if got := rs.ByKind(ErrInvalidOutline); len(got) != 1 {
		t.Fatalf("got %d outline violations, want 1", len(got))
	}
}

type countingFiller struct {
	calls int
	err   error
}

func (f *countingFiller) Refill(*board.Board) error {
	f.calls++
	return f.err
}

func TestRefillSkippedOnNetClassFailure(t *testing.T) {
	b := testBoard()
	b.Settings.MinClearance = geometry.FromMM(0.2)
	b.Settings.NetClasses.Default.Clearance = geometry.FromMM(0.15)

	filler := &countingFiller{}
	r := &Runner{Board: b, Filler: filler}
	opts := DefaultOptions()
	opts.RefillZonesBeforeCheck = true

	if _, err := r.RunTests(context.Background(), opts); err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	if filler.calls != 0 {
		t.Errorf("filler ran %d times despite the net-class failure, want 0", filler.calls)
	}
}

func TestRefillRunsOnce(t *testing.T) {
	b := testBoard()
	filler := &countingFiller{}
	r := &Runner{Board: b, Filler: filler}
	opts := DefaultOptions()
	opts.RefillZonesBeforeCheck = true

	if _, err := r.RunTests(context.Background(), opts); err != nil {
		t.Fatalf("RunTests() error = %v", err)
	}
	if filler.calls != 1 {
		t.Errorf("filler ran %d times, want 1", filler.calls)
	}
}

func TestRefillErrorAborts(t *testing.T) {
	b := testBoard()
	filler := &countingFiller{err: errors.New("fill blew up")}
	r := &Runner{Board: b, Filler: filler}
	opts := DefaultOptions()
	opts.RefillZonesBeforeCheck = true

	if _, err := r.RunTests(context.Background(), opts); err == nil {
		t.Fatal("RunTests() should surface the refill error")
	}
}
