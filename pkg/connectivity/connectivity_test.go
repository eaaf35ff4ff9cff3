package connectivity

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

func smdPad(net int, x, y float64) *board.Pad {
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

func track(net int, x1, y1, x2, y2 float64) *board.Track {
	return &board.Track{
		Start:   geometry.VecFromMM(x1, y1),
		End:     geometry.VecFromMM(x2, y2),
		Width:   geometry.FromMM(0.25),
		Layer:   board.LayerFrontCopper,
		NetCode: net,
	}
}

func boardWith(items ...any) *board.Board {
	b := &board.Board{
		Layers: []board.Layer{
			{Number: 0, Name: "F.Cu", Type: "signal"},
			{Number: 31, Name: "B.Cu", Type: "signal"},
		},
		Nets: []board.Net{{Code: 0, Name: ""}, {Code: 1, Name: "GND"}, {Code: 2, Name: "VCC"}},
	}
	fp := &board.Footprint{Reference: "U1", Layer: board.LayerFrontCopper}
	for _, it := range items {
		switch v := it.(type) {
		case *board.Track:
			b.Tracks = append(b.Tracks, v)
		case *board.Via:
			b.Vias = append(b.Vias, v)
		case *board.Pad:
			v.Parent = fp
			fp.Pads = append(fp.Pads, v)
		}
	}
	if len(fp.Pads) > 0 {
		b.Footprints = append(b.Footprints, fp)
	}
	return b
}

func TestClustersJoinedByTrack(t *testing.T) {
	b := boardWith(
		smdPad(1, 0, 0),
		smdPad(1, 10, 0),
		track(1, 0, 0, 10, 0),
	)
	c := Build(b)

	if got := len(c.Clusters()); got != 1 {
		t.Fatalf("got %d clusters, want 1 fully connected", got)
	}
	if edges := c.UnconnectedEdges(); len(edges) != 0 {
		t.Errorf("got %d ratsnest edges, want 0", len(edges))
	}
}

func TestUnconnectedPads(t *testing.T) {
	b := boardWith(
		smdPad(1, 0, 0),
		smdPad(1, 10, 0),
		smdPad(1, 20, 0),
		track(1, 0, 0, 10, 0), // joins the first two only
	)
	c := Build(b)

	if got := len(c.Clusters()); got != 2 {
		t.Fatalf("got %d clusters, want 2", got)
	}
	edges := c.UnconnectedEdges()
	if len(edges) != 1 {
		t.Fatalf("got %d ratsnest edges, want 1", len(edges))
	}
	e := edges[0]
	if e.NetCode != 1 {
		t.Errorf("edge net = %d, want 1", e.NetCode)
	}
	// The isolated pad links to the nearest item of the joined cluster.
	if e.From != geometry.VecFromMM(20, 0) && e.To != geometry.VecFromMM(20, 0) {
		t.Errorf("edge %v - %v does not reach the isolated pad", e.From, e.To)
	}
}

func TestDifferentNetsNeverCluster(t *testing.T) {
	b := boardWith(
		smdPad(1, 0, 0),
		smdPad(2, 0.5, 0), // overlapping copper but a different net
	)
	c := Build(b)

	if got := len(c.Clusters()); got != 2 {
		t.Fatalf("got %d clusters, want 2", got)
	}
	if edges := c.UnconnectedEdges(); len(edges) != 0 {
		t.Errorf("single-cluster nets produced %d edges, want 0", len(edges))
	}
}

func TestViaJoinsLayers(t *testing.T) {
	via := &board.Via{
		Pos:       geometry.VecFromMM(10, 0),
		Size:      geometry.FromMM(0.8),
		Drill:     geometry.FromMM(0.4),
		LayerSpan: board.LayerSet{board.LayerFrontCopper, board.LayerBackCopper},
		NetCode:   1,
	}
	back := track(1, 10, 0, 20, 0)
	back.Layer = board.LayerBackCopper

	b := boardWith(track(1, 0, 0, 10, 0), via, back)
	c := Build(b)

	if got := len(c.Clusters()); got != 1 {
		t.Fatalf("got %d clusters, want 1 joined through the via", got)
	}
}

func TestPadCountForNet(t *testing.T) {
	b := boardWith(smdPad(1, 0, 0), smdPad(1, 10, 0), smdPad(2, 20, 0))
	c := Build(b)

	if got := c.PadCountForNet(1); got != 2 {
		t.Errorf("PadCountForNet(1) = %d, want 2", got)
	}
	if got := c.PadCountForNet(2); got != 1 {
		t.Errorf("PadCountForNet(2) = %d, want 1", got)
	}
	if got := c.PadCountForNet(99); got != 0 {
		t.Errorf("PadCountForNet(99) = %d, want 0", got)
	}
}

func TestTrackEndpointDangling(t *testing.T) {
	stub := track(1, 10, 0, 15, 0)
	b := boardWith(
		smdPad(1, 0, 0),
		track(1, 0, 0, 10, 0),
		stub,
	)
	c := Build(b)

	dangling, pos := c.TrackEndpointDangling(stub)
	if !dangling {
		t.Fatal("stub end should dangle")
	}
	if pos != geometry.VecFromMM(15, 0) {
		t.Errorf("dangling point = %v, want the free end", pos)
	}

	joined := b.Tracks[0]
	if dangling, _ := c.TrackEndpointDangling(joined); dangling {
		t.Error("track joined at both ends reported as dangling")
	}
}
