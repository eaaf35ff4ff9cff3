package board

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// Board represents a complete PCB as the DRC engine sees it.
type Board struct {
	Version   int    // File format version
	Generator string // Generator info (e.g., "pcbnew")

	Layers   []Layer
	Nets     []Net
	Settings DesignSettings

	Tracks     []*Track
	Vias       []*Via
	Footprints []*Footprint
	Zones      []*Zone
	Texts      []*Text    // Board-level text items
	Graphics   []*Graphic // Board-level graphic items
}

// NetByCode returns the net with the given code.
func (b *Board) NetByCode(code int) (*Net, bool) {
	for i := range b.Nets {
		if b.Nets[i].Code == code {
			return &b.Nets[i], true
		}
	}
	return nil, false
}

// NetName returns the name of the net with the given code, or "" when
// unknown.
func (b *Board) NetName(code int) string {
	if n, ok := b.NetByCode(code); ok {
		return n.Name
	}
	return ""
}

// ClassForNet resolves a net code to its net class, falling back to the
// Default class.
func (b *Board) ClassForNet(code int) *NetClass {
	if b.Settings.NetClasses == nil {
		return nil
	}
	return b.Settings.NetClasses.ForNetName(b.NetName(code))
}

// CopperLayers returns the board's copper layers in stackup order.
func (b *Board) CopperLayers() LayerSet {
	var out LayerSet
	for _, l := range b.Layers {
		if IsCopperLayerName(l.Name) {
			out = append(out, l.Name)
		}
	}
	if len(out) == 0 {
		out = LayerSet{LayerFrontCopper, LayerBackCopper}
	}
	return out
}

// CopperSpan returns the copper layers between top and bottom inclusive,
// in stackup order. Unknown names yield just the endpoints.
func (b *Board) CopperSpan(top, bottom string) LayerSet {
	copper := b.CopperLayers()
	i1, i2 := -1, -1
	for i, name := range copper {
		if name == top {
			i1 = i
		}
		if name == bottom {
			i2 = i
		}
	}
	if i1 < 0 || i2 < 0 {
		return LayerSet{top, bottom}
	}
	if i1 > i2 {
		i1, i2 = i2, i1
	}
	return append(LayerSet(nil), copper[i1:i2+1]...)
}

// AllPads returns every pad of every footprint, in footprint order.
func (b *Board) AllPads() []*Pad {
	var pads []*Pad
	for _, fp := range b.Footprints {
		pads = append(pads, fp.Pads...)
	}
	return pads
}

// SortedPads returns all pads ordered by x then y coordinate, the order
// the pad-to-pad spatial filter scans in.
func (b *Board) SortedPads() []*Pad {
	pads := b.AllPads()
	sort.SliceStable(pads, func(i, j int) bool {
		if pads[i].Pos.X != pads[j].Pos.X {
			return pads[i].Pos.X < pads[j].Pos.X
		}
		return pads[i].Pos.Y < pads[j].Pos.Y
	})
	return pads
}

// AllZones returns board zones; keepouts included.
func (b *Board) AllZones() []*Zone {
	return b.Zones
}

// EdgeCuts returns the board outline graphics.
func (b *Board) EdgeCuts() []*Graphic {
	var out []*Graphic
	for _, g := range b.Graphics {
		if g.Layer == LayerEdgeCuts {
			out = append(out, g)
		}
	}
	return out
}

// OutlineRings chains the Edge.Cuts graphics into closed rings. The
// error reports an open outline, with the location of the break.
func (b *Board) OutlineRings(tol int64) ([]geometry.Polygon, error) {
	var segs []geometry.Seg
	for _, g := range b.EdgeCuts() {
		segs = append(segs, g.ToSegments(tol)...)
	}
	return ChainRings(segs)
}

// BoundingBox calculates the bounding box of the entire board.
func (b *Board) BoundingBox() geometry.Rect {
	bbox := geometry.NewRect()

	for _, t := range b.Tracks {
		bbox.Expand(t.Start)
		bbox.Expand(t.End)
	}
	for _, v := range b.Vias {
		bbox.ExpandRect(geometry.RectAround(v.Pos, v.Size/2))
	}
	for _, fp := range b.Footprints {
		bbox.ExpandRect(fp.BoundingBox())
	}
	for _, z := range b.Zones {
		bbox.ExpandRect(z.Outline.BoundingRect())
	}
	for _, g := range b.Graphics {
		for _, s := range g.ToSegments(geometry.FromMM(0.1)) {
			bbox.Expand(s.A)
			bbox.Expand(s.B)
		}
	}
	for _, t := range b.Texts {
		bbox.ExpandRect(t.BoundingBox())
	}

	return bbox
}

// AllTexts returns board texts plus visible footprint texts.
func (b *Board) AllTexts() []*Text {
	out := append([]*Text(nil), b.Texts...)
	for _, fp := range b.Footprints {
		out = append(out, fp.Texts...)
	}
	return out
}
