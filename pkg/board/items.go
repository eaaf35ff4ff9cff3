package board

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// Kind identifies a board item variant.
type Kind string

const (
	KindTrack     Kind = "track"
	KindVia       Kind = "via"
	KindPad       Kind = "pad"
	KindZone      Kind = "zone"
	KindFootprint Kind = "footprint"
	KindText      Kind = "text"
	KindGraphic   Kind = "graphic"
	KindBoard     Kind = "board"
)

// Item is the closed variant set of placed board objects the DRC engine
// inspects. Drivers consume items through this capability surface only:
// identity, position, layers, net membership and a flattened segment
// shape at a caller-supplied tolerance.
type Item interface {
	ItemKind() Kind
	Position() geometry.Vec
	Layers() LayerSet
	Net() int
	ToSegments(tol int64) []geometry.Seg
	String() string
}

func fmtVec(v geometry.Vec) string {
	return fmt.Sprintf("(%.3f, %.3f)", geometry.ToMM(v.X), geometry.ToMM(v.Y))
}

// Track represents a copper track segment.
type Track struct {
	Start   geometry.Vec
	End     geometry.Vec
	Width   int64
	Layer   string
	NetCode int
	Locked  bool
}

func (t *Track) ItemKind() Kind         { return KindTrack }
func (t *Track) Position() geometry.Vec { return t.Start }
func (t *Track) Layers() LayerSet       { return LayerSet{t.Layer} }
func (t *Track) Net() int               { return t.NetCode }
func (t *Track) Seg() geometry.Seg      { return geometry.Seg{A: t.Start, B: t.End} }
func (t *Track) ToSegments(int64) []geometry.Seg {
	return []geometry.Seg{t.Seg()}
}

func (t *Track) String() string {
	return fmt.Sprintf("track [%s] %s-%s", t.Layer, fmtVec(t.Start), fmtVec(t.End))
}

// ViaType distinguishes through, blind/buried and micro vias.
type ViaType int

const (
	ThroughVia ViaType = iota
	BlindVia
	MicroVia
)

// Via represents a via. LayerSpan holds every copper layer the barrel
// touches; the loader expands it from the declared layer pair using the
// board's copper stackup order.
type Via struct {
	Pos       geometry.Vec
	Size      int64
	Drill     int64
	Type      ViaType
	LayerSpan LayerSet
	NetCode   int
	Locked    bool
}

func (v *Via) ItemKind() Kind         { return KindVia }
func (v *Via) Position() geometry.Vec { return v.Pos }
func (v *Via) Layers() LayerSet       { return v.LayerSpan }
func (v *Via) Net() int               { return v.NetCode }

// ToSegments models the via as a zero-length segment at its center; the
// barrel diameter is applied by callers as a width.
func (v *Via) ToSegments(int64) []geometry.Seg {
	return []geometry.Seg{{A: v.Pos, B: v.Pos}}
}

func (v *Via) String() string {
	return fmt.Sprintf("via %s", fmtVec(v.Pos))
}

// PadShape enumerates the supported pad outlines.
type PadShape string

const (
	PadShapeCircle    PadShape = "circle"
	PadShapeOval      PadShape = "oval"
	PadShapeRect      PadShape = "rect"
	PadShapeRoundRect PadShape = "roundrect"
	PadShapeTrapezoid PadShape = "trapezoid"
	PadShapeCustom    PadShape = "custom"
)

// Pad represents a footprint pad. Position and rotation are absolute
// (the loader applies the footprint transform).
type Pad struct {
	Number         string
	Type           string // thru_hole, smd, np_thru_hole, connect
	Shape          PadShape
	Pos            geometry.Vec
	Rotation       float64 // degrees
	Size           geometry.Vec
	DrillW         int64 // 0 when the pad has no hole
	DrillH         int64
	DrillOblong    bool
	LayerNames     LayerSet
	NetCode        int
	LocalClearance int64 // per-pad clearance override, 0 = none
	Parent         *Footprint
}

func (p *Pad) ItemKind() Kind         { return KindPad }
func (p *Pad) Position() geometry.Vec { return p.Pos }
func (p *Pad) Layers() LayerSet       { return p.LayerNames }
func (p *Pad) Net() int               { return p.NetCode }

func (p *Pad) String() string {
	ref := "?"
	if p.Parent != nil {
		ref = p.Parent.Reference
	}
	return fmt.Sprintf("pad %s of %s %s", p.Number, ref, fmtVec(p.Pos))
}

// HasDrill reports whether the pad has a hole.
func (p *Pad) HasDrill() bool {
	return p.DrillW > 0
}

// BoundingRadius returns the radius of the smallest circle centered on
// the pad position that fully contains the pad.
func (p *Pad) BoundingRadius() int64 {
	switch p.Shape {
	case PadShapeCircle:
		return p.Size.X / 2
	case PadShapeOval:
		return max64(p.Size.X, p.Size.Y) / 2
	default:
		// Rectangle-family: half diagonal
		w := float64(p.Size.X)
		h := float64(p.Size.Y)
		return int64(math.Ceil(math.Sqrt(w*w+h*h) / 2))
	}
}

// Polygon returns the pad outline as a polygon set at the pad's absolute
// position and rotation. Curved outlines are flattened at tol.
func (p *Pad) Polygon(tol int64) geometry.PolySet {
	switch p.Shape {
	case PadShapeCircle:
		return geometry.PolySetFromRing(geometry.CirclePolygon(p.Pos, p.Size.X/2, tol))

	case PadShapeOval:
		return geometry.PolySetFromRing(stadiumPolygon(p.Pos, p.Size, p.Rotation, tol))

	default:
		// Rectangle-family shapes share the rotated-corner outline.
		hw, hh := p.Size.X/2, p.Size.Y/2
		corners := []geometry.Vec{
			{X: -hw, Y: -hh},
			{X: hw, Y: -hh},
			{X: hw, Y: hh},
			{X: -hw, Y: hh},
		}
		ring := make(geometry.Polygon, len(corners))
		for i, c := range corners {
			ring[i] = p.Pos.Add(c.Rotate(p.Rotation))
		}
		return geometry.PolySetFromRing(ring)
	}
}

// HoleAsPad returns a synthetic pad shaped like this pad's drill hole,
// present on every copper layer. Holes penetrate all copper, so hole
// clearance reuses the pad-to-pad shape test against this stand-in.
func (p *Pad) HoleAsPad(allCopper LayerSet) *Pad {
	shape := PadShapeCircle
	if p.DrillOblong {
		shape = PadShapeOval
	}
	return &Pad{
		Number:     p.Number,
		Type:       p.Type,
		Shape:      shape,
		Pos:        p.Pos,
		Rotation:   p.Rotation,
		Size:       geometry.Vec{X: p.DrillW, Y: p.DrillH},
		LayerNames: allCopper,
		NetCode:    p.NetCode,
		Parent:     p.Parent,
	}
}

// ToSegments returns the pad outline edges flattened at tol.
func (p *Pad) ToSegments(tol int64) []geometry.Seg {
	return p.Polygon(tol).Segments()
}

// stadiumPolygon builds the outline of an oval (stadium) pad.
func stadiumPolygon(center geometry.Vec, size geometry.Vec, rotation float64, tol int64) geometry.Polygon {
	w, h := size.X, size.Y
	if w == h {
		return geometry.CirclePolygon(center, w/2, tol)
	}

	// Normalize to a horizontal stadium, then rotate into place.
	long, short := w, h
	extraRot := 0.0
	if h > w {
		long, short = h, w
		extraRot = 90
	}
	r := short / 2
	half := (long - short) / 2

	right := geometry.Vec{X: half, Y: 0}
	left := geometry.Vec{X: -half, Y: 0}

	var ring geometry.Polygon
	appendArc := func(c geometry.Vec, from, sweep float64) {
		n := len(geometry.CircleToSegments(geometry.Vec{}, r, tol))
		steps := n / 2
		if steps < 4 {
			steps = 4
		}
		for i := 0; i <= steps; i++ {
			a := (from + sweep*float64(i)/float64(steps)) * math.Pi / 180
			ring = append(ring, geometry.Vec{
				X: c.X + int64(math.Round(float64(r)*math.Cos(a))),
				Y: c.Y + int64(math.Round(float64(r)*math.Sin(a))),
			})
		}
	}
	appendArc(right, -90, 180)
	appendArc(left, 90, 180)

	rot := rotation + extraRot
	out := make(geometry.Polygon, len(ring))
	for i, v := range ring {
		out[i] = center.Add(v.Rotate(rot))
	}
	return out
}

// Footprint represents a placed component footprint. Child positions are
// absolute.
type Footprint struct {
	Library   string
	Name      string
	Reference string
	Value     string
	Layer     string // F.Cu or B.Cu
	Pos       geometry.Vec
	Rotation  float64
	Pads      []*Pad
	Texts     []*Text
	Graphics  []*Graphic
}

func (fp *Footprint) ItemKind() Kind         { return KindFootprint }
func (fp *Footprint) Position() geometry.Vec { return fp.Pos }
func (fp *Footprint) Layers() LayerSet       { return LayerSet{fp.Layer} }
func (fp *Footprint) Net() int               { return 0 }

func (fp *Footprint) String() string {
	return fmt.Sprintf("footprint %s (%s)", fp.Reference, fp.Value)
}

// Flipped reports whether the footprint sits on the back of the board.
func (fp *Footprint) Flipped() bool {
	return fp.Layer == LayerBackCopper
}

// ToSegments returns the footprint's graphic edges.
func (fp *Footprint) ToSegments(tol int64) []geometry.Seg {
	var out []geometry.Seg
	for _, g := range fp.Graphics {
		out = append(out, g.ToSegments(tol)...)
	}
	return out
}

// BoundingBox covers all pads and graphics.
func (fp *Footprint) BoundingBox() geometry.Rect {
	r := geometry.NewRect()
	for _, p := range fp.Pads {
		r.ExpandRect(geometry.RectAround(p.Pos, p.BoundingRadius()))
	}
	for _, g := range fp.Graphics {
		for _, s := range g.ToSegments(geometry.FromMM(0.1)) {
			r.Expand(s.A)
			r.Expand(s.B)
		}
	}
	if r.IsEmpty() {
		r.Expand(fp.Pos)
	}
	return r
}

// BoundingPolygon returns the bounding box as a ring, used as a courtyard
// fallback when the footprint has no courtyard layer graphics.
func (fp *Footprint) BoundingPolygon() geometry.Polygon {
	r := fp.BoundingBox()
	return geometry.Polygon{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// CourtyardLayer returns the courtyard layer matching the footprint's
// side: B.CrtYd when flipped, F.CrtYd otherwise.
func (fp *Footprint) CourtyardLayer() string {
	if fp.Flipped() {
		return LayerBackCourtyard
	}
	return LayerFrontCourtyard
}

// Zone represents a filled copper zone or a keepout area.
type Zone struct {
	NetName      string
	NetCode      int
	Layer        string
	Priority     int
	Keepout      bool
	NoTracks     bool
	NoVias       bool
	NoPads       bool
	NoFootprints bool
	Outline      geometry.Polygon
	Fills        []geometry.Polygon
	MinThickness int64
}

func (z *Zone) ItemKind() Kind   { return KindZone }
func (z *Zone) Layers() LayerSet { return LayerSet{z.Layer} }
func (z *Zone) Net() int         { return z.NetCode }

func (z *Zone) Position() geometry.Vec {
	if len(z.Outline) > 0 {
		return z.Outline[0]
	}
	return geometry.Vec{}
}

func (z *Zone) String() string {
	role := "zone"
	if z.Keepout {
		role = "keepout"
	}
	return fmt.Sprintf("%s [%s] net %q", role, z.Layer, z.NetName)
}

// IsOnCopperLayer reports whether the zone lives on a copper layer.
func (z *Zone) IsOnCopperLayer() bool {
	return IsCopperLayerName(z.Layer)
}

// OutlineSet returns the editing outline as a polygon set.
func (z *Zone) OutlineSet() geometry.PolySet {
	return geometry.PolySetFromRing(z.Outline)
}

// FilledSet returns the fill polygons when present, otherwise the
// outline. Keepouts have no fill and always use the outline.
func (z *Zone) FilledSet() geometry.PolySet {
	if len(z.Fills) == 0 {
		return z.OutlineSet()
	}
	ps := geometry.PolySet{}
	for _, f := range z.Fills {
		ps.Outlines = append(ps.Outlines, geometry.Outline{Ring: f})
	}
	return ps
}

// ToSegments returns the zone outline edges.
func (z *Zone) ToSegments(int64) []geometry.Seg {
	return z.Outline.Segments()
}

// Text represents a text item on the board or inside a footprint.
type Text struct {
	Text      string
	Role      string // "user", "reference", "value"
	Pos       geometry.Vec
	Rotation  float64
	Layer     string
	Size      geometry.Vec // character width, height
	Thickness int64        // stroke pen width
	Visible   bool
	Parent    *Footprint
}

func (t *Text) ItemKind() Kind         { return KindText }
func (t *Text) Position() geometry.Vec { return t.Pos }
func (t *Text) Layers() LayerSet       { return LayerSet{t.Layer} }
func (t *Text) Net() int               { return 0 }

func (t *Text) String() string {
	return fmt.Sprintf("text %q [%s]", t.Text, t.Layer)
}

// PenWidth returns the effective stroke width of the text.
func (t *Text) PenWidth() int64 {
	if t.Thickness > 0 {
		return t.Thickness
	}
	// Stroke fonts default to size/8, pcbnew's effective pen width rule.
	return t.Size.Y / 8
}

// BoundingBox estimates the text extent from the character cell size.
// Stroke glyph metrics average ~0.9 cell widths of advance per rune.
func (t *Text) BoundingBox() geometry.Rect {
	n := int64(len([]rune(t.Text)))
	if n == 0 {
		n = 1
	}
	halfW := n * t.Size.X * 9 / 20
	halfH := t.Size.Y / 2

	corners := []geometry.Vec{
		{X: -halfW, Y: -halfH},
		{X: halfW, Y: -halfH},
		{X: halfW, Y: halfH},
		{X: -halfW, Y: halfH},
	}
	r := geometry.NewRect()
	for _, c := range corners {
		r.Expand(t.Pos.Add(c.Rotate(t.Rotation)))
	}
	return r
}

// ToSegments returns a stroke outline standing in for the rendered glyph
// strokes: the rotated text box edges plus its diagonals, so items
// passing anywhere through the text area are caught.
func (t *Text) ToSegments(int64) []geometry.Seg {
	n := int64(len([]rune(t.Text)))
	if n == 0 {
		return nil
	}
	halfW := n * t.Size.X * 9 / 20
	halfH := t.Size.Y / 2

	local := []geometry.Vec{
		{X: -halfW, Y: -halfH},
		{X: halfW, Y: -halfH},
		{X: halfW, Y: halfH},
		{X: -halfW, Y: halfH},
	}
	abs := make([]geometry.Vec, len(local))
	for i, c := range local {
		abs[i] = t.Pos.Add(c.Rotate(t.Rotation))
	}

	return []geometry.Seg{
		{A: abs[0], B: abs[1]},
		{A: abs[1], B: abs[2]},
		{A: abs[2], B: abs[3]},
		{A: abs[3], B: abs[0]},
		{A: abs[0], B: abs[2]},
		{A: abs[1], B: abs[3]},
	}
}

// GraphicShape enumerates drawable graphic primitives.
type GraphicShape string

const (
	GraphicLine   GraphicShape = "line"
	GraphicArc    GraphicShape = "arc"
	GraphicCircle GraphicShape = "circle"
	GraphicRect   GraphicShape = "rect"
	GraphicPoly   GraphicShape = "poly"
	GraphicCurve  GraphicShape = "curve"
)

// Graphic represents a drawn segment, arc, circle, rectangle, polygon or
// bezier curve, on the board or inside a footprint.
type Graphic struct {
	Shape  GraphicShape
	Layer  string
	Width  int64
	Start  geometry.Vec // line/rect start, arc start
	End    geometry.Vec // line/rect end, arc end, circle circumference point
	Mid    geometry.Vec // arc mid point
	Center geometry.Vec // circle center
	Points geometry.Polygon
	Ctrl1  geometry.Vec // bezier control points
	Ctrl2  geometry.Vec
	Parent *Footprint
}

func (g *Graphic) ItemKind() Kind   { return KindGraphic }
func (g *Graphic) Layers() LayerSet { return LayerSet{g.Layer} }
func (g *Graphic) Net() int         { return 0 }

func (g *Graphic) Position() geometry.Vec {
	switch g.Shape {
	case GraphicCircle:
		return g.Center
	case GraphicPoly:
		if len(g.Points) > 0 {
			return g.Points[0]
		}
		return geometry.Vec{}
	default:
		return g.Start
	}
}

func (g *Graphic) String() string {
	return fmt.Sprintf("%s [%s] %s", g.Shape, g.Layer, fmtVec(g.Position()))
}

// Radius returns the circle radius from center and circumference point.
func (g *Graphic) Radius() int64 {
	return int64(math.Round(g.End.Sub(g.Center).Length()))
}

// ToSegments flattens the graphic into line segments at tol.
func (g *Graphic) ToSegments(tol int64) []geometry.Seg {
	switch g.Shape {
	case GraphicLine:
		return []geometry.Seg{{A: g.Start, B: g.End}}

	case GraphicArc:
		return geometry.ArcToSegments(g.Start, g.Mid, g.End, tol)

	case GraphicCircle:
		return geometry.CircleToSegments(g.Center, g.Radius(), tol)

	case GraphicRect:
		a := g.Start
		c := g.End
		b := geometry.Vec{X: c.X, Y: a.Y}
		d := geometry.Vec{X: a.X, Y: c.Y}
		return []geometry.Seg{{A: a, B: b}, {A: b, B: c}, {A: c, B: d}, {A: d, B: a}}

	case GraphicPoly:
		return g.Points.Segments()

	case GraphicCurve:
		return geometry.BezierToSegments(g.Start, g.Ctrl1, g.Ctrl2, g.End, tol)

	default:
		return nil
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
