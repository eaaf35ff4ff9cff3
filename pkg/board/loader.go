package board

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/sexpr"
)

// ParseFile reads and parses a KiCad board file.
func ParseFile(filename string) (*Board, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad board from an io.Reader.
func Parse(r io.Reader) (*Board, error) {
	nodes, err := sexpr.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse s-expression: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty file or no valid s-expressions found")
	}

	root := nodes[0]
	if root.Name() != "kicad_pcb" {
		return nil, fmt.Errorf("not a KiCad PCB file: expected 'kicad_pcb', got %q", root.Name())
	}

	b := &Board{
		Settings: DefaultDesignSettings(),
	}

	if err := parseHeader(root, b); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if layersNode, ok := root.Child("layers"); ok {
		layers, err := parseLayers(layersNode)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layers section: %w", err)
		}
		b.Layers = layers
		for _, l := range layers {
			b.Settings.EnabledLayers = append(b.Settings.EnabledLayers, l.Name)
		}
	}

	if setupNode, ok := root.Child("setup"); ok {
		parseSetup(setupNode, &b.Settings)
	}

	if err := parseNets(root, b); err != nil {
		return nil, fmt.Errorf("failed to parse nets: %w", err)
	}

	if err := parseNetClasses(root, b); err != nil {
		return nil, fmt.Errorf("failed to parse net classes: %w", err)
	}

	for _, n := range root.ChildrenNamed("segment") {
		t, err := parseTrack(n)
		if err != nil {
			return nil, fmt.Errorf("failed to parse track: %w", err)
		}
		b.Tracks = append(b.Tracks, t)
	}

	for _, n := range root.ChildrenNamed("via") {
		v, err := parseVia(n, b)
		if err != nil {
			return nil, fmt.Errorf("failed to parse via: %w", err)
		}
		b.Vias = append(b.Vias, v)
	}

	// Footprints: "footprint" since v6, "module" in v5 files
	fpNodes := root.ChildrenNamed("footprint")
	fpNodes = append(fpNodes, root.ChildrenNamed("module")...)
	for _, n := range fpNodes {
		fp, err := parseFootprint(n)
		if err != nil {
			return nil, fmt.Errorf("failed to parse footprint: %w", err)
		}
		b.Footprints = append(b.Footprints, fp)
	}

	for _, n := range root.ChildrenNamed("zone") {
		zones, err := parseZone(n)
		if err != nil {
			return nil, fmt.Errorf("failed to parse zone: %w", err)
		}
		b.Zones = append(b.Zones, zones...)
	}

	parseBoardGraphics(root, b)

	return b, nil
}

// parseHeader extracts version and generator information.
// Expected format: (kicad_pcb (version 20211014) (generator pcbnew) ...)
func parseHeader(root *sexpr.Node, b *Board) error {
	versionNode, ok := root.Child("version")
	if !ok {
		return fmt.Errorf("missing required 'version' field")
	}
	ver, err := versionNode.Int(1)
	if err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	b.Version = ver

	gen := "unknown"
	if hostNode, ok := root.Child("host"); ok {
		if tool, err := hostNode.String(1); err == nil {
			gen = tool
		}
	} else if genNode, ok := root.Child("generator"); ok {
		if name, err := genNode.String(1); err == nil {
			gen = name
		}
	}
	b.Generator = gen
	return nil
}

// parseLayers extracts layer definitions.
// Expected format: (layers (0 "F.Cu" signal) (31 "B.Cu" signal) ...)
func parseLayers(node *sexpr.Node) ([]Layer, error) {
	var layers []Layer
	for _, ln := range node.Args() {
		if ln.IsLeaf() {
			continue
		}
		number, err := ln.Int(0)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layer number: %w", err)
		}
		name, err := ln.String(1)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layer name: %w", err)
		}
		layerType, err := ln.String(2)
		if err != nil {
			layerType = "user"
		}
		layers = append(layers, Layer{Number: number, Name: name, Type: layerType})
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("no layers defined")
	}
	return layers, nil
}

// parseSetup fills the numeric floors the board file declares; missing
// fields keep their defaults.
func parseSetup(node *sexpr.Node, ds *DesignSettings) {
	read := func(name string, dst *int64) {
		if mm, err := node.FloatChild(name, -1); err == nil && mm >= 0 {
			*dst = geometry.FromMM(mm)
		}
	}
	read("min_clearance", &ds.MinClearance)
	read("trace_min", &ds.TrackMinWidth)
	read("via_min_size", &ds.ViasMinSize)
	read("via_min_drill", &ds.MinThroughDrill)
	read("via_min_annulus", &ds.ViasMinAnnulus)
	read("uvia_min_size", &ds.MicroViasMinSize)
	read("uvia_min_drill", &ds.MicroViasMinDrill)
	read("hole_to_hole_min", &ds.HoleToHoleMin)
}

// parseNets extracts net declarations: (net 1 "GND")
func parseNets(root *sexpr.Node, b *Board) error {
	for _, n := range root.ChildrenNamed("net") {
		code, err := n.Int(1)
		if err != nil {
			return fmt.Errorf("failed to parse net number: %w", err)
		}
		name := ""
		if s, err := n.String(2); err == nil {
			name = s
		}
		b.Nets = append(b.Nets, Net{Code: code, Name: name})
	}
	return nil
}

// parseNetClasses extracts (net_class "name" "description" ...) blocks.
func parseNetClasses(root *sexpr.Node, b *Board) error {
	for _, n := range root.ChildrenNamed("net_class") {
		name, err := n.String(1)
		if err != nil {
			return fmt.Errorf("failed to parse net class name: %w", err)
		}

		nc := &NetClass{Name: name}
		if desc, err := n.String(2); err == nil {
			nc.Description = desc
		}

		readMM := func(field string, dst *int64) error {
			mm, err := n.FloatChild(field, -1)
			if err != nil {
				return err
			}
			if mm >= 0 {
				*dst = geometry.FromMM(mm)
			}
			return nil
		}
		for field, dst := range map[string]*int64{
			"clearance":   &nc.Clearance,
			"trace_width": &nc.TrackWidth,
			"via_dia":     &nc.ViaDiameter,
			"via_drill":   &nc.ViaDrill,
			"uvia_dia":    &nc.UViaDiameter,
			"uvia_drill":  &nc.UViaDrill,
		} {
			if err := readMM(field, dst); err != nil {
				return fmt.Errorf("net class %q: %w", name, err)
			}
		}

		for _, an := range n.ChildrenNamed("add_net") {
			if netName, err := an.String(1); err == nil {
				nc.Nets = append(nc.Nets, netName)
			}
		}

		b.Settings.NetClasses.Add(nc)
	}
	return nil
}

// parseVec reads (key x y ...) as a position in millimeters.
func parseVec(n *sexpr.Node) (geometry.Vec, error) {
	x, err := n.Float(1)
	if err != nil {
		return geometry.Vec{}, err
	}
	y, err := n.Float(2)
	if err != nil {
		return geometry.Vec{}, err
	}
	return geometry.VecFromMM(x, y), nil
}

// parseAt reads (at x y [rot]).
func parseAt(parent *sexpr.Node) (geometry.Vec, float64, error) {
	at, ok := parent.Child("at")
	if !ok {
		return geometry.Vec{}, 0, fmt.Errorf("line %d: missing 'at'", parent.Line)
	}
	pos, err := parseVec(at)
	if err != nil {
		return geometry.Vec{}, 0, err
	}
	rot := 0.0
	if r, err := at.Float(3); err == nil {
		rot = r
	}
	return pos, rot, nil
}

// parseTrack reads (segment (start x y) (end x y) (width w) (layer "F.Cu") (net n))
func parseTrack(n *sexpr.Node) (*Track, error) {
	startNode, ok := n.Child("start")
	if !ok {
		return nil, fmt.Errorf("line %d: segment missing 'start'", n.Line)
	}
	start, err := parseVec(startNode)
	if err != nil {
		return nil, err
	}

	endNode, ok := n.Child("end")
	if !ok {
		return nil, fmt.Errorf("line %d: segment missing 'end'", n.Line)
	}
	end, err := parseVec(endNode)
	if err != nil {
		return nil, err
	}

	widthMM, err := n.FloatChild("width", 0)
	if err != nil {
		return nil, err
	}
	layer, err := n.StringChild("layer", "")
	if err != nil {
		return nil, err
	}

	t := &Track{
		Start:  start,
		End:    end,
		Width:  geometry.FromMM(widthMM),
		Layer:  layer,
		Locked: n.HasSymbol("locked"),
	}
	if netNode, ok := n.Child("net"); ok {
		if code, err := netNode.Int(1); err == nil {
			t.NetCode = code
		}
	}
	return t, nil
}

// parseVia reads (via [micro|blind] (at x y) (size s) (drill d) (layers a b) (net n))
func parseVia(n *sexpr.Node, b *Board) (*Via, error) {
	pos, _, err := parseAt(n)
	if err != nil {
		return nil, err
	}
	sizeMM, err := n.FloatChild("size", 0)
	if err != nil {
		return nil, err
	}
	drillMM, err := n.FloatChild("drill", 0)
	if err != nil {
		return nil, err
	}

	v := &Via{
		Pos:    pos,
		Size:   geometry.FromMM(sizeMM),
		Drill:  geometry.FromMM(drillMM),
		Locked: n.HasSymbol("locked"),
	}
	switch {
	case n.HasSymbol("micro"):
		v.Type = MicroVia
	case n.HasSymbol("blind"):
		v.Type = BlindVia
	}

	top, bottom := LayerFrontCopper, LayerBackCopper
	if layersNode, ok := n.Child("layers"); ok {
		if s, err := layersNode.String(1); err == nil {
			top = s
		}
		if s, err := layersNode.String(2); err == nil {
			bottom = s
		}
	}
	if v.Type == ThroughVia {
		v.LayerSpan = b.CopperLayers()
	} else {
		v.LayerSpan = b.CopperSpan(top, bottom)
	}

	if netNode, ok := n.Child("net"); ok {
		if code, err := netNode.Int(1); err == nil {
			v.NetCode = code
		}
	}
	return v, nil
}

// parseFootprint reads a (footprint ...) or (module ...) block and
// transforms all children to absolute board coordinates.
func parseFootprint(n *sexpr.Node) (*Footprint, error) {
	fp := &Footprint{}

	if id, err := n.String(1); err == nil {
		fp.Library, fp.Name = splitLibID(id)
	}

	layer, err := n.StringChild("layer", LayerFrontCopper)
	if err != nil {
		return nil, err
	}
	fp.Layer = layer

	pos, rot, err := parseAt(n)
	if err != nil {
		return nil, err
	}
	fp.Pos = pos
	fp.Rotation = rot

	for _, tn := range n.ChildrenNamed("fp_text") {
		t, err := parseFpText(tn, fp)
		if err != nil {
			return nil, err
		}
		fp.Texts = append(fp.Texts, t)
		switch t.Role {
		case "reference":
			fp.Reference = t.Text
		case "value":
			fp.Value = t.Text
		}
	}

	// property is the v7+ encoding of reference/value
	for _, pn := range n.ChildrenNamed("property") {
		key, err1 := pn.String(1)
		val, err2 := pn.String(2)
		if err1 != nil || err2 != nil {
			continue
		}
		switch key {
		case "Reference":
			fp.Reference = val
		case "Value":
			fp.Value = val
		}
	}

	for _, pn := range n.ChildrenNamed("pad") {
		pad, err := parsePad(pn, fp)
		if err != nil {
			return nil, err
		}
		fp.Pads = append(fp.Pads, pad)
	}

	for _, gname := range []string{"fp_line", "fp_arc", "fp_circle", "fp_rect", "fp_poly", "fp_curve"} {
		for _, gn := range n.ChildrenNamed(gname) {
			g, err := parseGraphic(gn, gname[3:])
			if err != nil {
				return nil, err
			}
			transformGraphic(g, fp)
			g.Parent = fp
			fp.Graphics = append(fp.Graphics, g)
		}
	}

	return fp, nil
}

func splitLibID(id string) (lib, name string) {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[:i], id[i+1:]
		}
	}
	return "", id
}

// fpLocal transforms a footprint-frame point to board coordinates.
// Back-side footprints are mirrored across the x axis before rotation.
// File angles are counterclockwise on screen while y grows downward,
// which flips the rotation sign.
func fpLocal(fp *Footprint, local geometry.Vec) geometry.Vec {
	if fp.Flipped() {
		local.Y = -local.Y
	}
	return fp.Pos.Add(local.Rotate(-fp.Rotation))
}

// parseFpText reads (fp_text reference "R1" (at x y [rot]) (layer ...) [hide] (effects ...))
func parseFpText(n *sexpr.Node, fp *Footprint) (*Text, error) {
	role, err := n.String(1)
	if err != nil {
		return nil, err
	}
	content, err := n.String(2)
	if err != nil {
		return nil, err
	}

	pos, rot, err := parseAt(n)
	if err != nil {
		return nil, err
	}

	t := &Text{
		Text:     content,
		Role:     role,
		Pos:      fpLocal(fp, pos),
		Rotation: rot,
		Visible:  !n.HasSymbol("hide"),
		Parent:   fp,
		Size:     geometry.VecFromMM(1.0, 1.0),
	}
	if layer, err := n.StringChild("layer", ""); err == nil {
		t.Layer = layer
	}
	parseTextEffects(n, t)
	return t, nil
}

// parseTextEffects fills font size and stroke thickness from (effects (font ...)).
func parseTextEffects(n *sexpr.Node, t *Text) {
	effects, ok := n.Child("effects")
	if !ok {
		return
	}
	font, ok := effects.Child("font")
	if !ok {
		return
	}
	if sizeNode, ok := font.Child("size"); ok {
		if v, err := parseVec(sizeNode); err == nil {
			t.Size = v
		}
	}
	if mm, err := font.FloatChild("thickness", 0); err == nil && mm > 0 {
		t.Thickness = geometry.FromMM(mm)
	}
}

// parsePad reads a (pad ...) block and resolves its absolute position.
func parsePad(n *sexpr.Node, fp *Footprint) (*Pad, error) {
	number, err := n.String(1)
	if err != nil {
		return nil, err
	}
	padType, err := n.String(2)
	if err != nil {
		return nil, err
	}
	shape, err := n.String(3)
	if err != nil {
		return nil, err
	}

	local, rot, err := parseAt(n)
	if err != nil {
		return nil, err
	}

	p := &Pad{
		Number:   number,
		Type:     padType,
		Shape:    PadShape(shape),
		Pos:      fpLocal(fp, local),
		Rotation: rot,
		Parent:   fp,
	}

	if sizeNode, ok := n.Child("size"); ok {
		if v, err := parseVec(sizeNode); err == nil {
			p.Size = v
		}
	}

	if drillNode, ok := n.Child("drill"); ok {
		if drillNode.HasSymbol("oval") {
			p.DrillOblong = true
			if w, err := drillNode.Float(2); err == nil {
				p.DrillW = geometry.FromMM(w)
			}
			if h, err := drillNode.Float(3); err == nil {
				p.DrillH = geometry.FromMM(h)
			} else {
				p.DrillH = p.DrillW
			}
		} else if w, err := drillNode.Float(1); err == nil {
			p.DrillW = geometry.FromMM(w)
			p.DrillH = p.DrillW
		}
	}

	if layersNode, ok := n.Child("layers"); ok {
		for _, ln := range layersNode.Args() {
			if ln.IsLeaf() {
				p.LayerNames = append(p.LayerNames, expandWildcardLayer(ln.Value)...)
			}
		}
	}

	if netNode, ok := n.Child("net"); ok {
		if code, err := netNode.Int(1); err == nil {
			p.NetCode = code
		}
	}

	if mm, err := n.FloatChild("clearance", 0); err == nil && mm > 0 {
		p.LocalClearance = geometry.FromMM(mm)
	}

	return p, nil
}

// expandWildcardLayer resolves the "*.Cu" / "*.Mask" wildcards pads use.
func expandWildcardLayer(name string) LayerSet {
	switch name {
	case "*.Cu":
		return LayerSet{LayerFrontCopper, LayerBackCopper}
	case "*.Mask":
		return LayerSet{"F.Mask", "B.Mask"}
	default:
		return LayerSet{name}
	}
}

// parseZone reads a (zone ...) block. Zones declaring several layers are
// expanded into one Zone per layer.
func parseZone(n *sexpr.Node) ([]*Zone, error) {
	z := &Zone{}

	if netNode, ok := n.Child("net"); ok {
		if code, err := netNode.Int(1); err == nil {
			z.NetCode = code
		}
	}
	if name, err := n.StringChild("net_name", ""); err == nil {
		z.NetName = name
	}
	if prio, ok := n.Child("priority"); ok {
		if v, err := prio.Int(1); err == nil {
			z.Priority = v
		}
	}
	if mm, err := n.FloatChild("min_thickness", 0); err == nil {
		z.MinThickness = geometry.FromMM(mm)
	}

	if keepout, ok := n.Child("keepout"); ok {
		z.Keepout = true
		notAllowed := func(field string) bool {
			s, _ := keepout.StringChild(field, "allowed")
			return s == "not_allowed"
		}
		z.NoTracks = notAllowed("tracks")
		z.NoVias = notAllowed("vias")
		z.NoPads = notAllowed("pads")
		z.NoFootprints = notAllowed("footprints")
	}

	if polyNode, ok := n.Child("polygon"); ok {
		ring, err := parsePts(polyNode)
		if err != nil {
			return nil, err
		}
		z.Outline = ring
	}

	for _, fillNode := range n.ChildrenNamed("filled_polygon") {
		ring, err := parsePts(fillNode)
		if err != nil {
			return nil, err
		}
		z.Fills = append(z.Fills, ring)
	}

	// Layer(s)
	var layers []string
	if layerNode, ok := n.Child("layer"); ok {
		if s, err := layerNode.String(1); err == nil {
			layers = append(layers, s)
		}
	}
	if layersNode, ok := n.Child("layers"); ok {
		for _, ln := range layersNode.Args() {
			if ln.IsLeaf() {
				layers = append(layers, expandWildcardLayer(ln.Value)...)
			}
		}
	}
	if len(layers) == 0 {
		layers = []string{LayerFrontCopper}
	}

	zones := make([]*Zone, 0, len(layers))
	for _, layer := range layers {
		zc := *z
		zc.Layer = layer
		zones = append(zones, &zc)
	}
	return zones, nil
}

// parsePts reads the (pts (xy x y) ...) list under a polygon node.
func parsePts(n *sexpr.Node) (geometry.Polygon, error) {
	pts, ok := n.Child("pts")
	if !ok {
		return nil, fmt.Errorf("line %d: polygon missing 'pts'", n.Line)
	}
	var ring geometry.Polygon
	for _, xy := range pts.ChildrenNamed("xy") {
		v, err := parseVec(xy)
		if err != nil {
			return nil, err
		}
		ring = append(ring, v)
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("line %d: polygon has %d points", n.Line, len(ring))
	}
	return ring, nil
}

// parseBoardGraphics collects gr_* items and board-level text.
func parseBoardGraphics(root *sexpr.Node, b *Board) {
	for _, gname := range []string{"gr_line", "gr_arc", "gr_circle", "gr_rect", "gr_poly", "gr_curve"} {
		for _, gn := range root.ChildrenNamed(gname) {
			g, err := parseGraphic(gn, gname[3:])
			if err != nil {
				continue // tolerate odd graphics, they don't affect electrical checks
			}
			b.Graphics = append(b.Graphics, g)
		}
	}

	for _, tn := range root.ChildrenNamed("gr_text") {
		content, err := tn.String(1)
		if err != nil {
			continue
		}
		pos, rot, err := parseAt(tn)
		if err != nil {
			continue
		}
		t := &Text{
			Text:     content,
			Role:     "user",
			Pos:      pos,
			Rotation: rot,
			Visible:  true,
			Size:     geometry.VecFromMM(1.5, 1.5),
		}
		if layer, err := tn.StringChild("layer", ""); err == nil {
			t.Layer = layer
		}
		parseTextEffects(tn, t)
		b.Texts = append(b.Texts, t)
	}
}

// parseGraphic reads one graphic node. shape is the suffix of the node
// name: line, arc, circle, rect, poly, curve.
func parseGraphic(n *sexpr.Node, shape string) (*Graphic, error) {
	g := &Graphic{Shape: GraphicShape(shape)}

	if layer, err := n.StringChild("layer", ""); err == nil {
		g.Layer = layer
	}
	if mm, err := n.FloatChild("width", 0); err == nil {
		g.Width = geometry.FromMM(mm)
	}
	if strokeNode, ok := n.Child("stroke"); ok {
		if mm, err := strokeNode.FloatChild("width", 0); err == nil && mm > 0 {
			g.Width = geometry.FromMM(mm)
		}
	}

	readVec := func(field string, dst *geometry.Vec) {
		if vn, ok := n.Child(field); ok {
			if v, err := parseVec(vn); err == nil {
				*dst = v
			}
		}
	}
	readVec("start", &g.Start)
	readVec("end", &g.End)
	readVec("mid", &g.Mid)
	readVec("center", &g.Center)

	switch g.Shape {
	case GraphicArc:
		if _, hasMid := n.Child("mid"); !hasMid {
			// Legacy arc form: (start CENTER) (end ARCSTART) (angle SWEEP)
			sweep, err := n.FloatChild("angle", 0)
			if err != nil || sweep == 0 {
				return nil, fmt.Errorf("line %d: arc without mid point or angle", n.Line)
			}
			center := g.Start
			arcStart := g.End
			g.Start = arcStart
			g.Mid = rotateAround(arcStart, center, sweep/2)
			g.End = rotateAround(arcStart, center, sweep)
		}

	case GraphicCircle:
		if g.Center == (geometry.Vec{}) {
			g.Center = g.Start
		}

	case GraphicPoly:
		ring, err := parsePts(n)
		if err != nil {
			return nil, err
		}
		g.Points = ring

	case GraphicCurve:
		// (pts (xy p0) (xy c1) (xy c2) (xy p3))
		pts, ok := n.Child("pts")
		if !ok {
			return nil, fmt.Errorf("line %d: curve missing 'pts'", n.Line)
		}
		xys := pts.ChildrenNamed("xy")
		if len(xys) != 4 {
			return nil, fmt.Errorf("line %d: curve needs 4 control points, got %d", n.Line, len(xys))
		}
		vecs := make([]geometry.Vec, 4)
		for i, xy := range xys {
			v, err := parseVec(xy)
			if err != nil {
				return nil, err
			}
			vecs[i] = v
		}
		g.Start, g.Ctrl1, g.Ctrl2, g.End = vecs[0], vecs[1], vecs[2], vecs[3]
	}

	return g, nil
}

// rotateAround rotates p by degrees around center.
func rotateAround(p, center geometry.Vec, degrees float64) geometry.Vec {
	return center.Add(p.Sub(center).Rotate(degrees))
}

// transformGraphic maps a footprint-frame graphic to board coordinates.
func transformGraphic(g *Graphic, fp *Footprint) {
	tf := func(v geometry.Vec) geometry.Vec { return fpLocal(fp, v) }
	g.Start = tf(g.Start)
	g.End = tf(g.End)
	g.Mid = tf(g.Mid)
	g.Center = tf(g.Center)
	for i, p := range g.Points {
		g.Points[i] = tf(p)
	}
	g.Ctrl1 = tf(g.Ctrl1)
	g.Ctrl2 = tf(g.Ctrl2)
}
