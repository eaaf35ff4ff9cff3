package drc

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
)

// testOutline verifies the board outline closes into rings. The marker
// goes to the board bounding-box origin; an edge-cut drawing with no
// segments at all is accepted (boards under construction).
func (rc *runContext) testOutline() {
	edges := rc.brd.EdgeCuts()
	if len(edges) == 0 {
		return
	}
	if _, err := rc.brd.OutlineRings(flattenTolerance); err != nil {
		bbox := rc.brd.BoundingBox()
		rc.accept(NewViolation(ErrInvalidOutline, nil, nil, bbox.Min,
			"board outline is not closed: %v", err))
	}
}

// testDisabledLayers flags items placed on layers the board does not
// enable.
func (rc *runContext) testDisabledLayers() {
	enabled := func(name string) bool {
		return rc.brd.Settings.LayerEnabled(name)
	}

	for _, t := range rc.brd.Tracks {
		if !enabled(t.Layer) {
			rc.accept(NewViolation(ErrDisabledLayerItem, t, nil, t.Start,
				"track on disabled layer %s", t.Layer))
		}
	}
	for _, v := range rc.brd.Vias {
		for _, l := range v.LayerSpan {
			if !enabled(l) {
				rc.accept(NewViolation(ErrDisabledLayerItem, v, nil, v.Pos,
					"via spans disabled layer %s", l))
				break
			}
		}
	}
	for _, z := range rc.brd.Zones {
		if !enabled(z.Layer) {
			rc.accept(NewViolation(ErrDisabledLayerItem, z, nil, zoneAnchor(z),
				"zone on disabled layer %s", z.Layer))
		}
	}
	for _, fp := range rc.brd.Footprints {
		for _, p := range fp.Pads {
			bad := ""
			for _, l := range p.LayerNames {
				if board.IsCopperLayerName(l) && !enabled(l) {
					bad = l
					break
				}
			}
			if bad != "" {
				rc.accept(NewViolation(ErrDisabledLayerItem, p, nil, p.Pos,
					"pad '%s' of '%s' on disabled layer %s", p.Number, fp.Reference, bad))
			}
		}
	}
}

// testTextVars flags visible text still containing an unresolved
// ${VARIABLE} reference.
func (rc *runContext) testTextVars() {
	for _, t := range rc.brd.AllTexts() {
		if !t.Visible {
			continue
		}
		if hasUnresolvedVar(t.Text) {
			rc.accept(NewViolation(ErrUnresolvedVariable, t, nil, t.Pos,
				"unresolved text variable in %q", t.Text))
		}
	}
}

// hasUnresolvedVar matches *${*}* on the shown text.
func hasUnresolvedVar(s string) bool {
	open := strings.Index(s, "${")
	if open < 0 {
		return false
	}
	return strings.Contains(s[open+2:], "}")
}

// reconcileFootprints compares board footprints against a schematic
// component list: duplicates by case-insensitive reference (the first
// occurrence wins, later ones are flagged), components missing from the
// board, and board footprints absent from the netlist. Pure set
// comparison, no geometry.
func reconcileFootprints(b *board.Board, netlist []NetlistComponent) []*FootprintIssue {
	var issues []*FootprintIssue

	seen := make(map[string]*board.Footprint)
	for _, fp := range b.Footprints {
		key := strings.ToLower(fp.Reference)
		if _, dup := seen[key]; dup {
			issues = append(issues, &FootprintIssue{
				Kind:      ErrDuplicateFootprint,
				Reference: fp.Reference,
				Value:     fp.Value,
			})
			continue
		}
		seen[key] = fp
	}

	inNetlist := make(map[string]bool, len(netlist))
	for _, comp := range netlist {
		key := strings.ToLower(comp.Reference)
		inNetlist[key] = true
		if _, ok := seen[key]; !ok {
			issues = append(issues, &FootprintIssue{
				Kind:      ErrMissingFootprint,
				Reference: comp.Reference,
				Value:     comp.Value,
			})
		}
	}

	for _, fp := range b.Footprints {
		key := strings.ToLower(fp.Reference)
		if seen[key] != fp {
			continue // duplicate, already flagged
		}
		if !inNetlist[key] {
			issues = append(issues, &FootprintIssue{
				Kind:      ErrExtraFootprint,
				Reference: fp.Reference,
				Value:     fp.Value,
			})
		}
	}

	return issues
}
