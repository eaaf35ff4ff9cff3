package drc

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
)

// Resolver produces the effective numeric constraint for an item or
// item pair: selector-matched rule first (file order, last match wins),
// then the net class value, floored by the board minimum.
type Resolver struct {
	brd     *board.Board
	ruleset *rules.Ruleset
}

// NewResolver builds a resolver. ruleset may be nil when no rule file is
// in use.
func NewResolver(b *board.Board, rs *rules.Ruleset) *Resolver {
	return &Resolver{brd: b, ruleset: rs}
}

// itemAttrs extracts the matcher attributes of an item.
func (r *Resolver) itemAttrs(it board.Item) (netClass, netName, layer, itemType string) {
	netName = r.brd.NetName(it.Net())
	if nc := r.brd.ClassForNet(it.Net()); nc != nil {
		netClass = nc.Name
	}
	if layers := it.Layers(); len(layers) > 0 {
		layer = layers[0]
	}
	itemType = string(it.ItemKind())
	return
}

// ruleOverride finds the last selector in file order matching the item
// whose rule overrides the kind.
func (r *Resolver) ruleOverride(it board.Item, kind rules.ConstraintKind) (int64, string, bool) {
	if r.ruleset == nil || it == nil {
		return 0, "", false
	}
	netClass, netName, layer, itemType := r.itemAttrs(it)

	var (
		value int64
		name  string
		found bool
	)
	for _, sel := range r.ruleset.Selectors {
		if !sel.Matches(netClass, netName, layer, itemType) {
			continue
		}
		rule := r.ruleset.RuleFor(sel.RuleName)
		if rule == nil {
			continue
		}
		if v, ok := rule.Constraint(kind); ok {
			value, name, found = v, rule.Name, true
		}
	}
	return value, name, found
}

// EffectiveClearance resolves the required copper clearance between two
// items. b may be nil for single-item queries. The returned source
// string names where the value came from.
func (r *Resolver) EffectiveClearance(a, b board.Item) (int64, string) {
	value := int64(0)
	source := "board minimum"

	// Net class values; the larger requirement of the pair governs.
	for _, it := range []board.Item{a, b} {
		if it == nil {
			continue
		}
		if nc := r.brd.ClassForNet(it.Net()); nc != nil && nc.Clearance > value {
			value = nc.Clearance
			source = fmt.Sprintf("netclass '%s'", nc.Name)
		}
	}

	// Local pad clearance beats the class when larger.
	for _, it := range []board.Item{a, b} {
		if p, ok := it.(*board.Pad); ok && p.LocalClearance > value {
			value = p.LocalClearance
			source = fmt.Sprintf("pad '%s' local clearance", p.Number)
		}
	}

	// Selector rules win over class defaults.
	for _, it := range []board.Item{a, b} {
		if v, name, ok := r.ruleOverride(it, rules.Clearance); ok && v > value {
			value = v
			source = fmt.Sprintf("clearance rule '%s'", name)
		}
	}

	// Board minimum is a hard floor.
	if min := r.brd.Settings.MinClearance; value < min {
		value = min
		source = "board minimum"
	}
	return value, source
}

// NetClassConstraints is the resolved 7-field constraint set of a class.
type NetClassConstraints struct {
	Clearance     int64
	TrackWidth    int64
	ViaSize       int64
	ViaDrill      int64
	ViaAnnulus    int64
	MicroViaSize  int64
	MicroViaDrill int64
}

// EffectiveNetClassConstraints resolves a class into its numeric fields.
func (r *Resolver) EffectiveNetClassConstraints(nc *board.NetClass) NetClassConstraints {
	return NetClassConstraints{
		Clearance:     nc.Clearance,
		TrackWidth:    nc.TrackWidth,
		ViaSize:       nc.ViaDiameter,
		ViaDrill:      nc.ViaDrill,
		ViaAnnulus:    nc.ViaAnnulus(),
		MicroViaSize:  nc.UViaDiameter,
		MicroViaDrill: nc.UViaDrill,
	}
}

// fmtMM renders a nanometer value the way violation messages report it.
func fmtMM(nm int64) string {
	return fmt.Sprintf("%.4f mm", geometry.ToMM(nm))
}
