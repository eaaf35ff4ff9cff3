package rules

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// RuleLexer defines the lexical structure for DRC rule files.
// The format is a small s-expression dialect: selectors bind item
// matchers to named rules, rules carry constraint overrides.
var RuleLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from # to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Keywords
	{Name: "KwVersion", Pattern: `\bversion\b`},
	{Name: "KwSelector", Pattern: `\bselector\b`},
	{Name: "KwRule", Pattern: `\brule\b`},

	// Matchers
	{Name: "KwMatchNetclass", Pattern: `\bmatch_netclass\b`},
	{Name: "KwMatchNetname", Pattern: `\bmatch_netname\b`},
	{Name: "KwMatchLayer", Pattern: `\bmatch_layer\b`},
	{Name: "KwMatchType", Pattern: `\bmatch_type\b`},

	// Constraint kinds
	{Name: "KwClearance", Pattern: `\bclearance\b`},
	{Name: "KwTrackWidth", Pattern: `\btrack_width\b`},
	{Name: "KwViaSize", Pattern: `\bvia_size\b`},
	{Name: "KwViaDrill", Pattern: `\bvia_drill\b`},
	{Name: "KwAnnulus", Pattern: `\bannulus_width\b`},
	{Name: "KwHole", Pattern: `\bhole\b`},
	{Name: "KwDisallow", Pattern: `\bdisallow\b`},

	// Punctuation
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	// Literals
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?`},
	{Name: "Unit", Pattern: `\b(mm|mil|in)\b`},

	// Identifiers (after keywords)
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_.]*`},
})

// ruleFile is the parse tree root.
// Example:
//
//	(version 1)
//	(selector (match_netclass "HV") (rule "hv"))
//	(rule "hv" (clearance 1.5mm) (track_width 0.5mm))
type ruleFile struct {
	Version *versionClause `parser:"@@?"`
	Entries []*entryClause `parser:"@@*"`
}

type versionClause struct {
	Number int `parser:"LParen KwVersion @Number RParen"`
}

type entryClause struct {
	Selector *selectorClause `parser:"  @@"`
	Rule     *ruleClause     `parser:"| @@"`
}

type selectorClause struct {
	Matches  []*matchClause `parser:"LParen KwSelector @@+"`
	RuleName string         `parser:"LParen KwRule @String RParen RParen"`
}

type matchClause struct {
	NetClass *string `parser:"LParen ( KwMatchNetclass @String"`
	NetName  *string `parser:"      | KwMatchNetname @String"`
	Layer    *string `parser:"      | KwMatchLayer @String"`
	ItemType *string `parser:"      | KwMatchType @String ) RParen"`
}

type ruleClause struct {
	Name        string              `parser:"LParen KwRule @String"`
	Constraints []*constraintClause `parser:"@@* RParen"`
}

type constraintClause struct {
	Clearance  *distanceValue `parser:"LParen ( KwClearance @@"`
	TrackWidth *distanceValue `parser:"      | KwTrackWidth @@"`
	ViaSize    *distanceValue `parser:"      | KwViaSize @@"`
	ViaDrill   *distanceValue `parser:"      | KwViaDrill @@"`
	Annulus    *distanceValue `parser:"      | KwAnnulus @@"`
	Hole       *distanceValue `parser:"      | KwHole @@"`
	Disallow   *string        `parser:"      | KwDisallow @Ident ) RParen"`
}

type distanceValue struct {
	Value float64 `parser:"@Number"`
	Unit  string  `parser:"@Unit?"`
}

// Nanometers converts the literal to the engine's integer unit.
// A bare number is taken as millimeters.
func (d *distanceValue) Nanometers() int64 {
	switch d.Unit {
	case "mil":
		return int64(d.Value * 25400)
	case "in":
		return int64(d.Value * 25400000)
	default:
		return int64(d.Value * 1e6)
	}
}
