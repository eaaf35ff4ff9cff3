// Package rules parses DRC rule files into selectors and named rules.
// A selector binds item matchers (net class, net name, layer, item type)
// to a rule; a rule overrides individual numeric constraints. Selectors
// apply in file order and the last matching selector wins per field.
package rules

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// ConstraintKind names an overridable numeric constraint.
type ConstraintKind string

const (
	Clearance    ConstraintKind = "clearance"
	TrackWidth   ConstraintKind = "track_width"
	ViaSize      ConstraintKind = "via_size"
	ViaDrill     ConstraintKind = "via_drill"
	AnnulusWidth ConstraintKind = "annulus_width"
	HoleSize     ConstraintKind = "hole"
)

// Rule is a named bundle of constraint overrides. Values are nanometers;
// a missing kind means the rule does not override it.
type Rule struct {
	Name        string
	Constraints map[ConstraintKind]int64
	Disallow    []string // item types the rule forbids outright
}

// Constraint returns the override for a kind, if the rule carries one.
func (r *Rule) Constraint(kind ConstraintKind) (int64, bool) {
	v, ok := r.Constraints[kind]
	return v, ok
}

// Selector matches board items and names the rule that applies to them.
// Empty matcher fields match everything.
type Selector struct {
	NetClass string
	NetName  string
	Layer    string
	ItemType string
	RuleName string
}

// Matches reports whether an item with the given attributes satisfies
// every non-empty matcher of the selector.
func (s *Selector) Matches(netClass, netName, layer, itemType string) bool {
	if s.NetClass != "" && s.NetClass != netClass {
		return false
	}
	if s.NetName != "" && s.NetName != netName {
		return false
	}
	if s.Layer != "" && s.Layer != layer {
		return false
	}
	if s.ItemType != "" && s.ItemType != itemType {
		return false
	}
	return true
}

// Ruleset is the parsed content of one rule file.
type Ruleset struct {
	Version   int
	Selectors []*Selector // file order
	Rules     map[string]*Rule
}

// RuleFor returns the named rule, or nil.
func (rs *Ruleset) RuleFor(name string) *Rule {
	if rs == nil {
		return nil
	}
	return rs.Rules[name]
}

// ParseError reports a malformed rule file with position information.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Parser parses rule files.
type Parser struct {
	parser *participle.Parser[ruleFile]
}

// NewParser builds the rule-file parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[ruleFile](
		participle.Lexer(RuleLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// Parse parses a rule file from a reader. filename is used in errors only.
func (p *Parser) Parse(filename string, r io.Reader) (*Ruleset, error) {
	tree, err := p.parser.Parse(filename, r)
	if err != nil {
		return nil, wrapParseError(filename, err)
	}
	return buildRuleset(filename, tree)
}

// ParseString parses a rule file from a string.
func (p *Parser) ParseString(filename, input string) (*Ruleset, error) {
	tree, err := p.parser.ParseString(filename, input)
	if err != nil {
		return nil, wrapParseError(filename, err)
	}
	return buildRuleset(filename, tree)
}

// ParseFile parses a rule file from disk.
func (p *Parser) ParseFile(filename string) (*Ruleset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer file.Close()
	return p.Parse(filename, file)
}

func wrapParseError(filename string, err error) error {
	if perr, ok := err.(participle.Error); ok {
		pos := perr.Position()
		return &ParseError{
			File:    filename,
			Line:    pos.Line,
			Column:  pos.Column,
			Message: perr.Message(),
		}
	}
	return &ParseError{File: filename, Message: err.Error()}
}

// buildRuleset lowers the parse tree and validates selector targets.
func buildRuleset(filename string, tree *ruleFile) (*Ruleset, error) {
	rs := &Ruleset{Rules: make(map[string]*Rule)}
	if tree.Version != nil {
		rs.Version = tree.Version.Number
	}

	for _, e := range tree.Entries {
		switch {
		case e.Rule != nil:
			r := &Rule{
				Name:        e.Rule.Name,
				Constraints: make(map[ConstraintKind]int64),
			}
			for _, c := range e.Rule.Constraints {
				switch {
				case c.Clearance != nil:
					r.Constraints[Clearance] = c.Clearance.Nanometers()
				case c.TrackWidth != nil:
					r.Constraints[TrackWidth] = c.TrackWidth.Nanometers()
				case c.ViaSize != nil:
					r.Constraints[ViaSize] = c.ViaSize.Nanometers()
				case c.ViaDrill != nil:
					r.Constraints[ViaDrill] = c.ViaDrill.Nanometers()
				case c.Annulus != nil:
					r.Constraints[AnnulusWidth] = c.Annulus.Nanometers()
				case c.Hole != nil:
					r.Constraints[HoleSize] = c.Hole.Nanometers()
				case c.Disallow != nil:
					r.Disallow = append(r.Disallow, *c.Disallow)
				}
			}
			if _, dup := rs.Rules[r.Name]; dup {
				return nil, &ParseError{File: filename, Message: fmt.Sprintf("duplicate rule %q", r.Name)}
			}
			rs.Rules[r.Name] = r

		case e.Selector != nil:
			s := &Selector{RuleName: e.Selector.RuleName}
			for _, m := range e.Selector.Matches {
				switch {
				case m.NetClass != nil:
					s.NetClass = *m.NetClass
				case m.NetName != nil:
					s.NetName = *m.NetName
				case m.Layer != nil:
					s.Layer = *m.Layer
				case m.ItemType != nil:
					s.ItemType = *m.ItemType
				}
			}
			rs.Selectors = append(rs.Selectors, s)
		}
	}

	for _, s := range rs.Selectors {
		if _, ok := rs.Rules[s.RuleName]; !ok {
			return nil, &ParseError{File: filename, Message: fmt.Sprintf("selector references unknown rule %q", s.RuleName)}
		}
	}
	return rs, nil
}
