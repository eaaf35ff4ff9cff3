package drc

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// Violation is one rule failure, immutable once created. Secondary may
// be nil for single-item violations.
type Violation struct {
	Kind      ErrorKind
	Primary   board.Item
	Secondary board.Item
	Location  geometry.Vec
	Message   string
}

// NewViolation builds a two-item violation.
func NewViolation(kind ErrorKind, primary, secondary board.Item, at geometry.Vec, format string, args ...any) *Violation {
	return &Violation{
		Kind:      kind,
		Primary:   primary,
		Secondary: secondary,
		Location:  at,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (v *Violation) String() string {
	return fmt.Sprintf("[%s] at (%.4f, %.4f) mm: %s",
		v.Kind, geometry.ToMM(v.Location.X), geometry.ToMM(v.Location.Y), v.Message)
}

// FootprintIssue is one footprint-vs-netlist discrepancy.
type FootprintIssue struct {
	Kind      ErrorKind // duplicate, missing or extra
	Reference string
	Value     string
}

func (f *FootprintIssue) String() string {
	return fmt.Sprintf("[%s] %s (%s)", f.Kind, f.Reference, f.Value)
}

// ResultSet owns everything one run produced. It is cleared and rebuilt
// at the start of each run; consumers hold borrowed references valid
// until the next run.
type ResultSet struct {
	Violations        []*Violation
	Unconnected       []connectivity.RatsnestEdge
	Footprints        []*FootprintIssue
	Ran               bool
	FootprintsChecked bool
	Canceled          bool
}

func (rs *ResultSet) reset() {
	rs.Violations = nil
	rs.Unconnected = nil
	rs.Footprints = nil
	rs.Ran = false
	rs.FootprintsChecked = false
	rs.Canceled = false
}

// ByKind returns the violations of one kind, in discovery order.
func (rs *ResultSet) ByKind(kind ErrorKind) []*Violation {
	var out []*Violation
	for _, v := range rs.Violations {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// MarkerSink receives accepted violations. Board mutation (marker
// placement) is entirely the sink's responsibility.
type MarkerSink interface {
	Accept(v *Violation)
}

// SeverityPolicy decides which violation kinds are ignored. The zero
// value ignores nothing.
type SeverityPolicy struct {
	ignored map[ErrorKind]bool
}

// NewSeverityPolicy builds a policy from ignored kind names. Unknown
// names are reported back so configuration typos surface.
func NewSeverityPolicy(ignoredNames []string) (*SeverityPolicy, error) {
	p := &SeverityPolicy{ignored: make(map[ErrorKind]bool)}
	for _, name := range ignoredNames {
		k, ok := KindByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown violation kind %q", name)
		}
		p.ignored[k] = true
	}
	return p, nil
}

// Ignored reports whether a kind is suppressed.
func (p *SeverityPolicy) Ignored(kind ErrorKind) bool {
	if p == nil || p.ignored == nil {
		return false
	}
	return p.ignored[kind]
}

// filteredSink drops ignored kinds at the sink boundary and records the
// rest into the result set before forwarding.
type filteredSink struct {
	policy  *SeverityPolicy
	results *ResultSet
	next    MarkerSink
}

func (s *filteredSink) accept(v *Violation) {
	if s.policy.Ignored(v.Kind) {
		return
	}
	s.results.Violations = append(s.results.Violations, v)
	if s.next != nil {
		s.next.Accept(v)
	}
}

// ProgressSink receives batch progress and exposes cooperative
// cancellation. Implementations must be cheap; they are polled from hot
// loops.
type ProgressSink interface {
	// Progress reports completed work of a phase.
	Progress(phase string, done, total int)
	// Canceled polls for a user abort request.
	Canceled() bool
}

// nopProgress is used when the caller supplies no sink.
type nopProgress struct{}

func (nopProgress) Progress(string, int, int) {}
func (nopProgress) Canceled() bool            { return false }
