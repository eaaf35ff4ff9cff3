package drc

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/rules"
)

// progressBatch is how many segments the track scan examines between
// progress reports and cancellation polls.
const progressBatch = 500

// flattenTolerance is the default arc flattening tolerance for checker
// geometry, in nanometers.
const flattenTolerance = 5000

// Options selects which optional checks a run performs.
type Options struct {
	PadToPad               bool
	Unconnected            bool
	Zones                  bool
	Keepouts               bool
	RefillZonesBeforeCheck bool
	ReportAllTrackErrors   bool
	TestFootprints         bool
}

// DefaultOptions enables the standard electrical checks.
func DefaultOptions() Options {
	return Options{
		PadToPad:    true,
		Unconnected: true,
		Zones:       true,
		Keepouts:    true,
	}
}

// NetlistComponent is one schematic component for footprint
// reconciliation.
type NetlistComponent struct {
	Reference string
	Value     string
}

// ZoneFiller recomputes zone fills before checking, when requested. The
// engine itself never computes fills.
type ZoneFiller interface {
	Refill(b *board.Board) error
}

// Runner owns one board's check configuration and the results of its
// most recent run.
type Runner struct {
	Board      *board.Board
	Policy     *SeverityPolicy
	Sink       MarkerSink   // optional; receives accepted violations
	Progress   ProgressSink // optional
	RuleLoader *rules.Loader
	Netlist    []NetlistComponent // for footprint reconciliation
	Filler     ZoneFiller         // optional

	// RuleError holds the rule-file problem of the latest run, if any.
	// A broken rule file does not stop the run; it runs with defaults.
	RuleError error

	results ResultSet
}

// runContext carries one run's state into the checker drivers. It is
// built fresh per RunTests call; drivers hold no state of their own.
type runContext struct {
	ctx      context.Context
	brd      *board.Board
	opts     Options
	resolver *Resolver
	conn     *connectivity.Connectivity
	sink     filteredSink
	progress ProgressSink

	// smoothed zone outlines, computed once per run
	zoneOutlines map[*board.Zone]geometry.PolySet
}

func (rc *runContext) accept(v *Violation) {
	rc.sink.accept(v)
}

// canceled polls both the context and the progress sink.
func (rc *runContext) canceled() bool {
	select {
	case <-rc.ctx.Done():
		return true
	default:
	}
	return rc.progress.Canceled()
}

// Results returns the result set of the most recent run.
func (r *Runner) Results() *ResultSet {
	return &r.results
}

// RunTests executes the full check sequence. The returned result set is
// owned by the runner and replaced on the next call. RunTests only
// returns an error for setup failures (zone refill); rule-file problems
// are surfaced via RuleError and violations via the result set.
func (r *Runner) RunTests(ctx context.Context, opts Options) (*ResultSet, error) {
	r.results.reset()
	r.RuleError = nil

	progress := r.Progress
	if progress == nil {
		progress = nopProgress{}
	}

	var ruleset *rules.Ruleset
	if r.RuleLoader != nil {
		rs, err := r.RuleLoader.Load()
		if err != nil {
			r.RuleError = err
		}
		ruleset = rs
	}

	rc := &runContext{
		ctx:      ctx,
		brd:      r.Board,
		opts:     opts,
		resolver: NewResolver(r.Board, ruleset),
		progress: progress,
		sink: filteredSink{
			policy:  r.Policy,
			results: &r.results,
			next:    r.Sink,
		},
	}

	rc.testOutline()

	// Net-class failures make every geometric result noise from the
	// same root cause; report them all, then stop.
	if !rc.testNetClasses() {
		r.results.Ran = true
		return &r.results, nil
	}

	if opts.PadToPad {
		rc.testPadToPad()
	}

	rc.testDrilledHoles()

	// Refill runs after the fatal net-class gate, before any check
	// that reads zone fills.
	if opts.RefillZonesBeforeCheck && r.Filler != nil {
		if err := r.Filler.Refill(r.Board); err != nil {
			return &r.results, fmt.Errorf("zone refill failed: %w", err)
		}
	}

	if rc.canceled() {
		return r.finish(rc)
	}

	rc.conn = connectivity.Build(r.Board)

	if !rc.testTracks() {
		return r.finish(rc)
	}

	if opts.Zones {
		rc.testZones()
	}

	if opts.Unconnected && !r.Policy.Ignored(ErrUnconnectedItems) {
		r.results.Unconnected = rc.conn.UnconnectedEdges()
	}

	if opts.Keepouts {
		rc.testKeepouts()
	}

	rc.testCopperTextAndGraphics()
	rc.testCourtyards()

	if opts.TestFootprints {
		r.results.Footprints = reconcileFootprints(r.Board, r.Netlist)
		r.results.FootprintsChecked = true
	}

	rc.testDisabledLayers()
	rc.testTextVars()

	r.results.Ran = true
	return &r.results, nil
}

// finish records a cooperative abort. Violations found so far stay.
func (r *Runner) finish(rc *runContext) (*ResultSet, error) {
	r.results.Ran = true
	r.results.Canceled = true
	return &r.results, nil
}
