package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// testNetClasses compares every net class, Default included, against the
// board-wide floors. All failing fields of all classes are reported
// before the result is returned; any failure makes the whole run's
// geometry checks moot and the orchestrator stops after this phase.
func (rc *runContext) testNetClasses() bool {
	ok := true
	for _, nc := range rc.brd.Settings.NetClasses.All() {
		if !rc.testNetClass(nc) {
			ok = false
		}
	}
	return ok
}

func (rc *runContext) testNetClass(nc *board.NetClass) bool {
	ds := &rc.brd.Settings
	c := rc.resolver.EffectiveNetClassConstraints(nc)
	ok := true

	check := func(kind ErrorKind, field string, value, floor int64) {
		if value >= floor {
			return
		}
		ok = false
		rc.accept(NewViolation(kind, nil, nil, geometry.Vec{},
			"netclass '%s' %s (board minimum %s; netclass %s)",
			nc.Name, field, fmtMM(floor), fmtMM(value)))
	}

	check(ErrNetClassClearance, "clearance", c.Clearance, ds.MinClearance)
	check(ErrNetClassTrackWidth, "track width", c.TrackWidth, ds.TrackMinWidth)
	check(ErrNetClassViaSize, "via size", c.ViaSize, ds.ViasMinSize)
	check(ErrNetClassViaDrill, "via drill", c.ViaDrill, ds.MinThroughDrill)
	check(ErrNetClassViaAnnulus, "via annulus", c.ViaAnnulus, ds.ViasMinAnnulus)
	check(ErrNetClassMicroViaSize, "micro via size", c.MicroViaSize, ds.MicroViasMinSize)
	check(ErrNetClassMicroViaDrill, "micro via drill", c.MicroViaDrill, ds.MicroViasMinDrill)

	return ok
}
