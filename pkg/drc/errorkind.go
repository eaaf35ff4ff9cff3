// Package drc implements the design rule check engine: an orchestrator
// running one checker driver per rule category over a board, producing
// typed violations with witness locations.
package drc

// ErrorKind identifies a violation category.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota

	// Copper clearance
	ErrPadNearPad
	ErrTrackNearPad
	ErrTrackNearVia
	ErrTrackNearTrack
	ErrTracksCrossing
	ErrViaNearVia
	ErrViaNearPad
	ErrTrackNearZone
	ErrViaNearZone

	// Copper text and graphics
	ErrTrackNearCopperItem
	ErrViaNearCopperItem
	ErrPadNearCopperItem

	// Dangling
	ErrDanglingTrack
	ErrDanglingVia
	ErrUnconnectedItems

	// Geometry floors
	ErrTooSmallTrackWidth
	ErrTooSmallViaSize
	ErrTooSmallViaDrill
	ErrTooSmallViaAnnulus
	ErrTooSmallMicroViaSize
	ErrTooSmallMicroViaDrill
	ErrViaHoleBiggerThanPad

	// Drilled holes
	ErrDrilledHolesTooClose

	// Zones
	ErrZonesIntersect
	ErrZonesTooClose
	ErrZoneHasEmptyNet

	// Keepouts
	ErrTrackInsideKeepout
	ErrViaInsideKeepout
	ErrPadInsideKeepout
	ErrFootprintInsideKeepout

	// Net classes vs board floors
	ErrNetClassClearance
	ErrNetClassTrackWidth
	ErrNetClassViaSize
	ErrNetClassViaDrill
	ErrNetClassViaAnnulus
	ErrNetClassMicroViaSize
	ErrNetClassMicroViaDrill

	// Courtyards
	ErrMissingCourtyard
	ErrMalformedCourtyard
	ErrCourtyardsOverlap
	ErrPTHInCourtyard
	ErrNPTHInCourtyard

	// Board-level
	ErrInvalidOutline
	ErrDisabledLayerItem
	ErrUnresolvedVariable

	// Footprint reconciliation
	ErrDuplicateFootprint
	ErrMissingFootprint
	ErrExtraFootprint
)

var errorKindNames = map[ErrorKind]string{
	ErrUnknown:                "unknown",
	ErrPadNearPad:             "pad_near_pad",
	ErrTrackNearPad:           "track_near_pad",
	ErrTrackNearVia:           "track_near_via",
	ErrTrackNearTrack:         "track_near_track",
	ErrTracksCrossing:         "tracks_crossing",
	ErrViaNearVia:             "via_near_via",
	ErrViaNearPad:             "via_near_pad",
	ErrViaNearZone:            "via_near_zone",
	ErrTrackNearZone:          "track_near_zone",
	ErrTrackNearCopperItem:    "track_near_copper_item",
	ErrViaNearCopperItem:      "via_near_copper_item",
	ErrPadNearCopperItem:      "pad_near_copper_item",
	ErrDanglingTrack:          "dangling_track",
	ErrDanglingVia:            "dangling_via",
	ErrUnconnectedItems:       "unconnected_items",
	ErrTooSmallTrackWidth:     "too_small_track_width",
	ErrTooSmallViaSize:        "too_small_via_size",
	ErrTooSmallViaDrill:       "too_small_via_drill",
	ErrTooSmallViaAnnulus:     "too_small_via_annulus",
	ErrTooSmallMicroViaSize:   "too_small_micro_via_size",
	ErrTooSmallMicroViaDrill:  "too_small_micro_via_drill",
	ErrViaHoleBiggerThanPad:   "via_hole_bigger_than_pad",
	ErrDrilledHolesTooClose:   "drilled_holes_too_close",
	ErrZonesIntersect:         "zones_intersect",
	ErrZonesTooClose:          "zones_too_close",
	ErrZoneHasEmptyNet:        "zone_has_empty_net",
	ErrTrackInsideKeepout:     "track_inside_keepout",
	ErrViaInsideKeepout:       "via_inside_keepout",
	ErrPadInsideKeepout:       "pad_inside_keepout",
	ErrFootprintInsideKeepout: "footprint_inside_keepout",
	ErrNetClassClearance:      "netclass_clearance",
	ErrNetClassTrackWidth:     "netclass_track_width",
	ErrNetClassViaSize:        "netclass_via_size",
	ErrNetClassViaDrill:       "netclass_via_drill",
	ErrNetClassViaAnnulus:     "netclass_via_annulus",
	ErrNetClassMicroViaSize:   "netclass_micro_via_size",
	ErrNetClassMicroViaDrill:  "netclass_micro_via_drill",
	ErrMissingCourtyard:       "missing_courtyard",
	ErrMalformedCourtyard:     "malformed_courtyard",
	ErrCourtyardsOverlap:      "courtyards_overlap",
	ErrPTHInCourtyard:         "pth_in_courtyard",
	ErrNPTHInCourtyard:        "npth_in_courtyard",
	ErrInvalidOutline:         "invalid_outline",
	ErrDisabledLayerItem:      "disabled_layer_item",
	ErrUnresolvedVariable:     "unresolved_variable",
	ErrDuplicateFootprint:     "duplicate_footprint",
	ErrMissingFootprint:       "missing_footprint",
	ErrExtraFootprint:         "extra_footprint",
}

// String returns the stable snake_case name of the kind, used in reports
// and in severity configuration.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindByName resolves a configuration name back to its kind.
func KindByName(name string) (ErrorKind, bool) {
	for k, n := range errorKindNames {
		if n == name {
			return k, true
		}
	}
	return ErrUnknown, false
}

// IsNetClassKind reports whether the kind belongs to the fatal
// net-class-conformance category.
func (k ErrorKind) IsNetClassKind() bool {
	switch k {
	case ErrNetClassClearance, ErrNetClassTrackWidth, ErrNetClassViaSize,
		ErrNetClassViaDrill, ErrNetClassViaAnnulus,
		ErrNetClassMicroViaSize, ErrNetClassMicroViaDrill:
		return true
	}
	return false
}
