// Package board holds the PCB data model the DRC engine reads: layers,
// nets, net classes, design settings and the placed items. The checker
// never mutates a Board; it only reads geometry and attaches violation
// references.
package board

import (
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// Layer represents a PCB layer definition.
type Layer struct {
	Number int    // Layer number (ordinal)
	Name   string // Layer name (e.g., "F.Cu", "B.Cu", "F.SilkS")
	Type   string // Layer type (e.g., "signal", "user")
}

// Net represents an electrical net.
type Net struct {
	Code int    // Net code (0 is the unconnected net)
	Name string // Net name
}

// LayerSet represents a set of layer names.
type LayerSet []string

// Contains reports whether the set includes the named layer.
func (ls LayerSet) Contains(name string) bool {
	for _, l := range ls {
		if l == name {
			return true
		}
	}
	return false
}

// Overlaps reports whether the two sets share any layer.
func (ls LayerSet) Overlaps(other LayerSet) bool {
	for _, l := range ls {
		if other.Contains(l) {
			return true
		}
	}
	return false
}

// Copper returns the subset of copper layers.
func (ls LayerSet) Copper() LayerSet {
	var out LayerSet
	for _, l := range ls {
		if IsCopperLayerName(l) {
			out = append(out, l)
		}
	}
	return out
}

// IsCopperLayerName reports whether a layer name denotes a copper layer.
func IsCopperLayerName(name string) bool {
	return strings.HasSuffix(name, ".Cu")
}

const (
	LayerFrontCopper    = "F.Cu"
	LayerBackCopper     = "B.Cu"
	LayerEdgeCuts       = "Edge.Cuts"
	LayerFrontCourtyard = "F.CrtYd"
	LayerBackCourtyard  = "B.CrtYd"
)

// NetClass is a named bundle of default constraints. All values are in
// nanometers.
type NetClass struct {
	Name         string
	Description  string
	Clearance    int64
	TrackWidth   int64
	ViaDiameter  int64
	ViaDrill     int64
	UViaDiameter int64
	UViaDrill    int64
	Nets         []string // Net names assigned to this class
}

// ViaAnnulus returns the copper ring width of the class's default via:
// (diameter - drill) / 2, rounded down.
func (nc *NetClass) ViaAnnulus() int64 {
	return (nc.ViaDiameter - nc.ViaDrill) / 2
}

// DefaultNetClassName is the name of the class every net falls back to.
const DefaultNetClassName = "Default"

// NetClasses holds the board's net classes. The Default class always
// exists; user classes are kept in file order.
type NetClasses struct {
	Default *NetClass
	User    []*NetClass
}

// NewNetClasses creates a NetClasses with a Default class carrying the
// given defaults.
func NewNetClasses(def *NetClass) *NetClasses {
	if def == nil {
		def = &NetClass{Name: DefaultNetClassName}
	}
	def.Name = DefaultNetClassName
	return &NetClasses{Default: def}
}

// Add registers a user class. A class named "Default" replaces the
// default class's constraints instead.
func (ncs *NetClasses) Add(nc *NetClass) {
	if nc.Name == DefaultNetClassName {
		nets := append(ncs.Default.Nets, nc.Nets...)
		ncs.Default = nc
		ncs.Default.Nets = nets
		return
	}
	ncs.User = append(ncs.User, nc)
}

// All returns the default class followed by the user classes.
func (ncs *NetClasses) All() []*NetClass {
	out := make([]*NetClass, 0, 1+len(ncs.User))
	out = append(out, ncs.Default)
	out = append(out, ncs.User...)
	return out
}

// ForNetName returns the class a net name belongs to, falling back to
// Default.
func (ncs *NetClasses) ForNetName(name string) *NetClass {
	for _, nc := range ncs.User {
		for _, n := range nc.Nets {
			if n == name {
				return nc
			}
		}
	}
	return ncs.Default
}

// DesignSettings carries the board-wide floors and configuration the
// rule resolver and the checkers read. All distances in nanometers.
type DesignSettings struct {
	MinClearance      int64 // Board-wide clearance floor
	TrackMinWidth     int64
	ViasMinSize       int64
	MinThroughDrill   int64
	ViasMinAnnulus    int64
	MicroViasMinSize  int64
	MicroViasMinDrill int64
	HoleToHoleMin     int64

	EnabledLayers LayerSet // Layers usable on this board
	NetClasses    *NetClasses
}

// DefaultDesignSettings returns the fallback settings used when a board
// file does not carry its own (values match pcbnew's defaults).
func DefaultDesignSettings() DesignSettings {
	return DesignSettings{
		MinClearance:      geometry.FromMM(0.0),
		TrackMinWidth:     geometry.FromMM(0.2),
		ViasMinSize:       geometry.FromMM(0.4),
		MinThroughDrill:   geometry.FromMM(0.3),
		ViasMinAnnulus:    geometry.FromMM(0.05),
		MicroViasMinSize:  geometry.FromMM(0.2),
		MicroViasMinDrill: geometry.FromMM(0.1),
		HoleToHoleMin:     geometry.FromMM(0.25),
		NetClasses: NewNetClasses(&NetClass{
			Clearance:    geometry.FromMM(0.2),
			TrackWidth:   geometry.FromMM(0.25),
			ViaDiameter:  geometry.FromMM(0.8),
			ViaDrill:     geometry.FromMM(0.4),
			UViaDiameter: geometry.FromMM(0.3),
			UViaDrill:    geometry.FromMM(0.1),
		}),
	}
}

// LayerEnabled reports whether the named layer is usable on this board.
// An empty EnabledLayers set means the board did not declare layers and
// everything is allowed.
func (ds *DesignSettings) LayerEnabled(name string) bool {
	if len(ds.EnabledLayers) == 0 {
		return true
	}
	return ds.EnabledLayers.Contains(name)
}
