package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// locationEpsilon bounds the bisection: 5 mils in nanometers.
const locationEpsilon = 5 * geometry.NanometersPerMil

// locateAlongTrack refines the marker position for a track-vs-shape
// violation by bisecting the track, keeping the half whose endpoint is
// closer to the conflicting shape. When the current midpoint falls
// inside the shape it is already the best witness.
func locateAlongTrack(track geometry.Seg, shape *geometry.PolySet) geometry.Vec {
	a, b := track.A, track.B
	for a.SquaredDistance(b) > geometry.Square(locationEpsilon) {
		mid := a.Mid(b)
		if shape.Contains(mid) {
			return mid
		}
		if shape.SquaredDistanceToPoint(a) < shape.SquaredDistanceToPoint(b) {
			b = mid
		} else {
			a = mid
		}
	}
	return a.Mid(b)
}

// locateAlongTrackToSeg is the segment-conflict variant of the bisection.
func locateAlongTrackToSeg(track, other geometry.Seg) geometry.Vec {
	a, b := track.A, track.B
	for a.SquaredDistance(b) > geometry.Square(locationEpsilon) {
		mid := a.Mid(b)
		if other.SquaredDistanceToPoint(a) < other.SquaredDistanceToPoint(b) {
			b = mid
		} else {
			a = mid
		}
	}
	return a.Mid(b)
}
