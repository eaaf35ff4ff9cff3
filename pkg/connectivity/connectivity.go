// Package connectivity groups the copper items of a board into physically
// connected clusters and derives the ratsnest of missing connections.
// Clusters are tracked with a union-find structure; two items of the same
// net are merged when their copper areas touch on a shared layer.
package connectivity

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/board"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geometry"
)

// flattenTol is the arc flattening tolerance used when pad outlines are
// needed for contact tests.
const flattenTol = 5000

// Cluster is a set of physically connected copper items on one net.
type Cluster struct {
	ID      int
	NetCode int
	Items   []board.Item
}

// Anchor returns a representative point of the cluster, used as a
// ratsnest endpoint.
func (c *Cluster) Anchor() geometry.Vec {
	return c.Items[0].Position()
}

// RatsnestEdge is a missing connection between two clusters of the same net.
type RatsnestEdge struct {
	NetCode int
	From    geometry.Vec
	To      geometry.Vec
	FromRef board.Item
	ToRef   board.Item
}

// Connectivity holds the clustered view of a board's copper.
type Connectivity struct {
	brd *board.Board

	// Union-find over item indices
	parent []int
	rank   []int

	items    []board.Item
	clusters []*Cluster
}

// Build computes the connectivity clusters for a board.
func Build(b *board.Board) *Connectivity {
	c := &Connectivity{brd: b}

	for _, t := range b.Tracks {
		c.items = append(c.items, t)
	}
	for _, v := range b.Vias {
		c.items = append(c.items, v)
	}
	for _, p := range b.AllPads() {
		c.items = append(c.items, p)
	}

	c.parent = make([]int, len(c.items))
	c.rank = make([]int, len(c.items))
	for i := range c.parent {
		c.parent[i] = i
	}

	// Group by net code first; only same-net items can form a cluster.
	byNet := make(map[int][]int)
	for i, it := range c.items {
		if it.Net() == 0 {
			continue // unassigned copper never clusters
		}
		byNet[it.Net()] = append(byNet[it.Net()], i)
	}

	for _, indices := range byNet {
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				a, b := indices[i], indices[j]
				if c.find(a) == c.find(b) {
					continue
				}
				if itemsTouch(c.items[a], c.items[b]) {
					c.union(a, b)
				}
			}
		}
	}

	c.finalize()
	return c
}

// find returns the cluster root for an item index, with path compression.
func (c *Connectivity) find(i int) int {
	root := i
	for c.parent[root] != root {
		root = c.parent[root]
	}
	for i != root {
		next := c.parent[i]
		c.parent[i] = root
		i = next
	}
	return root
}

// union merges two clusters by rank.
func (c *Connectivity) union(a, b int) {
	ra, rb := c.find(a), c.find(b)
	if ra == rb {
		return
	}
	switch {
	case c.rank[ra] < c.rank[rb]:
		c.parent[ra] = rb
	case c.rank[ra] > c.rank[rb]:
		c.parent[rb] = ra
	default:
		c.parent[rb] = ra
		c.rank[ra]++
	}
}

// finalize groups items by root into Cluster values with stable ordering.
func (c *Connectivity) finalize() {
	groups := make(map[int][]board.Item)
	var roots []int
	for i, it := range c.items {
		if it.Net() == 0 {
			continue
		}
		root := c.find(i)
		if _, seen := groups[root]; !seen {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], it)
	}
	sort.Ints(roots)

	c.clusters = make([]*Cluster, 0, len(groups))
	for id, root := range roots {
		items := groups[root]
		c.clusters = append(c.clusters, &Cluster{
			ID:      id,
			NetCode: items[0].Net(),
			Items:   items,
		})
	}
}

// Clusters returns all connected clusters.
func (c *Connectivity) Clusters() []*Cluster {
	return c.clusters
}

// PadCountForNet returns the number of pads assigned to a net.
func (c *Connectivity) PadCountForNet(netCode int) int {
	count := 0
	for _, it := range c.items {
		if it.ItemKind() == board.KindPad && it.Net() == netCode {
			count++
		}
	}
	return count
}

// UnconnectedEdges returns the ratsnest: for every net split across
// several clusters, the edges that would join them. Each extra cluster
// contributes one edge to its nearest already-linked cluster.
func (c *Connectivity) UnconnectedEdges() []RatsnestEdge {
	byNet := make(map[int][]*Cluster)
	var netCodes []int
	for _, cl := range c.clusters {
		if _, seen := byNet[cl.NetCode]; !seen {
			netCodes = append(netCodes, cl.NetCode)
		}
		byNet[cl.NetCode] = append(byNet[cl.NetCode], cl)
	}
	sort.Ints(netCodes)

	var edges []RatsnestEdge
	for _, net := range netCodes {
		clusters := byNet[net]
		if len(clusters) < 2 {
			continue
		}

		linked := []*Cluster{clusters[0]}
		remaining := clusters[1:]
		for len(remaining) > 0 {
			bestDist := int64(-1)
			bestRemIdx := 0
			var bestFrom, bestTo board.Item
			for ri, rem := range remaining {
				for _, lc := range linked {
					for _, a := range rem.Items {
						for _, b := range lc.Items {
							d := a.Position().SquaredDistance(b.Position())
							if bestDist < 0 || d < bestDist {
								bestDist = d
								bestRemIdx = ri
								bestFrom = a
								bestTo = b
							}
						}
					}
				}
			}
			rem := remaining[bestRemIdx]
			edges = append(edges, RatsnestEdge{
				NetCode: net,
				From:    bestFrom.Position(),
				To:      bestTo.Position(),
				FromRef: bestFrom,
				ToRef:   bestTo,
			})
			linked = append(linked, rem)
			remaining = append(remaining[:bestRemIdx], remaining[bestRemIdx+1:]...)
		}
	}
	return edges
}

// TrackEndpointDangling reports whether a track end connects to nothing
// else, and returns the dangling endpoint. A track whose both ends float
// reports the start point.
func (c *Connectivity) TrackEndpointDangling(t *board.Track) (bool, geometry.Vec) {
	startHit, endHit := false, false
	for _, it := range c.items {
		if it == board.Item(t) {
			continue
		}
		if !t.Layers().Overlaps(it.Layers()) {
			continue
		}
		if itemCoversPoint(it, t.Start, t.Width/2) {
			startHit = true
		}
		if itemCoversPoint(it, t.End, t.Width/2) {
			endHit = true
		}
		if startHit && endHit {
			return false, geometry.Vec{}
		}
	}
	if !startHit {
		return true, t.Start
	}
	return true, t.End
}

// itemsTouch reports whether the copper of two items overlaps. Both items
// must share a layer; contact is tested center-to-copper with each item's
// own half-width.
func itemsTouch(a, b board.Item) bool {
	if !a.Layers().Overlaps(b.Layers()) {
		return false
	}
	// Order so the pair is handled once per kind combination.
	if kindOrder(a.ItemKind()) > kindOrder(b.ItemKind()) {
		a, b = b, a
	}

	switch av := a.(type) {
	case *board.Track:
		switch bv := b.(type) {
		case *board.Track:
			collides, _, _ := av.Seg().WidthsCollide(bv.Seg(), av.Width, bv.Width, 0)
			return collides
		case *board.Via:
			d := av.Seg().SquaredDistanceToPoint(bv.Pos)
			return d <= geometry.Square(av.Width/2+bv.Size/2)
		case *board.Pad:
			return bv.Polygon(flattenTol).SquaredDistanceToSeg(av.Seg()) <= geometry.Square(av.Width/2)
		}
	case *board.Via:
		switch bv := b.(type) {
		case *board.Via:
			return av.Pos.SquaredDistance(bv.Pos) <= geometry.Square(av.Size/2+bv.Size/2)
		case *board.Pad:
			return bv.Polygon(flattenTol).SquaredDistanceToPoint(av.Pos) <= geometry.Square(av.Size/2)
		}
	case *board.Pad:
		if bv, ok := b.(*board.Pad); ok {
			ap := av.Polygon(flattenTol)
			for _, s := range bv.Polygon(flattenTol).Segments() {
				if ap.SquaredDistanceToSeg(s) == 0 {
					return true
				}
			}
			// One pad fully inside the other leaves no touching edges.
			if ap.Contains(bv.Pos) || bv.Polygon(flattenTol).Contains(av.Pos) {
				return true
			}
		}
	}
	return false
}

// itemCoversPoint reports whether an item's copper reaches within reach
// of a point.
func itemCoversPoint(it board.Item, p geometry.Vec, reach int64) bool {
	switch v := it.(type) {
	case *board.Track:
		return v.Seg().SquaredDistanceToPoint(p) <= geometry.Square(v.Width/2+reach)
	case *board.Via:
		return v.Pos.SquaredDistance(p) <= geometry.Square(v.Size/2+reach)
	case *board.Pad:
		return v.Polygon(flattenTol).SquaredDistanceToPoint(p) <= geometry.Square(reach)
	}
	return false
}

func kindOrder(k board.Kind) int {
	switch k {
	case board.KindTrack:
		return 0
	case board.KindVia:
		return 1
	case board.KindPad:
		return 2
	}
	return 3
}
