// Package layout places graph nodes that have no persisted position and
// answers reachability questions about the requirement hierarchy.
package layout

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"reqview/pkg/model"
)

// Default spacing between nodes, in graph coordinates. Matches the box
// footprint the export renderer draws.
const (
	DefaultHSpacing = 180
	DefaultVSpacing = 120
)

// Options tunes the layered placement.
type Options struct {
	HSpacing float64
	VSpacing float64
}

func (o Options) withDefaults() Options {
	if o.HSpacing == 0 {
		o.HSpacing = DefaultHSpacing
	}
	if o.VSpacing == 0 {
		o.VSpacing = DefaultVSpacing
	}
	return o
}

// indexed pairs a graph with stable int64 node ids so gonum structures can
// be built from string-keyed requirement nodes.
type indexed struct {
	byID  map[string]int64
	byIdx []string
	dg    *simple.DirectedGraph
}

func index(g *model.Graph) *indexed {
	ix := &indexed{
		byID: make(map[string]int64, len(g.Nodes)),
		dg:   simple.NewDirectedGraph(),
	}
	for _, n := range g.Nodes {
		id := int64(len(ix.byIdx))
		ix.byID[n.RequirementID] = id
		ix.byIdx = append(ix.byIdx, n.RequirementID)
		ix.dg.AddNode(simple.Node(id))
	}
	for _, e := range g.Edges {
		from, okF := ix.byID[e.From]
		to, okT := ix.byID[e.To]
		if !okF || !okT || from == to {
			continue // edge referencing a node outside the graph
		}
		ix.dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}
	return ix
}

// Assign computes layered top-down coordinates for every node whose X/Y is
// nil. Nodes with persisted positions are left exactly where they are.
// Roots sit on layer zero; a child sits one layer below its deepest parent.
// Ordering within a layer is by requirement id, so placement is
// deterministic across reloads.
func Assign(g *model.Graph, opts Options) {
	if len(g.Nodes) == 0 {
		return
	}
	opts = opts.withDefaults()
	ix := index(g)

	layer := layers(ix)

	// Group unplaced nodes per layer, ordered by requirement id.
	perLayer := map[int][]int64{}
	for id := range ix.byIdx {
		perLayer[layer[int64(id)]] = append(perLayer[layer[int64(id)]], int64(id))
	}
	for _, ids := range perLayer {
		sort.Slice(ids, func(i, j int) bool {
			return ix.byIdx[ids[i]] < ix.byIdx[ids[j]]
		})
	}

	placed := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		if g.Nodes[i].X != nil && g.Nodes[i].Y != nil {
			placed[g.Nodes[i].RequirementID] = true
		}
	}

	for l, ids := range perLayer {
		col := 0
		for _, id := range ids {
			reqID := ix.byIdx[id]
			if placed[reqID] {
				continue
			}
			node := g.Node(reqID)
			x := float64(col) * opts.HSpacing
			y := float64(l) * opts.VSpacing
			node.X = &x
			node.Y = &y
			col++
		}
	}
}

// layers assigns each node the length of the longest parent chain above
// it. Cyclic graphs (possible when the server does not enforce acyclicity)
// degrade to zero-based layers for the nodes on the cycle.
func layers(ix *indexed) map[int64]int {
	layer := make(map[int64]int, len(ix.byIdx))
	// topo.Sort reports cycle members as nil entries; those keep layer 0.
	sorted, _ := topo.Sort(ix.dg)
	for _, n := range sorted {
		if n == nil {
			continue
		}
		to := ix.dg.To(n.ID())
		max := 0
		for to.Next() {
			if l := layer[to.Node().ID()] + 1; l > max {
				max = l
			}
		}
		layer[n.ID()] = max
	}
	return layer
}

// WouldCycle reports whether adding the edge parent→child would close a
// directed cycle, i.e. whether parent is already reachable from child.
// Unknown ids never cycle.
func WouldCycle(g *model.Graph, parent, child string) bool {
	if parent == child {
		return true
	}
	ix := index(g)
	from, okF := ix.byID[child]
	target, okT := ix.byID[parent]
	if !okF || !okT {
		return false
	}

	found := false
	bf := traverse.BreadthFirst{}
	bf.Walk(ix.dg, simple.Node(from), func(n graph.Node, _ int) bool {
		if n.ID() == target {
			found = true
			return true
		}
		return false
	})
	return found
}
