package core

import (
	"slices"

	"github.com/encodeous/sospf/state"
)

type Edge struct {
	From   state.NodeId
	To     state.NodeId
	Weight uint16
}

// Graph is a directed, weighted view of an LSD snapshot. It is rebuilt for every query.
type Graph struct {
	vertices []state.NodeId
	edges    map[state.NodeId][]Edge
}

// NewGraph has a vertex for every origin and every advertised neighbour, and one edge per advertised link
func NewGraph(lsas []state.LSA) *Graph {
	g := &Graph{edges: make(map[state.NodeId][]Edge)}
	seen := make(map[state.NodeId]struct{})
	addVertex := func(id state.NodeId) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			g.vertices = append(g.vertices, id)
		}
	}
	for _, lsa := range lsas {
		addVertex(lsa.Origin)
		for _, ld := range lsa.Links {
			addVertex(ld.Neighbor)
			g.edges[lsa.Origin] = append(g.edges[lsa.Origin], Edge{lsa.Origin, ld.Neighbor, ld.Weight})
		}
	}
	slices.Sort(g.vertices)
	return g
}

func (g *Graph) HasVertex(id state.NodeId) bool {
	_, found := slices.BinarySearch(g.vertices, id)
	return found
}

// Vertices are sorted by id
func (g *Graph) Vertices() []state.NodeId {
	return slices.Clone(g.vertices)
}

func (g *Graph) Edges(from state.NodeId) []Edge {
	return g.edges[from]
}
