package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/encodeous/sospf/state"
)

type Hop struct {
	Id state.NodeId
	// Weight of the edge used to reach Id
	Weight uint16
}

type Path struct {
	Source state.NodeId
	Hops   []Hop
	Total  int
}

// String renders the path as src->(w1)hop1->(w2)hop2
func (p Path) String() string {
	sb := strings.Builder{}
	sb.WriteString(string(p.Source))
	for _, h := range p.Hops {
		sb.WriteString(fmt.Sprintf("->(%d)%s", h.Weight, h.Id))
	}
	return sb.String()
}

// ShortestPaths is the single-source shortest path tree of a Graph
type ShortestPaths struct {
	g      *Graph
	source state.NodeId
	dist   map[state.NodeId]int
	prev   map[state.NodeId]Edge
}

// Dijkstra scans linearly for the closest unvisited vertex. Ties go to the lower id.
func Dijkstra(g *Graph, source state.NodeId) *ShortestPaths {
	sp := &ShortestPaths{
		g:      g,
		source: source,
		dist:   map[state.NodeId]int{source: 0},
		prev:   make(map[state.NodeId]Edge),
	}
	visited := make(map[state.NodeId]struct{})
	for {
		cur, found := state.NodeId(""), false
		for _, v := range g.Vertices() {
			if _, ok := visited[v]; ok {
				continue
			}
			d, ok := sp.dist[v]
			if !ok {
				continue
			}
			if !found || d < sp.dist[cur] {
				cur, found = v, true
			}
		}
		if !found {
			break
		}
		visited[cur] = struct{}{}
		for _, e := range g.Edges(cur) {
			nd := sp.dist[cur] + int(e.Weight)
			if d, ok := sp.dist[e.To]; !ok || nd < d {
				sp.dist[e.To] = nd
				sp.prev[e.To] = e
			}
		}
	}
	return sp
}

// PathTo walks the predecessors of dst back to the source
func (sp *ShortestPaths) PathTo(dst state.NodeId) (Path, error) {
	if !sp.g.HasVertex(dst) {
		return Path{}, fmt.Errorf("%w: %s is not in the topology", state.ErrNoPath, dst)
	}
	if dst == sp.source {
		return Path{Source: sp.source}, nil
	}
	total, ok := sp.dist[dst]
	if !ok {
		return Path{}, fmt.Errorf("%w: %s is unreachable", state.ErrNoPath, dst)
	}
	var hops []Hop
	for cur := dst; cur != sp.source; {
		e := sp.prev[cur]
		hops = append(hops, Hop{cur, e.Weight})
		cur = e.From
	}
	slices.Reverse(hops)
	return Path{Source: sp.source, Hops: hops, Total: total}, nil
}
