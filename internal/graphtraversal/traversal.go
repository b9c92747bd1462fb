// Package graphtraversal implements the bounded-depth, path-tracked walk
// shared by every DependencyRepository adapter, so the traversal semantics
// (§4.2) are defined exactly once regardless of which storage backend
// materializes the edge set.
package graphtraversal

import (
	"sort"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
)

// Walk performs a bounded-depth directed traversal starting at start over
// the given edge set. A node, once visited on the current path, is not
// re-traversed via itself — this is what prevents infinite loops on a
// cyclic subgraph while still reporting that a cycle was encountered.
func Walk(edges []*graph.Edge, start string, direction ports.TraversalDirection, maxDepth int) *ports.Subgraph {
	adjacency := make(map[string][]*graph.Edge)
	reverseAdjacency := make(map[string][]*graph.Edge)
	for _, e := range edges {
		adjacency[e.Source] = append(adjacency[e.Source], e)
		reverseAdjacency[e.Target] = append(reverseAdjacency[e.Target], e)
	}

	visitedNodes := map[string]bool{start: true}
	var traversedEdges []*graph.Edge
	reachedDepth := 0
	hasCycle := false

	var walk func(node string, depth int, path map[string]bool)
	walk = func(node string, depth int, path map[string]bool) {
		if depth >= maxDepth {
			return
		}
		for _, e := range neighborsFor(direction, node, adjacency, reverseAdjacency) {
			next := e.Target
			if direction == ports.DirectionUpstream {
				next = e.Source
			}
			traversedEdges = append(traversedEdges, e)
			if path[next] {
				hasCycle = true
				continue
			}
			visitedNodes[next] = true
			if depth+1 > reachedDepth {
				reachedDepth = depth + 1
			}
			path[next] = true
			walk(next, depth+1, path)
			delete(path, next)
		}
	}
	walk(start, 0, map[string]bool{start: true})

	nodes := make([]string, 0, len(visitedNodes))
	for n := range visitedNodes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	return &ports.Subgraph{
		Nodes:        nodes,
		Edges:        traversedEdges,
		ReachedDepth: reachedDepth,
		HasCycle:     hasCycle,
	}
}

func neighborsFor(direction ports.TraversalDirection, node string, adjacency, reverseAdjacency map[string][]*graph.Edge) []*graph.Edge {
	switch direction {
	case ports.DirectionDownstream:
		return adjacency[node]
	case ports.DirectionUpstream:
		return reverseAdjacency[node]
	case ports.DirectionBoth:
		combined := append([]*graph.Edge(nil), adjacency[node]...)
		return append(combined, reverseAdjacency[node]...)
	default:
		return nil
	}
}
