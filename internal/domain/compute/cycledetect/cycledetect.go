// Package cycledetect runs Tarjan's strongly-connected-components algorithm
// over a directed edge set, O(V+E), to identify cycles for §4.2.
package cycledetect

import "sort"

// Graph is the minimal adjacency view cycle detection needs: every node and
// its outbound neighbors, over the current (non-stale) edge set.
type Graph struct {
	adjacency map[string][]string
	nodes     []string
}

// NewGraph builds a Graph from a node list and directed edges. Nodes not
// referenced by any edge are still included in the graph; SCCs reports
// only components with more than one member, so such nodes never appear
// in its result.
func NewGraph(nodeIDs []string, edges [][2]string) *Graph {
	g := &Graph{adjacency: make(map[string][]string)}
	seen := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if !seen[id] {
			seen[id] = true
			g.nodes = append(g.nodes, id)
		}
	}
	for _, e := range edges {
		src, dst := e[0], e[1]
		if !seen[src] {
			seen[src] = true
			g.nodes = append(g.nodes, src)
		}
		if !seen[dst] {
			seen[dst] = true
			g.nodes = append(g.nodes, dst)
		}
		g.adjacency[src] = append(g.adjacency[src], dst)
	}
	return g
}

type tarjanState struct {
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
}

// SCCs returns every strongly connected component with more than one
// member — the cycles, per §4.2. Result order is not significant to
// callers; each component's members are sorted for canonical identity.
func SCCs(g *Graph) [][]string {
	st := &tarjanState{
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}

	for _, n := range g.nodes {
		if _, visited := st.index[n]; !visited {
			strongConnect(g, st, n)
		}
	}

	var cycles [][]string
	for _, scc := range st.sccs {
		if len(scc) > 1 {
			sorted := append([]string(nil), scc...)
			sort.Strings(sorted)
			cycles = append(cycles, sorted)
		}
	}
	return cycles
}

// strongConnect is the standard iterative-by-recursion Tarjan step. Depth
// is bounded by the number of nodes in the connected component being
// explored, never by an external traversal-depth cap — SCC detection must
// see the whole current edge set to be correct.
func strongConnect(g *Graph, st *tarjanState, v string) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range g.adjacency[v] {
		if _, visited := st.index[w]; !visited {
			strongConnect(g, st, w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, component)
	}
}
