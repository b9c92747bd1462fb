package cycledetect

import (
	"reflect"
	"testing"
)

func TestSCCsNoCycle(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	if sccs := SCCs(g); len(sccs) != 0 {
		t.Errorf("SCCs() = %v, want none for an acyclic chain", sccs)
	}
}

func TestSCCsDetectsSimpleCycle(t *testing.T) {
	g := NewGraph([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})
	sccs := SCCs(g)
	if len(sccs) != 1 {
		t.Fatalf("SCCs() = %v, want exactly one cycle", sccs)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(sccs[0], want) {
		t.Errorf("SCCs()[0] = %v, want %v (sorted canonical)", sccs[0], want)
	}
}

func TestSCCsIgnoresLoneNodeAsNonCycle(t *testing.T) {
	// A single-node SCC (a node with no edges) is not a cycle per §4.2.
	g := NewGraph([]string{"a"}, nil)
	if sccs := SCCs(g); len(sccs) != 0 {
		t.Errorf("SCCs() = %v, want none for a lone node", sccs)
	}
}

func TestSCCsMultipleIndependentCycles(t *testing.T) {
	g := NewGraph(nil, [][2]string{
		{"a", "b"}, {"b", "a"},
		{"x", "y"}, {"y", "z"}, {"z", "x"},
	})
	sccs := SCCs(g)
	if len(sccs) != 2 {
		t.Fatalf("SCCs() = %v, want two independent cycles", sccs)
	}
}

func TestSCCsTerminatesOnLongCycle(t *testing.T) {
	// Cycle of length k should terminate promptly (bounded by node count).
	nodes := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	var edges [][2]string
	for i := 0; i < len(nodes); i++ {
		edges = append(edges, [2]string{nodes[i], nodes[(i+1)%len(nodes)]})
	}
	g := NewGraph(nodes, edges)
	sccs := SCCs(g)
	if len(sccs) != 1 || len(sccs[0]) != len(nodes) {
		t.Fatalf("SCCs() = %v, want a single cycle spanning all %d nodes", sccs, len(nodes))
	}
}
