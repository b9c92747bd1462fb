package graphtraversal

import (
	"testing"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/app/ports"
	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/graph"
)

func mustEdge(t *testing.T, source, target string) *graph.Edge {
	t.Helper()
	e, err := graph.New(source, target, graph.CommunicationSync, graph.CriticalityHard, "grpc", graph.SourceManual, time.Now())
	if err != nil {
		t.Fatalf("graph.New() error = %v", err)
	}
	return e
}

func TestWalkDownstreamIncludesStart(t *testing.T) {
	edges := []*graph.Edge{mustEdge(t, "a", "b"), mustEdge(t, "b", "c")}
	sub := Walk(edges, "a", ports.DirectionDownstream, 3)
	if len(sub.Nodes) != 3 {
		t.Fatalf("Nodes = %v, want a, b, c", sub.Nodes)
	}
	if sub.HasCycle {
		t.Errorf("HasCycle = true, want false")
	}
}

func TestWalkRespectsMaxDepth(t *testing.T) {
	edges := []*graph.Edge{mustEdge(t, "a", "b"), mustEdge(t, "b", "c"), mustEdge(t, "c", "d")}
	sub := Walk(edges, "a", ports.DirectionDownstream, 1)
	if sub.ReachedDepth != 1 {
		t.Errorf("ReachedDepth = %d, want 1", sub.ReachedDepth)
	}
	for _, n := range sub.Nodes {
		if n == "c" || n == "d" {
			t.Errorf("Nodes = %v, should not reach beyond depth 1", sub.Nodes)
		}
	}
}

func TestWalkDetectsCycleWithoutInfiniteLoop(t *testing.T) {
	edges := []*graph.Edge{mustEdge(t, "a", "b"), mustEdge(t, "b", "c"), mustEdge(t, "c", "a")}
	sub := Walk(edges, "a", ports.DirectionDownstream, 10)
	if !sub.HasCycle {
		t.Errorf("HasCycle = false, want true")
	}
	if len(sub.Nodes) != 3 {
		t.Errorf("Nodes = %v, want exactly a, b, c", sub.Nodes)
	}
}

func TestWalkUpstream(t *testing.T) {
	edges := []*graph.Edge{mustEdge(t, "a", "b"), mustEdge(t, "b", "c")}
	sub := Walk(edges, "c", ports.DirectionUpstream, 3)
	if len(sub.Nodes) != 3 {
		t.Fatalf("Nodes = %v, want a, b, c reachable upstream from c", sub.Nodes)
	}
}
