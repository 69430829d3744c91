package layout

import (
	"reflect"
	"testing"
)

func TestCompute_RanksFollowDepth(t *testing.T) {
	cfg := DefaultConfig()
	points := Compute(
		[]string{"root", "a", "b", "leaf"},
		[]Edge{
			{Source: "root", Target: "a"},
			{Source: "root", Target: "b"},
			{Source: "a", Target: "leaf"},
		},
		cfg,
	)

	rankWidth := cfg.NodeWidth + cfg.RankSep
	slotHeight := cfg.NodeHeight + cfg.NodeSep

	if got := points["root"]; got != (Point{X: 0, Y: 0}) {
		t.Fatalf("root at %+v", got)
	}
	if got := points["a"]; got != (Point{X: rankWidth, Y: 0}) {
		t.Fatalf("a at %+v", got)
	}
	if got := points["b"]; got != (Point{X: rankWidth, Y: slotHeight}) {
		t.Fatalf("b at %+v", got)
	}
	if got := points["leaf"]; got != (Point{X: 2 * rankWidth, Y: 0}) {
		t.Fatalf("leaf at %+v", got)
	}
}

func TestCompute_IsDeterministic(t *testing.T) {
	ids := []string{"r1", "r2", "c1", "c2", "c3"}
	edges := []Edge{
		{Source: "r1", Target: "c1"},
		{Source: "r1", Target: "c2"},
		{Source: "r2", Target: "c3"},
	}

	first := Compute(ids, edges, DefaultConfig())
	second := Compute(ids, edges, DefaultConfig())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layout not deterministic")
	}
}

func TestCompute_SiblingRootsStack(t *testing.T) {
	cfg := DefaultConfig()
	points := Compute([]string{"r1", "r2", "r3"}, nil, cfg)

	slotHeight := cfg.NodeHeight + cfg.NodeSep
	for i, id := range []string{"r1", "r2", "r3"} {
		want := Point{X: 0, Y: float64(i) * slotHeight}
		if points[id] != want {
			t.Fatalf("%s at %+v, want %+v", id, points[id], want)
		}
	}
}

func TestCompute_IgnoresEdgesToMissingNodes(t *testing.T) {
	points := Compute(
		[]string{"only"},
		[]Edge{{Source: "ghost", Target: "only"}, {Source: "only", Target: "phantom"}},
		DefaultConfig(),
	)
	if got := points["only"]; got != (Point{X: 0, Y: 0}) {
		t.Fatalf("node with unresolvable edges should be a root, got %+v", got)
	}
	if len(points) != 1 {
		t.Fatalf("phantom nodes laid out: %v", points)
	}
}

func TestCompute_CycleStillAssignsEveryNode(t *testing.T) {
	points := Compute(
		[]string{"x", "y"},
		[]Edge{{Source: "x", Target: "y"}, {Source: "y", Target: "x"}},
		DefaultConfig(),
	)
	if len(points) != 2 {
		t.Fatalf("cycle nodes missing from layout: %v", points)
	}
}

func TestCompute_ZeroConfigFallsBackToDefaults(t *testing.T) {
	points := Compute([]string{"a", "b"}, []Edge{{Source: "a", Target: "b"}}, Config{})
	cfg := DefaultConfig()
	if got := points["b"].X; got != cfg.NodeWidth+cfg.RankSep {
		t.Fatalf("fallback spacing wrong: %v", got)
	}
}
