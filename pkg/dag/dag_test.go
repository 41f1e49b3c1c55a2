package dag

import (
	"errors"
	"slices"
	"testing"
)

func buildChain(t *testing.T, ids ...string) *DAG {
	t.Helper()
	g := New(nil)
	for _, id := range ids {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.AddEdge(Edge{From: ids[i], FromAttr: "out", To: ids[i+1], ToAttr: "in"}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New(nil)
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("AddNode(empty) = %v, want %v", err, ErrInvalidNodeID)
	}
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode(a) = %v", err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("AddNode(a) again = %v, want %v", err, ErrDuplicateNodeID)
	}
	n, _ := g.Node("a")
	if n.Meta == nil {
		t.Error("Meta = nil, want initialized map")
	}
}

func TestAddEdgeUnknown(t *testing.T) {
	g := buildChain(t, "a")
	if err := g.AddEdge(Edge{From: "x", To: "a"}); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("AddEdge(x->a) = %v, want %v", err, ErrUnknownSourceNode)
	}
	if err := g.AddEdge(Edge{From: "a", To: "x"}); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("AddEdge(a->x) = %v, want %v", err, ErrUnknownTargetNode)
	}
}

func TestAddEdgeReplacesInput(t *testing.T) {
	g := buildChain(t, "a", "b", "c")
	// c.in is fed by b; reconnecting it from a replaces that edge.
	if err := g.AddEdge(Edge{From: "a", FromAttr: "out", To: "c", ToAttr: "in"}); err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}
	if got := g.Parents("c"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Parents(c) = %v, want [a]", got)
	}
	if got := g.Children("b"); len(got) != 0 {
		t.Errorf("Children(b) = %v, want []", got)
	}
}

func TestRemoveInputKeepsParallelEdge(t *testing.T) {
	g := buildChain(t, "a", "b")
	_ = g.AddEdge(Edge{From: "a", FromAttr: "out2", To: "b", ToAttr: "in2"})

	g.RemoveInput("b", "in")
	if got := g.Parents("b"); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Parents(b) = %v, want [a]", got)
	}
	g.RemoveInput("b", "in2")
	if got := g.Parents("b"); len(got) != 0 {
		t.Errorf("Parents(b) = %v, want []", got)
	}
	g.RemoveInput("b", "missing")
}

func TestSetName(t *testing.T) {
	g := buildChain(t, "a")
	if err := g.SetName("a", "pCube1"); err != nil {
		t.Fatal(err)
	}
	n, _ := g.Node("a")
	if n.Label() != "pCube1" {
		t.Errorf("Label() = %q, want pCube1", n.Label())
	}
	if err := g.SetName("zz", "x"); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("SetName(zz) = %v, want %v", err, ErrUnknownSourceNode)
	}
}

func TestAssignLayers(t *testing.T) {
	g := buildChain(t, "a", "b", "c")
	_ = g.AddNode(Node{ID: "d"})
	_ = g.AddEdge(Edge{From: "a", FromAttr: "out", To: "c", ToAttr: "in2"})
	g.AssignLayers()

	want := map[string]int{"a": 0, "b": 1, "c": 2, "d": 0}
	for id, row := range want {
		n, _ := g.Node(id)
		if n.Row != row {
			t.Errorf("Row(%s) = %d, want %d", id, n.Row, row)
		}
	}
	if g.MaxRow() != 2 {
		t.Errorf("MaxRow() = %d, want 2", g.MaxRow())
	}
	if got := NodeIDs(g.NodesInRow(0)); !slices.Equal(got, []string{"a", "d"}) {
		t.Errorf("NodesInRow(0) = %v, want [a d]", got)
	}
}

func TestSourcesSinks(t *testing.T) {
	g := buildChain(t, "a", "b", "c")
	if got := NodeIDs(g.Sources()); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Sources() = %v, want [a]", got)
	}
	if got := NodeIDs(g.Sinks()); !slices.Equal(got, []string{"c"}) {
		t.Errorf("Sinks() = %v, want [c]", got)
	}
}

func TestFindCycle(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *DAG
		want  []string
	}{
		{
			name:  "acyclic",
			build: func(t *testing.T) *DAG { return buildChain(t, "a", "b", "c") },
			want:  nil,
		},
		{
			name: "three cycle",
			build: func(t *testing.T) *DAG {
				g := buildChain(t, "a", "b", "c")
				_ = g.AddEdge(Edge{From: "c", FromAttr: "out", To: "b", ToAttr: "in2"})
				return g
			},
			want: []string{"b", "c", "b"},
		},
		{
			name: "self loop",
			build: func(t *testing.T) *DAG {
				g := buildChain(t, "a")
				_ = g.AddEdge(Edge{From: "a", FromAttr: "out", To: "a", ToAttr: "in"})
				return g
			},
			want: []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build(t)
			got := g.FindCycle()
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindCycle() = %v, want %v", got, tt.want)
			}
			err := g.Validate()
			if (tt.want != nil) != errors.Is(err, ErrGraphHasCycle) {
				t.Errorf("Validate() = %v, cycle expected %v", err, tt.want != nil)
			}
		})
	}
}
