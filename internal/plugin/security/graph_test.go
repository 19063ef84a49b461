package security

import (
	"errors"
	"testing"
)

func TestDependencyGraphResolveOrder(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("editor-plus", "core-utils")
	g.AddDependency("editor-plus", "theme-pack")
	g.AddDependency("theme-pack", "core-utils")

	order, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}

	if pos["core-utils"] >= pos["editor-plus"] {
		t.Errorf("core-utils must load before editor-plus: order=%v", order)
	}
	if pos["core-utils"] >= pos["theme-pack"] {
		t.Errorf("core-utils must load before theme-pack: order=%v", order)
	}
	if pos["theme-pack"] >= pos["editor-plus"] {
		t.Errorf("theme-pack must load before editor-plus: order=%v", order)
	}
}

func TestDependencyGraphResolveIndependentNodes(t *testing.T) {
	g := NewDependencyGraph()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	order, err := g.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("expected 3 nodes, got %d: %v", len(order), order)
	}
}

func TestDependencyGraphCircularDependency(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	g.AddDependency("c", "a")

	_, err := g.Resolve()
	if err == nil {
		t.Fatal("expected circular dependency error, got nil")
	}

	var cycleErr *CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CircularDependencyError, got %T", err)
	}
	if len(cycleErr.Cycle) == 0 {
		t.Error("expected a non-empty cycle")
	}
	if !errors.Is(err, ErrCircularDependency) {
		t.Error("expected errors.Is to match ErrCircularDependency")
	}
}

func TestDependencyGraphSelfDependency(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("a", "a")

	_, err := g.Resolve()
	if err == nil {
		t.Fatal("expected circular dependency error for self-dependency")
	}
}

func TestDependencyGraphDependentsAndRequires(t *testing.T) {
	g := NewDependencyGraph()
	g.AddDependency("a", "c")
	g.AddDependency("b", "c")

	dependents := g.Dependents("c")
	if len(dependents) != 2 || dependents[0] != "a" || dependents[1] != "b" {
		t.Errorf("Dependents(c) = %v, want [a b]", dependents)
	}

	requires := g.Requires("a")
	if len(requires) != 1 || requires[0] != "c" {
		t.Errorf("Requires(a) = %v, want [c]", requires)
	}
}
