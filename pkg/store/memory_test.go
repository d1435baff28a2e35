package store

import (
	"context"
	"errors"
	"testing"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

func TestMemoryNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	n := model.Node{ID: "customer", Module: "crm", Type: model.TypeCore}
	if err := m.UpsertNode(ctx, n); err != nil {
		t.Fatalf("UpsertNode() error = %v", err)
	}

	got, err := m.Node(ctx, "customer")
	if err != nil {
		t.Fatalf("Node() error = %v", err)
	}
	if got.Module != "crm" {
		t.Errorf("Node().Module = %q, want %q", got.Module, "crm")
	}

	if err := m.DeleteNode(ctx, "customer"); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if _, err := m.Node(ctx, "customer"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Node() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryUpsertNodeRejectsInvalid(t *testing.T) {
	m := NewMemory()
	if err := m.UpsertNode(context.Background(), model.Node{Module: "crm", Type: model.TypeCore}); err == nil {
		t.Error("UpsertNode() with empty id error = nil, want validation error")
	}
}

func TestMemoryDeleteNodeCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFrom(&model.Snapshot{
		Nodes: map[string]model.Node{
			"a": {ID: "a", Module: "crm", Type: model.TypeCore},
			"b": {ID: "b", Module: "crm", Type: model.TypeCore},
			"c": {ID: "c", Module: "crm", Type: model.TypeCore},
		},
		Edges: []model.Relationship{
			{ID: "e1", From: "a", To: "b"},
			{ID: "e2", From: "b", To: "c"},
			{ID: "e3", From: "a", To: "c"},
		},
		Positions: map[string]model.Position{
			"a": {X: 1, Y: 2},
			"b": {X: 3, Y: 4},
		},
	})

	if err := m.DeleteNode(ctx, "a"); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}

	edges, _ := m.Relationships(ctx)
	if len(edges) != 1 || edges[0].ID != "e2" {
		t.Errorf("Relationships() after cascade = %+v, want only e2", edges)
	}
	positions, _ := m.Positions(ctx)
	if _, ok := positions["a"]; ok {
		t.Error("position for deleted node survived")
	}
}

func TestMemoryUpsertRelationshipMintsID(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFrom(&model.Snapshot{
		Nodes: map[string]model.Node{
			"a": {ID: "a", Module: "crm", Type: model.TypeCore},
			"b": {ID: "b", Module: "crm", Type: model.TypeCore},
		},
	})

	id, err := m.UpsertRelationship(ctx, model.Relationship{From: "a", To: "b", Label: "uses"})
	if err != nil {
		t.Fatalf("UpsertRelationship() error = %v", err)
	}
	if id == "" {
		t.Fatal("UpsertRelationship() minted empty id")
	}

	// Same id updates in place.
	if _, err := m.UpsertRelationship(ctx, model.Relationship{ID: id, From: "a", To: "b", Label: "owns"}); err != nil {
		t.Fatalf("UpsertRelationship() update error = %v", err)
	}
	edges, _ := m.Relationships(ctx)
	if len(edges) != 1 || edges[0].Label != "owns" {
		t.Errorf("Relationships() = %+v, want single edge labeled owns", edges)
	}
}

func TestMemoryScenarioLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.UpsertScenario(ctx, model.Scenario{Name: "onboarding", Path: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("UpsertScenario() error = %v", err)
	}
	got, err := m.Scenario(ctx, id)
	if err != nil {
		t.Fatalf("Scenario() error = %v", err)
	}
	if got.Name != "onboarding" {
		t.Errorf("Scenario().Name = %q, want %q", got.Name, "onboarding")
	}

	if err := m.DeleteScenario(ctx, id); err != nil {
		t.Fatalf("DeleteScenario() error = %v", err)
	}
	if err := m.DeleteScenario(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteScenario() twice error = %v, want ErrNotFound", err)
	}
}

func TestMemoryImportAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	seed := &model.Snapshot{
		Nodes: map[string]model.Node{
			"a": {ID: "a", Module: "crm", Type: model.TypeCore},
		},
		Positions: map[string]model.Position{"a": {X: 10, Y: 20}},
	}
	if err := m.Import(ctx, seed); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	// The store holds a copy, not the caller's maps.
	seed.Nodes["b"] = model.Node{ID: "b", Module: "crm", Type: model.TypeCore}
	snap, _ := m.Snapshot(ctx)
	if len(snap.Nodes) != 1 {
		t.Errorf("len(Snapshot().Nodes) = %d, want 1 (import must copy)", len(snap.Nodes))
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	snap, _ = m.Snapshot(ctx)
	if len(snap.Nodes) != 0 || len(snap.Positions) != 0 {
		t.Errorf("Snapshot() after Clear() = %+v, want empty", snap)
	}
}

func TestMemorySnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFrom(&model.Snapshot{
		Nodes: map[string]model.Node{
			"a": {ID: "a", Module: "crm", Type: model.TypeCore},
		},
	})

	snap, _ := m.Snapshot(ctx)
	delete(snap.Nodes, "a")

	again, _ := m.Snapshot(ctx)
	if _, ok := again.Nodes["a"]; !ok {
		t.Error("mutating a returned snapshot changed the store")
	}
}
