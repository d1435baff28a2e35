package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// In-Memory Store
// =============================================================================

// Memory is an in-process Store. It is safe for concurrent use and returns
// copies, so callers can hold results across mutations.
type Memory struct {
	mu   sync.RWMutex
	snap *model.Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snap: model.EmptySnapshot()}
}

// NewMemoryFrom creates an in-memory store seeded with a snapshot.
func NewMemoryFrom(snap *model.Snapshot) *Memory {
	m := NewMemory()
	if snap != nil {
		m.snap = cloneSnapshot(snap)
	}
	return m
}

func (m *Memory) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSnapshot(m.snap), nil
}

func (m *Memory) Nodes(ctx context.Context) ([]model.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]model.Node, 0, len(m.snap.Nodes))
	for _, n := range m.snap.Nodes {
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (m *Memory) Node(ctx context.Context, id string) (model.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.snap.Nodes[id]
	if !ok {
		return model.Node{}, fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	return n, nil
}

func (m *Memory) UpsertNode(ctx context.Context, n model.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Nodes[n.ID] = n
	return nil
}

// DeleteNode removes the node, its saved position, and every relationship
// touching it.
func (m *Memory) DeleteNode(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snap.Nodes[id]; !ok {
		return fmt.Errorf("node %q: %w", id, ErrNotFound)
	}
	delete(m.snap.Nodes, id)
	delete(m.snap.Positions, id)

	kept := m.snap.Edges[:0]
	for _, e := range m.snap.Edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	m.snap.Edges = kept
	return nil
}

func (m *Memory) Relationships(ctx context.Context) ([]model.Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := make([]model.Relationship, len(m.snap.Edges))
	copy(edges, m.snap.Edges)
	return edges, nil
}

func (m *Memory) UpsertRelationship(ctx context.Context, r model.Relationship) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.snap.Edges {
		if e.ID == r.ID {
			m.snap.Edges[i] = r
			return r.ID, nil
		}
	}
	m.snap.Edges = append(m.snap.Edges, r)
	return r.ID, nil
}

func (m *Memory) DeleteRelationship(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.snap.Edges {
		if e.ID == id {
			m.snap.Edges = append(m.snap.Edges[:i], m.snap.Edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("relationship %q: %w", id, ErrNotFound)
}

func (m *Memory) Positions(ctx context.Context) (map[string]model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	positions := make(map[string]model.Position, len(m.snap.Positions))
	for id, p := range m.snap.Positions {
		positions[id] = p
	}
	return positions, nil
}

func (m *Memory) SavePosition(ctx context.Context, nodeID string, pos model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Positions[nodeID] = pos
	return nil
}

func (m *Memory) SavePositions(ctx context.Context, positions map[string]model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range positions {
		m.snap.Positions[id] = p
	}
	return nil
}

func (m *Memory) Scenarios(ctx context.Context) ([]model.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scenarios := make([]model.Scenario, 0, len(m.snap.Scenarios))
	for _, s := range m.snap.Scenarios {
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (m *Memory) Scenario(ctx context.Context, id string) (model.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snap.Scenarios[id]
	if !ok {
		return model.Scenario{}, fmt.Errorf("scenario %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Memory) UpsertScenario(ctx context.Context, s model.Scenario) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if err := s.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Scenarios[s.ID] = s
	return s.ID, nil
}

func (m *Memory) DeleteScenario(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snap.Scenarios[id]; !ok {
		return fmt.Errorf("scenario %q: %w", id, ErrNotFound)
	}
	delete(m.snap.Scenarios, id)
	return nil
}

func (m *Memory) Import(ctx context.Context, snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap == nil {
		m.snap = model.EmptySnapshot()
		return nil
	}
	m.snap = cloneSnapshot(snap)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = model.EmptySnapshot()
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneSnapshot(snap *model.Snapshot) *model.Snapshot {
	out := model.EmptySnapshot()
	for id, n := range snap.Nodes {
		out.Nodes[id] = n
	}
	out.Edges = make([]model.Relationship, len(snap.Edges))
	copy(out.Edges, snap.Edges)
	for id, p := range snap.Positions {
		out.Positions[id] = p
	}
	for id, s := range snap.Scenarios {
		out.Scenarios[id] = s
	}
	return out
}
