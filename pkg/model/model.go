// Package model defines the canonical data types for the business graph:
// typed nodes, labeled relationships, world-space positions, and replayable
// scenarios. These types are the serialization format shared by the store,
// the HTTP API, and the canvas engine.
package model

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// NodeType determines the rendered shape of a node.
type NodeType string

// Node types.
const (
	TypeCore     NodeType = "core"     // rendered as a circle
	TypeKPI      NodeType = "kpi"      // rendered as a square
	TypeDecision NodeType = "decision" // rendered as a diamond
)

// ModuleAll is the module filter value that matches every node.
const ModuleAll = "all"

// ValidTypes is the set of supported node types.
var ValidTypes = map[NodeType]bool{
	TypeCore:     true,
	TypeKPI:      true,
	TypeDecision: true,
}

// =============================================================================
// Node
// =============================================================================

// Node is a typed, colored entity in the diagram. ID is the stable identity:
// globally unique and immutable after creation. Renaming a node means
// deleting and recreating it.
//
// The descriptive fields beyond ID, Module, Type and Color are opaque to the
// canvas engine; they are carried for the API and stored as JSON.
type Node struct {
	ID              string   `json:"id"`
	Module          string   `json:"module,omitempty"`
	Type            NodeType `json:"nodeType"`
	Definition      string   `json:"definition,omitempty"`
	BusinessMeaning string   `json:"businessMeaning,omitempty"`
	Grain           string   `json:"grain,omitempty"`
	Color           string   `json:"color,omitempty"`
	BusinessRule    string   `json:"businessRule,omitempty"`

	// Opaque structured fields, preserved verbatim.
	Attributes      json.RawMessage `json:"attributes,omitempty"`
	DataSources     json.RawMessage `json:"dataSources,omitempty"`
	ColumnLineage   json.RawMessage `json:"columnLineage,omitempty"`
	DerivedConcepts json.RawMessage `json:"derivedConcepts,omitempty"`
	GroupByOptions  json.RawMessage `json:"groupByOptions,omitempty"`
	StoreTypeValues json.RawMessage `json:"storeTypeValues,omitempty"`
	UsedInDecisions json.RawMessage `json:"usedInDecisions,omitempty"`
}

// Validate checks the structural invariants of a node.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if !ValidTypes[n.Type] {
		return fmt.Errorf("invalid node type %q (must be one of: core, kpi, decision)", n.Type)
	}
	return nil
}

// =============================================================================
// Relationship
// =============================================================================

// Relationship is a labeled directed edge between two nodes. Type is a
// cardinality tag (e.g. "1:N") used only to select a color and marker.
//
// From and To must reference existing node ids for the edge to be drawable;
// a dangling relationship is dropped from the visible set, never an error.
type Relationship struct {
	ID              string `json:"id,omitempty"`
	From            string `json:"from"`
	To              string `json:"to"`
	Label           string `json:"label,omitempty"`
	Type            string `json:"type,omitempty"`
	Description     string `json:"description,omitempty"`
	BusinessMeaning string `json:"businessMeaning,omitempty"`
	DerivationLogic string `json:"derivationLogic,omitempty"`

	JoinCondition   json.RawMessage `json:"joinCondition,omitempty"`
	DataLineage     json.RawMessage `json:"dataLineage,omitempty"`
	UsedInDecisions json.RawMessage `json:"usedInDecisions,omitempty"`
}

// Validate checks the structural invariants of a relationship.
func (r *Relationship) Validate() error {
	if r.From == "" || r.To == "" {
		return fmt.Errorf("relationship requires both from and to node ids")
	}
	return nil
}

// Touches reports whether the relationship connects the unordered pair {a, b}.
func (r *Relationship) Touches(a, b string) bool {
	return (r.From == a && r.To == b) || (r.From == b && r.To == a)
}

// =============================================================================
// Position
// =============================================================================

// Position is a node location in world coordinates. A node without a position
// is never drawn.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// =============================================================================
// Scenario
// =============================================================================

// FlowStep annotates one transition of a scenario path. Step is 1-based:
// step i describes the transition from Path[i-1] to Path[i].
type FlowStep struct {
	Step   int    `json:"step"`
	From   string `json:"from"`
	To     string `json:"to"`
	Action string `json:"action,omitempty"`
}

// Scenario is an ordered traversal path over existing nodes with per-step
// narrative metadata, replayable as a timed animation. Path may repeat a
// node. len(Path)-1 == len(DataFlow) is the expected shape but is not
// enforced: a mismatch only means a step has no annotation.
type Scenario struct {
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name"`
	Color    string     `json:"color,omitempty"`
	Category string     `json:"category,omitempty"`
	Path     []string   `json:"path"`
	DataFlow []FlowStep `json:"dataFlow,omitempty"`

	KPIsAffected     json.RawMessage `json:"kpisAffected,omitempty"`
	Triggers         json.RawMessage `json:"triggers,omitempty"`
	Questions        json.RawMessage `json:"questions,omitempty"`
	LifecycleRegimes json.RawMessage `json:"lifecycleRegimes,omitempty"`
	UsedInDecisions  json.RawMessage `json:"usedInDecisions,omitempty"`
}

// Validate checks the hard invariants of a scenario: a name and a non-empty
// path. Soft invariants (dataFlow alignment, path ids resolving to real
// nodes) degrade gracefully at use time; Problems reports them.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Path) == 0 {
		return fmt.Errorf("scenario path must not be empty")
	}
	return nil
}

// Problems reports soft-invariant violations against a set of known node
// ids. These are advisory: a scenario with problems still loads and plays,
// degrading per step.
func (s *Scenario) Problems(known map[string]Node) []string {
	var out []string
	if len(s.DataFlow) != 0 && len(s.DataFlow) != len(s.Path)-1 {
		out = append(out, fmt.Sprintf("dataFlow has %d steps for a path of %d nodes (want %d)",
			len(s.DataFlow), len(s.Path), len(s.Path)-1))
	}
	for _, id := range s.Path {
		if _, ok := known[id]; !ok {
			out = append(out, fmt.Sprintf("path references unknown node %q", id))
		}
	}
	return out
}

// StepFor returns the flow annotation for the 1-based step number, if the
// dataFlow is aligned well enough to provide one.
func (s *Scenario) StepFor(step int) (FlowStep, bool) {
	for _, f := range s.DataFlow {
		if f.Step == step {
			return f, true
		}
	}
	return FlowStep{}, false
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is the full graph state loaded wholesale from the store: the
// loadGraph shape consumed by the canvas engine. After every mutation a full
// reload replaces the previous snapshot; there is no incremental patching.
type Snapshot struct {
	Nodes     map[string]Node     `json:"nodes"`
	Edges     []Relationship      `json:"edges"`
	Positions map[string]Position `json:"positions"`
	Scenarios map[string]Scenario `json:"scenarios"`
}

// EmptySnapshot returns a snapshot with initialized maps.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Nodes:     make(map[string]Node),
		Edges:     nil,
		Positions: make(map[string]Position),
		Scenarios: make(map[string]Scenario),
	}
}

// HasNode reports whether the snapshot contains the node id.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.Nodes[id]
	return ok
}

// PositionOf returns the node's position, if it has one.
func (s *Snapshot) PositionOf(id string) (Position, bool) {
	p, ok := s.Positions[id]
	return p, ok
}

// UnmarshalSnapshot deserializes JSON bytes to a Snapshot, initializing any
// missing maps so callers never index nil.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	snap := EmptySnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Nodes == nil {
		snap.Nodes = make(map[string]Node)
	}
	if snap.Positions == nil {
		snap.Positions = make(map[string]Position)
	}
	if snap.Scenarios == nil {
		snap.Scenarios = make(map[string]Scenario)
	}
	return snap, nil
}
