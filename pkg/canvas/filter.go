package canvas

import (
	"slices"
	"strings"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Filter Engine - Visible Subgraph Derivation
// =============================================================================

// Filter selects the visible subset of the graph. The zero value shows every
// node and hides every edge; SetFilter on a Session uses DefaultFilter
// instead, which also shows relationships.
type Filter struct {
	// Module restricts nodes to one module. Empty or model.ModuleAll
	// matches everything.
	Module string

	// Search keeps nodes whose id or definition contains the term,
	// case-insensitive. Empty matches everything.
	Search string

	// ShowRelationships toggles edge visibility as a whole.
	ShowRelationships bool
}

// DefaultFilter shows all nodes and all relationships.
func DefaultFilter() Filter {
	return Filter{Module: model.ModuleAll, ShowRelationships: true}
}

// Visible is the filtered subgraph handed to geometry resolution. Nodes are
// sorted by id for deterministic output; Edges preserve snapshot order, which
// parallel-edge bundling relies on for stable lane assignment.
type Visible struct {
	Nodes   []model.Node
	NodeIDs map[string]bool
	Edges   []model.Relationship
}

// Apply derives the visible subgraph from a snapshot. Pure and deterministic:
// recomputed in full on every relevant input change. An edge is visible only
// when relationships are shown and both endpoints survive the node filter,
// so dangling edges are silently dropped.
func (f Filter) Apply(snap *model.Snapshot) Visible {
	v := Visible{NodeIDs: make(map[string]bool)}
	if snap == nil {
		return v
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	for _, n := range snap.Nodes {
		if !f.moduleMatch(n.Module) {
			continue
		}
		if term != "" && !nodeMatches(n, term) {
			continue
		}
		v.Nodes = append(v.Nodes, n)
		v.NodeIDs[n.ID] = true
	}

	slices.SortFunc(v.Nodes, func(a, b model.Node) int {
		return strings.Compare(a.ID, b.ID)
	})

	if !f.ShowRelationships {
		return v
	}
	for _, e := range snap.Edges {
		if v.NodeIDs[e.From] && v.NodeIDs[e.To] {
			v.Edges = append(v.Edges, e)
		}
	}
	return v
}

func (f Filter) moduleMatch(module string) bool {
	return f.Module == "" || f.Module == model.ModuleAll || f.Module == module
}

func nodeMatches(n model.Node, term string) bool {
	return strings.Contains(strings.ToLower(n.ID), term) ||
		strings.Contains(strings.ToLower(n.Definition), term)
}
