package canvas

import "github.com/flowcanvas/flowcanvas/pkg/model"

// =============================================================================
// Selection Model
// =============================================================================

// Selection tracks the selected and hovered node ids. Owned by a Session;
// no locking of its own.
type Selection struct {
	selected string
	hovered  string
}

// Select marks a node as selected. An empty id clears the selection, which
// is what clicking empty canvas does.
func (s *Selection) Select(id string) { s.selected = id }

// Clear drops the selection.
func (s *Selection) Clear() { s.selected = "" }

// Hover marks a node as hovered. Empty clears.
func (s *Selection) Hover(id string) { s.hovered = id }

// Selected returns the selected node id, if any.
func (s *Selection) Selected() (string, bool) { return s.selected, s.selected != "" }

// Hovered returns the hovered node id, if any.
func (s *Selection) Hovered() (string, bool) { return s.hovered, s.hovered != "" }

// ConnectedSet returns the ids linked to the selected node by some visible
// edge, including the selected node itself. Empty when nothing is selected.
func (s *Selection) ConnectedSet(edges []model.Relationship) map[string]bool {
	if s.selected == "" {
		return nil
	}
	out := map[string]bool{s.selected: true}
	for _, e := range edges {
		if e.From == s.selected {
			out[e.To] = true
		}
		if e.To == s.selected {
			out[e.From] = true
		}
	}
	return out
}
