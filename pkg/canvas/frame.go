package canvas

import (
	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Frame - Render-Ready Projection
// =============================================================================

// DimmedOpacity is the opacity of nodes and edges outside the current
// highlight set (scenario path or selection neighborhood).
const DimmedOpacity = 0.2

// NodeView is one node ready to draw, in world coordinates.
type NodeView struct {
	Node    model.Node
	Pos     model.Position
	Shape   Shape
	Opacity float64

	Selected bool
	Hovered  bool

	InPath  bool
	Current bool
	Visited bool
}

// EdgeView is one edge ready to draw, in world coordinates.
type EdgeView struct {
	Edge     model.Relationship
	Geometry EdgeGeometry
	Opacity  float64

	// ShowLabel is set only for highlighted edges: adjacent to the
	// selection, the active scenario step, or adjacent to the hover.
	ShowLabel bool

	InPath bool
	Active bool
}

// Frame is a full render-ready view of the session. All geometry is world
// space; the renderer applies Transform.
type Frame struct {
	Transform Transform
	Nodes     []NodeView
	Edges     []EdgeView

	State      PlayerState
	StepIndex  int
	Scenario   *model.Scenario
	Annotation *model.FlowStep

	Drag        DragState
	EditingNode string
}

// Frame projects the current session state into drawable primitives. Nodes
// without a stored position are omitted, as are edges missing either
// endpoint.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := s.filter.Apply(s.snap)

	state := s.player.State()
	scenarioActive := state != StateIdle
	selected, selectionActive := s.sel.Selected()
	editingNode, _ := s.drag.EditingNode()
	hovered, _ := s.sel.Hovered()
	connected := s.sel.ConnectedSet(visible.Edges)

	f := Frame{
		Transform:   s.transform,
		State:       state,
		StepIndex:   s.player.StepIndex(),
		Scenario:    s.player.Scenario(),
		Drag:        s.drag.State(),
		EditingNode: editingNode,
	}
	if ann, ok := s.player.StepAnnotation(); ok {
		f.Annotation = &ann
	}

	for _, n := range visible.Nodes {
		pos, ok := s.snap.PositionOf(n.ID)
		if !ok {
			continue
		}
		nv := NodeView{
			Node:     n,
			Pos:      pos,
			Shape:    ShapeFor(n.Type),
			Selected: selectionActive && n.ID == selected,
			Hovered:  n.ID == hovered,
			InPath:   s.player.IsNodeInPath(n.ID),
			Current:  s.player.IsNodeCurrent(n.ID),
			Visited:  s.player.IsNodeVisited(n.ID),
		}
		nv.Opacity = s.opacityFor(nv.InPath, connected[n.ID], scenarioActive, selectionActive)
		f.Nodes = append(f.Nodes, nv)
	}

	for _, el := range BundleEdges(visible.Edges) {
		e := el.Edge
		fromPos, okFrom := s.snap.PositionOf(e.From)
		toPos, okTo := s.snap.PositionOf(e.To)
		if !okFrom || !okTo {
			continue
		}
		ev := EdgeView{
			Edge: e,
			Geometry: EdgePath(
				Point{fromPos.X, fromPos.Y}, Point{toPos.X, toPos.Y},
				ShapeFor(s.snap.Nodes[e.From].Type), ShapeFor(s.snap.Nodes[e.To].Type),
				el.Lane, el.Count,
			),
			InPath: s.player.IsEdgeInPath(e.From, e.To),
			Active: s.player.IsEdgeActive(e.From, e.To),
		}
		touchesSel := selectionActive && (e.From == selected || e.To == selected)
		touchesHover := hovered != "" && (e.From == hovered || e.To == hovered)
		ev.ShowLabel = ev.Active || touchesSel || touchesHover
		ev.Opacity = s.opacityFor(ev.InPath, touchesSel, scenarioActive, selectionActive)
		f.Edges = append(f.Edges, ev)
	}

	return f
}

// opacityFor applies the dimming rules. Scenario dimming takes priority
// over selection dimming; with neither active everything is full opacity.
func (s *Session) opacityFor(inPath, inSelection, scenarioActive, selectionActive bool) float64 {
	switch {
	case scenarioActive:
		if inPath {
			return 1.0
		}
		return DimmedOpacity
	case selectionActive:
		if inSelection {
			return 1.0
		}
		return DimmedOpacity
	default:
		return 1.0
	}
}
