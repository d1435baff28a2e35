package canvas

import (
	"fmt"
	"math"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Node Shapes
// =============================================================================

// Shape is the rendered outline of a node, selected by its type.
type Shape string

// Shapes and their world-space sizes.
const (
	ShapeCircle  Shape = "circle"  // core concepts, radius 30
	ShapeSquare  Shape = "square"  // KPIs, half-side 26
	ShapeDiamond Shape = "diamond" // decisions, half-diagonal 32
)

const (
	circleRadius    = 30.0
	squareHalfSide  = 26.0
	diamondHalfDiag = 32.0
)

// ShapeFor maps a node type to its shape. Unknown types fall back to a
// circle rather than failing.
func ShapeFor(t model.NodeType) Shape {
	switch t {
	case model.TypeKPI:
		return ShapeSquare
	case model.TypeDecision:
		return ShapeDiamond
	default:
		return ShapeCircle
	}
}

// Radius returns the nominal world-space radius of a shape: the distance
// from center to boundary along an axis.
func (s Shape) Radius() float64 {
	switch s {
	case ShapeSquare:
		return squareHalfSide
	case ShapeDiamond:
		return diamondHalfDiag
	default:
		return circleRadius
	}
}

// AnchorOffset is the distance from a node's center to its boundary along
// the given unit direction, used to trim edge endpoints so arrows meet the
// shape outline instead of the center.
//
// For a diamond |x| + |y| = r describes the boundary, so the offset along a
// unit vector d is r / (|dx| + |dy|). Circles and squares use their fixed
// radius.
func (s Shape) AnchorOffset(dir Point) float64 {
	r := s.Radius()
	if s != ShapeDiamond {
		return r
	}
	denom := math.Abs(dir.X) + math.Abs(dir.Y)
	if denom < 1e-9 {
		return r
	}
	return r / denom
}

// =============================================================================
// Edge Geometry
// =============================================================================

// LaneSpacing is the lateral distance between parallel edges of a bundle.
const LaneSpacing = 20.0

// EdgeGeometry is a drawable edge path in world coordinates. Start and End
// are trimmed to the node boundaries. Curved edges bow through Control as a
// quadratic Bezier; straight edges ignore it.
type EdgeGeometry struct {
	Start   Point
	End     Point
	Control Point
	Curved  bool
}

// PathData renders the geometry as SVG path data.
func (g EdgeGeometry) PathData() string {
	if !g.Curved {
		return fmt.Sprintf("M %.1f %.1f L %.1f %.1f", g.Start.X, g.Start.Y, g.End.X, g.End.Y)
	}
	return fmt.Sprintf("M %.1f %.1f Q %.1f %.1f %.1f %.1f",
		g.Start.X, g.Start.Y, g.Control.X, g.Control.Y, g.End.X, g.End.Y)
}

// LabelAnchor returns the point where an edge label sits: the curve midpoint
// for curved edges, the segment midpoint otherwise.
func (g EdgeGeometry) LabelAnchor() Point {
	if !g.Curved {
		return midpoint(g.Start, g.End)
	}
	// Quadratic Bezier at t=0.5.
	return Point{
		X: 0.25*g.Start.X + 0.5*g.Control.X + 0.25*g.End.X,
		Y: 0.25*g.Start.Y + 0.5*g.Control.Y + 0.25*g.End.Y,
	}
}

// EdgePath computes the drawable path for an edge between two node centers.
// Endpoints are trimmed by each node's shape-specific anchor offset. lane and
// laneCount come from bundling: curve k of an N-edge bundle is displaced by
// (k - (N-1)/2) * LaneSpacing along the edge normal, so bundles fan out
// symmetrically around the direct line. A single edge stays straight.
func EdgePath(from, to Point, fromShape, toShape Shape, lane, laneCount int) EdgeGeometry {
	dir := unitDirection(from, to)

	start := from.Add(dir.Scale(fromShape.AnchorOffset(dir)))
	end := to.Sub(dir.Scale(toShape.AnchorOffset(dir)))

	offset := LaneOffset(lane, laneCount)
	if offset == 0 {
		return EdgeGeometry{Start: start, End: end}
	}

	normal := Point{-dir.Y, dir.X}
	control := midpoint(start, end).Add(normal.Scale(offset))
	return EdgeGeometry{Start: start, End: end, Control: control, Curved: true}
}

// LaneOffset is the lateral displacement of curve lane in a bundle of
// laneCount parallel edges. Offsets are symmetric around zero: for three
// edges they are -LaneSpacing, 0, +LaneSpacing.
func LaneOffset(lane, laneCount int) float64 {
	if laneCount <= 1 {
		return 0
	}
	return (float64(lane) - float64(laneCount-1)/2) * LaneSpacing
}

// unitDirection returns the unit vector from a to b. Coincident points would
// make the direction undefined by division by zero, so they fall back to a
// fixed unit vector instead of producing NaN geometry.
func unitDirection(a, b Point) Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return Point{1, 0}
	}
	return Point{dx / length, dy / length}
}

func midpoint(a, b Point) Point {
	return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// =============================================================================
// Parallel-Edge Bundling
// =============================================================================

// EdgeLane is an edge with its assigned lane within a bundle of parallel
// edges. Lane is the rank in stable input order; Count is the bundle size.
type EdgeLane struct {
	Edge  model.Relationship
	Lane  int
	Count int
}

// BundleEdges groups edges by their unordered endpoint pair and assigns each
// a lane by stable list order, so overlapping relationships between the same
// two nodes fan out instead of drawing on top of each other. The result
// preserves input order.
func BundleEdges(edges []model.Relationship) []EdgeLane {
	counts := make(map[string]int, len(edges))
	for _, e := range edges {
		counts[pairKey(e.From, e.To)]++
	}

	seen := make(map[string]int, len(counts))
	out := make([]EdgeLane, 0, len(edges))
	for _, e := range edges {
		key := pairKey(e.From, e.To)
		out = append(out, EdgeLane{Edge: e, Lane: seen[key], Count: counts[key]})
		seen[key]++
	}
	return out
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
