package render

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/flowcanvas/flowcanvas/pkg/canvas"
	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// Default node fill per type, used when the node carries no color of its own.
var typeColors = map[model.NodeType]string{
	model.TypeCore:     "#4299e1",
	model.TypeKPI:      "#9f7aea",
	model.TypeDecision: "#ed8936",
}

const (
	edgeStroke      = "#94a3b8"
	labelFill       = "#334155"
	selectionStroke = "#1d4ed8"
)

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width      float64
	height     float64
	background string
}

// WithSize sets the output dimensions in pixels.
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = w, h }
}

// WithBackground fills the canvas with a color before drawing.
func WithBackground(color string) SVGOption {
	return func(r *svgRenderer) { r.background = color }
}

// RenderSVG draws a frame as a standalone SVG document. The frame's
// transform is applied as a group transform, so the export shows exactly
// what the interactive viewport showed.
func RenderSVG(f canvas.Frame, opts ...SVGOption) []byte {
	r := svgRenderer{width: 800, height: 600}
	for _, opt := range opts {
		opt(&r)
	}

	nodes := slices.Clone(f.Nodes)
	slices.SortFunc(nodes, func(a, b canvas.NodeView) int {
		return cmp.Compare(a.Node.ID, b.Node.ID)
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, r.height, r.width, r.height)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.background)
	}
	fmt.Fprintf(&buf, `  <g transform="translate(%.2f %.2f) scale(%.4f)">`+"\n",
		f.Transform.X, f.Transform.Y, f.Transform.Scale)

	// Edges go under nodes.
	for _, e := range f.Edges {
		renderEdge(&buf, e)
	}
	for _, e := range f.Edges {
		if e.ShowLabel && e.Edge.Label != "" {
			renderEdgeLabel(&buf, e)
		}
	}
	for _, n := range nodes {
		renderNode(&buf, n)
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

func renderEdge(buf *bytes.Buffer, e canvas.EdgeView) {
	width := 2.0
	if e.Active {
		width = 3.5
	}
	fmt.Fprintf(buf, `    <path d="%s" fill="none" stroke="%s" stroke-width="%.1f" opacity="%.2f"/>`+"\n",
		e.Geometry.PathData(), edgeStroke, width, e.Opacity)
}

func renderEdgeLabel(buf *bytes.Buffer, e canvas.EdgeView) {
	at := e.Geometry.LabelAnchor()
	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="12" fill="%s" text-anchor="middle" opacity="%.2f">%s</text>`+"\n",
		at.X, at.Y-4, labelFill, e.Opacity, escapeText(e.Edge.Label))
}

func renderNode(buf *bytes.Buffer, n canvas.NodeView) {
	fill := n.Node.Color
	if fill == "" {
		fill = typeColors[n.Node.Type]
	}
	stroke, strokeWidth := "#ffffff", 2.0
	if n.Selected || n.Current {
		stroke, strokeWidth = selectionStroke, 4.0
	}

	cx, cy := n.Pos.X, n.Pos.Y
	r := n.Shape.Radius()
	common := fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="%.1f" opacity="%.2f"`,
		fill, stroke, strokeWidth, n.Opacity)

	switch n.Shape {
	case canvas.ShapeSquare:
		fmt.Fprintf(buf, `    <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="6" %s/>`+"\n",
			cx-r, cy-r, 2*r, 2*r, common)
	case canvas.ShapeDiamond:
		fmt.Fprintf(buf, `    <polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f %.1f,%.1f" %s/>`+"\n",
			cx, cy-r, cx+r, cy, cx, cy+r, cx-r, cy, common)
	default:
		fmt.Fprintf(buf, `    <circle cx="%.1f" cy="%.1f" r="%.1f" %s/>`+"\n", cx, cy, r, common)
	}

	fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" font-size="13" fill="%s" text-anchor="middle" opacity="%.2f">%s</text>`+"\n",
		cx, cy+r+16, labelFill, n.Opacity, escapeText(n.Node.ID))
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
