package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// dotShapes maps node types to Graphviz shapes matching the canvas ones.
var dotShapes = map[model.NodeType]string{
	model.TypeCore:     "circle",
	model.TypeKPI:      "box",
	model.TypeDecision: "diamond",
}

// ToDOT converts a snapshot to Graphviz DOT. Used both for `flowcanvas
// export --format dot` and as the input to [AutoLayout].
func ToDOT(snap *model.Snapshot) string {
	var buf bytes.Buffer
	buf.WriteString("digraph flowcanvas {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.8;\n")
	buf.WriteString("\n")

	ids := make([]string, 0, len(snap.Nodes))
	for id := range snap.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		n := snap.Nodes[id]
		shape := dotShapes[n.Type]
		if shape == "" {
			shape = "circle"
		}
		fmt.Fprintf(&buf, "  %q [shape=%s];\n", id, shape)
	}

	buf.WriteString("\n")
	for _, e := range snap.Edges {
		if e.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// nodePosRe matches laid-out node statements: a quoted or bare name followed
// by an attribute list containing pos="x,y". Edge statements contain "->"
// and never match the name group.
var nodePosRe = regexp.MustCompile(`(?m)^\s*(?:"((?:[^"\\]|\\.)+)"|(\w+))\s*\[[^\]]*pos="(-?[0-9.]+),(-?[0-9.]+)"`)

// AutoLayout runs Graphviz dot over the snapshot and returns a position for
// every node. Graphviz's y axis grows upward, so coordinates are flipped
// into the canvas orientation before scaling.
func AutoLayout(ctx context.Context, snap *model.Snapshot) (map[string]model.Position, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(ToDOT(snap)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	positions := parsePositions(buf.Bytes())
	if len(positions) != len(snap.Nodes) {
		return nil, fmt.Errorf("layout produced %d positions for %d nodes", len(positions), len(snap.Nodes))
	}
	return positions, nil
}

func parsePositions(laidOut []byte) map[string]model.Position {
	var maxY float64
	raw := map[string]model.Position{}

	for _, m := range nodePosRe.FindAllSubmatch(laidOut, -1) {
		name := string(m[1])
		if name == "" {
			name = string(m[2])
		}
		x, _ := strconv.ParseFloat(string(m[3]), 64)
		y, _ := strconv.ParseFloat(string(m[4]), 64)
		raw[name] = model.Position{X: x, Y: y}
		if y > maxY {
			maxY = y
		}
	}

	positions := make(map[string]model.Position, len(raw))
	for id, p := range raw {
		positions[id] = model.Position{X: p.X, Y: maxY - p.Y}
	}
	return positions
}
