// Package render produces static artifacts from the canvas: standalone SVG
// exports of a frame, DOT output, and Graphviz-computed layouts for nodes
// that have no saved position yet.
package render
