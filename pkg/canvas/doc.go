// Package canvas implements the interactive diagram engine: the pan/zoom
// viewport transform, node/edge visibility filtering, screen geometry for
// shapes and edge paths, the scenario playback state machine, the
// position-edit drag state machine, and the selection model.
//
// The engine is headless. A Session owns all per-mount state and exposes a
// command surface (pan, zoom, filter, select, play, drag) plus Frame, which
// resolves the current state into drawable primitives for whatever host is
// rendering: the HTTP SVG exporter, the terminal viewer, or an external UI.
//
// Graph data enters through the DataService interface as a full Snapshot;
// after every mutation the host reloads wholesale. The only state the engine
// ever writes back is a node position commit at the end of a drag.
package canvas
