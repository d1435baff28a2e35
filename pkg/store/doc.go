// Package store defines persistent storage for the flowcanvas graph: nodes,
// relationships, saved positions, and scenarios. The Store interface is
// backend-agnostic; Memory keeps everything in process, and the sqlite
// subpackage persists to a single database file.
package store
