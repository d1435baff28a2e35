package io

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// WriteDir writes a snapshot back out as seed files, creating dir if
// needed. Output is deterministic: nodes are sorted by id and maps are
// emitted with sorted keys by encoding/json.
func WriteDir(dir string, snap *model.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	nodes := make([]model.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b model.Node) int { return cmp.Compare(a.ID, b.ID) })

	files := map[string]any{
		NodesFile:         nodes,
		RelationshipsFile: snap.Edges,
		JourneysFile:      snap.Scenarios,
		PositionsFile:     snap.Positions,
	}
	for name, payload := range files {
		if err := writeJSON(filepath.Join(dir, name), payload); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
