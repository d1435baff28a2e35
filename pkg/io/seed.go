package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// Seed file names inside a data directory.
const (
	NodesFile         = "nodes.json"
	RelationshipsFile = "relationships.json"
	JourneysFile      = "journeys.json"
	PositionsFile     = "positions.json"
)

// LoadDir reads all seed files under dir into a snapshot. Files that do not
// exist are skipped; files that exist but fail to parse are an error.
func LoadDir(dir string) (*model.Snapshot, error) {
	snap := model.EmptySnapshot()

	if err := loadFile(filepath.Join(dir, NodesFile), func(r io.Reader) error {
		nodes, err := ReadNodes(r)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			snap.Nodes[n.ID] = n
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadFile(filepath.Join(dir, RelationshipsFile), func(r io.Reader) error {
		edges, err := ReadRelationships(r)
		if err != nil {
			return err
		}
		snap.Edges = edges
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadFile(filepath.Join(dir, JourneysFile), func(r io.Reader) error {
		scenarios, err := ReadJourneys(r)
		if err != nil {
			return err
		}
		snap.Scenarios = scenarios
		return nil
	}); err != nil {
		return nil, err
	}

	if err := loadFile(filepath.Join(dir, PositionsFile), func(r io.Reader) error {
		positions, err := ReadPositions(r)
		if err != nil {
			return err
		}
		snap.Positions = positions
		return nil
	}); err != nil {
		return nil, err
	}

	return snap, nil
}

func loadFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ReadNodes decodes a JSON array of nodes. Entries without an id are
// dropped rather than failing the whole file.
func ReadNodes(r io.Reader) ([]model.Node, error) {
	var raw []model.Node
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}

	nodes := raw[:0]
	for _, n := range raw {
		if n.ID == "" {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ReadRelationships decodes relationships from either a flat JSON array or
// the older map-of-channels layout, which is flattened one level.
func ReadRelationships(r io.Reader) ([]model.Relationship, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var flat []model.Relationship
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var channels map[string][]model.Relationship
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("decode relationships: %w", err)
	}
	var edges []model.Relationship
	for _, chunk := range channels {
		edges = append(edges, chunk...)
	}
	return edges, nil
}

// ReadJourneys decodes scenarios keyed by id. The older channel layout
// nests one level deeper and is flattened; a nested value is recognized as
// a scenario by its path.
func ReadJourneys(r io.Reader) (map[string]model.Scenario, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode journeys: %w", err)
	}

	scenarios := map[string]model.Scenario{}
	for key, blob := range raw {
		var sc model.Scenario
		if err := json.Unmarshal(blob, &sc); err == nil && len(sc.Path) > 0 {
			sc.ID = key
			scenarios[key] = sc
			continue
		}

		var nested map[string]model.Scenario
		if err := json.Unmarshal(blob, &nested); err != nil {
			return nil, fmt.Errorf("decode journey %q: %w", key, err)
		}
		for id, sc := range nested {
			sc.ID = id
			scenarios[id] = sc
		}
	}
	return scenarios, nil
}

// ReadPositions decodes positions keyed by node id, accepting either the
// bare map or one wrapped in a "nodes" object.
func ReadPositions(r io.Reader) (map[string]model.Position, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Nodes map[string]model.Position `json:"nodes"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Nodes) > 0 {
		return wrapped.Nodes, nil
	}

	var flat map[string]model.Position
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	if flat == nil {
		flat = map[string]model.Position{}
	}
	return flat, nil
}
