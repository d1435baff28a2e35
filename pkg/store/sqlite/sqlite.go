// Package sqlite persists the flowcanvas graph to a single SQLite database
// file. Indexed columns carry the fields queries filter on; the full record
// lives in a JSON data column so optional fields survive round trips.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flowcanvas/flowcanvas/pkg/model"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		node_type TEXT NOT NULL,
		data JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		from_node TEXT NOT NULL,
		to_node TEXT NOT NULL,
		label TEXT,
		data JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (from_node) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_node) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS positions (
		node_id TEXT PRIMARY KEY,
		x REAL NOT NULL,
		y REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS journeys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_module ON nodes(module);
	CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_node);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_node);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Snapshot
// =============================================================================

func (s *Store) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	snap := model.EmptySnapshot()

	nodes, err := s.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		snap.Nodes[n.ID] = n
	}

	if snap.Edges, err = s.Relationships(ctx); err != nil {
		return nil, err
	}
	if snap.Positions, err = s.Positions(ctx); err != nil {
		return nil, err
	}

	scenarios, err := s.Scenarios(ctx)
	if err != nil {
		return nil, err
	}
	for _, sc := range scenarios {
		snap.Scenarios[sc.ID] = sc
	}
	return snap, nil
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Store) Nodes(ctx context.Context) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, module, node_type, data FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) Node(ctx context.Context, id string) (model.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, module, node_type, data FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Node{}, fmt.Errorf("node %q: %w", id, store.ErrNotFound)
	}
	return n, err
}

func (s *Store) UpsertNode(ctx context.Context, n model.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", n.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, module, node_type, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			module = excluded.module,
			node_type = excluded.node_type,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, n.ID, n.Module, string(n.Type), data)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNode removes the node; relationships and the saved position go with
// it through the CASCADE constraints.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("node %q: %w", id, store.ErrNotFound)
	}
	return nil
}

// =============================================================================
// Relationships
// =============================================================================

func (s *Store) Relationships(ctx context.Context) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM relationships ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var edges []model.Relationship
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		var r model.Relationship
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal relationship: %w", err)
		}
		edges = append(edges, r)
	}
	return edges, rows.Err()
}

func (s *Store) UpsertRelationship(ctx context.Context, r model.Relationship) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal relationship %s: %w", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, from_node, to_node, label, data, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			from_node = excluded.from_node,
			to_node = excluded.to_node,
			label = excluded.label,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, r.ID, r.From, r.To, r.Label, data)
	if err != nil {
		return "", fmt.Errorf("upsert relationship %s: %w", r.ID, err)
	}
	return r.ID, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete relationship %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("relationship %q: %w", id, store.ErrNotFound)
	}
	return nil
}

// =============================================================================
// Positions
// =============================================================================

func (s *Store) Positions(ctx context.Context) (map[string]model.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id, x, y FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := map[string]model.Position{}
	for rows.Next() {
		var id string
		var x, y float64
		if err := rows.Scan(&id, &x, &y); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions[id] = model.Position{X: x, Y: y}
	}
	return positions, rows.Err()
}

func (s *Store) SavePosition(ctx context.Context, nodeID string, pos model.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (node_id, x, y, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(node_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			updated_at = CURRENT_TIMESTAMP
	`, nodeID, pos.X, pos.Y)
	if err != nil {
		return fmt.Errorf("save position %s: %w", nodeID, err)
	}
	return nil
}

func (s *Store) SavePositions(ctx context.Context, positions map[string]model.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (node_id, x, y, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(node_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare position statement: %w", err)
	}
	defer stmt.Close()

	for id, pos := range positions {
		if _, err := stmt.ExecContext(ctx, id, pos.X, pos.Y); err != nil {
			return fmt.Errorf("save position %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *Store) Scenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM journeys ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}
	defer rows.Close()

	var scenarios []model.Scenario
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		var sc model.Scenario
		if err := json.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("unmarshal journey: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func (s *Store) Scenario(ctx context.Context, id string) (model.Scenario, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM journeys WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scenario{}, fmt.Errorf("scenario %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Scenario{}, fmt.Errorf("query journey %s: %w", id, err)
	}

	var sc model.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return model.Scenario{}, fmt.Errorf("unmarshal journey %s: %w", id, err)
	}
	return sc, nil
}

func (s *Store) UpsertScenario(ctx context.Context, sc model.Scenario) (string, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if err := sc.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("marshal journey %s: %w", sc.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journeys (id, name, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, sc.ID, sc.Name, data)
	if err != nil {
		return "", fmt.Errorf("upsert journey %s: %w", sc.ID, err)
	}
	return sc.ID, nil
}

func (s *Store) DeleteScenario(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journeys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete journey %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scenario %q: %w", id, store.ErrNotFound)
	}
	return nil
}

// =============================================================================
// Bulk Operations
// =============================================================================

// Import replaces all data with the snapshot in one transaction.
func (s *Store) Import(ctx context.Context, snap *model.Snapshot) error {
	if snap == nil {
		return s.Clear(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete order respects the foreign keys.
	for _, table := range []string{"positions", "relationships", "journeys", "nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, n := range snap.Nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal node %s: %w", n.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (id, module, node_type, data) VALUES (?, ?, ?, ?)`,
			n.ID, n.Module, string(n.Type), data); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	for _, r := range snap.Edges {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal relationship %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relationships (id, from_node, to_node, label, data) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.From, r.To, r.Label, data); err != nil {
			return fmt.Errorf("insert relationship %s: %w", r.ID, err)
		}
	}

	for id, pos := range snap.Positions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO positions (node_id, x, y) VALUES (?, ?, ?)`,
			id, pos.X, pos.Y); err != nil {
			return fmt.Errorf("insert position %s: %w", id, err)
		}
	}

	for _, sc := range snap.Scenarios {
		data, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("marshal journey %s: %w", sc.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO journeys (id, name, data) VALUES (?, ?, ?)`,
			sc.ID, sc.Name, data); err != nil {
			return fmt.Errorf("insert journey %s: %w", sc.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"positions", "relationships", "journeys", "nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// Scan Helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (model.Node, error) {
	var id, module, nodeType string
	var data []byte
	if err := row.Scan(&id, &module, &nodeType, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Node{}, err
		}
		return model.Node{}, fmt.Errorf("scan node: %w", err)
	}

	var n model.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return model.Node{}, fmt.Errorf("unmarshal node %s: %w", id, err)
	}

	// Indexed columns win over the JSON blob.
	n.ID = id
	n.Module = module
	n.Type = model.NodeType(nodeType)
	return n, nil
}
