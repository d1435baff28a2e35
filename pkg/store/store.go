package store

import (
	"context"
	"errors"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Store Interface
// =============================================================================

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract for the graph. Deleting a node cascades
// to its relationships and saved position. Upserts with an empty
// relationship or scenario id have one minted by the backend.
type Store interface {
	// Snapshot loads the complete graph in one call.
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	// Node reads.
	Nodes(ctx context.Context) ([]model.Node, error)
	Node(ctx context.Context, id string) (model.Node, error)

	// Node writes.
	UpsertNode(ctx context.Context, n model.Node) error
	DeleteNode(ctx context.Context, id string) error

	// Relationship operations.
	Relationships(ctx context.Context) ([]model.Relationship, error)
	UpsertRelationship(ctx context.Context, r model.Relationship) (string, error)
	DeleteRelationship(ctx context.Context, id string) error

	// Position operations. SavePosition is the single-node write the canvas
	// commit path uses; SavePositions is the bulk layout write.
	Positions(ctx context.Context) (map[string]model.Position, error)
	SavePosition(ctx context.Context, nodeID string, pos model.Position) error
	SavePositions(ctx context.Context, positions map[string]model.Position) error

	// Scenario operations.
	Scenarios(ctx context.Context) ([]model.Scenario, error)
	Scenario(ctx context.Context, id string) (model.Scenario, error)
	UpsertScenario(ctx context.Context, s model.Scenario) (string, error)
	DeleteScenario(ctx context.Context, id string) error

	// Import replaces all data with the given snapshot, atomically where the
	// backend supports it.
	Import(ctx context.Context, snap *model.Snapshot) error

	// Clear removes all data.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
