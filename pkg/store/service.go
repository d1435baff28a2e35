package store

import (
	"context"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// Service adapts a Store to the canvas engine's data contract: full
// snapshot reads plus single-position writes.
type Service struct {
	Store
}

// LoadGraph returns the complete snapshot.
func (s Service) LoadGraph(ctx context.Context) (*model.Snapshot, error) {
	return s.Store.Snapshot(ctx)
}
