package canvas

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Session - Owned UI State and Command Surface
// =============================================================================

// DataService is the narrow contract the canvas engine needs from the
// graph data layer: a full snapshot on demand and one write path for node
// positions. The engine never implements it.
type DataService interface {
	// LoadGraph returns the full graph snapshot. Called on mount and after
	// every mutation; a full reload is always the recovery path.
	LoadGraph(ctx context.Context) (*model.Snapshot, error)

	// SavePosition persists a node's world position.
	SavePosition(ctx context.Context, nodeID string, pos model.Position) error
}

// DefaultScreenAnchor is the screen point scenario recentering aims the
// current node at: the center of the default 800x600 frame.
var DefaultScreenAnchor = Point{X: 400, Y: 300}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithScreenAnchor sets the screen point scenario steps recenter on.
func WithScreenAnchor(p Point) Option {
	return func(s *Session) { s.screenAnchor = p }
}

// WithDefaultTransform sets the viewport restored by ResetView and scenario
// exit.
func WithDefaultTransform(t Transform) Option {
	return func(s *Session) { s.defTransform = t }
}

// WithTickInterval overrides the scenario tick period. Zero disables the
// internal ticker so the host drives playback through AdvanceScenario.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.player.SetInterval(d) }
}

// Session owns all per-mount UI state: viewport transform, filter, scenario
// player, drag controller, and selection. It is created on mount, never
// persisted, and is safe for concurrent use (the scenario ticker interleaves
// with host commands).
type Session struct {
	mu     sync.Mutex
	svc    DataService
	logger *log.Logger

	snap         *model.Snapshot
	transform    Transform
	defTransform Transform
	screenAnchor Point
	filter       Filter
	player       *Player
	drag         *DragController
	sel          Selection
	lastErr      string
}

// NewSession creates a session bound to a data service. Call Reload to pull
// the first snapshot and Close on unmount.
func NewSession(svc DataService, opts ...Option) *Session {
	s := &Session{
		svc:          svc,
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
		snap:         model.EmptySnapshot(),
		transform:    NewTransform(),
		defTransform: NewTransform(),
		screenAnchor: DefaultScreenAnchor,
		filter:       DefaultFilter(),
		player:       NewPlayer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transform = s.defTransform

	s.drag = NewDragController(
		&s.transform,
		func(id string) (model.Position, bool) { return s.snap.PositionOf(id) },
		func(id string, pos model.Position) { s.snap.Positions[id] = pos },
		func(ctx context.Context, id string, pos model.Position) error {
			return s.svc.SavePosition(ctx, id, pos)
		},
	)
	s.player.SetStepHook(s.handleStep)
	return s
}

// Close cancels the scenario ticker. Call on unmount; a ticker that
// outlives its session would animate a dead scenario.
func (s *Session) Close() {
	s.player.Close()
}

// Reload replaces the snapshot with a fresh load from the data service. Any
// in-flight position edit is cancelled first, since the incoming snapshot
// supersedes local visual state.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drag.CancelPositionEdit()
	snap, err := s.svc.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	s.snap = snap
	s.logger.Debug("snapshot reloaded",
		"nodes", len(snap.Nodes),
		"edges", len(snap.Edges),
		"scenarios", len(snap.Scenarios))
	return nil
}

// Snapshot returns the current snapshot. The caller must treat it as
// read-only.
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// =============================================================================
// Viewport Commands
// =============================================================================

// Pan translates the viewport by a screen-space delta.
func (s *Session) Pan(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.Pan(dx, dy)
}

// ZoomAt zooms around a screen point, keeping it stationary.
func (s *Session) ZoomAt(p Point, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.ZoomAt(p, factor)
}

// ResetView restores the default viewport.
func (s *Session) ResetView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.Reset(s.defTransform)
}

// Transform returns the current viewport transform.
func (s *Session) Transform() Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// =============================================================================
// Filter and Selection Commands
// =============================================================================

// SetFilter replaces the module/search/relationship filter.
func (s *Session) SetFilter(module, search string, showRelationships bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = Filter{Module: module, Search: search, ShowRelationships: showRelationships}
}

// Filter returns the active filter.
func (s *Session) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SelectNode marks a node selected. Selecting while a scenario is active is
// allowed and does not interrupt playback; scenario dimming simply takes
// priority in the frame.
func (s *Session) SelectNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Select(id)
}

// HoverNode marks a node hovered. Empty clears.
func (s *Session) HoverNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Hover(id)
}

// ClickCanvas handles a click on empty background: the selection clears.
func (s *Session) ClickCanvas() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
}

// =============================================================================
// Scenario Commands
// =============================================================================

// SelectScenario loads a scenario by id and clears the node selection.
func (s *Session) SelectScenario(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.snap.Scenarios[id]
	if !ok {
		return fmt.Errorf("scenario %q not found", id)
	}
	s.player.Select(&sc)
	s.sel.Clear()
	return nil
}

// Play starts or resumes scenario playback.
func (s *Session) Play() { s.player.Play() }

// Pause halts scenario playback, keeping the position.
func (s *Session) Pause() { s.player.Pause() }

// ResetStep rewinds the scenario without deselecting it.
func (s *Session) ResetStep() { s.player.ResetStep() }

// ExitScenario unloads the scenario and restores the default viewport.
func (s *Session) ExitScenario() {
	s.player.Exit()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform.Reset(s.defTransform)
}

// AdvanceScenario plays one step. For hosts that drive playback with their
// own clock instead of the internal ticker.
func (s *Session) AdvanceScenario() { s.player.Advance() }

// Player exposes the scenario player for derived queries.
func (s *Session) Player() *Player { return s.player }

// handleStep recenters the viewport on the new current node. Runs on the
// ticker goroutine. A node with no known position is skipped silently; the
// traversal still advanced.
func (s *Session) handleStep(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.player.IsNodeCurrent(nodeID) {
		// Stale tick from a scenario swapped out mid-flight.
		return
	}
	pos, ok := s.snap.PositionOf(nodeID)
	if !ok {
		s.logger.Debug("no position for scenario step, recenter skipped", "node", nodeID)
		return
	}
	s.transform.CenterOn(Point{pos.X, pos.Y}, s.screenAnchor)
}

// =============================================================================
// Drag and Position-Edit Commands
// =============================================================================

// PointerDown handles a press at screen point p over the given node id
// (empty for background). Background presses also clear the selection when
// no reposition is active.
func (s *Session) PointerDown(p Point, nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nodeID == "" && s.drag.State() == DragIdle {
		s.sel.Clear()
	}
	s.drag.PointerDown(p, nodeID)
}

// PointerMove handles pointer motion.
func (s *Session) PointerMove(p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.PointerMove(p)
}

// PointerUp releases the active drag.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.PointerUp()
}

// EnterPositionEdit begins repositioning a node.
func (s *Session) EnterPositionEdit(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.EnterPositionEdit(nodeID)
}

// CommitPositionEdit persists the edited position through the data service.
// On failure the position reverts and the error is surfaced via LastError.
func (s *Session) CommitPositionEdit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.drag.CommitPositionEdit(ctx); err != nil {
		s.lastErr = err.Error()
		return err
	}
	return nil
}

// CancelPositionEdit reverts the edit locally.
func (s *Session) CancelPositionEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.CancelPositionEdit()
}

// DragState returns the current drag state.
func (s *Session) DragState() DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.State()
}

// LastError returns and clears the most recent surfaced error message.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.lastErr
	s.lastErr = ""
	return msg
}
