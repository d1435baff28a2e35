package canvas

import (
	"context"

	"github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Drag Controller - Pan vs. Node Reposition
// =============================================================================

// DragState identifies the active drag intent. Pan and node repositioning
// are mutually exclusive: the tagged session fields make the illegal
// combination unrepresentable.
type DragState string

// Drag states.
const (
	DragIdle          DragState = "idle"
	DragPanning       DragState = "panning"
	DragRepositioning DragState = "repositioning" // edit mode, pointer up
	DragNodeDragging  DragState = "node-dragging" // edit mode, node grabbed
)

// panDrag anchors a canvas pan: anchor = pointerScreen - translation, so
// each move resolves translation = pointerScreen - anchor.
type panDrag struct {
	anchor Point
}

// positionEdit is an explicit node-reposition session. original is the
// pre-edit position, kept so cancellation and failed saves are lossless.
type positionEdit struct {
	nodeID   string
	original model.Position
	grab     *nodeGrab
}

// nodeGrab is the pointer-down sub-state of a position edit.
type nodeGrab struct {
	pointer Point // screen-space pointer at grab
	pos     model.Position
}

// PositionSaver persists a node position. The canvas engine's only write
// path to the data service.
type PositionSaver func(ctx context.Context, nodeID string, pos model.Position) error

// DragController multiplexes the two drag intents over pointer events. It is
// owned by a Session and relies on the session for serialization; it does no
// locking of its own.
type DragController struct {
	transform *Transform
	position  func(id string) (model.Position, bool)
	move      func(id string, pos model.Position)
	save      PositionSaver

	pan  *panDrag
	edit *positionEdit
}

// NewDragController wires a controller to its viewport, position accessors,
// and persistence function.
func NewDragController(t *Transform, position func(string) (model.Position, bool), move func(string, model.Position), save PositionSaver) *DragController {
	return &DragController{
		transform: t,
		position:  position,
		move:      move,
		save:      save,
	}
}

// State returns the current drag state.
func (d *DragController) State() DragState {
	switch {
	case d.pan != nil:
		return DragPanning
	case d.edit != nil && d.edit.grab != nil:
		return DragNodeDragging
	case d.edit != nil:
		return DragRepositioning
	default:
		return DragIdle
	}
}

// EditingNode returns the node under position edit, if any.
func (d *DragController) EditingNode() (string, bool) {
	if d.edit == nil {
		return "", false
	}
	return d.edit.nodeID, true
}

// PointerDown handles a press at screen point p. nodeID is the node under
// the pointer, or empty for canvas background.
//
// While a node is being repositioned, background presses are ignored (the
// edit suppresses panning) and only a press on the edited node grabs it.
func (d *DragController) PointerDown(p Point, nodeID string) {
	if d.edit != nil {
		if nodeID != d.edit.nodeID {
			return
		}
		pos, ok := d.position(nodeID)
		if !ok {
			return
		}
		d.edit.grab = &nodeGrab{pointer: p, pos: pos}
		return
	}
	if nodeID == "" && d.pan == nil {
		d.pan = &panDrag{anchor: p.Sub(Point{d.transform.X, d.transform.Y})}
	}
}

// PointerMove handles pointer motion at screen point p.
//
// A grabbed node follows the pointer in world space: the screen delta is
// divided by the scale because node positions live in world coordinates.
// The moved position is visual feedback only; nothing persists until commit.
func (d *DragController) PointerMove(p Point) {
	switch {
	case d.pan != nil:
		d.transform.X = p.X - d.pan.anchor.X
		d.transform.Y = p.Y - d.pan.anchor.Y
	case d.edit != nil && d.edit.grab != nil:
		g := d.edit.grab
		scale := d.transform.Scale
		d.move(d.edit.nodeID, model.Position{
			X: g.pos.X + (p.X-g.pointer.X)/scale,
			Y: g.pos.Y + (p.Y-g.pointer.Y)/scale,
		})
	}
}

// PointerUp releases the active drag. A pan returns to idle; a grabbed node
// returns to the reposition state, awaiting explicit commit or cancel.
func (d *DragController) PointerUp() {
	d.pan = nil
	if d.edit != nil {
		d.edit.grab = nil
	}
}

// EnterPositionEdit starts repositioning a node. The current position is
// recorded so a later cancel or failed save restores it exactly. A node
// without a position is never drawn and cannot be repositioned.
func (d *DragController) EnterPositionEdit(nodeID string) error {
	if d.edit != nil {
		return errors.New(errors.ErrCodeEditInProgress, "already repositioning %s", d.edit.nodeID)
	}
	pos, ok := d.position(nodeID)
	if !ok {
		return errors.New(errors.ErrCodePositionNotFound, "node %s has no position", nodeID)
	}
	d.pan = nil
	d.edit = &positionEdit{nodeID: nodeID, original: pos}
	return nil
}

// CommitPositionEdit persists the current (possibly dragged) position. On
// failure the node reverts to its pre-edit position so local and remote
// state never diverge. Either way the edit session ends.
func (d *DragController) CommitPositionEdit(ctx context.Context) error {
	if d.edit == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no position edit in progress")
	}
	edit := d.edit
	d.edit = nil

	pos, ok := d.position(edit.nodeID)
	if !ok {
		pos = edit.original
	}
	if err := d.save(ctx, edit.nodeID, pos); err != nil {
		d.move(edit.nodeID, edit.original)
		return errors.Wrap(errors.ErrCodePersistence, err, "save position for %s", edit.nodeID)
	}
	return nil
}

// CancelPositionEdit reverts the node to its pre-edit position locally and
// ends the edit session. No network call.
func (d *DragController) CancelPositionEdit() {
	if d.edit == nil {
		return
	}
	d.move(d.edit.nodeID, d.edit.original)
	d.edit = nil
}
