package canvas

import (
	"sync"
	"time"

	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// =============================================================================
// Scenario Player - Timed Path Traversal
// =============================================================================

// DefaultTickInterval is the wall-clock period between scenario steps.
const DefaultTickInterval = 1500 * time.Millisecond

// PlayerState is the current playback state.
type PlayerState string

// Player states.
const (
	StateIdle     PlayerState = "idle"     // no scenario selected
	StateLoaded   PlayerState = "loaded"   // scenario selected, not started
	StatePlaying  PlayerState = "playing"  // ticker running
	StatePaused   PlayerState = "paused"   // started, ticker cancelled
	StateFinished PlayerState = "finished" // last transition reached
)

// Player replays a scenario as a timed traversal. StepIndex counts completed
// path transitions: -1 before the first tick, k after transition k+1
// (path[k] → path[k+1]) has played, len(path)-2 when the traversal is done.
// The current node is therefore path[StepIndex+1].
//
// The player owns at most one ticker at a time. Select, Pause, Exit, and
// Close cancel it; a ticker never outlives its scenario.
//
// With a positive interval the ticker fires on wall-clock time from its own
// goroutine; Player methods are safe for concurrent use with it. An interval
// of zero disables the internal ticker and the host drives playback by
// calling Advance (the terminal viewer does this with its own frame clock).
type Player struct {
	mu       sync.Mutex
	interval time.Duration
	onStep   func(nodeID string)

	scenario  *model.Scenario
	stepIndex int
	running   bool
	finished  bool
	cancel    chan struct{}
}

// NewPlayer creates an idle player with the default tick interval.
func NewPlayer() *Player {
	return &Player{interval: DefaultTickInterval, stepIndex: -1}
}

// SetInterval changes the tick period. Zero disables the internal ticker.
// Takes effect on the next Play.
func (p *Player) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

// SetStepHook registers a callback invoked after every advance with the new
// current node id. The hook runs without the player lock held, so it may
// call back into the player.
func (p *Player) SetStepHook(fn func(nodeID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStep = fn
}

// Select loads a scenario for playback, replacing any previous one. The step
// index resets to -1 and any running ticker is cancelled before the new
// scenario takes ownership.
func (p *Player) Select(s *model.Scenario) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.scenario = s
	p.stepIndex = -1
	p.running = false
	p.finished = false
}

// Play starts or resumes playback. Only meaningful from Loaded or Paused;
// a finished scenario must ResetStep first.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil || p.running || p.finished {
		return
	}
	p.running = true
	if p.interval > 0 {
		p.startTickerLocked()
	}
}

// Pause stops playback, cancelling the ticker. Position is kept.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.stopLocked()
}

// ResetStep rewinds to the unstarted position, keeping the scenario
// selected. Playback stops.
func (p *Player) ResetStep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stepIndex = -1
	p.running = false
	p.finished = false
	p.stopLocked()
}

// Exit unloads the scenario and cancels any pending ticker.
func (p *Player) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.scenario = nil
	p.stepIndex = -1
	p.running = false
	p.finished = false
}

// Close releases the ticker. Call when the owning session unmounts.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.stopLocked()
}

// Advance plays one step: the next transition if one remains, otherwise the
// transition to Finished. No-op unless playing. The internal ticker calls
// this; hosts with their own clock may call it directly.
func (p *Player) Advance() {
	p.mu.Lock()
	if !p.running || p.scenario == nil {
		p.mu.Unlock()
		return
	}

	var hook func(string)
	var current string

	last := len(p.scenario.Path) - 2
	if p.stepIndex < last {
		p.stepIndex++
		current = p.scenario.Path[p.stepIndex+1]
		hook = p.onStep
		if p.stepIndex == last {
			p.finished = true
			p.running = false
			p.stopLocked()
		}
	} else {
		p.finished = true
		p.running = false
		p.stopLocked()
	}
	p.mu.Unlock()

	if hook != nil {
		hook(current)
	}
}

// startTickerLocked spawns the tick goroutine. Caller holds p.mu.
func (p *Player) startTickerLocked() {
	cancel := make(chan struct{})
	p.cancel = cancel
	interval := p.interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				p.Advance()
			}
		}
	}()
}

// stopLocked cancels the ticker if one is running. Caller holds p.mu.
func (p *Player) stopLocked() {
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
}

// =============================================================================
// Derived Queries
// =============================================================================

// State returns the current playback state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.scenario == nil:
		return StateIdle
	case p.finished:
		return StateFinished
	case p.running:
		return StatePlaying
	case p.stepIndex >= 0:
		return StatePaused
	default:
		return StateLoaded
	}
}

// Scenario returns the loaded scenario, or nil.
func (p *Player) Scenario() *model.Scenario {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scenario
}

// StepIndex returns the number of completed transitions minus one.
func (p *Player) StepIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepIndex
}

// CurrentNode returns the node the traversal sits on, valid once the first
// transition has played.
func (p *Player) CurrentNode() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *Player) currentLocked() (string, bool) {
	if p.scenario == nil || p.stepIndex < 0 || p.stepIndex+1 >= len(p.scenario.Path) {
		return "", false
	}
	return p.scenario.Path[p.stepIndex+1], true
}

// IsNodeInPath reports whether the node appears anywhere in the scenario path.
func (p *Player) IsNodeInPath(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil {
		return false
	}
	for _, n := range p.scenario.Path {
		if n == id {
			return true
		}
	}
	return false
}

// IsNodeCurrent reports whether the node is the traversal's current
// position. At most one node is current at a time.
func (p *Player) IsNodeCurrent(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.currentLocked()
	return ok && cur == id
}

// IsNodeVisited reports whether the node was passed before the current
// position (first occurrence strictly before path[stepIndex+1]).
func (p *Player) IsNodeVisited(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil || p.stepIndex < 0 {
		return false
	}
	for i, n := range p.scenario.Path {
		if n == id {
			return i < p.stepIndex+1
		}
	}
	return false
}

// IsEdgeInPath reports whether some consecutive path pair matches {a, b},
// in either direction.
func (p *Player) IsEdgeInPath(a, b string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil {
		return false
	}
	for i := 1; i < len(p.scenario.Path); i++ {
		if unorderedMatch(p.scenario.Path[i-1], p.scenario.Path[i], a, b) {
			return true
		}
	}
	return false
}

// IsEdgeActive reports whether {a, b} is the pair bridged by the most recent
// transition. The last transition stays active in the Finished state so the
// final step remains highlighted.
func (p *Player) IsEdgeActive(a, b string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil || p.stepIndex < 0 || p.stepIndex+1 >= len(p.scenario.Path) {
		return false
	}
	return unorderedMatch(p.scenario.Path[p.stepIndex], p.scenario.Path[p.stepIndex+1], a, b)
}

// StepAnnotation returns the dataFlow entry for the most recent transition.
// A dataFlow that is missing or misaligned with the path simply yields no
// annotation.
func (p *Player) StepAnnotation() (model.FlowStep, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scenario == nil || p.stepIndex < 0 {
		return model.FlowStep{}, false
	}
	return p.scenario.StepFor(p.stepIndex + 1)
}

func unorderedMatch(x, y, a, b string) bool {
	return (x == a && y == b) || (x == b && y == a)
}
