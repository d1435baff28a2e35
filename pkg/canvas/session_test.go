package canvas

import (
	"context"
	"errors"
	"strings"
	"testing"

	fcerrors "github.com/flowcanvas/flowcanvas/pkg/errors"
	"github.com/flowcanvas/flowcanvas/pkg/model"
)

// fakeService serves a fixed snapshot and records position saves.
type fakeService struct {
	snap    *model.Snapshot
	loadErr error
	saveErr error
	saved   map[string]model.Position
}

func (f *fakeService) LoadGraph(ctx context.Context) (*model.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.snap, nil
}

func (f *fakeService) SavePosition(ctx context.Context, nodeID string, pos model.Position) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]model.Position{}
	}
	f.saved[nodeID] = pos
	return nil
}

func sessionSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Nodes: map[string]model.Node{
			"customer": {ID: "customer", Module: "crm", Type: model.TypeCore},
			"order":    {ID: "order", Module: "sales", Type: model.TypeCore},
			"churn":    {ID: "churn", Module: "crm", Type: model.TypeKPI},
		},
		Edges: []model.Relationship{
			{ID: "e1", From: "customer", To: "order", Label: "places"},
			{ID: "e2", From: "order", To: "churn", Label: "feeds"},
		},
		Positions: map[string]model.Position{
			"customer": {X: 0, Y: 0},
			"order":    {X: 200, Y: 0},
			"churn":    {X: 500, Y: 400},
		},
		Scenarios: map[string]model.Scenario{
			"j1": {
				ID:   "j1",
				Name: "order flow",
				Path: []string{"customer", "order", "churn"},
				DataFlow: []model.FlowStep{
					{Step: 1, From: "customer", To: "order", Action: "places order"},
					{Step: 2, From: "order", To: "churn", Action: "updates score"},
				},
			},
		},
	}
}

func newTestSession(t *testing.T, svc *fakeService) *Session {
	t.Helper()
	s := NewSession(svc, WithTickInterval(0))
	t.Cleanup(s.Close)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	return s
}

func TestSessionReloadAndFrame(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})

	f := s.Frame()
	if len(f.Nodes) != 3 {
		t.Fatalf("len(Frame().Nodes) = %d, want 3", len(f.Nodes))
	}
	if len(f.Edges) != 2 {
		t.Fatalf("len(Frame().Edges) = %d, want 2", len(f.Edges))
	}
	for _, n := range f.Nodes {
		if n.Opacity != 1.0 {
			t.Errorf("node %s opacity = %v, want 1.0 with nothing active", n.Node.ID, n.Opacity)
		}
	}
	for _, e := range f.Edges {
		if e.ShowLabel {
			t.Errorf("edge %s shows label with nothing highlighted", e.Edge.ID)
		}
	}
}

func TestSessionReloadError(t *testing.T) {
	svc := &fakeService{snap: sessionSnapshot()}
	s := newTestSession(t, svc)

	svc.loadErr = errors.New("db down")
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("Reload() error = nil, want load failure")
	}
	// The previous snapshot stays usable.
	if got := len(s.Frame().Nodes); got != 3 {
		t.Errorf("len(Frame().Nodes) after failed reload = %d, want 3", got)
	}
}

func TestSessionSelectionDimsFrame(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	s.SelectNode("customer")

	f := s.Frame()
	want := map[string]float64{"customer": 1.0, "order": 1.0, "churn": DimmedOpacity}
	for _, n := range f.Nodes {
		if n.Opacity != want[n.Node.ID] {
			t.Errorf("node %s opacity = %v, want %v", n.Node.ID, n.Opacity, want[n.Node.ID])
		}
	}
	for _, e := range f.Edges {
		touches := e.Edge.From == "customer" || e.Edge.To == "customer"
		if e.ShowLabel != touches {
			t.Errorf("edge %s ShowLabel = %v, want %v", e.Edge.ID, e.ShowLabel, touches)
		}
	}
}

func TestSessionBackgroundClickClearsSelection(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	s.SelectNode("customer")

	s.PointerDown(Point{50, 50}, "")
	s.PointerUp()

	f := s.Frame()
	for _, n := range f.Nodes {
		if n.Selected {
			t.Errorf("node %s still selected after background click", n.Node.ID)
		}
	}
}

func TestSessionScenarioDimmingOverridesSelection(t *testing.T) {
	snap := sessionSnapshot()
	snap.Nodes["upsell"] = model.Node{ID: "upsell", Module: "sales", Type: model.TypeDecision}
	snap.Positions["upsell"] = model.Position{X: 300, Y: 300}
	s := newTestSession(t, &fakeService{snap: snap})

	if err := s.SelectScenario("j1"); err != nil {
		t.Fatalf("SelectScenario() error = %v", err)
	}
	s.SelectNode("upsell")
	s.Play()

	f := s.Frame()
	for _, n := range f.Nodes {
		wantOpacity := 1.0
		if n.Node.ID == "upsell" {
			// Selected but outside the path: scenario dimming wins.
			wantOpacity = DimmedOpacity
		}
		if n.Opacity != wantOpacity {
			t.Errorf("node %s opacity = %v, want %v", n.Node.ID, n.Opacity, wantOpacity)
		}
	}
}

func TestSessionScenarioStepRecenters(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	if err := s.SelectScenario("j1"); err != nil {
		t.Fatalf("SelectScenario() error = %v", err)
	}
	s.Play()
	s.AdvanceScenario() // current node becomes "order" at (200, 0)

	tr := s.Transform()
	if tr.X != DefaultScreenAnchor.X-200 || tr.Y != DefaultScreenAnchor.Y {
		t.Errorf("transform after step = (%v, %v), want (%v, %v)",
			tr.X, tr.Y, DefaultScreenAnchor.X-200, DefaultScreenAnchor.Y)
	}
}

func TestSessionScenarioFrameState(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	if err := s.SelectScenario("j1"); err != nil {
		t.Fatalf("SelectScenario() error = %v", err)
	}
	s.Play()
	s.AdvanceScenario()

	f := s.Frame()
	if f.State != StatePlaying {
		t.Errorf("Frame().State = %v, want %v", f.State, StatePlaying)
	}
	if f.StepIndex != 0 {
		t.Errorf("Frame().StepIndex = %d, want 0", f.StepIndex)
	}
	if f.Annotation == nil || f.Annotation.Action != "places order" {
		t.Errorf("Frame().Annotation = %+v, want action %q", f.Annotation, "places order")
	}
	var active int
	for _, e := range f.Edges {
		if e.Active {
			active++
			if !e.ShowLabel {
				t.Errorf("active edge %s has no label", e.Edge.ID)
			}
			if got := e.Edge.ID; got != "e1" {
				t.Errorf("active edge = %s, want e1", got)
			}
		}
	}
	if active != 1 {
		t.Errorf("active edge count = %d, want 1", active)
	}
}

func TestSessionExitScenarioRestoresViewport(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	s.Pan(40, -25)
	s.ZoomAt(Point{100, 100}, 1.3)
	if err := s.SelectScenario("j1"); err != nil {
		t.Fatalf("SelectScenario() error = %v", err)
	}
	s.Play()
	s.AdvanceScenario()

	s.ExitScenario()
	tr := s.Transform()
	def := NewTransform()
	if tr != def {
		t.Errorf("transform after exit = %+v, want %+v", tr, def)
	}
	if got := s.Frame().State; got != StateIdle {
		t.Errorf("state after exit = %v, want %v", got, StateIdle)
	}
}

func TestSessionSelectScenarioUnknown(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	if err := s.SelectScenario("nope"); err == nil {
		t.Error("SelectScenario(nope) error = nil, want not-found error")
	}
}

func TestSessionCommitPersistsPosition(t *testing.T) {
	svc := &fakeService{snap: sessionSnapshot()}
	s := newTestSession(t, svc)

	if err := s.EnterPositionEdit("order"); err != nil {
		t.Fatalf("EnterPositionEdit() error = %v", err)
	}
	s.PointerDown(Point{200, 0}, "order")
	s.PointerMove(Point{230, 40})
	s.PointerUp()
	if err := s.CommitPositionEdit(context.Background()); err != nil {
		t.Fatalf("CommitPositionEdit() error = %v", err)
	}

	want := model.Position{X: 230, Y: 40}
	if got := svc.saved["order"]; got != want {
		t.Errorf("saved position = %+v, want %+v", got, want)
	}
}

func TestSessionCommitFailureSurfacesError(t *testing.T) {
	svc := &fakeService{snap: sessionSnapshot(), saveErr: errors.New("disk full")}
	s := newTestSession(t, svc)

	if err := s.EnterPositionEdit("order"); err != nil {
		t.Fatalf("EnterPositionEdit() error = %v", err)
	}
	s.PointerDown(Point{200, 0}, "order")
	s.PointerMove(Point{260, 0})
	s.PointerUp()

	err := s.CommitPositionEdit(context.Background())
	if err == nil {
		t.Fatal("CommitPositionEdit() error = nil, want persistence failure")
	}
	if got := fcerrors.GetCode(err); got != fcerrors.ErrCodePersistence {
		t.Errorf("GetCode(err) = %v, want %v", got, fcerrors.ErrCodePersistence)
	}

	msg := s.LastError()
	if !strings.Contains(msg, "disk full") {
		t.Errorf("LastError() = %q, want it to mention the cause", msg)
	}
	if s.LastError() != "" {
		t.Error("LastError() did not clear after read")
	}

	// Position reverted to the stored value.
	if got, _ := s.Snapshot().PositionOf("order"); got != (model.Position{X: 200, Y: 0}) {
		t.Errorf("position after failed commit = %+v, want original", got)
	}
}

func TestSessionNodeWithoutPositionOmitted(t *testing.T) {
	snap := sessionSnapshot()
	snap.Nodes["ghost"] = model.Node{ID: "ghost", Module: "crm", Type: model.TypeCore}
	snap.Edges = append(snap.Edges, model.Relationship{ID: "e3", From: "customer", To: "ghost"})
	s := newTestSession(t, &fakeService{snap: snap})

	f := s.Frame()
	for _, n := range f.Nodes {
		if n.Node.ID == "ghost" {
			t.Error("node without position appeared in frame")
		}
	}
	for _, e := range f.Edges {
		if e.Edge.ID == "e3" {
			t.Error("edge with unpositioned endpoint appeared in frame")
		}
	}
}

func TestSessionFilterAppliesToFrame(t *testing.T) {
	s := newTestSession(t, &fakeService{snap: sessionSnapshot()})
	s.SetFilter("crm", "", true)

	f := s.Frame()
	if len(f.Nodes) != 2 {
		t.Fatalf("len(Frame().Nodes) = %d, want 2", len(f.Nodes))
	}
	if len(f.Edges) != 0 {
		t.Errorf("len(Frame().Edges) = %d, want 0 after cross-module filter", len(f.Edges))
	}
}
