package model

import (
	"encoding/json"
	"testing"
)

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr bool
	}{
		{"valid core", Node{ID: "customer", Type: TypeCore}, false},
		{"valid kpi", Node{ID: "churn-rate", Type: TypeKPI}, false},
		{"valid decision", Node{ID: "upsell", Type: TypeDecision}, false},
		{"missing id", Node{Type: TypeCore}, true},
		{"unknown type", Node{ID: "x", Type: NodeType("hexagon")}, true},
		{"empty type", Node{ID: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRelationshipTouches(t *testing.T) {
	r := Relationship{From: "a", To: "b"}

	if !r.Touches("a", "b") {
		t.Error("Touches(a, b) = false, want true")
	}
	if !r.Touches("b", "a") {
		t.Error("Touches(b, a) = false, want true")
	}
	if r.Touches("a", "c") {
		t.Error("Touches(a, c) = true, want false")
	}
}

func TestScenarioValidate(t *testing.T) {
	s := Scenario{Name: "onboarding", Path: []string{"a", "b"}}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	if err := (&Scenario{Path: []string{"a"}}).Validate(); err == nil {
		t.Error("Validate() with empty name: error = nil, want error")
	}
	if err := (&Scenario{Name: "x"}).Validate(); err == nil {
		t.Error("Validate() with empty path: error = nil, want error")
	}
}

func TestScenarioProblems(t *testing.T) {
	known := map[string]Node{
		"a": {ID: "a", Type: TypeCore},
		"b": {ID: "b", Type: TypeCore},
	}

	aligned := Scenario{
		Name: "ok",
		Path: []string{"a", "b"},
		DataFlow: []FlowStep{
			{Step: 1, From: "a", To: "b"},
		},
	}
	if got := aligned.Problems(known); len(got) != 0 {
		t.Errorf("Problems() = %v, want none", got)
	}

	misaligned := Scenario{
		Name:     "short flow",
		Path:     []string{"a", "b", "ghost"},
		DataFlow: []FlowStep{{Step: 1, From: "a", To: "b"}},
	}
	got := misaligned.Problems(known)
	if len(got) != 2 {
		t.Fatalf("Problems() returned %d issues, want 2: %v", len(got), got)
	}
}

func TestScenarioStepFor(t *testing.T) {
	s := Scenario{
		Name: "flow",
		Path: []string{"a", "b", "c"},
		DataFlow: []FlowStep{
			{Step: 1, From: "a", To: "b", Action: "request"},
			{Step: 2, From: "b", To: "c", Action: "approve"},
		},
	}

	step, ok := s.StepFor(2)
	if !ok {
		t.Fatal("StepFor(2) ok = false, want true")
	}
	if step.Action != "approve" {
		t.Errorf("StepFor(2).Action = %q, want %q", step.Action, "approve")
	}

	if _, ok := s.StepFor(3); ok {
		t.Error("StepFor(3) ok = true, want false")
	}
}

func TestUnmarshalSnapshot(t *testing.T) {
	data := []byte(`{
		"nodes": {"a": {"id": "a", "nodeType": "core", "module": "sales"}},
		"edges": [{"from": "a", "to": "b", "label": "owns"}],
		"positions": {"a": {"x": 100, "y": -40.5}}
	}`)

	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error = %v", err)
	}

	if !snap.HasNode("a") {
		t.Error("HasNode(a) = false, want true")
	}
	if snap.HasNode("b") {
		t.Error("HasNode(b) = true, want false")
	}

	pos, ok := snap.PositionOf("a")
	if !ok {
		t.Fatal("PositionOf(a) ok = false, want true")
	}
	if pos.X != 100 || pos.Y != -40.5 {
		t.Errorf("PositionOf(a) = %+v, want {100 -40.5}", pos)
	}

	// Scenarios map was absent in the input but must be initialized.
	if snap.Scenarios == nil {
		t.Error("Scenarios = nil, want initialized map")
	}
}

func TestUnmarshalSnapshotMalformed(t *testing.T) {
	if _, err := UnmarshalSnapshot([]byte(`{"nodes": [`)); err == nil {
		t.Error("UnmarshalSnapshot() error = nil, want error")
	}
}

func TestNodeRoundTrip(t *testing.T) {
	n := Node{
		ID:         "revenue",
		Module:     "finance",
		Type:       TypeKPI,
		Definition: "Monthly recurring revenue",
		Color:      "#2563eb",
		Attributes: json.RawMessage(`["amount","currency"]`),
	}

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if back.ID != n.ID || back.Type != n.Type || back.Module != n.Module {
		t.Errorf("round trip = %+v, want %+v", back, n)
	}
	if string(back.Attributes) != string(n.Attributes) {
		t.Errorf("Attributes = %s, want %s", back.Attributes, n.Attributes)
	}
}
