package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/model"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

func seededStore() *store.Memory {
	return store.NewMemoryFrom(&model.Snapshot{
		Nodes: map[string]model.Node{
			"customer": {ID: "customer", Module: "crm", Type: model.TypeCore},
			"order":    {ID: "order", Module: "sales", Type: model.TypeCore},
			"churn":    {ID: "churn", Module: "crm", Type: model.TypeKPI},
		},
		Edges: []model.Relationship{
			{ID: "e1", From: "customer", To: "order", Label: "places"},
		},
		Positions: map[string]model.Position{
			"customer": {X: 0, Y: 0},
			"order":    {X: 200, Y: 0},
			"churn":    {X: 400, Y: 100},
		},
		Scenarios: map[string]model.Scenario{
			"j1": {ID: "j1", Name: "order flow", Path: []string{"customer", "order"}},
		},
	})
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(seededStore(), opts...).Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	var body map[string]string
	decodeInto(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf(`status = %q, want "ok"`, body["status"])
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats: %v", err)
	}
	var body struct {
		Nodes         int            `json:"nodes"`
		Relationships int            `json:"relationships"`
		Journeys      int            `json:"journeys"`
		Modules       map[string]int `json:"modules"`
	}
	decodeInto(t, resp, &body)
	if body.Nodes != 3 || body.Relationships != 1 || body.Journeys != 1 {
		t.Errorf("stats = %+v, want 3 nodes, 1 relationship, 1 journey", body)
	}
	if body.Modules["crm"] != 2 {
		t.Errorf("modules[crm] = %d, want 2", body.Modules["crm"])
	}
}

func TestSnapshot(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/snapshot")
	if err != nil {
		t.Fatalf("GET /api/snapshot: %v", err)
	}
	var snap model.Snapshot
	decodeInto(t, resp, &snap)
	if len(snap.Nodes) != 3 || len(snap.Edges) != 1 {
		t.Errorf("snapshot has %d nodes, %d edges, want 3 and 1", len(snap.Nodes), len(snap.Edges))
	}
	if _, ok := snap.Positions["order"]; !ok {
		t.Error("snapshot missing position for order")
	}
}

func TestListNodesFiltered(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/nodes?module=crm&nodeType=kpi")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Nodes []model.Node `json:"nodes"`
		Count int          `json:"count"`
	}
	decodeInto(t, resp, &body)
	if body.Count != 1 || body.Nodes[0].ID != "churn" {
		t.Errorf("filtered nodes = %+v, want only churn", body)
	}
}

func TestNodeLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Create with initial position.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/nodes", map[string]any{
		"id": "upsell", "module": "sales", "nodeType": "decision",
		"position": map[string]float64{"x": 150, "y": 250},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate create conflicts.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/nodes", map[string]any{
		"id": "upsell", "module": "sales", "nodeType": "decision",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()

	// Position landed.
	resp, err := http.Get(ts.URL + "/api/positions")
	if err != nil {
		t.Fatalf("GET positions: %v", err)
	}
	var positions map[string]model.Position
	decodeInto(t, resp, &positions)
	if positions["upsell"] != (model.Position{X: 150, Y: 250}) {
		t.Errorf("positions[upsell] = %+v", positions["upsell"])
	}

	// Update.
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/nodes/upsell", map[string]any{
		"id": "upsell", "module": "sales", "nodeType": "decision", "definition": "offer more",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("PUT status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// Delete, then 404.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/nodes/upsell", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
	resp, _ = http.Get(ts.URL + "/api/nodes/upsell")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateMissingNode(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/nodes/ghost", map[string]any{
		"id": "ghost", "module": "crm", "nodeType": "core",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("PUT missing node status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRelationshipLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/relationships", map[string]any{
		"from": "order", "to": "churn", "label": "feeds",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created map[string]string
	decodeInto(t, resp, &created)
	id := created["id"]
	if id == "" {
		t.Fatal("POST did not mint an id")
	}

	resp, err := http.Get(ts.URL + "/api/relationships/" + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var rel model.Relationship
	decodeInto(t, resp, &rel)
	if rel.Label != "feeds" {
		t.Errorf("relationship label = %q, want feeds", rel.Label)
	}

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/relationships/"+id, map[string]any{
		"from": "order", "to": "churn", "label": "drives",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("PUT status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/relationships/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("DELETE status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/relationships/" + id)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestJourneysDict(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/journeys/dict")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var dict map[string]model.Scenario
	decodeInto(t, resp, &dict)
	if _, ok := dict["j1"]; !ok {
		t.Errorf("journeys dict = %+v, want j1 key", dict)
	}
}

func TestBulkEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/bulk/nodes", []map[string]any{
		{"id": "n1", "module": "ops", "nodeType": "core"},
		{"id": "n2", "module": "ops", "nodeType": "kpi"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bulk nodes status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/bulk/journeys", map[string]any{
		"j2": map[string]any{"name": "ops flow", "path": []string{"n1", "n2"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bulk journeys status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/stats")
	var stats struct {
		Nodes    int `json:"nodes"`
		Journeys int `json:"journeys"`
	}
	decodeInto(t, resp, &stats)
	if stats.Nodes != 5 || stats.Journeys != 2 {
		t.Errorf("stats after bulk = %+v, want 5 nodes, 2 journeys", stats)
	}
}

func TestAdminClear(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/admin/clear", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/stats")
	var stats struct {
		Nodes int `json:"nodes"`
	}
	decodeInto(t, resp, &stats)
	if stats.Nodes != 0 {
		t.Errorf("nodes after clear = %d, want 0", stats.Nodes)
	}
}

func TestAdminReload(t *testing.T) {
	dir := t.TempDir()
	nodes := `[{"id": "seeded", "module": "crm", "nodeType": "core"}]`
	if err := os.WriteFile(filepath.Join(dir, "nodes.json"), []byte(nodes), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	ts := newTestServer(t, WithDataDir(dir))
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/admin/reload", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, _ = http.Get(ts.URL + "/api/nodes/seeded")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET seeded node status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	// The reload replaced the previous contents.
	resp, _ = http.Get(ts.URL + "/api/nodes/customer")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET replaced node status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminReloadWithoutDataDir(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/admin/reload", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reload without data dir status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestExportSVG(t *testing.T) {
	fileCache, err := cache.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	ts := newTestServer(t, WithCache(fileCache, time.Minute))

	resp, err := http.Get(ts.URL + "/api/export/svg?module=crm")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", got)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	svg := buf.String()
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, "customer") {
		t.Errorf("SVG body missing expected content")
	}
	if strings.Contains(svg, ">order<") {
		t.Errorf("SVG contains node filtered out by module")
	}

	// Second request hits the cache and returns identical bytes.
	resp2, err := http.Get(ts.URL + "/api/export/svg?module=crm")
	if err != nil {
		t.Fatalf("GET cached: %v", err)
	}
	defer resp2.Body.Close()
	var buf2 bytes.Buffer
	if _, err := buf2.ReadFrom(resp2.Body); err != nil {
		t.Fatalf("read cached body: %v", err)
	}
	if buf.String() != buf2.String() {
		t.Error("cached export differs from first render")
	}
}

func TestExportSVGBadFlag(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/export/svg?relationships=maybe")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestExportDOT(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/export/dot")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "digraph flowcanvas") {
		t.Error("DOT export missing digraph header")
	}
}
