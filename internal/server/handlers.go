package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/canvas"
	seedio "github.com/flowcanvas/flowcanvas/pkg/io"
	"github.com/flowcanvas/flowcanvas/pkg/model"
	"github.com/flowcanvas/flowcanvas/pkg/render"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// storeError maps store failures onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	s.logger.Error("store operation failed", "err", err)
	s.writeError(w, http.StatusInternalServerError, "%v", err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// =============================================================================
// Health and Stats
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "flowcanvas API is running",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}

	modules := map[string]int{}
	types := map[string]int{}
	for _, n := range snap.Nodes {
		modules[n.Module]++
		types[string(n.Type)]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes":         len(snap.Nodes),
		"relationships": len(snap.Edges),
		"journeys":      len(snap.Scenarios),
		"positions":     len(snap.Positions),
		"modules":       modules,
		"nodeTypes":     types,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.Nodes(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}

	module := r.URL.Query().Get("module")
	nodeType := r.URL.Query().Get("nodeType")
	filtered := nodes[:0]
	for _, n := range nodes {
		if module != "" && n.Module != module {
			continue
		}
		if nodeType != "" && string(n.Type) != nodeType {
			continue
		}
		filtered = append(filtered, n)
	}

	writeJSON(w, http.StatusOK, map[string]any{"nodes": filtered, "count": len(filtered)})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Node(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// createNodeRequest is a node plus an optional initial position.
type createNodeRequest struct {
	model.Node
	Position *model.Position `json:"position,omitempty"`
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := s.store.Node(r.Context(), req.ID); err == nil {
		s.writeError(w, http.StatusConflict, "node %q already exists", req.ID)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.storeError(w, err)
		return
	}

	if err := s.store.UpsertNode(r.Context(), req.Node); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Position != nil {
		if err := s.store.SavePosition(r.Context(), req.ID, *req.Position); err != nil {
			s.storeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, req.Node)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Node(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}

	var n model.Node
	if !decodeBody(w, r, &n) {
		return
	}
	n.ID = id
	if err := s.store.UpsertNode(r.Context(), n); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteNode(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("node %q deleted", id)})
}

// =============================================================================
// Positions
// =============================================================================

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.Positions(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var pos model.Position
	if !decodeBody(w, r, &pos) {
		return
	}
	if err := s.store.SavePosition(r.Context(), id, pos); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node_id": id, "x": pos.X, "y": pos.Y})
}

// =============================================================================
// Relationships
// =============================================================================

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	edges, err := s.store.Relationships(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationships": edges, "count": len(edges)})
}

func (s *Server) handleCreateRelationship(w http.ResponseWriter, r *http.Request) {
	var rel model.Relationship
	if !decodeBody(w, r, &rel) {
		return
	}
	id, err := s.store.UpsertRelationship(r.Context(), rel)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "message": "relationship created"})
}

func (s *Server) findRelationship(w http.ResponseWriter, r *http.Request, id string) (model.Relationship, bool) {
	edges, err := s.store.Relationships(r.Context())
	if err != nil {
		s.storeError(w, err)
		return model.Relationship{}, false
	}
	for _, e := range edges {
		if e.ID == id {
			return e, true
		}
	}
	s.writeError(w, http.StatusNotFound, "relationship %q not found", id)
	return model.Relationship{}, false
}

func (s *Server) handleGetRelationship(w http.ResponseWriter, r *http.Request) {
	rel, ok := s.findRelationship(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (s *Server) handleUpdateRelationship(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.findRelationship(w, r, id); !ok {
		return
	}

	var rel model.Relationship
	if !decodeBody(w, r, &rel) {
		return
	}
	rel.ID = id
	if _, err := s.store.UpsertRelationship(r.Context(), rel); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "relationship updated"})
}

func (s *Server) handleDeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteRelationship(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("relationship %q deleted", id)})
}

// =============================================================================
// Journeys
// =============================================================================

func (s *Server) handleListJourneys(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.Scenarios(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"journeys": scenarios, "count": len(scenarios)})
}

func (s *Server) handleJourneysDict(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.Scenarios(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	dict := make(map[string]model.Scenario, len(scenarios))
	for _, sc := range scenarios {
		dict[sc.ID] = sc
	}
	writeJSON(w, http.StatusOK, dict)
}

func (s *Server) handleCreateJourney(w http.ResponseWriter, r *http.Request) {
	var sc model.Scenario
	if !decodeBody(w, r, &sc) {
		return
	}

	// Soft invariants are advisory: the scenario is stored either way and
	// degrades per step when played.
	if snap, err := s.store.Snapshot(r.Context()); err == nil {
		for _, problem := range sc.Problems(snap.Nodes) {
			s.logger.Warn("journey has problems", "journey", sc.Name, "problem", problem)
		}
	}

	id, err := s.store.UpsertScenario(r.Context(), sc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "message": "journey created"})
}

func (s *Server) handleDeleteJourney(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteScenario(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("journey %q deleted", id)})
}

// =============================================================================
// Bulk
// =============================================================================

func (s *Server) handleBulkNodes(w http.ResponseWriter, r *http.Request) {
	var nodes []model.Node
	if !decodeBody(w, r, &nodes) {
		return
	}
	count := 0
	for _, n := range nodes {
		if err := s.store.UpsertNode(r.Context(), n); err != nil {
			s.writeError(w, http.StatusBadRequest, "node %q: %v", n.ID, err)
			return
		}
		count++
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("upserted %d nodes", count)})
}

func (s *Server) handleBulkRelationships(w http.ResponseWriter, r *http.Request) {
	var edges []model.Relationship
	if !decodeBody(w, r, &edges) {
		return
	}
	count := 0
	for _, e := range edges {
		if _, err := s.store.UpsertRelationship(r.Context(), e); err != nil {
			s.writeError(w, http.StatusBadRequest, "relationship %s->%s: %v", e.From, e.To, err)
			return
		}
		count++
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("inserted %d relationships", count)})
}

func (s *Server) handleBulkJourneys(w http.ResponseWriter, r *http.Request) {
	var scenarios map[string]model.Scenario
	if !decodeBody(w, r, &scenarios) {
		return
	}
	count := 0
	for id, sc := range scenarios {
		sc.ID = id
		if _, err := s.store.UpsertScenario(r.Context(), sc); err != nil {
			s.writeError(w, http.StatusBadRequest, "journey %q: %v", id, err)
			return
		}
		count++
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("inserted %d journeys", count)})
}

// =============================================================================
// Admin
// =============================================================================

func (s *Server) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	if s.dataDir == "" {
		s.writeError(w, http.StatusBadRequest, "no data directory configured")
		return
	}

	snap, err := seedio.LoadDir(s.dataDir)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load seed files: %v", err)
		return
	}
	if err := s.store.Import(r.Context(), snap); err != nil {
		s.storeError(w, err)
		return
	}

	s.logger.Info("data reloaded",
		"nodes", len(snap.Nodes),
		"relationships", len(snap.Edges),
		"journeys", len(snap.Scenarios))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "data reloaded",
		"nodes":         len(snap.Nodes),
		"relationships": len(snap.Edges),
		"journeys":      len(snap.Scenarios),
		"positions":     len(snap.Positions),
	})
}

func (s *Server) handleAdminClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "database cleared"})
}

// =============================================================================
// Export
// =============================================================================

func (s *Server) handleExportDOT(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(render.ToDOT(snap)))
}

// handleExportSVG renders the current diagram under the requested filter.
// Results are cached by snapshot content, so repeated exports of unchanged
// data cost one store read.
func (s *Server) handleExportSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	module := q.Get("module")
	if module == "" {
		module = model.ModuleAll
	}
	search := q.Get("search")
	showRel := true
	if v := q.Get("relationships"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid relationships flag %q", v)
			return
		}
		showRel = parsed
	}

	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}

	key := cache.RenderKey(cache.SnapshotHash(snap), module, search, showRel)
	if data, hit, err := s.cache.Get(r.Context(), key); err == nil && hit {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(data)
		return
	}

	sess := canvas.NewSession(store.Service{Store: store.NewMemoryFrom(snap)}, canvas.WithTickInterval(0))
	defer sess.Close()
	if err := sess.Reload(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	sess.SetFilter(module, search, showRel)

	svg := render.RenderSVG(sess.Frame(), render.WithBackground("#ffffff"))
	if err := s.cache.Set(r.Context(), key, svg, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", "err", err)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
