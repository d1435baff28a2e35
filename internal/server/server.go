// Package server exposes the flowcanvas graph over HTTP: CRUD for nodes,
// relationships, positions, and journeys, bulk import, admin operations,
// and cached SVG export of the current diagram.
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flowcanvas/flowcanvas/pkg/cache"
	"github.com/flowcanvas/flowcanvas/pkg/store"
)

// Server wires the store, the render cache, and the HTTP routes.
type Server struct {
	store    store.Store
	cache    cache.Cache
	cacheTTL time.Duration
	dataDir  string
	logger   *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCache enables the SVG render cache.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) { s.cache, s.cacheTTL = c, ttl }
}

// WithDataDir points the admin reload endpoint at a seed-file directory.
func WithDataDir(dir string) Option {
	return func(s *Server) { s.dataDir = dir }
}

// New creates a server over the given store.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:    st,
		cache:    cache.NewNull(),
		cacheTTL: time.Hour,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors)

	r.Get("/", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/export/svg", s.handleExportSVG)
		r.Get("/export/dot", s.handleExportDOT)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", s.handleListNodes)
			r.Post("/", s.handleCreateNode)
			r.Get("/{id}", s.handleGetNode)
			r.Put("/{id}", s.handleUpdateNode)
			r.Delete("/{id}", s.handleDeleteNode)
		})

		r.Route("/positions", func(r chi.Router) {
			r.Get("/", s.handleGetPositions)
			r.Put("/{id}", s.handleUpdatePosition)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Get("/", s.handleListRelationships)
			r.Post("/", s.handleCreateRelationship)
			r.Get("/{id}", s.handleGetRelationship)
			r.Put("/{id}", s.handleUpdateRelationship)
			r.Delete("/{id}", s.handleDeleteRelationship)
		})

		r.Route("/journeys", func(r chi.Router) {
			r.Get("/", s.handleListJourneys)
			r.Get("/dict", s.handleJourneysDict)
			r.Post("/", s.handleCreateJourney)
			r.Delete("/{id}", s.handleDeleteJourney)
		})

		r.Route("/bulk", func(r chi.Router) {
			r.Post("/nodes", s.handleBulkNodes)
			r.Post("/relationships", s.handleBulkRelationships)
			r.Post("/journeys", s.handleBulkJourneys)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reload", s.handleAdminReload)
			r.Post("/clear", s.handleAdminClear)
		})
	})

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// The frontend is served from a different origin during development.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
