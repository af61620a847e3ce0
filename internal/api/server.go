package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/orgmark/internal/config"
	"github.com/dgallion1/orgmark/internal/directory"
	"github.com/dgallion1/orgmark/internal/metrics"
	"github.com/dgallion1/orgmark/internal/pagetext"
	"github.com/dgallion1/orgmark/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP API server for orgmark.
type Server struct {
	router       chi.Router
	store        directory.Store
	orchestrator *pipeline.Orchestrator
	pages        pagetext.Source
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. pages may be nil
// when no document is configured; page endpoints then answer 503.
func NewServer(store directory.Store, orch *pipeline.Orchestrator, pages pagetext.Source, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:        store,
		orchestrator: orch,
		pages:        pages,
		metrics:      m,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	if s.metrics != nil {
		r.Use(Instrument(s.metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/hierarchy", s.handleHierarchy)
		r.Get("/stats", s.handleStats)

		r.Get("/managers", s.handleListManagers)
		r.Put("/managers/{id}", s.handleUpdateManager)

		r.Post("/employees", s.handleCreateEmployee)
		r.Delete("/employees/bulk_delete", s.handleBulkDelete)
		r.Put("/employees/{id}", s.handleUpdateEmployee)
		r.Delete("/employees/{id}", s.handleDeleteEmployee)
		r.Post("/employees/import", s.handleImport)
		r.Get("/employees/import/{jobID}/status", s.handleImportStatus)

		r.Get("/pages/{page}/lines", s.handlePageLines)
		r.Post("/pages/{page}/snippet", s.handlePageSnippet)
	})

	r.Get("/org-chart", s.handleOrgChart)

	r.Route("/employee/{id}/annotation", func(r chi.Router) {
		r.Get("/", s.handleGetAnnotation)
		r.Put("/", s.handlePutAnnotation)
		r.Post("/", s.handlePostAnnotation)
		r.Delete("/", s.handleDeleteAnnotation)
		r.Post("/capture", s.handleCaptureAnnotation)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
