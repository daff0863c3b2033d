package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kubiyabot/skillrt/internal/config"
	"github.com/kubiyabot/skillrt/pkg/context"
	"github.com/kubiyabot/skillrt/pkg/generation"
	"github.com/kubiyabot/skillrt/pkg/jobs"
	"github.com/kubiyabot/skillrt/pkg/retrieval"
)

// version is set via -ldflags at build time.
var version = "dev"

// SetVersion sets the version string reported by /version.
func SetVersion(v string) { version = v }

// Server is the HTTP front-end wiring the core components together.
type Server struct {
	cfg       *config.Config
	router    chi.Router
	registry   *Registry
	contexts   *context.Storage
	jobStorage jobs.Storage
	pipeline   *retrieval.Pipeline
	generator *generation.Generator
}

// NewServer builds a Server. pipeline and generator may be nil; their
// routes respond 400 with a "not configured" error message when unset,
// matching how a deployment that hasn't configured an embedding or LLM
// provider degrades.
func NewServer(cfg *config.Config, registry *Registry, contexts *context.Storage, jobStorage jobs.Storage, pipeline *retrieval.Pipeline, generator *generation.Generator) *Server {
	s := &Server{
		cfg:        cfg,
		registry:   registry,
		contexts:   contexts,
		jobStorage: jobStorage,
		pipeline:   pipeline,
		generator:  generator,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.API.APIKey != "" {
		r.Use(s.apiKeyAuth)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/instances", func(r chi.Router) {
		r.Get("/", s.handleListInstances)
		r.Post("/", s.handleRegisterInstance)
		r.Route("/{skill}/{instance}", func(r chi.Router) {
			r.Get("/metadata", s.handleGetMetadata)
			r.Get("/tools", s.handleGetTools)
			r.Post("/tools/{tool}", s.handleExecuteTool)
			r.Delete("/", s.handleUnregisterInstance)
		})
	})

	r.Route("/contexts", func(r chi.Router) {
		r.Get("/", s.handleListContexts)
		r.Post("/", s.handleCreateContext)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetContext)
			r.Delete("/", s.handleDeleteContext)
			r.Get("/resolve", s.handleResolveContext)
		})
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleEnqueueJob)
		r.Get("/stats", s.handleJobStats)
		r.Get("/{id}", s.handleGetJob)
	})

	r.Post("/search", s.handleSearch)
	r.Post("/generate", s.handleGenerate)

	s.router = r
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.API.RequestTimeout > 0 {
		return time.Duration(s.cfg.API.RequestTimeout) * time.Second
	}
	return 60 * time.Second
}

// Handler returns the HTTP handler this Server exposes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey != s.cfg.API.APIKey {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or missing API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version, "service": "skillrt"})
}
