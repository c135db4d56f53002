// Package server exposes warden's state over a read-only JSON HTTP API for
// dashboards and editor integrations. All mutation goes through the CLI; the
// API never writes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ceponatia/warden/internal/autonomy"
	"github.com/ceponatia/warden/internal/impact"
	"github.com/ceponatia/warden/internal/trust"
	"github.com/ceponatia/warden/internal/workdoc"
)

// Server serves the read-only API.
type Server struct {
	lifecycle *workdoc.Lifecycle
	ledger    *trust.Ledger
	policies  *autonomy.Store
	assessor  *impact.Assessor
	repos     []string
}

// New creates a Server over the given state accessors. repos lists the
// monitored repository slugs; requests for other slugs return 404.
func New(lifecycle *workdoc.Lifecycle, ledger *trust.Ledger, policies *autonomy.Store, assessor *impact.Assessor, repos []string) *Server {
	return &Server{
		lifecycle: lifecycle,
		ledger:    ledger,
		policies:  policies,
		assessor:  assessor,
		repos:     repos,
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/autonomy/global", s.handleGlobalPolicy)

	r.Route("/repos/{repo}", func(r chi.Router) {
		r.Use(s.requireKnownRepo)
		r.Get("/work", s.handleWorkList)
		r.Get("/work/{id}", s.handleWorkGet)
		r.Get("/trust", s.handleTrust)
		r.Get("/autonomy", s.handleAutonomy)
		r.Get("/impact", s.handleImpact)
	})

	return r
}

// requireKnownRepo rejects slugs outside the configured repository set so the
// API cannot be used to probe arbitrary paths.
func (s *Server) requireKnownRepo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repo := chi.URLParam(r, "repo")
		for _, known := range s.repos {
			if repo == known {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusNotFound, "unknown repository")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkList(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")

	docs, err := s.lifecycle.List(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleWorkGet(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	id := chi.URLParam(r, "id")

	doc, err := s.lifecycle.Get(repo, id)
	if err != nil {
		if errors.Is(err, workdoc.ErrNotFound) {
			writeError(w, http.StatusNotFound, "work document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// trustEntry is one agent's metrics plus the cross-repo aggregate.
type trustEntry struct {
	AgentName string           `json:"agentName"`
	Metrics   trust.Metrics    `json:"metrics"`
	Aggregate *trust.Aggregate `json:"aggregate,omitempty"`
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")

	agents, err := s.ledger.ListAgents(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]trustEntry, 0, len(agents))
	for _, agent := range agents {
		m, err := s.ledger.Get(repo, agent)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entry := trustEntry{AgentName: agent, Metrics: m}
		if agg, err := s.ledger.ComputeAggregate(agent, s.repos); err == nil {
			entry.Aggregate = agg
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAutonomy(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")

	policy, err := s.policies.LoadRepoPolicy(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (s *Server) handleGlobalPolicy(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.policies.LoadGlobal()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")

	records, err := s.assessor.List(repo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
