package api

import (
	stderrors "errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/monopy/pkg/buildinfo"
	"github.com/matzehuels/monopy/pkg/envsync"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/graph"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/render"
	"github.com/matzehuels/monopy/pkg/version"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Workspace string         `json:"workspace"`
	Projects  int            `json:"projects"`
	Build     buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Workspace: s.ws.Root,
		Projects:  s.ws.Registry.Len(),
		Build:     buildinfo.Get(),
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.ws.Registry.Projects()
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, newProjectView(p, manifest.Exists(manifest.PathIn(p.Dir))))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.ws.Registry.MustGet(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(p, manifest.Exists(manifest.PathIn(p.Dir))))
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	p, err := s.ws.Registry.MustGet(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := s.store.Load(manifest.PathIn(p.Dir))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			err = errors.Wrap(errors.ErrCodeFileNotFound, err, "project %s has no %s", p.Name, manifest.FileName)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newManifestView(m))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	b, _, err := graph.Build(r.Context(), s.ws.Registry, s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph.FromDAG(b.Graph()))
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	b, _, err := graph.Build(r.Context(), s.ws.Registry, s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	dot := render.ToDOT(b.Graph(), render.Options{Detailed: r.URL.Query().Get("detailed") == "true"})
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}

type compatResponse struct {
	A          string    `json:"a"`
	B          string    `json:"b"`
	Normalized [2]string `json:"normalized"`
	Compatible bool      `json:"compatible"`
}

func (s *Server) handleCompat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if !q.Has("a") || !q.Has("b") {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "query parameters a and b are required"))
		return
	}
	writeJSON(w, http.StatusOK, compatResponse{
		A:          a,
		B:          b,
		Normalized: [2]string{version.Normalize(a), version.Normalize(b)},
		Compatible: s.checker.Compatible(q.Get("dependency"), a, b),
	})
}

type planResponse struct {
	Folded   []string     `json:"folded"`
	Skipped  []string     `json:"skipped"`
	Manifest manifestView `json:"manifest"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	syncer := &envsync.Syncer{
		Root:     s.ws.Root,
		Registry: s.ws.Registry,
		Store:    s.store,
		Checker:  s.checker,
		Logger:   s.logger,
	}
	plan, err := syncer.Plan(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{
		Folded:   nonNil(plan.Folded),
		Skipped:  nonNil(plan.Skipped),
		Manifest: newManifestView(plan.Manifest),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
