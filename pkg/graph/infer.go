package graph

import (
	"context"
	stderrors "errors"
	"io/fs"
	"time"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/observability"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// Edge sources.
const (
	SourceManifest = "manifest" // local path dependency in pyproject.toml
	SourceImplicit = "implicit" // implicitDependencies in project.json
)

// Edge is an inferred dependency of one project on another.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Group is the dependency group that declared the edge, empty for the
	// main dependency map.
	Group string `json:"group,omitempty"`
}

// Builder is the orchestrator's graph builder.
type Builder interface {
	AddImplicitDependency(from, to string) error
}

// InferEdges returns one edge per local path dependency declared by the
// registered projects, in registry order and declaration order. The main
// dependency map is scanned first, then each group; an edge already emitted
// for a project is not repeated. Projects without a manifest contribute no
// edges. store may be nil.
func InferEdges(reg *workspace.Registry, store *manifest.Store) ([]Edge, error) {
	var edges []Edge
	for _, p := range reg.Projects() {
		m, err := store.Load(manifest.PathIn(p.Dir))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, errors.Wrap(errors.GetCode(err), err, "project %s", p.Name)
		}

		seen := make(map[string]bool)
		emit := func(deps *manifest.Dependencies, group string) {
			for _, name := range deps.Local() {
				if !seen[name] {
					seen[name] = true
					edges = append(edges, Edge{From: p.Name, To: name, Group: group})
				}
			}
		}
		emit(&m.Dependencies, "")
		for _, g := range m.GroupNames() {
			grp, _ := m.LookupGroup(g)
			emit(&grp.Dependencies, g)
		}
	}
	return edges, nil
}

// Apply hands every edge to b, stopping at the first error.
func Apply(b Builder, edges []Edge) error {
	for _, e := range edges {
		if err := b.AddImplicitDependency(e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the full project graph of a workspace: one node per project,
// manifest edges from InferEdges and explicit implicitDependencies edges.
func Build(ctx context.Context, reg *workspace.Registry, store *manifest.Store) (*DAGBuilder, []Edge, error) {
	start := time.Now()
	b := NewDAGBuilder(reg)

	edges, err := InferEdges(reg, store)
	if err != nil {
		return nil, nil, err
	}
	if err := Apply(b, edges); err != nil {
		return nil, nil, err
	}

	b.source = SourceImplicit
	for _, p := range reg.Projects() {
		for _, dep := range p.ImplicitDependencies {
			if err := b.AddImplicitDependency(p.Name, dep); err != nil {
				return nil, nil, err
			}
		}
	}

	observability.Workspace().OnEdgesInferred(ctx, reg.Len(), len(edges), time.Since(start))
	return b, edges, nil
}
