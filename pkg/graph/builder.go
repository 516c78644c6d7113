package graph

import (
	stderrors "errors"

	"github.com/matzehuels/monopy/pkg/dag"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// Node metadata keys.
const (
	MetaKind   = "kind"
	MetaRoot   = "root"
	MetaSource = "source"
)

// DAGBuilder is a [Builder] backed by a [dag.DAG] holding one node per
// registered project.
type DAGBuilder struct {
	g      *dag.DAG
	source string
}

// NewDAGBuilder creates a builder with a node for every project in reg.
func NewDAGBuilder(reg *workspace.Registry) *DAGBuilder {
	g := dag.New(nil)
	for _, p := range reg.Projects() {
		_ = g.AddNode(dag.Node{ID: p.Name, Meta: dag.Metadata{
			MetaKind: string(p.Kind),
			MetaRoot: p.Root,
		}})
	}
	return &DAGBuilder{g: g, source: SourceManifest}
}

// AddImplicitDependency records that from depends on to. Both must be
// registered projects; a dependency on oneself is rejected.
func (b *DAGBuilder) AddImplicitDependency(from, to string) error {
	err := b.g.AddEdge(dag.Edge{From: from, To: to, Meta: dag.Metadata{MetaSource: b.source}})
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, dag.ErrUnknownSourceNode):
		return errors.Wrap(errors.ErrCodeProjectNotFound, err, "%s", from)
	case stderrors.Is(err, dag.ErrUnknownTargetNode):
		return errors.Wrap(errors.ErrCodeProjectNotFound, err, "%s depends on %s, which is not a workspace project", from, to)
	default:
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s -> %s", from, to)
	}
}

// Graph returns the built graph.
func (b *DAGBuilder) Graph() *dag.DAG { return b.g }

// Cycles returns the dependency cycles of the built graph.
func (b *DAGBuilder) Cycles() [][]string { return dag.FindCycles(b.g) }
