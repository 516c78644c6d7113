package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/matzehuels/monopy/pkg/dag"
)

// Graph is the serialization format for project graphs, used by the CLI's
// JSON output and the HTTP inspector.
type Graph struct {
	Nodes  []Node     `json:"nodes"`
	Edges  []LinkEdge `json:"edges"`
	Cycles [][]string `json:"cycles,omitempty"`

	// Order lists projects dependencies first. It is empty when the graph
	// has a cycle.
	Order []string `json:"order,omitempty"`
}

// Node is a serialized project.
type Node struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
	Root string `json:"root,omitempty"`
}

// LinkEdge is a serialized dependency.
type LinkEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Source string `json:"source,omitempty"`
}

// FromDAG converts a project graph to its serialization format.
// Nodes are sorted by ID for deterministic output.
func FromDAG(g *dag.DAG) Graph {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *dag.Node) int { return strings.Compare(a.ID, b.ID) })

	out := Graph{
		Nodes:  make([]Node, len(nodes)),
		Edges:  make([]LinkEdge, 0, g.EdgeCount()),
		Cycles: dag.FindCycles(g),
	}
	for i, n := range nodes {
		out.Nodes[i] = Node{ID: n.ID, Kind: metaString(n.Meta, MetaKind), Root: metaString(n.Meta, MetaRoot)}
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, LinkEdge{From: e.From, To: e.To, Source: metaString(e.Meta, MetaSource)})
	}
	if len(out.Cycles) == 0 {
		out.Order, _ = dag.TopoOrder(g)
	}
	return out
}

// MarshalGraph converts a project graph to indented JSON bytes.
func MarshalGraph(g *dag.DAG) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a project graph as JSON to an io.Writer.
func WriteGraph(g *dag.DAG, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromDAG(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func metaString(m dag.Metadata, key string) string {
	s, _ := m[key].(string)
	return s
}
