// Package graph infers project-to-project edges from manifests and
// serializes the resulting project graph.
//
// # Edge Inference
//
// [InferEdges] reads the manifest of every registered project and emits one
// [Edge] per local path dependency, naming the dependent project and the
// dependency key. Projects without a manifest are skipped. No transitive
// closure is computed: the orchestrator derives that itself.
//
// Edges are handed to the orchestrator's graph builder through the [Builder]
// interface. [DAGBuilder] implements it on top of pkg/dag so monopy can show
// and check the graph without an external orchestrator:
//
//	b := graph.NewDAGBuilder(reg)
//	edges, err := graph.InferEdges(reg, store)
//	err = graph.Apply(b, edges)
//	cycles := dag.FindCycles(b.Graph())
//
// # Graph Serialization
//
// Graphs use a simple node-link JSON format:
//
//	{
//	  "nodes": [{"id": "api", "kind": "application", "root": "apps/api"}],
//	  "edges": [{"from": "api", "to": "shared", "source": "manifest"}]
//	}
package graph
