// Package dag provides the directed graph of workspace projects.
//
// # Overview
//
// Nodes are projects and an edge From -> To means From depends on To, either
// through a local path dependency in its manifest or through an explicit
// implicitDependencies entry in its project.json. The orchestrator uses the
// graph to decide build and test order, so it must stay acyclic; cycles are
// still representable so they can be reported instead of silently dropped.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "app"})
//	g.AddNode(dag.Node{ID: "shared"})
//	g.AddEdge(dag.Edge{From: "app", To: "shared"})
//
// Query the graph with [DAG.Children] and [DAG.Parents]. [FindCycles] lists
// the cycles and [TopoOrder] yields a dependency-first ordering, failing with
// [ErrGraphHasCycle] when there is none.
//
// # Metadata
//
// Nodes, edges and the graph itself carry [Metadata] maps. The graph builder
// stores the project kind and root on nodes and the edge origin ("manifest" or
// "implicit") on edges. Metadata maps are never nil after creation.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
package dag
