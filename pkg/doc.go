// Package pkg provides the core libraries for monopy, a Poetry monorepo tool.
//
// # Overview
//
// A monopy workspace is a directory tree of Python projects, each with a
// pyproject.toml and a project.json, plus an optional shared pyproject.toml at
// the root. The pkg directory is organized into three areas:
//
//  1. Domain logic ([manifest], [version], [merge], [bundle], [graph])
//  2. Workflows ([envsync], [build], [scaffold])
//  3. Infrastructure ([workspace], [poetry], [cache], [api], [render])
//
// # Architecture
//
// Syncing the shared environment:
//
//	project pyproject.toml files
//	         ↓
//	    [merge] fold (conflict check via [version])
//	         ↓
//	    root pyproject.toml
//	         ↓
//	    poetry lock + install --sync
//
// Building a project:
//
//	project directory
//	         ↓
//	    [bundle] copy local path dependencies, merge their requirements
//	         ↓
//	    poetry build (cached by fingerprint)
//
// # Quick Start
//
// Fold every project manifest without touching the disk:
//
//	ws, _ := workspace.Open(".")
//	store, _ := manifest.NewStore(manifest.DefaultStoreSize)
//	s := &envsync.Syncer{Root: ws.Root, Registry: ws.Registry, Store: store}
//	plan, err := s.Plan(ctx)
//
// Infer the project graph:
//
//	b, edges, err := graph.Build(ctx, ws.Registry, store)
//	dot := render.ToDOT(b.Graph(), render.Options{})
//
// # Main Packages
//
// [manifest] - The pyproject.toml model. Dependency maps keep declaration
// order and [manifest.Store] caches parsed files by path.
//
// [version] - Poetry and PEP 440 constraint parsing and the pairwise
// compatibility check used to detect conflicts.
//
// [merge] - Folds one manifest into another. The first writer of a
// dependency wins and incompatible constraints fail with a conflict error.
//
// [bundle] - Resolves local path dependencies of a project transitively and
// copies them into a staging tree.
//
// [graph] and [dag] - Edge inference from manifests and project.json, and the
// graph structure the edges are loaded into.
//
// [cache] - Build record cache with file, Redis and MongoDB backends.
//
// [api] - Read-only HTTP inspector over a workspace.
package pkg
