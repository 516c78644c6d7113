// Package manifest models a Poetry pyproject.toml as seen by the merge engine.
//
// # Overview
//
// A [Manifest] exposes the parts of a pyproject.toml that dependency graph
// synthesis cares about:
//
//   - Name and Version from [tool.poetry] (falling back to [project].name)
//   - Dependencies: an ordered map from dependency name to [Spec]
//   - Groups: named supplementary dependency maps ([tool.poetry.group.<name>])
//   - Sources: extra package registries ([[tool.poetry.source]])
//   - Packages: the package-inclusion list ([[tool.poetry.packages]])
//
// Everything else in the document is kept as a raw tree and written back
// unchanged by [Encode], so tools that only touch dependencies never drop
// settings they do not understand.
//
// # Dependency Specs
//
// Poetry allows a dependency to be a bare version string or a table. The
// decision between a registry constraint and a local path dependency is made
// once, at parse time, and recorded in [Spec.Kind]:
//
//	requests = "^2.31"                                  -> KindRegistry
//	fastapi = { version = "^0.110", extras = ["all"] }  -> KindRegistry (extras kept in Attrs)
//	shared = { path = "../../libs/shared", develop = true } -> KindLocal
//
// # Ordering
//
// Dependency and group order follows the order of first appearance in the
// document, and new entries are appended. The TOML encoder writes table keys
// in sorted order, so the file layout after [Encode] is deterministic but is
// not byte-identical to hand-written input.
//
// # Caching
//
// [Store] keeps recently parsed manifests in an LRU cache keyed by path and
// invalidated by modification time, for callers (graph inference, the HTTP
// inspector) that read the same files repeatedly.
package manifest
