// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about environment syncs, builds, graph inference and
// cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so library packages can
// emit events without importing a metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetWorkspaceHooks(&myWorkspaceHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Workspace().OnSyncStart(ctx, root, len(projects))
//	// ... fold manifests ...
//	observability.Workspace().OnSyncComplete(ctx, root, folded, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Workspace Hooks
// =============================================================================

// WorkspaceHooks receives events from workspace-level operations.
type WorkspaceHooks interface {
	// Shared environment sync events
	OnSyncStart(ctx context.Context, root string, projects int)
	OnSyncComplete(ctx context.Context, root string, folded int, duration time.Duration, err error)

	// Package build events
	OnBuildStart(ctx context.Context, project string)
	OnBuildComplete(ctx context.Context, project string, cached bool, duration time.Duration, err error)

	// OnEdgesInferred records one pass of graph edge inference.
	OnEdgesInferred(ctx context.Context, projects, edges int, duration time.Duration)
}

// =============================================================================
// Version Hooks
// =============================================================================

// VersionHooks receives events from the version compatibility checker.
type VersionHooks interface {
	// OnVersionWarning records a constraint that could not be parsed and was
	// therefore treated as compatible.
	OnVersionWarning(dependency, a, b string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopWorkspaceHooks is a no-op implementation of WorkspaceHooks.
type NoopWorkspaceHooks struct{}

func (NoopWorkspaceHooks) OnSyncStart(context.Context, string, int)                            {}
func (NoopWorkspaceHooks) OnSyncComplete(context.Context, string, int, time.Duration, error)   {}
func (NoopWorkspaceHooks) OnBuildStart(context.Context, string)                                {}
func (NoopWorkspaceHooks) OnBuildComplete(context.Context, string, bool, time.Duration, error) {}
func (NoopWorkspaceHooks) OnEdgesInferred(context.Context, int, int, time.Duration)            {}

// NoopVersionHooks is a no-op implementation of VersionHooks.
type NoopVersionHooks struct{}

func (NoopVersionHooks) OnVersionWarning(string, string, string, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	workspaceHooks WorkspaceHooks = NoopWorkspaceHooks{}
	versionHooks   VersionHooks   = NoopVersionHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetWorkspaceHooks registers custom workspace hooks.
// This should be called once at application startup before any sync or build.
func SetWorkspaceHooks(h WorkspaceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		workspaceHooks = h
	}
}

// SetVersionHooks registers custom version checker hooks.
func SetVersionHooks(h VersionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		versionHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Workspace returns the registered workspace hooks.
func Workspace() WorkspaceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return workspaceHooks
}

// Version returns the registered version checker hooks.
func Version() VersionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return versionHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	workspaceHooks = NoopWorkspaceHooks{}
	versionHooks = NoopVersionHooks{}
	cacheHooks = NoopCacheHooks{}
}
