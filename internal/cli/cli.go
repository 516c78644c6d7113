// Package cli implements the monopy command-line interface.
//
// Commands log through a single charmbracelet/log logger created by [New];
// --verbose (-v) switches it to debug level. The logger is attached to the
// command context and retrieved with loggerFromContext. Status lines for the
// user are printed with the lipgloss helpers in ui.go.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/cache"
	"github.com/matzehuels/monopy/pkg/envsync"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/poetry"
	"github.com/matzehuels/monopy/pkg/version"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "monopy"

	// manifestCacheSize bounds the parsed manifests kept per command.
	manifestCacheSize = 256
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	workspaceDir string
	verbose      bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Workspace Factories
// =============================================================================

// openWorkspace opens the workspace selected by --workspace, defaulting to
// the current directory.
func (c *CLI) openWorkspace() (*workspace.Workspace, error) {
	dir := c.workspaceDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	ws, err := workspace.Open(dir)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opened workspace", "root", ws.Root, "projects", ws.Registry.Len())
	return ws, nil
}

func newStore() (*manifest.Store, error) {
	return manifest.NewStore(manifestCacheSize)
}

// newRunner returns a Poetry runner for ws, failing early when the
// configured executable is not installed.
func (c *CLI) newRunner(ws *workspace.Workspace) (*poetry.ExecRunner, error) {
	r := &poetry.ExecRunner{Executable: ws.Config.Poetry, Logger: c.Logger}
	if err := r.CheckExecutable(); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *CLI) newSyncer(ws *workspace.Workspace, store *manifest.Store, runner poetry.Runner) *envsync.Syncer {
	return &envsync.Syncer{
		Root:     ws.Root,
		Registry: ws.Registry,
		Store:    store,
		Runner:   runner,
		Env:      ws.Env,
		Checker:  version.Checker{Logger: c.Logger},
		Logger:   c.Logger,
	}
}

// newCache opens the configured build cache backend. Remote backends get a
// keyer scoped to the workspace root.
func (c *CLI) newCache(ctx context.Context, ws *workspace.Workspace, noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache {
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	}
	cfg := ws.Config.Cache
	dir, err := buildCacheDir(ws)
	if err != nil && (cfg.Backend == "" || cfg.Backend == cache.BackendFile) {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), cache.NewDefaultKeyer(), nil
	}

	cc, err := cache.Open(ctx, cache.Options{
		Backend:       cfg.Backend,
		Dir:           dir,
		RedisAddr:     cfg.RedisAddr,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		return nil, nil, err
	}

	keyer := cache.NewDefaultKeyer()
	if cfg.Backend == cache.BackendRedis || cfg.Backend == cache.BackendMongo {
		keyer = cache.NewScopedKeyer(keyer, "ws:"+cache.Hash([]byte(ws.Root))[:12]+":")
	}
	return cc, keyer, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/monopy/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// buildCacheDir returns the file cache directory of ws: the configured
// cache.dir (relative to the workspace root) or the builds directory under
// cacheDir.
func buildCacheDir(ws *workspace.Workspace) (string, error) {
	if dir := ws.Config.Cache.Dir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(ws.Root, dir)
		}
		return dir, nil
	}
	d, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "builds"), nil
}
