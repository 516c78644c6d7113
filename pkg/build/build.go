// Package build packages a workspace project as a self-contained
// distribution.
//
// A build copies the project into a fresh staging directory, bundles its
// local dependencies into the staged tree (see pkg/bundle), runs
// "poetry build" there and copies the resulting dist/ files into the
// project's output directory. The staging directory is removed whether the
// build succeeds or not.
//
// Builds are skipped when a [cache.Cache] holds a record for the project's
// current input fingerprint and the recorded artifacts are still present in
// the output directory.
package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/monopy/pkg/bundle"
	"github.com/matzehuels/monopy/pkg/cache"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/observability"
	"github.com/matzehuels/monopy/pkg/poetry"
	"github.com/matzehuels/monopy/pkg/workspace"
)

const cacheKeyType = "build"

// Builder builds workspace projects.
type Builder struct {
	Workspace *workspace.Workspace

	// Store caches parsed dependency manifests. Nil reads from disk.
	Store *manifest.Store

	Runner poetry.Runner

	// Cache records finished builds. Nil disables build caching.
	Cache cache.Cache
	Keyer cache.Keyer
	TTL   time.Duration

	// Ignore selects files never copied into the staging tree.
	Ignore bundle.Ignore

	// OutputDir overrides the configured output directory. Relative paths
	// are resolved against the workspace root. The project name is appended.
	OutputDir string

	// TempDir is the parent of staging directories. Defaults to os.TempDir().
	TempDir string

	Logger *log.Logger
}

// Result describes a finished build.
type Result struct {
	Project     string
	OutputDir   string
	Artifacts   []string
	Fingerprint string
	Cached      bool
	Duration    time.Duration
}

// record is the cached form of a build.
type record struct {
	Artifacts []string  `json:"artifacts"`
	BuiltAt   time.Time `json:"built_at"`
}

// Build builds the named project.
func (b *Builder) Build(ctx context.Context, name string) (res *Result, err error) {
	start := time.Now()
	observability.Workspace().OnBuildStart(ctx, name)
	defer func() {
		cached := res != nil && res.Cached
		observability.Workspace().OnBuildComplete(ctx, name, cached, time.Since(start), err)
	}()

	p, err := b.Workspace.Registry.MustGet(name)
	if err != nil {
		return nil, err
	}
	res = &Result{Project: p.Name, OutputDir: b.outputDir(p)}

	fp, err := Fingerprint(p.Dir, b.Ignore, b.Store)
	if err != nil {
		return nil, err
	}
	res.Fingerprint = fp

	key := b.keyer().BuildKey(p.Name, fp)
	if arts, ok := b.cached(ctx, key, res.OutputDir); ok {
		b.logger().Info("build is up to date", "project", p.Name, "output", res.OutputDir)
		res.Artifacts, res.Cached = arts, true
		res.Duration = time.Since(start)
		return res, nil
	}

	arts, err := b.build(ctx, p, res.OutputDir)
	if err != nil {
		return nil, err
	}
	res.Artifacts = arts
	res.Duration = time.Since(start)
	b.store(ctx, key, arts)
	return res, nil
}

func (b *Builder) build(ctx context.Context, p *workspace.Project, outDir string) ([]string, error) {
	staging := filepath.Join(b.tempDir(), "monopy", "build", uuid.NewString())
	b.logger().Debug("creating staging directory", "path", staging)
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			b.logger().Warn("could not remove staging directory", "path", staging, "err", err)
		}
	}()

	if err := bundle.CopyTree(p.Dir, staging, bundle.CopyOptions{Ignore: b.Ignore}); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stage %s", p.Name)
	}

	stagedPath := manifest.PathIn(staging)
	m, err := manifest.Read(stagedPath)
	if err != nil {
		return nil, err
	}
	resolver := &bundle.Resolver{Ignore: b.Ignore, Store: b.Store, Logger: b.Logger}
	if err := resolver.ResolveAndBundle(m, p.Dir, staging); err != nil {
		return nil, err
	}
	if err := manifest.Write(stagedPath, m); err != nil {
		return nil, err
	}

	b.logger().Info("building artifacts", "project", p.Name)
	if err := poetry.Build(ctx, b.Runner, staging, b.environ()); err != nil {
		return nil, err
	}

	dist := filepath.Join(staging, "dist")
	arts, err := artifacts(dist)
	if err != nil {
		return nil, err
	}
	if err := bundle.CopyDir(dist, outDir); err != nil {
		return nil, err
	}
	b.logger().Info("copied artifacts", "project", p.Name, "output", outDir, "count", len(arts))
	return arts, nil
}

// cached reports the recorded artifacts for key if every one of them is
// still present in outDir.
func (b *Builder) cached(ctx context.Context, key, outDir string) ([]string, bool) {
	if b.Cache == nil {
		return nil, false
	}
	data, hit, err := b.Cache.Get(ctx, key)
	if err != nil {
		b.logger().Warn("build cache read failed", "err", err)
		return nil, false
	}
	var rec record
	if !hit || json.Unmarshal(data, &rec) != nil || len(rec.Artifacts) == 0 {
		observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	for _, a := range rec.Artifacts {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(a))); err != nil {
			observability.Cache().OnCacheMiss(ctx, cacheKeyType)
			return nil, false
		}
	}
	observability.Cache().OnCacheHit(ctx, cacheKeyType)
	return rec.Artifacts, true
}

func (b *Builder) store(ctx context.Context, key string, arts []string) {
	if b.Cache == nil {
		return
	}
	data, err := json.Marshal(record{Artifacts: arts, BuiltAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := b.Cache.Set(ctx, key, data, b.TTL); err != nil {
		b.logger().Warn("build cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// artifacts lists the files under dist, relative and slash separated.
func artifacts(dist string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dist, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dist, path)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "poetry build produced no dist directory")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list %s", dist)
	}
	slices.Sort(out)
	return out, nil
}

func (b *Builder) outputDir(p *workspace.Project) string {
	if b.OutputDir == "" {
		return b.Workspace.OutputDir(p)
	}
	dir := b.OutputDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(b.Workspace.Root, dir)
	}
	return filepath.Join(dir, p.Name)
}

func (b *Builder) environ() []string {
	if b.Workspace.Env.Len() == 0 {
		return nil
	}
	return b.Workspace.Env.Environ()
}

func (b *Builder) keyer() cache.Keyer {
	if b.Keyer != nil {
		return b.Keyer
	}
	return cache.NewDefaultKeyer()
}

func (b *Builder) tempDir() string {
	if b.TempDir != "" {
		return b.TempDir
	}
	return os.TempDir()
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}
