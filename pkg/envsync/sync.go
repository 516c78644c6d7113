// Package envsync keeps the workspace's shared virtual environment in step
// with its projects.
//
// The shared environment is described by the pyproject.toml at the workspace
// root. A sync empties its dependency maps, folds every project manifest into
// it with the lenient merge engine, writes it back and runs
// "poetry lock" and "poetry install --sync" in the root. If any fold
// conflicts, nothing is written and Poetry is not run.
package envsync

import (
	"context"
	stderrors "errors"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/merge"
	"github.com/matzehuels/monopy/pkg/observability"
	"github.com/matzehuels/monopy/pkg/poetry"
	"github.com/matzehuels/monopy/pkg/version"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// Syncer runs shared environment workflows for one workspace.
type Syncer struct {
	// Root is the absolute workspace root.
	Root string

	Registry *workspace.Registry

	// Store caches parsed manifests. Nil reads from disk.
	Store *manifest.Store

	Runner poetry.Runner

	// Env is handed to every Poetry process. The zero value inherits the
	// environment of the current process.
	Env workspace.Env

	Checker version.Checker
	Logger  *log.Logger
}

// Plan is the result of folding every project into the shared manifest.
type Plan struct {
	// Manifest is the shared manifest as a sync would write it.
	Manifest *manifest.Manifest

	// Folded lists the projects whose manifests were folded, in order.
	Folded []string

	// Skipped lists the projects without a manifest.
	Skipped []string
}

// Plan folds every project manifest into a copy of the root manifest without
// writing anything or running Poetry. A missing root manifest is an
// [errors.ErrCodeFileNotFound] error; a conflict is an [errors.ConflictError].
func (s *Syncer) Plan(ctx context.Context) (*Plan, error) {
	rootPath := manifest.PathIn(s.Root)
	acc, err := manifest.Read(rootPath)
	if err != nil {
		return nil, err
	}
	merge.Reset(acc)

	folder := merge.NewFolder(acc, merge.Options{Checker: s.checker()})
	plan := &Plan{Manifest: acc}
	for _, p := range s.Registry.Projects() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.Store.Load(manifest.PathIn(p.Dir))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				s.logger().Debug("no manifest, skipping", "project", p.Name)
				plan.Skipped = append(plan.Skipped, p.Name)
				continue
			}
			return nil, err
		}
		if m.Name == "" {
			m.Name = p.Name
		}
		s.logger().Debug("folding manifest", "project", p.Name)
		if err := folder.Add(m); err != nil {
			return nil, err
		}
		plan.Folded = append(plan.Folded, p.Name)
	}
	return plan, nil
}

// Sync rebuilds the shared environment. A workspace without a root manifest
// has no shared environment and is left alone.
func (s *Syncer) Sync(ctx context.Context) (err error) {
	rootPath := manifest.PathIn(s.Root)
	if !manifest.Exists(rootPath) {
		s.logger().Info("no shared environment manifest, skipping sync", "path", rootPath)
		return nil
	}

	start := time.Now()
	folded := 0
	observability.Workspace().OnSyncStart(ctx, s.Root, s.Registry.Len())
	defer func() {
		observability.Workspace().OnSyncComplete(ctx, s.Root, folded, time.Since(start), err)
	}()

	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}
	folded = len(plan.Folded)

	if err := manifest.Write(rootPath, plan.Manifest); err != nil {
		return err
	}
	s.Store.Invalidate(rootPath)
	s.logger().Info("updated shared environment manifest", "projects", folded)

	env := s.environ()
	if err := poetry.Lock(ctx, s.Runner, s.Root, env); err != nil {
		return err
	}
	return poetry.InstallSync(ctx, s.Runner, s.Root, env)
}

func (s *Syncer) environ() []string {
	if s.Env.Len() == 0 {
		return nil
	}
	return s.Env.Environ()
}

func (s *Syncer) checker() version.Checker {
	c := s.Checker
	if c.Logger == nil {
		c.Logger = s.Logger
	}
	return c
}

func (s *Syncer) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
