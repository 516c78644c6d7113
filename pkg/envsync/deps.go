package envsync

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/poetry"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// ChangeOptions describes a dependency change of one project.
type ChangeOptions struct {
	Project      string
	Dependencies []string

	// Local treats Dependencies as workspace projects.
	Local bool

	// Args are extra Poetry arguments for registry changes, in shell syntax.
	Args string
}

// AddLocal declares each of deps as a develop path dependency of project.
// The local dependencies of every added project are declared too, so the
// project's own environment can install them. deps must be registered
// libraries other than project itself, each with a manifest.
func AddLocal(reg *workspace.Registry, store *manifest.Store, project string, deps []string) error {
	if slices.Contains(deps, project) {
		return errors.New(errors.ErrCodeInvalidInput, "cannot add project %s to itself", project)
	}
	p, err := reg.MustGet(project)
	if err != nil {
		return err
	}
	path := manifest.PathIn(p.Dir)
	m, err := manifest.Read(path)
	if err != nil {
		return err
	}

	for _, name := range deps {
		dep, err := reg.MustGet(name)
		if err != nil {
			return err
		}
		if !dep.IsLibrary() {
			return errors.New(errors.ErrCodeInvalidInput, "local dependencies must be libraries, %s is %s", name, dep.Kind)
		}
		depManifest, err := store.Load(manifest.PathIn(dep.Dir))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return errors.Wrap(errors.ErrCodeProjectNotFound, err, "project %s has no %s", name, manifest.FileName)
			}
			return err
		}

		rel, err := relPath(p.Dir, dep.Dir)
		if err != nil {
			return err
		}
		m.Dependencies.Set(name, manifest.Local(rel, true))

		for _, transitive := range depManifest.Dependencies.Local() {
			if transitive == project {
				continue
			}
			target := localDir(reg, dep.Dir, depManifest, transitive)
			rel, err := relPath(p.Dir, target)
			if err != nil {
				return err
			}
			m.Dependencies.Set(transitive, manifest.Local(rel, true))
		}
	}

	if err := manifest.Write(path, m); err != nil {
		return err
	}
	store.Invalidate(path)
	return nil
}

// RemoveLocal drops deps from every dependency map of project's manifest.
// deps must be registered projects.
func RemoveLocal(reg *workspace.Registry, store *manifest.Store, project string, deps []string) error {
	p, err := reg.MustGet(project)
	if err != nil {
		return err
	}
	for _, name := range deps {
		if _, err := reg.MustGet(name); err != nil {
			return err
		}
	}
	path := manifest.PathIn(p.Dir)
	m, err := manifest.Read(path)
	if err != nil {
		return err
	}
	for _, name := range deps {
		m.Dependencies.Delete(name)
		for _, g := range m.GroupNames() {
			grp, _ := m.LookupGroup(g)
			grp.Dependencies.Delete(name)
		}
	}
	if err := manifest.Write(path, m); err != nil {
		return err
	}
	store.Invalidate(path)
	return nil
}

// Add adds dependencies to a project and re-syncs the shared environment.
//
// Local dependencies are written into the project manifest, installed into
// the project's environment and recorded as implicitDependencies in
// project.json. Registry dependencies are added with "poetry add".
func (s *Syncer) Add(ctx context.Context, opts ChangeOptions) error {
	p, err := s.Registry.MustGet(opts.Project)
	if err != nil {
		return err
	}
	env := s.environ()

	if opts.Local {
		s.logger().Info("adding local dependencies", "project", p.Name, "deps", opts.Dependencies)
		if err := AddLocal(s.Registry, s.Store, p.Name, opts.Dependencies); err != nil {
			return err
		}
		if err := poetry.Lock(ctx, s.Runner, p.Dir, env); err != nil {
			return err
		}
		if err := poetry.InstallSync(ctx, s.Runner, p.Dir, env); err != nil {
			return err
		}
		if err := workspace.UpdateImplicitDependencies(p.Dir, opts.Dependencies, nil); err != nil {
			return err
		}
	} else {
		extra, err := poetry.ParseExtraArgs(opts.Args)
		if err != nil {
			return err
		}
		s.logger().Info("adding dependencies", "project", p.Name, "deps", opts.Dependencies)
		if err := poetry.Add(ctx, s.Runner, p.Dir, env, opts.Dependencies, extra...); err != nil {
			return err
		}
		s.Store.Invalidate(manifest.PathIn(p.Dir))
	}
	return s.Sync(ctx)
}

// Remove removes dependencies from a project and re-syncs the shared
// environment. Removing a workspace project requires opts.Local.
func (s *Syncer) Remove(ctx context.Context, opts ChangeOptions) error {
	p, err := s.Registry.MustGet(opts.Project)
	if err != nil {
		return err
	}
	env := s.environ()

	if opts.Local {
		s.logger().Info("removing local dependencies", "project", p.Name, "deps", opts.Dependencies)
		if err := RemoveLocal(s.Registry, s.Store, p.Name, opts.Dependencies); err != nil {
			return err
		}
		if err := poetry.Lock(ctx, s.Runner, p.Dir, env); err != nil {
			return err
		}
		if err := poetry.InstallSync(ctx, s.Runner, p.Dir, env); err != nil {
			return err
		}
		if err := workspace.UpdateImplicitDependencies(p.Dir, nil, opts.Dependencies); err != nil {
			return err
		}
	} else {
		for _, name := range opts.Dependencies {
			if slices.Contains(p.ImplicitDependencies, name) {
				return errors.New(errors.ErrCodeInvalidInput, "%s is a local dependency of %s, use --local to remove it", name, p.Name)
			}
		}
		extra, err := poetry.ParseExtraArgs(opts.Args)
		if err != nil {
			return err
		}
		s.logger().Info("removing dependencies", "project", p.Name, "deps", opts.Dependencies)
		if err := poetry.Remove(ctx, s.Runner, p.Dir, env, opts.Dependencies, extra...); err != nil {
			return err
		}
		s.Store.Invalidate(manifest.PathIn(p.Dir))
	}
	return s.Sync(ctx)
}

// Install installs the dependencies of a project into its own environment
// and re-syncs the shared environment.
func (s *Syncer) Install(ctx context.Context, project, args string) error {
	p, err := s.Registry.MustGet(project)
	if err != nil {
		return err
	}
	extra, err := poetry.ParseExtraArgs(args)
	if err != nil {
		return err
	}
	s.logger().Info("installing dependencies", "project", p.Name)
	if err := poetry.Install(ctx, s.Runner, p.Dir, s.environ(), extra...); err != nil {
		return err
	}
	return s.Sync(ctx)
}

// Update runs "poetry update" for a project, restricted to
// opts.Dependencies when given, and re-syncs the shared environment.
// opts.Local is not supported.
func (s *Syncer) Update(ctx context.Context, opts ChangeOptions) error {
	if opts.Local {
		return errors.New(errors.ErrCodeUnsupported, "local dependencies are always at their workspace version")
	}
	p, err := s.Registry.MustGet(opts.Project)
	if err != nil {
		return err
	}
	extra, err := poetry.ParseExtraArgs(opts.Args)
	if err != nil {
		return err
	}
	s.logger().Info("updating dependencies", "project", p.Name, "deps", opts.Dependencies)
	if err := poetry.Update(ctx, s.Runner, p.Dir, s.environ(), opts.Dependencies, extra...); err != nil {
		return err
	}
	s.Store.Invalidate(manifest.PathIn(p.Dir))
	return s.Sync(ctx)
}

// localDir returns the directory of a local dependency declared by the
// manifest in fromDir: the registered project of that name, or else the
// declared path.
func localDir(reg *workspace.Registry, fromDir string, m *manifest.Manifest, name string) string {
	if p, ok := reg.Get(name); ok {
		return p.Dir
	}
	spec, _ := m.Dependencies.Get(name)
	return filepath.Join(fromDir, filepath.FromSlash(spec.Path))
}

func relPath(from, to string) (string, error) {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "relative path from %s to %s", from, to)
	}
	return filepath.ToSlash(rel), nil
}
