// Package bundle flattens a project's local path dependencies into a staging
// tree so the project can be packaged as a self-contained distribution.
//
// Every local dependency, direct or transitive, is copied into the staging
// directory, declared as an included package of the target manifest, and
// replaced by its own registry dependencies. Registry dependencies gathered
// this way must agree textually: unlike the shared environment fold, bundling
// accepts no range leniency.
package bundle

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

// Resolver resolves and bundles local dependencies.
type Resolver struct {
	// Ignore selects files left out when copying dependency trees.
	// The zero value ignores nothing but cache directories; use NewIgnore.
	Ignore Ignore

	// Store caches parsed dependency manifests. Nil reads from disk.
	Store *manifest.Store

	Logger *log.Logger
}

// ResolveAndBundle walks the local dependencies declared by the manifest at
// projectDir, depth first, and folds each of them into target:
//
//   - the dependency's files are copied into stagingDir,
//   - its local entry is removed from target and its module name appended to
//     target's package includes,
//   - its registry dependencies are added to target; a name already present
//     with a different declaration is an [errors.ConflictError].
//
// A dependency reached through several paths is bundled once. A cycle of
// local dependencies is an [errors.CircularDependencyError]; a dependency
// directory without a manifest is [errors.ErrCodeProjectNotFound].
//
// target is mutated in place and should be discarded on error.
func (r *Resolver) ResolveAndBundle(target *manifest.Manifest, projectDir, stagingDir string) error {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", projectDir)
	}
	w := &walker{
		r:       r,
		target:  target,
		staging: stagingDir,
		done:    make(map[string]bool),
		modules: make(map[string]string),
		active:  make(map[string]bool),
		owners:  make(map[string]string),
	}
	for _, name := range target.Dependencies.Names() {
		w.owners[name] = target.Name
	}
	return w.visit(root, target.Name)
}

type walker struct {
	r       *Resolver
	target  *manifest.Manifest
	staging string

	done   map[string]bool
	active map[string]bool
	chain  []string

	// modules maps each bundled directory to the module name it was
	// included under, so a directory reached under another name is not
	// included twice.
	modules map[string]string

	// owners records which project contributed each target dependency.
	owners map[string]string
}

func (w *walker) visit(dir, name string) error {
	w.active[dir] = true
	w.chain = append(w.chain, name)
	defer func() {
		delete(w.active, dir)
		w.chain = w.chain[:len(w.chain)-1]
		w.done[dir] = true
	}()

	w.r.logger().Debug("resolving dependencies", "project", name, "dir", dir)
	m, err := w.r.Store.Load(manifest.PathIn(dir))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(errors.ErrCodeProjectNotFound, err, "local dependency %s has no %s", name, manifest.FileName)
		}
		return err
	}

	for _, dep := range m.Dependencies.Names() {
		spec, _ := m.Dependencies.Get(dep)
		if spec.IsLocal() {
			if err := w.bundle(dir, dep, spec); err != nil {
				return err
			}
			continue
		}
		if err := w.require(dep, spec, projectName(m, name)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) bundle(fromDir, name string, spec manifest.Spec) error {
	depDir := filepath.Clean(filepath.Join(fromDir, filepath.FromSlash(spec.Path)))

	if w.active[depDir] {
		chain := append(append([]string(nil), w.chain...), name)
		return &errors.CircularDependencyError{Chain: chain}
	}
	if !w.done[depDir] {
		if err := w.visit(depDir, name); err != nil {
			return err
		}
		w.r.logger().Debug("copying dependency", "dependency", name, "to", w.staging)
		err := CopyTree(depDir, w.staging, CopyOptions{
			Ignore:       w.r.Ignore,
			Skip:         []string{manifest.FileName},
			KeepExisting: true,
		})
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "copy dependency %s", name)
		}
		w.modules[depDir] = manifest.ModuleName(name)
	}

	w.target.Dependencies.Delete(name)
	w.target.AddPackage(w.modules[depDir])
	return nil
}

func (w *walker) require(name string, spec manifest.Spec, project string) error {
	existing, ok := w.target.Dependencies.Get(name)
	if ok && !existing.Equal(spec) {
		return &errors.ConflictError{
			Dependency: name,
			Versions:   [2]string{spec.String(), existing.String()},
			Projects:   [2]string{project, w.owners[name]},
		}
	}
	if !ok {
		w.target.Dependencies.Set(name, spec.Clone())
		w.owners[name] = project
	}
	return nil
}

func projectName(m *manifest.Manifest, fallback string) string {
	if m.Name != "" {
		return m.Name
	}
	return fallback
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
