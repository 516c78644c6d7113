// Package merge folds per-project manifests into a shared accumulator
// manifest, the way a monorepo builds one virtual environment for all of its
// projects.
//
// The fold is lenient: two registry constraints for the same dependency are
// accepted when some version satisfies both (see [version.Checker]), and the
// first declaration wins. Local path dependencies are re-rooted at the
// workspace root and never version checked. Incompatible constraints abort
// the fold with an [errors.ConflictError] and leave the accumulator as it was.
package merge

import (
	"regexp"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/version"
)

// SharedEnvironment names the accumulator in conflict messages when it has
// no project name of its own.
const SharedEnvironment = "shared virtual environment"

// Options configures a fold.
type Options struct {
	// Checker decides registry constraint compatibility.
	Checker version.Checker
}

// Folder folds manifests into one accumulator and remembers which project
// introduced each dependency, so conflicts can name both sides.
type Folder struct {
	acc    *manifest.Manifest
	opts   Options
	owners map[string]string
	folded int
}

// NewFolder returns a folder writing into acc. Entries already present in acc
// are attributed to acc itself.
func NewFolder(acc *manifest.Manifest, opts Options) *Folder {
	return &Folder{acc: acc, opts: opts, owners: make(map[string]string)}
}

// Into folds incoming into acc. It is shorthand for a single-use [Folder].
func Into(acc, incoming *manifest.Manifest, opts Options) error {
	return NewFolder(acc, opts).Add(incoming)
}

// Reset empties the main dependency map and every group's dependency map of
// acc. The groups themselves are kept.
func Reset(acc *manifest.Manifest) {
	acc.Dependencies.Reset()
	for _, name := range acc.GroupNames() {
		g, _ := acc.LookupGroup(name)
		g.Dependencies.Reset()
	}
}

// Manifest returns the accumulator.
func (f *Folder) Manifest() *manifest.Manifest { return f.acc }

// Folded returns the number of manifests added successfully.
func (f *Folder) Folded() int { return f.folded }

// Add folds incoming into the accumulator. The fold is applied to a copy and
// committed only if no conflict is found.
func (f *Folder) Add(incoming *manifest.Manifest) error {
	next := f.acc.Clone()
	claimed := make(map[string]string)

	if err := f.fold(&next.Dependencies, &incoming.Dependencies, "", incoming.Name, claimed); err != nil {
		return err
	}
	for _, name := range incoming.GroupNames() {
		src, _ := incoming.LookupGroup(name)
		dst := next.Group(name)
		if err := f.fold(&dst.Dependencies, &src.Dependencies, name, incoming.Name, claimed); err != nil {
			return err
		}
	}
	for _, s := range incoming.Sources {
		next.AddSource(s)
	}

	*f.acc = *next
	for k, v := range claimed {
		f.owners[k] = v
	}
	f.folded++
	return nil
}

var leadingParents = regexp.MustCompile(`^(\.\./)*`)

// RootRelative strips leading "../" segments from a project-relative path,
// turning "../../libs/shared" into "libs/shared".
func RootRelative(path string) string {
	return leadingParents.ReplaceAllString(path, "")
}

func (f *Folder) fold(dst, src *manifest.Dependencies, group, project string, claimed map[string]string) error {
	for _, name := range src.Names() {
		spec, _ := src.Get(name)
		existing, present := dst.Get(name)

		if spec.IsLocal() {
			if !present {
				local := manifest.Local(RootRelative(spec.Path), true)
				local.Attrs = spec.Clone().Attrs
				dst.Set(name, local)
				claimed[ownerKey(group, name)] = project
			}
			continue
		}

		if !present {
			dst.Set(name, spec.Clone())
			claimed[ownerKey(group, name)] = project
			continue
		}
		if existing.IsLocal() || f.compatible(name, existing, spec) {
			continue
		}
		return &errors.ConflictError{
			Dependency: name,
			Versions:   [2]string{spec.String(), existing.String()},
			Projects:   [2]string{project, f.owner(group, name, claimed)},
		}
	}
	return nil
}

func (f *Folder) compatible(name string, existing, incoming manifest.Spec) bool {
	if pinned(existing) || pinned(incoming) {
		return existing.Equal(incoming)
	}
	return f.opts.Checker.Compatible(name, existing.Constraint, incoming.Constraint)
}

// pinned reports whether s names a source (git, url or file) rather than a
// version range. Such specs are only compatible with an identical spec.
func pinned(s manifest.Spec) bool {
	if s.Constraint != "" {
		return false
	}
	for _, k := range []string{"git", "url", "file"} {
		if _, ok := s.Attrs[k]; ok {
			return true
		}
	}
	return false
}

func (f *Folder) owner(group, name string, claimed map[string]string) string {
	key := ownerKey(group, name)
	if p, ok := claimed[key]; ok {
		return p
	}
	if p, ok := f.owners[key]; ok {
		return p
	}
	if f.acc.Name != "" {
		return f.acc.Name
	}
	return SharedEnvironment
}

func ownerKey(group, name string) string {
	return group + "\x00" + name
}
