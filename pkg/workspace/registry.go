package workspace

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/monopy/pkg/errors"
)

// skipDirs are never searched for project.json files.
var skipDirs = []string{".git", ".venv", "node_modules", "dist", "build", "__pycache__"}

// Registry is the ordered set of workspace projects, sorted by name.
type Registry struct {
	projects []*Project
	byName   map[string]*Project
}

// NewRegistry builds a registry from projects. Duplicate names are an error.
func NewRegistry(projects ...*Project) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Project, len(projects))}
	for _, p := range projects {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadRegistry discovers projects under the configured apps and libs
// directories of root. Missing directories are skipped.
func LoadRegistry(root string, cfg *Config) (*Registry, error) {
	r, _ := NewRegistry()
	for _, base := range []string{cfg.AppsDir, cfg.LibsDir} {
		dir := filepath.Join(root, base)
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() {
				if path != dir && slices.Contains(skipDirs, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ProjectFile {
				return nil
			}
			p, err := readProject(root, filepath.Dir(path))
			if err != nil {
				return err
			}
			return r.Add(p)
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers p, keeping the registry sorted by name.
func (r *Registry) Add(p *Project) error {
	if p.Name == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "project at %s has no name", p.Root)
	}
	if prev, ok := r.byName[p.Name]; ok {
		return errors.New(errors.ErrCodeInvalidConfig, "duplicate project name %q (%s and %s)", p.Name, prev.Root, p.Root)
	}
	i, _ := slices.BinarySearchFunc(r.projects, p.Name, func(q *Project, name string) int {
		return strings.Compare(q.Name, name)
	})
	r.projects = slices.Insert(r.projects, i, p)
	r.byName[p.Name] = p
	return nil
}

// Get returns the named project.
func (r *Registry) Get(name string) (*Project, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// MustGet returns the named project or an [errors.ErrCodeProjectNotFound] error.
func (r *Registry) MustGet(name string) (*Project, error) {
	if p, ok := r.byName[name]; ok {
		return p, nil
	}
	return nil, errors.New(errors.ErrCodeProjectNotFound, "project %s not found in workspace", name)
}

// Projects returns all projects sorted by name.
func (r *Registry) Projects() []*Project { return slices.Clone(r.projects) }

// Names returns all project names sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.projects))
	for i, p := range r.projects {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of projects.
func (r *Registry) Len() int { return len(r.projects) }
