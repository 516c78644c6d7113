package workspace

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/renameio/v2"

	"github.com/matzehuels/monopy/pkg/errors"
)

// ProjectFile is the orchestrator's per-project configuration file.
const ProjectFile = "project.json"

// Kind is the project type declared in project.json.
type Kind string

const (
	KindApplication Kind = "application"
	KindLibrary     Kind = "library"
)

// Project is a registered workspace project.
type Project struct {
	Name string `json:"name"`

	// Root is the project directory relative to the workspace root, with
	// forward slashes.
	Root string `json:"root"`

	// Dir is the absolute project directory.
	Dir string `json:"-"`

	Kind                 Kind     `json:"projectType"`
	ImplicitDependencies []string `json:"implicitDependencies,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
}

// IsLibrary reports whether other projects may depend on p.
func (p *Project) IsLibrary() bool { return p.Kind == KindLibrary }

// projectDoc is the subset of project.json monopy reads. Unknown fields are
// kept by ReadProjectConfig/WriteProjectConfig.
type projectDoc struct {
	Name                 string   `json:"name"`
	Root                 string   `json:"root"`
	ProjectType          Kind     `json:"projectType"`
	ImplicitDependencies []string `json:"implicitDependencies"`
	Tags                 []string `json:"tags"`
}

// readProject loads the project.json in dir. root is the workspace root.
func readProject(root, dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFile))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", filepath.Join(dir, ProjectFile))
	}
	var doc projectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", filepath.Join(dir, ProjectFile))
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "project %s", dir)
	}
	p := &Project{
		Name:                 doc.Name,
		Root:                 filepath.ToSlash(rel),
		Dir:                  dir,
		Kind:                 doc.ProjectType,
		ImplicitDependencies: doc.ImplicitDependencies,
		Tags:                 doc.Tags,
	}
	if p.Name == "" {
		p.Name = filepath.Base(dir)
	}
	if p.Kind == "" {
		p.Kind = KindLibrary
	}
	if p.Kind != KindApplication && p.Kind != KindLibrary {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown projectType %q", p.Name, p.Kind)
	}
	return p, nil
}

// ReadProjectConfig returns the raw project.json document in dir.
func ReadProjectConfig(dir string) (map[string]any, error) {
	path := filepath.Join(dir, ProjectFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	return doc, nil
}

// WriteProjectConfig atomically replaces dir/project.json with doc, indented
// with two spaces.
func WriteProjectConfig(dir string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s", ProjectFile)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(filepath.Join(dir, ProjectFile), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", ProjectFile)
	}
	return nil
}

// UpdateImplicitDependencies adds and removes names from the
// implicitDependencies list of dir/project.json. Existing order is kept and
// new names are appended. The file is rewritten only if the list changes.
func UpdateImplicitDependencies(dir string, add, remove []string) error {
	doc, err := ReadProjectConfig(dir)
	if err != nil {
		return err
	}

	var current []string
	if raw, ok := doc["implicitDependencies"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				current = append(current, s)
			}
		}
	}

	next := slices.Clone(current)
	for _, name := range add {
		if !slices.Contains(next, name) {
			next = append(next, name)
		}
	}
	next = slices.DeleteFunc(next, func(n string) bool { return slices.Contains(remove, n) })

	if slices.Equal(current, next) {
		return nil
	}
	if next == nil {
		next = []string{}
	}
	doc["implicitDependencies"] = next
	return WriteProjectConfig(dir, doc)
}
