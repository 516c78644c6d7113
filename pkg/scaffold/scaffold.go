// Package scaffold generates new workspace projects and the shared
// environment manifest.
package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/merge"
	"github.com/matzehuels/monopy/pkg/version"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// DefaultPython is the interpreter constraint of generated projects.
const DefaultPython = "^3.11"

// DevGroup is the dependency group tool dependencies are added to.
const DevGroup = "dev"

// Options describes a new project.
type Options struct {
	Name        string
	Kind        workspace.Kind
	Description string

	// Python overrides DefaultPython.
	Python string

	Pytest  bool
	Pylint  bool
	Black   bool
	Pyright bool
	Isort   bool

	Logger *log.Logger
}

// Result describes a generated project.
type Result struct {
	Project *workspace.Project
	Files   []string
}

// DefaultCacheInputs lists the orchestrator cache inputs of a project whose
// import package is module.
func DefaultCacheInputs(module string) []string {
	return []string{
		"{projectRoot}/" + module + "/**/*",
		"{projectRoot}/" + module + "/**/_*",
		"{projectRoot}/pyproject.toml",
		"{projectRoot}/poetry.lock",
		"{projectRoot}/poetry.toml",
		"{projectRoot}/project.json",
		"!{projectRoot}/*.md",
		"!{projectRoot}/Dockerfile",
		"!{projectRoot}/.venv",
	}
}

// Generate creates a project under the workspace's apps or libs directory
// and registers it. The target directory must not exist.
func Generate(ws *workspace.Workspace, opts Options) (*Result, error) {
	if err := errors.ValidatePythonPackageName(opts.Name); err != nil {
		return nil, err
	}
	switch opts.Kind {
	case workspace.KindApplication, workspace.KindLibrary:
	case "":
		opts.Kind = workspace.KindLibrary
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown project type %q", opts.Kind)
	}
	if _, ok := ws.Registry.Get(opts.Name); ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "project %s already exists", opts.Name)
	}
	if opts.Python == "" {
		opts.Python = DefaultPython
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	dir := filepath.Join(ws.ProjectsDir(opts.Kind), opts.Name)
	if _, err := os.Stat(dir); err == nil {
		return nil, errors.New(errors.ErrCodeInvalidPath, "%s already exists", dir)
	}
	rel, err := filepath.Rel(ws.Root, dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "project %s", dir)
	}
	module := manifest.ModuleName(opts.Name)
	p := &workspace.Project{
		Name: opts.Name,
		Root: filepath.ToSlash(rel),
		Dir:  dir,
		Kind: opts.Kind,
	}

	m, err := projectManifest(opts, module)
	if err != nil {
		return nil, err
	}
	pyproject, err := manifest.Encode(m)
	if err != nil {
		return nil, err
	}
	projectJSON, err := json.MarshalIndent(projectConfig(p, ws.Config, module, opts), "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", workspace.ProjectFile)
	}

	files := map[string][]byte{
		manifest.FileName:                    pyproject,
		workspace.ProjectFile:                append(projectJSON, '\n'),
		"poetry.toml":                        []byte(poetryConfig),
		"README.md":                          []byte(fmt.Sprintf("# %s\n\n%s\n", opts.Name, opts.Description)),
		filepath.Join(module, "__init__.py"): nil,
	}
	if opts.Kind == workspace.KindApplication {
		files[filepath.Join(module, "main.py")] = []byte("def main() -> None:\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n")
	}
	if opts.Pytest {
		files[filepath.Join("tests", "__init__.py")] = nil
		files[filepath.Join("tests", "test_"+module+".py")] = []byte("def test_import() -> None:\n    import " + module + "  # noqa: F401\n")
	}
	if opts.Pylint {
		files[".pylintrc"] = []byte("[MASTER]\nignore=.venv,tests\n\n[FORMAT]\nmax-line-length=120\n")
	}

	res := &Result{Project: p}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(path))
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
		}
		res.Files = append(res.Files, filepath.ToSlash(filepath.Join(p.Root, name)))
	}
	logger.Debug("generated project", "project", p.Name, "dir", dir, "files", len(files))

	if err := ws.Registry.Add(p); err != nil {
		return nil, err
	}
	return res, nil
}

// projectManifest renders the template manifest and folds the selected tool
// dependencies into its dev group.
func projectManifest(opts Options, module string) (*manifest.Manifest, error) {
	data, err := render(manifestTemplate, struct {
		Options
		Module string
	}{opts, module})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render manifest")
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}

	tools := manifest.New(opts.Name)
	dev := tools.Group(DevGroup)
	for _, t := range []struct {
		enabled bool
		deps    []string
	}{
		{opts.Black, []string{"black"}},
		{opts.Pylint, []string{"pylint"}},
		{opts.Pytest, []string{"pytest", "pytest-cov"}},
		{opts.Pyright, []string{"pyright"}},
		{opts.Isort, []string{"isort"}},
	} {
		if !t.enabled {
			continue
		}
		for _, d := range t.deps {
			dev.Dependencies.Set(d, manifest.Registry(version.Wildcard))
		}
	}
	if dev.Dependencies.Len() == 0 {
		return m, nil
	}
	if err := merge.Into(m, tools, merge.Options{Checker: version.Checker{Logger: opts.Logger}}); err != nil {
		return nil, err
	}
	return m, nil
}

type target struct {
	Executor string         `json:"executor"`
	Options  map[string]any `json:"options"`
	Inputs   []string       `json:"inputs,omitempty"`
	Outputs  []string       `json:"outputs,omitempty"`
	Cache    bool           `json:"cache,omitempty"`
}

type projectDoc struct {
	Name        string            `json:"name"`
	Root        string            `json:"root"`
	ProjectType workspace.Kind    `json:"projectType"`
	SourceRoot  string            `json:"sourceRoot"`
	Targets     map[string]target `json:"targets"`
}

func projectConfig(p *workspace.Project, cfg *workspace.Config, module string, opts Options) projectDoc {
	run := func(cmd string) target {
		return target{Executor: "monopy:" + cmd, Options: map[string]any{}}
	}
	withInputs := func(t target, extra ...string) target {
		t.Inputs = append(DefaultCacheInputs(module), extra...)
		t.Cache = true
		return t
	}

	targets := map[string]target{
		"install": run("install"),
		"add":     run("add"),
		"remove":  run("remove"),
		"update":  run("update"),
		"lock":    run("lock"),
	}
	if p.Kind == workspace.KindApplication {
		out := "{workspaceRoot}/" + cfg.Build.OutputDir + "/" + p.Name
		b := withInputs(run("build"), "!{projectRoot}/tests/**/*")
		b.Options = map[string]any{"outputPath": out, "ignorePaths": []string{}}
		b.Outputs = []string{out}
		targets["build"] = b
	}
	if opts.Black {
		targets["format"] = withInputs(run("black"), "{projectRoot}/tests/**/*")
	}
	if opts.Pylint {
		targets["lint"] = withInputs(run("pylint"), "!{projectRoot}/.pylintrc", "{projectRoot}/tests/**/*")
	}
	if opts.Pytest {
		targets["test"] = withInputs(run("pytest"), "{projectRoot}/tests/**/*", "{projectRoot}/pytest.ini")
	}
	if opts.Pyright {
		targets["type-check"] = withInputs(run("pyright"), "{projectRoot}/tests/**/*", "{projectRoot}/pyrightconfig.json")
	}
	return projectDoc{
		Name:        p.Name,
		Root:        p.Root,
		ProjectType: p.Kind,
		SourceRoot:  p.Root,
		Targets:     targets,
	}
}

// InitSharedEnvironment writes the shared environment manifest and Poetry
// configuration at the workspace root. An existing root manifest is left
// alone and reported as an error. A following sync fills in the
// dependencies of every project.
func InitSharedEnvironment(ws *workspace.Workspace, name, python string) error {
	path := manifest.PathIn(ws.Root)
	if manifest.Exists(path) {
		return errors.New(errors.ErrCodeInvalidPath, "%s already exists", path)
	}
	if name == "" {
		name = filepath.Base(ws.Root)
	}
	if python == "" {
		python = DefaultPython
	}
	data, err := render(sharedTemplate, struct{ Name, Python string }{name, python})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render manifest")
	}
	if _, err := manifest.Parse(data); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	poetryPath := filepath.Join(ws.Root, "poetry.toml")
	if _, err := os.Stat(poetryPath); err == nil {
		return nil
	}
	if err := os.WriteFile(poetryPath, []byte(poetryConfig), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", poetryPath)
	}
	return nil
}
