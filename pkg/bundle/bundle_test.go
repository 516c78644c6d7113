package bundle

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

// writeTree creates files under root. Keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func diamondWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"apps/a/pyproject.toml": `[tool.poetry]
name = "a"
version = "1.0.0"
packages = [{ include = "a" }]

[tool.poetry.dependencies]
python = "^3.11"
b = { path = "../../libs/b", develop = true }
c = { path = "../../libs/c", develop = true }
`,
		"apps/a/a/__init__.py":       "",
		"apps/a/README.md":           "app a",
		"libs/b/pyproject.toml":      "[tool.poetry]\nname = \"b\"\n\n[tool.poetry.dependencies]\npython = \"^3.11\"\nrequests = \"^2.31\"\nd = { path = \"../d\" }\n",
		"libs/b/b/__init__.py":       "",
		"libs/b/README.md":           "lib b",
		"libs/b/tests/test_b.py":     "",
		"libs/b/project.json":        "{}",
		"libs/c/pyproject.toml":      "[tool.poetry]\nname = \"c\"\n\n[tool.poetry.dependencies]\nd = { path = \"../d\" }\nclick = \"^8.1\"\n",
		"libs/c/c/__init__.py":       "",
		"libs/d/pyproject.toml":      "[tool.poetry]\nname = \"d\"\n\n[tool.poetry.dependencies]\npydantic = \"^2.6\"\n",
		"libs/d/d/__init__.py":       "",
		"libs/d/d/__pycache__/x.pyc": "",
	})
	return root
}

func stage(t *testing.T, projectDir string) (*manifest.Manifest, string) {
	t.Helper()
	staging := t.TempDir()
	if err := CopyTree(projectDir, staging, CopyOptions{Ignore: NewIgnore()}); err != nil {
		t.Fatalf("CopyTree: %v", err)
	}
	m, err := manifest.Read(manifest.PathIn(staging))
	if err != nil {
		t.Fatal(err)
	}
	return m, staging
}

func TestResolveAndBundleDiamond(t *testing.T) {
	root := diamondWorkspace(t)
	projectDir := filepath.Join(root, "apps", "a")
	target, staging := stage(t, projectDir)

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	r := &Resolver{Ignore: NewIgnore(), Logger: logger}
	if err := r.ResolveAndBundle(target, projectDir, staging); err != nil {
		t.Fatalf("ResolveAndBundle: %v", err)
	}

	wantDeps := []string{"python", "requests", "pydantic", "click"}
	if got := target.Dependencies.Names(); !slices.Equal(got, wantDeps) {
		t.Errorf("dependencies = %v, want %v", got, wantDeps)
	}
	if len(target.Dependencies.Local()) != 0 {
		t.Errorf("local dependencies left: %v", target.Dependencies.Local())
	}

	var includes []string
	for _, p := range target.Packages {
		includes = append(includes, p.Include)
	}
	if want := []string{"a", "d", "b", "c"}; !slices.Equal(includes, want) {
		t.Errorf("packages = %v, want %v", includes, want)
	}

	for _, want := range []string{"a/__init__.py", "b/__init__.py", "c/__init__.py", "d/__init__.py"} {
		if _, err := os.Stat(filepath.Join(staging, want)); err != nil {
			t.Errorf("missing staged file %s", want)
		}
	}
	for _, unwanted := range []string{"tests", "project.json", "d/__pycache__"} {
		if _, err := os.Stat(filepath.Join(staging, unwanted)); err == nil {
			t.Errorf("ignored path %s was copied", unwanted)
		}
	}

	readme, _ := os.ReadFile(filepath.Join(staging, "README.md"))
	if string(readme) != "app a" {
		t.Errorf("README.md = %q, dependency files must not replace the project's own", readme)
	}
	staged, err := manifest.Read(manifest.PathIn(staging))
	if err != nil || staged.Name != "a" {
		t.Errorf("staged manifest replaced by a dependency manifest: %v", err)
	}

	if n := strings.Count(buf.String(), "copying dependency dependency=d "); n != 1 {
		t.Errorf("d copied %d times, want 1\n%s", n, buf.String())
	}
}

func TestResolveAndBundleSameDirUnderTwoNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"apps/a/pyproject.toml":          "[tool.poetry]\nname = \"a\"\n\n[tool.poetry.dependencies]\ncore-lib = { path = \"../../libs/core\" }\nc = { path = \"../../libs/c\" }\n",
		"libs/core/pyproject.toml":       "[tool.poetry]\nname = \"core-lib\"\n\n[tool.poetry.dependencies]\nattrs = \"^23.1\"\n",
		"libs/core/core_lib/__init__.py": "",
		"libs/c/pyproject.toml":          "[tool.poetry]\nname = \"c\"\n\n[tool.poetry.dependencies]\ncore = { path = \"../core\" }\n",
		"libs/c/c/__init__.py":           "",
	})
	projectDir := filepath.Join(root, "apps", "a")
	target, staging := stage(t, projectDir)

	if err := (&Resolver{Ignore: NewIgnore()}).ResolveAndBundle(target, projectDir, staging); err != nil {
		t.Fatalf("ResolveAndBundle: %v", err)
	}

	var includes []string
	for _, p := range target.Packages {
		includes = append(includes, p.Include)
	}
	if want := []string{"core_lib", "c"}; !slices.Equal(includes, want) {
		t.Errorf("packages = %v, want %v", includes, want)
	}
	if got, want := target.Dependencies.Names(), []string{"attrs"}; !slices.Equal(got, want) {
		t.Errorf("dependencies = %v, want %v", got, want)
	}
}

func TestCopyTree(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeTree(t, src, map[string]string{
		"pkg/mod.py":            "new",
		"pkg/__pycache__/m.pyc": "",
		"README.md":             "dependency",
		"tests/test_x.py":       "",
		"pyproject.toml":        "",
	})
	writeTree(t, dst, map[string]string{"README.md": "project"})
	if err := os.Symlink(filepath.Join(src, "README.md"), filepath.Join(src, "link.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := CopyTree(src, dst, CopyOptions{Ignore: NewIgnore(), Skip: []string{"pyproject.toml"}, KeepExisting: true})
	if err != nil {
		t.Fatalf("CopyTree: %v", err)
	}

	tests := []struct {
		path   string
		exists bool
	}{
		{"pkg/mod.py", true},
		{"pkg/__pycache__", false},
		{"tests", false},
		{"pyproject.toml", false},
		{"link.md", false},
	}
	for _, tt := range tests {
		_, err := os.Lstat(filepath.Join(dst, filepath.FromSlash(tt.path)))
		if got := err == nil; got != tt.exists {
			t.Errorf("%s exists = %v, want %v", tt.path, got, tt.exists)
		}
	}
	if data, _ := os.ReadFile(filepath.Join(dst, "README.md")); string(data) != "project" {
		t.Errorf("README.md = %q, existing file must be kept", data)
	}
}

func TestResolveAndBundleNoLocalDependencies(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pyproject.toml": "[tool.poetry]\nname = \"solo\"\n\n[tool.poetry.dependencies]\nrequests = \"^2.0\"\n",
	})
	target, staging := stage(t, root)
	before := target.Clone()

	r := &Resolver{Ignore: NewIgnore()}
	if err := r.ResolveAndBundle(target, root, staging); err != nil {
		t.Fatalf("ResolveAndBundle: %v", err)
	}
	if !target.Dependencies.Equal(&before.Dependencies) {
		t.Errorf("dependencies changed: %v", target.Dependencies.Names())
	}
	if len(target.Packages) != 0 {
		t.Errorf("packages = %+v, want none", target.Packages)
	}
}

func TestResolveAndBundleConflict(t *testing.T) {
	root := diamondWorkspace(t)
	writeTree(t, root, map[string]string{
		"libs/c/pyproject.toml": "[tool.poetry]\nname = \"c\"\n\n[tool.poetry.dependencies]\nrequests = \"^2.32\"\n",
	})
	projectDir := filepath.Join(root, "apps", "a")
	target, staging := stage(t, projectDir)

	err := (&Resolver{Ignore: NewIgnore()}).ResolveAndBundle(target, projectDir, staging)
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) {
		t.Fatalf("ResolveAndBundle = %v, want ConflictError", err)
	}
	if conflict.Dependency != "requests" {
		t.Errorf("Dependency = %q", conflict.Dependency)
	}
	if conflict.Projects != [2]string{"c", "b"} {
		t.Errorf("Projects = %v, want [c b]", conflict.Projects)
	}
	if conflict.Versions != [2]string{"^2.32", "^2.31"} {
		t.Errorf("Versions = %v", conflict.Versions)
	}
}

func TestResolveAndBundleCycle(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"libs/x/pyproject.toml": "[tool.poetry]\nname = \"x\"\n\n[tool.poetry.dependencies]\ny = { path = \"../y\" }\n",
		"libs/y/pyproject.toml": "[tool.poetry]\nname = \"y\"\n\n[tool.poetry.dependencies]\nx = { path = \"../x\" }\n",
	})
	projectDir := filepath.Join(root, "libs", "x")
	target, staging := stage(t, projectDir)

	err := (&Resolver{}).ResolveAndBundle(target, projectDir, staging)
	var cycle *errors.CircularDependencyError
	if !stderrors.As(err, &cycle) {
		t.Fatalf("ResolveAndBundle = %v, want CircularDependencyError", err)
	}
	if want := []string{"x", "y", "x"}; !slices.Equal(cycle.Chain, want) {
		t.Errorf("Chain = %v, want %v", cycle.Chain, want)
	}
	if !errors.Is(err, errors.ErrCodeCircular) {
		t.Errorf("code = %v", errors.GetCode(err))
	}
}

func TestResolveAndBundleMissingDependency(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"apps/a/pyproject.toml": "[tool.poetry]\nname = \"a\"\n\n[tool.poetry.dependencies]\nghost = { path = \"../../libs/ghost\" }\n",
	})
	projectDir := filepath.Join(root, "apps", "a")
	target, staging := stage(t, projectDir)

	err := (&Resolver{}).ResolveAndBundle(target, projectDir, staging)
	if !errors.Is(err, errors.ErrCodeProjectNotFound) {
		t.Fatalf("ResolveAndBundle = %v, want PROJECT_NOT_FOUND", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the dependency: %v", err)
	}
}

func TestIgnore(t *testing.T) {
	ig := NewIgnore("docs", "src/generated/", "tests")

	tests := map[string]bool{
		".venv":                 true,
		"build":                 true,
		"tests":                 true,
		"docs":                  true,
		"src/generated":         true,
		"pkg/__pycache__":       true,
		"pkg/tests":             false,
		"src":                   false,
		"pkg/module.py":         false,
		filepath.Join("a", "b"): false,
	}
	for rel, want := range tests {
		if got := ig.Match(rel); got != want {
			t.Errorf("Match(%q) = %v, want %v", rel, got, want)
		}
	}
	if n := strings.Count(strings.Join(ig.Paths(), ","), "tests"); n != 1 {
		t.Errorf("duplicate ignore entry: %v", ig.Paths())
	}
}

func TestCopyDirMissing(t *testing.T) {
	err := CopyDir(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("CopyDir = %v, want FILE_NOT_FOUND", err)
	}
}
