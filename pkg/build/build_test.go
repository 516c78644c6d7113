package build

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/bundle"
	"github.com/matzehuels/monopy/pkg/cache"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/poetry"
	"github.com/matzehuels/monopy/pkg/poetry/poetrytest"
	"github.com/matzehuels/monopy/pkg/workspace"
)

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

func fixture(t *testing.T) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"apps/api/project.json":                  `{"name": "api", "projectType": "application"}`,
		"apps/api/pyproject.toml":                "[tool.poetry]\nname = \"api\"\nversion = \"1.0.0\"\npackages = [{ include = \"api\" }]\n\n[tool.poetry.dependencies]\npython = \"^3.11\"\nshared-lib = { path = \"../../libs/shared-lib\", develop = true }\n",
		"apps/api/api/__init__.py":               "",
		"apps/api/tests/test_x.py":               "",
		"libs/shared-lib/project.json":           `{"name": "shared-lib", "projectType": "library"}`,
		"libs/shared-lib/pyproject.toml":         "[tool.poetry]\nname = \"shared-lib\"\n\n[tool.poetry.dependencies]\npython = \"^3.11\"\nrequests = \"^2.31\"\n",
		"libs/shared-lib/shared_lib/__init__.py": "VERSION = 1\n",
	})
	ws, err := workspace.Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ws
}

// fakeBuild writes a dist directory into the staging tree, the way
// "poetry build" does, and captures the staged manifest.
func fakeBuild(t *testing.T, staged **manifest.Manifest) *poetrytest.Recorder {
	return &poetrytest.Recorder{OnRun: func(c poetry.Command) error {
		m, err := manifest.Read(manifest.PathIn(c.Dir))
		if err != nil {
			t.Errorf("staged manifest: %v", err)
		}
		if staged != nil {
			*staged = m
		}
		writeTree(t, c.Dir, map[string]string{
			"dist/api-1.0.0.tar.gz":           "sdist",
			"dist/api-1.0.0-py3-none-any.whl": "wheel",
		})
		return nil
	}}
}

func builder(t *testing.T, ws *workspace.Workspace, r poetry.Runner) *Builder {
	t.Helper()
	return &Builder{
		Workspace: ws,
		Runner:    r,
		Ignore:    bundle.NewIgnore(),
		TempDir:   t.TempDir(),
		Logger:    log.New(io.Discard),
	}
}

func stagingEntries(t *testing.T, b *Builder) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(b.TempDir, "monopy", "build"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return entries
}

func TestBuild(t *testing.T) {
	ws := fixture(t)
	var staged *manifest.Manifest
	rec := fakeBuild(t, &staged)
	b := builder(t, ws, rec)

	res, err := b.Build(context.Background(), "api")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := rec.Lines(); !slices.Equal(got, []string{"build"}) {
		t.Errorf("commands = %v", got)
	}
	if staged == nil {
		t.Fatal("poetry build did not run in the staging tree")
	}
	if staged.Dependencies.Has("shared-lib") {
		t.Error("local dependency should be bundled, not declared")
	}
	if !staged.Dependencies.Has("requests") {
		t.Error("bundled dependency's requirements should be declared")
	}
	var includes []string
	for _, p := range staged.Packages {
		includes = append(includes, p.Include)
	}
	if !slices.Equal(includes, []string{"api", "shared_lib"}) {
		t.Errorf("packages = %v", includes)
	}

	want := filepath.Join(ws.Root, "dist", "api")
	if res.OutputDir != want {
		t.Errorf("OutputDir = %s, want %s", res.OutputDir, want)
	}
	if !slices.Equal(res.Artifacts, []string{"api-1.0.0-py3-none-any.whl", "api-1.0.0.tar.gz"}) {
		t.Errorf("Artifacts = %v", res.Artifacts)
	}
	for _, a := range res.Artifacts {
		if _, err := os.Stat(filepath.Join(want, a)); err != nil {
			t.Errorf("artifact %s not copied: %v", a, err)
		}
	}
	if res.Cached || res.Fingerprint == "" {
		t.Errorf("Result = %+v", res)
	}
	if n := len(stagingEntries(t, b)); n != 0 {
		t.Errorf("%d staging directories left behind", n)
	}
}

func TestBuildOutputOverride(t *testing.T) {
	ws := fixture(t)
	b := builder(t, ws, fakeBuild(t, nil))
	b.OutputDir = "out"

	res, err := b.Build(context.Background(), "api")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := filepath.Join(ws.Root, "out", "api"); res.OutputDir != want {
		t.Errorf("OutputDir = %s, want %s", res.OutputDir, want)
	}
}

func TestBuildCache(t *testing.T) {
	ws := fixture(t)
	rec := fakeBuild(t, nil)
	b := builder(t, ws, rec)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b.Cache = c
	ctx := context.Background()

	first, err := b.Build(ctx, "api")
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := b.Build(ctx, "api")
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if !second.Cached || len(rec.Commands()) != 1 {
		t.Errorf("second build should be cached, ran %v", rec.Lines())
	}
	if !slices.Equal(second.Artifacts, first.Artifacts) || second.Fingerprint != first.Fingerprint {
		t.Errorf("cached result = %+v, want %+v", second, first)
	}

	// Changing a dependency's source invalidates the build.
	writeTree(t, ws.Root, map[string]string{"libs/shared-lib/shared_lib/__init__.py": "VERSION = 2\n"})
	third, err := b.Build(ctx, "api")
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached || third.Fingerprint == first.Fingerprint || len(rec.Commands()) != 2 {
		t.Errorf("build after dependency change should run: %+v", third)
	}

	// Missing outputs invalidate the build.
	if err := os.RemoveAll(third.OutputDir); err != nil {
		t.Fatal(err)
	}
	fourth, err := b.Build(ctx, "api")
	if err != nil {
		t.Fatal(err)
	}
	if fourth.Cached || len(rec.Commands()) != 3 {
		t.Errorf("build with missing outputs should run: %+v", fourth)
	}
}

func TestBuildFailureCleansUp(t *testing.T) {
	ws := fixture(t)
	rec := &poetrytest.Recorder{Fail: map[string]error{
		"build": &errors.SubprocessError{Command: "poetry build", ExitCode: 1},
	}}
	b := builder(t, ws, rec)

	_, err := b.Build(context.Background(), "api")
	if !errors.Is(err, errors.ErrCodeSubprocess) {
		t.Fatalf("err = %v, want SUBPROCESS_FAILED", err)
	}
	if n := len(stagingEntries(t, b)); n != 0 {
		t.Errorf("%d staging directories left behind after failure", n)
	}
	if _, err := os.Stat(filepath.Join(ws.Root, "dist", "api")); !os.IsNotExist(err) {
		t.Error("failed build should not create outputs")
	}
}

func TestBuildWithoutDist(t *testing.T) {
	ws := fixture(t)
	b := builder(t, ws, &poetrytest.Recorder{})

	if _, err := b.Build(context.Background(), "api"); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestBuildConflict(t *testing.T) {
	ws := fixture(t)
	writeTree(t, ws.Root, map[string]string{
		"apps/api/pyproject.toml": "[tool.poetry]\nname = \"api\"\n\n[tool.poetry.dependencies]\nrequests = \"^2.28\"\nshared-lib = { path = \"../../libs/shared-lib\" }\n",
	})
	rec := &poetrytest.Recorder{}
	b := builder(t, ws, rec)

	_, err := b.Build(context.Background(), "api")
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Dependency != "requests" {
		t.Errorf("conflict = %+v", conflict)
	}
	if len(rec.Commands()) != 0 {
		t.Error("poetry should not run after a conflict")
	}
}

func TestBuildUnknownProject(t *testing.T) {
	b := builder(t, fixture(t), &poetrytest.Recorder{})
	if _, err := b.Build(context.Background(), "ghost"); !errors.Is(err, errors.ErrCodeProjectNotFound) {
		t.Errorf("err = %v, want PROJECT_NOT_FOUND", err)
	}
}

func TestFingerprint(t *testing.T) {
	ws := fixture(t)
	dir := filepath.Join(ws.Root, "apps", "api")
	ignore := bundle.NewIgnore()

	fp, err := Fingerprint(dir, ignore, nil)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	writeTree(t, ws.Root, map[string]string{"apps/api/tests/test_y.py": "new"})
	if again, _ := Fingerprint(dir, ignore, nil); again != fp {
		t.Error("ignored files should not change the fingerprint")
	}

	writeTree(t, ws.Root, map[string]string{"apps/api/api/views.py": "x"})
	if again, _ := Fingerprint(dir, ignore, nil); again == fp {
		t.Error("new source file should change the fingerprint")
	}

	if _, err := Fingerprint(t.TempDir(), ignore, nil); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("project without manifest err = %v, want FILE_NOT_FOUND", err)
	}
}
