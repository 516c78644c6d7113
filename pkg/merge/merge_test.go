package merge

import (
	stderrors "errors"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

func parse(t *testing.T, s string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

const rootManifest = `[tool.poetry]
name = "workspace"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.11"
`

func TestIntoRegistryDependencies(t *testing.T) {
	acc := parse(t, rootManifest)
	app := parse(t, `[tool.poetry]
name = "app"

[tool.poetry.dependencies]
python = "^3.11"
requests = "^2.31"
fastapi = { version = "^0.110", extras = ["all"] }
`)

	if err := Into(acc, app, Options{}); err != nil {
		t.Fatalf("Into: %v", err)
	}

	want := []string{"python", "requests", "fastapi"}
	if got := acc.Dependencies.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	fastapi, _ := acc.Dependencies.Get("fastapi")
	if fastapi.Constraint != "^0.110" || fastapi.Attrs["extras"] == nil {
		t.Errorf("fastapi = %+v, want copied with extras", fastapi)
	}
}

func TestIntoFirstWriterWins(t *testing.T) {
	acc := parse(t, rootManifest)
	a := parse(t, "[tool.poetry]\nname = \"a\"\n[tool.poetry.dependencies]\nrequests = \"^2.0\"\n")
	b := parse(t, "[tool.poetry]\nname = \"b\"\n[tool.poetry.dependencies]\nrequests = \">=2.31,<3\"\n")

	f := NewFolder(acc, Options{})
	if err := f.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := f.Add(b); err != nil {
		t.Fatalf("compatible constraints should merge: %v", err)
	}
	if got, _ := acc.Dependencies.Get("requests"); got.Constraint != "^2.0" {
		t.Errorf("requests = %q, want first writer ^2.0", got.Constraint)
	}
	if f.Folded() != 2 {
		t.Errorf("Folded() = %d, want 2", f.Folded())
	}
}

func TestIntoConflict(t *testing.T) {
	acc := parse(t, rootManifest)
	a := parse(t, "[tool.poetry]\nname = \"a\"\n[tool.poetry.dependencies]\nrequests = \"^2.0.0\"\n")
	b := parse(t, "[tool.poetry]\nname = \"b\"\n[tool.poetry.dependencies]\nflask = \"^3.0\"\nrequests = \"^3.0.0\"\n")

	f := NewFolder(acc, Options{})
	if err := f.Add(a); err != nil {
		t.Fatal(err)
	}
	before := acc.Clone()

	err := f.Add(b)
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) {
		t.Fatalf("Add = %v, want ConflictError", err)
	}
	if conflict.Dependency != "requests" {
		t.Errorf("Dependency = %q", conflict.Dependency)
	}
	if conflict.Versions != [2]string{"^3.0.0", "^2.0.0"} {
		t.Errorf("Versions = %v", conflict.Versions)
	}
	if conflict.Projects != [2]string{"b", "a"} {
		t.Errorf("Projects = %v, want [b a]", conflict.Projects)
	}
	if !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeConflict)
	}
	for _, want := range []string{"requests", "^2.0.0", "^3.0.0", " a", " b"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q should mention %q", err.Error(), want)
		}
	}

	if !acc.Dependencies.Equal(&before.Dependencies) {
		t.Errorf("failed fold modified the accumulator: %v", acc.Dependencies.Names())
	}
	if acc.Dependencies.Has("flask") {
		t.Error("flask was committed despite the conflict")
	}
	if f.Folded() != 1 {
		t.Errorf("Folded() = %d, want 1", f.Folded())
	}
}

func TestIntoConflictWithAccumulator(t *testing.T) {
	acc := parse(t, rootManifest)
	app := parse(t, "[tool.poetry]\nname = \"app\"\n[tool.poetry.dependencies]\npython = \"^3.8,<3.10\"\n")

	err := Into(acc, app, Options{})
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) {
		t.Fatalf("Into = %v, want ConflictError", err)
	}
	if conflict.Projects[1] != "workspace" {
		t.Errorf("existing owner = %q, want workspace", conflict.Projects[1])
	}

	acc.Name = ""
	err = Into(acc, app, Options{})
	if !stderrors.As(err, &conflict) || conflict.Projects[1] != SharedEnvironment {
		t.Errorf("unnamed accumulator owner = %v, want %q", err, SharedEnvironment)
	}
}

func TestIntoLocalDependencies(t *testing.T) {
	acc := parse(t, rootManifest)
	app := parse(t, `[tool.poetry]
name = "app"

[tool.poetry.dependencies]
shared = { path = "../../libs/shared" }
python = "^3.11"
`)
	other := parse(t, `[tool.poetry]
name = "other"

[tool.poetry.dependencies]
shared = { path = "../libs/elsewhere", develop = false }
`)

	if err := Into(acc, app, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := Into(acc, other, Options{}); err != nil {
		t.Fatalf("local dependencies must never conflict: %v", err)
	}

	shared, ok := acc.Dependencies.Get("shared")
	if !ok || !shared.IsLocal() {
		t.Fatalf("shared = %+v, want local", shared)
	}
	if shared.Path != "libs/shared" || !shared.Develop {
		t.Errorf("shared = path %q develop %v, want libs/shared develop true", shared.Path, shared.Develop)
	}
}

func TestIntoLocalOverRegistryIsUntouched(t *testing.T) {
	acc := parse(t, "[tool.poetry.dependencies]\nshared = \"^1.0\"\n")
	app := parse(t, "[tool.poetry]\nname = \"app\"\n[tool.poetry.dependencies]\nshared = { path = \"../shared\" }\n")

	if err := Into(acc, app, Options{}); err != nil {
		t.Fatal(err)
	}
	if got, _ := acc.Dependencies.Get("shared"); got.IsLocal() || got.Constraint != "^1.0" {
		t.Errorf("shared = %+v, want untouched registry spec", got)
	}
}

func TestIntoIdempotent(t *testing.T) {
	acc := parse(t, rootManifest)
	app := parse(t, `[tool.poetry]
name = "app"

[tool.poetry.dependencies]
requests = "^2.31"
shared = { path = "../../libs/shared", develop = true }

[tool.poetry.group.dev.dependencies]
pytest = "^8.0"

[[tool.poetry.source]]
name = "internal"
url = "https://pypi.example.com/simple"
`)

	if err := Into(acc, app, Options{}); err != nil {
		t.Fatal(err)
	}
	once := acc.Clone()
	if err := Into(acc, app, Options{}); err != nil {
		t.Fatalf("second fold: %v", err)
	}

	if !acc.Dependencies.Equal(&once.Dependencies) {
		t.Errorf("main dependencies changed: %v vs %v", acc.Dependencies.Names(), once.Dependencies.Names())
	}
	g1, _ := acc.LookupGroup("dev")
	g0, _ := once.LookupGroup("dev")
	if !g1.Dependencies.Equal(&g0.Dependencies) {
		t.Error("dev group changed on second fold")
	}
	if len(acc.Sources) != 1 {
		t.Errorf("Sources = %d, want 1", len(acc.Sources))
	}
}

func TestIntoGroups(t *testing.T) {
	acc := parse(t, rootManifest)
	a := parse(t, `[tool.poetry]
name = "a"

[tool.poetry.group.dev.dependencies]
pytest = "^8.0"
testkit = { path = "../testkit" }

[tool.poetry.group.docs.dependencies]
mkdocs = "*"
`)
	b := parse(t, `[tool.poetry]
name = "b"

[tool.poetry.group.dev.dependencies]
pytest = "^7.0"
`)

	if err := Into(acc, a, Options{}); err != nil {
		t.Fatal(err)
	}
	if got := acc.GroupNames(); !slices.Equal(got, []string{"dev", "docs"}) {
		t.Errorf("GroupNames() = %v", got)
	}
	dev, _ := acc.LookupGroup("dev")
	if tk, _ := dev.Dependencies.Get("testkit"); tk.Path != "testkit" || !tk.Develop {
		t.Errorf("testkit = %+v, want re-rooted local in dev group", tk)
	}
	if acc.Dependencies.Has("testkit") {
		t.Error("group local dependency leaked into the main map")
	}

	err := Into(acc, b, Options{})
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) || conflict.Dependency != "pytest" {
		t.Fatalf("Into = %v, want pytest conflict", err)
	}
	if conflict.Projects != [2]string{"b", "a"} {
		t.Errorf("Projects = %v", conflict.Projects)
	}
}

func TestIntoSources(t *testing.T) {
	acc := parse(t, rootManifest)
	a := parse(t, `[[tool.poetry.source]]
name = "internal"
url = "https://first.example.com"

[[tool.poetry.source]]
name = "mirror"
url = "https://mirror.example.com"
`)
	b := parse(t, `[[tool.poetry.source]]
name = "internal"
url = "https://second.example.com"
`)

	for _, m := range []*manifest.Manifest{a, b} {
		if err := Into(acc, m, Options{}); err != nil {
			t.Fatal(err)
		}
	}
	if len(acc.Sources) != 2 {
		t.Fatalf("Sources = %+v, want 2 entries", acc.Sources)
	}
	if s, _ := acc.Source("internal"); s.URL != "https://first.example.com" {
		t.Errorf("internal = %q, want first appearance", s.URL)
	}
}

func TestIntoPinnedSources(t *testing.T) {
	acc := parse(t, "[tool.poetry.dependencies]\nlib = { git = \"https://github.com/org/lib.git\", tag = \"v1\" }\n")
	same := parse(t, "[tool.poetry]\nname = \"same\"\n[tool.poetry.dependencies]\nlib = { git = \"https://github.com/org/lib.git\", tag = \"v1\" }\n")
	other := parse(t, "[tool.poetry]\nname = \"other\"\n[tool.poetry.dependencies]\nlib = \"^1.0\"\n")

	if err := Into(acc, same, Options{}); err != nil {
		t.Errorf("identical git dependency should merge: %v", err)
	}
	if err := Into(acc, other, Options{}); !errors.Is(err, errors.ErrCodeConflict) {
		t.Errorf("Into = %v, want conflict between git and registry spec", err)
	}
}

func TestIntoMalformedConstraintIsCompatible(t *testing.T) {
	acc := parse(t, "[tool.poetry.dependencies]\nweird = \"latest\"\n")
	app := parse(t, "[tool.poetry]\nname = \"app\"\n[tool.poetry.dependencies]\nweird = \"^1.0\"\n")

	if err := Into(acc, app, Options{}); err != nil {
		t.Errorf("unparseable constraints must not conflict: %v", err)
	}
}

func TestReset(t *testing.T) {
	acc := parse(t, `[tool.poetry.dependencies]
python = "^3.11"

[tool.poetry.group.dev.dependencies]
pytest = "*"
`)
	Reset(acc)

	if acc.Dependencies.Len() != 0 {
		t.Errorf("main dependencies = %v", acc.Dependencies.Names())
	}
	dev, ok := acc.LookupGroup("dev")
	if !ok {
		t.Fatal("Reset should keep groups")
	}
	if dev.Dependencies.Len() != 0 {
		t.Errorf("dev dependencies = %v", dev.Dependencies.Names())
	}
}

func TestRootRelative(t *testing.T) {
	tests := map[string]string{
		"../../libs/shared": "libs/shared",
		"../shared":         "shared",
		"libs/shared":       "libs/shared",
		"./libs/shared":     "./libs/shared",
		"../a/../b":         "a/../b",
	}
	for in, want := range tests {
		if got := RootRelative(in); got != want {
			t.Errorf("RootRelative(%q) = %q, want %q", in, got, want)
		}
	}
}
