package manifest

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/monopy/pkg/errors"
)

const appManifest = `[tool.poetry]
name = "app"
version = "1.0.0"
description = "An application"
authors = ["Someone <someone@example.com>"]

[tool.poetry.dependencies]
python = "^3.11"
requests = "^2.31.0"
shared-lib = { path = "../../libs/shared-lib", develop = true }
fastapi = { version = "^0.110.0", extras = ["all"] }

[tool.poetry.group.dev]
optional = true

[tool.poetry.group.dev.dependencies]
pytest = "*"
testkit = { path = "../../libs/testkit", develop = true }

[[tool.poetry.source]]
name = "internal"
url = "https://pypi.example.com/simple"
priority = "supplemental"

[tool.black]
line-length = 120

[build-system]
requires = ["poetry-core"]
build-backend = "poetry.core.masonry.api"
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(appManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if m.Name != "app" || m.Version != "1.0.0" {
		t.Errorf("Name/Version = %q/%q, want app/1.0.0", m.Name, m.Version)
	}

	wantOrder := []string{"python", "requests", "shared-lib", "fastapi"}
	if got := m.Dependencies.Names(); !slices.Equal(got, wantOrder) {
		t.Errorf("Names() = %v, want %v", got, wantOrder)
	}

	local, _ := m.Dependencies.Get("shared-lib")
	if !local.IsLocal() || local.Path != "../../libs/shared-lib" || !local.Develop {
		t.Errorf("shared-lib = %+v, want local develop spec", local)
	}

	fastapi, _ := m.Dependencies.Get("fastapi")
	if fastapi.IsLocal() || fastapi.Constraint != "^0.110.0" {
		t.Errorf("fastapi = %+v, want registry ^0.110.0", fastapi)
	}
	if _, ok := fastapi.Attrs["extras"]; !ok {
		t.Error("fastapi extras should be kept in Attrs")
	}

	dev, ok := m.LookupGroup("dev")
	if !ok {
		t.Fatal("dev group missing")
	}
	if dev.Attrs["optional"] != true {
		t.Errorf("dev optional = %v, want true", dev.Attrs["optional"])
	}
	if got := dev.Dependencies.Names(); !slices.Equal(got, []string{"pytest", "testkit"}) {
		t.Errorf("dev deps = %v", got)
	}

	if len(m.Sources) != 1 || m.Sources[0].Name != "internal" || m.Sources[0].Priority != "supplemental" {
		t.Errorf("Sources = %+v", m.Sources)
	}

	if got := m.AllLocal(); !slices.Equal(got, []string{"shared-lib", "testkit"}) {
		t.Errorf("AllLocal() = %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed toml", "[tool.poetry\nname = 1"},
		{"poetry not a table", "tool = { poetry = 3 }"},
		{"dependency wrong type", "[tool.poetry.dependencies]\nrequests = 2"},
		{"path not a string", "[tool.poetry.dependencies]\nlib = { path = 1 }"},
		{"source not tables", "[tool.poetry]\nsource = [\"x\"]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidManifest)
			}
		})
	}
}

func TestParseWithoutPoetryTable(t *testing.T) {
	m, err := Parse([]byte("[project]\nname = \"plain\"\nversion = \"0.1.0\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Name != "plain" {
		t.Errorf("Name = %q, want plain", m.Name)
	}
	if m.Dependencies.Len() != 0 {
		t.Errorf("Dependencies.Len() = %d, want 0", m.Dependencies.Len())
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m, err := Parse([]byte(appManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, data)
	}

	for _, name := range m.Dependencies.Names() {
		want, _ := m.Dependencies.Get(name)
		got, ok := again.Dependencies.Get(name)
		if !ok || !got.Equal(want) {
			t.Errorf("dependency %s = %+v, want %+v", name, got, want)
		}
	}
	if again.Dependencies.Len() != m.Dependencies.Len() {
		t.Errorf("dependency count = %d, want %d", again.Dependencies.Len(), m.Dependencies.Len())
	}

	dev, ok := again.LookupGroup("dev")
	if !ok || dev.Dependencies.Len() != 2 || dev.Attrs["optional"] != true {
		t.Errorf("dev group not preserved: %+v", dev)
	}

	text := string(data)
	for _, want := range []string{"line-length = 120", "build-backend", "Someone <someone@example.com>", "supplemental"} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded manifest lost %q:\n%s", want, text)
		}
	}
}

func TestEncodeReflectsChanges(t *testing.T) {
	m, err := Parse([]byte(appManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	m.Dependencies.Delete("shared-lib")
	m.Dependencies.Set("pydantic", Registry("^2.6"))
	m.AddPackage("shared_lib")
	m.RemoveGroup("dev")

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}

	if again.Dependencies.Has("shared-lib") {
		t.Error("shared-lib should have been removed")
	}
	if s, _ := again.Dependencies.Get("pydantic"); s.Constraint != "^2.6" {
		t.Errorf("pydantic = %+v", s)
	}
	if len(again.Packages) != 1 || again.Packages[0].Include != "shared_lib" {
		t.Errorf("Packages = %+v", again.Packages)
	}
	if len(again.GroupNames()) != 0 {
		t.Errorf("groups = %v, want none", again.GroupNames())
	}
}

func TestEncodeKeepsDependencyOrder(t *testing.T) {
	m := New("app")
	m.Dependencies.Set("zope", Registry("^5.0"))
	m.Dependencies.Set("python", Registry("^3.11"))
	m.Dependencies.Set("shared-lib", Local("../../libs/shared-lib", true))
	m.Dependencies.Set("attrs", Spec{Constraint: "^23.1", Attrs: map[string]any{"extras": []any{"tests"}, "optional": true}})
	m.Group("dev").Dependencies.Set("pytest", Registry("*"))
	m.Group("dev").Dependencies.Set("black", Registry("^24.0"))

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"[tool.poetry.dependencies]\nzope = \"^5.0\"\npython = \"^3.11\"\n",
		`shared-lib = { path = "../../libs/shared-lib", develop = true }`,
		`attrs = { version = "^23.1", extras = ["tests"], optional = true }`,
		"[tool.poetry.group.dev.dependencies]\npytest = \"*\"\nblack = \"^24.0\"\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded manifest missing %q:\n%s", want, text)
		}
	}

	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, data)
	}
	if got, want := again.Dependencies.Names(), []string{"zope", "python", "shared-lib", "attrs"}; !slices.Equal(got, want) {
		t.Errorf("dependency order = %v, want %v", got, want)
	}
	dev, _ := again.LookupGroup("dev")
	if got, want := dev.Dependencies.Names(), []string{"pytest", "black"}; !slices.Equal(got, want) {
		t.Errorf("dev order = %v, want %v", got, want)
	}
}

func TestMultipleConstraintDependency(t *testing.T) {
	input := `[tool.poetry.dependencies]
foo = [
  { version = "<=1.9", python = ">=3.6,<3.8" },
  { version = "^2.0", python = ">=3.8" },
]
`
	m, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	foo, _ := m.Dependencies.Get("foo")
	if foo.Constraint != "<=1.9 || ^2.0" {
		t.Errorf("Constraint = %q, want union", foo.Constraint)
	}

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	got, _ := again.Dependencies.Get("foo")
	if !got.Equal(foo) {
		t.Errorf("round trip = %+v, want %+v", got, foo)
	}
}

func TestDependencies(t *testing.T) {
	var d Dependencies
	d.Set("b", Registry("1"))
	d.Set("a", Local("../a", true))
	d.Set("b", Registry("2"))

	if got := d.Names(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Names() = %v, want [b a]", got)
	}
	if s, _ := d.Get("b"); s.Constraint != "2" {
		t.Errorf("b = %q, want replaced constraint", s.Constraint)
	}
	if got := d.Local(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Local() = %v", got)
	}

	c := d.Clone()
	c.Delete("a")
	if !d.Has("a") {
		t.Error("Clone should not share state")
	}
	if d.Equal(&c) {
		t.Error("Equal should detect the removed entry")
	}

	d.Reset()
	if d.Len() != 0 {
		t.Errorf("Len() after Reset = %d", d.Len())
	}
}

func TestManifestBuilders(t *testing.T) {
	m := New("root")

	g := m.Group("dev")
	g.Dependencies.Set("pytest", Registry("*"))
	if m.Group("dev") != g {
		t.Error("Group should return the existing group")
	}

	if !m.AddSource(Source{Name: "internal", URL: "https://x"}) {
		t.Error("first AddSource should add")
	}
	if m.AddSource(Source{Name: "internal", URL: "https://y"}) {
		t.Error("AddSource should dedup by name")
	}
	if !m.AddPackage("lib") || m.AddPackage("lib") {
		t.Error("AddPackage should dedup by include")
	}

	c := m.Clone()
	c.Group("dev").Dependencies.Set("black", Registry("*"))
	if g.Dependencies.Has("black") {
		t.Error("Clone should deep copy groups")
	}
}

func TestModuleName(t *testing.T) {
	if got := ModuleName("my-shared-lib"); got != "my_shared_lib" {
		t.Errorf("ModuleName = %q, want my_shared_lib", got)
	}
}

func TestReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := PathIn(dir)

	if Exists(path) {
		t.Fatal("manifest should not exist yet")
	}
	_, err := Read(path)
	if !errors.Is(err, errors.ErrCodeFileNotFound) || !stderrors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read missing = %v, want FILE_NOT_FOUND wrapping fs.ErrNotExist", err)
	}

	m, err := Parse([]byte(appManifest))
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(path, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !Exists(path) {
		t.Fatal("manifest should exist after Write")
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Name != "app" || got.Dependencies.Len() != 4 {
		t.Errorf("Read = %s with %d deps", got.Name, got.Dependencies.Len())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Write left temporary files behind: %d entries", len(entries))
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("not = [valid"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(filepath.Join(dir, "bad.toml")); !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("Read malformed = %v, want INVALID_MANIFEST", err)
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := PathIn(dir)
	if err := os.WriteFile(path, []byte(appManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New("small")
	if err := Write(path, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Name != "small" || got.Dependencies.Len() != 0 {
		t.Errorf("Read = %s with %d deps, want small with 0", got.Name, got.Dependencies.Len())
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Errorf("directory has %d entries after Write, want 1", len(entries))
	}

	missing := PathIn(filepath.Join(dir, "missing"))
	if err := Write(missing, m); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Write into missing dir = %v, want INTERNAL_ERROR", err)
	}
}
