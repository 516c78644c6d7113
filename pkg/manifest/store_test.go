package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	path := PathIn(dir)
	writeFile(t, path, "[tool.poetry]\nname = \"lib\"\n\n[tool.poetry.dependencies]\nrequests = \"^2.0\"\n")

	s, err := NewStore(0)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	m1, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	m1.Dependencies.Set("mutated", Registry("*"))
	m2, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m2.Dependencies.Has("mutated") {
		t.Error("Load should return a private copy")
	}

	writeFile(t, path, "[tool.poetry]\nname = \"lib\"\n\n[tool.poetry.dependencies]\nrequests = \"^3.0\"\nhttpx = \"*\"\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	m3, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, _ := m3.Dependencies.Get("requests"); got.Constraint != "^3.0" {
		t.Errorf("stale entry returned: requests = %q", got.Constraint)
	}

	s.Invalidate(path)
	if s.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d, want 0", s.Len())
	}
}

func TestStoreMissingFile(t *testing.T) {
	s, err := NewStore(4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(filepath.Join(t.TempDir(), FileName)); err == nil {
		t.Fatal("expected error for missing manifest")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	path := PathIn(t.TempDir())
	writeFile(t, path, "[tool.poetry]\nname = \"x\"\n")

	m, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "x" {
		t.Errorf("Name = %q", m.Name)
	}
	s.Invalidate(path)
	if s.Len() != 0 {
		t.Error("nil store should report zero entries")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
