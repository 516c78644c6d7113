package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/monopy/pkg/workspace"
)

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"default", "", filepath.Join(home, ".cache", appName)},
		{"xdg", "/tmp/custom-cache", filepath.Join("/tmp/custom-cache", appName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			got, err := cacheDir()
			if err != nil {
				t.Fatalf("cacheDir() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	root := filepath.FromSlash("/work/mono")

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"unset", "", filepath.Join("/tmp/xdg", appName, "builds")},
		{"relative", ".cache/builds", filepath.Join(root, ".cache", "builds")},
		{"absolute", "/var/cache/monopy", "/var/cache/monopy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := workspace.DefaultConfig()
			cfg.Cache.Dir = tt.dir
			got, err := buildCacheDir(&workspace.Workspace{Root: root, Config: cfg})
			if err != nil {
				t.Fatalf("buildCacheDir() error: %v", err)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("buildCacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}
