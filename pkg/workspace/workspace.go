package workspace

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

// Workspace is an opened monorepo.
type Workspace struct {
	Root     string
	Config   *Config
	Registry *Registry
	Env      Env
}

// Open loads the configuration, project registry and environment of the
// workspace rooted at root.
func Open(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve workspace %s", root)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "workspace %s is not a directory", root)
	}

	cfg, err := LoadConfig(abs)
	if err != nil {
		return nil, err
	}
	reg, err := LoadRegistry(abs, cfg)
	if err != nil {
		return nil, err
	}
	env, err := NewEnv(os.Environ()).WithDotenv(filepath.Join(abs, cfg.EnvFile))
	if err != nil {
		return nil, err
	}
	return &Workspace{Root: abs, Config: cfg, Registry: reg, Env: env}, nil
}

// RootManifest returns the path of the shared environment manifest.
func (w *Workspace) RootManifest() string {
	return manifest.PathIn(w.Root)
}

// ManifestPath returns the manifest path of project p.
func (w *Workspace) ManifestPath(p *Project) string {
	return manifest.PathIn(p.Dir)
}

// OutputDir returns the absolute build output directory for project p.
func (w *Workspace) OutputDir(p *Project) string {
	return filepath.Join(w.Root, w.Config.Build.OutputDir, p.Name)
}

// ProjectsDir returns the absolute directory new projects of kind k go in.
func (w *Workspace) ProjectsDir(k Kind) string {
	if k == KindApplication {
		return filepath.Join(w.Root, w.Config.AppsDir)
	}
	return filepath.Join(w.Root, w.Config.LibsDir)
}
