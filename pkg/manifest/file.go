package manifest

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/matzehuels/monopy/pkg/errors"
)

// PathIn returns the manifest path for a project directory.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether a manifest file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read loads and parses the manifest at path.
//
// A missing file yields an error with [errors.ErrCodeFileNotFound] that still
// matches fs.ErrNotExist; a malformed file yields [errors.ErrCodeInvalidManifest].
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s", path)
	}
	return m, nil
}

// Write serializes m to path atomically: the content goes to a temporary file
// which is then renamed over path, so readers never see a partially written
// manifest.
func Write(path string, m *Manifest) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
