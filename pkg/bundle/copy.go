package bundle

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	cp "github.com/otiai10/copy"

	"github.com/matzehuels/monopy/pkg/errors"
)

// DefaultIgnore lists project-relative paths never copied into a staging tree.
var DefaultIgnore = []string{".venv", "build", "dist", "tests", "project.json", "__pycache__"}

// Ignore decides which entries of a project tree are skipped when copying.
// Entries are slash-separated paths relative to the project root; an entry
// without a slash that names a cache directory ("__pycache__") matches at any
// depth.
type Ignore struct {
	paths []string
}

// NewIgnore combines DefaultIgnore with extra entries.
func NewIgnore(extra ...string) Ignore {
	paths := slices.Clone(DefaultIgnore)
	for _, p := range extra {
		p = filepath.ToSlash(filepath.Clean(p))
		if p != "." && p != "" && !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	return Ignore{paths: paths}
}

// Paths returns the ignore entries.
func (ig Ignore) Paths() []string { return slices.Clone(ig.paths) }

// Match reports whether rel (relative to the project root) is ignored.
func (ig Ignore) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if slices.Contains(ig.paths, rel) {
		return true
	}
	return filepath.Base(rel) == "__pycache__"
}

// CopyOptions controls CopyTree.
type CopyOptions struct {
	Ignore Ignore

	// Skip lists additional root-level names to leave out.
	Skip []string

	// KeepExisting leaves files that already exist in dst untouched.
	KeepExisting bool
}

// CopyTree copies the project tree at src into dst, creating dst if needed.
// Symbolic links and special files are left out.
func CopyTree(src, dst string, opts CopyOptions) error {
	return cp.Copy(src, dst, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Skip },
		Skip: func(info os.FileInfo, path, target string) (bool, error) {
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return false, err
			}
			if rel == "." {
				return false, nil
			}
			if opts.Ignore.Match(rel) || slices.Contains(opts.Skip, filepath.ToSlash(rel)) {
				return true, nil
			}
			if info.IsDir() {
				return false, nil
			}
			if !info.Mode().IsRegular() {
				return true, nil
			}
			if opts.KeepExisting {
				if _, err := os.Lstat(target); err == nil {
					return true, nil
				}
			}
			return false, nil
		},
	})
}

// CopyDir copies every file under src into dst, replacing existing files.
// A missing src is an error carrying [errors.ErrCodeFileNotFound].
func CopyDir(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "copy %s", src)
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "copy %s", src)
	}
	if err := CopyTree(src, dst, CopyOptions{Ignore: Ignore{}}); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "copy %s to %s", src, dst)
	}
	return nil
}
