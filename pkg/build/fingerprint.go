package build

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/monopy/pkg/bundle"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

// Fingerprint hashes every input file of the project in dir and of its
// transitive local dependencies. Files matched by ignore are left out.
// Two fingerprints are equal only if the same relative paths have the same
// contents in the same set of project directories.
func Fingerprint(dir string, ignore bundle.Ignore, store *manifest.Store) (string, error) {
	dirs, err := inputDirs(dir, store)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for i, d := range dirs {
		// The project itself is always first; dependencies are sorted.
		fmt.Fprintf(h, "project %d\n", i)
		if err := hashTree(h, d, ignore); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// inputDirs returns dir followed by the sorted absolute directories of its
// transitive local dependencies.
func inputDirs(dir string, store *manifest.Store) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", dir)
	}
	seen := map[string]bool{root: true}
	var deps []string

	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		m, err := store.Load(manifest.PathIn(cur))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) && cur != root {
				continue
			}
			return nil, err
		}
		for _, name := range m.Dependencies.Local() {
			spec, _ := m.Dependencies.Get(name)
			next := filepath.Clean(filepath.Join(cur, filepath.FromSlash(spec.Path)))
			if !seen[next] {
				seen[next] = true
				deps = append(deps, next)
				queue = append(queue, next)
			}
		}
	}
	slices.Sort(deps)
	return append([]string{root}, deps...), nil
}

func hashTree(w io.Writer, dir string, ignore bundle.Ignore) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		if ignore.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		fh := sha256.New()
		if _, err := io.Copy(fh, f); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s %x\n", filepath.ToSlash(rel), fh.Sum(nil))
		return err
	})
}
