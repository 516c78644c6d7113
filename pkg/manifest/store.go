package manifest

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStoreSize is the number of parsed manifests a Store keeps.
const DefaultStoreSize = 512

// Store caches parsed manifests by path. An entry is reused only while the
// file's modification time and size are unchanged.
//
// Load always returns a private copy, so callers may mutate the result.
// A nil *Store is valid and reads from disk every time.
// Store is safe for concurrent use.
type Store struct {
	cache *lru.Cache[string, storeEntry]
}

type storeEntry struct {
	modTime  time.Time
	size     int64
	manifest *Manifest
}

// NewStore creates a store holding up to size manifests.
// A non-positive size selects DefaultStoreSize.
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultStoreSize
	}
	c, err := lru.New[string, storeEntry](size)
	if err != nil {
		return nil, err
	}
	return &Store{cache: c}, nil
}

// Load returns the manifest at path, parsing it only if the cached copy is
// stale. Errors are those of [Read].
func (s *Store) Load(path string) (*Manifest, error) {
	if s == nil {
		return Read(path)
	}
	info, statErr := os.Stat(path)
	if statErr == nil {
		if e, ok := s.cache.Get(path); ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			return e.manifest.Clone(), nil
		}
	}

	m, err := Read(path)
	if err != nil {
		s.cache.Remove(path)
		return nil, err
	}
	if statErr == nil {
		s.cache.Add(path, storeEntry{modTime: info.ModTime(), size: info.Size(), manifest: m.Clone()})
	}
	return m, nil
}

// Invalidate drops the cached entry for path.
func (s *Store) Invalidate(path string) {
	if s != nil {
		s.cache.Remove(path)
	}
}

// Len returns the number of cached manifests.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.Len()
}
