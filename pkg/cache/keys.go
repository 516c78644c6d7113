package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Keyer builds cache keys.
type Keyer interface {
	// BuildKey identifies the build outputs of project for a fingerprint of
	// its inputs.
	BuildKey(project, fingerprint string) string
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// BuildKey returns "build:<sha256(project, fingerprint)>".
func (DefaultKeyer) BuildKey(project, fingerprint string) string {
	return hashKey("build", project, fingerprint)
}

// ScopedKeyer wraps a Keyer with a prefix, giving each workspace its own
// namespace in a shared backend:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ws:"+Hash([]byte(root))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// BuildKey generates a prefixed build key.
func (k *ScopedKeyer) BuildKey(project, fingerprint string) string {
	return k.prefix + k.inner.BuildKey(project, fingerprint)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns prefix + ":" + Hash of the NUL-joined parts.
func hashKey(prefix string, parts ...string) string {
	return prefix + ":" + Hash([]byte(strings.Join(parts, "\x00")))
}
