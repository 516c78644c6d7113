package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds project and dependency names.
const maxNameLength = 256

// ValidatePackageName rejects names that are unsafe as a directory name:
// empty or overlong names, control characters and path separators or
// traversal sequences.
func ValidatePackageName(name string) error {
	switch {
	case name == "":
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	case len(name) > maxNameLength:
		return New(ErrCodeInvalidPackage, "package name too long (max %d characters)", maxNameLength)
	case strings.IndexFunc(name, unicode.IsControl) >= 0:
		return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// pep508Name matches a distribution name as PEP 508 defines it.
var pep508Name = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePythonPackageName validates a Python distribution name. New
// projects and every dependency passed to add or remove go through it.
func ValidatePythonPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !pep508Name.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid Python package name: %q", name)
	}
	return nil
}

// ValidateDependencyNames validates every name with ValidatePythonPackageName
// and rejects duplicates. Names may carry a version suffix ("requests@^2.0"
// or "requests>=2"), which is stripped before validation.
func ValidateDependencyNames(names []string) error {
	if len(names) == 0 {
		return New(ErrCodeInvalidInput, "no dependencies given")
	}
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := raw
		if i := strings.IndexAny(name, "@<>=~^!["); i >= 0 {
			name = name[:i]
		}
		if err := ValidatePythonPackageName(name); err != nil {
			return err
		}
		key := strings.ToLower(name)
		if seen[key] {
			return New(ErrCodeInvalidInput, "dependency %q given more than once", name)
		}
		seen[key] = true
	}
	return nil
}
