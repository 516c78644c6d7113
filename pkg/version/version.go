// Package version decides whether two dependency version constraints can be
// satisfied by a common version.
//
// Constraints use the Poetry/npm range grammar: "||" unions, space or comma
// separated intersections, the comparison operators, caret and tilde ranges,
// wildcards ("1.2.*", "1.x"), hyphen ranges ("1.0 - 2.0") and partial
// versions. PEP 440 spellings ("==", "~=") are rewritten first.
//
// Pre-releases follow npm: a pre-release satisfies a range only when the
// range names a pre-release of the same major.minor.patch, so "<1.0.0" and
// "1.0.0-rc1" conflict.
//
// A constraint that cannot be parsed is never treated as a conflict: the
// checker logs a warning and reports the pair as compatible.
package version

import (
	"regexp"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/monopy/pkg/observability"
)

// Wildcard matches every version.
const Wildcard = "*"

// Checker evaluates constraint pairs and reports parse warnings.
// The zero value logs to log.Default().
type Checker struct {
	Logger *log.Logger
}

// IsCompatible reports whether a and b are mutually satisfiable, using the
// default logger for parse warnings.
func IsCompatible(a, b string) bool {
	return Checker{}.Compatible("", a, b)
}

// Compatible reports whether constraints a and b declared for dependency
// name can be satisfied by a common version.
//
// Either side being the wildcard (or empty) makes the pair compatible. If
// either side fails to parse, a warning naming the dependency and both
// constraints is logged and the pair is reported compatible.
func (c Checker) Compatible(name, a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == Wildcard || nb == Wildcard {
		return true
	}

	ra, err := Parse(na)
	if err == nil {
		var rb Range
		if rb, err = Parse(nb); err == nil {
			return ra.Intersects(rb) && rb.Intersects(ra)
		}
	}

	c.logger().Warn("could not parse version constraint, assuming compatible",
		"dependency", name, "a", a, "b", b, "err", err)
	observability.Version().OnVersionWarning(name, a, b, err)
	return true
}

func (c Checker) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Range is a parsed constraint.
type Range struct {
	raw string
	set union
}

// Parse parses a normalized constraint. The grammar is validated by
// Masterminds/semver before the expression is lowered to intervals.
func Parse(s string) (Range, error) {
	if s == "" || s == Wildcard {
		return Range{raw: Wildcard, set: union{everything}}, nil
	}
	if _, err := mm.NewConstraint(s); err != nil {
		return Range{}, err
	}
	set, err := parseRange(s)
	if err != nil {
		return Range{}, err
	}
	return Range{raw: s, set: set}, nil
}

// String returns the normalized constraint text.
func (r Range) String() string { return r.raw }

// Intersects reports whether some version satisfies both r and o.
func (r Range) Intersects(o Range) bool {
	return r.set.intersects(o.set)
}

// Contains reports whether v satisfies r.
func (r Range) Contains(v string) bool {
	ver, err := mm.NewVersion(v)
	if err != nil {
		return false
	}
	point := union{{lo: atLeast(ver), hi: atMost(ver)}}
	return r.set.intersects(point)
}

var (
	spaces      = regexp.MustCompile(`\s+`)
	compatible  = regexp.MustCompile(`~=\s*v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:\.\d+)*`)
	pep440Equal = regexp.MustCompile(`={2,3}`)
)

// Normalize rewrites a constraint into the grammar Parse accepts: commas
// become spaces, PEP 440 operators are translated and whitespace collapsed.
// Empty input normalizes to the wildcard.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Wildcard
	}
	s = strings.ReplaceAll(s, ",", " ")
	s = compatible.ReplaceAllStringFunc(s, rewriteCompatible)
	s = pep440Equal.ReplaceAllString(s, "=")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return Wildcard
	}
	return s
}

// rewriteCompatible translates "~=X.Y" to ">=X.Y <X+1" and "~=X.Y.Z" to
// ">=X.Y.Z <X.Y+1".
func rewriteCompatible(term string) string {
	m := compatible.FindStringSubmatch(term)
	major, minor, patch := m[1], m[2], m[3]
	switch {
	case patch != "":
		return ">=" + major + "." + minor + "." + patch + " <" + major + "." + increment(minor)
	case minor != "":
		return ">=" + major + "." + minor + " <" + increment(major)
	default:
		return ">=" + major
	}
}

func increment(n string) string {
	v, err := strconv.ParseUint(n, 10, 64)
	if err != nil {
		return n
	}
	return strconv.FormatUint(v+1, 10)
}
