package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// bound is one end of an interval. A nil version means unbounded.
type bound struct {
	v         *mm.Version
	inclusive bool
}

// interval is a contiguous set of versions between lo and hi.
type interval struct {
	lo, hi bound
}

// everything is the interval containing every version.
var everything = interval{}

// union is a set of versions expressed as a disjunction of intervals.
type union []interval

// intersects reports whether some version lies in both intervals. A
// pre-release only counts when both intervals name a pre-release of its
// major.minor.patch in one of their bounds: "<1.0.0" does not admit 1.0.0-rc1.
func (a interval) intersects(b interval) bool {
	lo := maxLower(a.lo, b.lo)
	hi := minUpper(a.hi, b.hi)
	if !overlaps(lo, hi) {
		return false
	}
	r := firstRelease(lo)
	if hi.v == nil {
		return true
	}
	if c := r.Compare(hi.v); c < 0 || c == 0 && hi.inclusive {
		return true
	}
	// Only pre-releases of r remain between lo and hi.
	return a.admits(r) && b.admits(r)
}

// overlaps reports whether lo and hi enclose at least one version.
func overlaps(lo, hi bound) bool {
	if lo.v == nil || hi.v == nil {
		return true
	}
	switch c := lo.v.Compare(hi.v); {
	case c < 0:
		return true
	case c == 0:
		return lo.inclusive && hi.inclusive
	default:
		return false
	}
}

// firstRelease returns the lowest version without a pre-release tag that lo
// allows.
func firstRelease(lo bound) *mm.Version {
	switch {
	case lo.v == nil:
		return mm.New(0, 0, 0, "", "")
	case lo.v.Prerelease() != "":
		return mm.New(lo.v.Major(), lo.v.Minor(), lo.v.Patch(), "", "")
	case lo.inclusive:
		return lo.v
	default:
		return mm.New(lo.v.Major(), lo.v.Minor(), lo.v.Patch()+1, "", "")
	}
}

// admits reports whether a bound of a is a pre-release of release.
func (a interval) admits(release *mm.Version) bool {
	for _, b := range []bound{a.lo, a.hi} {
		if b.v != nil && b.v.Prerelease() != "" &&
			b.v.Major() == release.Major() && b.v.Minor() == release.Minor() && b.v.Patch() == release.Patch() {
			return true
		}
	}
	return false
}

func (a interval) intersect(b interval) interval {
	return interval{lo: maxLower(a.lo, b.lo), hi: minUpper(a.hi, b.hi)}
}

func (a interval) empty() bool { return !overlaps(a.lo, a.hi) }

func maxLower(a, b bound) bound {
	switch {
	case a.v == nil:
		return b
	case b.v == nil:
		return a
	}
	switch c := a.v.Compare(b.v); {
	case c > 0:
		return a
	case c < 0:
		return b
	default:
		return bound{v: a.v, inclusive: a.inclusive && b.inclusive}
	}
}

func minUpper(a, b bound) bound {
	switch {
	case a.v == nil:
		return b
	case b.v == nil:
		return a
	}
	switch c := a.v.Compare(b.v); {
	case c < 0:
		return a
	case c > 0:
		return b
	default:
		return bound{v: a.v, inclusive: a.inclusive && b.inclusive}
	}
}

// intersects reports whether any interval of u overlaps any interval of o.
func (u union) intersects(o union) bool {
	for _, a := range u {
		for _, b := range o {
			if a.intersects(b) {
				return true
			}
		}
	}
	return false
}

// and returns the intersection of two unions, dropping empty intervals.
func (u union) and(o union) union {
	var out union
	for _, a := range u {
		for _, b := range o {
			if x := a.intersect(b); !x.empty() {
				out = append(out, x)
			}
		}
	}
	return out
}

var (
	opPattern      = regexp.MustCompile(`^(\^|~>|~|>=|=>|<=|=<|!=|>|<|=)?\s*(.*)$`)
	partialPattern = regexp.MustCompile(`^v?(\d+|[xX*])(?:\.(\d+|[xX*]))?(?:\.(\d+|[xX*]))?(?:-([0-9A-Za-z.-]+))?(?:\+[0-9A-Za-z.-]+)?$`)
)

// partial is a possibly incomplete version such as "1", "1.2" or "1.x".
// n counts the leading components given as numbers.
type partial struct {
	major, minor, patch uint64
	n                   int
	pre                 string
}

func parsePartial(s string) (partial, error) {
	m := partialPattern.FindStringSubmatch(s)
	if m == nil {
		return partial{}, fmt.Errorf("invalid version %q", s)
	}
	var p partial
	parts := []*uint64{&p.major, &p.minor, &p.patch}
	for i, raw := range m[1:4] {
		if raw == "" || raw == "x" || raw == "X" || raw == "*" {
			break
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return partial{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		*parts[i] = n
		p.n++
	}
	if p.n == 3 {
		p.pre = m[4]
	}
	return p, nil
}

func (p partial) floor() *mm.Version {
	return mm.New(p.major, p.minor, p.patch, p.pre, "")
}

// next returns the first version past every version p matches
// ("1.2" -> 1.3.0, "1" -> 2.0.0, "1.2.3" -> 1.2.4).
func (p partial) next() *mm.Version {
	switch p.n {
	case 1:
		return mm.New(p.major+1, 0, 0, "", "")
	case 2:
		return mm.New(p.major, p.minor+1, 0, "", "")
	default:
		return mm.New(p.major, p.minor, p.patch+1, "", "")
	}
}

func atLeast(v *mm.Version) bound { return bound{v: v, inclusive: true} }
func above(v *mm.Version) bound   { return bound{v: v} }
func below(v *mm.Version) bound   { return bound{v: v} }
func atMost(v *mm.Version) bound  { return bound{v: v, inclusive: true} }

// comparator lowers a single "op version" term into a union.
func comparator(term string) (union, error) {
	m := opPattern.FindStringSubmatch(term)
	op, ver := m[1], strings.TrimSpace(m[2])
	if ver == "" {
		return nil, fmt.Errorf("missing version in %q", term)
	}
	p, err := parsePartial(ver)
	if err != nil {
		return nil, err
	}
	if p.n == 0 {
		// "*", "x" or an operator applied to a wildcard.
		if op == "<" || op == "!=" || op == ">" {
			return nil, nil
		}
		return union{everything}, nil
	}

	switch op {
	case "", "=":
		if p.n == 3 {
			return union{{lo: atLeast(p.floor()), hi: atMost(p.floor())}}, nil
		}
		return union{{lo: atLeast(p.floor()), hi: below(p.next())}}, nil
	case "!=":
		if p.n == 3 {
			return union{{hi: below(p.floor())}, {lo: above(p.floor())}}, nil
		}
		return union{{hi: below(p.floor())}, {lo: atLeast(p.next())}}, nil
	case ">":
		if p.n == 3 {
			return union{{lo: above(p.floor())}}, nil
		}
		return union{{lo: atLeast(p.next())}}, nil
	case ">=", "=>":
		return union{{lo: atLeast(p.floor())}}, nil
	case "<":
		return union{{hi: below(p.floor())}}, nil
	case "<=", "=<":
		if p.n == 3 {
			return union{{hi: atMost(p.floor())}}, nil
		}
		return union{{hi: below(p.next())}}, nil
	case "~", "~>":
		var hi *mm.Version
		if p.n == 1 {
			hi = mm.New(p.major+1, 0, 0, "", "")
		} else {
			hi = mm.New(p.major, p.minor+1, 0, "", "")
		}
		return union{{lo: atLeast(p.floor()), hi: below(hi)}}, nil
	case "^":
		return union{{lo: atLeast(p.floor()), hi: below(caretCeiling(p))}}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

// caretCeiling returns the exclusive upper bound of "^p": the next version
// that changes the left-most non-zero component among those given.
func caretCeiling(p partial) *mm.Version {
	switch {
	case p.major > 0 || p.n == 1:
		return mm.New(p.major+1, 0, 0, "", "")
	case p.minor > 0 || p.n == 2:
		return mm.New(0, p.minor+1, 0, "", "")
	default:
		return mm.New(0, 0, p.patch+1, "", "")
	}
}

// hyphen lowers "a - b".
func hyphen(from, to string) (union, error) {
	lo, err := parsePartial(from)
	if err != nil {
		return nil, err
	}
	hi, err := parsePartial(to)
	if err != nil {
		return nil, err
	}
	iv := interval{}
	if lo.n > 0 {
		iv.lo = atLeast(lo.floor())
	}
	switch {
	case hi.n == 3:
		iv.hi = atMost(hi.floor())
	case hi.n > 0:
		iv.hi = below(hi.next())
	}
	return union{iv}, nil
}

// parseRange lowers a normalized range expression into a union of intervals.
func parseRange(s string) (union, error) {
	var out union
	for _, alt := range strings.Split(s, "||") {
		set, err := parseAndSet(strings.TrimSpace(alt))
		if err != nil {
			return nil, err
		}
		out = append(out, set...)
	}
	return out, nil
}

func parseAndSet(s string) (union, error) {
	if s == "" {
		return union{everything}, nil
	}
	terms := joinOperators(strings.Fields(s))
	acc := union{everything}
	for i := 0; i < len(terms); i++ {
		var (
			u   union
			err error
		)
		if i+2 < len(terms) && terms[i+1] == "-" {
			u, err = hyphen(terms[i], terms[i+2])
			i += 2
		} else {
			u, err = comparator(terms[i])
		}
		if err != nil {
			return nil, err
		}
		acc = acc.and(u)
	}
	return acc, nil
}

// joinOperators glues a bare operator token to the version that follows it
// (">= 1.2" -> ">=1.2").
func joinOperators(fields []string) []string {
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if isOperator(f) && i+1 < len(fields) {
			f += fields[i+1]
			i++
		}
		out = append(out, f)
	}
	return out
}

func isOperator(s string) bool {
	switch s {
	case "^", "~", "~>", ">", ">=", "=>", "<", "<=", "=<", "=", "!=":
		return true
	}
	return false
}
