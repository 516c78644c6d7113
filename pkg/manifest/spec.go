package manifest

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// Kind distinguishes registry dependencies from local path dependencies.
type Kind int

const (
	// KindRegistry is a dependency resolved from a package registry by a
	// version constraint. Git and URL dependencies are also registry kind
	// with an empty constraint; their attributes live in Attrs.
	KindRegistry Kind = iota
	// KindLocal is a dependency on another project in the workspace,
	// resolved by a filesystem path relative to the declaring project.
	KindLocal
)

// String returns "registry" or "local".
func (k Kind) String() string {
	if k == KindLocal {
		return "local"
	}
	return "registry"
}

// Spec is a single dependency declaration.
//
// The zero value is a registry dependency with no constraint.
type Spec struct {
	Kind Kind

	// Constraint is the version range for registry dependencies ("*" = any).
	Constraint string

	// Path and Develop describe local dependencies.
	Path    string
	Develop bool

	// Attrs holds the remaining keys of a table-form declaration (extras,
	// optional, markers, python, git, ...). Never contains version, path or
	// develop.
	Attrs map[string]any

	// raw keeps declarations that have no typed representation, such as
	// Poetry's multiple-constraint arrays, so they survive a round trip.
	raw any
}

// Registry returns a registry spec for the given version constraint.
func Registry(constraint string) Spec {
	return Spec{Kind: KindRegistry, Constraint: constraint}
}

// Local returns a local path spec.
func Local(path string, develop bool) Spec {
	return Spec{Kind: KindLocal, Path: path, Develop: develop}
}

// IsLocal reports whether s is a local path dependency.
func (s Spec) IsLocal() bool { return s.Kind == KindLocal }

// String returns the constraint for registry specs and "path=<p>" for local specs.
func (s Spec) String() string {
	if s.IsLocal() {
		return "path=" + s.Path
	}
	if s.Constraint == "" {
		if git, ok := s.Attrs["git"].(string); ok {
			return "git=" + git
		}
		if url, ok := s.Attrs["url"].(string); ok {
			return "url=" + url
		}
	}
	return s.Constraint
}

// Equal reports whether two specs are the same declaration.
func (s Spec) Equal(o Spec) bool {
	if s.Kind != o.Kind || s.Constraint != o.Constraint || s.Path != o.Path || s.Develop != o.Develop {
		return false
	}
	if len(s.Attrs) != len(o.Attrs) || !reflect.DeepEqual(s.raw, o.raw) {
		return false
	}
	return len(s.Attrs) == 0 || reflect.DeepEqual(s.Attrs, o.Attrs)
}

// Clone returns a copy of s that shares no maps with the original.
func (s Spec) Clone() Spec {
	c := s
	if s.Attrs != nil {
		c.Attrs = cloneTree(s.Attrs)
	}
	if s.raw != nil {
		c.raw = cloneValue(s.raw)
	}
	return c
}

// specFromValue decides the spec kind for a decoded TOML value.
func specFromValue(name string, v any) (Spec, error) {
	switch val := v.(type) {
	case string:
		return Registry(val), nil
	case map[string]any:
		return specFromTable(name, val)
	case []map[string]any:
		return specFromAlternatives(name, val)
	case []any:
		tables := make([]map[string]any, 0, len(val))
		for _, item := range val {
			t, ok := item.(map[string]any)
			if !ok {
				return Spec{}, fmt.Errorf("dependency %s: unsupported array element %T", name, item)
			}
			tables = append(tables, t)
		}
		return specFromAlternatives(name, tables)
	default:
		return Spec{}, fmt.Errorf("dependency %s: unsupported value %T", name, v)
	}
}

func specFromTable(name string, t map[string]any) (Spec, error) {
	attrs := make(map[string]any, len(t))
	for k, v := range t {
		switch k {
		case "version", "path", "develop":
		default:
			attrs[k] = cloneValue(v)
		}
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	if p, ok := t["path"]; ok {
		path, ok := p.(string)
		if !ok {
			return Spec{}, fmt.Errorf("dependency %s: path must be a string", name)
		}
		develop := false
		if d, ok := t["develop"]; ok {
			if develop, ok = d.(bool); !ok {
				return Spec{}, fmt.Errorf("dependency %s: develop must be a boolean", name)
			}
		}
		return Spec{Kind: KindLocal, Path: path, Develop: develop, Attrs: attrs}, nil
	}

	spec := Spec{Kind: KindRegistry, Attrs: attrs}
	if v, ok := t["version"]; ok {
		c, ok := v.(string)
		if !ok {
			return Spec{}, fmt.Errorf("dependency %s: version must be a string", name)
		}
		spec.Constraint = c
	}
	if d, ok := t["develop"]; ok {
		// develop without path is meaningless to Poetry; keep it verbatim.
		if spec.Attrs == nil {
			spec.Attrs = map[string]any{}
		}
		spec.Attrs["develop"] = d
	}
	return spec, nil
}

// specFromAlternatives handles Poetry's multiple-constraint form. The
// constraints are joined as a union for compatibility checks and the original
// array is written back unchanged.
func specFromAlternatives(name string, tables []map[string]any) (Spec, error) {
	var parts []string
	raw := make([]map[string]any, 0, len(tables))
	for _, t := range tables {
		if _, ok := t["path"]; ok {
			return Spec{}, fmt.Errorf("dependency %s: path is not supported in multiple-constraint form", name)
		}
		if c, ok := t["version"].(string); ok && c != "" {
			parts = append(parts, c)
		}
		raw = append(raw, cloneTree(t))
	}
	return Spec{Kind: KindRegistry, Constraint: strings.Join(parts, " || "), raw: raw}, nil
}

// value converts s back to its TOML representation.
func (s Spec) value() any {
	if s.raw != nil {
		return cloneValue(s.raw)
	}
	if s.IsLocal() {
		t := cloneTree(s.Attrs)
		if t == nil {
			t = make(map[string]any, 2)
		}
		t["path"] = s.Path
		t["develop"] = s.Develop
		return t
	}
	if len(s.Attrs) == 0 {
		return s.Constraint
	}
	t := cloneTree(s.Attrs)
	if s.Constraint != "" {
		t["version"] = s.Constraint
	}
	return t
}

// Dependencies is an ordered map from dependency name to [Spec].
// Names keep the order in which they were first added. The zero value is an
// empty map ready to use.
type Dependencies struct {
	names []string
	specs map[string]Spec
}

// NewDependencies returns an empty dependency map.
func NewDependencies() Dependencies {
	return Dependencies{specs: make(map[string]Spec)}
}

// Len returns the number of dependencies.
func (d *Dependencies) Len() int { return len(d.names) }

// Names returns dependency names in insertion order.
func (d *Dependencies) Names() []string { return slices.Clone(d.names) }

// Get returns the spec for name.
func (d *Dependencies) Get(name string) (Spec, bool) {
	s, ok := d.specs[name]
	return s, ok
}

// Has reports whether name is present.
func (d *Dependencies) Has(name string) bool {
	_, ok := d.specs[name]
	return ok
}

// Set adds or replaces a dependency. New names are appended; replacing keeps
// the original position.
func (d *Dependencies) Set(name string, s Spec) {
	if d.specs == nil {
		d.specs = make(map[string]Spec)
	}
	if _, ok := d.specs[name]; !ok {
		d.names = append(d.names, name)
	}
	d.specs[name] = s
}

// Delete removes name. It is a no-op if name is absent.
func (d *Dependencies) Delete(name string) {
	if _, ok := d.specs[name]; !ok {
		return
	}
	delete(d.specs, name)
	d.names = slices.DeleteFunc(d.names, func(n string) bool { return n == name })
}

// Reset removes every dependency.
func (d *Dependencies) Reset() {
	d.names = nil
	d.specs = make(map[string]Spec)
}

// Local returns the names of local path dependencies in order.
func (d *Dependencies) Local() []string {
	var out []string
	for _, n := range d.names {
		if d.specs[n].IsLocal() {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Dependencies) Clone() Dependencies {
	c := Dependencies{
		names: slices.Clone(d.names),
		specs: make(map[string]Spec, len(d.specs)),
	}
	for n, s := range d.specs {
		c.specs[n] = s.Clone()
	}
	return c
}

// Equal reports whether both maps hold the same names, in the same order,
// with equal specs.
func (d *Dependencies) Equal(o *Dependencies) bool {
	if !slices.Equal(d.names, o.names) {
		return false
	}
	for _, n := range d.names {
		if !d.specs[n].Equal(o.specs[n]) {
			return false
		}
	}
	return true
}

func cloneTree(t map[string]any) map[string]any {
	if t == nil {
		return nil
	}
	c := maps.Clone(t)
	for k, v := range c {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneTree(val)
	case []map[string]any:
		c := make([]map[string]any, len(val))
		for i, t := range val {
			c[i] = cloneTree(t)
		}
		return c
	case []any:
		c := make([]any, len(val))
		for i, item := range val {
			c[i] = cloneValue(item)
		}
		return c
	default:
		return v
	}
}
