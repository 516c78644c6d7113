package manifest

import (
	"slices"
	"strings"
)

// FileName is the manifest file expected at every Poetry project root.
const FileName = "pyproject.toml"

// Manifest is the typed view of one project's pyproject.toml.
//
// The zero value is an empty manifest; use [Parse] or [Read] to load one from
// disk. A Manifest is not safe for concurrent mutation.
type Manifest struct {
	Name    string
	Version string

	// Dependencies is [tool.poetry.dependencies].
	Dependencies Dependencies

	// Sources lists [[tool.poetry.source]] entries in document order.
	Sources []Source

	// Packages lists [[tool.poetry.packages]] entries in document order.
	Packages []Package

	groupNames []string
	groups     map[string]*Group

	// doc is the full decoded document. It is never mutated; Encode
	// overlays the typed fields onto a copy.
	doc map[string]any

	nameFromProject bool
}

// Group is a named supplementary dependency set such as "dev".
type Group struct {
	Dependencies Dependencies

	// Attrs holds other group keys (e.g. optional = true).
	Attrs map[string]any
}

// Source is a package registry declared with [[tool.poetry.source]].
type Source struct {
	Name     string
	URL      string
	Priority string

	// Attrs holds other source keys (e.g. legacy "default" or "secondary").
	Attrs map[string]any
}

// Package is a package-inclusion entry ([[tool.poetry.packages]]).
type Package struct {
	Include string
	From    string

	// Attrs holds other keys (e.g. format).
	Attrs map[string]any
}

// New returns an empty manifest named name.
func New(name string) *Manifest {
	return &Manifest{Name: name, Dependencies: NewDependencies()}
}

// GroupNames returns group names in document order, followed by groups
// created later in creation order.
func (m *Manifest) GroupNames() []string { return slices.Clone(m.groupNames) }

// LookupGroup returns the named group if it exists.
func (m *Manifest) LookupGroup(name string) (*Group, bool) {
	g, ok := m.groups[name]
	return g, ok
}

// Group returns the named group, creating an empty one if it is absent.
func (m *Manifest) Group(name string) *Group {
	if g, ok := m.groups[name]; ok {
		return g
	}
	if m.groups == nil {
		m.groups = make(map[string]*Group)
	}
	g := &Group{Dependencies: NewDependencies()}
	m.groups[name] = g
	m.groupNames = append(m.groupNames, name)
	return g
}

// RemoveGroup deletes the named group. It is a no-op if the group is absent.
func (m *Manifest) RemoveGroup(name string) {
	if _, ok := m.groups[name]; !ok {
		return
	}
	delete(m.groups, name)
	m.groupNames = slices.DeleteFunc(m.groupNames, func(n string) bool { return n == name })
}

// Source returns the source with the given name.
func (m *Manifest) Source(name string) (Source, bool) {
	for _, s := range m.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// AddSource appends s unless a source with the same name exists.
// It reports whether s was added.
func (m *Manifest) AddSource(s Source) bool {
	if _, ok := m.Source(s.Name); ok {
		return false
	}
	m.Sources = append(m.Sources, s)
	return true
}

// AddPackage appends an include entry unless one with the same include
// already exists. It reports whether the entry was added.
func (m *Manifest) AddPackage(include string) bool {
	for _, p := range m.Packages {
		if p.Include == include {
			return false
		}
	}
	m.Packages = append(m.Packages, Package{Include: include})
	return true
}

// ModuleName converts a project name to its importable module name
// ("shared-lib" -> "shared_lib").
func ModuleName(project string) string {
	return strings.ReplaceAll(project, "-", "_")
}

// AllLocal returns the local dependency names of the main map and every
// group, without duplicates, in declaration order.
func (m *Manifest) AllLocal() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(m.Dependencies.Local())
	for _, g := range m.groupNames {
		add(m.groups[g].Dependencies.Local())
	}
	return out
}

// Clone returns a deep copy of m. The raw document is shared because it is
// never mutated.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Dependencies = m.Dependencies.Clone()
	c.groupNames = slices.Clone(m.groupNames)
	if m.groups != nil {
		c.groups = make(map[string]*Group, len(m.groups))
		for n, g := range m.groups {
			c.groups[n] = &Group{Dependencies: g.Dependencies.Clone(), Attrs: cloneTree(g.Attrs)}
		}
	}
	c.Sources = make([]Source, len(m.Sources))
	for i, s := range m.Sources {
		s.Attrs = cloneTree(s.Attrs)
		c.Sources[i] = s
	}
	c.Packages = make([]Package, len(m.Packages))
	for i, p := range m.Packages {
		p.Attrs = cloneTree(p.Attrs)
		c.Packages[i] = p
	}
	if m.Sources == nil {
		c.Sources = nil
	}
	if m.Packages == nil {
		c.Packages = nil
	}
	return &c
}
