package manifest

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/monopy/pkg/errors"
)

// Parse decodes pyproject.toml content.
//
// Only the shape of the fields the merge engine reads is checked: a
// dependency whose value is neither a string, a table nor an array of tables
// is rejected, and so is a non-table [tool.poetry]. A document without a
// [tool.poetry] table parses to a manifest with no dependencies.
//
// Errors carry [errors.ErrCodeInvalidManifest].
func Parse(data []byte) (*Manifest, error) {
	var doc map[string]any
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest")
	}
	if doc == nil {
		doc = map[string]any{}
	}
	m, err := fromDocument(doc, md.Keys())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse manifest")
	}
	return m, nil
}

func fromDocument(doc map[string]any, keys []toml.Key) (*Manifest, error) {
	m := &Manifest{doc: doc, Dependencies: NewDependencies()}

	poetry, err := table(doc, "tool", "poetry")
	if err != nil {
		return nil, err
	}
	project, err := table(doc, "project")
	if err != nil {
		return nil, err
	}

	if name, ok := poetry["name"].(string); ok {
		m.Name = name
	} else if name, ok := project["name"].(string); ok {
		m.Name = name
		m.nameFromProject = true
	}
	if version, ok := poetry["version"].(string); ok {
		m.Version = version
	} else if version, ok := project["version"].(string); ok {
		m.Version = version
	}

	if deps, err := table(poetry, "dependencies"); err != nil {
		return nil, err
	} else if m.Dependencies, err = parseDependencies(deps, keys, "tool", "poetry", "dependencies"); err != nil {
		return nil, err
	}

	groups, err := table(poetry, "group")
	if err != nil {
		return nil, err
	}
	for _, name := range ordered(groups, keys, "tool", "poetry", "group") {
		gt, err := table(groups, name)
		if err != nil {
			return nil, err
		}
		g := m.Group(name)
		for k, v := range gt {
			if k == "dependencies" {
				continue
			}
			if g.Attrs == nil {
				g.Attrs = make(map[string]any)
			}
			g.Attrs[k] = cloneValue(v)
		}
		deps, err := table(gt, "dependencies")
		if err != nil {
			return nil, err
		}
		if g.Dependencies, err = parseDependencies(deps, keys, "tool", "poetry", "group", name, "dependencies"); err != nil {
			return nil, err
		}
	}

	if v, ok := poetry["source"]; ok {
		entries, err := tableArray(v, "source")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			s := Source{Attrs: without(e, "name", "url", "priority")}
			s.Name, _ = e["name"].(string)
			s.URL, _ = e["url"].(string)
			s.Priority, _ = e["priority"].(string)
			m.Sources = append(m.Sources, s)
		}
	}

	if v, ok := poetry["packages"]; ok {
		entries, err := tableArray(v, "packages")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := Package{Attrs: without(e, "include", "from")}
			p.Include, _ = e["include"].(string)
			p.From, _ = e["from"].(string)
			m.Packages = append(m.Packages, p)
		}
	}

	return m, nil
}

func parseDependencies(t map[string]any, keys []toml.Key, prefix ...string) (Dependencies, error) {
	deps := NewDependencies()
	for _, name := range ordered(t, keys, prefix...) {
		spec, err := specFromValue(name, t[name])
		if err != nil {
			return deps, err
		}
		deps.Set(name, spec)
	}
	return deps, nil
}

// ordered returns the keys of t in order of first appearance in the
// document. Keys the metadata does not mention are appended sorted.
func ordered(t map[string]any, keys []toml.Key, prefix ...string) []string {
	if len(t) == 0 {
		return nil
	}
	out := make([]string, 0, len(t))
	seen := make(map[string]bool, len(t))
	for _, k := range keys {
		if len(k) <= len(prefix) || !slices.Equal(k[:len(prefix)], prefix) {
			continue
		}
		name := k[len(prefix)]
		if _, ok := t[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(t)) {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// table walks path from t and returns the table found there. A missing
// table yields nil without error; a non-table value is an error.
func table(t map[string]any, path ...string) (map[string]any, error) {
	cur := t
	for i, p := range path {
		v, ok := cur[p]
		if !ok {
			return nil, nil
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s must be a table, got %T", joinKey(path[:i+1]), v)
		}
		cur = next
	}
	return cur, nil
}

func tableArray(v any, key string) ([]map[string]any, error) {
	switch val := v.(type) {
	case []map[string]any:
		return val, nil
	case []any:
		out := make([]map[string]any, 0, len(val))
		for _, item := range val {
			t, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("tool.poetry.%s entries must be tables, got %T", key, item)
			}
			out = append(out, t)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tool.poetry.%s must be an array of tables, got %T", key, v)
	}
}

func without(t map[string]any, keys ...string) map[string]any {
	var out map[string]any
	for k, v := range t {
		if slices.Contains(keys, k) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = cloneValue(v)
	}
	return out
}

func joinKey(path []string) string {
	var b bytes.Buffer
	for i, p := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Encode serializes m back to TOML. Fields of the original document that the
// typed model does not cover are written back unchanged.
func Encode(m *Manifest) ([]byte, error) {
	doc := maps.Clone(m.doc)
	if doc == nil {
		doc = make(map[string]any)
	}
	tool := shallow(doc["tool"])
	poetry := shallow(tool["poetry"])

	if m.Name != "" {
		if m.nameFromProject {
			project := shallow(doc["project"])
			project["name"] = m.Name
			doc["project"] = project
		} else {
			poetry["name"] = m.Name
		}
	}
	if m.Version != "" && !m.nameFromProject {
		poetry["version"] = m.Version
	}

	// Dependency tables are written by writeDependencies; the encoder only
	// places their headers.
	poetry["dependencies"] = map[string]any{}

	if len(m.groupNames) > 0 {
		groups := make(map[string]any, len(m.groupNames))
		for _, name := range m.groupNames {
			g := m.groups[name]
			gt := cloneTree(g.Attrs)
			if gt == nil {
				gt = make(map[string]any, 1)
			}
			gt["dependencies"] = map[string]any{}
			groups[name] = gt
		}
		poetry["group"] = groups
	} else {
		delete(poetry, "group")
	}

	if len(m.Sources) > 0 {
		sources := make([]map[string]any, 0, len(m.Sources))
		for _, s := range m.Sources {
			t := cloneTree(s.Attrs)
			if t == nil {
				t = make(map[string]any, 3)
			}
			t["name"] = s.Name
			if s.URL != "" {
				t["url"] = s.URL
			}
			if s.Priority != "" {
				t["priority"] = s.Priority
			}
			sources = append(sources, t)
		}
		poetry["source"] = sources
	} else {
		delete(poetry, "source")
	}

	if len(m.Packages) > 0 {
		pkgs := make([]map[string]any, 0, len(m.Packages))
		for _, p := range m.Packages {
			t := cloneTree(p.Attrs)
			if t == nil {
				t = make(map[string]any, 2)
			}
			t["include"] = p.Include
			if p.From != "" {
				t["from"] = p.From
			}
			pkgs = append(pkgs, t)
		}
		poetry["packages"] = pkgs
	} else {
		delete(poetry, "packages")
	}

	tool["poetry"] = poetry
	doc["tool"] = tool

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode manifest")
	}

	out := buf.Bytes()
	var err error
	if out, err = writeDependencies(out, toml.Key{"tool", "poetry", "dependencies"}, &m.Dependencies); err != nil {
		return nil, err
	}
	for _, name := range m.groupNames {
		key := toml.Key{"tool", "poetry", "group", name, "dependencies"}
		if out, err = writeDependencies(out, key, &m.groups[name].Dependencies); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// writeDependencies fills the table headed by key in the encoded document
// with deps in declaration order, one inline entry per line. The encoder
// sorts map keys, so the entries are not left to it.
func writeDependencies(doc []byte, key toml.Key, deps *Dependencies) ([]byte, error) {
	var lines bytes.Buffer
	for _, name := range deps.Names() {
		spec, _ := deps.Get(name)
		v, err := inlineValue(spec.value())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode dependency %s", name)
		}
		fmt.Fprintf(&lines, "%s = %s\n", toml.Key{name}, v)
	}

	header := []byte("[" + key.String() + "]\n")
	at := -1
	if bytes.HasPrefix(doc, header) {
		at = len(header)
	} else if i := bytes.Index(doc, append([]byte("\n"), header...)); i >= 0 {
		at = i + 1 + len(header)
	}
	if at < 0 {
		out := append(bytes.TrimRight(doc, "\n"), "\n\n"...)
		out = append(out, header...)
		return append(out, lines.Bytes()...), nil
	}
	out := make([]byte, 0, len(doc)+lines.Len())
	out = append(out, doc[:at]...)
	out = append(out, lines.Bytes()...)
	return append(out, doc[at:]...), nil
}

// inlineValue renders v as a single-line TOML value. Tables become inline
// tables with version, path and develop first and the other keys sorted.
func inlineValue(v any) (string, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return "{}", nil
		}
		parts := make([]string, 0, len(val))
		for _, k := range inlineKeys(val) {
			s, err := inlineValue(val[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, toml.Key{k}.String()+" = "+s)
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	case []map[string]any:
		items := make([]any, len(val))
		for i, t := range val {
			items[i] = t
		}
		return inlineValue(items)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, err := inlineValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(map[string]any{"v": val}); err != nil {
			return "", err
		}
		return strings.TrimSpace(strings.TrimPrefix(buf.String(), "v = ")), nil
	}
}

func inlineKeys(t map[string]any) []string {
	keys := make([]string, 0, len(t))
	for _, k := range []string{"version", "path", "develop"} {
		if _, ok := t[k]; ok {
			keys = append(keys, k)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(t)) {
		if !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// shallow returns a copy of v if it is a table, or a new empty table.
func shallow(v any) map[string]any {
	if t, ok := v.(map[string]any); ok {
		return maps.Clone(t)
	}
	return make(map[string]any)
}
