package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/workspace"
)

type projectView struct {
	Name                 string   `json:"name"`
	Root                 string   `json:"root"`
	Kind                 string   `json:"kind"`
	ImplicitDependencies []string `json:"implicitDependencies"`
	Tags                 []string `json:"tags,omitempty"`
	HasManifest          bool     `json:"hasManifest"`
}

func newProjectView(p *workspace.Project, hasManifest bool) projectView {
	return projectView{
		Name:                 p.Name,
		Root:                 p.Root,
		Kind:                 string(p.Kind),
		ImplicitDependencies: nonNil(p.ImplicitDependencies),
		Tags:                 p.Tags,
		HasManifest:          hasManifest,
	}
}

type dependencyView struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Constraint string `json:"constraint,omitempty"`
	Path       string `json:"path,omitempty"`
	Develop    bool   `json:"develop,omitempty"`
	Spec       string `json:"spec"`
}

type groupView struct {
	Name         string           `json:"name"`
	Dependencies []dependencyView `json:"dependencies"`
}

type sourceView struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Priority string `json:"priority,omitempty"`
}

type manifestView struct {
	Name         string           `json:"name"`
	Version      string           `json:"version,omitempty"`
	Dependencies []dependencyView `json:"dependencies"`
	Groups       []groupView      `json:"groups"`
	Sources      []sourceView     `json:"sources,omitempty"`
	Packages     []string         `json:"packages,omitempty"`
}

// newManifestView lists dependencies in declaration order.
func newManifestView(m *manifest.Manifest) manifestView {
	v := manifestView{
		Name:         m.Name,
		Version:      m.Version,
		Dependencies: dependencyViews(&m.Dependencies),
		Groups:       []groupView{},
	}
	for _, name := range m.GroupNames() {
		g, _ := m.LookupGroup(name)
		v.Groups = append(v.Groups, groupView{Name: name, Dependencies: dependencyViews(&g.Dependencies)})
	}
	for _, src := range m.Sources {
		v.Sources = append(v.Sources, sourceView{Name: src.Name, URL: src.URL, Priority: src.Priority})
	}
	for _, pkg := range m.Packages {
		v.Packages = append(v.Packages, pkg.Include)
	}
	return v
}

func dependencyViews(d *manifest.Dependencies) []dependencyView {
	out := make([]dependencyView, 0, d.Len())
	for _, name := range d.Names() {
		spec, _ := d.Get(name)
		out = append(out, dependencyView{
			Name:       name,
			Kind:       spec.Kind.String(),
			Constraint: spec.Constraint,
			Path:       spec.Path,
			Develop:    spec.Develop,
			Spec:       spec.String(),
		})
	}
	return out
}

type errorDetail struct {
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Conflict *conflictView `json:"conflict,omitempty"`
	Chain    []string      `json:"chain,omitempty"`
}

type conflictView struct {
	Dependency string    `json:"dependency"`
	Versions   [2]string `json:"versions"`
	Projects   [2]string `json:"projects"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError maps the error code of err to an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	detail := errorDetail{Code: string(code), Message: err.Error()}

	var conflict *errors.ConflictError
	if stderrors.As(err, &conflict) {
		detail.Conflict = &conflictView{
			Dependency: conflict.Dependency,
			Versions:   conflict.Versions,
			Projects:   conflict.Projects,
		}
	}
	var circular *errors.CircularDependencyError
	if stderrors.As(err, &circular) {
		detail.Chain = circular.Chain
	}
	writeJSON(w, statusFor(code), errorBody{Error: detail})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeProjectNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict, errors.ErrCodeCircular:
		return http.StatusConflict
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPackage, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidManifest, errors.ErrCodeInvalidConfig:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
