package workspace

import (
	stderrors "errors"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/matzehuels/monopy/pkg/errors"
)

// Env is an explicit process environment handed to subprocesses. It is a
// value: methods that change it return a new Env.
type Env struct {
	vars map[string]string
}

// NewEnv builds an Env from "KEY=VALUE" pairs such as os.Environ().
func NewEnv(environ []string) Env {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return Env{vars: vars}
}

// WithDotenv returns e overlaid with the variables of the dotenv file at
// path. Variables already set in e win. A missing file returns e unchanged.
func (e Env) WithDotenv(path string) (Env, error) {
	file, err := godotenv.Read(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return e, nil
		}
		return e, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	out := e.clone()
	for k, v := range file {
		if _, ok := out.vars[k]; !ok {
			out.vars[k] = v
		}
	}
	return out, nil
}

// With returns a copy of e with key set to value.
func (e Env) With(key, value string) Env {
	out := e.clone()
	out.vars[key] = value
	return out
}

// Lookup returns the value of key.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Environ returns the environment as sorted "KEY=VALUE" pairs.
func (e Env) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for _, k := range slices.Sorted(maps.Keys(e.vars)) {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}

// Len returns the number of variables.
func (e Env) Len() int { return len(e.vars) }

func (e Env) clone() Env {
	vars := maps.Clone(e.vars)
	if vars == nil {
		vars = make(map[string]string)
	}
	return Env{vars: vars}
}
