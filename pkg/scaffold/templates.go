package scaffold

import (
	"bytes"
	"text/template"
)

var manifestTemplate = template.Must(template.New("pyproject.toml").Parse(`[tool.poetry]
name = "{{.Name}}"
version = "0.1.0"
description = {{printf "%q" .Description}}
authors = []
readme = "README.md"
packages = [{ include = "{{.Module}}" }]

[tool.poetry.dependencies]
python = "{{.Python}}"
{{if .Black}}
[tool.black]
line-length = 120
target-version = ["py311", "py312"]
{{end}}{{if .Isort}}
[tool.isort]
profile = "black"
{{end}}{{if .Pytest}}
[tool.pytest.ini_options]
addopts = "--cov={{.Module}}"
testpaths = ["tests"]
{{end}}
[build-system]
requires = ["poetry-core"]
build-backend = "poetry.core.masonry.api"
`))

var sharedTemplate = template.Must(template.New("pyproject.toml").Parse(`[tool.poetry]
name = {{printf "%q" .Name}}
version = "1.0.0"
description = "Shared virtual environment"
authors = []
package-mode = false

[tool.poetry.dependencies]
python = {{printf "%q" .Python}}

[build-system]
requires = ["poetry-core"]
build-backend = "poetry.core.masonry.api"
`))

const poetryConfig = `[virtualenvs]
in-project = true
create = true
`

func render(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
