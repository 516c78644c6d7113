// Package workspace describes a monorepo of Poetry projects: where the
// projects live, how they are named and typed, how monopy is configured for
// the repository, and which environment is handed to the package manager.
//
// A workspace root holds an optional monopy.yaml ([Config]), an optional root
// pyproject.toml describing the shared virtual environment, and project
// directories under the configured apps and libs directories. Each project
// directory carries a project.json in the orchestrator's format ([Project]).
//
//	ws, err := workspace.Open(root)
//	for _, p := range ws.Registry.Projects() {
//	    fmt.Println(p.Name, p.Kind, p.Root)
//	}
package workspace
