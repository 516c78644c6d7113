package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/api"
	"github.com/matzehuels/monopy/pkg/version"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the workspace",
		Long: `Serve a read-only HTTP view of the workspace for editor integrations.

Endpoints:
  GET /healthz                   build and workspace info
  GET /projects                  registered projects
  GET /projects/{name}           one project
  GET /projects/{name}/manifest  a project's parsed pyproject.toml
  GET /graph                     project graph as JSON
  GET /graph.dot                 project graph as Graphviz DOT
  GET /compat?a=..&b=..          version constraint compatibility
  GET /plan                      dry-run sync; 409 on a conflict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}
			store, err := newStore()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = ws.Config.Serve.Addr
			}

			srv := api.New(api.Options{
				Workspace: ws,
				Store:     store,
				Checker:   version.Checker{Logger: c.Logger},
				Logger:    c.Logger,
			})
			printInfo("Serving %s on %s", StyleHighlight.Render(ws.Root), StyleValue.Render(addr))
			return srv.Serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: configured serve.addr, :7070)")
	return cmd
}
