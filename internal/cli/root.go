package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The logger level follows --verbose and the logger is attached to the
// command context, where subcommands retrieve it with loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "monopy manages Poetry projects in a monorepo",
		Long: `monopy keeps the Python projects of a monorepo consistent.

It folds every project's pyproject.toml into one shared virtual environment,
adds and removes dependencies (including dependencies on other workspace
projects), bundles local path dependencies into self-contained builds and
infers the project graph for the orchestrator.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.workspaceDir, "workspace", "w", "", "workspace root (default: current directory)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.syncCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.newCommand())
	root.AddCommand(c.initCommand())
	root.AddCommand(c.compatCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
