package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/scaffold"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// newCommand creates the new command.
func (c *CLI) newCommand() *cobra.Command {
	var (
		kind string
		opts scaffold.Options
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a Poetry project in the workspace",
		Long: `Create a Poetry project under the workspace's apps or libs directory.

The project gets a pyproject.toml, a project.json for the orchestrator, a
poetry.toml keeping its virtual environment in-project and an importable
package named after the project. The tool flags add the tools to the dev
dependency group together with their configuration.`,
		Example: `  monopy new billing --type application --pytest --black
  monopy new shared-utils --type library`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			opts.Kind = workspace.Kind(kind)
			opts.Logger = c.Logger
			return c.runNew(opts)
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(workspace.KindLibrary), "project type: application or library")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "project description")
	cmd.Flags().StringVar(&opts.Python, "python", scaffold.DefaultPython, "Python version constraint")
	cmd.Flags().BoolVar(&opts.Pytest, "pytest", false, "add pytest and pytest-cov")
	cmd.Flags().BoolVar(&opts.Pylint, "pylint", false, "add pylint")
	cmd.Flags().BoolVar(&opts.Black, "black", false, "add black")
	cmd.Flags().BoolVar(&opts.Pyright, "pyright", false, "add pyright")
	cmd.Flags().BoolVar(&opts.Isort, "isort", false, "add isort")
	return cmd
}

func (c *CLI) runNew(opts scaffold.Options) error {
	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	res, err := scaffold.Generate(ws, opts)
	if err != nil {
		return err
	}

	printSuccess("Created %s %s", res.Project.Kind, StyleHighlight.Render(res.Project.Name))
	for _, f := range res.Files {
		printFile(f)
	}
	printNextStep("Add it to the shared environment with", "monopy sync")
	return nil
}

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var name, python string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the shared environment manifest at the workspace root",
		Long: `Create the pyproject.toml and poetry.toml of the shared virtual environment
at the workspace root. The manifest is a non-package Poetry project whose
dependencies are filled in by "monopy sync".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace()
			if err != nil {
				return err
			}
			if err := scaffold.InitSharedEnvironment(ws, name, python); err != nil {
				return err
			}
			printSuccess("Created shared environment")
			printFile(ws.RootManifest())
			configPath := filepath.Join(ws.Root, workspace.ConfigFile)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := workspace.SaveConfig(ws.Root, ws.Config); err != nil {
					return err
				}
				printFile(configPath)
			}
			printNextStep("Fold the project manifests into it with", "monopy sync")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "project name (default: workspace directory name)")
	cmd.Flags().StringVar(&python, "python", scaffold.DefaultPython, "Python version constraint")
	return cmd
}
