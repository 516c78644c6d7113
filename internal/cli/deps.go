package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/envsync"
	"github.com/matzehuels/monopy/pkg/errors"
)

// depsFlags are shared by add and remove.
type depsFlags struct {
	local bool
	args  string
}

func (f *depsFlags) register(cmd *cobra.Command, verb string) {
	cmd.Flags().BoolVar(&f.local, "local", false, verb+" workspace projects as path dependencies")
	cmd.Flags().StringVar(&f.args, "args", "", `extra arguments for poetry, e.g. --args "--group dev"`)
}

// addCommand creates the add command.
func (c *CLI) addCommand() *cobra.Command {
	var flags depsFlags

	cmd := &cobra.Command{
		Use:   "add <project> <dependency>...",
		Short: "Add dependencies to a project and re-sync",
		Long: `Add dependencies to a project, then re-sync the shared environment.

Registry dependencies are added with "poetry add" in the project directory.
With --local the dependencies are workspace libraries: they are declared as
develop path dependencies (together with their own local dependencies),
installed into the project environment and recorded in project.json.`,
		Example: `  monopy add api requests "pydantic@^2.6"
  monopy add api pytest --args "--group dev"
  monopy add api shared-utils --local`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: c.completeProjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChange(cmd.Context(), true, args[0], args[1:], flags)
		},
	}
	flags.register(cmd, "add")
	return cmd
}

// removeCommand creates the remove command.
func (c *CLI) removeCommand() *cobra.Command {
	var flags depsFlags

	cmd := &cobra.Command{
		Use:     "remove <project> <dependency>...",
		Aliases: []string{"rm"},
		Short:   "Remove dependencies from a project and re-sync",
		Long: `Remove dependencies from a project, then re-sync the shared environment.

Workspace projects added with --local must be removed with --local.`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: c.completeProjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChange(cmd.Context(), false, args[0], args[1:], flags)
		},
	}
	flags.register(cmd, "remove")
	return cmd
}

func (c *CLI) runChange(ctx context.Context, add bool, project string, deps []string, flags depsFlags) error {
	if err := errors.ValidateDependencyNames(deps); err != nil {
		return err
	}
	if flags.local && flags.args != "" {
		return errors.New(errors.ErrCodeInvalidInput, "--args cannot be combined with --local")
	}

	opts := envsync.ChangeOptions{
		Project:      project,
		Dependencies: deps,
		Local:        flags.local,
		Args:         flags.args,
	}
	verb := "Removed"
	if add {
		verb = "Added"
	}
	err := c.withSyncer(func(s *envsync.Syncer) error {
		if add {
			return s.Add(ctx, opts)
		}
		return s.Remove(ctx, opts)
	})
	if err != nil {
		return err
	}

	printSuccess("%s %s in %s", verb, strings.Join(deps, ", "), StyleHighlight.Render(project))
	if flags.local {
		printDetail("implicitDependencies of %s updated", project)
	}
	return nil
}

// updateCommand creates the update command.
func (c *CLI) updateCommand() *cobra.Command {
	var args string

	cmd := &cobra.Command{
		Use:   "update <project> [dependency]...",
		Short: "Update a project's dependencies and re-sync",
		Long: `Run "poetry update" in a project, restricted to the given dependencies
when any are named, then re-sync the shared environment.`,
		Example: `  monopy update api
  monopy update api requests --args "--lock"`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeProjects,
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			deps := posArgs[1:]
			if len(deps) > 0 {
				if err := errors.ValidateDependencyNames(deps); err != nil {
					return err
				}
			}
			return c.withSyncer(func(s *envsync.Syncer) error {
				if err := s.Update(cmd.Context(), envsync.ChangeOptions{Project: posArgs[0], Dependencies: deps, Args: args}); err != nil {
					return err
				}
				printSuccess("Updated %s", StyleHighlight.Render(posArgs[0]))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&args, "args", "", `extra arguments for poetry, e.g. --args "--lock"`)
	return cmd
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var args string

	cmd := &cobra.Command{
		Use:               "install <project>",
		Short:             "Install a project's environment and re-sync",
		Long:              `Run "poetry install" in a project, then re-sync the shared environment.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeProjects,
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			return c.withSyncer(func(s *envsync.Syncer) error {
				if err := s.Install(cmd.Context(), posArgs[0], args); err != nil {
					return err
				}
				printSuccess("Installed %s", StyleHighlight.Render(posArgs[0]))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&args, "args", "", `extra arguments for poetry, e.g. --args "--no-root"`)
	return cmd
}

// withSyncer runs fn with a syncer for the current workspace and reports a
// dependency conflict if fn fails with one.
func (c *CLI) withSyncer(fn func(*envsync.Syncer) error) error {
	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ws)
	if err != nil {
		return err
	}
	if err := fn(c.newSyncer(ws, store, runner)); err != nil {
		reportConflict(err)
		return err
	}
	return nil
}
