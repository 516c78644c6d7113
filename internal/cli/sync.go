package cli

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/envsync"
	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/manifest"
)

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the shared virtual environment",
		Long: `Rebuild the shared virtual environment from every project manifest.

The dependencies of the root pyproject.toml are replaced by the fold of all
project manifests, then "poetry lock" and "poetry install --sync" run in the
workspace root. Nothing is written when two projects declare incompatible
constraints for the same dependency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context())
		},
	}
}

func (c *CLI) runSync(ctx context.Context) error {
	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	if !manifest.Exists(ws.RootManifest()) {
		printWarning("No shared environment at %s", ws.RootManifest())
		printNextStep("Create one with", "monopy init")
		return nil
	}
	store, err := newStore()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ws)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx), "projects", ws.Registry.Len())
	if err := c.newSyncer(ws, store, runner).Sync(ctx); err != nil {
		reportConflict(err)
		return err
	}
	prog.done("shared environment synced")
	printSuccess("Shared environment is up to date")
	return nil
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that all project manifests can share one environment",
		Long: `Fold every project manifest into the shared environment without writing
anything or running Poetry, and report the first version conflict found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), show)
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the shared manifest a sync would write")
	return cmd
}

func (c *CLI) runCheck(ctx context.Context, show bool) error {
	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}

	syncer := c.newSyncer(ws, store, nil)
	plan, err := withSpinner(ctx, "Folding project manifests...", func() (*envsync.Plan, error) {
		return syncer.Plan(ctx)
	})
	if err != nil {
		reportConflict(err)
		return err
	}
	printSuccess("No conflicts across %s", plural(len(plan.Folded), "project"))
	for _, name := range plan.Skipped {
		printDetail("%s has no %s", name, manifest.FileName)
	}

	if show {
		data, err := manifest.Encode(plan.Manifest)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	return nil
}

// reportConflict prints both sides of a dependency conflict.
func reportConflict(err error) {
	var conflict *errors.ConflictError
	if !stderrors.As(err, &conflict) {
		return
	}
	printError("Conflicting constraints for %s", StyleHighlight.Render(conflict.Dependency))
	printDetail("%s wants %s", conflict.Projects[0], StyleError.Render(conflict.Versions[0]))
	printDetail("%s wants %s", conflict.Projects[1], StyleError.Render(conflict.Versions[1]))
}
