package cli

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/build"
	"github.com/matzehuels/monopy/pkg/bundle"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output  string
		ignore  []string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "build [project]",
		Short: "Build a self-contained distribution of a project",
		Long: `Build a self-contained distribution of a project.

The project is copied into a staging directory together with every local
path dependency it reaches. Local dependencies become included packages and
their registry dependencies are merged into the staged manifest, which must
not declare the same dependency twice with different constraints. Poetry
builds the staged tree and the artifacts are copied to the output directory.

Builds are cached by a fingerprint of the project and its local
dependencies; use --no-cache to force a rebuild.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: c.completeProjects,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), args, output, ignore, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default: configured build.outputDir)")
	cmd.Flags().StringArrayVar(&ignore, "ignore", nil, "project-relative path to leave out of the build (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild even if the inputs are unchanged")
	return cmd
}

func (c *CLI) runBuild(ctx context.Context, args []string, output string, ignore []string, noCache bool) error {
	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	name, err := pickProject(ws, args, "Select a project to build", nil)
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
	cc, keyer, err := c.newCache(ctx, ws, noCache)
	if err != nil {
		return err
	}
	defer cc.Close()

	b := &build.Builder{
		Workspace: ws,
		Store:     store,
		Runner:    runner,
		Cache:     cc,
		Keyer:     keyer,
		TTL:       ws.Config.Cache.TTL,
		Ignore:    bundle.NewIgnore(slices.Concat(ws.Config.Build.IgnorePaths, ignore)...),
		OutputDir: output,
		Logger:    c.Logger,
	}

	prog := newProgress(loggerFromContext(ctx), "project", name)
	res, err := b.Build(ctx, name)
	if err != nil {
		reportConflict(err)
		return err
	}
	prog.done("build finished")

	printSuccess("Built %s", StyleHighlight.Render(res.Project))
	for _, a := range res.Artifacts {
		printFile(filepath.Join(res.OutputDir, a))
	}
	cached := res.Cached
	printStats(&cached, plural(len(res.Artifacts), "artifact"), "fingerprint "+res.Fingerprint[:12])
	return nil
}
