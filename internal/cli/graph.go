package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monopy/pkg/errors"
	"github.com/matzehuels/monopy/pkg/graph"
	"github.com/matzehuels/monopy/pkg/render"
)

// Graph output formats.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the project dependency graph",
		Long: `Print the project dependency graph.

Edges come from local path dependencies declared in project manifests and
from the implicitDependencies of each project.json. Implicit edges are drawn
dashed; edges on a cycle are drawn red.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), format, output, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json, dot, svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include project roots in node labels (dot, svg)")
	return cmd
}

func (c *CLI) runGraph(ctx context.Context, format, output string, detailed bool) error {
	switch format {
	case formatJSON, formatDOT, formatSVG:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json, dot or svg)", format)
	}

	ws, err := c.openWorkspace()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}

	b, edges, err := graph.Build(ctx, ws.Registry, store)
	if err != nil {
		return err
	}
	g := b.Graph()

	var data []byte
	switch format {
	case formatJSON:
		data, err = graph.MarshalGraph(g)
	case formatDOT:
		data = []byte(render.ToDOT(g, render.Options{Detailed: detailed}))
	case formatSVG:
		data, err = withSpinner(ctx, "Laying out graph...", func() ([]byte, error) {
			return render.RenderSVG(ctx, render.ToDOT(g, render.Options{Detailed: detailed}))
		})
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
	}

	printSuccess("Wrote project graph")
	printFile(output)
	printStats(nil,
		plural(g.NodeCount(), "project"),
		plural(len(edges), "manifest edge"),
		plural(g.EdgeCount()-len(edges), "implicit edge"))
	if cycles := b.Cycles(); len(cycles) > 0 {
		printWarning("%s found", plural(len(cycles), "cycle"))
		for _, cycle := range cycles {
			printDetail("%s", strings.Join(cycle, " "+iconArrow+" "))
		}
	}
	return nil
}
