package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/monopy/pkg/dag"
	"github.com/matzehuels/monopy/pkg/graph"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds the project root to node labels.
	Detailed bool

	// RankDir is the Graphviz rank direction. Defaults to "LR".
	RankDir string
}

// ToDOT converts a project graph to Graphviz DOT source.
func ToDOT(g *dag.DAG, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}
	onCycle := cycleEdges(g)

	var buf bytes.Buffer
	buf.WriteString("digraph workspace {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		var attrs []string
		if src, _ := e.Meta[graph.MetaSource].(string); src == graph.SourceImplicit {
			attrs = append(attrs, "style=dashed")
		}
		if onCycle[[2]string{e.From, e.To}] {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *dag.Node, detailed bool) []string {
	label := n.ID
	if root, _ := n.Meta[graph.MetaRoot].(string); detailed && root != "" {
		label += "\n" + root
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if kind, _ := n.Meta[graph.MetaKind].(string); kind == "application" {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	return attrs
}

// cycleEdges returns the edges that lie on a reported cycle.
func cycleEdges(g *dag.DAG) map[[2]string]bool {
	out := make(map[[2]string]bool)
	for _, c := range dag.FindCycles(g) {
		for i := 0; i+1 < len(c); i++ {
			out[[2]string{c[i], c[i+1]}] = true
		}
	}
	return out
}

// RenderSVG lays out DOT source and renders it to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg tag with one whose viewBox starts
// at the origin, so the image scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
