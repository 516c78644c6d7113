package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/monopy/pkg/dag"
	"github.com/matzehuels/monopy/pkg/graph"
)

func projectGraph(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New(nil)
	for _, n := range []dag.Node{
		{ID: "api", Meta: dag.Metadata{graph.MetaKind: "application", graph.MetaRoot: "apps/api"}},
		{ID: "core", Meta: dag.Metadata{graph.MetaKind: "library", graph.MetaRoot: "libs/core"}},
		{ID: "util", Meta: dag.Metadata{graph.MetaKind: "library", graph.MetaRoot: "libs/util"}},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []dag.Edge{
		{From: "api", To: "core", Meta: dag.Metadata{graph.MetaSource: graph.SourceManifest}},
		{From: "api", To: "util", Meta: dag.Metadata{graph.MetaSource: graph.SourceImplicit}},
	} {
		if err := g.AddEdge(e); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(projectGraph(t), Options{})

	for _, want := range []string{
		"digraph workspace {",
		"rankdir=LR;",
		`"api" [label="api", fillcolor=lightblue];`,
		`"core" [label="core"];`,
		`"api" -> "core";`,
		`"api" -> "util" [style=dashed];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "color=red") {
		t.Error("acyclic graph should have no cycle edges")
	}
}

func TestToDOTDetailedAndCycles(t *testing.T) {
	g := projectGraph(t)
	if err := g.AddEdge(dag.Edge{From: "core", To: "api"}); err != nil {
		t.Fatal(err)
	}
	dot := ToDOT(g, Options{Detailed: true, RankDir: "TB"})

	for _, want := range []string{
		"rankdir=TB;",
		`label="core\nlibs/core"`,
		`"api" -> "core" [color=red, penwidth=2];`,
		`"core" -> "api" [color=red, penwidth=2];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(projectGraph(t), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `)) {
		t.Errorf("unexpected SVG header:\n%.300s", svg)
	}
	if !bytes.Contains(svg, []byte("api")) {
		t.Error("SVG should contain node labels")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("without viewBox = %s", got)
	}
}
