// Package render draws workspace project graphs.
//
// [ToDOT] produces Graphviz DOT source for a project graph built by
// pkg/graph; [RenderSVG] lays it out with the embedded Graphviz engine of
// go-graphviz, so no system Graphviz installation is needed:
//
//	dot := render.ToDOT(b.Graph(), render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Applications are drawn filled, libraries plain. Edges declared only in
// project.json are dashed, and edges on a dependency cycle are red.
package render
