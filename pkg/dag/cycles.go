package dag

import "slices"

// FindCycles returns one cycle per back edge found by a depth-first search
// started from every node in insertion order. Each cycle lists node IDs from
// the first repeated node back to itself ("a", "b", "a").
func FindCycles(g *DAG) [][]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var (
		stack  []string
		cycles [][]string
	)

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, child := range g.Children(node) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				start := slices.Index(stack, child)
				cycle := append(slices.Clone(stack[start:]), child)
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, id := range g.order {
		if color[id] == white {
			dfs(id)
		}
	}
	return cycles
}

// TopoOrder returns node IDs with every dependency before its dependents.
// Ties keep insertion order. It returns ErrGraphHasCycle if no such order
// exists.
func TopoOrder(g *DAG) ([]string, error) {
	remaining := make(map[string]int, g.NodeCount())
	for _, id := range g.order {
		remaining[id] = len(g.outgoing[id])
	}

	out := make([]string, 0, len(g.order))
	placed := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if placed[id] || remaining[id] > 0 {
				continue
			}
			placed[id] = true
			out = append(out, id)
			for _, parent := range g.incoming[id] {
				remaining[parent]--
			}
			progressed = true
		}
		if !progressed {
			return nil, ErrGraphHasCycle
		}
	}
	return out, nil
}
