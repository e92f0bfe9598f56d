package graph

import (
	"sort"

	yb "github.com/yourbasic/graph"
)

// dependencyGraph builds a yourbasic graph with an edge from each referenced
// table to the table referencing it. Self references are left out.
func (g *Graph) dependencyGraph(skip map[string]bool) *yb.Mutable {
	index := make(map[string]int, len(g.order))
	for i, name := range g.order {
		index[name] = i
	}

	dg := yb.New(len(g.order))
	for _, l := range g.links {
		if l.SourceTable == l.DestinationTable || skip[l.SourceTable] || skip[l.DestinationTable] {
			continue
		}
		dg.Add(index[l.DestinationTable], index[l.SourceTable])
	}
	return dg
}

// CyclicTables returns the names of tables that lie on a cycle, sorted
func (g *Graph) CyclicTables() []string {
	cyclic := make(map[string]bool)
	for _, l := range g.links {
		if l.SourceTable == l.DestinationTable {
			cyclic[l.SourceTable] = true
		}
	}

	dg := g.dependencyGraph(nil)
	for _, component := range yb.StrongComponents(dg) {
		if len(component) < 2 {
			continue
		}
		for _, v := range component {
			cyclic[g.order[v]] = true
		}
	}

	names := make([]string, 0, len(cyclic))
	for name := range cyclic {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InsertionOrder returns the tables ordered so that every referenced table
// comes before the tables referencing it. Tables on a cycle cannot be
// ordered and are appended last, sorted by name.
func (g *Graph) InsertionOrder() []string {
	dg := g.dependencyGraph(nil)
	if order, ok := yb.TopSort(dg); ok {
		return g.names(order)
	}

	cyclic := g.CyclicTables()
	skip := make(map[string]bool, len(cyclic))
	for _, name := range cyclic {
		skip[name] = true
	}

	dg = g.dependencyGraph(skip)
	order, _ := yb.TopSort(dg)

	var ordered []string
	for _, name := range g.names(order) {
		if !skip[name] {
			ordered = append(ordered, name)
		}
	}
	return append(ordered, cyclic...)
}

func (g *Graph) names(order []int) []string {
	out := make([]string, len(order))
	for i, v := range order {
		out[i] = g.order[v]
	}
	return out
}
