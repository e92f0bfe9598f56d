package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintMetadata writes every table's metadata
func (g *Graph) PrintMetadata(w io.Writer) {
	for _, name := range g.order {
		t := g.tables[name]
		fmt.Fprintf(w, "Table: %s (%d rows)\n", name, t.RowCount())
		fmt.Fprintf(w, "  Primary key: %s\n", orNone(t.PrimaryKey()))
		fmt.Fprintf(w, "  Time column: %s\n", orNone(t.TimeColumn()))

		meta := t.Metadata()
		if len(meta.Columns) == 0 {
			fmt.Fprintln(w, "  Columns: (not inferred)")
			for _, c := range t.ColumnNames() {
				fmt.Fprintf(w, "    - %s\n", c)
			}
			continue
		}

		fmt.Fprintln(w, "  Columns:")
		for _, c := range meta.Columns {
			var flags []string
			if c.IsPrimaryKeyCandidate {
				flags = append(flags, "pk-candidate")
			}
			if c.Nullable {
				flags = append(flags, fmt.Sprintf("nullable:%d", c.NullCount))
			}
			fmt.Fprintf(w, "    - %-24s %-12s unique=%d", c.Name, c.SemanticType, c.UniqueValueCount)
			if len(flags) > 0 {
				fmt.Fprintf(w, " [%s]", strings.Join(flags, ", "))
			}
			fmt.Fprintln(w)
		}
	}
}

// PrintLinks writes every link as src.column -> dst
func (g *Graph) PrintLinks(w io.Writer) {
	if len(g.links) == 0 {
		fmt.Fprintln(w, "No links")
		return
	}
	for _, l := range g.links {
		fmt.Fprintf(w, "%s.%s -> %s\n", l.SourceTable, l.ForeignKeyColumn, l.DestinationTable)
	}
}

// Visualize renders the graph as text: each table with its primary key and
// outgoing links, followed by the tables on a cycle
func (g *Graph) Visualize() string {
	var b strings.Builder

	outgoing := make(map[string][]string)
	incoming := make(map[string]int)
	for _, l := range g.links {
		outgoing[l.SourceTable] = append(outgoing[l.SourceTable],
			fmt.Sprintf("%s --> %s", l.ForeignKeyColumn, l.DestinationTable))
		incoming[l.DestinationTable]++
	}

	for _, name := range g.order {
		t := g.tables[name]
		fmt.Fprintf(&b, "[%s] pk=%s", name, orNone(t.PrimaryKey()))
		if incoming[name] > 0 {
			fmt.Fprintf(&b, " (referenced by %d)", incoming[name])
		}
		b.WriteString("\n")

		edges := outgoing[name]
		sort.Strings(edges)
		for i, e := range edges {
			branch := "├──"
			if i == len(edges)-1 {
				branch = "└──"
			}
			fmt.Fprintf(&b, "  %s %s\n", branch, e)
		}
	}

	if cyclic := g.CyclicTables(); len(cyclic) > 0 {
		fmt.Fprintf(&b, "Cycle: %s\n", strings.Join(cyclic, ", "))
	}

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
