package graph

import (
	"fmt"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

// Serialize returns the transport form of the graph
func (g *Graph) Serialize() models.SerializedGraph {
	sg := models.SerializedGraph{
		Tables: make([]models.SerializedTable, 0, len(g.order)),
		Links:  g.Links(),
	}
	for _, name := range g.order {
		sg.Tables = append(sg.Tables, g.tables[name].Serialize())
	}
	if sg.Links == nil {
		sg.Links = []models.Link{}
	}
	return sg
}

// FromSerialized rebuilds a graph. Links are replayed through Link in order
// and the first failure aborts the rebuild.
func FromSerialized(sg models.SerializedGraph, opts ...Option) (*Graph, error) {
	tables := make([]*table.Table, 0, len(sg.Tables))
	for _, st := range sg.Tables {
		t, err := table.FromSerialized(st)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	g := New(tables, opts...)
	for i, l := range sg.Links {
		if err := g.Link(l.SourceTable, l.ForeignKeyColumn, l.DestinationTable); err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
	}
	return g, nil
}
