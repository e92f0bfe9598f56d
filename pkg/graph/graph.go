// Package graph links tables through directed foreign-key edges, infers
// likely edges from column naming, and validates the resulting schema graph.
package graph

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

// Graph is a named set of tables plus the foreign-key links between them
type Graph struct {
	tables  map[string]*table.Table
	order   []string
	links   []models.Link
	isValid bool
	logger  *logrus.Logger
	inflect bool
}

// Option configures a Graph
type Option func(*Graph)

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *logrus.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithInflection makes link inference also accept English irregular plurals
// (category_id -> categories, person_id -> people)
func WithInflection() Option {
	return func(g *Graph) {
		g.inflect = true
	}
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// New creates a graph over tables. When two tables share a name the later
// one replaces the earlier one and keeps its position.
func New(tables []*table.Table, opts ...Option) *Graph {
	g := &Graph{
		tables: make(map[string]*table.Table, len(tables)),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, t := range tables {
		if _, exists := g.tables[t.Name()]; exists {
			g.logger.Warnf("Duplicate table name %s, replacing the earlier table", t.Name())
		} else {
			g.order = append(g.order, t.Name())
		}
		g.tables[t.Name()] = t
	}

	return g
}

// Table returns the named table
func (g *Graph) Table(name string) (*table.Table, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// Tables returns the tables in construction order
func (g *Graph) Tables() []*table.Table {
	out := make([]*table.Table, len(g.order))
	for i, name := range g.order {
		out[i] = g.tables[name]
	}
	return out
}

// TableNames returns the table names in construction order
func (g *Graph) TableNames() []string {
	return append([]string(nil), g.order...)
}

// Links returns a copy of the links in insertion order
func (g *Graph) Links() []models.Link {
	return append([]models.Link(nil), g.links...)
}

// IsValid returns the validity cached by the last Validate call. Link and
// Unlink reset it.
func (g *Graph) IsValid() bool {
	return g.isValid
}

// Link adds a foreign-key edge from src.column to dst
func (g *Graph) Link(src, column, dst string) error {
	srcTable, ok := g.tables[src]
	if !ok {
		return apperrors.NewValidationError(apperrors.CodeTableNotFound, "source table %q not found", src)
	}
	if _, ok := g.tables[dst]; !ok {
		return apperrors.NewValidationError(apperrors.CodeTableNotFound, "destination table %q not found", dst)
	}
	if !srcTable.HasColumn(column) {
		return apperrors.NewValidationError(apperrors.CodeColumnNotFound,
			"column %q does not exist in table %q", column, src)
	}

	link := models.Link{SourceTable: src, ForeignKeyColumn: column, DestinationTable: dst}
	if g.indexOf(link) >= 0 {
		return apperrors.NewValidationError(apperrors.CodeDuplicateLink,
			"link %s.%s -> %s already exists", src, column, dst)
	}

	g.links = append(g.links, link)
	g.isValid = false
	g.logger.Debugf("Linked %s.%s -> %s", src, column, dst)
	return nil
}

// Unlink removes the matching foreign-key edge
func (g *Graph) Unlink(src, column, dst string) error {
	i := g.indexOf(models.Link{SourceTable: src, ForeignKeyColumn: column, DestinationTable: dst})
	if i < 0 {
		return apperrors.NewValidationError(apperrors.CodeLinkNotFound,
			"link %s.%s -> %s does not exist", src, column, dst)
	}

	g.links = append(g.links[:i:i], g.links[i+1:]...)
	g.isValid = false
	g.logger.Debugf("Unlinked %s.%s -> %s", src, column, dst)
	return nil
}

func (g *Graph) indexOf(link models.Link) int {
	for i, l := range g.links {
		if l == link {
			return i
		}
	}
	return -1
}

// InferLinks links every column named like a foreign key (<base>_id or
// <base>Id) to each other table whose name matches base and which has a
// primary key. Links that already exist are skipped; any other failure is
// returned.
func (g *Graph) InferLinks() error {
	for _, srcName := range g.order {
		src := g.tables[srcName]
		for _, column := range src.ColumnNames() {
			base, ok := foreignKeyBase(column)
			if !ok {
				continue
			}

			for _, dstName := range g.order {
				if dstName == srcName || !g.namesMatch(base, dstName) {
					continue
				}
				if g.tables[dstName].PrimaryKey() == "" {
					continue
				}

				err := g.Link(srcName, column, dstName)
				if errors.Is(err, apperrors.ErrDuplicateLink) {
					g.logger.Debugf("Skipping inferred link %s.%s -> %s: already linked", srcName, column, dstName)
					continue
				}
				if err != nil {
					return fmt.Errorf("inferring link %s.%s -> %s: %w", srcName, column, dstName, err)
				}
				g.logger.Infof("Inferred link %s.%s -> %s", srcName, column, dstName)
			}
		}
	}
	return nil
}

func foreignKeyBase(column string) (string, bool) {
	if strings.HasSuffix(column, "_id") {
		return strings.TrimSuffix(column, "_id"), true
	}
	if strings.HasSuffix(column, "Id") {
		return strings.TrimSuffix(column, "Id"), true
	}
	return "", false
}

func (g *Graph) namesMatch(base, tableName string) bool {
	b := strings.ToLower(base)
	n := strings.ToLower(tableName)

	if b == n || b+"s" == n || n+"s" == b {
		return true
	}
	if g.inflect && b != "" {
		return inflection.Plural(b) == n || inflection.Singular(n) == b
	}
	return false
}

// Validate pools every table's own validation with link and cycle checks.
// Warnings never affect validity.
func (g *Graph) Validate() models.ValidationResult {
	result := models.ValidationResult{
		Errors:   []models.ValidationIssue{},
		Warnings: []models.ValidationIssue{},
	}

	for _, name := range g.order {
		tr := g.tables[name].Validate()
		result.Errors = append(result.Errors, tr.Errors...)
		result.Warnings = append(result.Warnings, tr.Warnings...)
	}

	for _, link := range g.links {
		if g.tables[link.DestinationTable].PrimaryKey() == "" {
			result.Errors = append(result.Errors, models.ValidationIssue{
				Type: models.InvalidLink,
				Message: fmt.Sprintf("link %s.%s -> %s references a table without a primary key",
					link.SourceTable, link.ForeignKeyColumn, link.DestinationTable),
				Field: link.ForeignKeyColumn,
				Table: link.SourceTable,
			})
		}

		src := g.tables[link.SourceTable]
		if _, ok := src.Schema(); ok {
			if col, ok := src.Metadata().Column(link.ForeignKeyColumn); ok && col.Nullable {
				result.Warnings = append(result.Warnings, models.ValidationIssue{
					Type:    models.NullableForeignKey,
					Message: fmt.Sprintf("foreign key %s.%s is nullable", link.SourceTable, link.ForeignKeyColumn),
					Field:   link.ForeignKeyColumn,
					Table:   link.SourceTable,
				})
			}
		}
	}

	if g.hasCycle() {
		result.Errors = append(result.Errors, models.ValidationIssue{
			Type:    models.CircularReference,
			Message: "circular reference detected between linked tables",
		})
	}

	result.Valid = len(result.Errors) == 0
	g.isValid = result.Valid
	return result
}

// hasCycle runs an iterative depth-first search over the links and stops at
// the first back edge
func (g *Graph) hasCycle() bool {
	const (
		unvisited = iota
		onStack
		done
	)

	adj := make(map[string][]string, len(g.order))
	for _, l := range g.links {
		adj[l.SourceTable] = append(adj[l.SourceTable], l.DestinationTable)
	}

	type frame struct {
		node string
		next int
	}

	state := make(map[string]int, len(g.order))
	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}

		stack := []frame{{node: start}}
		state[start] = onStack
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(adj[top.node]) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				continue
			}

			next := adj[top.node][top.next]
			top.next++
			switch state[next] {
			case onStack:
				return true
			case unvisited:
				state[next] = onStack
				stack = append(stack, frame{node: next})
			}
		}
	}
	return false
}

// FromTables builds a graph from pre-built tables. With infer set, metadata
// is inferred for every table and links are inferred afterwards.
func FromTables(tables []*table.Table, infer bool, opts ...Option) (*Graph, error) {
	if infer {
		for _, t := range tables {
			if _, err := t.InferMetadata(); err != nil {
				return nil, fmt.Errorf("table %s: %w", t.Name(), err)
			}
		}
	}

	g := New(tables, opts...)
	if infer {
		if err := g.InferLinks(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// FromRowData builds one table per entry, in table name order. Rows are maps,
// so each table's columns are taken in sorted name order and the first unique
// column in that order becomes the primary key. Callers that need the source
// column order should build tables with table.NewWithColumns and use
// FromTables.
func FromRowData(data map[string][]models.Row, infer bool, opts ...Option) (*Graph, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*table.Table, 0, len(names))
	for _, name := range names {
		tables = append(tables, table.New(name, data[name]))
	}
	return FromTables(tables, infer, opts...)
}
