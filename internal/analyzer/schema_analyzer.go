package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
	"github.com/gratitude5dee/kumorfm-go/pkg/graph"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// SchemaAnalyzer reads the keys a database declares so they can be applied on
// top of what inference finds in the rows
type SchemaAnalyzer struct {
	DB          *connector.DatabaseConnector
	PrimaryKeys map[string]string
	ForeignKeys map[string][]models.Link
	Logger      *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(db *connector.DatabaseConnector, logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{
		DB:          db,
		PrimaryKeys: make(map[string]string),
		ForeignKeys: make(map[string][]models.Link),
		Logger:      logger,
	}
}

// AnalyzeSchema loads declared single-column primary keys and foreign keys
func (sa *SchemaAnalyzer) AnalyzeSchema(ctx context.Context) error {
	pkQuery, fkQuery := sa.queries()

	pkResult, _, err := sa.DB.ExecuteQuery(ctx, pkQuery, sa.params()...)
	if err != nil {
		sa.Logger.Errorf("Error getting primary keys: %v", err)
		return err
	}

	// Composite keys cannot serve as a table's primary key
	pkColumns := make(map[string][]string)
	var tables []string
	for _, row := range pkResult {
		table := fmt.Sprint(row["table_name"])
		if _, seen := pkColumns[table]; !seen {
			tables = append(tables, table)
		}
		pkColumns[table] = append(pkColumns[table], fmt.Sprint(row["column_name"]))
	}
	for _, table := range tables {
		if cols := pkColumns[table]; len(cols) == 1 {
			sa.PrimaryKeys[table] = cols[0]
		} else {
			sa.Logger.Debugf("Skipping composite primary key on %s: %v", table, cols)
		}
	}

	fkResult, _, err := sa.DB.ExecuteQuery(ctx, fkQuery, sa.params()...)
	if err != nil {
		sa.Logger.Errorf("Error getting foreign keys: %v", err)
		return err
	}

	for _, row := range fkResult {
		link := models.Link{
			SourceTable:      fmt.Sprint(row["table_name"]),
			ForeignKeyColumn: fmt.Sprint(row["column_name"]),
			DestinationTable: fmt.Sprint(row["referenced_table_name"]),
		}
		sa.ForeignKeys[link.SourceTable] = append(sa.ForeignKeys[link.SourceTable], link)
	}

	sa.Logger.Infof("Found %d declared primary keys and foreign keys on %d tables",
		len(sa.PrimaryKeys), len(sa.ForeignKeys))
	return nil
}

func (sa *SchemaAnalyzer) params() []any {
	if sa.DB.Driver == connector.DriverSQLite {
		return nil
	}
	return []any{sa.DB.Database}
}

func (sa *SchemaAnalyzer) queries() (pk, fk string) {
	if sa.DB.Driver == connector.DriverSQLite {
		pk = `
			SELECT m.name AS table_name, p.name AS column_name
			FROM sqlite_master m
			JOIN pragma_table_info(m.name) p
			WHERE m.type = 'table'
			AND p.pk > 0
			ORDER BY m.name, p.pk
		`
		fk = `
			SELECT
				m.name AS table_name,
				p."from" AS column_name,
				p."table" AS referenced_table_name
			FROM sqlite_master m
			JOIN pragma_foreign_key_list(m.name) p
			WHERE m.type = 'table'
			ORDER BY m.name, p."from"
		`
		return pk, fk
	}

	pk = `
		SELECT table_name AS table_name, column_name AS column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND constraint_name = 'PRIMARY'
		ORDER BY table_name, ordinal_position
	`
	fk = `
		SELECT
			table_name AS table_name,
			column_name AS column_name,
			referenced_table_name AS referenced_table_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND referenced_table_name IS NOT NULL
		ORDER BY table_name, column_name
	`
	return pk, fk
}

// Apply sets the declared primary keys and adds the declared links to g.
// Links already present are kept; links to tables outside g are skipped.
func (sa *SchemaAnalyzer) Apply(g *graph.Graph) error {
	for _, name := range g.TableNames() {
		pk, ok := sa.PrimaryKeys[name]
		if !ok {
			continue
		}
		t, _ := g.Table(name)
		if _, err := t.SetPrimaryKey(pk); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
	}

	for _, name := range g.TableNames() {
		for _, l := range sa.ForeignKeys[name] {
			err := g.Link(l.SourceTable, l.ForeignKeyColumn, l.DestinationTable)
			switch {
			case err == nil:
				sa.Logger.Debugf("Added declared link %s.%s -> %s", l.SourceTable, l.ForeignKeyColumn, l.DestinationTable)
			case errors.Is(err, apperrors.ErrDuplicateLink):
			case errors.Is(err, apperrors.ErrTableNotFound):
				sa.Logger.Warningf("Skipping declared link %s.%s -> %s: %v",
					l.SourceTable, l.ForeignKeyColumn, l.DestinationTable, err)
			default:
				return err
			}
		}
	}
	return nil
}

// ManyToManyTables returns the tables that look like junction tables: at
// least two links to two different tables, making up at least half of the
// table's columns
func ManyToManyTables(g *graph.Graph) map[string]bool {
	outgoing := make(map[string][]models.Link)
	for _, l := range g.Links() {
		outgoing[l.SourceTable] = append(outgoing[l.SourceTable], l)
	}

	junctions := make(map[string]bool)
	for _, name := range g.TableNames() {
		fks := outgoing[name]
		if len(fks) < 2 {
			continue
		}

		t, _ := g.Table(name)
		columns := len(t.ColumnNames())
		if columns == 0 || float64(len(fks))/float64(columns) < 0.5 {
			continue
		}

		referencedTables := make(map[string]bool)
		for _, fk := range fks {
			referencedTables[fk.DestinationTable] = true
		}
		if len(referencedTables) >= 2 {
			junctions[name] = true
		}
	}
	return junctions
}
