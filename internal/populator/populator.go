package populator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/internal/generator"
	"github.com/gratitude5dee/kumorfm-go/pkg/graph"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

// batchSize is the number of rows written per ExecuteMany call
const batchSize = 100

// TableSpec describes a table to generate
type TableSpec struct {
	Name       string                 `json:"name" yaml:"name"`
	PrimaryKey string                 `json:"primaryKey,omitempty" yaml:"primary_key,omitempty"`
	Columns    []generator.ColumnSpec `json:"columns" yaml:"columns"`
	// Records overrides the populator's record count when positive
	Records int `json:"records,omitempty" yaml:"records,omitempty"`
}

func (s TableSpec) columnNames() []string {
	var names []string
	if s.PrimaryKey != "" {
		names = append(names, s.PrimaryKey)
	}
	for _, c := range s.Columns {
		if c.Name != s.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// DatasetPopulator fills a set of related tables with fake rows. Parents are
// generated before children so foreign keys always reference existing keys.
type DatasetPopulator struct {
	Specs         []TableSpec
	Links         []models.Link
	DataGenerator *generator.DataGenerator
	NumRecords    int
	InsertedData  map[string][]models.Row
	FailedTables  map[string]bool
	Logger        *logrus.Logger
}

// NewDatasetPopulator creates a new dataset populator
func NewDatasetPopulator(
	specs []TableSpec,
	links []models.Link,
	dataGenerator *generator.DataGenerator,
	numRecords int,
	logger *logrus.Logger,
) *DatasetPopulator {
	return &DatasetPopulator{
		Specs:         specs,
		Links:         links,
		DataGenerator: dataGenerator,
		NumRecords:    numRecords,
		InsertedData:  make(map[string][]models.Row),
		FailedTables:  make(map[string]bool),
		Logger:        logger,
	}
}

// Populate generates rows for every table and returns them as a graph with
// the declared links and inferred metadata
func (dp *DatasetPopulator) Populate() (*graph.Graph, error) {
	specs := make(map[string]TableSpec, len(dp.Specs))
	skeleton := make([]*table.Table, 0, len(dp.Specs))
	for _, s := range dp.Specs {
		specs[s.Name] = s
		skeleton = append(skeleton, table.NewWithColumns(s.Name, s.columnNames(), nil))
	}

	// The skeleton graph only orders tables; its tables hold no rows.
	sg := graph.New(skeleton, graph.WithLogger(dp.Logger))
	for _, l := range dp.Links {
		if err := sg.Link(l.SourceTable, l.ForeignKeyColumn, l.DestinationTable); err != nil {
			return nil, fmt.Errorf("link %s.%s: %w", l.SourceTable, l.ForeignKeyColumn, err)
		}
	}

	cyclic := make(map[string]bool)
	for _, name := range sg.CyclicTables() {
		cyclic[name] = true
	}

	for _, name := range sg.InsertionOrder() {
		if cyclic[name] {
			dp.populateCircularTable(specs[name])
		} else {
			dp.populateTable(specs[name])
		}
	}

	// Second pass: fill the circular foreign keys left empty above
	for _, l := range dp.Links {
		if cyclic[l.SourceTable] && cyclic[l.DestinationTable] {
			dp.fillCircularForeignKey(l, specs[l.DestinationTable])
		}
	}

	tables := make([]*table.Table, 0, len(dp.Specs))
	for _, s := range dp.Specs {
		t := table.NewWithColumns(s.Name, s.columnNames(), dp.InsertedData[s.Name])
		if s.PrimaryKey != "" {
			if _, err := t.SetPrimaryKey(s.PrimaryKey); err != nil {
				return nil, err
			}
		}
		if _, err := t.InferMetadata(); err != nil {
			dp.FailedTables[s.Name] = true
			return nil, fmt.Errorf("table %s: %w", s.Name, err)
		}
		tables = append(tables, t)
	}

	g := graph.New(tables, graph.WithLogger(dp.Logger))
	for _, l := range dp.Links {
		if err := g.Link(l.SourceTable, l.ForeignKeyColumn, l.DestinationTable); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (dp *DatasetPopulator) recordCount(s TableSpec) int {
	if s.Records > 0 {
		return s.Records
	}
	return dp.NumRecords
}

func (dp *DatasetPopulator) foreignKeys(tableName string) map[string]models.Link {
	fks := make(map[string]models.Link)
	for _, l := range dp.Links {
		if l.SourceTable == tableName {
			fks[l.ForeignKeyColumn] = l
		}
	}
	return fks
}

// populateTable generates a single table's rows
func (dp *DatasetPopulator) populateTable(s TableSpec) {
	dp.Logger.Infof("Populating table: %s", s.Name)

	fks := dp.foreignKeys(s.Name)
	n := dp.recordCount(s)
	for i := 0; i < n; i++ {
		record := dp.generateRecord(s, i, fks, nil)
		if record == nil {
			dp.FailedTables[s.Name] = true
			return
		}
		dp.InsertedData[s.Name] = append(dp.InsertedData[s.Name], record)
	}

	dp.Logger.Infof("Successfully populated table %s with %d records", s.Name, n)
}

// populateCircularTable generates rows for a table on a reference cycle,
// leaving foreign keys into the cycle nil for the second pass
func (dp *DatasetPopulator) populateCircularTable(s TableSpec) {
	dp.Logger.Infof("Populating circular dependency table: %s", s.Name)

	fks := dp.foreignKeys(s.Name)
	deferred := make(map[string]bool)
	for col, l := range fks {
		if len(dp.InsertedData[l.DestinationTable]) == 0 {
			deferred[col] = true
		}
	}

	n := dp.recordCount(s)
	for i := 0; i < n; i++ {
		dp.InsertedData[s.Name] = append(dp.InsertedData[s.Name], dp.generateRecord(s, i, fks, deferred))
	}

	dp.Logger.Infof("Successfully populated circular dependency table %s with %d records", s.Name, n)
}

// generateRecord generates one row. The primary key is the 1-based row
// number; foreign keys draw from the referenced table's keys. A nil row means
// a non-nullable foreign key had nothing to reference.
func (dp *DatasetPopulator) generateRecord(s TableSpec, index int, fks map[string]models.Link, deferred map[string]bool) models.Row {
	record := make(models.Row, len(s.Columns)+1)
	if s.PrimaryKey != "" {
		record[s.PrimaryKey] = index + 1
	}

	for _, column := range s.Columns {
		if column.Name == s.PrimaryKey {
			continue
		}

		l, isFK := fks[column.Name]
		switch {
		case isFK && deferred[column.Name]:
			record[column.Name] = nil
		case isFK:
			value := dp.getRandomForeignKeyValue(l)
			if value == nil && !column.Nullable {
				dp.Logger.Errorf("No value available for NOT NULL foreign key %s.%s referencing %s",
					s.Name, column.Name, l.DestinationTable)
				return nil
			}
			record[column.Name] = value
		default:
			record[column.Name] = dp.DataGenerator.GenerateData(column)
		}
	}
	return record
}

// fillCircularForeignKey sets a deferred foreign key on every row now that the
// referenced table has rows
func (dp *DatasetPopulator) fillCircularForeignKey(l models.Link, dst TableSpec) {
	if dst.PrimaryKey == "" || len(dp.InsertedData[l.DestinationTable]) == 0 {
		dp.Logger.Warningf("Referenced table %s has no keys, skipping update for %s.%s",
			l.DestinationTable, l.SourceTable, l.ForeignKeyColumn)
		return
	}
	for _, record := range dp.InsertedData[l.SourceTable] {
		if record[l.ForeignKeyColumn] == nil {
			record[l.ForeignKeyColumn] = dp.getRandomForeignKeyValue(l)
		}
	}
}

// getRandomForeignKeyValue picks a primary key value from the referenced table
func (dp *DatasetPopulator) getRandomForeignKeyValue(l models.Link) any {
	referenced := dp.InsertedData[l.DestinationTable]
	if len(referenced) == 0 {
		return nil
	}

	var pk string
	for _, s := range dp.Specs {
		if s.Name == l.DestinationTable {
			pk = s.PrimaryKey
		}
	}
	if pk == "" {
		return nil
	}
	return referenced[dp.DataGenerator.Rand.Intn(len(referenced))][pk]
}

// WriteTo creates the generated tables in a database and inserts their rows in
// insertion order
func (dp *DatasetPopulator) WriteTo(ctx context.Context, db *connector.DatabaseConnector, g *graph.Graph) error {
	for _, name := range g.InsertionOrder() {
		t, _ := g.Table(name)
		if err := dp.writeTable(ctx, db, t); err != nil {
			dp.FailedTables[name] = true
			return err
		}
	}
	return nil
}

func (dp *DatasetPopulator) writeTable(ctx context.Context, db *connector.DatabaseConnector, t *table.Table) error {
	meta := t.Metadata()
	columns := t.ColumnNames()

	defs := make([]string, len(columns))
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = db.QuoteIdent(col)
		placeholders[i] = "?"
		defs[i] = quoted[i] + " " + sqlType(meta.SemanticTypes[col])
		if col == meta.PrimaryKey {
			defs[i] += " PRIMARY KEY"
		}
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", db.QuoteIdent(t.Name()), strings.Join(defs, ", "))
	if _, err := db.ExecuteStatement(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name(), err)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		db.QuoteIdent(t.Name()),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	var paramsList [][]any
	for i, row := range t.Rows() {
		params := make([]any, len(columns))
		for j, col := range columns {
			params[j] = row[col]
		}
		paramsList = append(paramsList, params)

		// Insert in batches
		if len(paramsList) >= batchSize || i == t.RowCount()-1 {
			if _, err := db.ExecuteMany(ctx, insertSQL, paramsList); err != nil {
				dp.Logger.Errorf("Error inserting data into table %s: %v", t.Name(), err)
				return err
			}
			paramsList = nil
		}
	}

	dp.Logger.Infof("Wrote %d rows to %s", t.RowCount(), t.Name())
	return nil
}

func sqlType(st models.SemanticType) string {
	switch st {
	case models.Numerical:
		return "NUMERIC"
	case models.Temporal:
		return "VARCHAR(64)"
	default:
		return "TEXT"
	}
}
