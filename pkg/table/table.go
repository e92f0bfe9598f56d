// Package table owns one table's rows and metadata: it drives column
// inference, guards explicit metadata edits and validates itself. A Table
// knows nothing about any graph that contains it.
package table

import (
	"fmt"
	"sort"

	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
	"github.com/gratitude5dee/kumorfm-go/pkg/inference"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// HighNullRate is the fraction of nulls above which a column is flagged
const HighNullRate = 0.5

// Table is a named row set plus its metadata
type Table struct {
	name     string
	rows     []models.Row
	columns  []string
	metadata models.TableMetadata
	schema   *models.TableSchema
}

// New creates a table. Columns are discovered from the first row's keys, in
// sorted order since Go maps carry no order.
func New(name string, rows []models.Row) *Table {
	return &Table{
		name:     name,
		rows:     rows,
		metadata: models.TableMetadata{SemanticTypes: make(map[string]models.SemanticType)},
	}
}

// NewWithColumns creates a table with an explicit column order. Inference
// analyses exactly these columns.
func NewWithColumns(name string, columns []string, rows []models.Row) *Table {
	t := New(name, rows)
	t.columns = append([]string(nil), columns...)
	return t
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Rows returns the table's rows. The slice is shared with the table.
func (t *Table) Rows() []models.Row {
	return t.rows
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Metadata returns a copy of the table's metadata
func (t *Table) Metadata() models.TableMetadata {
	return t.metadata.Clone()
}

// PrimaryKey returns the primary key column, or "" when none is set
func (t *Table) PrimaryKey() string {
	return t.metadata.PrimaryKey
}

// TimeColumn returns the time column, or "" when none is set
func (t *Table) TimeColumn() string {
	return t.metadata.TimeColumn
}

// HasColumnMetadata reports whether column metadata has been computed or
// declared
func (t *Table) HasColumnMetadata() bool {
	return len(t.metadata.Columns) > 0
}

// Schema returns the snapshot produced by the last inference run
func (t *Table) Schema() (models.TableSchema, bool) {
	if t.schema == nil {
		return models.TableSchema{}, false
	}
	s := *t.schema
	s.Columns = append([]models.ColumnMetadata(nil), t.schema.Columns...)
	s.Relationships = []models.Link{}
	return s, true
}

// ColumnNames returns the currently known columns: from metadata when it
// exists, otherwise from the declared columns or the first row's keys.
func (t *Table) ColumnNames() []string {
	if len(t.metadata.Columns) > 0 {
		names := make([]string, len(t.metadata.Columns))
		for i, c := range t.metadata.Columns {
			names[i] = c.Name
		}
		return names
	}
	return t.discoverColumns()
}

// HasColumn reports whether name is among ColumnNames
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.ColumnNames() {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) discoverColumns() []string {
	if t.columns != nil {
		return append([]string(nil), t.columns...)
	}
	if len(t.rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.rows[0]))
	for k := range t.rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns one column's values in row order, nil where a row lacks it
func (t *Table) Values(column string) []any {
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[column]
	}
	return values
}

// InferMetadata analyses every column and fills in semantic types, the time
// column and the primary key. A primary key or time column that is already
// set is never replaced.
func (t *Table) InferMetadata() (*Table, error) {
	if len(t.rows) == 0 {
		return t, apperrors.NewDataError(apperrors.CodeEmptyTable, "cannot infer metadata from an empty table")
	}

	semanticTypes := make(map[string]models.SemanticType)
	var columns []models.ColumnMetadata

	for _, name := range t.discoverColumns() {
		meta := inference.AnalyzeColumn(t.Values(name), name)

		switch meta.SemanticType {
		case models.Temporal:
			semanticTypes[name] = meta.SemanticType
			if t.metadata.TimeColumn == "" {
				t.metadata.TimeColumn = name
			}
		case models.Numerical, models.Categorical:
			semanticTypes[name] = meta.SemanticType
		}

		if meta.UniqueValueCount == len(t.rows) && !meta.Nullable {
			meta.IsPrimaryKeyCandidate = true
			if t.metadata.PrimaryKey == "" {
				t.metadata.PrimaryKey = name
			}
		}

		columns = append(columns, meta)
	}

	t.metadata.SemanticTypes = semanticTypes
	t.metadata.Columns = columns
	t.schema = &models.TableSchema{
		Name:          t.name,
		Columns:       columns,
		RowCount:      len(t.rows),
		Relationships: []models.Link{},
	}

	return t, nil
}

// SetPrimaryKey declares the primary key, overriding any inferred one
func (t *Table) SetPrimaryKey(column string) (*Table, error) {
	if err := t.requireColumn(column); err != nil {
		return t, err
	}
	t.metadata.PrimaryKey = column
	return t, nil
}

// SetTimeColumn declares the time column, overriding any inferred one
func (t *Table) SetTimeColumn(column string) (*Table, error) {
	if err := t.requireColumn(column); err != nil {
		return t, err
	}
	t.metadata.TimeColumn = column
	return t, nil
}

// ClearPrimaryKey removes the primary key so a later inference run can set it
func (t *Table) ClearPrimaryKey() *Table {
	t.metadata.PrimaryKey = ""
	return t
}

// ClearTimeColumn removes the time column so a later inference run can set it
func (t *Table) ClearTimeColumn() *Table {
	t.metadata.TimeColumn = ""
	return t
}

func (t *Table) requireColumn(column string) error {
	if !t.HasColumn(column) {
		return apperrors.NewValidationError(apperrors.CodeColumnNotFound,
			"column %q does not exist in table %q", column, t.name)
	}
	return nil
}

// Validate reports a missing primary key as an error and columns with a high
// null rate as warnings. It never changes the table.
func (t *Table) Validate() models.ValidationResult {
	result := models.ValidationResult{
		Errors:   []models.ValidationIssue{},
		Warnings: []models.ValidationIssue{},
	}

	if t.metadata.PrimaryKey == "" {
		result.Errors = append(result.Errors, models.ValidationIssue{
			Type:    models.MissingPrimaryKey,
			Message: fmt.Sprintf("table %q has no primary key", t.name),
			Table:   t.name,
		})
	}

	for _, col := range t.metadata.Columns {
		if float64(col.NullCount) > HighNullRate*float64(len(t.rows)) {
			result.Warnings = append(result.Warnings, models.ValidationIssue{
				Type:    models.HighNullRate,
				Message: fmt.Sprintf("column %q has %d nulls in %d rows", col.Name, col.NullCount, len(t.rows)),
				Field:   col.Name,
				Table:   t.name,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
