package models

// Row is a single record keyed by column name. A missing key is treated as null.
type Row map[string]any

// SemanticType is the statistical role of a column, independent of how its
// values are stored
type SemanticType string

const (
	Numerical   SemanticType = "numerical"
	Categorical SemanticType = "categorical"
	Temporal    SemanticType = "temporal"
	Text        SemanticType = "text"
)

// ColumnMetadata describes one column as derived from its values
type ColumnMetadata struct {
	Name                  string       `json:"name" yaml:"name"`
	SemanticType          SemanticType `json:"semanticType" yaml:"semanticType"`
	Nullable              bool         `json:"nullable" yaml:"nullable"`
	IsPrimaryKeyCandidate bool         `json:"isPrimaryKeyCandidate" yaml:"isPrimaryKeyCandidate"`
	UniqueValueCount      int          `json:"uniqueValueCount" yaml:"uniqueValueCount"`
	NullCount             int          `json:"nullCount" yaml:"nullCount"`
}

// TableMetadata holds the declared or inferred metadata of a table
type TableMetadata struct {
	PrimaryKey    string                  `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	TimeColumn    string                  `json:"timeColumn,omitempty" yaml:"timeColumn,omitempty"`
	SemanticTypes map[string]SemanticType `json:"semanticTypes" yaml:"semanticTypes"`
	Columns       []ColumnMetadata        `json:"columns" yaml:"columns"`
}

// Clone returns a deep copy of the metadata
func (m TableMetadata) Clone() TableMetadata {
	out := TableMetadata{
		PrimaryKey:    m.PrimaryKey,
		TimeColumn:    m.TimeColumn,
		SemanticTypes: make(map[string]SemanticType, len(m.SemanticTypes)),
	}
	for k, v := range m.SemanticTypes {
		out.SemanticTypes[k] = v
	}
	if m.Columns != nil {
		out.Columns = append([]ColumnMetadata(nil), m.Columns...)
	}
	return out
}

// Column returns the metadata of the named column, if it was computed
func (m TableMetadata) Column(name string) (ColumnMetadata, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMetadata{}, false
}

// TableSchema is a read-only snapshot produced by metadata inference
type TableSchema struct {
	Name          string
	Columns       []ColumnMetadata
	RowCount      int
	Relationships []Link
}

// Link is a directed foreign-key edge from the table holding the key to the
// table it references
type Link struct {
	SourceTable      string `json:"sourceTable" yaml:"sourceTable"`
	ForeignKeyColumn string `json:"foreignKeyColumn" yaml:"foreignKeyColumn"`
	DestinationTable string `json:"destinationTable" yaml:"destinationTable"`
}

// IssueType enumerates validation error and warning kinds
type IssueType string

const (
	MissingPrimaryKey  IssueType = "MISSING_PRIMARY_KEY"
	HighNullRate       IssueType = "HIGH_NULL_RATE"
	InvalidLink        IssueType = "INVALID_LINK"
	NullableForeignKey IssueType = "NULLABLE_FOREIGN_KEY"
	CircularReference  IssueType = "CIRCULAR_REFERENCE"
)

// ValidationIssue is a single validation error or warning
type ValidationIssue struct {
	Type    IssueType `json:"type" yaml:"type"`
	Message string    `json:"message" yaml:"message"`
	Field   string    `json:"field,omitempty" yaml:"field,omitempty"`
	Table   string    `json:"table,omitempty" yaml:"table,omitempty"`
}

// ValidationResult is returned by every Validate operation
type ValidationResult struct {
	Valid    bool              `json:"valid" yaml:"valid"`
	Errors   []ValidationIssue `json:"errors" yaml:"errors"`
	Warnings []ValidationIssue `json:"warnings" yaml:"warnings"`
}

// SerializedTable is the transport form of a table. Columns carries the
// column order, which a JSON object cannot.
type SerializedTable struct {
	Name     string         `json:"name" yaml:"name"`
	Columns  []string       `json:"columns,omitempty" yaml:"columns,omitempty"`
	Data     []Row          `json:"data" yaml:"data"`
	Metadata *TableMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SerializedGraph is the transport form of a graph
type SerializedGraph struct {
	Tables []SerializedTable `json:"tables" yaml:"tables"`
	Links  []Link            `json:"links" yaml:"links"`
}
