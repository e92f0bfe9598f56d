package table

import (
	"fmt"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// Serialize returns the transport form of the table. Metadata is included
// once any of it has been inferred or declared.
func (t *Table) Serialize() models.SerializedTable {
	st := models.SerializedTable{
		Name:    t.name,
		Columns: t.ColumnNames(),
		Data:    t.rows,
	}
	if t.HasColumnMetadata() || t.metadata.PrimaryKey != "" || t.metadata.TimeColumn != "" {
		meta := t.metadata.Clone()
		st.Metadata = &meta
	}
	return st
}

// FromSerialized rebuilds a table. Metadata in the payload is trusted as-is;
// without it, inference runs and its error is returned.
func FromSerialized(st models.SerializedTable) (*Table, error) {
	t := New(st.Name, st.Data)
	if len(st.Columns) > 0 {
		t.columns = append([]string(nil), st.Columns...)
	}

	if st.Metadata != nil {
		t.metadata = st.Metadata.Clone()
		if len(t.metadata.Columns) > 0 {
			t.schema = &models.TableSchema{
				Name:          t.name,
				Columns:       t.metadata.Columns,
				RowCount:      len(t.rows),
				Relationships: []models.Link{},
			}
		}
		return t, nil
	}

	if _, err := t.InferMetadata(); err != nil {
		return nil, fmt.Errorf("table %s: %w", st.Name, err)
	}
	return t, nil
}
