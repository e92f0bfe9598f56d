package table

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

func ordersTable() *Table {
	return NewWithColumns("orders", []string{"order_id", "user_id", "status", "created_at", "note"}, []models.Row{
		{"order_id": 1, "user_id": 10, "status": "paid", "created_at": "2024-01-01", "note": nil},
		{"order_id": 2, "user_id": 10, "status": "paid", "created_at": "2024-01-02", "note": nil},
		{"order_id": 3, "user_id": 11, "status": "paid", "created_at": "2024-01-03", "note": "gift"},
		{"order_id": 4, "user_id": 12, "status": "open", "created_at": "2024-01-04", "note": nil},
		{"order_id": 5, "user_id": 12, "status": "paid", "created_at": "2024-01-05"},
	})
}

func TestInferMetadata(t *testing.T) {
	tbl, err := ordersTable().InferMetadata()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	meta := tbl.Metadata()
	if meta.PrimaryKey != "order_id" {
		t.Errorf("Expected primary key order_id, got %q", meta.PrimaryKey)
	}
	if meta.TimeColumn != "created_at" {
		t.Errorf("Expected time column created_at, got %q", meta.TimeColumn)
	}

	want := map[string]models.SemanticType{
		"order_id":   models.Numerical,
		"user_id":    models.Numerical,
		"status":     models.Categorical,
		"created_at": models.Temporal,
	}
	if !reflect.DeepEqual(meta.SemanticTypes, want) {
		t.Errorf("Expected semantic types %v, got %v", want, meta.SemanticTypes)
	}

	// text columns are not recorded in the semantic type map
	if _, ok := meta.SemanticTypes["note"]; ok {
		t.Error("Expected text column note to be absent from semantic types")
	}

	note, ok := meta.Column("note")
	if !ok {
		t.Fatal("Expected note column metadata")
	}
	if note.NullCount != 4 || !note.Nullable {
		t.Errorf("Expected note to have 4 nulls and be nullable, got %+v", note)
	}

	schema, ok := tbl.Schema()
	if !ok {
		t.Fatal("Expected schema after inference")
	}
	if schema.RowCount != 5 || len(schema.Columns) != 5 || len(schema.Relationships) != 0 {
		t.Errorf("Unexpected schema snapshot: %+v", schema)
	}
}

func TestInferMetadataIsDeterministic(t *testing.T) {
	tbl := ordersTable()
	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}
	first := tbl.Metadata()

	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}
	second := tbl.Metadata()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical metadata across runs, got %+v and %+v", first, second)
	}
}

func TestPrimaryKeyFirstWins(t *testing.T) {
	tbl := NewWithColumns("t", []string{"b", "a"}, []models.Row{
		{"a": 1, "b": "x"},
		{"a": 2, "b": "y"},
	})
	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}

	meta := tbl.Metadata()
	if meta.PrimaryKey != "b" {
		t.Errorf("Expected first qualifying column b to win, got %q", meta.PrimaryKey)
	}
	for _, c := range meta.Columns {
		if !c.IsPrimaryKeyCandidate {
			t.Errorf("Expected %s to be a primary key candidate", c.Name)
		}
	}
}

func TestColumnsWithoutExplicitOrderAreSorted(t *testing.T) {
	tbl := New("t", []models.Row{{"zeta": 1, "alpha": 2}, {"zeta": 3, "alpha": 4, "extra": 5}})

	got := tbl.ColumnNames()
	if !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("Expected first row keys sorted, got %v", got)
	}

	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}
	if tbl.Metadata().PrimaryKey != "alpha" {
		t.Errorf("Expected alpha as primary key, got %q", tbl.Metadata().PrimaryKey)
	}
	if tbl.HasColumn("extra") {
		t.Error("Expected keys missing from the first row to be invisible")
	}
}

func TestInferMetadataEmptyTable(t *testing.T) {
	_, err := New("x", nil).InferMetadata()
	if err == nil {
		t.Fatal("Expected an error for an empty table")
	}
	if !apperrors.IsDataError(err) {
		t.Errorf("Expected DataError, got %T", err)
	}
	if !errors.Is(err, apperrors.ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}
}

func TestExplicitSettingsAreSticky(t *testing.T) {
	tbl := ordersTable()
	if _, err := tbl.SetPrimaryKey("user_id"); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.SetTimeColumn("status"); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}

	meta := tbl.Metadata()
	if meta.PrimaryKey != "user_id" {
		t.Errorf("Expected explicit primary key to survive inference, got %q", meta.PrimaryKey)
	}
	if meta.TimeColumn != "status" {
		t.Errorf("Expected explicit time column to survive inference, got %q", meta.TimeColumn)
	}

	tbl.ClearPrimaryKey()
	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}
	if tbl.Metadata().PrimaryKey != "order_id" {
		t.Errorf("Expected re-inferred primary key order_id, got %q", tbl.Metadata().PrimaryKey)
	}
}

func TestSetPrimaryKeyUnknownColumn(t *testing.T) {
	tbl := ordersTable()

	_, err := tbl.SetPrimaryKey("missing")
	if !apperrors.IsValidationError(err) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
	_, err = tbl.SetTimeColumn("missing")
	if !errors.Is(err, apperrors.ErrColumnNotFound) {
		t.Errorf("Expected ErrColumnNotFound, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tbl := ordersTable()

	res := tbl.Validate()
	if res.Valid {
		t.Error("Expected uninferred table to be invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0].Type != models.MissingPrimaryKey {
		t.Errorf("Expected one MISSING_PRIMARY_KEY error, got %+v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no column warnings before inference, got %+v", res.Warnings)
	}

	if _, err := tbl.InferMetadata(); err != nil {
		t.Fatal(err)
	}
	res = tbl.Validate()
	if !res.Valid {
		t.Errorf("Expected valid table, got errors %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Type != models.HighNullRate || res.Warnings[0].Field != "note" {
		t.Errorf("Expected HIGH_NULL_RATE warning on note, got %+v", res.Warnings)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	tbl := ordersTable()
	before := tbl.Metadata()
	for i := 0; i < 3; i++ {
		tbl.Validate()
	}
	if !reflect.DeepEqual(before, tbl.Metadata()) {
		t.Error("Expected Validate to leave metadata untouched")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tbl := ordersTable()
	if _, err := tbl.SetPrimaryKey("order_id"); err != nil {
		t.Fatal(err)
	}

	st := tbl.Serialize()
	if st.Metadata == nil {
		t.Fatal("Expected metadata in serialized form")
	}

	rebuilt, err := FromSerialized(st)
	if err != nil {
		t.Fatal(err)
	}
	// trusted metadata: no inference ran, so no column metadata exists
	if rebuilt.HasColumnMetadata() {
		t.Error("Expected trusted metadata to be used as-is")
	}
	if rebuilt.Metadata().PrimaryKey != "order_id" {
		t.Errorf("Expected primary key order_id, got %q", rebuilt.Metadata().PrimaryKey)
	}

	st.Metadata = nil
	inferred, err := FromSerialized(st)
	if err != nil {
		t.Fatal(err)
	}
	if !inferred.HasColumnMetadata() {
		t.Error("Expected inference to run without metadata")
	}

	if _, err := FromSerialized(models.SerializedTable{Name: "empty"}); !apperrors.IsDataError(err) {
		t.Errorf("Expected DataError for an empty payload, got %v", err)
	}
}
