package generator

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/pkg/inference"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func generateColumn(dg *DataGenerator, column ColumnSpec, n int) []any {
	values := make([]any, n)
	for i := range values {
		values[i] = dg.GenerateData(column)
	}
	return values
}

func TestGeneratedValuesInferBack(t *testing.T) {
	dg := NewDataGenerator(42, createTestLogger())

	tests := []ColumnSpec{
		{Name: "amount", Type: models.Numerical},
		{Name: "age", Type: models.Numerical},
		{Name: "score", Type: models.Numerical},
		{Name: "created_at", Type: models.Temporal},
		{Name: "segment", Type: models.Categorical},
		{Name: "plan", Type: models.Categorical, Values: []string{"free", "pro"}},
		{Name: "city", Type: models.Categorical},
		{Name: "status", Type: models.Categorical},
		{Name: "email", Type: models.Text},
		{Name: "comment", Type: models.Text},
	}

	for _, column := range tests {
		t.Run(column.Name, func(t *testing.T) {
			values := generateColumn(dg, column, 100)
			if got := inference.InferType(values); got != column.Type {
				t.Errorf("Expected %s to infer as %s, got %s", column.Name, column.Type, got)
			}
		})
	}
}

func TestCategoricalVocabulary(t *testing.T) {
	dg := NewDataGenerator(7, createTestLogger())
	column := ColumnSpec{Name: "plan", Type: models.Categorical, Values: []string{"free", "pro"}}

	for _, v := range generateColumn(dg, column, 50) {
		if v != "free" && v != "pro" {
			t.Errorf("Unexpected value %v outside the vocabulary", v)
		}
	}
}

func TestNullableColumns(t *testing.T) {
	dg := NewDataGenerator(3, createTestLogger())

	nulls := 0
	for _, v := range generateColumn(dg, ColumnSpec{Name: "score", Type: models.Numerical, Nullable: true}, 1000) {
		if v == nil {
			nulls++
		}
	}
	if nulls == 0 || nulls > 300 {
		t.Errorf("Expected roughly %.0f%% nulls, got %d of 1000", NullRate*100, nulls)
	}

	for _, v := range generateColumn(dg, ColumnSpec{Name: "score", Type: models.Numerical}, 200) {
		if v == nil {
			t.Fatal("Expected no nulls for a non-nullable column")
		}
	}
}

func TestSeedIsReproducible(t *testing.T) {
	column := ColumnSpec{Name: "created_at", Type: models.Temporal}

	a := generateColumn(NewDataGenerator(11, createTestLogger()), column, 20)
	b := generateColumn(NewDataGenerator(11, createTestLogger()), column, 20)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected identical values for the same seed at %d: %v vs %v", i, a[i], b[i])
		}
	}
}
