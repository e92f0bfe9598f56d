package inference

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   models.SemanticType
	}{
		{"empty", nil, models.Text},
		{"all nil", []any{nil, nil, nil}, models.Text},
		{"iso dates", []any{"2024-01-01", "2024-01-02"}, models.Temporal},
		{"rfc3339", []any{"2024-01-01T10:00:00Z", nil, "2024-02-01T10:00:00+02:00"}, models.Temporal},
		{"time values", []any{time.Now(), time.Now().Add(time.Hour)}, models.Temporal},
		{"numeric strings low cardinality", []any{"1", "2", "1", "2"}, models.Numerical},
		{"ints", []any{1, 2, 3}, models.Numerical},
		{"floats with nulls", []any{1.5, nil, 2.25}, models.Numerical},
		{"json numbers", []any{json.Number("10"), json.Number("2.5")}, models.Numerical},
		{"mixed number and numeric string", []any{10, "20"}, models.Numerical},
		{"categorical", []any{"a", "b", "a", "b", "a"}, models.Categorical},
		{"booleans", []any{true, false, true, true, false}, models.Categorical},
		{"high cardinality text", []any{"alice", "bob", "carol"}, models.Text},
		{"ratio exactly half is text", []any{"a", "b", "a", "b"}, models.Text},
		{"empty strings are not numbers", []any{"", "", "", ""}, models.Categorical},
		{"one bad value breaks numeric", []any{"1", "2", "x"}, models.Text},
		{"infinity is not numeric", []any{"Inf", "Inf", "Inf"}, models.Categorical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferType(tt.values); got != tt.want {
				t.Errorf("InferType(%v) = %s, want %s", tt.values, got, tt.want)
			}
		})
	}
}

func TestAnalyzeColumn(t *testing.T) {
	meta := AnalyzeColumn([]any{"x", nil, "y", "x", nil}, "code")

	if meta.Name != "code" {
		t.Errorf("Expected name code, got %s", meta.Name)
	}
	if !meta.Nullable {
		t.Error("Expected column to be nullable")
	}
	if meta.NullCount != 2 {
		t.Errorf("Expected 2 nulls, got %d", meta.NullCount)
	}
	if meta.UniqueValueCount != 2 {
		t.Errorf("Expected 2 unique values, got %d", meta.UniqueValueCount)
	}
	if meta.IsPrimaryKeyCandidate {
		t.Error("Expected IsPrimaryKeyCandidate to be left false")
	}
}

func TestAnalyzeColumnEmpty(t *testing.T) {
	meta := AnalyzeColumn(nil, "empty")

	if meta.SemanticType != models.Text {
		t.Errorf("Expected text, got %s", meta.SemanticType)
	}
	if meta.Nullable || meta.NullCount != 0 || meta.UniqueValueCount != 0 {
		t.Errorf("Expected zeroed statistics, got %+v", meta)
	}
}

func TestDistinctCountIsTypeAware(t *testing.T) {
	if got := DistinctCount([]any{1, "1", 1, "1"}); got != 2 {
		t.Errorf("Expected 2 distinct values, got %d", got)
	}

	// non-comparable values fall back to their printed form
	if got := DistinctCount([]any{[]int{1}, []int{1}, []int{2}}); got != 2 {
		t.Errorf("Expected 2 distinct slices, got %d", got)
	}
}

func TestDistinctCountComparesNumbersByValue(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   int
	}{
		{"int and float", []any{1, 1.0}, 1},
		{"mixed kinds", []any{int64(2), uint8(2), float32(2), 2.0}, 1},
		{"json numbers", []any{json.Number("1"), json.Number("1.0"), 1}, 1},
		{"fractions", []any{1.5, json.Number("1.5"), 2.5}, 2},
		{"strings stay apart", []any{1, 1.0, "1"}, 2},
		{"large ids", []any{int64(1) << 60, int64(1)<<60 + 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistinctCount(tt.values); got != tt.want {
				t.Errorf("DistinctCount(%v) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}

	meta := AnalyzeColumn([]any{1, 1.0, 2}, "id")
	if meta.UniqueValueCount != 2 {
		t.Errorf("Expected 2 unique values, got %d", meta.UniqueValueCount)
	}
}

func TestParseDateRejectsBareNumbers(t *testing.T) {
	for _, s := range []string{"1", "2024", "42.5", "", "  "} {
		if _, ok := ParseDate(s); ok {
			t.Errorf("Expected %q not to parse as a date", s)
		}
	}

	for _, s := range []string{"2024-01-01", "2024-01-01 10:30:00", "Jan 2, 2024", "03/15/2024"} {
		if _, ok := ParseDate(s); !ok {
			t.Errorf("Expected %q to parse as a date", s)
		}
	}
}
