package query

import (
	"errors"
	"testing"

	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
		want  string
	}{
		{
			name:  "predict and for",
			build: func() *Builder { return NewBuilder().Predict("COUNT(orders.order_id)").For("user_id") },
			want:  "PREDICT COUNT(orders.order_id) FOR user_id",
		},
		{
			name: "where",
			build: func() *Builder {
				return NewBuilder().Predict("COUNT(orders.order_id)").For("user_id").Where(`orders.created_at > "2024-01-01"`)
			},
			want: `PREDICT COUNT(orders.order_id) FOR user_id WHERE orders.created_at > "2024-01-01"`,
		},
		{
			name:  "where appends with AND",
			build: func() *Builder { return NewBuilder().Predict("x").Where("a > 1").Where("b < 2") },
			want:  "PREDICT x WHERE a > 1 AND b < 2",
		},
		{
			name:  "for appends",
			build: func() *Builder { return NewBuilder().Predict("x").For("a").For("b", "c") },
			want:  "PREDICT x FOR a, b, c",
		},
		{
			name:  "group and order replace",
			build: func() *Builder { return NewBuilder().Predict("x").GroupBy("a").GroupBy("b", "c").OrderBy("d").OrderBy("e DESC") },
			want:  "PREDICT x GROUP BY b, c ORDER BY e DESC",
		},
		{
			name: "fixed clause order",
			build: func() *Builder {
				return NewBuilder().Limit(10).OrderBy("o").GroupBy("g").Where("w").For("f").Predict("p")
			},
			want: "PREDICT p FOR f WHERE w GROUP BY g ORDER BY o LIMIT 10",
		},
		{
			name:  "zero limit is rendered",
			build: func() *Builder { return NewBuilder().Predict("p").Limit(0) },
			want:  "PREDICT p LIMIT 0",
		},
		{
			name:  "end to end",
			build: func() *Builder { return NewBuilder().Predict("SUM(orders.amount)").For("user_id") },
			want:  "PREDICT SUM(orders.amount) FOR user_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.build().Build()
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRequiresPredict(t *testing.T) {
	_, err := NewBuilder().For("user_id").Build()
	if !apperrors.IsValidationError(err) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrMissingPredict) {
		t.Errorf("Expected ErrMissingPredict, got %v", err)
	}
	if err.Error() != "PREDICT target is required" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PREDICT COUNT(orders.order_id) FOR user_id WHERE x > 1", "COUNT(orders.order_id)"},
		{"predict  SUM(orders.amount)  for user_id", "SUM(orders.amount)"},
		{"PREDICT churn LIMIT 5", "churn LIMIT 5"},
		{"SELECT 1", ""},
		{"\xffPREDICT x FOR y", "x"},
		{"\xff\xffPREDICT ", ""},
		{"\xffpredict \xfe total for users", "\xfe total"},
	}

	for _, tt := range tests {
		if got := Parse(tt.in).Target(); got != tt.want {
			t.Errorf("Parse(%q).Target() = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := Parse("SELECT 1").Build(); err == nil {
		t.Error("Expected Build to fail without a parsed target")
	}

	got, err := Parse("PREDICT x FOR a WHERE b").Build()
	if err != nil || got != "PREDICT x" {
		t.Errorf("Expected lossy round trip to PREDICT x, got %q (%v)", got, err)
	}
}
