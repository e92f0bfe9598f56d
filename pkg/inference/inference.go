// Package inference classifies a column's raw values into a semantic type and
// computes the column's null and cardinality statistics.
//
// Checks run in a fixed order and the first match wins: temporal, numerical,
// categorical, text. A column of numeric strings with low cardinality is
// therefore numerical, and a column of ISO dates is temporal.
package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// CategoricalRatio is the distinct/present ratio below which a column is
// categorical
const CategoricalRatio = 0.5

// dateLayouts are the layouts a string must match to count as a date.
// Bare numbers are intentionally absent.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 02 2006",
	"Mon, 02 Jan 2006",
}

// InferType returns the semantic type of a column from its values in row
// order. Nil values are ignored; a column with no present values is text.
func InferType(values []any) models.SemanticType {
	present := presentValues(values)
	return inferPresent(present)
}

// AnalyzeColumn computes the metadata of one column. IsPrimaryKeyCandidate
// is left false; the owning table decides it.
func AnalyzeColumn(values []any, name string) models.ColumnMetadata {
	present := presentValues(values)

	return models.ColumnMetadata{
		Name:                  name,
		SemanticType:          inferPresent(present),
		Nullable:              len(values) != len(present),
		IsPrimaryKeyCandidate: false,
		UniqueValueCount:      DistinctCount(present),
		NullCount:             len(values) - len(present),
	}
}

func inferPresent(present []any) models.SemanticType {
	if len(present) == 0 {
		return models.Text
	}

	if allMatch(present, IsTemporal) {
		return models.Temporal
	}

	if allMatch(present, IsNumeric) {
		return models.Numerical
	}

	if float64(DistinctCount(present))/float64(len(present)) < CategoricalRatio {
		return models.Categorical
	}

	return models.Text
}

func presentValues(values []any) []any {
	present := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, v)
		}
	}
	return present
}

func allMatch(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// IsTemporal reports whether v is a time value or a string in a recognised
// date/time layout
func IsTemporal(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.IsZero()
	case *time.Time:
		return t != nil && !t.IsZero()
	case string:
		_, ok := ParseDate(t)
		return ok
	}
	return false
}

// ParseDate parses s with the first matching layout
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsNumeric reports whether v is a number or a string holding a finite number
func IsNumeric(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case json.Number:
		_, ok := parseFinite(n.String())
		return ok
	case string:
		_, ok := parseFinite(n)
		return ok
	}
	return false
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// DistinctCount counts distinct values. Numbers compare by value whatever
// their Go kind (1 and 1.0 are one value), but values of different types are
// distinct even when they print the same (1 and "1").
func DistinctCount(values []any) int {
	seen := make(map[any]struct{}, len(values))
	for _, v := range values {
		seen[distinctKey(v)] = struct{}{}
	}
	return len(seen)
}

type opaqueKey struct {
	typ  string
	repr string
}

func distinctKey(v any) any {
	if key, ok := numberKey(v); ok {
		return key
	}
	switch t := v.(type) {
	case time.Time:
		return opaqueKey{typ: "time", repr: t.UTC().Format(time.RFC3339Nano)}
	case *time.Time:
		if t == nil {
			return opaqueKey{typ: "time"}
		}
		return opaqueKey{typ: "time", repr: t.UTC().Format(time.RFC3339Nano)}
	}
	if reflect.ValueOf(v).Comparable() {
		return v
	}
	return opaqueKey{typ: fmt.Sprintf("%T", v), repr: fmt.Sprintf("%v", v)}
}

// numberKey maps a number of any kind to one key per numeric value. Integers
// keep their exact decimal form; integral floats share it.
func numberKey(v any) (opaqueKey, bool) {
	switch n := v.(type) {
	case int:
		return intKey(int64(n)), true
	case int8:
		return intKey(int64(n)), true
	case int16:
		return intKey(int64(n)), true
	case int32:
		return intKey(int64(n)), true
	case int64:
		return intKey(n), true
	case uint:
		return uintKey(uint64(n)), true
	case uint8:
		return uintKey(uint64(n)), true
	case uint16:
		return uintKey(uint64(n)), true
	case uint32:
		return uintKey(uint64(n)), true
	case uint64:
		return uintKey(n), true
	case float32:
		return floatKey(float64(n)), true
	case float64:
		return floatKey(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return intKey(i), true
		}
		if f, ok := parseFinite(n.String()); ok {
			return floatKey(f), true
		}
	}
	return opaqueKey{}, false
}

func intKey(i int64) opaqueKey {
	return opaqueKey{typ: "number", repr: strconv.FormatInt(i, 10)}
}

func uintKey(u uint64) opaqueKey {
	return opaqueKey{typ: "number", repr: strconv.FormatUint(u, 10)}
}

func floatKey(f float64) opaqueKey {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return intKey(int64(f))
	}
	return opaqueKey{typ: "number", repr: strconv.FormatFloat(f, 'g', -1, 64)}
}
