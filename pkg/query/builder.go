// Package query assembles predictive query language (PQL) strings:
//
//	PREDICT <target> [FOR ...] [WHERE ... AND ...] [GROUP BY ...] [ORDER BY ...] [LIMIT n]
//
// Fragments are opaque text; nothing is quoted, escaped or checked.
package query

import (
	"strconv"
	"strings"

	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
)

// Builder accumulates query fragments. For and Where append across calls;
// GroupBy and OrderBy replace.
type Builder struct {
	predict  string
	entities []string
	where    []string
	groupBy  []string
	orderBy  []string
	limit    *int
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Predict sets the prediction target
func (b *Builder) Predict(target string) *Builder {
	b.predict = target
	return b
}

// For appends entities
func (b *Builder) For(entities ...string) *Builder {
	b.entities = append(b.entities, entities...)
	return b
}

// Where appends conditions, joined with AND
func (b *Builder) Where(conditions ...string) *Builder {
	b.where = append(b.where, conditions...)
	return b
}

// GroupBy replaces the grouping fields
func (b *Builder) GroupBy(fields ...string) *Builder {
	b.groupBy = append([]string(nil), fields...)
	return b
}

// OrderBy replaces the ordering fields
func (b *Builder) OrderBy(fields ...string) *Builder {
	b.orderBy = append([]string(nil), fields...)
	return b
}

// Limit sets the row limit. The value is rendered as given.
func (b *Builder) Limit(n int) *Builder {
	b.limit = &n
	return b
}

// Target returns the prediction target, or "" if none was set
func (b *Builder) Target() string {
	return b.predict
}

// Build renders the query. The predict target is the only required part.
func (b *Builder) Build() (string, error) {
	if b.predict == "" {
		return "", apperrors.NewValidationError(apperrors.CodeMissingPredict, "PREDICT target is required")
	}

	var sb strings.Builder
	sb.WriteString("PREDICT ")
	sb.WriteString(b.predict)

	if len(b.entities) > 0 {
		sb.WriteString(" FOR ")
		sb.WriteString(strings.Join(b.entities, ", "))
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*b.limit))
	}

	return sb.String(), nil
}

// Parse recovers the predict target from a query string. Every other clause
// is dropped, so Parse followed by Build is lossy.
func Parse(q string) *Builder {
	b := NewBuilder()

	start := indexFold(q, "PREDICT ")
	if start < 0 {
		return b
	}
	rest := q[start+len("PREDICT "):]

	if end := indexFold(rest, " FOR "); end >= 0 {
		rest = rest[:end]
	}

	return b.Predict(strings.TrimSpace(rest))
}

// indexFold is a case-insensitive strings.Index for an ASCII marker. It
// compares byte windows of s so the offset is always valid for s.
func indexFold(s, marker string) int {
	for i := 0; i+len(marker) <= len(s); i++ {
		if asciiEqualFold(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if upperASCII(a[i]) != upperASCII(b[i]) {
			return false
		}
	}
	return true
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
