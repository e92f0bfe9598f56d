package generator

import (
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// NullRate is the share of nil values generated for nullable columns
const NullRate = 0.1

// referenceTime anchors generated timestamps so seeded runs are reproducible
var referenceTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ColumnSpec describes a column to generate values for
type ColumnSpec struct {
	Name     string              `json:"name" yaml:"name"`
	Type     models.SemanticType `json:"type" yaml:"type"`
	Nullable bool                `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	// Values restricts categorical columns to a fixed vocabulary
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// DataGenerator generates fake values that infer back to their semantic type
type DataGenerator struct {
	Faker  faker.Faker
	Rand   *rand.Rand
	Logger *logrus.Logger

	pools map[string][]string
}

// NewDataGenerator creates a data generator. A zero seed uses the current time.
func NewDataGenerator(seed int64, logger *logrus.Logger) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		Faker:  faker.NewWithSeed(rand.NewSource(seed)),
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: logger,
		pools:  make(map[string][]string),
	}
}

// GenerateData generates a value for a column from its name and semantic type
func (dg *DataGenerator) GenerateData(column ColumnSpec) any {
	if column.Nullable && dg.Rand.Float64() < NullRate {
		return nil
	}

	if v, ok := dg.generateByName(column); ok {
		return v
	}

	switch column.Type {
	case models.Numerical:
		return dg.generateNumber(column)
	case models.Categorical:
		return dg.generateCategory(column)
	case models.Temporal:
		return dg.generateDateTime()
	case models.Text:
		return dg.Faker.Lorem().Sentence(8)
	default:
		dg.Logger.Warningf("No specific generator for type %q on column %s, using default string", column.Type, column.Name)
		return dg.Faker.Lorem().Word()
	}
}

// generateByName handles well-known column names whose values fit the
// column's semantic type
func (dg *DataGenerator) generateByName(column ColumnSpec) (any, bool) {
	name := strings.ToLower(column.Name)

	switch column.Type {
	case models.Text:
		switch {
		case strings.Contains(name, "email"):
			return dg.Faker.Internet().Email(), true
		case strings.Contains(name, "name") && strings.Contains(name, "company"):
			return dg.Faker.Company().Name(), true
		case strings.Contains(name, "first") && strings.Contains(name, "name"):
			return dg.Faker.Person().FirstName(), true
		case strings.Contains(name, "last") && strings.Contains(name, "name"):
			return dg.Faker.Person().LastName(), true
		case strings.Contains(name, "name"):
			return dg.Faker.Person().Name(), true
		case strings.Contains(name, "phone"):
			return dg.Faker.Phone().Number(), true
		case strings.Contains(name, "description") || strings.Contains(name, "summary"):
			return dg.Faker.Lorem().Paragraph(3), true
		case strings.Contains(name, "title"):
			return dg.Faker.Lorem().Sentence(4), true
		}
	case models.Categorical:
		if len(column.Values) > 0 {
			return nil, false
		}
		switch {
		case strings.Contains(name, "city"):
			return dg.pick(column.Name, dg.Faker.Address().City), true
		case strings.Contains(name, "country"):
			return dg.pick(column.Name, dg.Faker.Address().Country), true
		case strings.Contains(name, "status"):
			return dg.Faker.RandomStringElement([]string{"active", "inactive", "pending"}), true
		}
	}
	return nil, false
}

// pick draws from a small per-column pool built once from gen so the column
// stays categorical
func (dg *DataGenerator) pick(column string, gen func() string) string {
	pool, ok := dg.pools[column]
	if !ok {
		pool = make([]string, 3)
		for i := range pool {
			pool[i] = gen()
		}
		dg.pools[column] = pool
	}
	return dg.Faker.RandomStringElement(pool)
}

func (dg *DataGenerator) generateNumber(column ColumnSpec) any {
	name := strings.ToLower(column.Name)
	switch {
	case strings.Contains(name, "amount") || strings.Contains(name, "price") || strings.Contains(name, "total"):
		return dg.Faker.Float64(2, 1, 1000)
	case strings.Contains(name, "age"):
		return dg.Faker.IntBetween(18, 90)
	case strings.Contains(name, "quantity") || strings.Contains(name, "count"):
		return dg.Faker.IntBetween(1, 20)
	default:
		return dg.Faker.IntBetween(0, 100000)
	}
}

func (dg *DataGenerator) generateCategory(column ColumnSpec) string {
	if len(column.Values) > 0 {
		return dg.Faker.RandomStringElement(column.Values)
	}
	return dg.Faker.RandomStringElement([]string{"alpha", "beta", "gamma", "delta"})
}

// generateDateTime returns an ISO 8601 timestamp within five years before the
// reference time
func (dg *DataGenerator) generateDateTime() string {
	days := dg.Rand.Intn(365 * 5)
	seconds := dg.Rand.Intn(24 * 60 * 60)
	t := referenceTime.
		AddDate(0, 0, -days).
		Add(-time.Duration(seconds) * time.Second)
	return t.Format(time.RFC3339)
}
