package populator

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/internal/generator"
	"github.com/gratitude5dee/kumorfm-go/pkg/graph"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func shopSpecs() ([]TableSpec, []models.Link) {
	specs := []TableSpec{
		{
			Name:       "orders",
			PrimaryKey: "order_id",
			Columns: []generator.ColumnSpec{
				{Name: "user_id", Type: models.Numerical},
				{Name: "amount", Type: models.Numerical},
				{Name: "created_at", Type: models.Temporal},
			},
			Records: 60,
		},
		{
			Name:       "users",
			PrimaryKey: "user_id",
			Columns: []generator.ColumnSpec{
				{Name: "name", Type: models.Text},
				{Name: "segment", Type: models.Categorical, Values: []string{"retail", "business"}},
			},
		},
	}
	links := []models.Link{{SourceTable: "orders", ForeignKeyColumn: "user_id", DestinationTable: "users"}}
	return specs, links
}

func newPopulator(specs []TableSpec, links []models.Link, records int) *DatasetPopulator {
	logger := createTestLogger()
	return NewDatasetPopulator(specs, links, generator.NewDataGenerator(5, logger), records, logger)
}

func TestPopulateRespectsForeignKeys(t *testing.T) {
	specs, links := shopSpecs()
	dp := newPopulator(specs, links, 20)

	g, err := dp.Populate()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(dp.InsertedData["users"]) != 20 {
		t.Errorf("Expected 20 users, got %d", len(dp.InsertedData["users"]))
	}
	if len(dp.InsertedData["orders"]) != 60 {
		t.Errorf("Expected the per-table record override of 60, got %d", len(dp.InsertedData["orders"]))
	}

	userIDs := make(map[any]bool)
	for _, u := range dp.InsertedData["users"] {
		userIDs[u["user_id"]] = true
	}
	for _, o := range dp.InsertedData["orders"] {
		if !userIDs[o["user_id"]] {
			t.Errorf("Order references unknown user %v", o["user_id"])
		}
	}

	orders, _ := g.Table("orders")
	if orders.PrimaryKey() != "order_id" {
		t.Errorf("Expected primary key order_id, got %s", orders.PrimaryKey())
	}
	if orders.TimeColumn() != "created_at" {
		t.Errorf("Expected time column created_at, got %s", orders.TimeColumn())
	}
	users, _ := g.Table("users")
	if users.Metadata().SemanticTypes["segment"] != models.Categorical {
		t.Errorf("Expected segment to be categorical, got %v", users.Metadata().SemanticTypes)
	}

	if !g.Validate().Valid {
		t.Errorf("Expected populated graph to be valid: %+v", g.Validate().Errors)
	}
	if len(dp.FailedTables) != 0 {
		t.Errorf("Expected no failed tables, got %v", dp.FailedTables)
	}
}

func TestPopulateCircularTables(t *testing.T) {
	specs := []TableSpec{
		{
			Name:       "employees",
			PrimaryKey: "employee_id",
			Columns: []generator.ColumnSpec{
				{Name: "manager_id", Type: models.Numerical, Nullable: true},
				{Name: "department_id", Type: models.Numerical, Nullable: true},
			},
		},
		{
			Name:       "departments",
			PrimaryKey: "department_id",
			Columns: []generator.ColumnSpec{
				{Name: "head_id", Type: models.Numerical},
			},
		},
	}
	links := []models.Link{
		{SourceTable: "employees", ForeignKeyColumn: "manager_id", DestinationTable: "employees"},
		{SourceTable: "employees", ForeignKeyColumn: "department_id", DestinationTable: "departments"},
		{SourceTable: "departments", ForeignKeyColumn: "head_id", DestinationTable: "employees"},
	}

	dp := newPopulator(specs, links, 10)
	g, err := dp.Populate()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, e := range dp.InsertedData["employees"] {
		if e["manager_id"] == nil || e["department_id"] == nil {
			t.Errorf("Expected circular foreign keys to be filled, got %v", e)
		}
	}
	for _, d := range dp.InsertedData["departments"] {
		if d["head_id"] == nil {
			t.Errorf("Expected head_id to be filled, got %v", d)
		}
	}

	res := g.Validate()
	if res.Valid {
		t.Error("Expected the cycle to make the graph invalid")
	}
	found := false
	for _, issue := range res.Errors {
		if issue.Type == models.CircularReference {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a circular reference error, got %+v", res.Errors)
	}
}

func TestPopulateUnknownLinkColumn(t *testing.T) {
	specs, _ := shopSpecs()
	links := []models.Link{{SourceTable: "orders", ForeignKeyColumn: "customer_id", DestinationTable: "users"}}

	if _, err := newPopulator(specs, links, 5).Populate(); err == nil {
		t.Error("Expected an error for a link on an unknown column")
	}
}

func TestWriteToSQLite(t *testing.T) {
	ctx := context.Background()
	specs, links := shopSpecs()
	dp := newPopulator(specs, links, 150)

	g, err := dp.Populate()
	if err != nil {
		t.Fatal(err)
	}

	db := connector.NewDatabaseConnector(config.DatabaseConfig{Driver: connector.DriverSQLite, Path: ":memory:"}, createTestLogger())
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer db.Disconnect()

	if err := dp.WriteTo(ctx, db, g); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	users, err := db.LoadTable(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if users.RowCount() != 150 {
		t.Errorf("Expected 150 users across batches, got %d", users.RowCount())
	}

	tables, err := db.LoadTables(ctx)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := graph.FromTables(tables, true)
	if err != nil {
		t.Fatal(err)
	}
	links = loaded.Links()
	if len(links) != 1 || links[0].DestinationTable != "users" {
		t.Errorf("Expected the round-tripped data to infer orders.user_id -> users, got %v", links)
	}
}
