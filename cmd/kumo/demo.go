package main

import (
	"github.com/spf13/cobra"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/internal/generator"
	"github.com/gratitude5dee/kumorfm-go/internal/populator"
	"github.com/gratitude5dee/kumorfm-go/internal/utils"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// demoDataset is a small shop: users and items, with orders referencing both
func demoDataset() ([]populator.TableSpec, []models.Link) {
	specs := []populator.TableSpec{
		{
			Name:       "users",
			PrimaryKey: "user_id",
			Columns: []generator.ColumnSpec{
				{Name: "name", Type: models.Text},
				{Name: "email", Type: models.Text},
				{Name: "age", Type: models.Numerical, Nullable: true},
				{Name: "city", Type: models.Categorical},
				{Name: "signup_at", Type: models.Temporal},
			},
		},
		{
			Name:       "items",
			PrimaryKey: "item_id",
			Columns: []generator.ColumnSpec{
				{Name: "title", Type: models.Text},
				{Name: "category", Type: models.Categorical, Values: []string{"books", "garden", "toys", "music"}},
				{Name: "price", Type: models.Numerical},
			},
		},
		{
			Name:       "orders",
			PrimaryKey: "order_id",
			Columns: []generator.ColumnSpec{
				{Name: "user_id", Type: models.Numerical},
				{Name: "item_id", Type: models.Numerical},
				{Name: "quantity", Type: models.Numerical},
				{Name: "amount", Type: models.Numerical},
				{Name: "created_at", Type: models.Temporal},
			},
		},
	}
	links := []models.Link{
		{SourceTable: "orders", ForeignKeyColumn: "user_id", DestinationTable: "users"},
		{SourceTable: "orders", ForeignKeyColumn: "item_id", DestinationTable: "items"},
	}
	return specs, links
}

func newDemoCmd(global *globalFlags) *cobra.Command {
	var (
		records int
		seed    int64
		sqlite  string
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate a demo dataset and analyze it",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := global.setup()
			if err != nil {
				return err
			}

			specs, links := demoDataset()
			// orders get three rows per user
			specs[2].Records = records * 3

			dp := populator.NewDatasetPopulator(specs, links, generator.NewDataGenerator(seed, logger), records, logger)

			logger.Info("Starting dataset population...")
			g, err := dp.Populate()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			utils.PrintSummary(out, g.TableNames(), dp.InsertedData, dp.FailedTables)
			utils.PrintGraphAnalysis(out, g)
			res := g.Validate()
			utils.PrintValidationResult(out, res)

			if sqlite != "" {
				ctx := cmd.Context()
				db := connector.NewDatabaseConnector(config.DatabaseConfig{Driver: connector.DriverSQLite, Path: sqlite}, logger)
				if err := db.Connect(ctx); err != nil {
					return err
				}
				defer db.Disconnect()

				if err := dp.WriteTo(ctx, db, g); err != nil {
					return err
				}

				if verify {
					ok, empty, partial := utils.VerifyTablePopulation(ctx, db, g.TableNames(), records, logger)
					utils.PrintVerificationResults(out, empty, partial, records)
					if !ok {
						return errInvalidGraph
					}
				}
			}

			if !res.Valid {
				return errInvalidGraph
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&records, "records", "r", 10, "Number of users and items to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	cmd.Flags().StringVar(&sqlite, "sqlite", "", "Also write the dataset to this SQLite file")
	cmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify the written tables have the expected number of records")

	return cmd
}
