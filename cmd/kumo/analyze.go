package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gratitude5dee/kumorfm-go/internal/analyzer"
	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/internal/loader"
	"github.com/gratitude5dee/kumorfm-go/internal/utils"
	"github.com/gratitude5dee/kumorfm-go/pkg/graph"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

var errInvalidGraph = errors.New("graph validation failed")

type analyzeFlags struct {
	file       string
	graphFile  string
	db         bool
	sqlite     string
	tables     []string
	noInfer    bool
	noDeclared bool
	inflect    bool
	out        string
}

func newAnalyzeCmd(global *globalFlags) *cobra.Command {
	f := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Infer metadata and links for a set of tables and validate the graph",
		Example: `  kumo analyze --file data.json
  kumo analyze --graph graph.yaml
  kumo analyze --db --tables users,orders
  kumo analyze --sqlite shop.db --out graph.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup()
			if err != nil {
				return err
			}

			g, err := f.load(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			utils.PrintGraphAnalysis(out, g)
			res := g.Validate()
			utils.PrintValidationResult(out, res)

			if f.out != "" {
				if err := writeGraph(f.out, g); err != nil {
					return err
				}
				logger.Infof("Wrote graph to %s", f.out)
			}

			if !res.Valid {
				return errInvalidGraph
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Row data file: {table: [rows]} as JSON or YAML")
	cmd.Flags().StringVarP(&f.graphFile, "graph", "g", "", "Serialized graph file (JSON or YAML)")
	cmd.Flags().BoolVar(&f.db, "db", false, "Load tables from the configured database")
	cmd.Flags().StringVar(&f.sqlite, "sqlite", "", "Load tables from a SQLite file")
	cmd.Flags().StringSliceVarP(&f.tables, "tables", "t", nil, "Tables to load from the database (default: all)")
	cmd.Flags().BoolVar(&f.noInfer, "no-infer", false, "Skip metadata and link inference")
	cmd.Flags().BoolVar(&f.noDeclared, "no-declared", false, "Ignore primary and foreign keys declared by the database")
	cmd.Flags().BoolVar(&f.inflect, "inflect", false, "Match irregular plurals when inferring links")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the serialized graph to this file")
	cmd.MarkFlagsMutuallyExclusive("file", "graph", "db", "sqlite")
	cmd.MarkFlagsOneRequired("file", "graph", "db", "sqlite")

	return cmd
}

func (f *analyzeFlags) options(logger *logrus.Logger) []graph.Option {
	opts := []graph.Option{graph.WithLogger(logger)}
	if f.inflect {
		opts = append(opts, graph.WithInflection())
	}
	return opts
}

// load builds the graph from whichever source was selected
func (f *analyzeFlags) load(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*graph.Graph, error) {
	opts := f.options(logger)

	if f.graphFile != "" {
		file, err := os.Open(f.graphFile)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		sg, err := loader.DecodeGraph(file, loader.FormatFromPath(f.graphFile))
		if err != nil {
			return nil, err
		}
		g, err := graph.FromSerialized(sg, opts...)
		if err != nil {
			return nil, err
		}
		if !f.noInfer {
			if err := g.InferLinks(); err != nil {
				return nil, err
			}
		}
		return g, nil
	}

	if f.file != "" {
		tables, err := readRowData(f.file)
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded %d tables from %s", len(tables), f.file)
		return graph.FromTables(tables, !f.noInfer, opts...)
	}
	return f.loadDatabase(ctx, cfg, logger, opts)
}

func readRowData(path string) ([]*table.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return loader.DecodeRowData(file, loader.FormatFromPath(path))
}

// loadDatabase loads the tables, infers what the rows show and then applies
// the keys the database declares
func (f *analyzeFlags) loadDatabase(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts []graph.Option) (*graph.Graph, error) {
	dbCfg := cfg.Database
	if f.sqlite != "" {
		dbCfg.Driver = connector.DriverSQLite
		dbCfg.Path = f.sqlite
	}
	if !utils.ValidateConnectionParams(dbCfg, logger) {
		return nil, fmt.Errorf("invalid %s connection parameters", dbCfg.Driver)
	}

	db := connector.NewDatabaseConnector(dbCfg, logger)
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Disconnect()

	tables, err := db.LoadTables(ctx, f.tables...)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loaded %d tables from the database", len(tables))
	tables = skipEmptyTables(tables, logger)

	g, err := graph.FromTables(tables, !f.noInfer, opts...)
	if err != nil {
		return nil, err
	}

	if !f.noDeclared {
		schemaAnalyzer := analyzer.NewSchemaAnalyzer(db, logger)
		if err := schemaAnalyzer.AnalyzeSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to analyze schema: %w", err)
		}
		if err := schemaAnalyzer.Apply(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// skipEmptyTables drops tables without rows, which have nothing to infer from
func skipEmptyTables(tables []*table.Table, logger *logrus.Logger) []*table.Table {
	kept := tables[:0]
	for _, t := range tables {
		if t.RowCount() == 0 {
			logger.Warningf("Skipping table %s: no rows", t.Name())
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func writeGraph(path string, g *graph.Graph) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := loader.EncodeGraph(file, g.Serialize(), loader.FormatFromPath(path)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
