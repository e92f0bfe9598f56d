package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DatabaseConnector loads row sets from a SQL database
type DatabaseConnector struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	Path     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a connector from the database settings
func NewDatabaseConnector(cfg config.DatabaseConfig, logger *logrus.Logger) *DatabaseConnector {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMySQL
	}
	port := cfg.Port
	if port == "" && driver == DriverMySQL {
		port = "3306"
	}

	return &DatabaseConnector{
		Driver:   driver,
		Host:     cfg.Host,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Name,
		Port:     port,
		Path:     cfg.Path,
		Logger:   logger,
	}
}

// DSN returns the data source name for the configured driver
func (dc *DatabaseConnector) DSN() (string, error) {
	switch dc.Driver {
	case DriverMySQL:
		if dc.Database == "" {
			return "", fmt.Errorf("database name must be provided either in the config file or as MYSQL_DATABASE environment variable")
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", dc.User, dc.Password, dc.Host, dc.Port, dc.Database), nil
	case DriverSQLite:
		if dc.Path == "" {
			return "", fmt.Errorf("sqlite path must be provided either in the config file or as KUMO_SQLITE_PATH environment variable")
		}
		return dc.Path, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", dc.Driver)
	}
}

// Connect opens and pings the database
func (dc *DatabaseConnector) Connect(ctx context.Context) error {
	dsn, err := dc.DSN()
	if err != nil {
		return err
	}

	db, err := sql.Open(dc.Driver, dsn)
	if err != nil {
		dc.Logger.Errorf("Error opening %s database: %v", dc.Driver, err)
		return err
	}
	if dc.Driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Driver, err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Driver, dc.name())
	return nil
}

func (dc *DatabaseConnector) name() string {
	if dc.Driver == DriverSQLite {
		return dc.Path
	}
	return dc.Database
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		if err := dc.DB.Close(); err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("%s connection closed", dc.Driver)
		}
		dc.DB = nil
	}
}

func (dc *DatabaseConnector) ensureConnected(ctx context.Context) error {
	if dc.DB == nil {
		return dc.Connect(ctx)
	}
	return nil
}

// ExecuteQuery runs a query and returns its rows along with the result's
// column order
func (dc *DatabaseConnector) ExecuteQuery(ctx context.Context, query string, params ...any) ([]models.Row, []string, error) {
	if err := dc.ensureConnected(ctx); err != nil {
		return nil, nil, err
	}

	rows, err := dc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, nil, err
	}

	var results []models.Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, nil, err
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			// text columns come back as []byte from the mysql driver
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, nil, err
	}

	return results, columns, nil
}

// ExecuteStatement executes a statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(ctx context.Context, query string, params ...any) (int64, error) {
	if err := dc.ensureConnected(ctx); err != nil {
		return 0, err
	}

	result, err := dc.DB.ExecContext(ctx, query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}
	return result.RowsAffected()
}

// ExecuteMany executes a statement once per parameter set in one transaction
func (dc *DatabaseConnector) ExecuteMany(ctx context.Context, query string, paramsList [][]any) (int64, error) {
	if err := dc.ensureConnected(ctx); err != nil {
		return 0, err
	}

	tx, err := dc.DB.BeginTx(ctx, nil)
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		dc.Logger.Errorf("Error preparing statement: %v", err)
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64
	for _, params := range paramsList {
		result, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			dc.Logger.Errorf("Error executing batch statement: %v", err)
			tx.Rollback()
			return 0, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		totalAffected += affected
	}

	if err := tx.Commit(); err != nil {
		dc.Logger.Errorf("Error committing transaction: %v", err)
		return 0, err
	}
	return totalAffected, nil
}

// ListTables returns the base tables of the database in name order
func (dc *DatabaseConnector) ListTables(ctx context.Context) ([]string, error) {
	var (
		query  string
		params []any
	)
	switch dc.Driver {
	case DriverSQLite:
		query = `
			SELECT name AS table_name
			FROM sqlite_master
			WHERE type = 'table'
			AND name NOT LIKE 'sqlite_%'
			ORDER BY name
		`
	default:
		query = `
			SELECT table_name AS table_name
			FROM information_schema.tables
			WHERE table_schema = ?
			AND table_type = 'BASE TABLE'
			ORDER BY table_name
		`
		params = append(params, dc.Database)
	}

	rows, _, err := dc.ExecuteQuery(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, fmt.Sprint(row["table_name"]))
	}
	return tables, nil
}

// LoadTable reads every row of a table, keeping the database's column order
func (dc *DatabaseConnector) LoadTable(ctx context.Context, name string) (*table.Table, error) {
	rows, columns, err := dc.ExecuteQuery(ctx, "SELECT * FROM "+dc.QuoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	dc.Logger.Debugf("Loaded %d rows from %s", len(rows), name)
	return table.NewWithColumns(name, columns, rows), nil
}

// LoadTables loads the named tables, or every table when names is empty
func (dc *DatabaseConnector) LoadTables(ctx context.Context, names ...string) ([]*table.Table, error) {
	if len(names) == 0 {
		var err error
		if names, err = dc.ListTables(ctx); err != nil {
			return nil, err
		}
	}

	tables := make([]*table.Table, 0, len(names))
	for _, name := range names {
		t, err := dc.LoadTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// QuoteIdent quotes an identifier for the configured driver
func (dc *DatabaseConnector) QuoteIdent(name string) string {
	if dc.Driver == DriverSQLite {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
