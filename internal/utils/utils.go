package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gratitude5dee/kumorfm-go/internal/analyzer"
	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/internal/connector"
	"github.com/gratitude5dee/kumorfm-go/pkg/graph"
	"github.com/gratitude5dee/kumorfm-go/pkg/models"
)

// SetupLogging configures the logging system. Logs go to stderr so reports
// on stdout stay clean.
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from parameter or environment variable
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("KUMO_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from an .env file and
// reports whether every required variable is set
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger, required ...string) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Debugf("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	var missingVars []string
	for _, v := range required {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing required environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "KUMO_") && !strings.HasPrefix(env, "MYSQL_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if parts[0] == "MYSQL_PASSWORD" || parts[0] == "KUMO_API_KEY" {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(db config.DatabaseConfig, logger *logrus.Logger) bool {
	if db.Driver == connector.DriverSQLite {
		if db.Path == "" {
			logger.Error("SQLite path is required")
			return false
		}
		return true
	}

	if db.Host == "" {
		logger.Error("Database host is required")
		return false
	}

	if db.User == "" {
		logger.Error("Database user is required")
		return false
	}

	if db.Password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if db.Name == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(db.Port); err != nil {
		logger.Errorf("Invalid port number: %s", db.Port)
		return false
	}

	return true
}

// PrintGraphAnalysis prints a detailed analysis of a table graph
func PrintGraphAnalysis(w io.Writer, g *graph.Graph) {
	links := g.Links()
	cyclic := make(map[string]bool)
	for _, name := range g.CyclicTables() {
		cyclic[name] = true
	}
	hasFKs := make(map[string]bool)
	for _, l := range links {
		hasFKs[l.SourceTable] = true
	}
	manyToManyTables := analyzer.ManyToManyTables(g)

	totalRows := 0
	for _, t := range g.Tables() {
		totalRows += t.RowCount()
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "TABLE GRAPH ANALYSIS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "\n1. BASIC STATISTICS")
	fmt.Fprintf(w, "   Total tables: %d\n", len(g.TableNames()))
	fmt.Fprintf(w, "   Total rows: %d\n", totalRows)
	fmt.Fprintf(w, "   Links: %d\n", len(links))
	fmt.Fprintf(w, "   Tables with foreign keys: %d\n", len(hasFKs))
	fmt.Fprintf(w, "   Many-to-many relationship tables: %d\n", len(manyToManyTables))
	fmt.Fprintf(w, "   Tables in circular dependencies: %d\n", len(cyclic))

	fmt.Fprintln(w, "\n2. TABLE METADATA")
	g.PrintMetadata(&indent{w: w})

	fmt.Fprintln(w, "\n3. LINKS")
	g.PrintLinks(&indent{w: w})

	if len(cyclic) > 0 {
		fmt.Fprintln(w, "\n4. CIRCULAR DEPENDENCIES")
		fmt.Fprintf(w, "   Tables involved: %s\n", strings.Join(g.CyclicTables(), ", "))
	}

	fmt.Fprintln(w, "\n5. RECOMMENDED TABLE INSERTION ORDER")
	for i, name := range g.InsertionOrder() {
		category := "Standalone"
		if manyToManyTables[name] {
			category = "Many-to-Many"
		} else if cyclic[name] {
			category = "Circular"
		} else if hasFKs[name] {
			category = "Dependent"
		}
		fmt.Fprintf(w, "   %3d. %s (%s)\n", i+1, name, category)
	}

	fmt.Fprintln(w, "\n6. GRAPH")
	fmt.Fprint(&indent{w: w}, g.Visualize())

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
}

// indent prefixes every line written through it with three spaces
type indent struct {
	w       io.Writer
	midLine bool
}

func (in *indent) Write(p []byte) (int, error) {
	for _, line := range strings.SplitAfter(string(p), "\n") {
		if line == "" {
			continue
		}
		if !in.midLine {
			line = "   " + line
		}
		if _, err := io.WriteString(in.w, line); err != nil {
			return 0, err
		}
		in.midLine = !strings.HasSuffix(line, "\n")
	}
	return len(p), nil
}

// PrintValidationResult prints a validation result's errors and warnings
func PrintValidationResult(w io.Writer, res models.ValidationResult) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "VALIDATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if res.Valid {
		fmt.Fprintln(w, "✅ Graph is valid")
	} else {
		fmt.Fprintf(w, "❌ %d error(s):\n", len(res.Errors))
		for _, issue := range res.Errors {
			fmt.Fprintf(w, "  - %s\n", formatIssue(issue))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "⚠️  %d warning(s):\n", len(res.Warnings))
		for _, issue := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", formatIssue(issue))
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

func formatIssue(issue models.ValidationIssue) string {
	var where string
	switch {
	case issue.Table != "" && issue.Field != "":
		where = fmt.Sprintf(" (%s.%s)", issue.Table, issue.Field)
	case issue.Table != "":
		where = fmt.Sprintf(" (%s)", issue.Table)
	}
	return fmt.Sprintf("[%s] %s%s", issue.Type, issue.Message, where)
}

// PrintSummary prints a summary of the population process
func PrintSummary(w io.Writer, tables []string, inserted map[string][]models.Row, failed map[string]bool) {
	totalRecords := 0
	for _, rows := range inserted {
		totalRecords += len(rows)
	}

	var failedTables []string
	for name := range failed {
		failedTables = append(failedTables, name)
	}
	sort.Strings(failedTables)

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "DATASET POPULATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Total tables processed: %d\n", len(tables))
	fmt.Fprintf(w, "Successfully populated tables: %d\n", len(tables)-len(failedTables))
	fmt.Fprintf(w, "Failed tables: %d\n", len(failedTables))
	fmt.Fprintf(w, "Total records generated: %d\n", totalRecords)

	if len(failedTables) > 0 {
		fmt.Fprintln(w, "\nFailed tables:")
		for _, name := range failedTables {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// VerifyTablePopulation verifies that all tables have at least the minimum number of records
func VerifyTablePopulation(ctx context.Context, db *connector.DatabaseConnector, tables []string, minRecords int, logger *logrus.Logger) (bool, []string, map[string]int) {
	logger.Infof("Verifying that all tables have at least %d record(s)...", minRecords)

	emptyTables := []string{}
	partiallyPopulatedTables := make(map[string]int)

	for _, table := range tables {
		query := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", db.QuoteIdent(table))
		result, _, err := db.ExecuteQuery(ctx, query)
		if err != nil {
			logger.Warningf("Could not verify record count for table: %s", table)
			emptyTables = append(emptyTables, table)
			continue
		}

		if len(result) == 0 {
			logger.Warningf("No result returned for count query on table: %s", table)
			emptyTables = append(emptyTables, table)
			continue
		}

		count, ok := result[0]["count"].(int64)
		if !ok {
			countStr := fmt.Sprintf("%v", result[0]["count"])
			countInt, err := strconv.ParseInt(countStr, 10, 64)
			if err != nil {
				logger.Warningf("Could not parse count for table %s: %v", table, err)
				emptyTables = append(emptyTables, table)
				continue
			}
			count = countInt
		}

		if count == 0 {
			logger.Warningf("Table %s has no records", table)
			emptyTables = append(emptyTables, table)
		} else if count < int64(minRecords) {
			logger.Warningf("Table %s has only %d/%d expected records", table, count, minRecords)
			partiallyPopulatedTables[table] = int(count)
		}
	}

	success := len(emptyTables) == 0 && len(partiallyPopulatedTables) == 0

	if success {
		logger.Info("Verification successful: All tables have at least the minimum number of records")
	} else {
		if len(emptyTables) > 0 {
			logger.Errorf("Verification failed: %d tables have no records", len(emptyTables))
		}
		if len(partiallyPopulatedTables) > 0 {
			logger.Errorf("Verification failed: %d tables are partially populated", len(partiallyPopulatedTables))
		}
	}

	return success, emptyTables, partiallyPopulatedTables
}

// PrintVerificationResults prints the results of the table population verification
func PrintVerificationResults(w io.Writer, emptyTables []string, partiallyPopulatedTables map[string]int, minRecords int) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "TABLE POPULATION VERIFICATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if len(emptyTables) == 0 && len(partiallyPopulatedTables) == 0 {
		fmt.Fprintf(w, "✅ All tables have at least %d record(s)\n", minRecords)
		fmt.Fprintln(w, strings.Repeat("=", 50))
		return
	}

	if len(emptyTables) > 0 {
		fmt.Fprintf(w, "❌ %d tables have no records:\n", len(emptyTables))
		for _, table := range emptyTables {
			fmt.Fprintf(w, "  - %s\n", table)
		}
		fmt.Fprintln(w)
	}

	if len(partiallyPopulatedTables) > 0 {
		names := make([]string, 0, len(partiallyPopulatedTables))
		for table := range partiallyPopulatedTables {
			names = append(names, table)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "⚠️  %d tables are partially populated:\n", len(partiallyPopulatedTables))
		for _, table := range names {
			fmt.Fprintf(w, "  - %s: %d/%d records\n", table, partiallyPopulatedTables[table], minRecords)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}
