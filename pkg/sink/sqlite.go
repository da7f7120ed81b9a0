package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eunmann/pivotab/internal/logctx"
	"github.com/eunmann/pivotab/pkg/humanfmt"
)

// ErrInvalidTableName is returned for table names that are not plain SQL
// identifiers.
var ErrInvalidTableName = errors.New("invalid table name")

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultTableName is the table WriteSQLite uses when none is given.
const DefaultTableName = "pivot_cells"

// WriteSQLite replaces tableName in the database at path with records. All
// rows are inserted in a single transaction.
func WriteSQLite(ctx context.Context, path, tableName string, records []Record) error {
	if tableName == "" {
		tableName = DefaultTableName
	}
	if !identRE.MatchString(tableName) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, tableName)
	}
	log := logctx.FromContext(ctx).With().Str("phase", "sink").Str("db_path", path).Logger()
	start := time.Now()

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	schema := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName),
		fmt.Sprintf(`
			CREATE TABLE %s (
				row_key TEXT NOT NULL,
				col_key TEXT NOT NULL,
				measure TEXT NOT NULL,
				kind TEXT NOT NULL,
				value REAL NOT NULL
			)
		`, tableName),
		fmt.Sprintf(`CREATE INDEX %[1]s_cell ON %[1]s (row_key, col_key, measure)`, tableName),
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create %s table: %w", tableName, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (row_key, col_key, measure, kind, value) VALUES (?, ?, ?, ?, ?)", tableName))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	for _, r := range records {
		if _, err := insert.ExecContext(ctx, r.RowKey, r.ColKey, r.Measure, r.Kind, r.Value); err != nil {
			return fmt.Errorf("insert cell %s/%s/%s: %w", r.RowKey, r.ColKey, r.Measure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("table", tableName).
		Str("rows", humanfmt.Count(int64(len(records)))).
		Str("elapsed", humanfmt.Duration(time.Since(start))).
		Msg("wrote sqlite table")
	return nil
}
