// Package storage persists positions, candles, backtest results and optimizer
// suggestions in DuckDB.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/version"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"go.uber.org/zap"
)

// LivePositionsTable holds the positions of the live worker.
const LivePositionsTable = "positions"

type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// Open opens the DuckDB database at path and creates the schema. An empty
// path opens an in-memory database.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	log.Debug("Opened database", zap.String("path", path))

	return s, nil
}

// Migrate checks the recorded schema version and creates the tables that do
// not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.checkSchema(ctx); err != nil {
		return err
	}

	// Use raw SQL for DDL - Squirrel doesn't have CREATE syntax
	if _, err := s.db.ExecContext(ctx, `CREATE SEQUENCE IF NOT EXISTS position_seq`); err != nil {
		return fmt.Errorf("failed to create sequence: %w", err)
	}

	if err := s.createPositionsTable(ctx, LivePositionsTable); err != nil {
		return err
	}

	// columns added in schema 1.1
	for _, column := range []string{"reduce_order_price TEXT", "partial_closed_at TIMESTAMP"} {
		query := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s`, LivePositionsTable, column)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", column, err)
		}
	}

	statements := []struct {
		name string
		sql  string
	}{
		{"candles", `
			CREATE TABLE IF NOT EXISTS candles (
				exchange TEXT NOT NULL,
				ticker TEXT NOT NULL,
				market_type TEXT NOT NULL,
				timeframe TEXT NOT NULL,
				purpose TEXT NOT NULL,
				open_time TIMESTAMP NOT NULL,
				open DOUBLE,
				high DOUBLE,
				low DOUBLE,
				close DOUBLE,
				volume DOUBLE,
				PRIMARY KEY (exchange, ticker, market_type, timeframe, purpose, open_time)
			)
		`},
		{"backtest_results", `
			CREATE TABLE IF NOT EXISTS backtest_results (
				id TEXT PRIMARY KEY,
				exchange TEXT,
				ticker TEXT,
				symbol TEXT,
				market_type TEXT,
				timeframe TEXT,
				strategy TEXT,
				params TEXT,
				start_time TIMESTAMP,
				end_time TIMESTAMP,
				initial_balance TEXT,
				final_balance TEXT,
				pnl_percent DOUBLE,
				liquidated BOOLEAN,
				stats TEXT,
				created_at TIMESTAMP
			)
		`},
		{"optimizer_suggestions", `
			CREATE TABLE IF NOT EXISTS optimizer_suggestions (
				id TEXT PRIMARY KEY,
				exchange TEXT,
				symbol TEXT,
				market_type TEXT,
				timeframe TEXT,
				strategy TEXT,
				parameter TEXT,
				before_value TEXT,
				after_value TEXT,
				before_pnl_percent DOUBLE,
				after_pnl_percent DOUBLE,
				baseline_run_id TEXT,
				candidate_run_id TEXT,
				start_time TIMESTAMP,
				end_time TIMESTAMP,
				config_snippet TEXT,
				created_at TIMESTAMP
			)
		`},
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	return s.recordSchemaVersion(ctx)
}

// recordSchemaVersion stamps an older compatible database with the current
// schema once its tables are up to date.
func (s *Store) recordSchemaVersion(ctx context.Context) error {
	stored, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if !version.SchemaOlder(version.SchemaVersion, stored) {
		return nil
	}

	_, err = s.sq.Update("schema_info").Set("version", version.SchemaVersion).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	s.logger.Info("Upgraded database schema", zap.String("from", stored), zap.String("to", version.SchemaVersion))

	return nil
}

// checkSchema records the schema version of a new database and rejects one
// written by an incompatible build.
func (s *Store) checkSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_info (version TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	stored, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if stored == "" {
		_, err := s.sq.Insert("schema_info").Columns("version").Values(version.SchemaVersion).RunWith(s.db).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}

		return nil
	}

	return version.CheckSchemaCompatibility(version.SchemaVersion, stored)
}

// SchemaVersion returns the recorded schema version, or "" for a new database.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var stored string

	err := s.sq.Select("version").From("schema_info").Limit(1).RunWith(s.db).QueryRowContext(ctx).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}

	return stored, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// quote renders a SQL string literal for statements that cannot take
// placeholders, such as table functions reading files.
func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
