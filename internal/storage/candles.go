package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"go.uber.org/zap"
)

// Purpose separates candles kept for the live worker from backtest history.
type Purpose string

const (
	PurposeRuntime  Purpose = "runtime"
	PurposeBacktest Purpose = "backtest"
)

// insertBatchSize bounds the rows of one INSERT statement.
const insertBatchSize = 500

// CandleStore reads and writes the candles of one purpose.
type CandleStore struct {
	store   *Store
	purpose Purpose
}

// Candles returns the candle store of purpose.
func (s *Store) Candles(purpose Purpose) *CandleStore {
	return &CandleStore{store: s, purpose: purpose}
}

func (c *CandleStore) keyFilter(pair types.Pair) squirrel.Eq {
	return squirrel.Eq{
		"exchange":    pair.ExchangeName,
		"ticker":      pair.Symbol(),
		"market_type": string(pair.MarketType),
		"timeframe":   string(pair.Timeframe),
		"purpose":     string(c.purpose),
	}
}

// SaveCandles upserts candles of pair. A candle with an existing open time
// replaces the stored one.
func (c *CandleStore) SaveCandles(ctx context.Context, pair types.Pair, candles []types.Candle) error {
	for start := 0; start < len(candles); start += insertBatchSize {
		end := min(start+insertBatchSize, len(candles))

		insert := c.store.sq.
			Insert("candles").
			Options("OR REPLACE").
			Columns("exchange", "ticker", "market_type", "timeframe", "purpose", "open_time", "open", "high", "low", "close", "volume")

		for _, candle := range candles[start:end] {
			insert = insert.Values(
				pair.ExchangeName, pair.Symbol(), string(pair.MarketType), string(pair.Timeframe), string(c.purpose),
				candle.OpenTime.UTC(), candle.Open, candle.High, candle.Low, candle.Close, candle.Volume,
			)
		}

		if _, err := insert.RunWith(c.store.db).ExecContext(ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to save candles for %s", pair.Symbol())
		}
	}

	return nil
}

// LoadCandles returns the stored candles of pair with open time in
// [start, end], oldest first.
func (c *CandleStore) LoadCandles(ctx context.Context, pair types.Pair, start, end optional.Option[time.Time]) ([]types.Candle, error) {
	q := c.store.sq.
		Select("open_time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(c.keyFilter(pair)).
		OrderBy("open_time ASC")

	if start.IsSome() {
		q = q.Where(squirrel.GtOrEq{"open_time": start.Unwrap().UTC()})
	}

	if end.IsSome() {
		q = q.Where(squirrel.LtOrEq{"open_time": end.Unwrap().UTC()})
	}

	rows, err := q.RunWith(c.store.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to load candles for %s", pair.Symbol())
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var candle types.Candle
		if err := rows.Scan(&candle.OpenTime, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}

		candle.OpenTime = candle.OpenTime.UTC()
		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// Count returns the number of stored candles of pair.
func (c *CandleStore) Count(ctx context.Context, pair types.Pair) (int, error) {
	var count int

	err := c.store.sq.
		Select("COUNT(*)").
		From("candles").
		Where(c.keyFilter(pair)).
		RunWith(c.store.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count candles for %s", pair.Symbol())
	}

	return count, nil
}

// ImportFile loads a CSV or Parquet file with the columns time, open, high,
// low, close and volume into the candles of pair. It returns the number of
// rows written.
func (c *CandleStore) ImportFile(ctx context.Context, pair types.Pair, path string) (int64, error) {
	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto(%s)", quote(path))
	case ".parquet":
		reader = fmt.Sprintf("read_parquet(%s)", quote(path))
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported candle file %s, expected .csv or .parquet", path)
	}

	// Using raw SQL as Squirrel doesn't support INSERT ... SELECT from table functions
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO candles
		SELECT %s, %s, %s, %s, %s,
			CAST(time AS TIMESTAMP), open, high, low, close, volume
		FROM %s
	`,
		quote(pair.ExchangeName), quote(pair.Symbol()), quote(string(pair.MarketType)),
		quote(string(pair.Timeframe)), quote(string(c.purpose)),
		reader,
	)

	res, err := c.store.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to import %s", path)
	}

	imported, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read imported rows: %w", err)
	}

	c.store.logger.Info("Imported candles",
		zap.String("path", path),
		zap.String("symbol", pair.Symbol()),
		zap.String("timeframe", string(pair.Timeframe)),
		zap.Int64("rows", imported),
	)

	return imported, nil
}

// ExportParquet writes the candles of pair to a Parquet file.
func (c *CandleStore) ExportParquet(ctx context.Context, pair types.Pair, path string) error {
	// Export using raw SQL as Squirrel doesn't support COPY
	query := fmt.Sprintf(`
		COPY (
			SELECT open_time AS time, open, high, low, close, volume
			FROM candles
			WHERE exchange = %s AND ticker = %s AND market_type = %s AND timeframe = %s AND purpose = %s
			ORDER BY open_time
		) TO %s (FORMAT PARQUET)
	`,
		quote(pair.ExchangeName), quote(pair.Symbol()), quote(string(pair.MarketType)),
		quote(string(pair.Timeframe)), quote(string(c.purpose)),
		quote(path),
	)

	if _, err := c.store.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to export candles to Parquet: %w", err)
	}

	return nil
}
