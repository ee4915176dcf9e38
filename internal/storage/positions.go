package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/position"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var positionColumns = []string{
	"id", "exchange", "ticker", "market_type", "direction", "status",
	"initial_entry_price", "average_entry_price", "current_price", "volume",
	"base_currency", "quote_currency", "entry_order_id",
	"take_profit_price", "expected_profit_percent", "stop_loss_price", "expected_stop_loss_percent",
	"finish_reason", "filled_level", "realized_pnl", "close_price",
	"created_at", "updated_at", "finished_at",
	"reduce_order_price", "partial_closed_at",
}

var activeStatuses = []string{string(types.PositionStatusPending), string(types.PositionStatusOpen)}

// PositionRepository implements position.Repository on one positions table.
type PositionRepository struct {
	store *Store
	table string
}

var _ position.Repository = (*PositionRepository)(nil)

// Positions returns the repository of the live positions table.
func (s *Store) Positions() *PositionRepository {
	return &PositionRepository{store: s, table: LivePositionsTable}
}

// CreateRunPositions creates the disposable positions table of one backtest
// run. The returned function drops it.
func (s *Store) CreateRunPositions(ctx context.Context, runID string) (position.Repository, func(context.Context) error, error) {
	table := RunPositionsTable(runID)

	if err := s.createPositionsTable(ctx, table); err != nil {
		return nil, nil, err
	}

	drop := func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}

		s.logger.Debug("Dropped run positions", zap.String("table", table))

		return nil
	}

	return &PositionRepository{store: s, table: table}, drop, nil
}

// RunPositionsTable names the positions table of a run. Characters that are
// not letters or digits become underscores.
func RunPositionsTable(runID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, runID)

	return LivePositionsTable + "_run_" + sanitized
}

func (s *Store) createPositionsTable(ctx context.Context, table string) error {
	// Using raw SQL for DDL - Squirrel doesn't support CREATE TABLE
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			seq BIGINT DEFAULT nextval('position_seq'),
			exchange TEXT NOT NULL,
			ticker TEXT NOT NULL,
			market_type TEXT NOT NULL,
			direction TEXT NOT NULL,
			status TEXT NOT NULL,
			initial_entry_price TEXT,
			average_entry_price TEXT,
			current_price TEXT,
			volume TEXT,
			base_currency TEXT,
			quote_currency TEXT,
			entry_order_id TEXT,
			take_profit_price TEXT,
			expected_profit_percent DOUBLE,
			stop_loss_price TEXT,
			expected_stop_loss_percent DOUBLE,
			finish_reason TEXT,
			filled_level INTEGER,
			realized_pnl TEXT,
			close_price TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			finished_at TIMESTAMP,
			reduce_order_price TEXT,
			partial_closed_at TIMESTAMP
		)
	`, table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", table, err)
	}

	return nil
}

// Insert stores a new position. Inserting an active position into a market
// slot that already has one fails.
func (r *PositionRepository) Insert(ctx context.Context, pos *types.Position) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if pos.IsActive() {
		var count int

		err := r.store.sq.
			Select("COUNT(*)").
			From(r.table).
			Where(r.keyFilter(pos.Key())).
			Where(squirrel.Eq{"status": activeStatuses}).
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&count)
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to count active positions", err)
		}

		if count > 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "active position already exists for %s", pos.Key())
		}
	}

	_, err = r.store.sq.
		Insert(r.table).
		Columns(positionColumns...).
		Values(positionValues(pos)...).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert position %s", pos.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PositionRepository) Update(ctx context.Context, pos *types.Position) error {
	values := positionValues(pos)

	set := make(map[string]any, len(positionColumns)-1)
	for i, column := range positionColumns {
		if column == "id" {
			continue
		}

		set[column] = values[i]
	}

	res, err := r.store.sq.
		Update(r.table).
		SetMap(set).
		Where(squirrel.Eq{"id": pos.ID}).
		RunWith(r.store.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to update position %s", pos.ID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return errors.Newf(errors.ErrCodePositionNotFound, "position %s not found", pos.ID)
	}

	return nil
}

func (r *PositionRepository) FindActive(ctx context.Context, key types.PositionKey) (optional.Option[*types.Position], error) {
	positions, err := r.query(ctx, r.selectPositions().
		Where(r.keyFilter(key)).
		Where(squirrel.Eq{"status": activeStatuses}).
		OrderBy("seq ASC").
		Limit(1))
	if err != nil {
		return optional.None[*types.Position](), err
	}

	return first(positions), nil
}

func (r *PositionRepository) ListActive(ctx context.Context) ([]*types.Position, error) {
	return r.query(ctx, r.selectPositions().
		Where(squirrel.Eq{"status": activeStatuses}).
		OrderBy("seq ASC"))
}

func (r *PositionRepository) ListAll(ctx context.Context) ([]*types.Position, error) {
	return r.query(ctx, r.selectPositions().OrderBy("seq ASC"))
}

func (r *PositionRepository) LastFinishedWithReason(ctx context.Context, key types.PositionKey, reason types.FinishReason) (optional.Option[*types.Position], error) {
	positions, err := r.query(ctx, r.selectPositions().
		Where(r.keyFilter(key)).
		Where(squirrel.Eq{"finish_reason": string(reason)}).
		Where(squirrel.NotEq{"finished_at": nil}).
		OrderBy("finished_at DESC", "seq DESC").
		Limit(1))
	if err != nil {
		return optional.None[*types.Position](), err
	}

	return first(positions), nil
}

func (r *PositionRepository) keyFilter(key types.PositionKey) squirrel.Eq {
	return squirrel.Eq{
		"exchange":    key.ExchangeName,
		"ticker":      key.Ticker,
		"market_type": string(key.MarketType),
	}
}

func (r *PositionRepository) selectPositions() squirrel.SelectBuilder {
	return r.store.sq.Select(positionColumns...).From(r.table)
}

func (r *PositionRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*types.Position, error) {
	rows, err := q.RunWith(r.store.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s", r.table)
	}
	defer rows.Close()

	var positions []*types.Position

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}

		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

func first(positions []*types.Position) optional.Option[*types.Position] {
	if len(positions) == 0 {
		return optional.None[*types.Position]()
	}

	return optional.Some(positions[0])
}

// positionValues returns the column values in positionColumns order. Money is
// stored as decimal text.
func positionValues(p *types.Position) []any {
	var finishedAt, partialClosedAt any
	if t, err := p.FinishedAt.Take(); err == nil {
		finishedAt = t.UTC()
	}

	if t, err := p.PartialClosedAt.Take(); err == nil {
		partialClosedAt = t.UTC()
	}

	return []any{
		p.ID, p.ExchangeName, p.Ticker, string(p.MarketType), string(p.Direction), string(p.Status),
		p.InitialEntryPrice.String(), p.AverageEntryPrice.String(), p.CurrentPrice.String(), p.Volume.String(),
		p.BaseCurrency, p.QuoteCurrency, p.EntryOrderID,
		nullDecimal(p.TakeProfitPrice), p.ExpectedProfitPercent, nullDecimal(p.StopLossPrice), p.ExpectedStopLossPercent,
		string(p.FinishReason), p.FilledLevel, p.RealizedPnl.String(), nullDecimal(p.ClosePrice),
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(), finishedAt,
		nullDecimal(p.ReduceOrderPrice), partialClosedAt,
	}
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}

	return d.Decimal.String()
}

func scanPosition(rows squirrel.RowScanner) (*types.Position, error) {
	var (
		p                                           types.Position
		marketType, direction, status, reason       string
		initial, average, current, volume, realized string
		takeProfit, stopLoss, closePrice, reduce    sql.NullString
		finishedAt, partialClosedAt                 sql.NullTime
	)

	err := rows.Scan(
		&p.ID, &p.ExchangeName, &p.Ticker, &marketType, &direction, &status,
		&initial, &average, &current, &volume,
		&p.BaseCurrency, &p.QuoteCurrency, &p.EntryOrderID,
		&takeProfit, &p.ExpectedProfitPercent, &stopLoss, &p.ExpectedStopLossPercent,
		&reason, &p.FilledLevel, &realized, &closePrice,
		&p.CreatedAt, &p.UpdatedAt, &finishedAt,
		&reduce, &partialClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	p.MarketType = types.MarketType(marketType)
	p.Direction = types.Direction(direction)
	p.Status = types.PositionStatus(status)
	p.FinishReason = types.FinishReason(reason)

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.InitialEntryPrice, initial},
		{&p.AverageEntryPrice, average},
		{&p.CurrentPrice, current},
		{&p.Volume, volume},
		{&p.RealizedPnl, realized},
	} {
		value, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", p.ID, err)
		}

		*field.dst = value
	}

	for _, field := range []struct {
		dst *decimal.NullDecimal
		src sql.NullString
	}{
		{&p.TakeProfitPrice, takeProfit},
		{&p.StopLossPrice, stopLoss},
		{&p.ClosePrice, closePrice},
		{&p.ReduceOrderPrice, reduce},
	} {
		if !field.src.Valid {
			continue
		}

		value, err := decimal.NewFromString(field.src.String)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", p.ID, err)
		}

		*field.dst = decimal.NewNullDecimal(value)
	}

	p.FinishedAt = optional.None[time.Time]()
	if finishedAt.Valid {
		p.FinishedAt = optional.Some(finishedAt.Time.UTC())
	}

	p.PartialClosedAt = optional.None[time.Time]()
	if partialClosedAt.Valid {
		p.PartialClosedAt = optional.Some(partialClosedAt.Time.UTC())
	}

	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}
