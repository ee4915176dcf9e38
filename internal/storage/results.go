package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-dca/internal/backtest"
	"github.com/rxtech-lab/argo-dca/internal/optimizer"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/shopspring/decimal"
)

var resultColumns = []string{
	"id", "exchange", "ticker", "symbol", "market_type", "timeframe", "strategy", "params",
	"start_time", "end_time", "initial_balance", "final_balance", "pnl_percent", "liquidated",
	"stats", "created_at",
}

var (
	_ backtest.ResultStore      = (*Store)(nil)
	_ backtest.RunPositionStore = (*Store)(nil)
	_ backtest.CandleSource     = (*CandleStore)(nil)
	_ optimizer.BaselineStore   = (*Store)(nil)
	_ optimizer.SuggestionStore = (*Store)(nil)
)

// encodeParams renders params as JSON. encoding/json sorts map keys, so equal
// parameter sets always produce equal text.
func encodeParams(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}

	out, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}

	return string(out), nil
}

// SaveResult stores a finished backtest.
func (s *Store) SaveResult(ctx context.Context, r *backtest.Result) error {
	params, err := encodeParams(r.Params)
	if err != nil {
		return err
	}

	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	_, err = s.sq.
		Insert("backtest_results").
		Columns(resultColumns...).
		Values(
			r.RunID, r.ExchangeName, r.Ticker, r.Symbol, string(r.MarketType), string(r.Timeframe), r.Strategy, params,
			r.Start.UTC(), r.End.UTC(), r.InitialBalance.String(), r.FinalBalance.String(), r.PnlPercent, r.Liquidated,
			string(stats), r.CreatedAt.UTC(),
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to save result %s", r.RunID)
	}

	return nil
}

// FindResult returns the stored result with id.
func (s *Store) FindResult(ctx context.Context, id string) (optional.Option[*backtest.Result], error) {
	results, err := s.queryResults(ctx, s.sq.Select(resultColumns...).From("backtest_results").Where(squirrel.Eq{"id": id}))
	if err != nil || len(results) == 0 {
		return optional.None[*backtest.Result](), err
	}

	return optional.Some(results[0]), nil
}

// FindBaseline returns the newest result of the same pair, strategy and
// parameters created after q.CreatedAfter whose simulated span is at least
// q.MinDuration.
func (s *Store) FindBaseline(ctx context.Context, q optimizer.BaselineQuery) (optional.Option[*backtest.Result], error) {
	params, err := encodeParams(q.Params)
	if err != nil {
		return optional.None[*backtest.Result](), err
	}

	results, err := s.queryResults(ctx, s.sq.
		Select(resultColumns...).
		From("backtest_results").
		Where(squirrel.Eq{
			"exchange":    q.Pair.ExchangeName,
			"symbol":      q.Pair.Symbol(),
			"market_type": string(q.Pair.MarketType),
			"timeframe":   string(q.Pair.Timeframe),
			"strategy":    q.Strategy,
			"params":      params,
			"liquidated":  false,
		}).
		Where(squirrel.GtOrEq{"created_at": q.CreatedAfter.UTC()}).
		OrderBy("created_at DESC"))
	if err != nil {
		return optional.None[*backtest.Result](), err
	}

	for _, r := range results {
		if r.Duration() >= q.MinDuration {
			return optional.Some(r), nil
		}
	}

	return optional.None[*backtest.Result](), nil
}

func (s *Store) queryResults(ctx context.Context, q squirrel.SelectBuilder) ([]*backtest.Result, error) {
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query backtest results", err)
	}
	defer rows.Close()

	var results []*backtest.Result

	for rows.Next() {
		var (
			r                     backtest.Result
			marketType, timeframe string
			params, stats         string
			initial, final        string
		)

		err := rows.Scan(
			&r.RunID, &r.ExchangeName, &r.Ticker, &r.Symbol, &marketType, &timeframe, &r.Strategy, &params,
			&r.Start, &r.End, &initial, &final, &r.PnlPercent, &r.Liquidated,
			&stats, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest result: %w", err)
		}

		r.MarketType = types.MarketType(marketType)
		r.Timeframe = types.Timeframe(timeframe)
		r.Start, r.End, r.CreatedAt = r.Start.UTC(), r.End.UTC(), r.CreatedAt.UTC()

		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("result %s: failed to decode params: %w", r.RunID, err)
		}

		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, fmt.Errorf("result %s: failed to decode stats: %w", r.RunID, err)
		}

		if r.InitialBalance, err = decimal.NewFromString(initial); err != nil {
			return nil, fmt.Errorf("result %s: %w", r.RunID, err)
		}

		if r.FinalBalance, err = decimal.NewFromString(final); err != nil {
			return nil, fmt.Errorf("result %s: %w", r.RunID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backtest results: %w", err)
	}

	return results, nil
}
