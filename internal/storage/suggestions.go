package storage

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-dca/internal/optimizer"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

var suggestionColumns = []string{
	"id", "exchange", "symbol", "market_type", "timeframe", "strategy", "parameter",
	"before_value", "after_value", "before_pnl_percent", "after_pnl_percent",
	"baseline_run_id", "candidate_run_id", "start_time", "end_time", "config_snippet", "created_at",
}

// SaveSuggestion stores an optimizer suggestion.
func (s *Store) SaveSuggestion(ctx context.Context, sg *optimizer.Suggestion) error {
	_, err := s.sq.
		Insert("optimizer_suggestions").
		Columns(suggestionColumns...).
		Values(
			sg.ID, sg.ExchangeName, sg.Symbol, sg.MarketType, sg.Timeframe, sg.Strategy, sg.Parameter,
			sg.BeforeValue, sg.AfterValue, sg.BeforePnlPercent, sg.AfterPnlPercent,
			sg.BaselineRunID, sg.CandidateRunID, sg.Start.UTC(), sg.End.UTC(), sg.ConfigSnippet, sg.CreatedAt.UTC(),
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to save suggestion %s", sg.ID)
	}

	return nil
}

// ListSuggestions returns stored suggestions, best improvement first. A
// positive limit caps the number of rows.
func (s *Store) ListSuggestions(ctx context.Context, limit uint64) ([]*optimizer.Suggestion, error) {
	q := s.sq.
		Select(suggestionColumns...).
		From("optimizer_suggestions").
		OrderBy("after_pnl_percent - before_pnl_percent DESC", "created_at DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query suggestions", err)
	}
	defer rows.Close()

	var suggestions []*optimizer.Suggestion

	for rows.Next() {
		var sg optimizer.Suggestion

		err := rows.Scan(
			&sg.ID, &sg.ExchangeName, &sg.Symbol, &sg.MarketType, &sg.Timeframe, &sg.Strategy, &sg.Parameter,
			&sg.BeforeValue, &sg.AfterValue, &sg.BeforePnlPercent, &sg.AfterPnlPercent,
			&sg.BaselineRunID, &sg.CandidateRunID, &sg.Start, &sg.End, &sg.ConfigSnippet, &sg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}

		sg.Start, sg.End, sg.CreatedAt = sg.Start.UTC(), sg.End.UTC(), sg.CreatedAt.UTC()
		suggestions = append(suggestions, &sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}
