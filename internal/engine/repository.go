package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altradar/signals/pkg/models"
)

// Repository handles database operations for signals
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new signal repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveSignal inserts a signal and fills in its generated ID
func (r *Repository) SaveSignal(ctx context.Context, signal *models.SignalOutput) error {
	indicatorsJSON, err := json.Marshal(signal.IndicatorValues)
	if err != nil {
		return fmt.Errorf("failed to marshal indicator values: %w", err)
	}

	breakdownJSON, err := json.Marshal(signal.CategoryBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal category breakdown: %w", err)
	}

	query := `
		INSERT INTO signals (
			asset, created_at, score, direction, entry_price, stop_loss,
			take_profit, risk_reward_ratio, agreement, regime,
			indicator_values, category_breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx, query,
		signal.Asset,
		signal.CreatedAt,
		signal.Score,
		signal.Direction,
		signal.EntryPrice,
		signal.StopLoss,
		signal.TakeProfit,
		signal.RiskRewardRatio,
		signal.Agreement,
		signal.Regime,
		indicatorsJSON,
		breakdownJSON,
	).Scan(&signal.ID)

	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}

	return nil
}

// ActiveSignals returns unresolved directional signals oldest first
func (r *Repository) ActiveSignals(ctx context.Context) ([]models.SignalOutput, error) {
	query := `
		SELECT id, asset, created_at, score, direction, entry_price, stop_loss,
		       take_profit, risk_reward_ratio, agreement, regime,
		       indicator_values, category_breakdown
		FROM signals
		WHERE outcome IS NULL
		  AND direction != $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.DirectionHold)
	if err != nil {
		return nil, fmt.Errorf("failed to query active signals: %w", err)
	}
	defer rows.Close()

	var signals []models.SignalOutput
	for rows.Next() {
		var sig models.SignalOutput
		var indicatorsJSON, breakdownJSON []byte

		err := rows.Scan(
			&sig.ID,
			&sig.Asset,
			&sig.CreatedAt,
			&sig.Score,
			&sig.Direction,
			&sig.EntryPrice,
			&sig.StopLoss,
			&sig.TakeProfit,
			&sig.RiskRewardRatio,
			&sig.Agreement,
			&sig.Regime,
			&indicatorsJSON,
			&breakdownJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		if err := json.Unmarshal(indicatorsJSON, &sig.IndicatorValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal indicator values: %w", err)
		}
		if err := json.Unmarshal(breakdownJSON, &sig.CategoryBreakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal category breakdown: %w", err)
		}

		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return signals, nil
}

// ResolveSignal records the outcome of a signal exactly once
func (r *Repository) ResolveSignal(ctx context.Context, signalID int64, outcome models.Outcome, pnlPercent float64, resolvedAt time.Time) error {
	query := `
		UPDATE signals
		SET outcome = $1,
		    pnl_percent = $2,
		    resolved_at = $3
		WHERE id = $4
		  AND outcome IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, outcome, pnlPercent, resolvedAt, signalID)
	if err != nil {
		return fmt.Errorf("failed to resolve signal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("signal %d not found or already resolved", signalID)
	}

	return nil
}

// RecentResolved returns the most recent resolved signals, oldest first, up
// to the given limit.
func (r *Repository) RecentResolved(ctx context.Context, limit int) ([]models.ResolvedSignal, error) {
	query := `
		SELECT id, asset, direction, outcome, pnl_percent, resolved_at, indicator_values
		FROM (
			SELECT id, asset, direction, outcome, pnl_percent, resolved_at, indicator_values
			FROM signals
			WHERE outcome IS NOT NULL
			ORDER BY resolved_at DESC
			LIMIT $1
		) recent
		ORDER BY resolved_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved signals: %w", err)
	}
	defer rows.Close()

	var resolved []models.ResolvedSignal
	for rows.Next() {
		var sig models.ResolvedSignal
		var indicatorsJSON []byte

		err := rows.Scan(
			&sig.SignalID,
			&sig.Asset,
			&sig.Direction,
			&sig.Outcome,
			&sig.PnLPercent,
			&sig.ResolvedAt,
			&indicatorsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolved signal: %w", err)
		}

		if err := json.Unmarshal(indicatorsJSON, &sig.IndicatorValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal indicator values: %w", err)
		}

		resolved = append(resolved, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return resolved, nil
}
