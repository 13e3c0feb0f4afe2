// Package clickhouse mirrors emitted signals and learning cycles into the
// analytical store for offline inspection and weight replay audits.
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// Repository handles ClickHouse data operations
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new ClickHouse repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveSignals writes emitted signals to the analytical history table
func (r *Repository) SaveSignals(ctx context.Context, signals []models.SignalOutput) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO signals_history
		(id, asset, created_at, score, direction, entry_price, stop_loss,
		 take_profit, risk_reward_ratio, agreement, regime, indicator_values)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		indicatorsJSON, err := json.Marshal(sig.IndicatorValues)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal indicator values: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			sig.ID,
			sig.Asset,
			sig.CreatedAt,
			sig.Score,
			string(sig.Direction),
			sig.EntryPrice,
			sig.StopLoss,
			sig.TakeProfit,
			sig.RiskRewardRatio,
			sig.Agreement,
			string(sig.Regime),
			string(indicatorsJSON),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("saved signals to ClickHouse",
		zap.Int("count", len(signals)),
	)

	return nil
}

// SaveCycles writes learning cycles to the analytical history table
func (r *Repository) SaveCycles(ctx context.Context, cycles []models.LearningCycle) error {
	if len(cycles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO learning_cycles_history
		(id, triggered_by, streak_length, adjustments, weights_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, cycle := range cycles {
		adjustmentsJSON, err := json.Marshal(cycle.Adjustments)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal adjustments: %w", err)
		}

		weightsJSON, err := json.Marshal(cycle.WeightsAfter)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal weights snapshot: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			cycle.ID,
			string(cycle.TriggeredBy),
			cycle.StreakLength,
			string(adjustmentsJSON),
			string(weightsJSON),
			cycle.CreatedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert learning cycle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("saved learning cycles to ClickHouse",
		zap.Int("count", len(cycles)),
	)

	return nil
}
