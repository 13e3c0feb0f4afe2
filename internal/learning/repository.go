package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/altradar/signals/pkg/models"
)

// PostgresRepository persists weights, learning cycles and resolution state
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates new learning repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LoadWeights returns the persisted weight vector, or nil when none was saved
func (r *PostgresRepository) LoadWeights(ctx context.Context) (models.WeightVector, error) {
	query := `SELECT weights FROM indicator_weights WHERE id = 1`

	var weightsJSON []byte
	err := r.db.QueryRowContext(ctx, query).Scan(&weightsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}

	var weights models.WeightVector
	if err := json.Unmarshal(weightsJSON, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	return weights, nil
}

// SaveWeights upserts the single live weight vector row
func (r *PostgresRepository) SaveWeights(ctx context.Context, weights models.WeightVector) error {
	weightsJSON, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		INSERT INTO indicator_weights (id, weights, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			weights = EXCLUDED.weights,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, weightsJSON); err != nil {
		return fmt.Errorf("failed to save weights: %w", err)
	}

	return nil
}

// SaveCycle appends one learning cycle to the audit history
func (r *PostgresRepository) SaveCycle(ctx context.Context, cycle *models.LearningCycle) error {
	adjustmentsJSON, err := json.Marshal(cycle.Adjustments)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustments: %w", err)
	}

	weightsJSON, err := json.Marshal(cycle.WeightsAfter)
	if err != nil {
		return fmt.Errorf("failed to marshal weights snapshot: %w", err)
	}

	query := `
		INSERT INTO learning_cycles (
			triggered_by, streak_length, adjustments, weights_after, created_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx, query,
		cycle.TriggeredBy,
		cycle.StreakLength,
		adjustmentsJSON,
		weightsJSON,
		cycle.CreatedAt,
	).Scan(&cycle.ID)

	if err != nil {
		return fmt.Errorf("failed to save learning cycle: %w", err)
	}

	return nil
}

// Cycles returns the full learning history ordered oldest first
func (r *PostgresRepository) Cycles(ctx context.Context) ([]models.LearningCycle, error) {
	query := `
		SELECT id, triggered_by, streak_length, adjustments, weights_after, created_at
		FROM learning_cycles
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query learning cycles: %w", err)
	}
	defer rows.Close()

	var cycles []models.LearningCycle
	for rows.Next() {
		var cycle models.LearningCycle
		var adjustmentsJSON, weightsJSON []byte

		err := rows.Scan(
			&cycle.ID,
			&cycle.TriggeredBy,
			&cycle.StreakLength,
			&adjustmentsJSON,
			&weightsJSON,
			&cycle.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learning cycle: %w", err)
		}

		if err := json.Unmarshal(adjustmentsJSON, &cycle.Adjustments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal adjustments: %w", err)
		}
		if err := json.Unmarshal(weightsJSON, &cycle.WeightsAfter); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights snapshot: %w", err)
		}

		cycles = append(cycles, cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cycles, nil
}

// ResolvedAfter returns resolved signals with ResolvedAt strictly after the
// given time, ordered by resolution time ascending.
func (r *PostgresRepository) ResolvedAfter(ctx context.Context, after time.Time) ([]models.ResolvedSignal, error) {
	query := `
		SELECT id, asset, direction, outcome, pnl_percent, resolved_at, indicator_values
		FROM signals
		WHERE outcome IS NOT NULL
		  AND resolved_at > $1
		ORDER BY resolved_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, after)
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

// LastProcessedAt returns the resolution timestamp learning has consumed up
// to, zero time when learning has never run.
func (r *PostgresRepository) LastProcessedAt(ctx context.Context) (time.Time, error) {
	query := `SELECT last_processed_at FROM learning_state WHERE id = 1`

	var at time.Time
	err := r.db.GetContext(ctx, &at, query)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load learning state: %w", err)
	}

	return at, nil
}

// SetLastProcessedAt advances the learning watermark
func (r *PostgresRepository) SetLastProcessedAt(ctx context.Context, at time.Time) error {
	query := `
		INSERT INTO learning_state (id, last_processed_at, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_processed_at = EXCLUDED.last_processed_at,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, at); err != nil {
		return fmt.Errorf("failed to update learning state: %w", err)
	}

	return nil
}
