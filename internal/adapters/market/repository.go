// Package market reads candle history and derivatives state out of
// ClickHouse. The ingestion pipeline that fills these tables lives outside
// this service.
package market

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/altradar/signals/internal/engine"
	"github.com/altradar/signals/pkg/models"
)

// Repository handles market data reads from ClickHouse
type Repository struct {
	ch *sqlx.DB
}

// NewRepository creates new market repository
func NewRepository(ch *sqlx.DB) *Repository {
	return &Repository{ch: ch}
}

// Candles retrieves the most recent candles in chronological order
func (r *Repository) Candles(ctx context.Context, asset, timeframe string, limit int) ([]models.Candle, error) {
	query := `
		SELECT timestamp, asset, timeframe, open, high, low, close, volume
		FROM market_ohlcv
		WHERE asset = ? AND timeframe = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.ch.QueryxContext(ctx, query, asset, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	candles := []models.Candle{}
	for rows.Next() {
		var candle models.Candle
		var open, high, low, closePrice, volume float64

		err := rows.Scan(
			&candle.Timestamp,
			&candle.Symbol,
			&candle.Timeframe,
			&open,
			&high,
			&low,
			&closePrice,
			&volume,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}

		candle.Open = models.NewDecimal(open)
		candle.High = models.NewDecimal(high)
		candle.Low = models.NewDecimal(low)
		candle.Close = models.NewDecimal(closePrice)
		candle.Volume = models.NewDecimal(volume)

		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	// Reverse to chronological order (oldest first)
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// PositioningContext retrieves the latest derivatives state for one asset
func (r *Repository) PositioningContext(ctx context.Context, asset string) (*models.PositioningContext, error) {
	query := `
		SELECT funding_rate, annualized_funding, open_interest,
		       prev_open_interest, prev_funding, premium,
		       volume_24h, avg_volume, price_change_24h
		FROM derivatives_state
		WHERE asset = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var pctx models.PositioningContext
	var prevOI, prevFunding, avgVolume sql.NullFloat64

	err := r.ch.QueryRowxContext(ctx, query, asset).Scan(
		&pctx.FundingRate,
		&pctx.AnnualizedFunding,
		&pctx.OpenInterest,
		&prevOI,
		&prevFunding,
		&pctx.Premium,
		&pctx.Volume24h,
		&avgVolume,
		&pctx.PriceChange,
	)
	if err == sql.ErrNoRows {
		return &models.PositioningContext{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query derivatives state: %w", err)
	}

	if prevOI.Valid {
		pctx.PrevOpenInterest = &prevOI.Float64
	}
	if prevFunding.Valid {
		pctx.PrevFunding = &prevFunding.Float64
	}
	if avgVolume.Valid {
		pctx.AvgVolume = &avgVolume.Float64
	}

	return &pctx, nil
}

// MarketBreadth aggregates market-wide derivatives state for regime detection
func (r *Repository) MarketBreadth(ctx context.Context) (*engine.Breadth, error) {
	breadth := &engine.Breadth{}

	changesQuery := `
		SELECT price_change_24h
		FROM derivatives_state
		WHERE updated_at > now() - INTERVAL 1 DAY
		ORDER BY asset, updated_at DESC
		LIMIT 1 BY asset
	`

	rows, err := r.ch.QueryxContext(ctx, changesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query market changes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var change float64
		if err := rows.Scan(&change); err != nil {
			return nil, fmt.Errorf("failed to scan market change: %w", err)
		}
		breadth.AltChanges = append(breadth.AltChanges, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	avgQuery := `
		SELECT avg(annualized_funding) AS avg_funding,
		       avg(if(prev_open_interest > 0,
		              (open_interest - prev_open_interest) / prev_open_interest * 100, 0)) AS avg_oi_change
		FROM (
			SELECT asset, annualized_funding, open_interest, prev_open_interest
			FROM derivatives_state
			WHERE updated_at > now() - INTERVAL 1 DAY
			ORDER BY asset, updated_at DESC
			LIMIT 1 BY asset
		)
	`

	err = r.ch.QueryRowxContext(ctx, avgQuery).Scan(&breadth.AvgFunding, &breadth.AvgOIChange)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query derivatives averages: %w", err)
	}

	return breadth, nil
}

// LatestPrice returns the most recent close for an asset on the base timeframe
func (r *Repository) LatestPrice(ctx context.Context, asset, timeframe string) (high, low, closePrice float64, err error) {
	query := `
		SELECT high, low, close
		FROM market_ohlcv
		WHERE asset = ? AND timeframe = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	err = r.ch.QueryRowxContext(ctx, query, asset, timeframe).Scan(&high, &low, &closePrice)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to query latest price: %w", err)
	}

	return high, low, closePrice, nil
}
