package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altradar/signals/internal/risk"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// setupTest initializes logger for tests
func setupTest(t *testing.T) {
	t.Helper()
	if logger.Log == nil {
		if err := logger.Init("error", ""); err != nil {
			t.Fatalf("Failed to initialize logger: %v", err)
		}
	}
}

type resolution struct {
	signalID int64
	outcome  models.Outcome
	pnl      float64
}

// fakeSignalStore serves active signals and records resolutions
type fakeSignalStore struct {
	active      []models.SignalOutput
	resolutions []resolution
	activeErr   error
}

func (f *fakeSignalStore) ActiveSignals(ctx context.Context) ([]models.SignalOutput, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeSignalStore) ResolveSignal(ctx context.Context, signalID int64, outcome models.Outcome, pnlPercent float64, resolvedAt time.Time) error {
	f.resolutions = append(f.resolutions, resolution{signalID: signalID, outcome: outcome, pnl: pnlPercent})
	return nil
}

// fakePrices returns one fixed bar for every asset
type fakePrices struct {
	high, low, close float64
	err              error
}

func (f *fakePrices) LatestPrice(ctx context.Context, asset, timeframe string) (float64, float64, float64, error) {
	if f.err != nil {
		return 0, 0, 0, f.err
	}
	return f.high, f.low, f.close, nil
}

type fakeExit struct {
	decision risk.ExitDecision
}

func (f *fakeExit) EvaluateOpenPosition(ctx context.Context, asset string, pos risk.OpenPosition) (risk.ExitDecision, error) {
	return f.decision, nil
}

func longSignal(id int64) models.SignalOutput {
	return models.SignalOutput{
		ID:         id,
		Asset:      "BTC",
		Direction:  models.DirectionLong,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
	}
}

func shortSignal(id int64) models.SignalOutput {
	return models.SignalOutput{
		ID:         id,
		Asset:      "ETH",
		Direction:  models.DirectionShort,
		EntryPrice: 100,
		StopLoss:   105,
		TakeProfit: 90,
	}
}

func TestLevelTouch(t *testing.T) {
	tests := []struct {
		name    string
		sig     models.SignalOutput
		high    float64
		low     float64
		outcome models.Outcome
		pnl     float64
		hit     bool
	}{
		{"long stop hit", longSignal(1), 101, 94.5, models.OutcomeLost, -5, true},
		{"long target hit", longSignal(1), 111, 102, models.OutcomeWon, 10, true},
		{"long bar spans both, stop wins", longSignal(1), 111, 94, models.OutcomeLost, -5, true},
		{"long untouched", longSignal(1), 104, 98, "", 0, false},
		{"short stop hit", shortSignal(1), 106, 101, models.OutcomeLost, -5, true},
		{"short target hit", shortSignal(1), 99, 89, models.OutcomeWon, 10, true},
		{"short bar spans both, stop wins", shortSignal(1), 106, 89, models.OutcomeLost, -5, true},
		{"short untouched", shortSignal(1), 103, 96, "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, pnl, hit := levelTouch(tt.sig, tt.high, tt.low)
			assert.Equal(t, tt.hit, hit)
			if tt.hit {
				assert.Equal(t, tt.outcome, outcome)
				assert.InDelta(t, tt.pnl, pnl, 1e-9)
			}
		})
	}
}

func TestOutcomeWorker_ResolvesStopHit(t *testing.T) {
	setupTest(t)

	store := &fakeSignalStore{active: []models.SignalOutput{longSignal(42)}}
	prices := &fakePrices{high: 101, low: 94, close: 96}

	worker := NewOutcomeWorker(store, prices, nil, "1h")
	require.NoError(t, worker.Run(context.Background()))

	require.Len(t, store.resolutions, 1)
	assert.Equal(t, int64(42), store.resolutions[0].signalID)
	assert.Equal(t, models.OutcomeLost, store.resolutions[0].outcome)
	assert.InDelta(t, -5.0, store.resolutions[0].pnl, 1e-9)
}

func TestOutcomeWorker_MomentumFadeExit(t *testing.T) {
	setupTest(t)

	store := &fakeSignalStore{active: []models.SignalOutput{longSignal(7)}}
	// Price inside the levels, but the dual-timeframe check says momentum
	// is gone with the trade up 6%.
	prices := &fakePrices{high: 107, low: 104, close: 106}
	exit := &fakeExit{decision: risk.ExitDecision{ShouldExit: true, UnrealizedPct: 6.0}}

	worker := NewOutcomeWorker(store, prices, exit, "1h")
	require.NoError(t, worker.Run(context.Background()))

	require.Len(t, store.resolutions, 1)
	assert.Equal(t, models.OutcomeWon, store.resolutions[0].outcome)
	assert.InDelta(t, 6.0, store.resolutions[0].pnl, 1e-9)
}

func TestOutcomeWorker_HoldsWhenNothingTriggers(t *testing.T) {
	setupTest(t)

	store := &fakeSignalStore{active: []models.SignalOutput{longSignal(7), shortSignal(8)}}
	prices := &fakePrices{high: 103, low: 98, close: 100}
	exit := &fakeExit{decision: risk.ExitDecision{ShouldExit: false}}

	worker := NewOutcomeWorker(store, prices, exit, "1h")
	require.NoError(t, worker.Run(context.Background()))

	assert.Empty(t, store.resolutions)
}

func TestOutcomeWorker_PriceErrorDoesNotAbortRun(t *testing.T) {
	setupTest(t)

	store := &fakeSignalStore{active: []models.SignalOutput{longSignal(1)}}
	prices := &fakePrices{err: errors.New("no rows")}

	worker := NewOutcomeWorker(store, prices, nil, "1h")
	assert.NoError(t, worker.Run(context.Background()))
	assert.Empty(t, store.resolutions)
}

func TestOutcomeWorker_StoreErrorFailsRun(t *testing.T) {
	setupTest(t)

	store := &fakeSignalStore{activeErr: errors.New("connection refused")}
	worker := NewOutcomeWorker(store, &fakePrices{}, nil, "1h")

	assert.Error(t, worker.Run(context.Background()))
}
