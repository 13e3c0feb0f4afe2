package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altradar/signals/internal/indicators"
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

// fakeRepo is an in-memory Repository for loop and store tests
type fakeRepo struct {
	weights        models.WeightVector
	cycles         []models.LearningCycle
	lastProcessed  time.Time
	saveWeightsErr error
	saveCycleErr   error
}

func (f *fakeRepo) LoadWeights(ctx context.Context) (models.WeightVector, error) {
	return f.weights, nil
}

func (f *fakeRepo) SaveWeights(ctx context.Context, weights models.WeightVector) error {
	if f.saveWeightsErr != nil {
		return f.saveWeightsErr
	}
	f.weights = weights.Clone()
	return nil
}

func (f *fakeRepo) SaveCycle(ctx context.Context, cycle *models.LearningCycle) error {
	if f.saveCycleErr != nil {
		return f.saveCycleErr
	}
	cycle.ID = int64(len(f.cycles) + 1)
	f.cycles = append(f.cycles, *cycle)
	return nil
}

func (f *fakeRepo) Cycles(ctx context.Context) ([]models.LearningCycle, error) {
	return f.cycles, nil
}

func (f *fakeRepo) ResolvedAfter(ctx context.Context, after time.Time) ([]models.ResolvedSignal, error) {
	return nil, nil
}

func (f *fakeRepo) LastProcessedAt(ctx context.Context) (time.Time, error) {
	return f.lastProcessed, nil
}

func (f *fakeRepo) SetLastProcessedAt(ctx context.Context, at time.Time) error {
	f.lastProcessed = at
	return nil
}

func newTestStore(t *testing.T, repo Repository) *Store {
	t.Helper()
	setupTest(t)
	store, err := NewStore(context.Background(), indicators.DefaultWeights(), repo)
	require.NoError(t, err)
	return store
}

func resolvedAt(i int) time.Time {
	return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
}

// losingLong builds a LOST long signal with the given indicator readings
func losingLong(i int, values map[string]models.IndicatorResult) models.ResolvedSignal {
	return models.ResolvedSignal{
		SignalID:        int64(i),
		Asset:           "BTC",
		Direction:       models.DirectionLong,
		Outcome:         models.OutcomeLost,
		PnLPercent:      -4.2,
		ResolvedAt:      resolvedAt(i),
		IndicatorValues: values,
	}
}

func winningLong(i int, values map[string]models.IndicatorResult) models.ResolvedSignal {
	return models.ResolvedSignal{
		SignalID:        int64(i),
		Asset:           "BTC",
		Direction:       models.DirectionLong,
		Outcome:         models.OutcomeWon,
		PnLPercent:      3.8,
		ResolvedAt:      resolvedAt(i),
		IndicatorValues: values,
	}
}

func bullish(strength float64) models.IndicatorResult {
	return models.IndicatorResult{Signal: models.SignalBullish, Strength: strength}
}

func TestProcessHistory_LossStreakReducesAlignedWeight(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	// RSI was strongly bullish in all three losing longs; MACD was aligned
	// but weak and must not be touched.
	values := map[string]models.IndicatorResult{
		indicators.NameRSI:  bullish(0.8),
		indicators.NameMACD: bullish(0.5),
	}
	history := []models.ResolvedSignal{
		losingLong(1, values),
		losingLong(2, values),
		losingLong(3, values),
	}

	cycle, through, err := loop.ProcessHistory(context.Background(), history, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, cycle)

	assert.Equal(t, models.TriggerLossStreak, cycle.TriggeredBy)
	assert.Equal(t, 3, cycle.StreakLength)
	assert.Equal(t, resolvedAt(3), through)

	require.Len(t, cycle.Adjustments, 1)
	adj := cycle.Adjustments[0]
	assert.Equal(t, indicators.NameRSI, adj.Indicator)
	assert.InDelta(t, 10.0, adj.OldWeight, 1e-9)
	assert.InDelta(t, 8.5, adj.NewWeight, 1e-9)

	weights := store.Snapshot()
	assert.InDelta(t, 8.5, weights[indicators.NameRSI], 1e-9)
	assert.InDelta(t, models.WeightVectorSum, weights.Sum(), models.WeightSumEps)
	// The weak-aligned indicator absorbed part of the freed weight instead
	// of being cut.
	assert.Greater(t, weights[indicators.NameMACD], 10.0)
	assert.Equal(t, weights, cycle.WeightsAfter)
}

func TestProcessHistory_WeakAlignmentDoesNotTrigger(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	// One of the three losses saw RSI below the strength bar, so the streak
	// advances the watermark without mutating weights.
	history := []models.ResolvedSignal{
		losingLong(1, map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.8)}),
		losingLong(2, map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.5)}),
		losingLong(3, map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.9)}),
	}

	before := store.Snapshot()
	cycle, through, err := loop.ProcessHistory(context.Background(), history, time.Time{})
	require.NoError(t, err)

	assert.Nil(t, cycle)
	assert.Equal(t, resolvedAt(3), through)
	assert.Equal(t, before, store.Snapshot())
}

func TestProcessHistory_WinStreakIncreasesAlignedWeight(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	aligned := map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.4)}
	neutral := map[string]models.IndicatorResult{indicators.NameRSI: models.Neutral(50)}

	// RSI aligned in 3 of 5 wins (60%), the minimum qualifying ratio
	history := []models.ResolvedSignal{
		winningLong(1, aligned),
		winningLong(2, aligned),
		winningLong(3, neutral),
		winningLong(4, aligned),
		winningLong(5, neutral),
	}

	cycle, through, err := loop.ProcessHistory(context.Background(), history, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, cycle)

	assert.Equal(t, models.TriggerWinStreak, cycle.TriggeredBy)
	assert.Equal(t, 5, cycle.StreakLength)
	assert.Equal(t, resolvedAt(5), through)

	weights := store.Snapshot()
	assert.InDelta(t, 11.0, weights[indicators.NameRSI], 1e-9)
	assert.InDelta(t, models.WeightVectorSum, weights.Sum(), models.WeightSumEps)
}

func TestProcessHistory_WinIncreaseClampedAtMax(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	// Push RSI near the ceiling first: 19 + 1 keeps the vector on sum 100
	custom := indicators.DefaultWeights()
	custom[indicators.NameRSI] = 19
	custom[indicators.NameMACD] = 1
	require.NoError(t, store.Replace(context.Background(), custom))

	aligned := map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.6)}
	history := []models.ResolvedSignal{
		winningLong(1, aligned),
		winningLong(2, aligned),
		winningLong(3, aligned),
	}

	cycle, _, err := loop.ProcessHistory(context.Background(), history, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, cycle)

	weights := store.Snapshot()
	assert.LessOrEqual(t, weights[indicators.NameRSI], models.WeightMax)
	assert.InDelta(t, models.WeightMax, weights[indicators.NameRSI], 0.01)
	assert.InDelta(t, models.WeightVectorSum, weights.Sum(), models.WeightSumEps)
}

func TestProcessHistory_NoStreakLeavesWatermark(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	last := resolvedAt(10)
	history := []models.ResolvedSignal{
		losingLong(1, nil),
		losingLong(2, nil),
	}

	cycle, through, err := loop.ProcessHistory(context.Background(), history, last)
	require.NoError(t, err)
	assert.Nil(t, cycle)
	assert.Equal(t, last, through)
}

func TestProcessHistory_PersistFailureLeavesWeightsIntact(t *testing.T) {
	repo := &fakeRepo{}
	store := newTestStore(t, repo)
	loop := NewLoop(store)
	repo.saveWeightsErr = errors.New("connection reset")

	values := map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.9)}
	history := []models.ResolvedSignal{
		losingLong(1, values),
		losingLong(2, values),
		losingLong(3, values),
	}

	before := store.Snapshot()
	cycle, through, err := loop.ProcessHistory(context.Background(), history, time.Time{})

	assert.Error(t, err)
	assert.Nil(t, cycle)
	assert.True(t, through.IsZero())
	assert.Equal(t, before, store.Snapshot())
}

func TestProcessRecovery_DriftsCleanIndicatorsTowardDefaults(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	custom := indicators.DefaultWeights()
	custom[indicators.NameRSI] = 8
	custom[indicators.NameMACD] = 12
	require.NoError(t, store.Replace(context.Background(), custom))

	recent := make([]models.ResolvedSignal, RecoveryWindow)
	for i := range recent {
		recent[i] = winningLong(i+1, nil)
	}

	cycle, err := loop.ProcessRecovery(context.Background(), recent)
	require.NoError(t, err)
	require.NotNil(t, cycle)

	assert.Equal(t, models.TriggerRecovery, cycle.TriggeredBy)
	assert.Len(t, cycle.Adjustments, 2)

	weights := store.Snapshot()
	assert.InDelta(t, 8.1, weights[indicators.NameRSI], 1e-9)
	assert.InDelta(t, 11.9, weights[indicators.NameMACD], 1e-9)
	assert.InDelta(t, models.WeightVectorSum, weights.Sum(), models.WeightSumEps)
}

func TestProcessRecovery_LossAppearanceBlocksDrift(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	custom := indicators.DefaultWeights()
	custom[indicators.NameRSI] = 8
	custom[indicators.NameMACD] = 12
	require.NoError(t, store.Replace(context.Background(), custom))

	recent := make([]models.ResolvedSignal, RecoveryWindow)
	for i := range recent {
		recent[i] = winningLong(i+1, nil)
	}
	// One losing trade where RSI was aligned disqualifies it from recovery
	recent[5] = losingLong(6, map[string]models.IndicatorResult{indicators.NameRSI: bullish(0.3)})

	cycle, err := loop.ProcessRecovery(context.Background(), recent)
	require.NoError(t, err)
	require.NotNil(t, cycle)

	require.Len(t, cycle.Adjustments, 1)
	assert.Equal(t, indicators.NameMACD, cycle.Adjustments[0].Indicator)

	weights := store.Snapshot()
	assert.InDelta(t, 11.9, weights[indicators.NameMACD], 1e-9)
}

func TestProcessRecovery_RequiresFullWindow(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	recent := make([]models.ResolvedSignal, RecoveryWindow-1)
	for i := range recent {
		recent[i] = winningLong(i+1, nil)
	}

	cycle, err := loop.ProcessRecovery(context.Background(), recent)
	require.NoError(t, err)
	assert.Nil(t, cycle)
}

func TestProcessRecovery_AtDefaultsIsNoOp(t *testing.T) {
	store := newTestStore(t, &fakeRepo{})
	loop := NewLoop(store)

	recent := make([]models.ResolvedSignal, RecoveryWindow)
	for i := range recent {
		recent[i] = winningLong(i+1, nil)
	}

	cycle, err := loop.ProcessRecovery(context.Background(), recent)
	require.NoError(t, err)
	assert.Nil(t, cycle)
}
