package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

func TestNewStore_RejectsInvalidDefaults(t *testing.T) {
	_, err := NewStore(context.Background(), models.WeightVector{"rsi": 50}, nil)
	assert.Error(t, err)
}

func TestNewStore_LoadsPersistedWeights(t *testing.T) {
	setupTest(t)
	persisted := indicators.DefaultWeights()
	persisted[indicators.NameRSI] = 8.5
	persisted[indicators.NameMACD] = 11.5

	store, err := NewStore(context.Background(), indicators.DefaultWeights(), &fakeRepo{weights: persisted})
	require.NoError(t, err)

	weights := store.Snapshot()
	assert.InDelta(t, 8.5, weights[indicators.NameRSI], 1e-9)
	assert.InDelta(t, 11.5, weights[indicators.NameMACD], 1e-9)
}

func TestNewStore_InvalidPersistedFallsBackToDefaults(t *testing.T) {
	setupTest(t)
	// A two-entry vector cannot be renormalized into bounds, so it is
	// rejected in favor of the defaults.
	store, err := NewStore(context.Background(), indicators.DefaultWeights(), &fakeRepo{
		weights: models.WeightVector{"rsi": 5, "macd": 5},
	})
	require.NoError(t, err)

	assert.Equal(t, indicators.DefaultWeights(), store.Snapshot())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := newTestStore(t, nil)

	snapshot := store.Snapshot()
	snapshot[indicators.NameRSI] = 1

	assert.InDelta(t, 10.0, store.Snapshot()[indicators.NameRSI], 1e-9)
}

func TestStore_ReplaceRejectsInvalidVector(t *testing.T) {
	store := newTestStore(t, nil)

	err := store.Replace(context.Background(), models.WeightVector{"rsi": 5, "macd": 5})
	assert.Error(t, err)
	assert.Equal(t, indicators.DefaultWeights(), store.Snapshot())
}

func TestStore_ReplacePersistsBeforeSwapping(t *testing.T) {
	repo := &fakeRepo{}
	store := newTestStore(t, repo)

	replacement := indicators.DefaultWeights()
	replacement[indicators.NameRSI] = 12
	replacement[indicators.NameMACD] = 8
	require.NoError(t, store.Replace(context.Background(), replacement))

	assert.InDelta(t, 12.0, repo.weights[indicators.NameRSI], 1e-9)
	assert.InDelta(t, 12.0, store.Snapshot()[indicators.NameRSI], 1e-9)
}

func TestStore_DefaultsAreImmutable(t *testing.T) {
	store := newTestStore(t, nil)

	defaults := store.Defaults()
	defaults[indicators.NameRSI] = 1

	assert.InDelta(t, 10.0, store.Defaults()[indicators.NameRSI], 1e-9)
}
