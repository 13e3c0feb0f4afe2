package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

func cycleAt(at time.Time, weights models.WeightVector) models.LearningCycle {
	return models.LearningCycle{
		TriggeredBy:  models.TriggerLossStreak,
		StreakLength: 3,
		WeightsAfter: weights,
		CreatedAt:    at,
	}
}

func TestReplay_NoCyclesReturnsDefaults(t *testing.T) {
	defaults := indicators.DefaultWeights()

	weights := Replay(defaults, nil, time.Now())

	assert.Equal(t, defaults, weights)

	// The result is an independent copy
	weights[indicators.NameRSI] = 1
	assert.InDelta(t, 10.0, defaults[indicators.NameRSI], 1e-9)
}

func TestReplay_PicksLatestCycleBeforeCutoff(t *testing.T) {
	defaults := indicators.DefaultWeights()

	first := defaults.Clone()
	first[indicators.NameRSI] = 8.5
	second := defaults.Clone()
	second[indicators.NameRSI] = 7.2

	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	cycles := []models.LearningCycle{cycleAt(t1, first), cycleAt(t2, second)}

	beforeAll := Replay(defaults, cycles, t1.Add(-time.Hour))
	assert.InDelta(t, 10.0, beforeAll[indicators.NameRSI], 1e-9)

	between := Replay(defaults, cycles, t1.Add(time.Hour))
	assert.InDelta(t, 8.5, between[indicators.NameRSI], 1e-9)

	afterAll := Replay(defaults, cycles, t2.Add(time.Hour))
	assert.InDelta(t, 7.2, afterAll[indicators.NameRSI], 1e-9)
}

func TestReplay_CycleAtCutoffIsApplied(t *testing.T) {
	defaults := indicators.DefaultWeights()
	adjusted := defaults.Clone()
	adjusted[indicators.NameRSI] = 8.5

	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	weights := Replay(defaults, []models.LearningCycle{cycleAt(at, adjusted)}, at)

	assert.InDelta(t, 8.5, weights[indicators.NameRSI], 1e-9)
}

func TestReplay_EmptySnapshotIsSkipped(t *testing.T) {
	defaults := indicators.DefaultWeights()
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	weights := Replay(defaults, []models.LearningCycle{cycleAt(at, nil)}, at.Add(time.Hour))

	assert.Equal(t, defaults, weights)
}
