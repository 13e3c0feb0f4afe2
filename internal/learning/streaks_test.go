package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altradar/signals/pkg/models"
)

func outcomes(seq ...models.Outcome) []models.ResolvedSignal {
	signals := make([]models.ResolvedSignal, len(seq))
	for i, outcome := range seq {
		signals[i] = models.ResolvedSignal{
			SignalID:   int64(i + 1),
			Outcome:    outcome,
			ResolvedAt: resolvedAt(i + 1),
		}
	}
	return signals
}

func TestDetectUnprocessedStreak_BelowMinimum(t *testing.T) {
	history := outcomes(models.OutcomeLost, models.OutcomeLost)
	assert.Nil(t, DetectUnprocessedStreak(history, time.Time{}))
}

func TestDetectUnprocessedStreak_ExactMinimum(t *testing.T) {
	history := outcomes(models.OutcomeLost, models.OutcomeLost, models.OutcomeLost)

	streak := DetectUnprocessedStreak(history, time.Time{})
	require.NotNil(t, streak)
	assert.Equal(t, models.OutcomeLost, streak.Outcome)
	assert.Equal(t, 3, streak.Length())
}

func TestDetectUnprocessedStreak_ExtendsToFullRun(t *testing.T) {
	history := outcomes(
		models.OutcomeWon,
		models.OutcomeWon,
		models.OutcomeWon,
		models.OutcomeWon,
		models.OutcomeWon,
	)

	streak := DetectUnprocessedStreak(history, time.Time{})
	require.NotNil(t, streak)
	assert.Equal(t, models.OutcomeWon, streak.Outcome)
	assert.Equal(t, 5, streak.Length())
}

func TestDetectUnprocessedStreak_StopsAtOutcomeFlip(t *testing.T) {
	history := outcomes(
		models.OutcomeLost,
		models.OutcomeLost,
		models.OutcomeLost,
		models.OutcomeWon,
		models.OutcomeWon,
	)

	streak := DetectUnprocessedStreak(history, time.Time{})
	require.NotNil(t, streak)
	assert.Equal(t, models.OutcomeLost, streak.Outcome)
	assert.Equal(t, 3, streak.Length())
}

func TestDetectUnprocessedStreak_SkipsShortLeadingRun(t *testing.T) {
	history := outcomes(
		models.OutcomeWon,
		models.OutcomeWon,
		models.OutcomeLost,
		models.OutcomeLost,
		models.OutcomeLost,
	)

	streak := DetectUnprocessedStreak(history, time.Time{})
	require.NotNil(t, streak)
	assert.Equal(t, models.OutcomeLost, streak.Outcome)
	assert.Equal(t, 3, streak.Length())
}

func TestDetectUnprocessedStreak_RespectsWatermark(t *testing.T) {
	history := outcomes(
		models.OutcomeLost,
		models.OutcomeLost,
		models.OutcomeLost,
		models.OutcomeLost,
	)

	// Everything up to the second signal is already processed: the two
	// remaining losses are not enough for a streak.
	assert.Nil(t, DetectUnprocessedStreak(history, resolvedAt(2)))

	// A signal resolved exactly at the watermark does not count as new
	streak := DetectUnprocessedStreak(history, resolvedAt(1))
	require.NotNil(t, streak)
	assert.Equal(t, 3, streak.Length())
}
