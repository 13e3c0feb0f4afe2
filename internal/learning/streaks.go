package learning

import (
	"time"

	"github.com/altradar/signals/pkg/models"
)

// MinStreakLength is the number of consecutive same-outcome results that
// triggers a learning cycle.
const MinStreakLength = 3

// Streak is a run of consecutive same-outcome resolved signals
type Streak struct {
	Outcome models.Outcome
	Signals []models.ResolvedSignal
}

// Length returns the number of signals in the run
func (s *Streak) Length() int {
	return len(s.Signals)
}

// DetectUnprocessedStreak scans resolved signals chronologically after the
// last processed point and returns the first run of at least MinStreakLength
// consecutive same-outcome results, extended to its full length. Returns nil
// when no qualifying run exists.
func DetectUnprocessedStreak(history []models.ResolvedSignal, lastProcessed time.Time) *Streak {
	var run []models.ResolvedSignal

	for _, sig := range history {
		if !sig.ResolvedAt.After(lastProcessed) {
			continue
		}

		if len(run) > 0 && run[0].Outcome != sig.Outcome {
			if len(run) >= MinStreakLength {
				break
			}
			run = run[:0]
		}
		run = append(run, sig)
	}

	if len(run) < MinStreakLength {
		return nil
	}
	return &Streak{Outcome: run[0].Outcome, Signals: run}
}

// aligned reports whether an indicator reading pointed in the trade's
// direction.
func aligned(direction models.Direction, signal models.Signal) bool {
	return (direction == models.DirectionLong && signal == models.SignalBullish) ||
		(direction == models.DirectionShort && signal == models.SignalBearish)
}
