package learning

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// Adjustment parameters. A single cycle can move a weight by at most 15%
// before clamping, and every mutation renormalizes back to sum 100.
const (
	lossReductionFactor = 0.85
	winIncreaseFactor   = 1.10
	highStrengthMin     = 0.7
	winAlignedRatio     = 0.60
	recoveryDriftFactor = 0.05

	// RecoveryWindow is the number of most recent resolved trades a recovery
	// pass inspects.
	RecoveryWindow = 20
)

// Loop detects win/loss streaks in resolved-signal history and emits bounded
// weight mutations through the store.
type Loop struct {
	store *Store
}

// NewLoop creates new learning loop over the given store
func NewLoop(store *Store) *Loop {
	return &Loop{store: store}
}

// ProcessHistory scans resolved signals after lastProcessed for a streak and,
// when one is found, applies the corresponding weight cycle. Returns the
// recorded cycle together with the timestamp processing advanced to, or a nil
// cycle when nothing triggered.
func (l *Loop) ProcessHistory(ctx context.Context, history []models.ResolvedSignal, lastProcessed time.Time) (*models.LearningCycle, time.Time, error) {
	streak := DetectUnprocessedStreak(history, lastProcessed)
	if streak == nil {
		return nil, lastProcessed, nil
	}

	processedThrough := streak.Signals[streak.Length()-1].ResolvedAt

	var (
		cycle *models.LearningCycle
		err   error
	)
	if streak.Outcome == models.OutcomeLost {
		cycle, err = l.applyLossCycle(ctx, streak)
	} else {
		cycle, err = l.applyWinCycle(ctx, streak)
	}
	if err != nil {
		return nil, lastProcessed, err
	}
	return cycle, processedThrough, nil
}

// applyLossCycle reduces the weight of indicators that were strongly and
// consistently aligned with the direction of every losing trade in the
// streak.
func (l *Loop) applyLossCycle(ctx context.Context, streak *Streak) (*models.LearningCycle, error) {
	weights := l.store.Snapshot()

	var adjustments []models.LearningAdjustment
	pinned := make(map[string]bool)

	for name, old := range weights {
		alignedCount := 0
		for _, sig := range streak.Signals {
			res, ok := sig.IndicatorValues[name]
			if ok && aligned(sig.Direction, res.Signal) && res.Strength > highStrengthMin {
				alignedCount++
			}
		}
		if alignedCount < streak.Length() {
			continue
		}

		updated := math.Max(old*lossReductionFactor, models.WeightMin)
		if updated == old {
			continue
		}
		weights[name] = updated
		pinned[name] = true
		adjustments = append(adjustments, models.LearningAdjustment{
			Indicator:     name,
			OldWeight:     old,
			NewWeight:     updated,
			ChangePercent: (updated - old) / old * 100,
			Reason:        fmt.Sprintf("strongly aligned in %d consecutive losses", streak.Length()),
		})
	}

	return l.commit(ctx, weights, pinned, adjustments, models.TriggerLossStreak, streak.Length())
}

// applyWinCycle increases the weight of indicators that called the direction
// correctly in at least 60% of the winning streak's signals.
func (l *Loop) applyWinCycle(ctx context.Context, streak *Streak) (*models.LearningCycle, error) {
	weights := l.store.Snapshot()

	var adjustments []models.LearningAdjustment
	pinned := make(map[string]bool)

	for name, old := range weights {
		alignedCount := 0
		for _, sig := range streak.Signals {
			if res, ok := sig.IndicatorValues[name]; ok && aligned(sig.Direction, res.Signal) {
				alignedCount++
			}
		}
		if float64(alignedCount)/float64(streak.Length()) < winAlignedRatio {
			continue
		}

		updated := math.Min(old*winIncreaseFactor, models.WeightMax)
		if updated == old {
			continue
		}
		weights[name] = updated
		pinned[name] = true
		adjustments = append(adjustments, models.LearningAdjustment{
			Indicator:     name,
			OldWeight:     old,
			NewWeight:     updated,
			ChangePercent: (updated - old) / old * 100,
			Reason:        fmt.Sprintf("aligned in %d of %d consecutive wins", alignedCount, streak.Length()),
		})
	}

	return l.commit(ctx, weights, pinned, adjustments, models.TriggerWinStreak, streak.Length())
}

// ProcessRecovery drifts indicators that stayed out of every loss across the
// last 20 resolved trades back toward their defaults. Independent of streak
// detection.
func (l *Loop) ProcessRecovery(ctx context.Context, recent []models.ResolvedSignal) (*models.LearningCycle, error) {
	if len(recent) < RecoveryWindow {
		return nil, nil
	}
	window := recent[len(recent)-RecoveryWindow:]

	weights := l.store.Snapshot()
	defaults := l.store.Defaults()

	var adjustments []models.LearningAdjustment
	pinned := make(map[string]bool)

	for name, old := range weights {
		def, ok := defaults[name]
		if !ok || math.Abs(old-def) < models.WeightSumEps {
			continue
		}

		clean := true
		for _, sig := range window {
			if sig.Outcome != models.OutcomeLost {
				continue
			}
			if res, ok := sig.IndicatorValues[name]; ok && aligned(sig.Direction, res.Signal) {
				clean = false
				break
			}
		}
		if !clean {
			continue
		}

		updated := old + recoveryDriftFactor*(def-old)
		weights[name] = updated
		pinned[name] = true
		adjustments = append(adjustments, models.LearningAdjustment{
			Indicator:     name,
			OldWeight:     old,
			NewWeight:     updated,
			ChangePercent: (updated - old) / old * 100,
			Reason:        fmt.Sprintf("no losing appearance in last %d trades, drifting toward default", RecoveryWindow),
		})
	}

	return l.commit(ctx, weights, pinned, adjustments, models.TriggerRecovery, RecoveryWindow)
}

// commit rebalances, persists and records one mutation as a learning cycle
func (l *Loop) commit(ctx context.Context, weights models.WeightVector, pinned map[string]bool, adjustments []models.LearningAdjustment, trigger models.LearningTrigger, streakLength int) (*models.LearningCycle, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	rebalance(weights, pinned)

	if err := l.store.Replace(ctx, weights); err != nil {
		return nil, err
	}

	cycle := &models.LearningCycle{
		TriggeredBy:  trigger,
		StreakLength: streakLength,
		Adjustments:  adjustments,
		WeightsAfter: l.store.Snapshot(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.store.appendCycle(ctx, cycle); err != nil {
		return nil, err
	}

	logger.Info("learning cycle applied",
		zap.String("trigger", string(trigger)),
		zap.Int("streak_length", streakLength),
		zap.Int("adjustments", len(adjustments)),
	)
	return cycle, nil
}

// rebalance restores the sum-100 invariant by spreading the deficit across
// the unpinned weights, keeping the explicitly adjusted weights exactly where
// the cycle put them. Falls back to a full renormalization when every weight
// is pinned or bounds clamping leaves no room.
func rebalance(weights models.WeightVector, pinned map[string]bool) {
	for pass := 0; pass < 2; pass++ {
		deficit := models.WeightVectorSum - weights.Sum()
		if math.Abs(deficit) <= models.WeightSumEps {
			return
		}

		adjustableTotal := 0.0
		for name, v := range weights {
			if !pinned[name] {
				adjustableTotal += v
			}
		}
		if adjustableTotal == 0 {
			weights.Normalize()
			return
		}

		for name, v := range weights {
			if pinned[name] {
				continue
			}
			updated := v + deficit*(v/adjustableTotal)
			if updated < models.WeightMin {
				updated = models.WeightMin
			} else if updated > models.WeightMax {
				updated = models.WeightMax
			}
			weights[name] = updated
		}
	}

	if math.Abs(models.WeightVectorSum-weights.Sum()) > models.WeightSumEps {
		weights.Normalize()
	}
}
