package learning

import (
	"time"

	"github.com/altradar/signals/pkg/models"
)

// Replay reconstructs the weight vector that was active at the given moment
// by folding recorded cycles over the defaults. Cycles must be ordered by
// CreatedAt ascending, which is how the repository returns them. A cycle
// created exactly at the requested time is considered applied.
func Replay(defaults models.WeightVector, cycles []models.LearningCycle, at time.Time) models.WeightVector {
	weights := defaults.Clone()
	for _, cycle := range cycles {
		if cycle.CreatedAt.After(at) {
			break
		}
		if len(cycle.WeightsAfter) > 0 {
			weights = cycle.WeightsAfter.Clone()
		}
	}
	return weights
}
