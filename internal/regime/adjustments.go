package regime

import (
	"github.com/altradar/signals/pkg/models"
)

// adjustmentTable is the fixed per-regime multiplier set. Pure data consumed
// by the scorer; nothing here is inferred at runtime.
var adjustmentTable = map[models.Regime]models.RegimeAdjustments{
	models.RegimeBullTrend: {
		ScoreThresholdMultiplier:    0.9,
		TrendWeightMultiplier:       1.3,
		MomentumWeightMultiplier:    1.1,
		PositioningWeightMultiplier: 0.9,
		DirectionBias:               models.DirectionLong,
	},
	models.RegimeBearTrend: {
		ScoreThresholdMultiplier:    0.9,
		TrendWeightMultiplier:       1.3,
		MomentumWeightMultiplier:    1.1,
		PositioningWeightMultiplier: 1.1,
		DirectionBias:               models.DirectionShort,
	},
	models.RegimeHighVolChop: {
		ScoreThresholdMultiplier:    1.2,
		TrendWeightMultiplier:       0.7,
		MomentumWeightMultiplier:    1.2,
		PositioningWeightMultiplier: 1.2,
		DirectionBias:               models.DirectionHold,
	},
	models.RegimeAccumulation: {
		ScoreThresholdMultiplier:    1.1,
		TrendWeightMultiplier:       0.9,
		MomentumWeightMultiplier:    1.0,
		PositioningWeightMultiplier: 1.3,
		DirectionBias:               models.DirectionHold,
	},
	models.RegimeUnknown: {
		ScoreThresholdMultiplier:    1.0,
		TrendWeightMultiplier:       1.0,
		MomentumWeightMultiplier:    1.0,
		PositioningWeightMultiplier: 1.0,
		DirectionBias:               models.DirectionHold,
	},
}

// Adjustments returns the scorer multipliers for a regime. Unlisted regimes
// get the UNKNOWN row.
func Adjustments(regime models.Regime) models.RegimeAdjustments {
	if adj, ok := adjustmentTable[regime]; ok {
		return adj
	}
	return adjustmentTable[models.RegimeUnknown]
}
