// Package scorer combines indicator and positioning readings with a weight
// vector and regime adjustments into a final score and direction. Every call
// is a pure function of its arguments; the scorer owns no state and never
// mutates the regime or weight data it receives.
package scorer

import (
	"math"

	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

// Classification constants
const (
	// baseScoreThreshold is scaled by the regime's threshold multiplier
	baseScoreThreshold = 50.0
	// dominanceRatio is the fraction of total points one side must lead by
	dominanceRatio = 0.15
	// Funding confirmation is asymmetric on purpose: confirmation is trusted
	// more than contradiction.
	fundingConfirmBonus   = 5
	fundingContradictPull = 3
	// Sentiment nudges the final score the same post-hoc way funding does
	sentimentBullishAbove = 60.0
	sentimentBearishBelow = 40.0
	sentimentAdjust       = 2
)

// Input carries everything one scoring pass needs. Weights is a read-only
// snapshot; the scorer never writes to it.
type Input struct {
	Indicators  map[string]models.IndicatorResult
	Funding     models.IndicatorResult
	OIChange    models.IndicatorResult
	Weights     models.WeightVector
	Adjustments models.RegimeAdjustments
	Sentiment   *float64 // optional, [0,100]
}

// Result is the scorer's full output
type Result struct {
	Score             int
	Direction         models.Direction
	Agreement         float64
	CategoryBreakdown map[models.Category]models.CategoryScore
	IndicatorValues   map[string]models.IndicatorResult
}

// Score runs one weighted multi-indicator scoring pass.
func Score(in Input) Result {
	var (
		totalBullish, totalBearish float64
		maxPossible                float64
	)

	breakdown := make(map[models.Category]models.CategoryScore)
	values := make(map[string]models.IndicatorResult, len(in.Indicators)+2)

	score := func(name string, res models.IndicatorResult) {
		values[name] = res

		category := indicators.CategoryOf(name)
		weight := in.weightFor(name) * categoryMultiplier(category, in.Adjustments)

		entry := breakdown[category]
		if res.Signal != models.SignalNeutral {
			points := weight * res.Strength
			maxPossible += weight
			entry.Max += weight
			entry.Score += points

			switch res.Signal {
			case models.SignalBullish:
				totalBullish += points
			case models.SignalBearish:
				totalBearish += points
			}
		}
		breakdown[category] = entry
	}

	// Fixed registry order, then the two positioning signals
	for _, d := range indicators.Registry {
		if res, ok := in.Indicators[d.Name]; ok {
			score(d.Name, res)
		}
	}
	score(indicators.NameFunding, in.Funding)
	score(indicators.NameOIChange, in.OIChange)

	totalScore := totalBullish + totalBearish
	agreement := agreementRatio(totalBullish, totalBearish)

	normalizedScore := 0.0
	if maxPossible > 0 {
		normalizedScore = totalScore / maxPossible * 100 * agreement
	}

	scoreThreshold := baseScoreThreshold * in.Adjustments.ScoreThresholdMultiplier
	directionalBias := totalBullish - totalBearish

	direction := models.DirectionHold
	switch {
	case directionalBias > totalScore*dominanceRatio && normalizedScore >= scoreThreshold:
		direction = models.DirectionLong
	case directionalBias < -totalScore*dominanceRatio && normalizedScore >= scoreThreshold:
		direction = models.DirectionShort
	}

	final := int(math.Round(normalizedScore))
	final = applyFundingConfirmation(final, direction, in.Funding.Signal)
	final = applySentiment(final, direction, in.Sentiment)

	return Result{
		Score:             final,
		Direction:         direction,
		Agreement:         agreement,
		CategoryBreakdown: breakdown,
		IndicatorValues:   values,
	}
}

// weightFor reads the snapshot, falling back to the registry default so a
// vector missing a newly added indicator still scores it.
func (in Input) weightFor(name string) float64 {
	if w, ok := in.Weights[name]; ok {
		return w
	}
	switch name {
	case indicators.NameFunding:
		return indicators.DefaultFundingWeight
	case indicators.NameOIChange:
		return indicators.DefaultOIChangeWeight
	}
	for _, d := range indicators.Registry {
		if d.Name == name {
			return d.DefaultWeight
		}
	}
	return 0
}

func categoryMultiplier(category models.Category, adj models.RegimeAdjustments) float64 {
	switch category {
	case models.CategoryTrend:
		return nonZero(adj.TrendWeightMultiplier)
	case models.CategoryMomentum:
		return nonZero(adj.MomentumWeightMultiplier)
	case models.CategoryPositioning:
		return nonZero(adj.PositioningWeightMultiplier)
	default:
		return 1
	}
}

func nonZero(mult float64) float64 {
	if mult == 0 {
		return 1
	}
	return mult
}

// agreementRatio penalizes contradictory signal sets, weighing each side by
// its scored points so a heavily weighted consensus is not drowned out by a
// handful of weak dissenters. A unanimous set scores 1.0, an even points
// split 0.5, no directional reading at all 0.
func agreementRatio(bullishPoints, bearishPoints float64) float64 {
	total := bullishPoints + bearishPoints
	if total == 0 {
		return 0
	}
	spread := math.Abs(bullishPoints - bearishPoints)
	return 0.5 + 0.5*spread/total
}

// applyFundingConfirmation adjusts the score after classification. Strictly
// post-hoc: it never feeds back into agreement or direction.
func applyFundingConfirmation(score int, direction models.Direction, funding models.Signal) int {
	if direction == models.DirectionHold || funding == models.SignalNeutral {
		return score
	}

	confirms := (direction == models.DirectionLong && funding == models.SignalBullish) ||
		(direction == models.DirectionShort && funding == models.SignalBearish)

	if confirms {
		score += fundingConfirmBonus
		if score > 100 {
			score = 100
		}
	} else {
		score -= fundingContradictPull
		if score < 0 {
			score = 0
		}
	}
	return score
}

// applySentiment nudges the final score when an extreme sentiment reading
// confirms or contradicts the chosen direction. Same post-hoc contract as
// the funding confirmation.
func applySentiment(score int, direction models.Direction, sentiment *float64) int {
	if sentiment == nil || direction == models.DirectionHold {
		return score
	}

	var confirms, contradicts bool
	switch direction {
	case models.DirectionLong:
		confirms = *sentiment >= sentimentBullishAbove
		contradicts = *sentiment <= sentimentBearishBelow
	case models.DirectionShort:
		confirms = *sentiment <= sentimentBearishBelow
		contradicts = *sentiment >= sentimentBullishAbove
	}

	switch {
	case confirms:
		score += sentimentAdjust
		if score > 100 {
			score = 100
		}
	case contradicts:
		score -= sentimentAdjust
		if score < 0 {
			score = 0
		}
	}
	return score
}
