// Package positioning turns derivatives context (funding, open interest,
// basis, venue volume) into the same IndicatorResult triples the technical
// indicators produce. Missing optional context degrades to neutral, never to
// an error.
package positioning

import (
	"math"

	"github.com/altradar/signals/pkg/models"
)

// Funding classification bands, annualized
const (
	fundingBearishAbove = 0.30  // crowded longs
	fundingBullishBelow = -0.10 // crowded shorts
)

// OI change significance thresholds
const (
	oiChangeMinPct    = 5.0
	priceChangeMinPct = 1.0
)

// Basis premium bands, mark vs index spread in percent
const (
	premiumBearishAbove = 0.5
	premiumBullishBelow = -0.3
)

// Volume momentum band: 24h volume vs trailing average
const volumeSurgeRatio = 1.5

// Audit-trail keys for the context reads that stay outside the weighted score
const (
	NameBasisPremium   = "basis_premium"
	NameVolumeMomentum = "volume_momentum"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FundingRateSignal classifies annualized funding: heavily positive funding
// means crowded longs (bearish), heavily negative means crowded shorts
// (bullish). A velocity term amplifies strength when the rate is moving fast
// and dampens it near zero.
func FundingRateSignal(ctx *models.PositioningContext) models.IndicatorResult {
	if ctx == nil {
		return models.Neutral(0)
	}

	annualized := ctx.AnnualizedFunding

	// Velocity relative to the previous funding print, in [0.5, 1.5]
	velocity := 1.0
	if ctx.PrevFunding != nil && *ctx.PrevFunding != 0 {
		change := math.Abs(ctx.FundingRate-*ctx.PrevFunding) / math.Abs(*ctx.PrevFunding)
		velocity = 0.5 + clamp01(change)
	}

	switch {
	case annualized > fundingBearishAbove:
		base := clamp01((annualized - fundingBearishAbove) / fundingBearishAbove)
		return models.IndicatorResult{Value: annualized, Signal: models.SignalBearish, Strength: clamp01(base * velocity)}
	case annualized < fundingBullishBelow:
		base := clamp01((fundingBullishBelow - annualized) / math.Abs(fundingBullishBelow))
		return models.IndicatorResult{Value: annualized, Signal: models.SignalBullish, Strength: clamp01(base * velocity)}
	default:
		return models.Neutral(annualized)
	}
}

// OIChangeSignal reads open-interest change against price change. Both moves
// must be significant (|OI| >= 5%, |price| >= 1%) to be non-neutral, and a
// zero previous OI forces neutral.
//
// Direction table:
//
//	OI up,   price up   -> bullish (longs building, continuation)
//	OI up,   price down -> bearish (shorts building, continuation)
//	OI down, price up   -> bullish, capped (short squeeze, less reliable)
//	OI down, price down -> bearish (long liquidation cascade)
func OIChangeSignal(ctx *models.PositioningContext) models.IndicatorResult {
	if ctx == nil || ctx.PrevOpenInterest == nil || *ctx.PrevOpenInterest == 0 {
		return models.Neutral(0)
	}

	oiChangePct := (ctx.OpenInterest - *ctx.PrevOpenInterest) / *ctx.PrevOpenInterest * 100
	priceChangePct := ctx.PriceChange

	if math.Abs(oiChangePct) < oiChangeMinPct || math.Abs(priceChangePct) < priceChangeMinPct {
		return models.Neutral(oiChangePct)
	}

	strength := clamp01(math.Abs(oiChangePct) / 20)

	oiUp := oiChangePct > 0
	priceUp := priceChangePct > 0
	switch {
	case oiUp && priceUp:
		return models.IndicatorResult{Value: oiChangePct, Signal: models.SignalBullish, Strength: strength}
	case oiUp && !priceUp:
		return models.IndicatorResult{Value: oiChangePct, Signal: models.SignalBearish, Strength: strength}
	case !oiUp && priceUp:
		return models.IndicatorResult{Value: oiChangePct, Signal: models.SignalBullish, Strength: math.Min(strength, 0.5)}
	default:
		return models.IndicatorResult{Value: oiChangePct, Signal: models.SignalBearish, Strength: strength}
	}
}

// BasisPremiumSignal classifies the mark-vs-index spread: a rich premium
// signals overheated longs, a discount signals capitulation.
func BasisPremiumSignal(ctx *models.PositioningContext) models.IndicatorResult {
	if ctx == nil {
		return models.Neutral(0)
	}

	premium := ctx.Premium
	switch {
	case premium > premiumBearishAbove:
		return models.IndicatorResult{Value: premium, Signal: models.SignalBearish, Strength: clamp01((premium - premiumBearishAbove) / premiumBearishAbove)}
	case premium < premiumBullishBelow:
		return models.IndicatorResult{Value: premium, Signal: models.SignalBullish, Strength: clamp01((premiumBullishBelow - premium) / math.Abs(premiumBullishBelow))}
	default:
		return models.Neutral(premium)
	}
}

// VolumeMomentumSignal compares 24h volume with the trailing weekly average
// and reinforces the direction of the 24h price change on a surge.
func VolumeMomentumSignal(ctx *models.PositioningContext) models.IndicatorResult {
	if ctx == nil || ctx.AvgVolume == nil || *ctx.AvgVolume == 0 {
		return models.Neutral(1)
	}

	ratio := ctx.Volume24h / *ctx.AvgVolume
	if ratio < volumeSurgeRatio || ctx.PriceChange == 0 {
		return models.Neutral(ratio)
	}

	strength := clamp01((ratio - volumeSurgeRatio) / volumeSurgeRatio)
	if ctx.PriceChange > 0 {
		return models.IndicatorResult{Value: ratio, Signal: models.SignalBullish, Strength: strength}
	}
	return models.IndicatorResult{Value: ratio, Signal: models.SignalBearish, Strength: strength}
}

// Score aggregates the weighted funding and OI signals. Score accumulates
// strength*weight over non-neutral signals, direction is the sign of the
// weighted sum, and max is the total weight in play.
func Score(funding, oi models.IndicatorResult, fundingWeight, oiWeight float64) (score, max float64, direction models.Signal) {
	weighted := 0.0
	for _, entry := range []struct {
		res    models.IndicatorResult
		weight float64
	}{
		{funding, fundingWeight},
		{oi, oiWeight},
	} {
		switch entry.res.Signal {
		case models.SignalBullish:
			score += entry.res.Strength * entry.weight
			weighted += entry.res.Strength * entry.weight
		case models.SignalBearish:
			score += entry.res.Strength * entry.weight
			weighted -= entry.res.Strength * entry.weight
		}
	}

	max = fundingWeight + oiWeight
	switch {
	case weighted > 0:
		direction = models.SignalBullish
	case weighted < 0:
		direction = models.SignalBearish
	default:
		direction = models.SignalNeutral
	}
	return score, max, direction
}
