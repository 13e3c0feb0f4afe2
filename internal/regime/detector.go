// Package regime classifies the prevailing market environment from the
// reference asset's series plus market-wide breadth aggregates.
package regime

import (
	"go.uber.org/zap"

	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// Classification breakpoints. Carried over as heuristic constants; tuning
// them is a product decision, not a bug fix.
const (
	adxTrending     = 25.0
	emaBiasMargin   = 1.02
	biasMeanPct     = 2.0
	biasBreadthHigh = 0.60
	biasBreadthLow  = 0.40
	oiDivergencePct = 5.0

	trendConfidenceBase = 0.7
	divergenceConf      = 0.6
	churnChopConf       = 0.5
	fallbackBiasConf    = 0.35
	fallbackUnknownConf = 0.3
)

// Volatility bands: ATR as percent of price
const (
	volLowBelow    = 2.0
	volNormalBelow = 4.0
	volHighBelow   = 7.0
)

// Detector classifies market regime from reference-asset candles and
// market-wide aggregates. Stateless; safe for concurrent use.
type Detector struct {
	calc *indicators.Calculator
}

// NewDetector creates new regime detector
func NewDetector() *Detector {
	return &Detector{calc: indicators.NewCalculator()}
}

// Detect classifies the current regime. refCandles is the reference asset
// (BTC) series, altChanges the per-altcoin % changes, avgFunding the
// market-wide annualized funding mean and avgOIChange the market-wide open
// interest change in percent.
func (d *Detector) Detect(refCandles []models.Candle, altChanges []float64, avgFunding, avgOIChange float64) models.RegimeAnalysis {
	if len(refCandles) < indicators.MinCandles {
		return models.RegimeAnalysis{
			Regime:          models.RegimeUnknown,
			Confidence:      0,
			TrendDirection:  models.TrendSideways,
			VolatilityLevel: models.VolatilityNormal,
			MarketBias:      models.BiasNeutral,
		}
	}

	adx, plusDI, minusDI := d.calc.DirectionalIndex(refCandles)
	price := refCandles[len(refCandles)-1].Close.InexactFloat64()
	ema20 := d.calc.EMA(refCandles, 20)

	trendDir := trendDirection(price, ema20, plusDI, minusDI)
	trendStrength := clamp01(adx / 50)
	volatility := volatilityLevel(d.calc.ATR(refCandles).Value, price)
	bias := marketBias(altChanges)

	analysis := models.RegimeAnalysis{
		TrendDirection:  trendDir,
		TrendStrength:   trendStrength,
		VolatilityLevel: volatility,
		MarketBias:      bias,
	}

	analysis.Regime, analysis.Confidence = classify(adx, trendDir, trendStrength, bias, avgOIChange)

	logger.Debug("regime detected",
		zap.String("regime", string(analysis.Regime)),
		zap.Float64("confidence", analysis.Confidence),
		zap.Float64("adx", adx),
		zap.String("trend", string(trendDir)),
		zap.String("bias", string(bias)),
		zap.Float64("avg_funding", avgFunding),
	)

	return analysis
}

// classify applies the regime decision table
func classify(adx float64, trendDir models.TrendDirection, trendStrength float64, bias models.MarketBias, avgOIChange float64) (models.Regime, float64) {
	if adx > adxTrending {
		confidence := trendConfidenceBase + clamp01((adx-adxTrending)/50)*0.3

		switch trendDir {
		case models.TrendUp:
			if avgOIChange < -oiDivergencePct {
				// Price trending up while open interest drains: distribution
				// risk, keep the trend read but cut confidence.
				return models.RegimeBullTrend, divergenceConf
			}
			return models.RegimeBullTrend, confidence
		case models.TrendDown:
			if avgOIChange > oiDivergencePct {
				// Price falling while open interest builds: positions are
				// being absorbed rather than unwound.
				return models.RegimeAccumulation, divergenceConf
			}
			return models.RegimeBearTrend, confidence
		}
		// Strong ADX without DI/EMA agreement: directional churn, not trend.
		// Violent two-sided bars push ADX well past the trending cutoff
		// while price goes nowhere, which is chop unless breadth picks a side.
		if bias == models.BiasNeutral {
			return models.RegimeHighVolChop, churnChopConf
		}
		return fallbackOnBias(bias)
	}

	if trendStrength > 0.1 || bias == models.BiasNeutral {
		// Weak or conflicted trend: choppy. Confidence drops as residual
		// trend strength rises.
		return models.RegimeHighVolChop, clamp(0.7-trendStrength*0.6, 0.4, 0.7)
	}

	return fallbackOnBias(bias)
}

// fallbackOnBias is the market-bias-only classification at low confidence
func fallbackOnBias(bias models.MarketBias) (models.Regime, float64) {
	switch bias {
	case models.BiasBullish:
		return models.RegimeBullTrend, fallbackBiasConf
	case models.BiasBearish:
		return models.RegimeBearTrend, fallbackBiasConf
	default:
		return models.RegimeUnknown, fallbackUnknownConf
	}
}

// trendDirection derives direction from EMA bias confirmed by the leading DI
func trendDirection(price, ema20, plusDI, minusDI float64) models.TrendDirection {
	if ema20 == 0 {
		return models.TrendSideways
	}
	switch {
	case price > ema20*emaBiasMargin && plusDI > minusDI:
		return models.TrendUp
	case price < ema20/emaBiasMargin && minusDI > plusDI:
		return models.TrendDown
	default:
		return models.TrendSideways
	}
}

// volatilityLevel bands ATR as a percentage of price
func volatilityLevel(atr, price float64) models.VolatilityLevel {
	if price == 0 {
		return models.VolatilityNormal
	}
	pct := atr / price * 100
	switch {
	case pct < volLowBelow:
		return models.VolatilityLow
	case pct < volNormalBelow:
		return models.VolatilityNormal
	case pct < volHighBelow:
		return models.VolatilityHigh
	default:
		return models.VolatilityExtreme
	}
}

// marketBias reads breadth: the mean altcoin change and the fraction positive
func marketBias(altChanges []float64) models.MarketBias {
	if len(altChanges) == 0 {
		return models.BiasNeutral
	}

	sum := 0.0
	positive := 0
	for _, change := range altChanges {
		sum += change
		if change > 0 {
			positive++
		}
	}
	mean := sum / float64(len(altChanges))
	breadth := float64(positive) / float64(len(altChanges))

	switch {
	case mean > biasMeanPct && breadth > biasBreadthHigh:
		return models.BiasBullish
	case mean < -biasMeanPct && breadth < biasBreadthLow:
		return models.BiasBearish
	default:
		return models.BiasNeutral
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
