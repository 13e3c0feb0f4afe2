package indicators

import (
	"github.com/altradar/signals/pkg/models"
)

// Indicator names used as weight-vector keys and audit-trail identifiers
const (
	NameRSI         = "rsi"
	NameStochRSI    = "stoch_rsi"
	NameMACD        = "macd"
	NameWilliamsR   = "williams_r"
	NameCCI         = "cci"
	NameEMAStack    = "ema_stack"
	NameIchimoku    = "ichimoku"
	NameADX         = "adx"
	NameBollinger   = "bollinger_pctb"
	NameOBV         = "obv_trend"
	NameVolumeRatio = "volume_ratio"
	NameZScore      = "zscore"
	NameFunding     = "funding_rate"
	NameOIChange    = "oi_change"
)

// Descriptor describes one scored indicator: its identity, scoring category,
// default weight and candle-based compute function. The set is a fixed table
// iterated in declared order, never a map keyed by name.
type Descriptor struct {
	Name          string
	Category      models.Category
	DefaultWeight float64
	Compute       func(c *Calculator, candles []models.Candle) models.IndicatorResult
}

// Registry lists every candle-based scored indicator. The two positioning
// entries (funding, OI change) are computed from derivatives context by the
// positioning package and carry the remaining default weight. All default
// weights together sum to 100.
var Registry = []Descriptor{
	{NameRSI, models.CategoryMomentum, 10, (*Calculator).RSI},
	{NameStochRSI, models.CategoryMomentum, 6, (*Calculator).StochRSI},
	{NameMACD, models.CategoryMomentum, 10, (*Calculator).MACD},
	{NameWilliamsR, models.CategoryMomentum, 5, (*Calculator).WilliamsR},
	{NameCCI, models.CategoryMomentum, 5, (*Calculator).CCI},
	{NameEMAStack, models.CategoryTrend, 10, (*Calculator).EMAStack},
	{NameIchimoku, models.CategoryTrend, 8, (*Calculator).Ichimoku},
	{NameADX, models.CategoryTrend, 7, (*Calculator).ADX},
	{NameBollinger, models.CategoryVolatility, 7, (*Calculator).BollingerPctB},
	{NameZScore, models.CategoryVolatility, 5, (*Calculator).ZScore},
	{NameOBV, models.CategoryVolume, 6, (*Calculator).OBVTrend},
	{NameVolumeRatio, models.CategoryVolume, 5, (*Calculator).VolumeRatio},
}

// Default weights of the positioning signals scored alongside the registry
const (
	DefaultFundingWeight  = 9.0
	DefaultOIChangeWeight = 7.0
)

// DefaultWeights returns the engine's default weight vector: every registry
// indicator plus the two positioning signals, summing to 100.
func DefaultWeights() models.WeightVector {
	weights := make(models.WeightVector, len(Registry)+2)
	for _, d := range Registry {
		weights[d.Name] = d.DefaultWeight
	}
	weights[NameFunding] = DefaultFundingWeight
	weights[NameOIChange] = DefaultOIChangeWeight
	return weights
}

// CategoryOf returns the scoring category for an indicator name. Positioning
// names map to the positioning category; unknown names default to momentum.
func CategoryOf(name string) models.Category {
	switch name {
	case NameFunding, NameOIChange:
		return models.CategoryPositioning
	}
	for _, d := range Registry {
		if d.Name == name {
			return d.Category
		}
	}
	return models.CategoryMomentum
}

// ComputeAll evaluates every registry indicator over the candle series,
// in declared order.
func (c *Calculator) ComputeAll(candles []models.Candle) map[string]models.IndicatorResult {
	results := make(map[string]models.IndicatorResult, len(Registry))
	for _, d := range Registry {
		results[d.Name] = d.Compute(c, candles)
	}
	return results
}
