package indicators

import (
	"math"

	"github.com/cinar/indicator"
	talib "github.com/markcheno/go-talib"

	"github.com/altradar/signals/pkg/models"
)

// Lookback periods. Changing these is configuration, not a bug fix.
const (
	RSIPeriod        = 14
	StochRSIPeriod   = 14
	WilliamsRPeriod  = 14
	CCIPeriod        = 20
	ADXPeriod        = 14
	ATRPeriod        = 14
	BollingerPeriod  = 20
	ZScorePeriod     = 20
	VolumeAvgPeriod  = 20
	OBVSlopeWindow   = 10
	EMAFast          = 7
	EMAMid           = 21
	EMASlow          = 50
	IchimokuTenkan   = 9
	IchimokuKijun    = 26
	IchimokuSenkouB  = 52
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
)

// MinCandles is the minimum history the engine requires before scoring an
// asset. Individual indicators degrade to neutral below their own lookback.
const MinCandles = 50

// MinExitCandles is the history one timeframe needs for the dual-timeframe
// momentum check (enough for a full MACD warmup).
const MinExitCandles = MACDSlowPeriod + MACDSignalPeriod + 1

// Calculator computes technical indicators from candle data. All methods are
// pure and never fail: insufficient history or degenerate math yields the
// indicator's documented neutral default.
type Calculator struct{}

// NewCalculator creates new indicator calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// RSI computes the relative strength index. Bullish below 30, bearish above
// 70, strength scaling with distance past the threshold. Neutral value is 50.
func (c *Calculator) RSI(candles []models.Candle) models.IndicatorResult {
	if len(candles) < RSIPeriod+1 {
		return models.Neutral(50)
	}

	closes, _, _, _ := extractSeries(candles)
	_, rsi := indicator.Rsi(closes)
	value := last(rsi)

	switch {
	case value < 30:
		return models.IndicatorResult{Value: value, Signal: models.SignalBullish, Strength: clamp01((30 - value) / 30)}
	case value > 70:
		return models.IndicatorResult{Value: value, Signal: models.SignalBearish, Strength: clamp01((value - 70) / 30)}
	default:
		return models.Neutral(value)
	}
}

// StochRSI computes the stochastic RSI %K: RSI's position within its own
// rolling range. Bullish below 20, bearish above 80.
func (c *Calculator) StochRSI(candles []models.Candle) models.IndicatorResult {
	if len(candles) < StochRSIPeriod*2+1 {
		return models.Neutral(50)
	}

	closes, _, _, _ := extractSeries(candles)
	fastK, _ := talib.StochRsi(closes, StochRSIPeriod, StochRSIPeriod, 3, talib.SMA)
	value := last(fastK)

	switch {
	case value < 20:
		return models.IndicatorResult{Value: value, Signal: models.SignalBullish, Strength: clamp01((20 - value) / 20)}
	case value > 80:
		return models.IndicatorResult{Value: value, Signal: models.SignalBearish, Strength: clamp01((value - 80) / 20)}
	default:
		return models.Neutral(value)
	}
}

// MACD computes MACD(12,26,9) and classifies on the histogram: bullish when
// positive and rising, bearish when negative and falling.
func (c *Calculator) MACD(candles []models.Candle) models.IndicatorResult {
	if len(candles) < MACDSlowPeriod+MACDSignalPeriod+1 {
		return models.Neutral(0)
	}

	closes, _, _, _ := extractSeries(candles)
	macdLine, signalLine := indicator.Macd(closes)

	n := len(macdLine)
	hist := macdLine[n-1] - signalLine[n-1]
	prevHist := macdLine[n-2] - signalLine[n-2]

	price := lastClose(candles)
	if price == 0 {
		return models.Neutral(0)
	}
	// Full strength when the histogram reaches 0.2% of price
	strength := clamp01(math.Abs(hist) / (price * 0.002))

	switch {
	case hist > 0 && hist > prevHist:
		return models.IndicatorResult{Value: hist, Signal: models.SignalBullish, Strength: strength}
	case hist < 0 && hist < prevHist:
		return models.IndicatorResult{Value: hist, Signal: models.SignalBearish, Strength: strength}
	default:
		return models.Neutral(hist)
	}
}

// MACDLine returns the latest raw MACD and signal line values. The scored
// MACD read above classifies on histogram acceleration and can stay bullish
// through a decelerating decline, so callers that need the trend itself
// look at the line's sign instead.
func (c *Calculator) MACDLine(candles []models.Candle) (macd, signal float64) {
	if len(candles) < MACDSlowPeriod+MACDSignalPeriod+1 {
		return 0, 0
	}

	closes, _, _, _ := extractSeries(candles)
	macdLine, signalLine := indicator.Macd(closes)
	return last(macdLine), last(signalLine)
}

// WilliamsR computes Williams %R(14): bullish below -80, bearish above -20.
func (c *Calculator) WilliamsR(candles []models.Candle) models.IndicatorResult {
	if len(candles) < WilliamsRPeriod+1 {
		return models.Neutral(-50)
	}

	closes, highs, lows, _ := extractSeries(candles)
	wr := talib.WillR(highs, lows, closes, WilliamsRPeriod)
	value := last(wr)

	switch {
	case value < -80:
		return models.IndicatorResult{Value: value, Signal: models.SignalBullish, Strength: clamp01((-80 - value) / 20)}
	case value > -20:
		return models.IndicatorResult{Value: value, Signal: models.SignalBearish, Strength: clamp01((value + 20) / 20)}
	default:
		return models.Neutral(value)
	}
}

// CCI computes the commodity channel index(20): bullish below -100, bearish
// above 100.
func (c *Calculator) CCI(candles []models.Candle) models.IndicatorResult {
	if len(candles) < CCIPeriod+1 {
		return models.Neutral(0)
	}

	closes, highs, lows, _ := extractSeries(candles)
	cci := talib.Cci(highs, lows, closes, CCIPeriod)
	value := last(cci)

	switch {
	case value < -100:
		return models.IndicatorResult{Value: value, Signal: models.SignalBullish, Strength: clamp01((-100 - value) / 100)}
	case value > 100:
		return models.IndicatorResult{Value: value, Signal: models.SignalBearish, Strength: clamp01((value - 100) / 100)}
	default:
		return models.Neutral(value)
	}
}

// EMAStack checks the 7/21/50 EMA alignment. Fully ascending order of price
// and EMAs is bullish, fully descending is bearish, a partial stack reads at
// reduced strength.
func (c *Calculator) EMAStack(candles []models.Candle) models.IndicatorResult {
	if len(candles) < EMASlow {
		return models.Neutral(0)
	}

	closes, _, _, _ := extractSeries(candles)
	fast := last(indicator.Ema(EMAFast, closes))
	mid := last(indicator.Ema(EMAMid, closes))
	slow := last(indicator.Ema(EMASlow, closes))
	price := lastClose(candles)

	switch {
	case price > fast && fast > mid && mid > slow:
		return models.IndicatorResult{Value: fast, Signal: models.SignalBullish, Strength: 0.9}
	case price < fast && fast < mid && mid < slow:
		return models.IndicatorResult{Value: fast, Signal: models.SignalBearish, Strength: 0.9}
	case price > fast && fast > mid:
		return models.IndicatorResult{Value: fast, Signal: models.SignalBullish, Strength: 0.5}
	case price < fast && fast < mid:
		return models.IndicatorResult{Value: fast, Signal: models.SignalBearish, Strength: 0.5}
	default:
		return models.Neutral(fast)
	}
}

// Ichimoku classifies price against the cloud with a conversion/base-line
// cross confirmation. Needs a full 52-candle span, otherwise neutral.
func (c *Calculator) Ichimoku(candles []models.Candle) models.IndicatorResult {
	if len(candles) < IchimokuSenkouB {
		return models.Neutral(0)
	}

	_, highs, lows, _ := extractSeries(candles)
	tenkan := midpoint(highs, lows, IchimokuTenkan)
	kijun := midpoint(highs, lows, IchimokuKijun)
	senkouA := (tenkan + kijun) / 2
	senkouB := midpoint(highs, lows, IchimokuSenkouB)
	price := lastClose(candles)

	cloudTop := math.Max(senkouA, senkouB)
	cloudBottom := math.Min(senkouA, senkouB)

	switch {
	case price > cloudTop && tenkan > kijun:
		return models.IndicatorResult{Value: tenkan, Signal: models.SignalBullish, Strength: 0.8}
	case price > cloudTop:
		return models.IndicatorResult{Value: tenkan, Signal: models.SignalBullish, Strength: 0.4}
	case price < cloudBottom && tenkan < kijun:
		return models.IndicatorResult{Value: tenkan, Signal: models.SignalBearish, Strength: 0.8}
	case price < cloudBottom:
		return models.IndicatorResult{Value: tenkan, Signal: models.SignalBearish, Strength: 0.4}
	default:
		return models.Neutral(tenkan)
	}
}

// midpoint returns (highest high + lowest low) / 2 over the trailing period
func midpoint(highs, lows []float64, period int) float64 {
	start := len(highs) - period
	hi := highs[start]
	lo := lows[start]
	for i := start + 1; i < len(highs); i++ {
		hi = math.Max(hi, highs[i])
		lo = math.Min(lo, lows[i])
	}
	return (hi + lo) / 2
}

// ADX measures trend strength; direction comes from whichever DI leads.
// ADX below 20 means no meaningful trend regardless of the DI spread.
func (c *Calculator) ADX(candles []models.Candle) models.IndicatorResult {
	if len(candles) < ADXPeriod*2+1 {
		return models.Neutral(0)
	}

	closes, highs, lows, _ := extractSeries(candles)
	adx := last(talib.Adx(highs, lows, closes, ADXPeriod))
	plusDI := last(talib.PlusDI(highs, lows, closes, ADXPeriod))
	minusDI := last(talib.MinusDI(highs, lows, closes, ADXPeriod))

	if plusDI == minusDI {
		return models.Neutral(adx)
	}

	strength := 0.1
	if adx >= 20 {
		strength = clamp01((adx - 20) / 40)
	}

	signal := models.SignalBullish
	if minusDI > plusDI {
		signal = models.SignalBearish
	}
	return models.IndicatorResult{Value: adx, Signal: signal, Strength: strength}
}

// DirectionalIndex exposes raw ADX/DI values for the regime detector
func (c *Calculator) DirectionalIndex(candles []models.Candle) (adx, plusDI, minusDI float64) {
	if len(candles) < ADXPeriod*2+1 {
		return 0, 0, 0
	}
	closes, highs, lows, _ := extractSeries(candles)
	return last(talib.Adx(highs, lows, closes, ADXPeriod)),
		last(talib.PlusDI(highs, lows, closes, ADXPeriod)),
		last(talib.MinusDI(highs, lows, closes, ADXPeriod))
}

// BollingerPctB computes %B within the 20-period 2σ bands: bullish near the
// lower band (%B toward 0), bearish near the upper band (%B toward 1).
func (c *Calculator) BollingerPctB(candles []models.Candle) models.IndicatorResult {
	if len(candles) < BollingerPeriod+1 {
		return models.Neutral(0.5)
	}

	closes, _, _, _ := extractSeries(candles)
	_, upper, lower := indicator.BollingerBands(closes)

	up := last(upper)
	lo := last(lower)
	if up == lo {
		return models.Neutral(0.5)
	}

	b := (lastClose(candles) - lo) / (up - lo)
	switch {
	case b < 0.2:
		return models.IndicatorResult{Value: b, Signal: models.SignalBullish, Strength: clamp01((0.2 - b) / 0.2)}
	case b > 0.8:
		return models.IndicatorResult{Value: b, Signal: models.SignalBearish, Strength: clamp01((b - 0.8) / 0.2)}
	default:
		return models.Neutral(b)
	}
}

// OBVTrend compares the cumulative volume-flow slope with the price slope.
// Divergence (price up, OBV down) is flagged bearish, and vice versa.
func (c *Calculator) OBVTrend(candles []models.Candle) models.IndicatorResult {
	if len(candles) < VolumeAvgPeriod+1 {
		return models.Neutral(0)
	}

	closes, _, _, volumes := extractSeries(candles)
	obv := talib.Obv(closes, volumes)

	obvSlope := slope(obv, OBVSlopeWindow)
	priceSlope := slope(closes, OBVSlopeWindow)

	switch {
	case priceSlope > 0 && obvSlope > 0:
		return models.IndicatorResult{Value: obvSlope, Signal: models.SignalBullish, Strength: 0.6}
	case priceSlope < 0 && obvSlope < 0:
		return models.IndicatorResult{Value: obvSlope, Signal: models.SignalBearish, Strength: 0.6}
	case priceSlope > 0 && obvSlope < 0:
		// Rising price without volume support
		return models.IndicatorResult{Value: obvSlope, Signal: models.SignalBearish, Strength: 0.7}
	case priceSlope < 0 && obvSlope > 0:
		// Falling price while volume accumulates
		return models.IndicatorResult{Value: obvSlope, Signal: models.SignalBullish, Strength: 0.7}
	default:
		return models.Neutral(obvSlope)
	}
}

// VolumeRatio compares current volume to its 20-period average. A spike above
// 1.5 reinforces the bar's own direction; a dry-up below 0.8 leans against it
// at reduced strength, since a move nobody participates in is suspect.
func (c *Calculator) VolumeRatio(candles []models.Candle) models.IndicatorResult {
	if len(candles) < VolumeAvgPeriod+1 {
		return models.Neutral(1)
	}

	_, _, _, volumes := extractSeries(candles)
	avg := last(indicator.Sma(VolumeAvgPeriod, volumes))
	if avg == 0 {
		return models.Neutral(1)
	}
	ratio := volumes[len(volumes)-1] / avg

	bar := candles[len(candles)-1]
	barUp := bar.Close.GreaterThan(bar.Open)
	barDown := bar.Close.LessThan(bar.Open)

	switch {
	case ratio > 1.5:
		// Spike: take the direction of the most recent bar
		strength := clamp01((ratio - 1.5) / 1.5)
		switch {
		case barUp:
			return models.IndicatorResult{Value: ratio, Signal: models.SignalBullish, Strength: strength}
		case barDown:
			return models.IndicatorResult{Value: ratio, Signal: models.SignalBearish, Strength: strength}
		}
	case ratio < 0.8:
		// Dry-up: fade the bar at half weight
		strength := clamp01((0.8-ratio)/0.8) * 0.5
		switch {
		case barUp:
			return models.IndicatorResult{Value: ratio, Signal: models.SignalBearish, Strength: strength}
		case barDown:
			return models.IndicatorResult{Value: ratio, Signal: models.SignalBullish, Strength: strength}
		}
	}
	return models.Neutral(ratio)
}

// ATR returns average true range as a pure volatility magnitude. It carries
// no direction and is excluded from scoring; the risk engine consumes it.
func (c *Calculator) ATR(candles []models.Candle) models.IndicatorResult {
	if len(candles) < ATRPeriod+1 {
		return models.Neutral(0)
	}

	closes, highs, lows, _ := extractSeries(candles)
	_, atr := indicator.Atr(ATRPeriod, highs, lows, closes)
	return models.Neutral(last(atr))
}

// ZScore measures price displacement from its 20-period rolling mean in
// standard deviations: a mean-reversion read, bullish below -2, bearish
// above +2.
func (c *Calculator) ZScore(candles []models.Candle) models.IndicatorResult {
	if len(candles) < ZScorePeriod+1 {
		return models.Neutral(0)
	}

	closes, _, _, _ := extractSeries(candles)
	mean := last(indicator.Sma(ZScorePeriod, closes))
	std := last(talib.StdDev(closes, ZScorePeriod, 1.0))
	if std == 0 {
		return models.Neutral(0)
	}

	z := (lastClose(candles) - mean) / std
	switch {
	case z < -2:
		return models.IndicatorResult{Value: z, Signal: models.SignalBullish, Strength: clamp01((-z - 2) / 2)}
	case z > 2:
		return models.IndicatorResult{Value: z, Signal: models.SignalBearish, Strength: clamp01((z - 2) / 2)}
	default:
		return models.Neutral(z)
	}
}

// EMA returns the exponential moving average of closes for the given period,
// or 0 when history is insufficient.
func (c *Calculator) EMA(candles []models.Candle, period int) float64 {
	if len(candles) < period {
		return 0
	}
	closes, _, _, _ := extractSeries(candles)
	return last(indicator.Ema(period, closes))
}
