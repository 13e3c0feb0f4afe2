package indicators

import (
	"github.com/altradar/signals/pkg/models"
)

// extractSeries converts decimal candles into the float64 slices the
// indicator libraries expect. Candles are assumed chronological, oldest first.
func extractSeries(candles []models.Candle) (closes, highs, lows, volumes []float64) {
	closes = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	volumes = make([]float64, len(candles))

	for i, candle := range candles {
		closes[i] = candle.Close.InexactFloat64()
		highs[i] = candle.High.InexactFloat64()
		lows[i] = candle.Low.InexactFloat64()
		volumes[i] = candle.Volume.InexactFloat64()
	}
	return closes, highs, lows, volumes
}

// lastClose returns the most recent close price
func lastClose(candles []models.Candle) float64 {
	return candles[len(candles)-1].Close.InexactFloat64()
}

// last returns the most recent value of an indicator series, or 0 when empty
func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// clamp01 bounds a strength value into [0,1]
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// slope returns the normalized per-step slope of the last n values,
// expressed relative to the series' mean magnitude. Returns 0 when the
// series is too short or degenerate.
func slope(values []float64, n int) float64 {
	if len(values) < n || n < 2 {
		return 0
	}
	window := values[len(values)-n:]

	// Least squares over the window
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range window {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	raw := (fn*sumXY - sumX*sumY) / denom

	mean := sumY / fn
	if mean == 0 {
		return 0
	}
	if mean < 0 {
		mean = -mean
	}
	return raw / mean
}
