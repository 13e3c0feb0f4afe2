package risk

import (
	"github.com/altradar/signals/pkg/models"
)

// nearestPivots finds the closest pivot-low below entry (support) and the
// closest pivot-high above entry (resistance), both within the configured
// proximity band. Returns 0 for a side with no qualifying pivot.
func (e *Engine) nearestPivots(candles []models.Candle, entry float64) (support, resistance float64) {
	w := e.pivotWindow

	for i := w; i < len(candles)-w; i++ {
		high := candles[i].High.InexactFloat64()
		low := candles[i].Low.InexactFloat64()

		if isPivotHigh(candles, i, w) && high > entry && withinProximity(high, entry) {
			if resistance == 0 || high < resistance {
				resistance = high
			}
		}
		if isPivotLow(candles, i, w) && low < entry && withinProximity(low, entry) {
			if support == 0 || low > support {
				support = low
			}
		}
	}
	return support, resistance
}

func withinProximity(level, entry float64) bool {
	if entry == 0 {
		return false
	}
	diff := (level - entry) / entry
	if diff < 0 {
		diff = -diff
	}
	return diff <= pivotProximityPct
}

// isPivotHigh reports whether candle i is a local high over w bars each side
func isPivotHigh(candles []models.Candle, i, w int) bool {
	high := candles[i].High.InexactFloat64()
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if candles[j].High.InexactFloat64() >= high {
			return false
		}
	}
	return true
}

// isPivotLow reports whether candle i is a local low over w bars each side
func isPivotLow(candles []models.Candle, i, w int) bool {
	low := candles[i].Low.InexactFloat64()
	for j := i - w; j <= i+w; j++ {
		if j == i {
			continue
		}
		if candles[j].Low.InexactFloat64() <= low {
			return false
		}
	}
	return true
}
