// Package risk computes entry/stop/target levels from a candle series and a
// direction, and the dual-timeframe momentum check used for early
// profit-taking.
package risk

import (
	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

// Risk parameters. ATR distances give a pure-ATR risk:reward of 2.0.
const (
	atrStopMultiplier   = 1.5
	atrTargetMultiplier = 3.0
	// Pivot levels sit just inside the raw extreme
	pivotPadding = 0.995
	// Pivots further than this from entry are ignored
	pivotProximityPct = 0.20
	// Minimum distance to the profit target
	minProfitDistancePct = 0.02
	// Flat fallback applied when computed levels fail the sanity check
	fallbackOffsetPct = 0.05
)

// Levels holds the computed trade levels. A HOLD direction yields neutral
// levels: entry only, no stop or target.
type Levels struct {
	EntryPrice      float64 `json:"entry_price"`
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// Engine computes risk levels and exit decisions. Stateless.
type Engine struct {
	calc        *indicators.Calculator
	pivotWindow int
}

// NewEngine creates new risk engine with the given pivot detection window
// (bars on each side of a local extremum).
func NewEngine(pivotWindow int) *Engine {
	if pivotWindow < 1 {
		pivotWindow = 3
	}
	return &Engine{
		calc:        indicators.NewCalculator(),
		pivotWindow: pivotWindow,
	}
}

// CalculateRiskLevels computes entry, stop loss and take profit for a trade
// in the given direction. Stops anchor on 1.5x ATR bounded by the nearest
// pivot support/resistance; targets on 3x ATR. Any level landing on the wrong
// side of entry falls back to a flat 5% offset rather than emitting an
// invalid trade.
func (e *Engine) CalculateRiskLevels(candles []models.Candle, direction models.Direction) Levels {
	if len(candles) == 0 {
		return Levels{}
	}

	entry := candles[len(candles)-1].Close.InexactFloat64()
	if direction == models.DirectionHold {
		return Levels{EntryPrice: entry}
	}

	atr := e.calc.ATR(candles).Value
	if atr <= 0 {
		return e.fallbackLevels(entry, direction)
	}

	support, resistance := e.nearestPivots(candles, entry)

	var stopLoss, takeProfit float64
	if direction == models.DirectionLong {
		stopLoss = entry - atrStopMultiplier*atr
		if support > 0 && support*pivotPadding > stopLoss {
			stopLoss = support * pivotPadding
		}
		takeProfit = entry + atrTargetMultiplier*atr
		if resistance > 0 && resistance*pivotPadding < takeProfit {
			takeProfit = resistance * pivotPadding
		}
		if takeProfit < entry*(1+minProfitDistancePct) {
			takeProfit = entry * (1 + minProfitDistancePct)
		}
		if stopLoss >= entry || takeProfit <= entry {
			return e.fallbackLevels(entry, direction)
		}
	} else {
		stopLoss = entry + atrStopMultiplier*atr
		if resistance > 0 && resistance/pivotPadding < stopLoss {
			stopLoss = resistance / pivotPadding
		}
		takeProfit = entry - atrTargetMultiplier*atr
		if support > 0 && support/pivotPadding > takeProfit {
			takeProfit = support / pivotPadding
		}
		if takeProfit > entry*(1-minProfitDistancePct) {
			takeProfit = entry * (1 - minProfitDistancePct)
		}
		if stopLoss <= entry || takeProfit >= entry {
			return e.fallbackLevels(entry, direction)
		}
	}

	riskDistance := entry - stopLoss
	rewardDistance := takeProfit - entry
	if direction == models.DirectionShort {
		riskDistance = stopLoss - entry
		rewardDistance = entry - takeProfit
	}

	rr := 0.0
	if riskDistance > 0 {
		rr = rewardDistance / riskDistance
	}

	return Levels{
		EntryPrice:      entry,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
		RiskRewardRatio: rr,
	}
}

// fallbackLevels is the flat-percentage safety net
func (e *Engine) fallbackLevels(entry float64, direction models.Direction) Levels {
	if direction == models.DirectionLong {
		return Levels{
			EntryPrice:      entry,
			StopLoss:        entry * (1 - fallbackOffsetPct),
			TakeProfit:      entry * (1 + fallbackOffsetPct),
			RiskRewardRatio: 1,
		}
	}
	return Levels{
		EntryPrice:      entry,
		StopLoss:        entry * (1 + fallbackOffsetPct),
		TakeProfit:      entry * (1 - fallbackOffsetPct),
		RiskRewardRatio: 1,
	}
}
