package risk

import (
	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

// Smart-exit parameters
const (
	// Unrealized gain required before the exit check arms
	exitArmThresholdPct = 3.0
	// RSI midline used as the momentum-fade boundary
	rsiMidline = 50.0
)

// OpenPosition is the minimal view of an open trade the exit check needs
type OpenPosition struct {
	Direction    models.Direction
	EntryPrice   float64
	CurrentPrice float64
}

// ExitDecision is the outcome of one smart-exit evaluation
type ExitDecision struct {
	ShouldExit    bool    `json:"should_exit"`
	UnrealizedPct float64 `json:"unrealized_pct"`
	ShortTFFading bool    `json:"short_tf_fading"`
	LongTFFading  bool    `json:"long_tf_fading"`
	Reason        string  `json:"reason"`
}

// UnrealizedPct returns the position's unrealized return in percent,
// positive when the trade is in profit.
func (p OpenPosition) UnrealizedPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	pct := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Direction == models.DirectionShort {
		pct = -pct
	}
	return pct
}

// EvaluateExit decides whether to take profit early. The check arms at +3%
// unrealized and exits only when BOTH timeframes show momentum fading in the
// trade's direction: a single fading timeframe is treated as noise and the
// position is held toward its original target. The caller must supply both
// candle series up front; no fetching happens here.
func (e *Engine) EvaluateExit(pos OpenPosition, shortTF, longTF []models.Candle) ExitDecision {
	unrealized := pos.UnrealizedPct()
	decision := ExitDecision{UnrealizedPct: unrealized}

	if pos.Direction == models.DirectionHold || unrealized < exitArmThresholdPct {
		decision.Reason = "below profit threshold"
		return decision
	}

	decision.ShortTFFading = e.momentumFading(shortTF, pos.Direction)
	decision.LongTFFading = e.momentumFading(longTF, pos.Direction)

	if decision.ShortTFFading && decision.LongTFFading {
		decision.ShouldExit = true
		decision.Reason = "momentum fading on both timeframes"
	} else {
		decision.Reason = "momentum intact, holding to target"
	}
	return decision
}

// momentumFading reports whether RSI and MACD together show momentum leaving
// the trade's direction on one timeframe. The raw MACD line is compared
// against zero rather than the scored histogram read: the histogram tracks
// acceleration and reads bullish on a decelerating decline.
func (e *Engine) momentumFading(candles []models.Candle, direction models.Direction) bool {
	if len(candles) < indicators.MinExitCandles {
		return false
	}

	rsi := e.calc.RSI(candles)
	macdLine, _ := e.calc.MACDLine(candles)

	if direction == models.DirectionLong {
		return rsi.Value < rsiMidline && macdLine < 0
	}
	return rsi.Value > rsiMidline && macdLine > 0
}
