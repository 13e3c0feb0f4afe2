package models

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// NewDecimal creates decimal from float64
func NewDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// Candle represents OHLCV candlestick data
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Signal represents the directional reading of a single indicator
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// IndicatorResult is the common output of every indicator and positioning
// computation. Strength is a confidence measure in [0,1], never negative.
type IndicatorResult struct {
	Value    float64 `json:"value"`
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
}

// Neutral returns the neutral default for an indicator whose natural
// resting value is the given one (e.g. 50 for RSI, 0 for MACD histogram).
func Neutral(value float64) IndicatorResult {
	return IndicatorResult{Value: value, Signal: SignalNeutral, Strength: 0}
}

// Direction represents the trade direction of an emitted signal
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionHold  Direction = "HOLD"
)

// Category groups indicators for the per-category score breakdown
type Category string

const (
	CategoryTrend       Category = "trend"
	CategoryMomentum    Category = "momentum"
	CategoryVolatility  Category = "volatility"
	CategoryVolume      Category = "volume"
	CategoryPositioning Category = "positioning"
)

// Weight bounds and the required vector sum after any mutation
const (
	WeightMin       = 1.0
	WeightMax       = 20.0
	WeightVectorSum = 100.0
	WeightSumEps    = 1e-6
)

// WeightVector maps indicator name to its scoring weight.
// Invariant: each weight in [WeightMin, WeightMax], sum == WeightVectorSum.
type WeightVector map[string]float64

// Clone returns an independent copy of the vector
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Sum returns the total of all weights
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// Validate checks the weight invariants
func (w WeightVector) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("weight vector is empty")
	}
	for name, v := range w {
		if v < WeightMin || v > WeightMax {
			return fmt.Errorf("weight %q out of bounds: %.4f (allowed [%.0f, %.0f])", name, v, WeightMin, WeightMax)
		}
	}
	if sum := w.Sum(); math.Abs(sum-WeightVectorSum) > WeightSumEps {
		return fmt.Errorf("weight vector sum %.6f, expected %.0f", sum, WeightVectorSum)
	}
	return nil
}

// Normalize rescales the vector so it sums to WeightVectorSum, then clamps
// each weight back into bounds. Clamping can reintroduce a small sum drift,
// so the scale pass runs twice.
func (w WeightVector) Normalize() {
	for i := 0; i < 2; i++ {
		sum := w.Sum()
		if sum <= 0 {
			return
		}
		factor := WeightVectorSum / sum
		for name, v := range w {
			scaled := v * factor
			if scaled < WeightMin {
				scaled = WeightMin
			} else if scaled > WeightMax {
				scaled = WeightMax
			}
			w[name] = scaled
		}
	}
}

// PositioningContext carries derivatives context for one asset.
// Only funding fields are required; everything else degrades to neutral.
type PositioningContext struct {
	FundingRate       float64  `json:"funding_rate"`
	AnnualizedFunding float64  `json:"annualized_funding"`
	OpenInterest      float64  `json:"open_interest"`
	Premium           float64  `json:"premium"`
	Volume24h         float64  `json:"volume_24h"`
	PriceChange       float64  `json:"price_change"`
	PrevOpenInterest  *float64 `json:"prev_open_interest,omitempty"`
	AvgVolume         *float64 `json:"avg_volume,omitempty"`
	PrevFunding       *float64 `json:"prev_funding,omitempty"`
}

// Regime classifies the prevailing market environment
type Regime string

const (
	RegimeBullTrend    Regime = "BULL_TREND"
	RegimeBearTrend    Regime = "BEAR_TREND"
	RegimeHighVolChop  Regime = "HIGH_VOL_CHOP"
	RegimeAccumulation Regime = "ACCUMULATION"
	RegimeUnknown      Regime = "UNKNOWN"
)

// TrendDirection of the reference asset
type TrendDirection string

const (
	TrendUp       TrendDirection = "up"
	TrendDown     TrendDirection = "down"
	TrendSideways TrendDirection = "sideways"
)

// VolatilityLevel bands ATR as a percentage of price
type VolatilityLevel string

const (
	VolatilityLow     VolatilityLevel = "low"
	VolatilityNormal  VolatilityLevel = "normal"
	VolatilityHigh    VolatilityLevel = "high"
	VolatilityExtreme VolatilityLevel = "extreme"
)

// MarketBias is the breadth-based read of the altcoin market
type MarketBias string

const (
	BiasBullish MarketBias = "BULLISH"
	BiasBearish MarketBias = "BEARISH"
	BiasNeutral MarketBias = "NEUTRAL"
)

// RegimeAnalysis is the regime detector's full output
type RegimeAnalysis struct {
	Regime          Regime          `json:"regime"`
	Confidence      float64         `json:"confidence"`
	TrendDirection  TrendDirection  `json:"trend_direction"`
	TrendStrength   float64         `json:"trend_strength"`
	VolatilityLevel VolatilityLevel `json:"volatility_level"`
	MarketBias      MarketBias      `json:"market_bias"`
}

// RegimeAdjustments is the fixed per-regime multiplier set consumed by the scorer
type RegimeAdjustments struct {
	ScoreThresholdMultiplier    float64   `json:"score_threshold_multiplier"`
	TrendWeightMultiplier       float64   `json:"trend_weight_multiplier"`
	MomentumWeightMultiplier    float64   `json:"momentum_weight_multiplier"`
	PositioningWeightMultiplier float64   `json:"positioning_weight_multiplier"`
	DirectionBias               Direction `json:"direction_bias"`
}

// CategoryScore is one row of the per-category breakdown
type CategoryScore struct {
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// SignalOutput is one emitted trading signal. Immutable once created:
// exit decisions produce a ResolvedSignal, never a mutation of this record.
type SignalOutput struct {
	ID                int64                          `json:"id" db:"id"`
	Asset             string                         `json:"asset" db:"asset"`
	CreatedAt         time.Time                      `json:"created_at" db:"created_at"`
	Score             int                            `json:"score" db:"score"`
	Direction         Direction                      `json:"direction" db:"direction"`
	EntryPrice        float64                        `json:"entry_price" db:"entry_price"`
	StopLoss          float64                        `json:"stop_loss" db:"stop_loss"`
	TakeProfit        float64                        `json:"take_profit" db:"take_profit"`
	RiskRewardRatio   float64                        `json:"risk_reward_ratio" db:"risk_reward_ratio"`
	Agreement         float64                        `json:"agreement" db:"agreement"`
	Regime            Regime                         `json:"regime" db:"regime"`
	IndicatorValues   map[string]IndicatorResult     `json:"indicator_values"`
	CategoryBreakdown map[Category]CategoryScore     `json:"category_breakdown"`
}

// Outcome labels a resolved signal
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// ResolvedSignal is the outcome record fed back into the learning loop
type ResolvedSignal struct {
	SignalID        int64                      `json:"signal_id" db:"signal_id"`
	Asset           string                     `json:"asset" db:"asset"`
	Direction       Direction                  `json:"direction" db:"direction"`
	Outcome         Outcome                    `json:"outcome" db:"outcome"`
	PnLPercent      float64                    `json:"pnl_percent" db:"pnl_percent"`
	ResolvedAt      time.Time                  `json:"resolved_at" db:"resolved_at"`
	IndicatorValues map[string]IndicatorResult `json:"indicator_values"`
}

// LearningTrigger identifies what caused a weight mutation
type LearningTrigger string

const (
	TriggerLossStreak LearningTrigger = "LOSS_STREAK"
	TriggerWinStreak  LearningTrigger = "WIN_STREAK"
	TriggerRecovery   LearningTrigger = "RECOVERY"
)

// LearningAdjustment is one indicator's weight change within a cycle
type LearningAdjustment struct {
	Indicator     string  `json:"indicator" db:"indicator"`
	OldWeight     float64 `json:"old_weight" db:"old_weight"`
	NewWeight     float64 `json:"new_weight" db:"new_weight"`
	ChangePercent float64 `json:"change_percent" db:"change_percent"`
	Reason        string  `json:"reason" db:"reason"`
}

// LearningCycle is one auditable weight-adjustment event. WeightsAfter is a
// full post-mutation snapshot so weight state at any historical point can be
// reconstructed from the snapshot list alone.
type LearningCycle struct {
	ID           int64                `json:"id" db:"id"`
	TriggeredBy  LearningTrigger      `json:"triggered_by" db:"triggered_by"`
	StreakLength int                  `json:"streak_length" db:"streak_length"`
	Adjustments  []LearningAdjustment `json:"adjustments"`
	WeightsAfter WeightVector         `json:"weights_after"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
}
