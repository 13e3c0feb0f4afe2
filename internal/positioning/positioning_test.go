package positioning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/altradar/signals/pkg/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestFundingRateSignal(t *testing.T) {
	t.Run("crowded longs read bearish", func(t *testing.T) {
		res := FundingRateSignal(&models.PositioningContext{AnnualizedFunding: 0.60})
		assert.Equal(t, models.SignalBearish, res.Signal)
		assert.Greater(t, res.Strength, 0.0)
	})

	t.Run("crowded shorts read bullish", func(t *testing.T) {
		res := FundingRateSignal(&models.PositioningContext{AnnualizedFunding: -0.25})
		assert.Equal(t, models.SignalBullish, res.Signal)
		assert.Greater(t, res.Strength, 0.0)
	})

	t.Run("near-zero funding is neutral", func(t *testing.T) {
		res := FundingRateSignal(&models.PositioningContext{AnnualizedFunding: 0.05})
		assert.Equal(t, models.SignalNeutral, res.Signal)
		assert.Zero(t, res.Strength)
	})

	t.Run("fast-moving funding amplifies strength", func(t *testing.T) {
		slow := FundingRateSignal(&models.PositioningContext{
			AnnualizedFunding: 0.60,
			FundingRate:       0.0001,
			PrevFunding:       floatPtr(0.0001),
		})
		fast := FundingRateSignal(&models.PositioningContext{
			AnnualizedFunding: 0.60,
			FundingRate:       0.0002,
			PrevFunding:       floatPtr(0.0001),
		})
		assert.Greater(t, fast.Strength, slow.Strength)
	})

	t.Run("nil context is neutral", func(t *testing.T) {
		res := FundingRateSignal(nil)
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})
}

func TestOIChangeSignal(t *testing.T) {
	t.Run("OI up with price up is bullish", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     110,
			PrevOpenInterest: floatPtr(100),
			PriceChange:      2.0,
		})
		assert.Equal(t, models.SignalBullish, res.Signal)
	})

	t.Run("OI up with price down is bearish", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     110,
			PrevOpenInterest: floatPtr(100),
			PriceChange:      -2.0,
		})
		assert.Equal(t, models.SignalBearish, res.Signal)
	})

	t.Run("short squeeze strength is capped", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     70,
			PrevOpenInterest: floatPtr(100),
			PriceChange:      3.0,
		})
		assert.Equal(t, models.SignalBullish, res.Signal)
		assert.LessOrEqual(t, res.Strength, 0.5)
	})

	t.Run("long liquidation is bearish", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     85,
			PrevOpenInterest: floatPtr(100),
			PriceChange:      -3.0,
		})
		assert.Equal(t, models.SignalBearish, res.Signal)
	})

	t.Run("insignificant moves are neutral", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     102,
			PrevOpenInterest: floatPtr(100),
			PriceChange:      2.0,
		})
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})

	t.Run("zero previous OI is neutral", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{
			OpenInterest:     100,
			PrevOpenInterest: floatPtr(0),
			PriceChange:      5.0,
		})
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})

	t.Run("missing previous OI is neutral", func(t *testing.T) {
		res := OIChangeSignal(&models.PositioningContext{OpenInterest: 100, PriceChange: 5.0})
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})
}

func TestBasisPremiumSignal(t *testing.T) {
	assert.Equal(t, models.SignalBearish, BasisPremiumSignal(&models.PositioningContext{Premium: 1.0}).Signal)
	assert.Equal(t, models.SignalBullish, BasisPremiumSignal(&models.PositioningContext{Premium: -0.5}).Signal)
	assert.Equal(t, models.SignalNeutral, BasisPremiumSignal(&models.PositioningContext{Premium: 0.1}).Signal)
}

func TestVolumeMomentumSignal(t *testing.T) {
	t.Run("surge reinforces price direction", func(t *testing.T) {
		res := VolumeMomentumSignal(&models.PositioningContext{
			Volume24h:   300,
			AvgVolume:   floatPtr(100),
			PriceChange: 2.0,
		})
		assert.Equal(t, models.SignalBullish, res.Signal)
	})

	t.Run("no surge is neutral", func(t *testing.T) {
		res := VolumeMomentumSignal(&models.PositioningContext{
			Volume24h:   120,
			AvgVolume:   floatPtr(100),
			PriceChange: 2.0,
		})
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})

	t.Run("missing average is neutral", func(t *testing.T) {
		res := VolumeMomentumSignal(&models.PositioningContext{Volume24h: 300, PriceChange: 2.0})
		assert.Equal(t, models.SignalNeutral, res.Signal)
	})
}

func TestScore(t *testing.T) {
	bullish := models.IndicatorResult{Signal: models.SignalBullish, Strength: 0.8}
	bearish := models.IndicatorResult{Signal: models.SignalBearish, Strength: 0.4}
	neutral := models.Neutral(0)

	t.Run("weighted sum determines direction", func(t *testing.T) {
		score, max, direction := Score(bullish, bearish, 9, 7)
		assert.InDelta(t, 0.8*9+0.4*7, score, 1e-9)
		assert.InDelta(t, 16, max, 1e-9)
		assert.Equal(t, models.SignalBullish, direction)
	})

	t.Run("neutral inputs contribute nothing", func(t *testing.T) {
		score, max, direction := Score(neutral, neutral, 9, 7)
		assert.Zero(t, score)
		assert.InDelta(t, 16, max, 1e-9)
		assert.Equal(t, models.SignalNeutral, direction)
	})

	t.Run("bearish outweighs weaker bullish", func(t *testing.T) {
		strongBearish := models.IndicatorResult{Signal: models.SignalBearish, Strength: 0.9}
		weakBullish := models.IndicatorResult{Signal: models.SignalBullish, Strength: 0.2}
		_, _, direction := Score(strongBearish, weakBullish, 9, 7)
		assert.Equal(t, models.SignalBearish, direction)
	})
}
