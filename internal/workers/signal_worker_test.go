package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/altradar/signals/internal/engine"
	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/pkg/models"
)

// fakeMarket errors on the assets listed in failing, otherwise serves a
// steady uptrend.
type fakeMarket struct {
	failing map[string]bool
}

func (f *fakeMarket) Candles(ctx context.Context, asset, timeframe string, limit int) ([]models.Candle, error) {
	if f.failing[asset] {
		return nil, errors.New("clickhouse down")
	}

	candles := make([]models.Candle, 80)
	price := 100.0
	now := time.Now()
	for i := range candles {
		open := price
		price = price * 1.01
		candles[i] = models.Candle{
			Symbol:    asset,
			Timeframe: timeframe,
			Timestamp: now.Add(time.Duration(i-80) * time.Hour),
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(price * 1.002),
			Low:       decimal.NewFromFloat(open * 0.998),
			Close:     decimal.NewFromFloat(price),
			Volume:    decimal.NewFromFloat(100 + float64(i)*2),
		}
	}
	return candles, nil
}

func (f *fakeMarket) PositioningContext(ctx context.Context, asset string) (*models.PositioningContext, error) {
	return &models.PositioningContext{}, nil
}

func (f *fakeMarket) MarketBreadth(ctx context.Context) (*engine.Breadth, error) {
	return &engine.Breadth{}, nil
}

type fakeWeights struct{}

func (fakeWeights) Snapshot() models.WeightVector {
	return indicators.DefaultWeights()
}

type nullSink struct{}

func (nullSink) SaveSignal(ctx context.Context, signal *models.SignalOutput) error {
	return nil
}

func TestSignalWorker_PartialFailureIsTolerated(t *testing.T) {
	setupTest(t)

	eng := engine.NewEngine(engine.Config{}, &fakeMarket{failing: map[string]bool{"SOL": true}}, fakeWeights{}, nullSink{})
	worker := NewSignalWorker(eng, []string{"ETH", "SOL"})

	assert.Equal(t, "signal_generation", worker.Name())
	assert.NoError(t, worker.Run(context.Background()))
}

func TestSignalWorker_AllAssetsFailing(t *testing.T) {
	setupTest(t)

	eng := engine.NewEngine(engine.Config{}, &fakeMarket{failing: map[string]bool{"ETH": true, "SOL": true, "BTC": true}}, fakeWeights{}, nullSink{})
	worker := NewSignalWorker(eng, []string{"ETH", "SOL"})

	assert.Error(t, worker.Run(context.Background()))
}

func TestSignalWorker_NoAssets(t *testing.T) {
	setupTest(t)

	eng := engine.NewEngine(engine.Config{}, &fakeMarket{}, fakeWeights{}, nullSink{})
	worker := NewSignalWorker(eng, nil)

	assert.NoError(t, worker.Run(context.Background()))
}
