// Package engine orchestrates one full signal generation pass: market data,
// indicators, positioning, regime, scoring and risk levels.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/internal/indicators"
	"github.com/altradar/signals/internal/positioning"
	"github.com/altradar/signals/internal/regime"
	"github.com/altradar/signals/internal/risk"
	"github.com/altradar/signals/internal/scorer"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// Breadth is the market-wide context the regime detector consumes
type Breadth struct {
	AltChanges  []float64
	AvgFunding  float64
	AvgOIChange float64
}

// MarketData provides read access to candle history and derivatives state
type MarketData interface {
	Candles(ctx context.Context, asset, timeframe string, limit int) ([]models.Candle, error)
	PositioningContext(ctx context.Context, asset string) (*models.PositioningContext, error)
	MarketBreadth(ctx context.Context) (*Breadth, error)
}

// WeightSource yields the current weight vector snapshot
type WeightSource interface {
	Snapshot() models.WeightVector
}

// SignalSink persists emitted signals
type SignalSink interface {
	SaveSignal(ctx context.Context, signal *models.SignalOutput) error
}

// AuditSink mirrors emitted signals to the analytical store. Best effort: a
// failed mirror write never fails generation.
type AuditSink interface {
	RecordSignal(signal *models.SignalOutput)
}

// SentimentProvider optionally supplies an external sentiment score [0,100]
type SentimentProvider interface {
	Sentiment(ctx context.Context, asset string) (*float64, error)
}

// Config holds engine tuning
type Config struct {
	Timeframe      string
	LongTimeframe  string
	CandleLimit    int
	ReferenceAsset string
	PivotWindow    int
}

// Engine generates signals for one asset at a time. Safe for concurrent use
// across assets: all component state is read-only or snapshot-based.
type Engine struct {
	cfg       Config
	market    MarketData
	weights   WeightSource
	sink      SignalSink
	audit     AuditSink
	sentiment SentimentProvider
	calc      *indicators.Calculator
	detector  *regime.Detector
	risk      *risk.Engine
}

// NewEngine creates new signal engine
func NewEngine(cfg Config, market MarketData, weights WeightSource, sink SignalSink) *Engine {
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1h"
	}
	if cfg.LongTimeframe == "" {
		cfg.LongTimeframe = "4h"
	}
	if cfg.CandleLimit < indicators.MinCandles {
		cfg.CandleLimit = 100
	}
	if cfg.ReferenceAsset == "" {
		cfg.ReferenceAsset = "BTC"
	}

	return &Engine{
		cfg:      cfg,
		market:   market,
		weights:  weights,
		sink:     sink,
		calc:     indicators.NewCalculator(),
		detector: regime.NewDetector(),
		risk:     risk.NewEngine(cfg.PivotWindow),
	}
}

// WithAudit attaches an analytical mirror sink
func (e *Engine) WithAudit(audit AuditSink) *Engine {
	e.audit = audit
	return e
}

// WithSentiment attaches an external sentiment source
func (e *Engine) WithSentiment(provider SentimentProvider) *Engine {
	e.sentiment = provider
	return e
}

// Generate runs one full scoring pass for the asset. Returns a nil signal
// without error when history is too short to score.
func (e *Engine) Generate(ctx context.Context, asset string) (*models.SignalOutput, error) {
	candles, err := e.market.Candles(ctx, asset, e.cfg.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", asset, err)
	}
	if len(candles) < indicators.MinCandles {
		logger.Warn("insufficient candle history, skipping asset",
			zap.String("asset", asset),
			zap.Int("candles", len(candles)),
			zap.Int("required", indicators.MinCandles),
		)
		return nil, nil
	}

	results := e.calc.ComputeAll(candles)

	posCtx, err := e.market.PositioningContext(ctx, asset)
	if err != nil {
		logger.Warn("positioning context unavailable, scoring without it",
			zap.String("asset", asset), zap.Error(err))
		posCtx = &models.PositioningContext{}
	}
	funding := positioning.FundingRateSignal(posCtx)
	oiChange := positioning.OIChangeSignal(posCtx)

	analysis := e.detectRegime(ctx)
	adjustments := regime.Adjustments(analysis.Regime)

	result := scorer.Score(scorer.Input{
		Indicators:  results,
		Funding:     funding,
		OIChange:    oiChange,
		Weights:     e.weights.Snapshot(),
		Adjustments: adjustments,
		Sentiment:   e.fetchSentiment(ctx, asset),
	})

	// Basis and venue volume are recorded for the audit trail but stay out
	// of the weighted score; only funding and OI carry weight.
	result.IndicatorValues[positioning.NameBasisPremium] = positioning.BasisPremiumSignal(posCtx)
	result.IndicatorValues[positioning.NameVolumeMomentum] = positioning.VolumeMomentumSignal(posCtx)

	levels := e.risk.CalculateRiskLevels(candles, result.Direction)

	signal := &models.SignalOutput{
		Asset:             asset,
		CreatedAt:         time.Now().UTC(),
		Score:             result.Score,
		Direction:         result.Direction,
		EntryPrice:        levels.EntryPrice,
		StopLoss:          levels.StopLoss,
		TakeProfit:        levels.TakeProfit,
		RiskRewardRatio:   levels.RiskRewardRatio,
		Agreement:         result.Agreement,
		Regime:            analysis.Regime,
		IndicatorValues:   result.IndicatorValues,
		CategoryBreakdown: result.CategoryBreakdown,
	}

	if e.sink != nil {
		if err := e.sink.SaveSignal(ctx, signal); err != nil {
			return nil, fmt.Errorf("failed to persist signal: %w", err)
		}
	}
	if e.audit != nil {
		e.audit.RecordSignal(signal)
	}

	logger.Info("signal generated",
		zap.String("asset", asset),
		zap.String("direction", string(signal.Direction)),
		zap.Int("score", signal.Score),
		zap.String("regime", string(signal.Regime)),
		zap.Float64("agreement", signal.Agreement),
	)

	return signal, nil
}

// detectRegime classifies the market using reference-asset candles and
// market-wide breadth. Degrades to UNKNOWN when either read fails.
func (e *Engine) detectRegime(ctx context.Context) models.RegimeAnalysis {
	refCandles, err := e.market.Candles(ctx, e.cfg.ReferenceAsset, e.cfg.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		logger.Warn("reference candles unavailable", zap.Error(err))
		refCandles = nil
	}

	breadth, err := e.market.MarketBreadth(ctx)
	if err != nil {
		logger.Warn("market breadth unavailable", zap.Error(err))
		breadth = &Breadth{}
	}

	return e.detector.Detect(refCandles, breadth.AltChanges, breadth.AvgFunding, breadth.AvgOIChange)
}

func (e *Engine) fetchSentiment(ctx context.Context, asset string) *float64 {
	if e.sentiment == nil {
		return nil
	}
	score, err := e.sentiment.Sentiment(ctx, asset)
	if err != nil {
		logger.Debug("sentiment unavailable", zap.String("asset", asset), zap.Error(err))
		return nil
	}
	return score
}

// EvaluateOpenPosition checks an in-profit position for momentum fade across
// the short and long timeframes.
func (e *Engine) EvaluateOpenPosition(ctx context.Context, asset string, pos risk.OpenPosition) (risk.ExitDecision, error) {
	shortTF, err := e.market.Candles(ctx, asset, e.cfg.Timeframe, e.cfg.CandleLimit)
	if err != nil {
		return risk.ExitDecision{}, fmt.Errorf("failed to fetch short timeframe candles: %w", err)
	}
	longTF, err := e.market.Candles(ctx, asset, e.cfg.LongTimeframe, e.cfg.CandleLimit)
	if err != nil {
		return risk.ExitDecision{}, fmt.Errorf("failed to fetch long timeframe candles: %w", err)
	}
	return e.risk.EvaluateExit(pos, shortTF, longTF), nil
}
