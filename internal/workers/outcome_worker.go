package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/internal/risk"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// SignalStore is the slice of the signal repository outcome tracking needs
type SignalStore interface {
	ActiveSignals(ctx context.Context) ([]models.SignalOutput, error)
	ResolveSignal(ctx context.Context, signalID int64, outcome models.Outcome, pnlPercent float64, resolvedAt time.Time) error
}

// PriceSource yields the latest bar for an asset
type PriceSource interface {
	LatestPrice(ctx context.Context, asset, timeframe string) (high, low, closePrice float64, err error)
}

// ExitEvaluator checks an open position for momentum fade
type ExitEvaluator interface {
	EvaluateOpenPosition(ctx context.Context, asset string, pos risk.OpenPosition) (risk.ExitDecision, error)
}

// OutcomeWorker resolves active signals against current prices: stop and
// target touches first, then the momentum-fade early exit.
type OutcomeWorker struct {
	store     SignalStore
	prices    PriceSource
	exit      ExitEvaluator
	timeframe string
}

// NewOutcomeWorker creates new outcome monitoring worker
func NewOutcomeWorker(store SignalStore, prices PriceSource, exit ExitEvaluator, timeframe string) *OutcomeWorker {
	return &OutcomeWorker{
		store:     store,
		prices:    prices,
		exit:      exit,
		timeframe: timeframe,
	}
}

// Name returns worker name
func (w *OutcomeWorker) Name() string {
	return "outcome_monitor"
}

// Run checks every active signal once
func (w *OutcomeWorker) Run(ctx context.Context) error {
	active, err := w.store.ActiveSignals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active signals: %w", err)
	}

	for _, sig := range active {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.checkSignal(ctx, sig); err != nil {
			logger.Error("failed to check signal outcome",
				zap.Int64("signal_id", sig.ID),
				zap.String("asset", sig.Asset),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (w *OutcomeWorker) checkSignal(ctx context.Context, sig models.SignalOutput) error {
	high, low, closePrice, err := w.prices.LatestPrice(ctx, sig.Asset, w.timeframe)
	if err != nil {
		return fmt.Errorf("failed to fetch price: %w", err)
	}

	// Stop/target touches use the bar's extremes so intrabar hits resolve
	if outcome, pnl, hit := levelTouch(sig, high, low); hit {
		return w.resolve(ctx, sig, outcome, pnl)
	}

	if w.exit == nil {
		return nil
	}

	decision, err := w.exit.EvaluateOpenPosition(ctx, sig.Asset, risk.OpenPosition{
		Direction:    sig.Direction,
		EntryPrice:   sig.EntryPrice,
		CurrentPrice: closePrice,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate exit: %w", err)
	}

	if decision.ShouldExit {
		outcome := models.OutcomeWon
		if decision.UnrealizedPct <= 0 {
			outcome = models.OutcomeLost
		}
		logger.Info("momentum fade exit",
			zap.Int64("signal_id", sig.ID),
			zap.String("asset", sig.Asset),
			zap.Float64("unrealized_pct", decision.UnrealizedPct),
			zap.String("reason", decision.Reason),
		)
		return w.resolve(ctx, sig, outcome, decision.UnrealizedPct)
	}

	return nil
}

// levelTouch reports whether the bar touched the stop or target. A bar that
// spans both levels counts as a stop: the conservative read.
func levelTouch(sig models.SignalOutput, high, low float64) (models.Outcome, float64, bool) {
	switch sig.Direction {
	case models.DirectionLong:
		if low <= sig.StopLoss {
			return models.OutcomeLost, pctMove(sig.EntryPrice, sig.StopLoss), true
		}
		if high >= sig.TakeProfit {
			return models.OutcomeWon, pctMove(sig.EntryPrice, sig.TakeProfit), true
		}
	case models.DirectionShort:
		if high >= sig.StopLoss {
			return models.OutcomeLost, -pctMove(sig.EntryPrice, sig.StopLoss), true
		}
		if low <= sig.TakeProfit {
			return models.OutcomeWon, -pctMove(sig.EntryPrice, sig.TakeProfit), true
		}
	}
	return "", 0, false
}

func pctMove(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}
	return (exit - entry) / entry * 100
}

func (w *OutcomeWorker) resolve(ctx context.Context, sig models.SignalOutput, outcome models.Outcome, pnl float64) error {
	if err := w.store.ResolveSignal(ctx, sig.ID, outcome, pnl, time.Now().UTC()); err != nil {
		return err
	}

	logger.Info("signal resolved",
		zap.Int64("signal_id", sig.ID),
		zap.String("asset", sig.Asset),
		zap.String("outcome", string(outcome)),
		zap.Float64("pnl_percent", pnl),
	)

	return nil
}
