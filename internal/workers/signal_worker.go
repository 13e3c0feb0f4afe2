// Package workers holds the periodic jobs that drive the service: signal
// generation, outcome monitoring and the learning loop.
package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/altradar/signals/internal/engine"
	"github.com/altradar/signals/pkg/logger"
)

// SignalWorker runs one generation pass per configured asset
type SignalWorker struct {
	engine *engine.Engine
	assets []string
}

// NewSignalWorker creates new signal generation worker
func NewSignalWorker(eng *engine.Engine, assets []string) *SignalWorker {
	return &SignalWorker{
		engine: eng,
		assets: assets,
	}
}

// Name returns worker name
func (w *SignalWorker) Name() string {
	return "signal_generation"
}

// Run generates signals for all assets. A failure on one asset does not stop
// the others.
func (w *SignalWorker) Run(ctx context.Context) error {
	var failed int

	for _, asset := range w.assets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := w.engine.Generate(ctx, asset); err != nil {
			failed++
			logger.Error("signal generation failed",
				zap.String("asset", asset),
				zap.Error(err),
			)
		}
	}

	if failed == len(w.assets) && failed > 0 {
		return fmt.Errorf("signal generation failed for all %d assets", failed)
	}

	return nil
}
