package workers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/altradar/signals/internal/adapters/redis"
	"github.com/altradar/signals/internal/learning"
	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// ResolvedWindow provides the recent resolved trades the recovery pass reads
type ResolvedWindow interface {
	RecentResolved(ctx context.Context, limit int) ([]models.ResolvedSignal, error)
}

// CycleRecorder mirrors learning cycles to the analytical store
type CycleRecorder interface {
	RecordCycle(cycle *models.LearningCycle)
}

// LearningWorker runs streak detection and the recovery pass under a
// distributed lock so only one pod mutates weights at a time.
type LearningWorker struct {
	loop     *learning.Loop
	repo     learning.Repository
	resolved ResolvedWindow
	lock     redis.Lock
	audit    CycleRecorder
}

// NewLearningWorker creates new learning worker
func NewLearningWorker(loop *learning.Loop, repo learning.Repository, resolved ResolvedWindow, lock redis.Lock) *LearningWorker {
	return &LearningWorker{
		loop:     loop,
		repo:     repo,
		resolved: resolved,
		lock:     lock,
	}
}

// WithAudit attaches an analytical mirror for learning cycles
func (w *LearningWorker) WithAudit(audit CycleRecorder) *LearningWorker {
	w.audit = audit
	return w
}

// Name returns worker name
func (w *LearningWorker) Name() string {
	return "learning"
}

// Run executes one learning pass. Skips silently when another pod holds the
// lock; the streak will still be unprocessed on the next tick.
func (w *LearningWorker) Run(ctx context.Context) error {
	if w.lock != nil {
		acquired, err := w.lock.TryAcquire(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire learning lock: %w", err)
		}
		if !acquired {
			logger.Debug("learning lock held elsewhere, skipping pass")
			return nil
		}
		defer w.lock.Release(ctx)
	}

	if err := w.processStreaks(ctx); err != nil {
		return err
	}

	return w.processRecovery(ctx)
}

func (w *LearningWorker) processStreaks(ctx context.Context) error {
	lastProcessed, err := w.repo.LastProcessedAt(ctx)
	if err != nil {
		return fmt.Errorf("failed to load learning watermark: %w", err)
	}

	history, err := w.repo.ResolvedAfter(ctx, lastProcessed)
	if err != nil {
		return fmt.Errorf("failed to load resolved history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	cycle, processedThrough, err := w.loop.ProcessHistory(ctx, history, lastProcessed)
	if err != nil {
		return fmt.Errorf("failed to process streaks: %w", err)
	}

	if cycle != nil && w.audit != nil {
		w.audit.RecordCycle(cycle)
	}

	if processedThrough.After(lastProcessed) {
		if err := w.repo.SetLastProcessedAt(ctx, processedThrough); err != nil {
			return fmt.Errorf("failed to advance learning watermark: %w", err)
		}
		logger.Debug("learning watermark advanced",
			zap.Time("processed_through", processedThrough),
		)
	}

	return nil
}

func (w *LearningWorker) processRecovery(ctx context.Context) error {
	recent, err := w.resolved.RecentResolved(ctx, learning.RecoveryWindow)
	if err != nil {
		return fmt.Errorf("failed to load recent resolved trades: %w", err)
	}

	cycle, err := w.loop.ProcessRecovery(ctx, recent)
	if err != nil {
		return fmt.Errorf("failed to process recovery: %w", err)
	}

	if cycle != nil && w.audit != nil {
		w.audit.RecordCycle(cycle)
	}

	return nil
}
