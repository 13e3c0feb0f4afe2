// Package learning owns the live weight vector and the bounded,
// streak-driven weight adjustment loop with its auditable history.
package learning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// Repository is the persistence contract the store needs. Concurrent
// generation-vs-learning access is serialized at this write boundary by the
// caller (the learning worker holds a distributed lock around mutations).
type Repository interface {
	LoadWeights(ctx context.Context) (models.WeightVector, error)
	SaveWeights(ctx context.Context, weights models.WeightVector) error
	SaveCycle(ctx context.Context, cycle *models.LearningCycle) error
	Cycles(ctx context.Context) ([]models.LearningCycle, error)
	ResolvedAfter(ctx context.Context, after time.Time) ([]models.ResolvedSignal, error)
	LastProcessedAt(ctx context.Context) (time.Time, error)
	SetLastProcessedAt(ctx context.Context, at time.Time) error
}

// Store exclusively owns the live weight vector and the learning cycle
// history. All readers receive an independent snapshot; writers go through
// Replace, which persists before mutating memory.
type Store struct {
	mu       sync.RWMutex
	weights  models.WeightVector
	defaults models.WeightVector
	repo     Repository
}

// NewStore creates a store seeded with defaults. When a repository is
// provided it tries to load the persisted vector; an absent or invalid
// persisted vector falls back to the defaults.
func NewStore(ctx context.Context, defaults models.WeightVector, repo Repository) (*Store, error) {
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default weights: %w", err)
	}

	store := &Store{
		weights:  defaults.Clone(),
		defaults: defaults.Clone(),
		repo:     repo,
	}

	if repo != nil {
		persisted, err := repo.LoadWeights(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted weights: %w", err)
		}
		if len(persisted) > 0 {
			// Off-invariant persisted vectors are renormalized, never
			// silently accepted.
			persisted.Normalize()
			if err := persisted.Validate(); err != nil {
				logger.Warn("persisted weights invalid after renormalization, using defaults", zap.Error(err))
			} else {
				store.weights = persisted
			}
		}
	}

	return store, nil
}

// Snapshot returns an independent copy of the current weight vector
func (s *Store) Snapshot() models.WeightVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights.Clone()
}

// Defaults returns a copy of the engine default weights
func (s *Store) Defaults() models.WeightVector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults.Clone()
}

// Replace validates and persists a full replacement vector, then swaps it
// in. A failed persistence write leaves the previous vector intact: callers
// never observe a partial mutation.
func (s *Store) Replace(ctx context.Context, weights models.WeightVector) error {
	candidate := weights.Clone()
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("replacement weights rejected: %w", err)
	}

	if s.repo != nil {
		if err := s.repo.SaveWeights(ctx, candidate); err != nil {
			return fmt.Errorf("failed to persist weights: %w", err)
		}
	}

	s.mu.Lock()
	s.weights = candidate
	s.mu.Unlock()
	return nil
}

// appendCycle persists a learning cycle record
func (s *Store) appendCycle(ctx context.Context, cycle *models.LearningCycle) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveCycle(ctx, cycle); err != nil {
		return fmt.Errorf("failed to persist learning cycle: %w", err)
	}
	return nil
}
