package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	"go.uber.org/zap"

	"github.com/altradar/signals/pkg/logger"
)

// Lock is the distributed locking contract consumed by workers. An interface
// so tests can substitute an in-process implementation.
type Lock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// DistributedLock serializes a critical section across pods using the
// Redlock algorithm. One instance guards one named resource.
type DistributedLock struct {
	lockManager *redlock.RedLock
	lockName    string
	ttl         time.Duration
	locked      bool
}

// NewDistributedLock creates new distributed lock for the named resource
func NewDistributedLock(lockManager *redlock.RedLock, name string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		lockManager: lockManager,
		lockName:    fmt.Sprintf("signals:lock:%s", name),
		ttl:         ttl,
	}
}

// TryAcquire attempts to acquire the lock. Returns false without error when
// another pod holds it.
func (dl *DistributedLock) TryAcquire(ctx context.Context) (bool, error) {
	expiry, err := dl.lockManager.Lock(ctx, dl.lockName, dl.ttl)
	if err != nil {
		logger.Debug("lock already held by another pod",
			zap.String("lock_name", dl.lockName),
		)
		return false, nil
	}

	if expiry <= 0 {
		return false, fmt.Errorf("failed to acquire lock: invalid expiry %v", expiry)
	}

	dl.locked = true

	logger.Debug("lock acquired",
		zap.String("lock_name", dl.lockName),
		zap.Duration("ttl", dl.ttl),
	)

	return true, nil
}

// Release releases the lock. An already-expired lock is not an error.
func (dl *DistributedLock) Release(ctx context.Context) error {
	if !dl.locked {
		return nil
	}

	if err := dl.lockManager.UnLock(ctx, dl.lockName); err != nil {
		logger.Warn("failed to release lock (may have already expired)",
			zap.String("lock_name", dl.lockName),
			zap.Error(err),
		)
	}

	dl.locked = false
	return nil
}
