package clickhouse

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/altradar/signals/pkg/logger"
	"github.com/altradar/signals/pkg/models"
)

// BatchWriter buffers records and writes them via repository in batches
type BatchWriter struct {
	repo        *Repository
	buffer      []interface{}
	bufferMu    sync.Mutex
	maxBatch    int
	maxWait     time.Duration
	flushTicker *time.Ticker
	flushFunc   func(context.Context, *Repository, []interface{}) error
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewBatchWriter creates new batch writer
func NewBatchWriter(
	repo *Repository,
	maxBatch int,
	maxWait time.Duration,
	flushFunc func(context.Context, *Repository, []interface{}) error,
) *BatchWriter {
	ctx, cancel := context.WithCancel(context.Background())

	bw := &BatchWriter{
		repo:      repo,
		buffer:    make([]interface{}, 0, maxBatch),
		maxBatch:  maxBatch,
		maxWait:   maxWait,
		flushFunc: flushFunc,
		ctx:       ctx,
		cancel:    cancel,
	}

	bw.flushTicker = time.NewTicker(maxWait)

	bw.wg.Add(1)
	go bw.autoFlush()

	return bw
}

// Add adds record to buffer
func (bw *BatchWriter) Add(record interface{}) {
	bw.bufferMu.Lock()
	bw.buffer = append(bw.buffer, record)
	shouldFlush := len(bw.buffer) >= bw.maxBatch
	bw.bufferMu.Unlock()

	if shouldFlush {
		bw.flush()
	}
}

// autoFlush flushes buffer periodically
func (bw *BatchWriter) autoFlush() {
	defer bw.wg.Done()

	for {
		select {
		case <-bw.flushTicker.C:
			bw.flush()
		case <-bw.ctx.Done():
			// Final flush before exit
			bw.flush()
			return
		}
	}
}

// flush writes buffered records to ClickHouse via repository
func (bw *BatchWriter) flush() {
	bw.bufferMu.Lock()
	if len(bw.buffer) == 0 {
		bw.bufferMu.Unlock()
		return
	}

	toWrite := make([]interface{}, len(bw.buffer))
	copy(toWrite, bw.buffer)
	bw.buffer = bw.buffer[:0]
	bw.bufferMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bw.flushFunc(ctx, bw.repo, toWrite); err != nil {
		logger.Error("failed to flush batch to ClickHouse",
			zap.Int("records", len(toWrite)),
			zap.Error(err),
		)
		return
	}

	logger.Debug("flushed batch to ClickHouse",
		zap.Int("records", len(toWrite)),
	)
}

// Close stops the writer and flushes remaining data
func (bw *BatchWriter) Close() error {
	bw.flushTicker.Stop()
	bw.cancel()
	bw.wg.Wait()
	return nil
}

// SignalBatchWriter specialized writer for emitted signals
type SignalBatchWriter struct {
	*BatchWriter
}

// NewSignalBatchWriter creates batch writer for signals
func NewSignalBatchWriter(repo *Repository, maxBatch int, maxWait time.Duration) *SignalBatchWriter {
	flushFunc := func(ctx context.Context, r *Repository, records []interface{}) error {
		signals := make([]models.SignalOutput, len(records))
		for i, record := range records {
			signals[i] = record.(models.SignalOutput)
		}
		return r.SaveSignals(ctx, signals)
	}

	bw := NewBatchWriter(repo, maxBatch, maxWait, flushFunc)

	return &SignalBatchWriter{BatchWriter: bw}
}

// RecordSignal adds a signal to the write buffer
func (sbw *SignalBatchWriter) RecordSignal(signal *models.SignalOutput) {
	if signal == nil {
		return
	}
	sbw.Add(*signal)
}

// CycleBatchWriter specialized writer for learning cycles
type CycleBatchWriter struct {
	*BatchWriter
}

// NewCycleBatchWriter creates batch writer for learning cycles
func NewCycleBatchWriter(repo *Repository, maxBatch int, maxWait time.Duration) *CycleBatchWriter {
	flushFunc := func(ctx context.Context, r *Repository, records []interface{}) error {
		cycles := make([]models.LearningCycle, len(records))
		for i, record := range records {
			cycles[i] = record.(models.LearningCycle)
		}
		return r.SaveCycles(ctx, cycles)
	}

	bw := NewBatchWriter(repo, maxBatch, maxWait, flushFunc)

	return &CycleBatchWriter{BatchWriter: bw}
}

// RecordCycle adds a learning cycle to the write buffer
func (cbw *CycleBatchWriter) RecordCycle(cycle *models.LearningCycle) {
	if cycle == nil {
		return
	}
	cbw.Add(*cycle)
}
