package storage

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Batching defaults
const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
)

// BatchWriter buffers records and inserts them a batch at a time.
type BatchWriter struct {
	db      *DB
	size    int
	logger  *logrus.Logger
	mu      sync.Mutex
	pending []*Record
	written int
}

// NewBatchWriter creates a batch writer on db.
func NewBatchWriter(db *DB, size int, logger *logrus.Logger) *BatchWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &BatchWriter{
		db:      db,
		size:    size,
		logger:  logger,
		pending: make([]*Record, 0, size),
	}
}

// Add queues a record and flushes when the batch is full.
func (w *BatchWriter) Add(r *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, r)
	if len(w.pending) < w.size {
		return nil
	}
	return w.flushLocked()
}

// Flush inserts whatever is pending.
func (w *BatchWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Run flushes pending records every interval until ctx is done, so a slow
// feed does not hold records back until a batch fills up.
func (w *BatchWriter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(); err != nil {
				w.logger.WithError(err).Error("Failed to flush frame batch")
			}
		}
	}
}

// Written returns the number of records inserted so far.
func (w *BatchWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *BatchWriter) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	// A failed batch is dropped, not retried.
	batch := w.pending
	w.pending = make([]*Record, 0, w.size)

	if err := w.db.InsertBatch(batch); err != nil {
		return err
	}
	w.written += len(batch)

	w.logger.WithFields(logrus.Fields{
		"batch": len(batch),
		"total": w.written,
	}).Debug("Stored frame batch")
	return nil
}
