package worker

import (
	"context"
	"time"

	"cryptoprice-service/internal/application"

	"go.uber.org/zap"
)

var _ application.Worker = (*RetentionWorker)(nil)

// RetentionWorker deletes history records past their retention deadline.
// Each tick drains expired rows in batches of BatchLimit.
type RetentionWorker struct {
	Repo application.RetentionRepo

	SweepEvery time.Duration
	BatchLimit int
	MaxBatches int
	Now        func() time.Time
	Log        *zap.Logger
}

func (w *RetentionWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.SweepEvery <= 0 {
		w.SweepEvery = 10 * time.Minute
	}

	t := time.NewTicker(w.SweepEvery)
	defer t.Stop()

	log.Info("retention_worker_started", zap.Duration("sweep_every", w.SweepEvery), zap.Int("batch_limit", w.batch()))
	w.Sweep(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("retention_worker_stopped")
			return
		case <-t.C:
			w.Sweep(ctx, log)
		}
	}
}

// Sweep runs one drain and returns the number of records deleted.
func (w *RetentionWorker) Sweep(ctx context.Context, log *zap.Logger) int64 {
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	maxBatches := w.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 100
	}

	var total int64
	cutoff := now().UTC()
	for i := 0; i < maxBatches; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := w.Repo.PurgeExpired(ctx, cutoff, w.batch())
		if err != nil {
			log.Warn("retention.purge_failed", zap.Error(err), zap.Int64("deleted", total))
			return total
		}
		total += n
		if n < int64(w.batch()) {
			break
		}
	}
	if total > 0 {
		log.Info("retention.purged", zap.Int64("deleted", total), zap.Time("cutoff", cutoff))
	}
	return total
}

func (w *RetentionWorker) batch() int {
	if w.BatchLimit <= 0 {
		return 500
	}
	return w.BatchLimit
}
