package worker

import (
	"context"
	"time"

	"github.com/peakline/aeo-backend/internal/jobs"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/platform/envutil"
)

// Worker drives the processor on a fixed tick. Claim contention is
// handled at the database level, so multiple workers (or processes)
// can run the same loop safely.
type Worker struct {
	log       *logger.Logger
	processor *jobs.Processor

	interval  time.Duration
	batchSize int
}

func NewWorker(baseLog *logger.Logger, processor *jobs.Processor) *Worker {
	return &Worker{
		log:       baseLog.With("component", "JobWorker"),
		processor: processor,
		interval:  envutil.Duration("WORKER_POLL_INTERVAL", 5*time.Second),
		batchSize: envutil.Int("WORKER_BATCH_SIZE", 10),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker", "interval", w.interval, "batch_size", w.batchSize)
	go w.runLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						w.log.Error("ProcessBatch panic", "panic", r)
					}
				}()
				if _, err := w.processor.ProcessBatch(ctx, w.batchSize); err != nil {
					w.log.Warn("ProcessBatch failed", "error", err)
				}
			}()
		}
	}
}
