package ingest

import (
	"context"
	"log/slog"

	"journal/internal/storage"
)

// Worker is the single consumer of the ingestion queue. It issues one
// idempotent upsert per document and logs the outcome; a failed upsert is
// logged and dropped, never stopping the loop and never retried. Exactly
// one worker runs per process, which serializes ingestion-side writes to
// any given document.
type Worker struct {
	store  storage.DocumentStore
	logger *slog.Logger
}

// NewWorker creates a worker draining into store.
func NewWorker(store storage.DocumentStore, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, logger: logger}
}

// Run consumes payloads until the queue is closed or ctx is cancelled.
func (w *Worker) Run(ctx context.Context, queue <-chan Payload) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-queue:
			if !ok {
				return
			}
			w.handle(ctx, p)
		}
	}
}

func (w *Worker) handle(ctx context.Context, p Payload) {
	switch {
	case p.Doc != nil:
		res, err := w.store.Upsert(ctx, p.Doc)
		if err != nil {
			w.logger.Error("upsert failed",
				"id", p.Doc.ID,
				"class", storage.ClassOf(err).String(),
				"error", err,
			)
			return
		}
		w.logger.Info("document synced",
			"id", res.ID,
			"updated_at", res.UpdatedAt,
			"created", res.Created,
		)
	case p.Warning != "":
		w.logger.Warn(p.Warning)
	case p.Error != "":
		w.logger.Error(p.Error)
	}
}
