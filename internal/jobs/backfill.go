package jobs

import (
	"context"
	"fmt"
	"log"
)

const (
	// MaxRetries is how many times a record is attempted before it is
	// given up on until restart.
	MaxRetries = 3

	// DefaultBatchSize bounds how many records one poll cycle embeds.
	DefaultBatchSize = 50
)

// BackfillRecordRepository lists domain records still missing embeddings.
type BackfillRecordRepository interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]string, error)
}

// RecordEmbedder computes and stores a single record's embedding.
type RecordEmbedder interface {
	GenerateRecordEmbedding(ctx context.Context, recordID string) error
}

// BackfillWorker embeds records that were imported without an embedding,
// typically because the provider was down or unconfigured at import time.
// Failures are retried a bounded number of times per process lifetime.
type BackfillWorker struct {
	repo      BackfillRecordRepository
	embedder  RecordEmbedder
	batchSize int
	failures  map[string]int
}

// NewBackfillWorker creates a new BackfillWorker instance
func NewBackfillWorker(repo BackfillRecordRepository, embedder RecordEmbedder) *BackfillWorker {
	return &BackfillWorker{
		repo:      repo,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		failures:  make(map[string]int),
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *BackfillWorker) ProcessJobs(ctx context.Context) error {
	ids, err := w.repo.ListMissingEmbeddings(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list records missing embeddings: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	log.Printf("backfill: embedding %d records", len(ids))

	for _, id := range ids {
		if w.failures[id] >= MaxRetries {
			continue
		}

		if err := w.embedder.GenerateRecordEmbedding(ctx, id); err != nil {
			w.failures[id]++
			if w.failures[id] >= MaxRetries {
				log.Printf("backfill: record %s exceeded max retries (%d), giving up: %v", id, MaxRetries, err)
			} else {
				log.Printf("backfill: record %s failed (attempt %d/%d): %v", id, w.failures[id], MaxRetries, err)
			}
			continue
		}

		delete(w.failures, id)
	}

	return nil
}
