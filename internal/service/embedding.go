package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/parley/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingRecordRepository defines the repository interface for embedding operations
type EmbeddingRecordRepository interface {
	GetByID(ctx context.Context, id string) (*domain.DomainRecord, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService computes and stores embeddings for domain records that
// were imported without one. It is driven by the backfill worker.
type EmbeddingService struct {
	client  EmbeddingClient
	repo    EmbeddingRecordRepository
	matcher *MatcherService // nil when cache invalidation is not needed
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingRecordRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		repo:   repo,
	}
}

// WithMatcher wires cache invalidation so freshly embedded records become
// visible to the vector path.
func (s *EmbeddingService) WithMatcher(matcher *MatcherService) *EmbeddingService {
	s.matcher = matcher
	return s
}

// GenerateRecordEmbedding embeds the record's question text and stores the
// vector. Called by the background worker.
func (s *EmbeddingService) GenerateRecordEmbedding(ctx context.Context, recordID string) error {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}

	if record.HasEmbedding() {
		return nil
	}

	embedding, err := s.client.GenerateEmbedding(ctx, record.Question)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, recordID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	if s.matcher != nil {
		s.matcher.Invalidate(record.Domain)
	}

	return nil
}
