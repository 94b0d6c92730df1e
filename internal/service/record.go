package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/parley/internal/domain"
)

// RecordRepository defines the repository interface for domain records
type RecordRepository interface {
	Insert(ctx context.Context, record *domain.DomainRecord) error
	ListByDomain(ctx context.Context, domainName string) ([]domain.DomainRecord, error)
}

// RecordService manages the per-domain Q&A knowledge base.
type RecordService struct {
	repo     RecordRepository
	embedder EmbeddingClient // nil when no embedding provider is configured
	matcher  *MatcherService // nil when cache invalidation is not needed
}

// NewRecordService creates a new RecordService instance
func NewRecordService(repo RecordRepository, embedder EmbeddingClient, matcher *MatcherService) *RecordService {
	return &RecordService{
		repo:     repo,
		embedder: embedder,
		matcher:  matcher,
	}
}

// AddRecord stores a question/answer pair in a domain. When embed is set
// and a provider is configured the question is embedded synchronously; an
// embedding failure downgrades the record to the lexical path instead of
// rejecting it, and the backfill worker picks it up later.
func (s *RecordService) AddRecord(ctx context.Context, domainName, question, answer string, embed bool) (*domain.DomainRecord, error) {
	record := domain.NewDomainRecord(uuid.New().String(), domainName, question, answer, nil, time.Now().UTC())
	if err := domain.ValidateDomainRecord(record); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid domain record", err)
	}

	if embed && s.embedder != nil {
		embedding, err := s.embedder.GenerateEmbedding(ctx, question)
		if err != nil {
			log.Printf("record: failed to embed question, storing without embedding: %v", err)
		} else {
			record.Embedding = embedding
		}
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to store domain record", err)
	}

	if s.matcher != nil {
		s.matcher.Invalidate(domainName)
	}

	return record, nil
}

// ListByDomain returns all records of a domain. A domain with no records
// yields an empty slice.
func (s *RecordService) ListByDomain(ctx context.Context, domainName string) ([]domain.DomainRecord, error) {
	if domainName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "domain name is required")
	}

	records, err := s.repo.ListByDomain(ctx, domainName)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to list domain records", err)
	}

	return records, nil
}
