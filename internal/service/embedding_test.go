package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/parley/internal/domain"
)

// MockEmbeddingRecordRepository is a mock for EmbeddingRecordRepository
type MockEmbeddingRecordRepository struct {
	mock.Mock
}

func (m *MockEmbeddingRecordRepository) GetByID(ctx context.Context, id string) (*domain.DomainRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DomainRecord), args.Error(1)
}

func (m *MockEmbeddingRecordRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestEmbeddingService_GenerateRecordEmbedding(t *testing.T) {
	record := &domain.DomainRecord{
		ID:        "rec-1",
		Domain:    "support",
		Question:  "what are your store hours",
		Answer:    "9 to 5.",
		CreatedAt: time.Now().UTC(),
	}
	embedding := []float32{0.1, 0.2, 0.3}

	mockRepo := new(MockEmbeddingRecordRepository)
	mockRepo.On("GetByID", mock.Anything, "rec-1").Return(record, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "rec-1", embedding).Return(nil)

	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbedding", mock.Anything, record.Question).Return(embedding, nil)

	svc := NewEmbeddingService(mockClient, mockRepo)
	err := svc.GenerateRecordEmbedding(context.Background(), "rec-1")

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_GenerateRecordEmbedding_AlreadyEmbedded(t *testing.T) {
	record := &domain.DomainRecord{
		ID:        "rec-1",
		Domain:    "support",
		Question:  "q",
		Answer:    "a",
		Embedding: []float32{1, 0},
	}

	mockRepo := new(MockEmbeddingRecordRepository)
	mockRepo.On("GetByID", mock.Anything, "rec-1").Return(record, nil)

	mockClient := new(MockEmbeddingClient)

	svc := NewEmbeddingService(mockClient, mockRepo)
	err := svc.GenerateRecordEmbedding(context.Background(), "rec-1")

	require.NoError(t, err)
	mockClient.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmbeddingService_GenerateRecordEmbedding_ClientError(t *testing.T) {
	record := &domain.DomainRecord{ID: "rec-1", Domain: "support", Question: "q", Answer: "a"}

	mockRepo := new(MockEmbeddingRecordRepository)
	mockRepo.On("GetByID", mock.Anything, "rec-1").Return(record, nil)

	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("rate limited"))

	svc := NewEmbeddingService(mockClient, mockRepo)
	err := svc.GenerateRecordEmbedding(context.Background(), "rec-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embedding")
}

func TestEmbeddingService_GenerateRecordEmbedding_InvalidatesMatcherCache(t *testing.T) {
	record := &domain.DomainRecord{ID: "rec-1", Domain: "support", Question: "q", Answer: "a"}
	embedding := []float32{0.5, 0.5}

	mockRepo := new(MockEmbeddingRecordRepository)
	mockRepo.On("GetByID", mock.Anything, "rec-1").Return(record, nil)
	mockRepo.On("UpdateEmbedding", mock.Anything, "rec-1", embedding).Return(nil)

	mockClient := new(MockEmbeddingClient)
	mockClient.On("GenerateEmbedding", mock.Anything, "q").Return(embedding, nil)

	matcherRepo := new(MockMatcherRecordRepository)
	matcherRepo.On("ListByDomain", mock.Anything, "support").Return([]domain.DomainRecord{}, nil)
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	// Warm the cache, then confirm the backfill drops it.
	_, err := matcher.Match(context.Background(), "support", "warmup", 0)
	require.NoError(t, err)

	svc := NewEmbeddingService(mockClient, mockRepo).WithMatcher(matcher)
	require.NoError(t, svc.GenerateRecordEmbedding(context.Background(), "rec-1"))

	_, err = matcher.Match(context.Background(), "support", "again", 0)
	require.NoError(t, err)
	matcherRepo.AssertNumberOfCalls(t, "ListByDomain", 2)
}
