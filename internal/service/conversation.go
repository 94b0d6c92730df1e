package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/pagination"
)

// Listing limits.
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultHistoryLimit = 100
)

// ConversationRepository defines the repository interface for conversations
type ConversationRepository interface {
	Insert(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]domain.Conversation, error)
}

// ConversationService manages conversation lifecycles and history reads.
type ConversationService struct {
	repo   ConversationRepository
	memory *MemoryStore
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(repo ConversationRepository, memory *MemoryStore) *ConversationService {
	return &ConversationService{
		repo:   repo,
		memory: memory,
	}
}

// Start creates a new conversation. An empty title gets a default.
func (s *ConversationService) Start(ctx context.Context, title string) (*domain.Conversation, error) {
	conversation := domain.NewConversation(uuid.New().String(), title, time.Now().UTC())

	if err := s.repo.Insert(ctx, conversation); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to create conversation", err)
	}

	return conversation, nil
}

// History returns a conversation's turns in chronological order. Unknown
// conversations are an error here, unlike MemoryStore.Recent, because the
// caller asked for that specific conversation.
func (s *ConversationService) History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if conversationID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "conversation ID is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if _, err := s.repo.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}

	return s.memory.Recent(ctx, conversationID, limit)
}

// List returns a page of conversations, newest first.
func (s *ConversationService) List(ctx context.Context, cursorStr string, limit int) (*pagination.PageResult[domain.Conversation], error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	cursor, err := pagination.DecodeCursor(cursorStr)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	// Fetch one extra row to detect whether another page exists.
	conversations, err := s.repo.List(ctx, cursor, limit+1)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to list conversations", err)
	}

	hasMore := len(conversations) > limit
	if hasMore {
		conversations = conversations[:limit]
	}

	result := &pagination.PageResult[domain.Conversation]{
		Items:   conversations,
		HasMore: hasMore,
	}
	if hasMore {
		last := conversations[len(conversations)-1]
		result.Cursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return result, nil
}
