package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/parley/internal/domain"
)

// TurnRepository defines the repository interface for conversation turns
type TurnRepository interface {
	Insert(ctx context.Context, turn *domain.Turn) error
	ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
}

// MemoryStore is the conversation memory. It assigns turn timestamps itself
// so that append order and timestamp order never disagree, even when the
// wall clock steps backwards. Appends to the same conversation are
// serialized; different conversations do not block each other.
type MemoryStore struct {
	repo TurnRepository

	clockMu sync.Mutex
	last    time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore creates a new MemoryStore instance
func NewMemoryStore(repo TurnRepository) *MemoryStore {
	return &MemoryStore{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// Append records a turn at the end of a conversation and returns it with
// its assigned ID and timestamp.
func (s *MemoryStore) Append(ctx context.Context, conversationID string, role domain.TurnRole, content string) (*domain.Turn, error) {
	turn := domain.NewTurn(uuid.New().String(), conversationID, role, content, time.Time{})
	if err := domain.ValidateTurn(turn); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid turn", err)
	}

	lock := s.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	turn.Timestamp = s.nextTimestamp()

	if err := s.repo.Insert(ctx, turn); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to record conversation turn", err)
	}

	return turn, nil
}

// Recent returns up to limit most recent turns of a conversation in
// chronological order. An unknown conversation yields an empty slice.
func (s *MemoryStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidHistoryLimit
	}

	turns, err := s.repo.ListRecent(ctx, conversationID, limit)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to load conversation turns", err)
	}

	// Repository returns newest first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// nextTimestamp returns the current time clamped to never run backwards
// within this store instance.
func (s *MemoryStore) nextTimestamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	now := time.Now().UTC()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	return now
}

// Locks live for the process lifetime; the map grows with the number of
// distinct conversations this instance has appended to.
func (s *MemoryStore) conversationLock(conversationID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	return lock
}
