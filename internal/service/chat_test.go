package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/llm"
)

// MockChatConversationRepository is a mock for ChatConversationRepository
type MockChatConversationRepository struct {
	mock.Mock
}

func (m *MockChatConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

// MockGenerator is a mock for llm.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

// slowGenerator blocks until the context expires.
type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// fakeTurnRepo is an in-memory TurnRepository for exercising the full
// store-then-prompt flow.
type fakeTurnRepo struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func (f *fakeTurnRepo) Insert(ctx context.Context, turn *domain.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, *turn)
	return nil
}

func (f *fakeTurnRepo) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.Turn
	for i := len(f.turns) - 1; i >= 0 && len(matched) < limit; i-- {
		if f.turns[i].ConversationID == conversationID {
			matched = append(matched, f.turns[i])
		}
	}
	return matched, nil
}

func existingConversation(id string) *domain.Conversation {
	return &domain.Conversation{ID: id, Title: "Conversation", CreatedAt: time.Now().UTC()}
}

func TestChatService_Chat_EmptyMessage(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	svc := NewChatService(mockConvs, NewMemoryStore(new(MockTurnRepository)), nil, nil, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "  "})

	assert.Nil(t, out)
	assert.Equal(t, domain.ErrEmptyMessage, err)
	mockConvs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestChatService_Chat_UnknownConversation(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrConversationNotFound)

	mockTurns := new(MockTurnRepository)
	svc := NewChatService(mockConvs, NewMemoryStore(mockTurns), nil, nil, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "missing", Message: "hello"})

	assert.Nil(t, out)
	assert.Equal(t, domain.ErrConversationNotFound, err)
	mockTurns.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestChatService_Chat_DomainHit(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcherRepo.On("ListByDomain", mock.Anything, "support").Return([]domain.DomainRecord{
		{ID: "r1", Domain: "support", Question: "what are your store hours", Answer: "9 to 5."},
	}, nil)
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, new(MockGenerator), ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "store hours",
		Domain:         "support",
		UseDomain:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, "9 to 5.", out.Response)
	assert.Equal(t, SourceDomain, out.Source)
	assert.Equal(t, HeuristicScore, out.Score)

	// Both turns persisted, user first.
	require.Len(t, turnRepo.turns, 2)
	assert.Equal(t, domain.TurnRoleUser, turnRepo.turns[0].Role)
	assert.Equal(t, "store hours", turnRepo.turns[0].Content)
	assert.Equal(t, domain.TurnRoleBot, turnRepo.turns[1].Role)
	assert.Equal(t, "9 to 5.", turnRepo.turns[1].Content)
}

func TestChatService_Chat_DomainMiss_FallsBackToGeneration(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcherRepo.On("ListByDomain", mock.Anything, "support").Return([]domain.DomainRecord{}, nil)
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, "user: tell me a joke\nbot:", mock.Anything).
		Return("Why did the gopher cross the road?", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "tell me a joke",
		Domain:         "support",
		UseDomain:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, SourceLLM, out.Source)
	assert.Equal(t, "Why did the gopher cross the road?", out.Response)
	mockGen.AssertExpectations(t)
}

func TestChatService_Chat_PromptIncludesRecentHistory(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}
	now := time.Now().UTC()
	turnRepo.turns = []domain.Turn{
		{ID: "t1", ConversationID: "conv-1", Role: domain.TurnRoleUser, Content: "hi", Timestamp: now.Add(-2 * time.Second)},
		{ID: "t2", ConversationID: "conv-1", Role: domain.TurnRoleBot, Content: "hello there", Timestamp: now.Add(-time.Second)},
	}

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, "user: hi\nbot: hello there\nuser: how are you\nbot:", mock.Anything).
		Return("doing fine", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), nil, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "how are you"})

	require.NoError(t, err)
	assert.Equal(t, "doing fine", out.Response)
	mockGen.AssertExpectations(t)
}

func TestChatService_Chat_PromptWindowTrimsToTwentyTurns(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}
	now := time.Now().UTC()
	for i := 1; i <= 25; i++ {
		role := domain.TurnRoleUser
		if i%2 == 0 {
			role = domain.TurnRoleBot
		}
		turnRepo.turns = append(turnRepo.turns, domain.Turn{
			ID:             fmt.Sprintf("t%d", i),
			ConversationID: "conv-1",
			Role:           role,
			Content:        fmt.Sprintf("msg %d", i),
			Timestamp:      now.Add(time.Duration(i-25) * time.Second),
		})
	}

	// Exactly the 20 most recent prior turns make the prompt; msg 1-5 fall off.
	var want strings.Builder
	for i := 6; i <= 25; i++ {
		role := "user"
		if i%2 == 0 {
			role = "bot"
		}
		fmt.Fprintf(&want, "%s: msg %d\n", role, i)
	}
	want.WriteString("user: current question\nbot:")

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, want.String(), mock.Anything).Return("answer", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), nil, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "current question"})

	require.NoError(t, err)
	assert.Equal(t, "answer", out.Response)
	mockGen.AssertExpectations(t)
}

func TestChatService_Chat_MatcherStorageError_FailsCall(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcherRepo.On("ListByDomain", mock.Anything, "support").Return(nil, errors.New("db down"))
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	mockGen := new(MockGenerator)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "anything",
		Domain:         "support",
		UseDomain:      true,
	})

	assert.Nil(t, out)
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeStorage, domainErr.Code)

	// The stored input survives, but no answer is fabricated.
	mockGen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, turnRepo.turns, 1)
	assert.Equal(t, domain.TurnRoleUser, turnRepo.turns[0].Role)
}

func TestChatService_Chat_EmbeddingFailure_DegradedGeneration(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcherRepo.On("ListByDomain", mock.Anything, "support").Return([]domain.DomainRecord{
		{ID: "r1", Domain: "support", Question: "q", Answer: "a", Embedding: []float32{1, 0}},
	}, nil)

	mockEmbedder := new(MockEmbeddingClient)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	matcher := NewMatcherService(matcherRepo, mockEmbedder, 0.65)

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("generated", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "anything",
		Domain:         "support",
		UseDomain:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, SourceLLMDegraded, out.Source)
	assert.Equal(t, "generated", out.Response)
	mockGen.AssertExpectations(t)
}

func TestChatService_Chat_GenerationTimeout(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), nil, slowGenerator{}, ChatConfig{
		GenerationTimeout: 10 * time.Millisecond,
	})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "hello"})

	assert.Nil(t, out)
	assert.Equal(t, domain.ErrGenerationTimeout, err)

	// The user turn survives; no partial bot turn is written.
	require.Len(t, turnRepo.turns, 1)
	assert.Equal(t, domain.TurnRoleUser, turnRepo.turns[0].Role)
}

func TestChatService_Chat_GenerationFailure(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("model not loaded"))

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), nil, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "hello"})

	assert.Nil(t, out)
	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
	require.Len(t, turnRepo.turns, 1)
}

func TestChatService_Chat_NoGenerator(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}
	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), nil, nil, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{ConversationID: "conv-1", Message: "hello"})

	assert.Nil(t, out)
	assert.Equal(t, domain.ErrGenerationUnavailable, err)
}

func TestChatService_Chat_DomainFlagWithoutDomainName(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("generated", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "hello",
		UseDomain:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, SourceLLM, out.Source)
	matcherRepo.AssertNotCalled(t, "ListByDomain", mock.Anything, mock.Anything)
}

func TestChatService_Chat_DomainNameWithoutFlag(t *testing.T) {
	mockConvs := new(MockChatConversationRepository)
	mockConvs.On("GetByID", mock.Anything, "conv-1").Return(existingConversation("conv-1"), nil)

	turnRepo := &fakeTurnRepo{}

	matcherRepo := new(MockMatcherRecordRepository)
	matcher := NewMatcherService(matcherRepo, nil, 0.65)

	mockGen := new(MockGenerator)
	mockGen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("generated", nil)

	svc := NewChatService(mockConvs, NewMemoryStore(turnRepo), matcher, mockGen, ChatConfig{})

	out, err := svc.Chat(context.Background(), ChatInput{
		ConversationID: "conv-1",
		Message:        "hello",
		Domain:         "support",
		UseDomain:      false,
	})

	require.NoError(t, err)
	assert.Equal(t, SourceLLM, out.Source)
	matcherRepo.AssertNotCalled(t, "ListByDomain", mock.Anything, mock.Anything)
}
