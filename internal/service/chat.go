package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/llm"
	"github.com/cloo-solutions/parley/internal/telemetry"
)

// Response sources reported to callers. SourceLLMDegraded marks answers
// generated because the domain lookup capability failed, so callers can
// tell a degraded answer from a genuine knowledge base miss.
const (
	SourceDomain      = "domain"
	SourceLLM         = "llm"
	SourceLLMDegraded = "llm_degraded"
)

// DefaultMemoryWindow is the number of prior turns included in the
// generation prompt.
const DefaultMemoryWindow = 20

// ChatConversationRepository defines the repository interface for conversation lookups
type ChatConversationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
}

// ChatInput is a single user message addressed to a conversation.
type ChatInput struct {
	ConversationID string
	Message        string
	Domain         string
	UseDomain      bool
	MinConfidence  float64
}

// ChatOutput is the bot's reply. Score is meaningful only when Source is
// SourceDomain.
type ChatOutput struct {
	Response string
	Source   string
	Score    float64
}

// ChatConfig tunes the orchestrator. Zero values fall back to defaults.
type ChatConfig struct {
	MemoryWindow      int
	GenerationTimeout time.Duration
	MaxTokens         int
}

// ChatService orchestrates a chat exchange: it persists the user turn,
// consults the domain matcher when asked, and otherwise generates a reply
// from recent conversation memory.
type ChatService struct {
	conversations ChatConversationRepository
	memory        *MemoryStore
	matcher       *MatcherService // nil when no knowledge base is wired
	generator     llm.Generator   // nil when no generation backend is configured

	memoryWindow int
	genTimeout   time.Duration
	maxTokens    int
}

// NewChatService creates a new ChatService instance
func NewChatService(conversations ChatConversationRepository, memory *MemoryStore, matcher *MatcherService, generator llm.Generator, cfg ChatConfig) *ChatService {
	if cfg.MemoryWindow <= 0 {
		cfg.MemoryWindow = DefaultMemoryWindow
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	return &ChatService{
		conversations: conversations,
		memory:        memory,
		matcher:       matcher,
		generator:     generator,
		memoryWindow:  cfg.MemoryWindow,
		genTimeout:    cfg.GenerationTimeout,
		maxTokens:     cfg.MaxTokens,
	}
}

// Chat handles one user message. The user turn is persisted before any
// lookup or generation, so a failed reply never loses the input. The bot
// turn is persisted only when a reply was actually produced.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if input.ConversationID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "conversation ID is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.respond", telemetry.SpanAttributes{
		ConversationID: input.ConversationID,
		Domain:         input.Domain,
		Operation:      "chat",
	})
	defer span.End()

	if _, err := s.conversations.GetByID(ctx, input.ConversationID); err != nil {
		span.SetError(err)
		return nil, err
	}

	userTurn, err := s.memory.Append(ctx, input.ConversationID, domain.TurnRoleUser, input.Message)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	source := SourceLLM
	if input.UseDomain && input.Domain != "" && s.matcher != nil {
		result, matchErr := s.matcher.Match(ctx, input.Domain, input.Message, input.MinConfidence)
		switch {
		case matchErr != nil:
			var domainErr *domain.DomainError
			if !errors.As(matchErr, &domainErr) || domainErr.Code != domain.ErrCodeUnavailable {
				// Storage and validation failures are fatal to the call;
				// they must never be dressed up as a generated answer.
				span.SetError(matchErr)
				return nil, matchErr
			}
			// Embedding provider failure: answer from generation, labeled
			// degraded so it cannot pass for a genuine knowledge base miss.
			log.Printf("chat: domain lookup capability failed, degrading to generation: %v", matchErr)
			telemetry.CaptureError(ctx, matchErr)
			source = SourceLLMDegraded
		case result.Matched:
			if _, err := s.memory.Append(ctx, input.ConversationID, domain.TurnRoleBot, result.Record.Answer); err != nil {
				span.SetError(err)
				return nil, err
			}
			return &ChatOutput{
				Response: result.Record.Answer,
				Source:   SourceDomain,
				Score:    result.Score,
			}, nil
		}
	}

	response, err := s.generate(ctx, input, userTurn)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if _, err := s.memory.Append(ctx, input.ConversationID, domain.TurnRoleBot, response); err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ChatOutput{Response: response, Source: source}, nil
}

func (s *ChatService) generate(ctx context.Context, input ChatInput, userTurn *domain.Turn) (string, error) {
	if s.generator == nil {
		return "", domain.ErrGenerationUnavailable
	}

	// Fetch one extra turn so the window stays full after the just-stored
	// user turn is removed from the history portion of the prompt.
	recent, err := s.memory.Recent(ctx, input.ConversationID, s.memoryWindow+1)
	if err != nil {
		return "", err
	}

	history := recent[:0:0]
	for _, turn := range recent {
		if turn.ID == userTurn.ID {
			continue
		}
		history = append(history, turn)
	}
	if len(history) > s.memoryWindow {
		history = history[len(history)-s.memoryWindow:]
	}

	prompt := buildPrompt(history, input.Message)

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	response, err := s.generator.Generate(genCtx, prompt, llm.Options{MaxTokens: s.maxTokens})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || genCtx.Err() == context.DeadlineExceeded {
			return "", domain.ErrGenerationTimeout
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "generation failed", err)
	}

	return response, nil
}

// buildPrompt renders recent turns as "<role>: <content>" lines, then the
// current message followed by a bare "bot:" cue for the model to complete.
func buildPrompt(history []domain.Turn, message string) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(message)
	b.WriteString("\nbot:")
	return b.String()
}
