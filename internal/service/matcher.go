package service

import (
	"context"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/telemetry"
)

// HeuristicScore is the fixed confidence reported when a record is matched
// by the lexical fallback rather than by vector similarity.
const HeuristicScore = 0.6

// MatcherRecordRepository defines the repository interface for match candidates
type MatcherRecordRepository interface {
	ListByDomain(ctx context.Context, domainName string) ([]domain.DomainRecord, error)
}

// MatchLogRepository defines the repository interface for match outcome logs
type MatchLogRepository interface {
	Insert(ctx context.Context, entry *domain.MatchLog) error
}

// MatcherService answers queries against a per-domain knowledge base of
// question/answer records. Lookups are read-only; candidate lists are cached
// per domain and invalidated on write.
type MatcherService struct {
	repo      MatcherRecordRepository
	embedder  EmbeddingClient // nil when no embedding provider is configured
	logRepo   MatchLogRepository
	threshold float64

	mu    sync.RWMutex
	cache map[string][]domain.DomainRecord
}

// NewMatcherService creates a new MatcherService instance.
// threshold is the default minimum cosine similarity for a vector match.
func NewMatcherService(repo MatcherRecordRepository, embedder EmbeddingClient, threshold float64) *MatcherService {
	return &MatcherService{
		repo:      repo,
		embedder:  embedder,
		threshold: threshold,
		cache:     make(map[string][]domain.DomainRecord),
	}
}

// WithMatchLog enables best-effort logging of lookup outcomes.
func (s *MatcherService) WithMatchLog(logRepo MatchLogRepository) *MatcherService {
	s.logRepo = logRepo
	return s
}

// Match finds the best answer for query within the named domain.
//
// When any candidate carries an embedding and an embedding provider is
// configured, the lookup runs on cosine similarity over the embedded
// candidates; records without embeddings are excluded from that pass.
// Otherwise a lexical fallback scans the candidates in order and returns the
// first hit with a fixed score.
//
// minConfidence overrides the configured threshold when greater than zero.
// A result with Matched=false and a nil error means no candidate qualified.
func (s *MatcherService) Match(ctx context.Context, domainName, query string, minConfidence float64) (*domain.MatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if domainName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "domain name is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "matcher.match", telemetry.SpanAttributes{
		Domain:    domainName,
		Operation: "match",
	})
	defer span.End()

	threshold := s.threshold
	if minConfidence > 0 {
		threshold = minConfidence
	}

	candidates, err := s.candidates(ctx, domainName)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to load domain records", err)
	}
	if len(candidates) == 0 {
		result := domain.NoMatch()
		s.recordOutcome(ctx, domainName, query, result)
		return result, nil
	}

	var result *domain.MatchResult
	if s.embedder != nil && anyEmbedded(candidates) {
		result, err = s.matchSemantic(ctx, candidates, query, threshold)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	} else {
		result = matchHeuristic(candidates, query)
	}

	s.recordOutcome(ctx, domainName, query, result)
	return result, nil
}

// Invalidate drops the cached candidate list for a domain. Call after any
// write to the domain's records.
func (s *MatcherService) Invalidate(domainName string) {
	s.mu.Lock()
	delete(s.cache, domainName)
	s.mu.Unlock()
}

func (s *MatcherService) candidates(ctx context.Context, domainName string) ([]domain.DomainRecord, error) {
	s.mu.RLock()
	cached, ok := s.cache[domainName]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	records, err := s.repo.ListByDomain(ctx, domainName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[domainName] = records
	s.mu.Unlock()

	return records, nil
}

func (s *MatcherService) matchSemantic(ctx context.Context, candidates []domain.DomainRecord, query string, threshold float64) (*domain.MatchResult, error) {
	queryEmbedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to embed query", err)
	}

	queryVec, ok := normalize(queryEmbedding)
	if !ok {
		return domain.NoMatch(), nil
	}

	best := domain.NoMatch()
	for i := range candidates {
		candidate := &candidates[i]
		if !candidate.HasEmbedding() {
			continue
		}

		candidateVec, ok := normalize(candidate.Embedding)
		if !ok {
			continue
		}

		// Strict comparison keeps the first candidate on ties.
		score := dot(queryVec, candidateVec)
		if score >= threshold && (!best.Matched || score > best.Score) {
			best = &domain.MatchResult{Record: candidate, Score: score, Matched: true}
		}
	}

	return best, nil
}

// matchHeuristic scans in order and returns the first lexical hit. A record
// hits when the lowercased query is a substring of the lowercased question,
// or when any query token appears in the question.
func matchHeuristic(candidates []domain.DomainRecord, query string) *domain.MatchResult {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryTokens := strings.Fields(queryLower)

	for i := range candidates {
		candidate := &candidates[i]
		questionLower := strings.ToLower(candidate.Question)

		if strings.Contains(questionLower, queryLower) || containsAnyToken(questionLower, queryTokens) {
			return &domain.MatchResult{Record: candidate, Score: HeuristicScore, Matched: true}
		}
	}

	return domain.NoMatch()
}

func containsAnyToken(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// normalize returns the L2-normalized copy of v as float64. The second
// return is false for zero-norm vectors, which cannot be compared.
func normalize(v []float32) ([]float64, bool) {
	var norm float64
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, false
	}

	for i := range out {
		out[i] /= norm
	}
	return out, true
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func anyEmbedded(candidates []domain.DomainRecord) bool {
	for i := range candidates {
		if candidates[i].HasEmbedding() {
			return true
		}
	}
	return false
}

func (s *MatcherService) recordOutcome(ctx context.Context, domainName, query string, result *domain.MatchResult) {
	if s.logRepo == nil {
		return
	}

	entry := &domain.MatchLog{
		ID:        uuid.New().String(),
		Domain:    domainName,
		Query:     query,
		Matched:   result.Matched,
		Score:     result.Score,
		CreatedAt: time.Now().UTC(),
	}
	if result.Record != nil {
		entry.RecordID = result.Record.ID
	}

	if err := s.logRepo.Insert(ctx, entry); err != nil {
		log.Printf("matcher: failed to record match log: %v", err)
	}
}
