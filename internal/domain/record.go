package domain

import (
	"fmt"
	"time"
)

// DomainRecord is a curated question/answer pair belonging to a named
// knowledge domain. The embedding is optional: records imported without a
// configured embedding provider carry a nil vector and are matched
// heuristically until a backfill embeds them. Records are immutable once
// created.
type DomainRecord struct {
	ID        string
	Domain    string
	Question  string
	Answer    string
	Embedding []float32 // nil when no embedding has been computed
	CreatedAt time.Time
}

// MatchResult is the outcome of a single domain lookup. It is computed per
// query and never persisted.
type MatchResult struct {
	Record  *DomainRecord // nil when Matched is false
	Score   float64
	Matched bool
}

// NewDomainRecord creates a new DomainRecord instance
func NewDomainRecord(id, domainName, question, answer string, embedding []float32, createdAt time.Time) *DomainRecord {
	return &DomainRecord{
		ID:        id,
		Domain:    domainName,
		Question:  question,
		Answer:    answer,
		Embedding: embedding,
		CreatedAt: createdAt,
	}
}

// HasEmbedding reports whether the record carries a precomputed vector.
func (r *DomainRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// NoMatch returns a MatchResult signalling that no candidate cleared the
// confidence threshold.
func NoMatch() *MatchResult {
	return &MatchResult{Matched: false}
}

// ValidateDomainRecord validates a DomainRecord instance
func ValidateDomainRecord(r *DomainRecord) error {
	if r == nil {
		return fmt.Errorf("domain record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("domain record ID is required")
	}

	if r.Domain == "" {
		return fmt.Errorf("domain record Domain is required")
	}

	if r.Question == "" {
		return fmt.Errorf("domain record Question is required")
	}

	if r.Answer == "" {
		return fmt.Errorf("domain record Answer is required")
	}

	return nil
}
