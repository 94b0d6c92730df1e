package domain

import "time"

// MatchLog records the outcome of a single domain lookup for offline
// threshold tuning. Logging is best effort and never blocks a lookup.
type MatchLog struct {
	ID        string
	Domain    string
	Query     string
	Matched   bool
	Score     float64
	RecordID  string // empty when no record matched
	CreatedAt time.Time
}
