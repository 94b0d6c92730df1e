package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/parley/internal/domain"
)

// MatchLogRepository stores lookup outcomes for threshold tuning.
type MatchLogRepository struct {
	db dbtx
}

func NewMatchLogRepository(pool *pgxpool.Pool) *MatchLogRepository {
	return &MatchLogRepository{db: pool}
}

func (r *MatchLogRepository) Insert(ctx context.Context, entry *domain.MatchLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO match_logs (id, domain, query, matched, score, record_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.Domain, entry.Query, entry.Matched, entry.Score, nullableString(entry.RecordID), entry.CreatedAt,
	)
	return err
}
