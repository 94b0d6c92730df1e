package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/parley/internal/domain"
)

type RecordRepository struct {
	db dbtx
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: pool}
}

func (r *RecordRepository) Insert(ctx context.Context, rec *domain.DomainRecord) error {
	var embedding *pgvector.Vector
	if rec.HasEmbedding() {
		v := pgvector.NewVector(rec.Embedding)
		embedding = &v
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO domain_records (id, domain, question, answer, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Domain, rec.Question, rec.Answer, embedding, rec.CreatedAt,
	)
	return err
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.DomainRecord, error) {
	var rec domain.DomainRecord
	var embedding *pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT id, domain, question, answer, embedding, created_at
		 FROM domain_records WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Domain, &rec.Question, &rec.Answer, &embedding, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDomainRecordNotFound
		}
		return nil, err
	}
	if embedding != nil {
		rec.Embedding = embedding.Slice()
	}
	return &rec, nil
}

// ListByDomain returns a domain's records in insertion order, which is the
// enumeration order the matcher relies on for tie-breaking.
func (r *RecordRepository) ListByDomain(ctx context.Context, domainName string) ([]domain.DomainRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, domain, question, answer, embedding, created_at
		 FROM domain_records
		 WHERE domain = $1
		 ORDER BY seq ASC`,
		domainName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DomainRecord
	for rows.Next() {
		var rec domain.DomainRecord
		var embedding *pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.Domain, &rec.Question, &rec.Answer, &embedding, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			rec.Embedding = embedding.Slice()
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RecordRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE domain_records SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDomainRecordNotFound
	}
	return nil
}

// ListMissingEmbeddings returns IDs of records awaiting an embedding
// backfill, oldest first.
func (r *RecordRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM domain_records
		 WHERE embedding IS NULL
		 ORDER BY seq ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
