package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/parley/internal/domain"
)

type TurnRepository struct {
	db dbtx
}

func NewTurnRepository(pool *pgxpool.Pool) *TurnRepository {
	return &TurnRepository{db: pool}
}

func (r *TurnRepository) Insert(ctx context.Context, t *domain.Turn) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO turns (id, conversation_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.ConversationID, string(t.Role), t.Content, t.Timestamp,
	)
	return err
}

// ListRecent returns up to limit turns of a conversation, newest first.
// The seq column preserves append order even when clamped timestamps
// collide.
func (r *TurnRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM turns
		 WHERE conversation_id = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var role string
		if err := rows.Scan(&t.ID, &t.ConversationID, &role, &t.Content, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Role = domain.TurnRole(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
