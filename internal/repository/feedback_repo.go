package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rmi/internal/domain"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback domain.Feedback) error
}

type PgFeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewPgFeedbackRepository(pool *pgxpool.Pool) *PgFeedbackRepository {
	return &PgFeedbackRepository{pool: pool}
}

func (r *PgFeedbackRepository) Create(ctx context.Context, f domain.Feedback) error {
	const query = `
		INSERT INTO feedback (id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, f.ID, f.UserID, f.Text, f.CreatedAt)
	return err
}
