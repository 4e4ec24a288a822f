package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rmi/internal/domain"
)

// InteractionEventRepository es el log append-only de sesiones de IA y eventos reales.
type InteractionEventRepository interface {
	Append(ctx context.Context, event domain.InteractionEvent) error
	// Totals cuenta los eventos posteriores al último reset.
	Totals(ctx context.Context, userID string) (domain.InteractionTotals, error)
}

type PgInteractionEventRepository struct {
	pool *pgxpool.Pool
}

func NewPgInteractionEventRepository(pool *pgxpool.Pool) *PgInteractionEventRepository {
	return &PgInteractionEventRepository{pool: pool}
}

func (r *PgInteractionEventRepository) Append(ctx context.Context, e domain.InteractionEvent) error {
	const query = `
		INSERT INTO interaction_events (user_id, kind, source, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, e.UserID, e.Kind, e.Source, e.CreatedAt)
	return err
}

func (r *PgInteractionEventRepository) Totals(ctx context.Context, userID string) (domain.InteractionTotals, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'ai_session'),
			COUNT(*) FILTER (WHERE kind = 'real_event')
		FROM interaction_events
		WHERE user_id = $1
		  AND id > COALESCE((
			SELECT MAX(id) FROM interaction_events WHERE user_id = $1 AND kind = 'reset'
		  ), 0)
	`
	var t domain.InteractionTotals
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&t.AISessions, &t.RealEvents); err != nil {
		return domain.InteractionTotals{}, err
	}
	return t, nil
}
