package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rmi/internal/domain"
)

// ContactRepository persiste la red de personas de cada usuario (tabla people).
type ContactRepository interface {
	Create(ctx context.Context, contact domain.Contact) error
	Update(ctx context.Context, contact domain.Contact) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]domain.Contact, error)
}

type PgContactRepository struct {
	pool *pgxpool.Pool
}

func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

func (r *PgContactRepository) Create(ctx context.Context, c domain.Contact) error {
	const query = `
		INSERT INTO people (id, user_id, name, ring, group_name, support_types, last_interaction, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		string(c.Ring),
		string(c.Group),
		supportStrings(c.SupportTypes),
		c.LastInteraction,
		c.Notes,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

// Update devuelve pgx.ErrNoRows si el contacto no existe para ese usuario.
func (r *PgContactRepository) Update(ctx context.Context, c domain.Contact) error {
	const query = `
		UPDATE people
		SET name = $1, ring = $2, group_name = $3, support_types = $4, last_interaction = $5, notes = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9
	`
	tag, err := r.pool.Exec(ctx, query,
		c.Name,
		string(c.Ring),
		string(c.Group),
		supportStrings(c.SupportTypes),
		c.LastInteraction,
		c.Notes,
		c.UpdatedAt,
		c.ID,
		c.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgContactRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM people WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgContactRepository) DeleteAll(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM people WHERE user_id = $1`, userID)
	return err
}

func (r *PgContactRepository) ListByUser(ctx context.Context, userID string) ([]domain.Contact, error) {
	const query = `
		SELECT id, user_id, name, ring, group_name, support_types, last_interaction, notes, created_at, updated_at
		FROM people
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		var (
			c       domain.Contact
			ring    string
			group   string
			support []string
		)
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Name,
			&ring,
			&group,
			&support,
			&c.LastInteraction,
			&c.Notes,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.Ring = domain.Ring(ring)
		c.Group = domain.Group(group)
		c.SupportTypes = make([]domain.SupportType, 0, len(support))
		for _, s := range support {
			c.SupportTypes = append(c.SupportTypes, domain.SupportType(s))
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func supportStrings(in []domain.SupportType) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
