package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rmi/internal/domain"
)

// UserStateRepository guarda E_user, onboarding y preferencias. Los contadores viven en interaction_events.
type UserStateRepository interface {
	// Get devuelve pgx.ErrNoRows si el usuario no tiene estado.
	Get(ctx context.Context, userID string) (domain.UserState, error)
	Create(ctx context.Context, state domain.UserState) error
	Update(ctx context.Context, state domain.UserState) error
}

type PgUserStateRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserStateRepository(pool *pgxpool.Pool) *PgUserStateRepository {
	return &PgUserStateRepository{pool: pool}
}

func (r *PgUserStateRepository) Get(ctx context.Context, userID string) (domain.UserState, error) {
	const query = `
		SELECT user_id, e_user, onboarding_complete, settings, updated_at
		FROM user_state
		WHERE user_id = $1
	`
	var (
		st       domain.UserState
		settings []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&st.UserID,
		&st.EUser,
		&st.OnboardingComplete,
		&settings,
		&st.UpdatedAt,
	)
	if err != nil {
		return domain.UserState{}, err
	}
	// Las claves ausentes en el JSON conservan su valor por defecto.
	st.Settings = domain.DefaultSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &st.Settings); err != nil {
			return domain.UserState{}, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return st, nil
}

func (r *PgUserStateRepository) Create(ctx context.Context, st domain.UserState) error {
	const query = `
		INSERT INTO user_state (user_id, e_user, onboarding_complete, settings, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`
	settings, err := json.Marshal(st.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.pool.Exec(ctx, query, st.UserID, st.EUser, st.OnboardingComplete, settings, st.UpdatedAt)
	return err
}

// Update escribe la fila completa, creándola si no existe.
func (r *PgUserStateRepository) Update(ctx context.Context, st domain.UserState) error {
	const query = `
		INSERT INTO user_state (user_id, e_user, onboarding_complete, settings, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET e_user = EXCLUDED.e_user,
		    onboarding_complete = EXCLUDED.onboarding_complete,
		    settings = EXCLUDED.settings,
		    updated_at = EXCLUDED.updated_at
	`
	settings, err := json.Marshal(st.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = r.pool.Exec(ctx, query, st.UserID, st.EUser, st.OnboardingComplete, settings, st.UpdatedAt)
	return err
}
