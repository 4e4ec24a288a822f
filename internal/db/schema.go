package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements se aplican en orden; todas son idempotentes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS people (
		id               UUID PRIMARY KEY,
		user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name             TEXT NOT NULL,
		ring             TEXT NOT NULL,
		group_name       TEXT NOT NULL,
		support_types    TEXT[] NOT NULL DEFAULT '{}',
		last_interaction TEXT NOT NULL DEFAULT 'Unknown',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS people_user_idx ON people (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id                  UUID PRIMARY KEY,
		user_id             UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		sender              TEXT NOT NULL,
		text                TEXT NOT NULL,
		ts                  BIGINT NOT NULL,
		structured_response JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_user_ts_idx ON chat_messages (user_id, ts)`,
	`CREATE TABLE IF NOT EXISTS user_state (
		user_id             UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		e_user              INT NOT NULL DEFAULT 65,
		onboarding_complete BOOLEAN NOT NULL DEFAULT false,
		settings            JSONB NOT NULL DEFAULT '{}',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS interaction_events (
		id         BIGSERIAL PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS interaction_events_user_idx ON interaction_events (user_id, id)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema crea las tablas que falten.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
