package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// userStore persists each user as one JSONB document keyed by phone.
// The whole record is read and replaced on every mutation, which matches
// the ledger's single read-modify-write transaction shape.
type userStore struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.UserStore = (*userStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		phone      TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS users_chat_id_idx
		ON users ((doc->>'chat_id'));
	CREATE INDEX IF NOT EXISTS users_referral_code_idx
		ON users ((doc->>'referral_code'));
`

// NewUserStore creates the store and ensures the schema exists.
func NewUserStore(ctx context.Context, db *DB, baseLogger *zerolog.Logger) (ports.UserStore, error) {
	log := baseLogger.With().Str("component", "user_store").Logger()
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		log.Error().Err(err).Msg("Failed to ensure users schema")
		return nil, err
	}
	return &userStore{db: db, log: log}, nil
}

func (r *userStore) scanUser(row pgx.Row) (*domain.User, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Msg("Failed to scan user row")
		return nil, err
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		r.log.Error().Err(err).Msg("Failed to decode user document")
		return nil, err
	}
	return &user, nil
}

func (r *userStore) Get(ctx context.Context, phone string) (*domain.User, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT doc FROM users WHERE phone = $1`, phone)
	return r.scanUser(row)
}

func (r *userStore) GetByChatID(ctx context.Context, chatID string) (*domain.User, error) {
	if chatID == "" {
		return nil, nil
	}
	row := r.db.pool.QueryRow(ctx, `SELECT doc FROM users WHERE doc->>'chat_id' = $1`, chatID)
	return r.scanUser(row)
}

func (r *userStore) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	if code == "" {
		return nil, nil
	}
	row := r.db.pool.QueryRow(ctx, `SELECT doc FROM users WHERE doc->>'referral_code' = $1`, code)
	return r.scanUser(row)
}

func (r *userStore) Put(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}
	query := `
		INSERT INTO users (phone, doc, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (phone) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
	`
	if _, err := r.db.pool.Exec(ctx, query, user.Phone, raw); err != nil {
		r.log.Error().Err(err).Str("phone", user.Phone).Msg("Failed to upsert user")
		return err
	}
	return nil
}

func (r *userStore) All(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT doc FROM users ORDER BY phone`)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query users")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("decode user document: %w", err)
		}
		out = append(out, &user)
	}
	return out, rows.Err()
}
