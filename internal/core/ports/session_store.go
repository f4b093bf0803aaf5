package ports

import (
	"PesaVault/internal/core/domain"
	"context"
)

// SessionStore holds the transient per-conversation state, keyed by chat
// identity. Get returns (nil, nil) for an unknown identity. Sessions are
// disposable: losing them only forces re-login and re-navigation.
type SessionStore interface {
	Get(ctx context.Context, chatID string) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, chatID string) error
}
