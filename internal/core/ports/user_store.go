package ports

import (
	"PesaVault/internal/core/domain"
	"context"
)

// UserStore defines the persistence operations for user records.
// Lookups that find nothing return (nil, nil); errors are reserved for
// store failures. Put must be durable before it returns: a failed Put means
// the triggering operation did not commit.
type UserStore interface {
	// Get finds a user by phone number.
	Get(ctx context.Context, phone string) (*domain.User, error)

	// GetByChatID finds the user whose account is currently bound to the
	// given chat identity.
	GetByChatID(ctx context.Context, chatID string) (*domain.User, error)

	// GetByReferralCode finds the user owning the given referral code.
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)

	// Put creates or replaces the whole user record.
	Put(ctx context.Context, user *domain.User) error

	// All returns every user record, ordered by phone.
	All(ctx context.Context) ([]*domain.User, error)
}
