package notify

import (
	"context"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"

	"github.com/rs/zerolog"
)

// Notifier delivers out-of-band messages to users and admins. Admin phones
// are resolved to chat identities through their own user records; a send
// failure to one admin never stops the rest.
type Notifier struct {
	store  ports.UserStore
	client ports.ChatClient
	cfg    *domain.SystemConfig
	log    zerolog.Logger
}

// New creates a Notifier.
func New(store ports.UserStore, client ports.ChatClient, cfg *domain.SystemConfig, baseLogger *zerolog.Logger) *Notifier {
	return &Notifier{
		store:  store,
		client: client,
		cfg:    cfg,
		log:    baseLogger.With().Str("component", "notifier").Logger(),
	}
}

// User sends text to the chat identity currently bound to the user.
func (n *Notifier) User(ctx context.Context, user *domain.User, text string) {
	if user == nil || user.ChatID == "" {
		return
	}
	if err := n.client.SendMessage(ctx, user.ChatID, text); err != nil {
		n.log.Error().Err(err).Str("phone", user.Phone).Msg("Failed to notify user")
	}
}

// Chat sends text to a raw chat identity (used for previous-device alerts).
func (n *Notifier) Chat(ctx context.Context, chatID, text string) {
	if chatID == "" {
		return
	}
	if err := n.client.SendMessage(ctx, chatID, text); err != nil {
		n.log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to notify chat")
	}
}

// Admins sends text to every admin that has a reachable chat identity.
func (n *Notifier) Admins(ctx context.Context, text string) {
	st := n.cfg.Get()
	for _, phone := range st.Admins {
		admin, err := n.store.Get(ctx, phone)
		if err != nil {
			n.log.Error().Err(err).Str("phone", phone).Msg("Failed to load admin for notification")
			continue
		}
		if admin == nil || admin.ChatID == "" {
			n.log.Warn().Str("phone", phone).Msg("Admin has no bound chat identity; skipping notification")
			continue
		}
		if err := n.client.SendMessage(ctx, admin.ChatID, text); err != nil {
			n.log.Error().Err(err).Str("phone", phone).Msg("Failed to notify admin")
		}
	}
}
