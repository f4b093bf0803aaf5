package telegram

import (
	"context"
	"fmt"
	"strconv"

	"PesaVault/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// tgClient implements ports.ChatClient over the Telegram Bot API.
type tgClient struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// NewClient creates a new Telegram client adapter.
func NewClient(api *tgbotapi.BotAPI, baseLogger *zerolog.Logger) ports.ChatClient {
	log := baseLogger.With().Str("component", "tg_client").Logger()
	return &tgClient{api: api, log: log}
}

// SendMessage delivers text to the chat identity. The identity is the
// decimal Telegram chat ID.
func (c *tgClient) SendMessage(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, text)
	if _, err := c.api.Send(msg); err != nil {
		c.log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to send message")
		return err
	}
	return nil
}
