package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncoming_TextMessage(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: "00",
			Chat: &tgbotapi.Chat{ID: 123456789},
		},
	}

	msg, ok := incoming(&update)
	require.True(t, ok)
	assert.Equal(t, "123456789", msg.ChatID)
	assert.Equal(t, "00", msg.Text)
}

func TestIncoming_DropsNonText(t *testing.T) {
	// Callback queries, edits and media have no Message.Text.
	_, ok := incoming(&tgbotapi.Update{})
	assert.False(t, ok)

	_, ok = incoming(&tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
	})
	assert.False(t, ok)
}

func TestShard_StableAndInRange(t *testing.T) {
	const workers = 8
	for _, chatID := range []string{"1", "123456789", "-1001234567890"} {
		first := shard(chatID, workers)
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, workers)
		// Same chat always lands on the same worker.
		assert.Equal(t, first, shard(chatID, workers))
	}
}
