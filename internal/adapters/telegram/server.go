package telegram

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"

	"PesaVault/internal/core/ports"
	"PesaVault/internal/engine"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const defaultWorkerCount = 8

// BotServer runs the long-polling update pump. Updates are sharded across
// the worker pool by chat identity, so messages from one chat are always
// handled in arrival order.
type BotServer struct {
	api     *tgbotapi.BotAPI
	engine  *engine.Engine
	workers int
	ready   atomic.Bool
	log     zerolog.Logger
}

// NewBotServer creates a new server instance.
func NewBotServer(api *tgbotapi.BotAPI, eng *engine.Engine, baseLogger *zerolog.Logger) *BotServer {
	return &BotServer{
		api:     api,
		engine:  eng,
		workers: defaultWorkerCount,
		log:     baseLogger.With().Str("component", "bot_server").Logger(),
	}
}

var _ ports.TransportStatus = (*BotServer)(nil)

// Ready reports whether the update pump is connected and consuming.
func (s *BotServer) Ready() bool {
	return s.ready.Load()
}

// PairingArtifact returns the public link users open to start chatting
// with the bot.
func (s *BotServer) PairingArtifact() string {
	return "https://t.me/" + s.api.Self.UserName
}

// Start begins long polling and blocks until the context is cancelled.
func (s *BotServer) Start(ctx context.Context) error {
	s.log.Info().Int("workers", s.workers).Msg("Starting bot in POLLING mode")

	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}
	if _, err := s.api.Request(deleteWebhookConfig); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete webhook (continuing anyway)")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)

	// One job channel per worker; a chat always hashes to the same worker.
	jobs := make([]chan ports.IncomingMessage, s.workers)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		jobs[w] = make(chan ports.IncomingMessage, 32)
		wg.Add(1)
		go func(id int, in <-chan ports.IncomingMessage) {
			defer wg.Done()
			log := s.log.With().Int("worker_id", id).Logger()
			log.Info().Msg("Starting polling worker")
			for msg := range in {
				if err := s.engine.Handle(context.Background(), msg); err != nil {
					log.Error().Err(err).Str("chat_id", msg.ChatID).Msg("Update handling failed")
				}
			}
			log.Info().Msg("Stopping polling worker")
		}(w, jobs[w])
	}

	s.ready.Store(true)
	s.log.Info().Msg("Polling update listener started")

	for {
		select {
		case <-ctx.Done():
			s.ready.Store(false)
			s.api.StopReceivingUpdates()
			for _, ch := range jobs {
				close(ch)
			}
			wg.Wait()
			s.log.Info().Msg("Polling stopped gracefully")
			return nil
		case update := <-updates:
			msg, ok := incoming(&update)
			if !ok {
				continue
			}
			jobs[shard(msg.ChatID, s.workers)] <- msg
		}
	}
}

// incoming extracts the text message from an update, dropping everything
// the engine does not handle (edits, stickers, joins).
func incoming(update *tgbotapi.Update) (ports.IncomingMessage, bool) {
	if update.Message == nil || update.Message.Text == "" {
		return ports.IncomingMessage{}, false
	}
	return ports.IncomingMessage{
		ChatID: strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:   update.Message.Text,
	}, true
}

func shard(chatID string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(chatID))
	return int(h.Sum32() % uint32(n))
}
