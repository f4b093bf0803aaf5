package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"PesaVault/internal/core/domain"
	"PesaVault/internal/core/ports"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const sessionTTL = 24 * time.Hour

// SessionStore keeps conversation sessions in Redis so they survive a
// process restart. Each session is one JSON blob with a sliding TTL.
type SessionStore struct {
	client *redis.Client
	log    zerolog.Logger
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(ctx context.Context, addr string, baseLogger *zerolog.Logger) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return &SessionStore{
		client: client,
		log:    baseLogger.With().Str("component", "redis_sessions").Logger(),
	}, nil
}

func key(chatID string) string { return "session:" + chatID }

func (s *SessionStore) Get(ctx context.Context, chatID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, key(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt session restarts the conversation from init.
		s.log.Warn().Err(err).Str("chat_id", chatID).Msg("Dropping undecodable session")
		return nil, nil
	}
	return &sess, nil
}

func (s *SessionStore) Put(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(session.ChatID), raw, sessionTTL).Err()
}

func (s *SessionStore) Delete(ctx context.Context, chatID string) error {
	return s.client.Del(ctx, key(chatID)).Err()
}
