package flash

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "flash_session"
	keyPrefix         = "flash:"
)

// RedisStore keeps messages in a Redis list per browser session. Only an
// opaque session id travels in the cookie.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
	secure bool
}

func NewRedisStore(client *redis.Client, ttl time.Duration, secure bool) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{Client: client, TTL: ttl, secure: secure}
}

func (s *RedisStore) Add(w http.ResponseWriter, r *http.Request, message string) error {
	sessionID := s.sessionID(r)
	if sessionID == "" {
		sessionID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctx := r.Context()
	key := keyPrefix + sessionID
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, message)
		pipe.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store flash message: %w", err)
	}
	return nil
}

func (s *RedisStore) Pop(w http.ResponseWriter, r *http.Request) ([]string, error) {
	sessionID := s.sessionID(r)
	if sessionID == "" {
		return nil, nil
	}

	ctx := r.Context()
	key := keyPrefix + sessionID
	var messages *redis.StringSliceCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		messages = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read flash messages: %w", err)
	}
	return messages.Val(), nil
}

func (s *RedisStore) sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// Ping checks the connection, used at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}
