// File: services/negotiation/store.go
package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"meetsync/models"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "negotiation:sess:"
	activeIndexKey   = "negotiation:active"
)

// ErrSessionNotFound is returned for unknown or already-expired sessions.
var ErrSessionNotFound = errors.New("negotiation session not found")

// SessionStore persists negotiation sessions between turns.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.NegotiationSession, error)
	Save(ctx context.Context, sess *models.NegotiationSession) error
	Delete(ctx context.Context, sessionID string) error
	// ActiveIDs lists sessions that have not yet expired, pruning the index
	// of ids whose payload TTL already fired.
	ActiveIDs(ctx context.Context) ([]string, error)
}

// RedisSessionStore implements SessionStore on Redis with a TTL per session.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.NegotiationSession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess models.NegotiationSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *models.NegotiationSession) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, b, s.ttl).Err(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, activeIndexKey, sess.ID).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return err
	}
	return s.client.SRem(ctx, activeIndexKey, sessionID).Err()
}

func (s *RedisSessionStore) ActiveIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var active []string
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, sessionKeyPrefix+id).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			s.client.SRem(ctx, activeIndexKey, id)
			continue
		}
		active = append(active, id)
	}
	return active, nil
}
