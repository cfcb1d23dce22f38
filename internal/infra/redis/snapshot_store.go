package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"diagnostic-quiz-service/internal/quiz"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore gives each websocket client its own durable key space in
// Redis, so a reconnecting client can resume its quiz.
// Keys are stored as: SET quiz:client:{clientID}:{key} {value} [EX ttl]
// Only the answers snapshot expires; the submitted flag and session id
// live until they are deleted.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

// ForClient returns the storage area for one client. It implements quiz.Storage.
func (s *SnapshotStore) ForClient(clientID string) *ClientStorage {
	return &ClientStorage{store: s, prefix: "quiz:client:" + clientID + ":"}
}

type ClientStorage struct {
	store  *SnapshotStore
	prefix string
}

func (c *ClientStorage) Probe(ctx context.Context) error {
	if err := c.store.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (c *ClientStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.store.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set refreshes the snapshot TTL on every write.
func (c *ClientStorage) Set(ctx context.Context, key string, value []byte) error {
	var ttl time.Duration
	if key == quiz.SnapshotKey {
		ttl = c.store.ttl
	}
	return c.store.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *ClientStorage) Delete(ctx context.Context, key string) error {
	return c.store.client.Del(ctx, c.prefix+key).Err()
}
