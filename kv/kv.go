package kv

import (
	"context"
	"fmt"
	"sync"

	"danang-green/config"
	"danang-green/database"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

// Store is the durable key-value collaborator behind the report store and the reward ledger
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Open selects the backend named by cfg.StorageBackend. The returned closer releases its connection.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.StorageBackend {
	case "", "memory":
		log.Info("Using in-memory storage backend")
		return NewMemoryStore(), func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis %s not reachable: %w", cfg.Redis.Addr(), err)
		}
		log.Infof("Using redis storage backend at %s db %d", cfg.Redis.Addr(), cfg.Redis.DB)
		return NewRedisStore(client), client.Close, nil
	case "mysql":
		db, err := database.NewDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.CreateKVTable(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Infof("Using mysql storage backend at %s:%s/%s", cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
		return db, db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// RedisStore keeps values as plain redis strings
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*database.Database)(nil)
)
