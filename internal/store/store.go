// Package store keeps text snapshots of form sessions so a session can be
// restored after a restart or on another node.
package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/config"
	"github.com/mcncl/jsonform/internal/errors"
)

// Store persists the serialized document of each session, keyed by session id.
// Load reports errors.ErrSessionNotFound for unknown ids; Delete is idempotent.
type Store interface {
	Save(ctx context.Context, id, text string) error
	Load(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open picks the backend described by cfg: Redis when an address is set,
// memory otherwise.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(), nil
	}

	rdb := NewRedisClient(cfg)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.NewStoreError(fmt.Sprintf("failed to reach redis at %s", cfg.RedisAddr), err)
	}
	return NewRedis(log, rdb, cfg.Prefix, cfg.TTL)
}

// Memory is a process-local Store.
type Memory struct {
	mu    sync.RWMutex
	texts map[string]string
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{texts: make(map[string]string)}
}

func (m *Memory) Save(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[id] = text
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.texts[id]
	if !ok {
		return "", errors.ErrSessionNotFound
	}
	return text, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.texts, id)
	return nil
}

func (m *Memory) Close() error { return nil }

// Redis stores snapshots as plain strings under <prefix><id>, each with a TTL
// that is refreshed on every save.
type Redis struct {
	log       *zap.Logger
	rdb       *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient builds a client with the pool and timeout settings used
// throughout jsonform.
func NewRedisClient(cfg config.StoreConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           cfg.RedisDB,
		Password:     cfg.Password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
}

// NewRedis wraps rdb. A zero ttl keeps snapshots forever.
func NewRedis(log *zap.Logger, rdb *redis.Client, keyPrefix string, ttl time.Duration) (*Redis, error) {
	if rdb == nil {
		return nil, stderrors.New("nil redis client")
	}
	if keyPrefix == "" {
		return nil, fmt.Errorf("invalid keyPrefix: must be non-empty")
	}
	if !strings.HasSuffix(keyPrefix, ":") {
		keyPrefix = keyPrefix + ":"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{log: log.Named("store"), rdb: rdb, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (s *Redis) key(id string) string { return s.keyPrefix + "form:" + id }

func (s *Redis) Save(ctx context.Context, id, text string) error {
	if err := s.rdb.Set(ctx, s.key(id), text, s.ttl).Err(); err != nil {
		return errors.NewStoreError(fmt.Sprintf("set (key=%s)", s.key(id)), err)
	}
	return nil
}

func (s *Redis) Load(ctx context.Context, id string) (string, error) {
	text, err := s.rdb.Get(ctx, s.key(id)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", errors.ErrSessionNotFound
	}
	if err != nil {
		return "", errors.NewStoreError(fmt.Sprintf("get (key=%s)", s.key(id)), err)
	}
	return text, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, s.key(id)).Result()
	if err != nil {
		return errors.NewStoreError(fmt.Sprintf("del (key=%s)", s.key(id)), err)
	}
	if n == 0 {
		s.log.Debug("delete: snapshot already absent", zap.String("id", id))
	}
	return nil
}

func (s *Redis) Close() error { return s.rdb.Close() }
