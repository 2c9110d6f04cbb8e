package sku

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a run-scoped byte store. Entries are append-only: nothing is ever
// invalidated, so a value created by the current run after the first lookup is
// not observed until the next run.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, val []byte) error {
	s.mu.Lock()
	s.data[key] = val
	s.mu.Unlock()
	return nil
}

// RedisStore namespaces keys by run ID so a second run never reads the first run's entries.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, runID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: fmt.Sprintf("catalog-gate:%s:", runID),
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Memo memoizes loader results of type T in a Store under a fixed key prefix.
type Memo[T any] struct {
	store  Store
	prefix string
}

func NewMemo[T any](store Store, prefix string) *Memo[T] {
	return &Memo[T]{store: store, prefix: prefix}
}

func (m *Memo[T]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	raw, ok, err := m.store.Get(ctx, m.prefix+key)
	if err != nil {
		return zero, err
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, fmt.Errorf("decode cached %s%s: %w", m.prefix, key, err)
		}
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return zero, err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode %s%s: %w", m.prefix, key, err)
	}
	if err := m.store.Set(ctx, m.prefix+key, raw); err != nil {
		return zero, err
	}
	return v, nil
}
