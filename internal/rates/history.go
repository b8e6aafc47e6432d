package rates

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryHistoryStore is an in-process HistoryStore, used in tests and in
// deployments without a shared cache.
type MemoryHistoryStore struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewMemoryHistoryStore creates an empty in-memory store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{rates: make(map[string]float64)}
}

// SetRate records the rate in effect for a transaction.
func (s *MemoryHistoryStore) SetRate(transactionID string, rate float64) {
	s.mu.Lock()
	s.rates[transactionID] = rate
	s.mu.Unlock()
}

// HistoricalRate returns the stored rate for a transaction, if any.
func (s *MemoryHistoryStore) HistoricalRate(_ context.Context, transactionID string) (float64, bool, error) {
	s.mu.RLock()
	rate, ok := s.rates[transactionID]
	s.mu.RUnlock()
	return rate, ok, nil
}

// RedisHistoryStore keeps historical rates in Redis so every session sees
// the rate a transaction was recorded at.
type RedisHistoryStore struct {
	client *redis.Client
}

// NewRedisHistoryStore connects to Redis at the given address.
func NewRedisHistoryStore(addr string) *RedisHistoryStore {
	return &RedisHistoryStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func historyKey(transactionID string) string {
	return "rate:historical:" + transactionID
}

// HistoricalRate looks up the stored rate for a transaction. A missing key
// is a confirmed absence, not an error.
func (s *RedisHistoryStore) HistoricalRate(ctx context.Context, transactionID string) (float64, bool, error) {
	value, err := s.client.Get(ctx, historyKey(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("malformed historical rate for %s: %w", transactionID, err)
	}
	return rate, true, nil
}

// SaveRate stores the rate in effect for a transaction.
func (s *RedisHistoryStore) SaveRate(ctx context.Context, transactionID string, rate float64) error {
	return s.client.Set(ctx, historyKey(transactionID), strconv.FormatFloat(rate, 'f', -1, 64), 0).Err()
}
