// Package cache holds the ephemeral quote store. Quotes are never written to
// the database; an unexecuted quote simply ages out.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/ledger-engine/internal/domain"
	"github.com/ayo6706/ledger-engine/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "quote"

// QuoteStore holds quotes until they expire. Get on a missing or aged-out
// quote returns a quote_expired error; the two cases are indistinguishable
// on purpose.
type QuoteStore interface {
	Put(ctx context.Context, quote *models.Quote, ttl time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*models.Quote, error)
}

// RedisQuoteStore keeps quotes in redis with the quote's own TTL, so expiry
// enforcement is shared across instances.
type RedisQuoteStore struct {
	client redis.Cmdable
}

func NewRedisQuoteStore(client redis.Cmdable) *RedisQuoteStore {
	return &RedisQuoteStore{client: client}
}

func (s *RedisQuoteStore) Put(ctx context.Context, quote *models.Quote, ttl time.Duration) error {
	payload, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	if err := s.client.Set(ctx, quoteKey(quote.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache quote: %w", err)
	}
	return nil
}

func (s *RedisQuoteStore) Get(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	val, err := s.client.Get(ctx, quoteKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.E(domain.KindQuoteExpired, "quote %s expired or unknown", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	var quote models.Quote
	if err := json.Unmarshal([]byte(val), &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &quote, nil
}

func quoteKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", quoteKeyPrefix, id)
}

// MemoryQuoteStore backs tests and redis-less local runs.
type MemoryQuoteStore struct {
	mu      sync.Mutex
	quotes  map[uuid.UUID]models.Quote
	expires map[uuid.UUID]time.Time
	now     func() time.Time
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{
		quotes:  make(map[uuid.UUID]models.Quote),
		expires: make(map[uuid.UUID]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock; tests use it to force expiry.
func (s *MemoryQuoteStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryQuoteStore) Put(ctx context.Context, quote *models.Quote, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[quote.ID] = *quote
	s.expires[quote.ID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryQuoteStore) Get(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.quotes[id]
	if !ok || s.now().After(s.expires[id]) {
		delete(s.quotes, id)
		delete(s.expires, id)
		return nil, domain.E(domain.KindQuoteExpired, "quote %s expired or unknown", id)
	}
	return &quote, nil
}
