package redis

import (
	"context"
	"sync"
	"time"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

// memoryDedupStore is the single-process fallback used when REDIS_ADDR is not
// configured (local development, tests). It honors the same atomic
// insert-if-absent contract as the redis store but does not survive restarts
// or span processes.
type memoryDedupStore struct {
	log *logger.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDedupStore(log *logger.Logger) DedupStore {
	return &memoryDedupStore{
		log:  log.With("client", "MemoryDedupStore"),
		seen: map[string]time.Time{},
	}
}

func (ms *memoryDedupStore) MarkSeen(ctx context.Context, externalMessageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if expires, ok := ms.seen[externalMessageID]; ok && now.Before(expires) {
		return false, nil
	}
	ms.seen[externalMessageID] = now.Add(ttl)

	// Drop expired keys opportunistically so the map stays bounded.
	for key, expires := range ms.seen {
		if now.After(expires) {
			delete(ms.seen, key)
		}
	}
	return true, nil
}

func (ms *memoryDedupStore) Close() error { return nil }
