package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

// DedupStore is the idempotency gate for webhook deliveries. MarkSeen must be
// an atomic insert-if-absent so a retried delivery can never pass the gate
// twice, even under concurrent redelivery.
type DedupStore interface {
	// MarkSeen records the provider message id and reports whether this call
	// was the first to see it within the TTL window.
	MarkSeen(ctx context.Context, externalMessageID string, ttl time.Duration) (bool, error)
	Close() error
}

type dedupStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewDedupStore(log *logger.Logger) (DedupStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &dedupStore{
		log:    log.With("client", "RedisDedupStore"),
		rdb:    rdb,
		prefix: "webhook:msg:",
	}, nil
}

func (ds *dedupStore) MarkSeen(ctx context.Context, externalMessageID string, ttl time.Duration) (bool, error) {
	if ds == nil || ds.rdb == nil {
		return false, fmt.Errorf("dedup store not initialized")
	}
	if strings.TrimSpace(externalMessageID) == "" {
		return false, fmt.Errorf("empty external message id")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	first, err := ds.rdb.SetNX(ctx, ds.prefix+externalMessageID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return first, nil
}

func (ds *dedupStore) Close() error {
	if ds == nil || ds.rdb == nil {
		return nil
	}
	return ds.rdb.Close()
}
