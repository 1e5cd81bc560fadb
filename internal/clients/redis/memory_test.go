package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

func TestMemoryDedup_FirstSeenThenDuplicate(t *testing.T) {
	store := NewMemoryDedupStore(logger.NewNop())

	first, err := store.MarkSeen(context.Background(), "wamid.1", time.Minute)
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if !first {
		t.Fatal("first delivery should pass")
	}

	again, err := store.MarkSeen(context.Background(), "wamid.1", time.Minute)
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if again {
		t.Fatal("duplicate delivery should be blocked")
	}
}

func TestMemoryDedup_ExpiredKeyPassesAgain(t *testing.T) {
	store := NewMemoryDedupStore(logger.NewNop())

	if first, _ := store.MarkSeen(context.Background(), "wamid.2", time.Millisecond); !first {
		t.Fatal("first delivery should pass")
	}
	time.Sleep(5 * time.Millisecond)
	if first, _ := store.MarkSeen(context.Background(), "wamid.2", time.Minute); !first {
		t.Fatal("delivery after expiry should pass again")
	}
}

func TestMemoryDedup_ConcurrentDeliveriesAdmitOne(t *testing.T) {
	store := NewMemoryDedupStore(logger.NewNop())
	const workers = 32

	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := store.MarkSeen(context.Background(), "wamid.race", time.Minute)
			if err != nil {
				t.Errorf("mark seen: %v", err)
				return
			}
			if first {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 admitted delivery got %d", count)
	}
}
