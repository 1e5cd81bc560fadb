package services

import (
	"sync"
)

// ConversationLocks serializes routing for a single (tenant, sender) pair.
// Two near-simultaneous deliveries for the same sender would otherwise race
// on the conversation state read-modify-write. Entries are reference counted
// so the map does not grow with every sender ever seen.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{locks: map[string]*lockEntry{}}
}

// Lock acquires the lock for key and returns the matching unlock func.
func (cl *ConversationLocks) Lock(key string) func() {
	cl.mu.Lock()
	entry, ok := cl.locks[key]
	if !ok {
		entry = &lockEntry{}
		cl.locks[key] = entry
	}
	entry.refs++
	cl.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		cl.mu.Lock()
		entry.refs--
		if entry.refs <= 0 {
			delete(cl.locks, key)
		}
		cl.mu.Unlock()
	}
}
