package session

import (
	"context"
	"sync"
	"time"

	"github.com/pharmachat/pharmachat/engine/core"
)

type memEntry struct {
	log       Log
	expiresAt time.Time
}

// MemStore is an in-process session store with an explicit expiry timestamp
// checked on read. Behavior matches the Redis backend: expired sessions load
// as fresh, TTL is refreshed on every save.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemStore(ttl time.Duration) *MemStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used in expiry tests.
func (s *MemStore) WithClock(now func() time.Time) *MemStore {
	s.now = now
	return s
}

func (s *MemStore) Load(_ context.Context, tenantID core.ID, sessionID string) (Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(tenantID, sessionID)
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	return append(Log(nil), entry.log...), nil
}

func (s *MemStore) Save(_ context.Context, tenantID core.ID, sessionID string, log Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionKey(tenantID, sessionID)] = memEntry{
		log:       log.Trim(),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemStore) Close(context.Context) error {
	return nil
}
