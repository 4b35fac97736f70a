package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kalambet/askbot/internal/convo"
)

var _ Store = (*Memory)(nil)

// Memory keeps sessions in process memory. A session expires ttl after its
// last write.
type Memory struct {
	c  *cache.Cache
	mu sync.Mutex
}

type memValues struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an in-memory store. ttl <= 0 keeps sessions forever.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		return &Memory{c: cache.New(cache.NoExpiration, 0)}
	}
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Memory{c: cache.New(ttl, cleanup)}
}

func (m *Memory) Session(id string) convo.Session {
	return &memSession{store: m, id: id}
}

func (m *Memory) Reset(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

func (m *Memory) values(id string, create bool) *memValues {
	if v, ok := m.c.Get(id); ok {
		return v.(*memValues)
	}
	if !create {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.c.Get(id); ok {
		return v.(*memValues)
	}
	v := &memValues{values: make(map[string][]byte)}
	m.c.SetDefault(id, v)
	return v
}

type memSession struct {
	store *Memory
	id    string
}

func (s *memSession) Get(_ context.Context, key string) ([]byte, bool, error) {
	v := s.store.values(s.id, false)
	if v == nil {
		return nil, false, nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *memSession) Set(_ context.Context, key string, value []byte) error {
	v := s.store.values(s.id, true)
	v.mu.Lock()
	v.values[key] = append([]byte(nil), value...)
	v.mu.Unlock()
	// Refresh the expiry on write.
	s.store.c.SetDefault(s.id, v)
	return nil
}
