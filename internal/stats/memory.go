package stats

import (
	"context"
	"sync"
)

// MemoryStore não faz expiração e não é indicada para produção.
type MemoryStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

type MemoryOption func(*MemoryStore)

func WithMemoryTrackKeys(track bool) MemoryOption {
	return func(s *MemoryStore) { s.trackKeys = track }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		total:   make(Counters),
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	if route := routeOf(ev); route != "" {
		bump(s.byRoute, route, ev.Outcome)
	}
	if s.trackKeys && ev.Key != "" {
		bump(s.byKey, ev.Key, ev.Outcome)
	}
	return nil
}

func bump(m map[string]Counters, k string, o Outcome) {
	c := m[k]
	if c == nil {
		c = make(Counters)
		m[k] = c
	}
	c[o]++
}

func (s *MemoryStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total.clone()
}

func (s *MemoryStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.byRoute)
}

func (s *MemoryStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMap(s.byKey)
}

func cloneMap(m map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}
