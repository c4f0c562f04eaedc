package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store guarda um token bucket (x/time/rate) por cliente do /solve e esquece
// clientes inativos há mais de idleTTL.
type Store struct {
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

func NewStore(rps float64, burst int, opts ...StoreOption) *Store {
	s := &Store{
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		buckets:      make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RPS() float64 { return float64(s.rps) }
func (s *Store) Burst() int   { return s.burst }

// Allow consome um token do cliente key.
func (s *Store) Allow(key string) bool {
	return s.bucketFor(key).Allow()
}

func (s *Store) bucketFor(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.rps, s.burst)}
		s.buckets[key] = b
	}
	b.seen = now
	return b.lim
}

// Cleanup descarta buckets sem uso desde idleTTL.
func (s *Store) Cleanup() {
	limit := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if b.seen.Before(limit) {
			delete(s.buckets, key)
		}
	}
}

// StartJanitor roda Cleanup a cada cleanupEvery até o ctx encerrar.
func (s *Store) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// Decision é o veredito para uma requisição. RetryAfter só vale quando negada.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Decide aplica o bucket do cliente. Store nil libera tudo.
func (s *Store) Decide(key string, retryAfter time.Duration) Decision {
	if s == nil || s.Allow(key) {
		return Decision{Allowed: true}
	}
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return Decision{RetryAfter: retryAfter}
}
