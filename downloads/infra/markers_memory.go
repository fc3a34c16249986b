package infra

import (
	"context"
	"sync"
	"time"

	"trusted-store/downloads/domain"
)

// Compile-time interface check.
var _ domain.MarkerStore = (*MemoryMarkerStore)(nil)

// MemoryMarkerStore é um MarkerStore em memória.
// Útil para testes e desenvolvimento; marcadores somem no restart do
// processo, então em produção de verdade use Redis ou SQLite.
type MemoryMarkerStore struct {
	mu           sync.Mutex
	expiry       map[string]time.Time
	cleanupEvery time.Duration
}

type MemoryMarkerOption func(*MemoryMarkerStore)

func WithMarkerCleanupEvery(d time.Duration) MemoryMarkerOption {
	return func(s *MemoryMarkerStore) { s.cleanupEvery = d }
}

func NewMemoryMarkerStore(opts ...MemoryMarkerOption) *MemoryMarkerStore {
	s := &MemoryMarkerStore{
		expiry:       make(map[string]time.Time),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryMarkerStore) Seen(_ context.Context, key string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiry[key]
	if !ok {
		return false, nil
	}
	if now.After(exp) {
		// expirado: limpa de forma preguiçosa
		delete(s.expiry, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryMarkerStore) Mark(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry[key] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryMarkerStore) Cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, exp := range s.expiry {
		if now.After(exp) {
			delete(s.expiry, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove marcadores expirados
// periodicamente. Pare cancelando o contexto.
func (s *MemoryMarkerStore) StartJanitor(ctx context.Context) {
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

func (s *MemoryMarkerStore) Close() error {
	return nil
}
