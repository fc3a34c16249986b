package infra

import (
	"context"
	"sync"

	"trusted-store/downloads/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu    sync.Mutex
	total map[string]int64
	byMod map[string]map[string]int64
	byKey map[string]map[string]int64

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total: make(map[string]int64),
		byMod: make(map[string]map[string]int64),
		byKey: make(map[string]map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	field := ev.Outcome
	if field == "" {
		if ev.Allowed {
			field = "ok"
		} else {
			field = "denied"
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[field]++

	if ev.Mod != "" {
		m, ok := s.byMod[ev.Mod]
		if !ok {
			m = make(map[string]int64)
			s.byMod[ev.Mod] = m
		}
		m[field]++
	}

	if s.trackKeys && ev.Key != "" {
		k, ok := s.byKey[string(ev.Key)]
		if !ok {
			k = make(map[string]int64)
			s.byKey[string(ev.Key)] = k
		}
		k[field]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByMod(mod string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byMod[mod]))
	for k, v := range s.byMod[mod] {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByKey(key string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.byKey[key]))
	for k, v := range s.byKey[key] {
		out[k] = v
	}
	return out
}
