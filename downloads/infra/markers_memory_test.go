package infra

import (
	"context"
	"testing"
	"time"
)

func TestMemoryMarkerStore_SeenAfterMark(t *testing.T) {
	s := NewMemoryMarkerStore()
	ctx := context.Background()

	seen, err := s.Seen(ctx, "mod|1.2.3.4")
	if err != nil || seen {
		t.Fatalf("expected unseen, got seen=%v err=%v", seen, err)
	}

	if err := s.Mark(ctx, "mod|1.2.3.4", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}

	seen, err = s.Seen(ctx, "mod|1.2.3.4")
	if err != nil || !seen {
		t.Fatalf("expected seen, got seen=%v err=%v", seen, err)
	}

	// par diferente não compartilha marcador
	if seen, _ := s.Seen(ctx, "mod|5.6.7.8"); seen {
		t.Fatalf("expected other client to be unseen")
	}
}

func TestMemoryMarkerStore_TTLExpiryReadmits(t *testing.T) {
	s := NewMemoryMarkerStore()
	ctx := context.Background()

	if err := s.Mark(ctx, "k", 20*time.Millisecond); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if seen, _ := s.Seen(ctx, "k"); !seen {
		t.Fatalf("expected seen inside window")
	}

	time.Sleep(40 * time.Millisecond)

	if seen, _ := s.Seen(ctx, "k"); seen {
		t.Fatalf("expected marker to expire")
	}
}

func TestMemoryMarkerStore_CleanupRemovesExpired(t *testing.T) {
	s := NewMemoryMarkerStore()
	ctx := context.Background()

	_ = s.Mark(ctx, "old", -time.Second)
	_ = s.Mark(ctx, "live", time.Minute)

	s.Cleanup()

	s.mu.Lock()
	_, oldThere := s.expiry["old"]
	_, liveThere := s.expiry["live"]
	s.mu.Unlock()

	if oldThere {
		t.Fatalf("expected expired marker to be removed")
	}
	if !liveThere {
		t.Fatalf("expected live marker to survive cleanup")
	}
}
