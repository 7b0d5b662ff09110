package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"insight-survey-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	defer store.Close()

	session := domain.SurveySession{ID: "survey-1", UserID: "u1", Responses: map[int]string{}}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "survey-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("expected stored session, got %+v", got)
	}

	if _, err := store.Get(ctx, "survey-2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 session, got %d", count)
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	defer store.Close()

	now := time.Now()
	store.clock = func() time.Time { return now }

	if err := store.Save(ctx, domain.SurveySession{ID: "survey-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := store.Get(ctx, "survey-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Fatalf("expected expired session excluded from count, got %d", count)
	}

	store.sweep()
	store.mu.RLock()
	remaining := len(store.sessions)
	store.mu.RUnlock()
	if remaining != 0 {
		t.Fatalf("expected sweep to remove expired entries, %d left", remaining)
	}
}

func TestSessionStoreSaveRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	defer store.Close()

	now := time.Now()
	store.clock = func() time.Time { return now }

	_ = store.Save(ctx, domain.SurveySession{ID: "survey-1"})
	now = now.Add(45 * time.Second)
	_ = store.Save(ctx, domain.SurveySession{ID: "survey-1", CurrentQuestion: 1})
	now = now.Add(45 * time.Second)

	got, err := store.Get(ctx, "survey-1")
	if err != nil {
		t.Fatalf("expected refreshed session alive, got %v", err)
	}
	if got.CurrentQuestion != 1 {
		t.Fatalf("expected updated session, got %+v", got)
	}
}
