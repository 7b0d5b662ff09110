package memory

import (
	"context"
	"sync"
	"time"

	"insight-survey-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository with
// explicit expiry, so abandoned sessions do not accumulate for the process
// lifetime. Every Save refreshes the TTL.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]storedSession

	stop     chan struct{}
	stopOnce sync.Once
}

type storedSession struct {
	session   domain.SurveySession
	expiresAt time.Time
}

// NewSessionStore builds a store whose entries expire ttl after their last
// write. A ttl of zero disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(ttl / 2)
	}
	return s
}

func (s *SessionStore) Save(_ context.Context, session domain.SurveySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := storedSession{session: session}
	if s.ttl > 0 {
		entry.expiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.SurveySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok || s.expired(entry) {
		return domain.SurveySession{}, domain.ErrSessionNotFound
	}
	return entry.session, nil
}

func (s *SessionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, entry := range s.sessions {
		if !s.expired(entry) {
			count++
		}
	}
	return count, nil
}

// Close stops the background janitor.
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SessionStore) expired(entry storedSession) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock())
}

func (s *SessionStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *SessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
		}
	}
}
