package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"insight-survey-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "survey:session:"

// SessionStore persists survey sessions as JSON values in Redis with a native
// TTL, so sessions survive process restarts and expire without a janitor.
// Every Save refreshes the TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, session domain.SurveySession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.SurveySession, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return domain.SurveySession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SurveySession{}, fmt.Errorf("get session: %w", err)
	}
	var session domain.SurveySession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.SurveySession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

// Count scans the session key space. SCAN keeps Redis responsive under load,
// unlike KEYS.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
