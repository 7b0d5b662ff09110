package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"insight-survey-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[setID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[setID] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// StaticQuestionLoader is a loader backed by an in-memory map. It always
// carries the built-in default sequence.
type StaticQuestionLoader struct {
	sets map[string]domain.QuestionSet
}

func NewStaticQuestionLoader(sets map[string]domain.QuestionSet) *StaticQuestionLoader {
	all := make(map[string]domain.QuestionSet, len(sets)+1)
	defaults := domain.DefaultQuestionSet()
	all[defaults.ID] = defaults
	for id, set := range sets {
		all[id] = set
	}
	return &StaticQuestionLoader{sets: all}
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	if set, ok := l.sets[setID]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

// FallbackLoader tries a primary loader and falls back to a secondary one on
// not-found, so the built-in sequence stays reachable when only custom sets
// live in the database.
type FallbackLoader struct {
	primary  QuestionLoader
	fallback QuestionLoader
}

func NewFallbackLoader(primary, fallback QuestionLoader) *FallbackLoader {
	return &FallbackLoader{primary: primary, fallback: fallback}
}

func (l *FallbackLoader) LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	set, err := l.primary.LoadQuestionSet(ctx, setID)
	if err == nil {
		return set, nil
	}
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		return domain.QuestionSet{}, err
	}
	return l.fallback.LoadQuestionSet(ctx, setID)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
