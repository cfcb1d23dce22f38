package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"diagnostic-quiz-service/internal/catalog"
	"diagnostic-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ReferenceLoader fetches questions and categories from a backing store.
type ReferenceLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	LoadCategories(ctx context.Context) ([]domain.Category, error)
}

// ReferenceCache keeps reference data in process memory. Concurrent misses
// share one load. A zero ttl never expires.
type ReferenceCache struct {
	loader ReferenceLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu         sync.RWMutex
	questions  *cachedEntry[[]domain.Question]
	categories *cachedEntry[[]domain.Category]
}

type cachedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cachedEntry[T]) fresh(now time.Time) bool {
	return e != nil && (e.expiresAt.IsZero() || e.expiresAt.After(now))
}

func NewReferenceCache(loader ReferenceLoader, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Questions returns the full question list, loading it on first use.
func (r *ReferenceCache) Questions(ctx context.Context) ([]domain.Question, error) {
	r.mu.RLock()
	if r.questions.fresh(r.clock()) {
		qs := r.questions.value
		r.mu.RUnlock()
		return qs, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("questions", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.questions.fresh(now) {
			qs := r.questions.value
			r.mu.RUnlock()
			return qs, nil
		}
		r.mu.RUnlock()

		qs, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load questions: %v", domain.ErrDataUnavailable, err)
		}

		expiresAt := r.expiry(now)
		r.mu.Lock()
		r.questions = &cachedEntry[[]domain.Question]{value: qs, expiresAt: expiresAt}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Categories returns the full category list, loading it on first use.
func (r *ReferenceCache) Categories(ctx context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	if r.categories.fresh(r.clock()) {
		cs := r.categories.value
		r.mu.RUnlock()
		return cs, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("categories", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.categories.fresh(now) {
			cs := r.categories.value
			r.mu.RUnlock()
			return cs, nil
		}
		r.mu.RUnlock()

		cs, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load categories: %v", domain.ErrDataUnavailable, err)
		}

		expiresAt := r.expiry(now)
		r.mu.Lock()
		r.categories = &cachedEntry[[]domain.Category]{value: cs, expiresAt: expiresAt}
		r.mu.Unlock()
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (r *ReferenceCache) expiry(now time.Time) time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(r.ttlWithJitter())
}

// StaticReferenceLoader serves the bundled question set (useful for tests/demos).
type StaticReferenceLoader struct {
	questions  []domain.Question
	categories []domain.Category
}

func NewStaticReferenceLoader(questions []domain.Question, categories []domain.Category) *StaticReferenceLoader {
	return &StaticReferenceLoader{questions: questions, categories: categories}
}

// NewBundledReferenceLoader serves catalog.FallbackQuestions.
func NewBundledReferenceLoader() *StaticReferenceLoader {
	return NewStaticReferenceLoader(catalog.FallbackQuestions(), catalog.FallbackCategories())
}

func (l *StaticReferenceLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

func (l *StaticReferenceLoader) LoadCategories(_ context.Context) ([]domain.Category, error) {
	return l.categories, nil
}

func (r *ReferenceCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
