package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ReferenceLoader fetches reference data from a backing store (e.g., Postgres).
type ReferenceLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	LoadCategories(ctx context.Context) ([]domain.Category, error)
}

// ReferenceCache caches reference data in Redis (hash per collection) and
// falls back to a loader on cache miss.
// Questions are stored as:  HSET quiz:ref:questions  {questionID} {json}
// Categories are stored as: HSET quiz:ref:categories {categoryID} {json}
// It implements ReferenceLoader itself so it can sit under the in-process cache.
type ReferenceCache struct {
	client *redis.Client
	loader ReferenceLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

const (
	questionsKey  = "quiz:ref:questions"
	categoriesKey = "quiz:ref:categories"
)

func NewReferenceCache(client *redis.Client, loader ReferenceLoader, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ReferenceCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if cached, ok := r.cachedQuestions(ctx); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := r.cachedQuestions(ctx); ok {
			return cached, nil
		}
		questions, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]interface{}, len(questions))
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("encode question %s: %w", q.ID, err)
			}
			fields[q.ID] = data
		}
		r.store(ctx, questionsKey, fields)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *ReferenceCache) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	if cached, ok := r.cachedCategories(ctx); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		if cached, ok := r.cachedCategories(ctx); ok {
			return cached, nil
		}
		categories, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]interface{}, len(categories))
		for _, c := range categories {
			data, err := json.Marshal(c)
			if err != nil {
				return nil, fmt.Errorf("encode category %s: %w", c.ID, err)
			}
			fields[c.ID] = data
		}
		r.store(ctx, categoriesKey, fields)
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

// Invalidate drops both cached collections.
func (r *ReferenceCache) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, questionsKey, categoriesKey).Err()
}

func (r *ReferenceCache) cachedQuestions(ctx context.Context) ([]domain.Question, bool) {
	raw, err := r.client.HGetAll(ctx, questionsKey).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	questions := make([]domain.Question, 0, len(raw))
	for _, v := range raw {
		var q domain.Question
		if err := json.Unmarshal([]byte(v), &q); err != nil {
			return nil, false
		}
		questions = append(questions, q)
	}
	// hash order is random; restore (section, order, id)
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return questions, true
}

func (r *ReferenceCache) cachedCategories(ctx context.Context) ([]domain.Category, bool) {
	raw, err := r.client.HGetAll(ctx, categoriesKey).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	categories := make([]domain.Category, 0, len(raw))
	for _, v := range raw {
		var c domain.Category
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return nil, false
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Order != categories[j].Order {
			return categories[i].Order < categories[j].Order
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, true
}

func (r *ReferenceCache) store(ctx context.Context, key string, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	ttl := r.ttlWithJitter()
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func (r *ReferenceCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
