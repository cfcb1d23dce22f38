package quiz

import (
	"context"
	"sync"

	"diagnostic-quiz-service/internal/domain"
)

// Storage is a durable key/value area private to one client.
type Storage interface {
	// Probe reports whether the storage can currently be used.
	Probe(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStorage keeps values in process memory. Disabled mimics an
// environment where durable storage is switched off.
type MemoryStorage struct {
	mu       sync.RWMutex
	values   map[string][]byte
	disabled bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// SetDisabled toggles availability.
func (s *MemoryStorage) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

func (s *MemoryStorage) Probe(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return domain.ErrPersistenceUnavailable
	}
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disabled {
		return nil, false, domain.ErrPersistenceUnavailable
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return domain.ErrPersistenceUnavailable
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return domain.ErrPersistenceUnavailable
	}
	delete(s.values, key)
	return nil
}
