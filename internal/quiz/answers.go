package quiz

import "diagnostic-quiz-service/internal/domain"

// AnswerStore maps question IDs to answers; it is the single source of truth
// for progress. It is not safe for concurrent use; the Controller owns it.
type AnswerStore struct {
	values map[string]domain.AnswerValue
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{values: make(map[string]domain.AnswerValue)}
}

// Set overwrites any prior answer for questionID.
func (s *AnswerStore) Set(questionID string, v domain.AnswerValue) {
	s.values[questionID] = v
}

func (s *AnswerStore) Get(questionID string) (domain.AnswerValue, bool) {
	v, ok := s.values[questionID]
	return v, ok
}

func (s *AnswerStore) Has(questionID string) bool {
	_, ok := s.values[questionID]
	return ok
}

func (s *AnswerStore) Len() int { return len(s.values) }

func (s *AnswerStore) Clear() {
	s.values = make(map[string]domain.AnswerValue)
}

// Replace swaps the contents for a copy of values.
func (s *AnswerStore) Replace(values map[string]domain.AnswerValue) {
	s.values = make(map[string]domain.AnswerValue, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}

// Snapshot returns a copy of the answers.
func (s *AnswerStore) Snapshot() map[string]domain.AnswerValue {
	out := make(map[string]domain.AnswerValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
