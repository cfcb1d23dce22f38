package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// UserRepository is an in-memory implementation of app.UserRepository.
type UserRepository struct {
	now func() time.Time

	mu      sync.RWMutex
	users   map[string]*domain.User
	byPhone map[string]string
	// userID -> questionID -> record
	answers map[string]map[string]*domain.AnswerRecord
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		now:     time.Now,
		users:   make(map[string]*domain.User),
		byPhone: make(map[string]string),
		answers: make(map[string]map[string]*domain.AnswerRecord),
	}
}

// UpsertUser creates the user for phone or updates the non-empty fields given.
func (r *UserRepository) UpsertUser(_ context.Context, phone, name, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byPhone[phone]; ok {
		user := r.users[id]
		if name != "" {
			user.Name = name
		}
		if email != "" {
			user.Email = email
		}
		user.UpdatedAt = now
		return *user, nil
	}

	user := &domain.User{
		ID:        uuid.NewString(),
		Phone:     phone,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[user.ID] = user
	r.byPhone[phone] = user.ID
	return *user, nil
}

func (r *UserRepository) FindUserByPhone(_ context.Context, phone string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *r.users[id], nil
}

func (r *UserRepository) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if email != "" && user.Email == email {
			return *user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *UserRepository) FindUserByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *user, nil
}

// UpsertAnswers writes one record per (user, question), overwriting prior values.
func (r *UserRepository) UpsertAnswers(_ context.Context, userID string, records []domain.AnswerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	byQuestion, ok := r.answers[userID]
	if !ok {
		byQuestion = make(map[string]*domain.AnswerRecord)
		r.answers[userID] = byQuestion
	}
	now := r.now()
	for _, rec := range records {
		rec.UserID = userID
		rec.UpdatedAt = now
		stored := rec
		byQuestion[rec.QuestionID] = &stored
	}
	return nil
}

func (r *UserRepository) CountAnswers(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.answers[userID]), nil
}

// ListAnswers returns a user's answers ordered by question ID.
func (r *UserRepository) ListAnswers(_ context.Context, userID string) ([]domain.AnswerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AnswerRecord, 0, len(r.answers[userID]))
	for _, rec := range r.answers[userID] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
