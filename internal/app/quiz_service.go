package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferenceRepository loads reference data (from cache/backing store).
type ReferenceRepository interface {
	Questions(ctx context.Context) ([]domain.Question, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// UserRepository abstracts how users and their answers are stored (in-memory, Postgres).
type UserRepository interface {
	UpsertUser(ctx context.Context, phone, name, email string) (domain.User, error)
	FindUserByPhone(ctx context.Context, phone string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	UpsertAnswers(ctx context.Context, userID string, records []domain.AnswerRecord) error
	CountAnswers(ctx context.Context, userID string) (int, error)
	ListAnswers(ctx context.Context, userID string) ([]domain.AnswerRecord, error)
}

// FileStore persists uploaded files and returns their public URL.
type FileStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes a file previously returned by Put. Unknown URLs are ignored.
	Delete(ctx context.Context, url string) error
}

// Upload is an incoming file for the upload question.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// PreviousURL is replaced by this upload and removed best-effort.
	PreviousURL string
}

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

// QuizService contains the backend use cases behind the quiz.
type QuizService struct {
	reference ReferenceRepository
	users     UserRepository
	files     FileStore
	now       func() time.Time
	log       *zap.Logger
}

func NewQuizService(reference ReferenceRepository, users UserRepository, files FileStore, log *zap.Logger) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{reference: reference, users: users, files: files, now: time.Now, log: log}
}

// Questions returns the ordered question set.
func (s *QuizService) Questions(ctx context.Context) ([]domain.Question, error) {
	return s.reference.Questions(ctx)
}

// Categories returns the section metadata.
func (s *QuizService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.reference.Categories(ctx)
}

// CheckCompletion reports whether a user with phone exists and has at least
// one stored answer.
func (s *QuizService) CheckCompletion(ctx context.Context, phone string) (domain.CompletionStatus, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return domain.CompletionStatus{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrPhoneRequired)
	}
	user, err := s.users.FindUserByPhone(ctx, phone)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.CompletionStatus{}, nil
	}
	if err != nil {
		return domain.CompletionStatus{}, err
	}
	count, err := s.users.CountAnswers(ctx, user.ID)
	if err != nil {
		return domain.CompletionStatus{}, err
	}
	return domain.CompletionStatus{Exists: true, HasCompleted: count > 0, UserID: user.ID}, nil
}

// Submit upserts the user by phone and one answer per known question.
// Answers for unknown questions are skipped; an invalid value rejects the
// whole submission before anything is written.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionResult, error) {
	phone := domain.NormalizePhone(sub.Phone)
	if phone == "" {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrPhoneRequired)
	}
	if len(sub.Answers) == 0 {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrAnswersRequired)
	}

	questions, err := s.reference.Questions(ctx)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	records := make([]domain.AnswerRecord, 0, len(sub.Answers))
	for id, value := range sub.Answers {
		q, ok := byID[id]
		if !ok {
			s.log.Debug("skipping answer for unknown question", zap.String("question", id))
			continue
		}
		coerced, err := domain.Coerce(q, value)
		if err != nil {
			return domain.SubmissionResult{}, err
		}
		records = append(records, domain.AnswerRecord{QuestionID: id, Value: coerced})
	}

	user, err := s.users.UpsertUser(ctx, phone, strings.TrimSpace(sub.Name), strings.TrimSpace(sub.Email))
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if err := s.users.UpsertAnswers(ctx, user.ID, records); err != nil {
		return domain.SubmissionResult{}, err
	}
	s.log.Info("submission stored", zap.String("userId", user.ID), zap.Int("answers", len(records)))
	return domain.SubmissionResult{UserID: user.ID, Phone: user.Phone}, nil
}

// SaveAnswer stores a single answer with an explicit answer type.
func (s *QuizService) SaveAnswer(ctx context.Context, userID, questionID, answerType string, raw any) (domain.AnswerRecord, error) {
	if userID == "" || questionID == "" {
		return domain.AnswerRecord{}, fmt.Errorf("%w: userId and questionId are required", domain.ErrValidation)
	}
	t, err := domain.ParseAnswerType(answerType)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	value, err := domain.EncodeExplicit(t, raw)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return domain.AnswerRecord{}, err
	}
	rec := domain.AnswerRecord{UserID: userID, QuestionID: questionID, Value: value, UpdatedAt: s.now()}
	if err := s.users.UpsertAnswers(ctx, userID, []domain.AnswerRecord{rec}); err != nil {
		return domain.AnswerRecord{}, err
	}
	return rec, nil
}

// ListAnswers returns a user's stored answers.
func (s *QuizService) ListAnswers(ctx context.Context, userID string) ([]domain.AnswerRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	return s.users.ListAnswers(ctx, userID)
}

// UpsertUser creates or updates a user keyed by phone. Empty name or email
// keep the stored values.
func (s *QuizService) UpsertUser(ctx context.Context, phone, name, email string) (domain.User, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return domain.User{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrPhoneRequired)
	}
	return s.users.UpsertUser(ctx, phone, strings.TrimSpace(name), strings.TrimSpace(email))
}

// FindUser looks a user up by phone, falling back to email.
func (s *QuizService) FindUser(ctx context.Context, phone, email string) (domain.User, error) {
	if phone = domain.NormalizePhone(phone); phone != "" {
		return s.users.FindUserByPhone(ctx, phone)
	}
	if email = strings.TrimSpace(email); email != "" {
		return s.users.FindUserByEmail(ctx, email)
	}
	return domain.User{}, fmt.Errorf("%w: phone or email is required", domain.ErrValidation)
}

// Upload stores an image for the upload question and removes the file it
// replaces.
func (s *QuizService) Upload(ctx context.Context, up Upload) (domain.UploadResult, error) {
	if up.Body == nil {
		return domain.UploadResult{}, fmt.Errorf("%w: no file uploaded", domain.ErrValidation)
	}
	contentType := strings.ToLower(strings.TrimSpace(up.ContentType))
	if _, ok := allowedImageTypes[contentType]; !ok {
		return domain.UploadResult{}, fmt.Errorf("%w: %w %q", domain.ErrValidation, domain.ErrInvalidFileType, up.ContentType)
	}

	if up.PreviousURL != "" {
		if err := s.files.Delete(ctx, up.PreviousURL); err != nil {
			s.log.Warn("failed to delete replaced upload", zap.String("url", up.PreviousURL), zap.Error(err))
		}
	}

	name := uploadName(s.now(), up.Filename, contentType)
	url, err := s.files.Put(ctx, name, contentType, up.Body, up.Size)
	if err != nil {
		return domain.UploadResult{}, err
	}
	return domain.UploadResult{URL: url, Filename: name}, nil
}

func uploadName(now time.Time, original, contentType string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = "." + strings.TrimPrefix(contentType, "image/")
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}
