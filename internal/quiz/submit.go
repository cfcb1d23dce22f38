package quiz

import (
	"context"
	"fmt"
	"strings"

	"diagnostic-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// Submitter sends a finished answer set to the backend.
type Submitter interface {
	Submit(ctx context.Context, submission domain.Submission) (domain.SubmissionResult, error)
}

// SubmissionClient submits the answers and updates local state on success.
type SubmissionClient struct {
	backend Submitter
	persist *Persistence
	log     *zap.Logger
}

func NewSubmissionClient(backend Submitter, persist *Persistence, log *zap.Logger) *SubmissionClient {
	return &SubmissionClient{backend: backend, persist: persist, log: log}
}

// Submit requires a phone answer. On failure the durable snapshot is left
// intact so a later resume can retry.
func (s *SubmissionClient) Submit(ctx context.Context, answers map[string]domain.AnswerValue) (domain.SubmissionResult, error) {
	phone := domain.NormalizePhone(answers[domain.QuestionIDPhone].Text())
	if phone == "" {
		err := fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrPhoneRequired)
		s.log.Error("submission aborted", zap.Error(err))
		return domain.SubmissionResult{}, err
	}

	submission := domain.Submission{
		Phone:   phone,
		Name:    strings.TrimSpace(answers[domain.QuestionIDName].Text()),
		Email:   strings.TrimSpace(answers[domain.QuestionIDEmail].Text()),
		Answers: answers,
	}

	result, err := s.backend.Submit(ctx, submission)
	if err != nil {
		s.log.Error("submission failed", zap.String("phone", phone), zap.Error(err))
		return domain.SubmissionResult{}, fmt.Errorf("%w: submit: %v", domain.ErrNetworkDegraded, err)
	}

	s.persist.Clear(ctx)
	s.persist.ClearSession(ctx)
	s.persist.MarkSubmitted(ctx)
	s.log.Info("quiz submitted", zap.String("userId", result.UserID))
	return result, nil
}
