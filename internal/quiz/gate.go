package quiz

import (
	"context"
	"errors"
	"fmt"

	"diagnostic-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// ErrCheckSkipped is returned when the phone does not form a complete number.
var ErrCheckSkipped = errors.New("completion check skipped")

// CompletionChecker asks the backend whether a phone already completed the quiz.
type CompletionChecker interface {
	CheckCompletion(ctx context.Context, phone string) (domain.CompletionStatus, error)
}

// CompletionGate is the advisory duplicate-completion check.
type CompletionGate struct {
	checker CompletionChecker
	log     *zap.Logger
}

func NewCompletionGate(checker CompletionChecker, log *zap.Logger) *CompletionGate {
	return &CompletionGate{checker: checker, log: log}
}

// Check normalizes raw and queries the backend only for exactly ten digits.
// Backend failures are logged and wrapped in domain.ErrNetworkDegraded.
func (g *CompletionGate) Check(ctx context.Context, raw string) (domain.CompletionStatus, error) {
	phone := domain.NormalizePhone(raw)
	if len(phone) != domain.PhoneDigits || g.checker == nil {
		return domain.CompletionStatus{}, ErrCheckSkipped
	}
	status, err := g.checker.CheckCompletion(ctx, phone)
	if err != nil {
		g.log.Warn("completion check failed, proceeding", zap.Error(err))
		return domain.CompletionStatus{}, fmt.Errorf("%w: %v", domain.ErrNetworkDegraded, err)
	}
	return status, nil
}
