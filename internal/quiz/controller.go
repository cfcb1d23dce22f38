package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"diagnostic-quiz-service/internal/catalog"
	"diagnostic-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// State is the controller's position in the quiz lifecycle.
type State string

const (
	StateLoading          State = "loading"
	StateInProgress       State = "in_progress"
	StateResumePrompt     State = "resume_prompt"
	StateAlreadyCompleted State = "already_completed"
	StateComplete         State = "complete"
	StateError            State = "error"
)

var (
	// ErrInvalidTransition is returned when an action does not apply to the current state.
	ErrInvalidTransition = errors.New("action not available in current state")
	// ErrNotAvailable is returned by disabled actions.
	ErrNotAvailable = errors.New("not available")
)

// Deps wires the controller to its collaborators.
type Deps struct {
	Source    catalog.Source
	Checker   CompletionChecker
	Submitter Submitter
	Storage   Storage
	// Fallback enables the bundled question set when Source fails.
	Fallback       bool
	SnapshotMaxAge time.Duration
	Log            *zap.Logger
}

// Controller drives one quiz session. Section and progress are derived from
// the answers and the current index; no cursor is persisted.
type Controller struct {
	source   catalog.Source
	fallback bool
	gate     *CompletionGate
	submit   *SubmissionClient
	persist  *Persistence
	log      *zap.Logger

	mu           sync.Mutex
	state        State
	cat          *catalog.Catalog
	usedFallback bool
	answers      *AnswerStore
	index        int
	pending      map[string]domain.AnswerValue
	checking     bool
	lastErr      error
	submitErr    error
	result       *domain.SubmissionResult
	sessionID    string
}

func NewController(deps Deps) *Controller {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	persist := NewPersistence(deps.Storage, deps.SnapshotMaxAge, log)
	return newController(deps, persist, log)
}

// NewControllerWithPersistence uses a preconfigured Persistence (tests, clocks).
func NewControllerWithPersistence(deps Deps, persist *Persistence) *Controller {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return newController(deps, persist, log)
}

func newController(deps Deps, persist *Persistence, log *zap.Logger) *Controller {
	return &Controller{
		source:   deps.Source,
		fallback: deps.Fallback,
		gate:     NewCompletionGate(deps.Checker, log),
		submit:   NewSubmissionClient(deps.Submitter, persist, log),
		persist:  persist,
		log:      log,
		state:    StateLoading,
		answers:  NewAnswerStore(),
	}
}

// Start loads reference data and decides between resume prompt, silent
// restore, already-completed prompt and a fresh start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.mu.Unlock()

	cat, usedFallback, err := c.loadCatalog(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}
	c.cat = cat
	c.usedFallback = usedFallback
	c.index = 0
	c.answers.Clear()
	c.lastErr = nil
	c.sessionID = c.persist.SessionID(ctx)

	if snap, ok := c.persist.Load(ctx); ok {
		restored := c.restore(snap.Answers)
		if len(restored) > 0 {
			first := cat.FirstUnanswered(func(id string) bool { _, ok := restored[id]; return ok })
			if first >= 1 {
				c.pending = restored
				c.state = StateResumePrompt
				return nil
			}
			c.answers.Replace(restored)
			c.state = StateInProgress
			return nil
		}
	}

	if c.persist.Submitted(ctx) {
		c.state = StateAlreadyCompleted
		return nil
	}
	c.state = StateInProgress
	return nil
}

func (c *Controller) loadCatalog(ctx context.Context) (*catalog.Catalog, bool, error) {
	if c.fallback {
		cat, used := catalog.LoadOrFallback(ctx, c.source, c.log)
		return cat, used, nil
	}
	questions, err := c.source.Questions(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, false, fmt.Errorf("%w: no questions", domain.ErrDataUnavailable)
	}
	categories, err := c.source.Categories(ctx)
	if err != nil {
		c.log.Warn("categories unavailable", zap.Error(err))
	}
	return catalog.New(questions, categories), false, nil
}

// restore retags snapshot values against the current catalog, dropping
// answers for questions that no longer exist or no longer validate.
func (c *Controller) restore(values map[string]domain.AnswerValue) map[string]domain.AnswerValue {
	out := make(map[string]domain.AnswerValue, len(values))
	for id, v := range values {
		q, ok := c.cat.Question(id)
		if !ok {
			continue
		}
		coerced, err := domain.Coerce(q, v)
		if err != nil {
			c.log.Debug("dropping stale snapshot answer", zap.String("question", id), zap.Error(err))
			continue
		}
		out[id] = coerced
	}
	return out
}

// Answer validates and stores raw for the current question and mirrors the
// answers to durable storage. Invalid input is never stored.
func (c *Controller) Answer(ctx context.Context, raw any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return ErrInvalidTransition
	}
	q, ok := c.cat.At(c.index)
	if !ok {
		return ErrInvalidTransition
	}
	v, err := domain.EncodeAnswer(q, raw)
	if err != nil {
		c.lastErr = err
		return err
	}
	c.lastErr = nil
	c.answers.Set(q.ID, v)
	c.persist.Save(ctx, c.answers.Snapshot())
	return nil
}

// Next advances. On the phone question with a complete number it first runs
// the completion check; a confirmed prior completion stops progression.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress || c.checking {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	q, _ := c.cat.At(c.index)
	answer, answered := c.answers.Get(q.ID)
	if q.Required && !answered {
		c.lastErr = fmt.Errorf("%w: question %s requires an answer", domain.ErrValidation, q.ID)
		err := c.lastErr
		c.mu.Unlock()
		return err
	}
	c.lastErr = nil

	if q.ID == domain.QuestionIDPhone && answered && domain.IsCompletePhone(answer.Text()) {
		phone := domain.NormalizePhone(answer.Text())
		index := c.index
		c.checking = true
		c.mu.Unlock()

		status, err := c.gate.Check(ctx, phone)

		c.mu.Lock()
		c.checking = false
		if !c.stillAt(index, phone) {
			c.log.Debug("ignoring late completion check", zap.Int("index", index))
			c.mu.Unlock()
			return nil
		}
		if err == nil && status.HasCompleted {
			c.state = StateAlreadyCompleted
			c.mu.Unlock()
			return nil
		}
	}

	if c.index < c.cat.Len()-1 {
		c.index++
		c.mu.Unlock()
		return nil
	}

	c.state = StateComplete
	c.submitErr = nil
	answers := c.answers.Snapshot()
	c.mu.Unlock()

	result, err := c.submit.Submit(ctx, answers)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.submitErr = err
		return nil
	}
	c.result = &result
	c.sessionID = ""
	return nil
}

// stillAt re-validates the trigger of an in-flight completion check.
func (c *Controller) stillAt(index int, phone string) bool {
	if c.state != StateInProgress || c.index != index {
		return false
	}
	current, ok := c.answers.Get(domain.QuestionIDPhone)
	return ok && domain.NormalizePhone(current.Text()) == phone
}

// Previous steps back; it is a no-op at the first question.
func (c *Controller) Previous(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return ErrInvalidTransition
	}
	if c.index > 0 {
		c.index--
	}
	return nil
}

// Exit abandons the session after the caller confirmed it: answers and the
// durable snapshot are cleared and the quiz restarts at the first question.
func (c *Controller) Exit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return ErrInvalidTransition
	}
	c.reset(ctx, false)
	return nil
}

// ContinueResume restores the pending snapshot and jumps to the first
// unanswered question.
func (c *Controller) ContinueResume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateResumePrompt {
		return ErrInvalidTransition
	}
	c.answers.Replace(c.pending)
	c.pending = nil
	c.index = c.firstUnansweredLocked()
	c.state = StateInProgress
	c.persist.Save(ctx, c.answers.Snapshot())
	return nil
}

// RestartResume discards the pending snapshot and starts over.
func (c *Controller) RestartResume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateResumePrompt {
		return ErrInvalidTransition
	}
	c.reset(ctx, true)
	return nil
}

// RetakeAfterCompleted is the "take test again" action.
func (c *Controller) RetakeAfterCompleted(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAlreadyCompleted {
		return ErrInvalidTransition
	}
	c.reset(ctx, true)
	return nil
}

// GoToResult is a placeholder for the result page.
func (c *Controller) GoToResult(_ context.Context) error {
	return ErrNotAvailable
}

func (c *Controller) reset(ctx context.Context, clearSubmitted bool) {
	c.answers.Clear()
	c.pending = nil
	c.persist.Clear(ctx)
	if clearSubmitted {
		c.persist.ClearSubmitted(ctx)
	}
	c.index = 0
	c.lastErr = nil
	c.submitErr = nil
	c.result = nil
	c.persist.ClearSession(ctx)
	c.sessionID = c.persist.SessionID(ctx)
	c.state = StateInProgress
}

func (c *Controller) firstUnansweredLocked() int {
	first := c.cat.FirstUnanswered(c.answers.Has)
	if first >= c.cat.Len() {
		// everything answered: land on the last question so it can be submitted
		first = c.cat.Len() - 1
	}
	if first < 0 {
		first = 0
	}
	return first
}

// View is a read-only rendering of the controller.
type View struct {
	State        State
	Index        int
	Total        int
	Section      int
	Category     *domain.Category
	Progress     int
	Question     *domain.Question
	Answer       *domain.AnswerValue
	Checking     bool
	Err          error
	SubmitErr    error
	Result       *domain.SubmissionResult
	UsedFallback bool
	// SessionID correlates one attempt across reconnects; empty without
	// durable storage and after a successful submission.
	SessionID string
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:        c.state,
		Index:        c.index,
		Checking:     c.checking,
		Err:          c.lastErr,
		SubmitErr:    c.submitErr,
		UsedFallback: c.usedFallback,
		SessionID:    c.sessionID,
	}
	if c.result != nil {
		res := *c.result
		v.Result = &res
	}
	if c.cat == nil {
		return v
	}

	v.Total = c.cat.Len()
	index := c.index
	if c.state == StateComplete {
		index = v.Total
	}
	v.Section = c.cat.SectionOf(index)
	if cat, ok := c.cat.CategoryFor(v.Section); ok {
		v.Category = &cat
	}
	if q, ok := c.cat.At(c.index); ok && c.state != StateComplete {
		v.Question = &q
		if a, ok := c.answers.Get(q.ID); ok {
			v.Answer = &a
		}
	}
	v.Progress = c.progressLocked()
	return v
}

// Progress is 100 once complete or once the last question has an answer.
func (c *Controller) progressLocked() int {
	total := c.cat.Len()
	if c.state == StateComplete {
		return 100
	}
	if last, ok := c.cat.At(total - 1); ok && c.answers.Has(last.ID) {
		return 100
	}
	return catalog.ProgressPercent(c.index, total)
}
