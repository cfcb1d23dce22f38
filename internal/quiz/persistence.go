package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage keys, namespaced away from unrelated client state.
const (
	SnapshotKey  = "diagnostic-quiz:answers"
	SubmittedKey = "diagnostic-quiz:submitted"
	SessionKey   = "diagnostic-quiz:session-id"
)

// DefaultSnapshotMaxAge is how long an in-progress snapshot stays resumable.
const DefaultSnapshotMaxAge = 10 * 24 * time.Hour

// Snapshot mirrors the in-progress answers.
type Snapshot struct {
	Answers   map[string]domain.AnswerValue
	UpdatedAt time.Time
}

type snapshotRecord struct {
	Answers   map[string]domain.AnswerValue `json:"answers"`
	UpdatedAt *time.Time                    `json:"updatedAt"`
}

// Persistence owns the durable snapshot and the submitted flag. Storage
// failures never surface to callers; they only disable resume.
type Persistence struct {
	storage Storage
	maxAge  time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewPersistence(storage Storage, maxAge time.Duration, log *zap.Logger) *Persistence {
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	return &Persistence{storage: storage, maxAge: maxAge, now: time.Now, log: log}
}

// NewPersistenceWithClock is for deterministic timestamps in tests.
func NewPersistenceWithClock(storage Storage, maxAge time.Duration, log *zap.Logger, now func() time.Time) *Persistence {
	p := NewPersistence(storage, maxAge, log)
	p.now = now
	return p
}

func (p *Persistence) available(ctx context.Context) bool {
	if p.storage == nil {
		return false
	}
	if err := p.storage.Probe(ctx); err != nil {
		p.log.Debug("persistence disabled", zap.Error(err))
		return false
	}
	return true
}

// Save writes {answers, updatedAt: now}.
func (p *Persistence) Save(ctx context.Context, answers map[string]domain.AnswerValue) {
	if !p.available(ctx) {
		return
	}
	now := p.now()
	data, err := json.Marshal(snapshotRecord{Answers: answers, UpdatedAt: &now})
	if err != nil {
		p.log.Warn("encode snapshot", zap.Error(err))
		return
	}
	if err := p.storage.Set(ctx, SnapshotKey, data); err != nil {
		p.log.Warn("save snapshot", zap.Error(fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)))
	}
}

// Load returns the snapshot if present, well formed and no older than maxAge.
// Malformed or expired snapshots are deleted.
func (p *Persistence) Load(ctx context.Context) (Snapshot, bool) {
	if !p.available(ctx) {
		return Snapshot{}, false
	}
	data, ok, err := p.storage.Get(ctx, SnapshotKey)
	if err != nil {
		p.log.Warn("read snapshot", zap.Error(err))
		return Snapshot{}, false
	}
	if !ok {
		return Snapshot{}, false
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		p.log.Info("discarding malformed snapshot", zap.Error(err))
		p.delete(ctx, SnapshotKey)
		return Snapshot{}, false
	}
	if rec.UpdatedAt == nil || rec.UpdatedAt.IsZero() {
		p.log.Info("discarding snapshot without timestamp")
		p.delete(ctx, SnapshotKey)
		return Snapshot{}, false
	}
	if age := p.now().Sub(*rec.UpdatedAt); age > p.maxAge {
		p.log.Info("discarding expired snapshot", zap.Duration("age", age))
		p.delete(ctx, SnapshotKey)
		return Snapshot{}, false
	}

	answers := rec.Answers
	if answers == nil {
		answers = make(map[string]domain.AnswerValue)
	}
	return Snapshot{Answers: answers, UpdatedAt: *rec.UpdatedAt}, true
}

// Clear deletes the snapshot.
func (p *Persistence) Clear(ctx context.Context) {
	if p.available(ctx) {
		p.delete(ctx, SnapshotKey)
	}
}

// MarkSubmitted sets the submitted flag.
func (p *Persistence) MarkSubmitted(ctx context.Context) {
	if !p.available(ctx) {
		return
	}
	if err := p.storage.Set(ctx, SubmittedKey, []byte("true")); err != nil {
		p.log.Warn("save submitted flag", zap.Error(err))
	}
}

// Submitted reports whether this client already completed the quiz.
func (p *Persistence) Submitted(ctx context.Context) bool {
	if !p.available(ctx) {
		return false
	}
	data, ok, err := p.storage.Get(ctx, SubmittedKey)
	if err != nil || !ok {
		return false
	}
	return string(data) == "true"
}

// ClearSubmitted removes the submitted flag.
func (p *Persistence) ClearSubmitted(ctx context.Context) {
	if p.available(ctx) {
		p.delete(ctx, SubmittedKey)
	}
}

// SessionID returns the session-correlation key, creating one if absent.
// It returns "" when persistence is disabled.
func (p *Persistence) SessionID(ctx context.Context) string {
	if !p.available(ctx) {
		return ""
	}
	if data, ok, err := p.storage.Get(ctx, SessionKey); err == nil && ok && len(data) > 0 {
		return string(data)
	}
	id := uuid.NewString()
	if err := p.storage.Set(ctx, SessionKey, []byte(id)); err != nil {
		p.log.Warn("save session id", zap.Error(err))
	}
	return id
}

// ClearSession drops the session-correlation key.
func (p *Persistence) ClearSession(ctx context.Context) {
	if p.available(ctx) {
		p.delete(ctx, SessionKey)
	}
}

func (p *Persistence) delete(ctx context.Context, key string) {
	if err := p.storage.Delete(ctx, key); err != nil {
		p.log.Warn("delete persisted key", zap.String("key", key), zap.Error(err))
	}
}
