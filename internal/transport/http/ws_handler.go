package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/domain"
	"diagnostic-quiz-service/internal/quiz"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StorageFactory returns the durable storage area of one client.
type StorageFactory func(clientID string) quiz.Storage

// WSHandler hosts one quiz.Controller per websocket connection.
type WSHandler struct {
	service        *app.QuizService
	storage        StorageFactory
	fallback       bool
	snapshotMaxAge time.Duration
	metrics        *Metrics
	log            *zap.Logger
	upgrader       websocket.Upgrader
}

// WSOptions configures the websocket quiz host.
type WSOptions struct {
	// Storage defaults to process memory keyed by client id.
	Storage        StorageFactory
	Fallback       bool
	SnapshotMaxAge time.Duration
	Metrics        *Metrics
	Log            *zap.Logger
}

func NewWSHandler(service *app.QuizService, opts WSOptions) *WSHandler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	storage := opts.Storage
	if storage == nil {
		storage = memoryStorages()
	}
	return &WSHandler{
		service:        service,
		storage:        storage,
		fallback:       opts.Fallback,
		snapshotMaxAge: opts.SnapshotMaxAge,
		metrics:        opts.Metrics,
		log:            log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func memoryStorages() StorageFactory {
	var mu sync.Mutex
	areas := make(map[string]*quiz.MemoryStorage)
	return func(clientID string) quiz.Storage {
		mu.Lock()
		defer mu.Unlock()
		s, ok := areas[clientID]
		if !ok {
			s = quiz.NewMemoryStorage()
			areas[clientID] = s
		}
		return s
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value any `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type viewPayload struct {
	State        quiz.State               `json:"state"`
	Index        int                      `json:"index"`
	Total        int                      `json:"total"`
	Section      int                      `json:"section"`
	Category     *domain.Category         `json:"category,omitempty"`
	Progress     int                      `json:"progress"`
	Question     *domain.Question         `json:"question,omitempty"`
	Answer       *domain.AnswerValue      `json:"answer,omitempty"`
	Checking     bool                     `json:"checking"`
	Error        string                   `json:"error,omitempty"`
	SubmitError  string                   `json:"submitError,omitempty"`
	Result       *domain.SubmissionResult `json:"result,omitempty"`
	UsedFallback bool                     `json:"usedFallback"`
	SessionID    string                   `json:"sessionId,omitempty"`
}

func toViewPayload(v quiz.View) viewPayload {
	p := viewPayload{
		State:        v.State,
		Index:        v.Index,
		Total:        v.Total,
		Section:      v.Section,
		Category:     v.Category,
		Progress:     v.Progress,
		Question:     v.Question,
		Answer:       v.Answer,
		Checking:     v.Checking,
		Result:       v.Result,
		UsedFallback: v.UsedFallback,
		SessionID:    v.SessionID,
	}
	if v.Err != nil {
		p.Error = v.Err.Error()
	}
	if v.SubmitErr != nil {
		p.SubmitError = v.SubmitErr.Error()
	}
	return p
}

// ServeWS upgrades HTTP requests to websockets and drives a quiz session.
// Inbound types: answer, next, previous, exit, resume, restart, retake, result.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		http.Error(w, "missing clientId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if h.metrics != nil {
		h.metrics.wsSessions.Inc()
		defer h.metrics.wsSessions.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	controller := quiz.NewController(quiz.Deps{
		Source:         h.service,
		Checker:        h.service,
		Submitter:      h.service,
		Storage:        h.storage(clientID),
		Fallback:       h.fallback,
		SnapshotMaxAge: h.snapshotMaxAge,
		Log:            h.log.With(zap.String("clientId", clientID)),
	})

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	emitView := func() {
		emit(outboundMessage[any]{Type: "view", Payload: toViewPayload(controller.View())})
	}
	emitError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	if err := controller.Start(ctx); err != nil {
		emitError(err)
	}
	emitView()

	// reading continues while an action runs so a disconnect cancels it;
	// actions still apply one at a time in arrival order
	inbox := make(chan inboundMessage, 16)
	go func() {
		defer close(inbox)
		defer cancel()
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				return
			}
			inbox <- inbound
		}
	}()

	for inbound := range inbox {
		var actionErr error
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitError(errors.New("invalid answer payload"))
				continue
			}
			actionErr = controller.Answer(ctx, payload.Value)
		case "next":
			actionErr = controller.Next(ctx)
		case "previous":
			actionErr = controller.Previous(ctx)
		case "exit":
			actionErr = controller.Exit(ctx)
		case "resume":
			actionErr = controller.ContinueResume(ctx)
		case "restart":
			actionErr = controller.RestartResume(ctx)
		case "retake":
			actionErr = controller.RetakeAfterCompleted(ctx)
		case "result":
			actionErr = controller.GoToResult(ctx)
		default:
			emitError(errors.New("unsupported message type"))
			continue
		}
		if actionErr != nil {
			emitError(actionErr)
		}
		emitView()
	}

	close(send)
	<-writerDone
}
