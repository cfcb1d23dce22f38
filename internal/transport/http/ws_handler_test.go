package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagnostic-quiz-service/internal/quiz"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dialQuiz(t, server, "client-1")
	view := readView(t, conn, func(v viewPayload) bool { return true })
	if view.State != quiz.StateInProgress || view.Index != 0 || view.Total != 12 {
		t.Fatalf("unexpected initial view %+v", view)
	}
	if view.Question == nil || view.Question.ID != "name" {
		t.Fatalf("expected name question first, got %+v", view.Question)
	}
	sessionID := view.SessionID
	if sessionID == "" {
		t.Fatalf("expected a session id in the initial view")
	}

	send(t, conn, "answer", map[string]any{"value": "Asha"})
	readView(t, conn, func(v viewPayload) bool { return v.Answer != nil })
	send(t, conn, "next", nil)
	readView(t, conn, func(v viewPayload) bool { return v.Index == 1 })

	send(t, conn, "answer", map[string]any{"value": "98765 43210"})
	readView(t, conn, func(v viewPayload) bool { return v.Answer != nil })
	send(t, conn, "next", nil)
	view = readView(t, conn, func(v viewPayload) bool { return v.Index == 2 && !v.Checking })
	if view.State != quiz.StateInProgress || view.Section != 1 {
		t.Fatalf("expected to stay in section 1 on gender, got %+v", view)
	}
	conn.Close()

	// same client reconnects and gets the resume prompt
	conn = dialQuiz(t, server, "client-1")
	defer conn.Close()
	view = readView(t, conn, func(v viewPayload) bool { return true })
	if view.State != quiz.StateResumePrompt {
		t.Fatalf("expected resume prompt, got %s", view.State)
	}
	if view.SessionID != sessionID {
		t.Fatalf("expected session id %q after reconnect, got %q", sessionID, view.SessionID)
	}
	send(t, conn, "resume", nil)
	view = readView(t, conn, func(v viewPayload) bool { return v.State == quiz.StateInProgress })
	if view.Index != 2 {
		t.Fatalf("expected resume at index 2, got %d", view.Index)
	}
}

func TestWebSocketAppliesPipelinedMessagesInOrder(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dialQuiz(t, server, "client-3")
	defer conn.Close()
	readView(t, conn, func(v viewPayload) bool { return true })

	// no waiting between sends
	send(t, conn, "answer", map[string]any{"value": "Asha"})
	send(t, conn, "next", nil)
	send(t, conn, "answer", map[string]any{"value": "9876543210"})
	send(t, conn, "previous", nil)

	var last viewPayload
	for i := 0; i < 4; i++ {
		msg := readMessage(t, conn)
		if msg.Type != "view" {
			t.Fatalf("expected a view for message %d, got %s %q", i, msg.Type, msg.Payload.Message)
		}
		last = msg.Payload.viewPayload
	}
	if last.Index != 0 || last.Answer == nil || last.Answer.Text() != "Asha" {
		t.Fatalf("expected name answer kept at index 0, got index %d answer %v", last.Index, last.Answer)
	}

	send(t, conn, "next", nil)
	view := readView(t, conn, func(v viewPayload) bool { return v.Index == 1 })
	if view.Answer == nil || view.Answer.Text() != "9876543210" {
		t.Fatalf("expected phone answer on the phone question, got %v", view.Answer)
	}
}

func TestWebSocketRejectsInvalidActions(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dialQuiz(t, server, "client-2")
	defer conn.Close()
	readView(t, conn, func(v viewPayload) bool { return true })

	send(t, conn, "bogus", nil)
	if msg := readMessage(t, conn); msg.Type != "error" {
		t.Fatalf("expected error for unknown type, got %s", msg.Type)
	}

	// name is required
	send(t, conn, "next", nil)
	errSeen := false
	for i := 0; i < 3 && !errSeen; i++ {
		errSeen = readMessage(t, conn).Type == "error"
	}
	if !errSeen {
		t.Fatalf("expected validation error for empty required answer")
	}
}

func TestWebSocketRequiresClientID(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without clientId, got %d", resp.StatusCode)
	}
}

type wsMessage struct {
	Type    string         `json:"type"`
	Payload messagePayload `json:"payload"`
}

// messagePayload decodes both view and error payloads.
type messagePayload struct {
	viewPayload
	Message string `json:"message"`
}

func newTestServer(t *testing.T) (*httptest.Server, *Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := newTestService(t)
	metrics := NewMetrics()
	ws := NewWSHandler(service, WSOptions{Fallback: true, Metrics: metrics})
	router := NewRouter(RouterOptions{Service: service, WS: ws, Metrics: metrics})
	return httptest.NewServer(router), metrics
}

func dialQuiz(t *testing.T, server *httptest.Server, clientID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?clientId=" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

// readView skips messages until a view matches.
func readView(t *testing.T, conn *websocket.Conn, match func(viewPayload) bool) viewPayload {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == "view" && match(msg.Payload.viewPayload) {
			return msg.Payload.viewPayload
		}
	}
	t.Fatalf("no matching view received")
	return viewPayload{}
}
