package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/infra/memory"
	"diagnostic-quiz-service/internal/infra/storage"
	"github.com/gin-gonic/gin"
)

func TestQuestionsEnvelope(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			ID         string `json:"id"`
			Question   string `json:"question"`
			IsRequired bool   `json:"isRequired"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	if !body.Success || len(body.Data) != 12 {
		t.Fatalf("unexpected envelope %+v", body)
	}
	if body.Data[0].ID != "name" || body.Data[0].Question == "" || !body.Data[0].IsRequired {
		t.Fatalf("unexpected first question %+v", body.Data[0])
	}
}

func TestSubmitAndCheckUser(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/users/check?phone=9876543210", nil)
	// the check is answered bare, outside the envelope
	var status struct {
		Success      *bool  `json:"success"`
		Exists       bool   `json:"exists"`
		HasCompleted bool   `json:"hasCompleted"`
		UserID       string `json:"userId"`
	}
	decode(t, rec, &status)
	if rec.Code != http.StatusOK || status.Success != nil || status.Exists || status.HasCompleted {
		t.Fatalf("expected bare unknown user, got %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/submit", map[string]any{
		"phone":   "(987) 654-3210",
		"name":    "Asha",
		"answers": map[string]any{"name": "Asha", "gender": "female", "supplements": "no"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/users/check?phone=987-654-3210", nil)
	decode(t, rec, &status)
	if !status.Exists || !status.HasCompleted || status.UserID == "" {
		t.Fatalf("expected completed user with an id, got %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/users/check", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without phone, got %d", rec.Code)
	}
}

func TestSubmitRejectsMissingPhone(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/submit", map[string]any{
		"answers": map[string]any{"name": "Asha"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "phone number is required") {
		t.Fatalf("expected phone message, got %s", rec.Body.String())
	}
}

func TestSaveAnswerValidatesType(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/users", map[string]any{"phone": "9876543210", "name": "Asha"})
	var user struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	decode(t, rec, &user)
	if user.Data.ID == "" {
		t.Fatalf("expected user id, got %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/answers", map[string]any{
		"userId": user.Data.ID, "questionId": "sleep", "answerType": "FLOAT", "value": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown answer type, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/answers", map[string]any{
		"userId": user.Data.ID, "questionId": "sleep", "answerType": "single", "value": "7-8",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/answers?userId="+user.Data.ID, nil)
	var answers struct {
		Data []struct {
			QuestionID string `json:"questionId"`
			AnswerType string `json:"answerType"`
			Value      string `json:"value"`
		} `json:"data"`
	}
	decode(t, rec, &answers)
	if len(answers.Data) != 1 || answers.Data[0].AnswerType != "SINGLE" || answers.Data[0].Value != "7-8" {
		t.Fatalf("unexpected answers %+v", answers.Data)
	}
}

func TestFindUserNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/users?email=nobody@example.com", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUploadStoresImage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	files := storage.NewLocalStore(dir)
	service := app.NewQuizService(
		memory.NewReferenceCache(memory.NewBundledReferenceLoader(), 0),
		memory.NewUserRepository(),
		files,
		nil,
	)
	router := NewRouter(RouterOptions{Service: service, UploadDir: dir})

	rec := upload(t, router, "scalp.png", "image/png")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			URL      string `json:"url"`
			Filename string `json:"filename"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	if !strings.HasPrefix(body.Data.URL, "/uploads/") || !strings.HasSuffix(body.Data.Filename, ".png") {
		t.Fatalf("unexpected upload result %+v", body.Data)
	}
	if _, err := os.Stat(filepath.Join(dir, body.Data.Filename)); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, body.Data.URL, nil))
	if get.Code != http.StatusOK || get.Body.String() != "fake image" {
		t.Fatalf("expected file served at %s, got %d", body.Data.URL, get.Code)
	}

	rec = upload(t, router, "notes.txt", "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-image, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterOptions{Service: newTestService(t), Metrics: NewMetrics()})

	doJSON(t, router, http.MethodGet, "/api/categories", nil)
	rec := doJSON(t, router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{endpoint="/api/categories",method="GET",status="200"} 1`) {
		t.Fatalf("expected request counter in metrics output")
	}
}

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	return app.NewQuizService(
		memory.NewReferenceCache(memory.NewBundledReferenceLoader(), 0),
		memory.NewUserRepository(),
		storage.NewLocalStore(t.TempDir()),
		nil,
	)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterOptions{Service: newTestService(t)})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, router http.Handler, filename, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("fake image"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
