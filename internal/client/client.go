// Package client talks to the quiz service's REST API. It satisfies the
// quiz controller's reference, completion and submission dependencies so a
// controller can run outside the server process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"diagnostic-quiz-service/internal/domain"
)

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("quiz api: %d %s", e.Status, e.Message)
}

// Unwrap maps statuses back onto domain errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusNotFound:
		return domain.ErrUserNotFound
	case http.StatusServiceUnavailable:
		return domain.ErrDataUnavailable
	}
	return nil
}

func (c *Client) Questions(ctx context.Context) ([]domain.Question, error) {
	var out []domain.Question
	if err := c.do(ctx, http.MethodGet, "/api/questions", nil, "", &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, "", &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	return out, nil
}

func (c *Client) CheckCompletion(ctx context.Context, phone string) (domain.CompletionStatus, error) {
	var out domain.CompletionStatus
	path := "/api/users/check?phone=" + url.QueryEscape(phone)
	if err := c.doBare(ctx, http.MethodGet, path, &out); err != nil {
		return domain.CompletionStatus{}, err
	}
	return out, nil
}

func (c *Client) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	var out domain.SubmissionResult
	if err := c.do(ctx, http.MethodPost, "/api/submit", bytes.NewReader(body), "application/json", &out); err != nil {
		return domain.SubmissionResult{}, err
	}
	return out, nil
}

// Upload sends an image for the upload question. previousURL, when set, is
// removed server-side.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader, previousURL string) (domain.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return domain.UploadResult{}, err
	}
	if previousURL != "" {
		if err := mw.WriteField("oldUrl", previousURL); err != nil {
			return domain.UploadResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return domain.UploadResult{}, err
	}

	var out domain.UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return domain.UploadResult{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	raw, err := c.roundTrip(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if !env.Success {
		return fmt.Errorf("%s %s: unsuccessful response", method, path)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// doBare is for endpoints that answer without the {success, data} envelope.
func (c *Client) doBare(ctx context.Context, method, path string, out any) error {
	raw, err := c.roundTrip(ctx, method, path, nil, "")
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s %s: empty response", method, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// roundTrip returns the body of a 2xx response; other statuses become an
// *APIError carrying the server's message.
func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		if decodeErr == nil {
			_ = json.Unmarshal(raw, &env)
		}
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return nil, fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	return raw, nil
}
