package http

import (
	"net/http"
	"time"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type apiHandler struct {
	service   *app.QuizService
	metrics   *Metrics
	log       *zap.Logger
	maxUpload int64
}

func (h *apiHandler) questions(c *gin.Context) {
	questions, err := h.service.Questions(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, questions)
}

func (h *apiHandler) categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, categories)
}

func (h *apiHandler) checkUser(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		badRequest(c, "phone is required")
		return
	}
	status, err := h.service.CheckCompletion(c.Request.Context(), phone)
	if h.metrics != nil {
		h.metrics.observeCompletionCheck(status.HasCompleted, err)
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	// answered bare: {exists, hasCompleted, userId?}
	c.JSON(http.StatusOK, status)
}

type submitRequest struct {
	Phone   string                        `json:"phone"`
	Name    string                        `json:"name"`
	Email   string                        `json:"email"`
	Answers map[string]domain.AnswerValue `json:"answers"`
}

func (h *apiHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid submission payload")
		return
	}
	result, err := h.service.Submit(c.Request.Context(), domain.Submission{
		Phone:   req.Phone,
		Name:    req.Name,
		Email:   req.Email,
		Answers: req.Answers,
	})
	if h.metrics != nil {
		h.metrics.observeSubmission(err)
	}
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, result)
}

type saveAnswerRequest struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	AnswerType string `json:"answerType"`
	Value      any    `json:"value"`
}

// answerResponse carries the answer type next to the untagged value.
type answerResponse struct {
	UserID     string             `json:"userId"`
	QuestionID string             `json:"questionId"`
	AnswerType domain.AnswerType  `json:"answerType"`
	Value      domain.AnswerValue `json:"value"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func toAnswerResponse(rec domain.AnswerRecord) answerResponse {
	return answerResponse{
		UserID:     rec.UserID,
		QuestionID: rec.QuestionID,
		AnswerType: rec.Value.Type,
		Value:      rec.Value,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func (h *apiHandler) saveAnswer(c *gin.Context) {
	var req saveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid answer payload")
		return
	}
	if req.UserID == "" || req.QuestionID == "" || req.AnswerType == "" || req.Value == nil {
		badRequest(c, "userId, questionId, answerType and value are required")
		return
	}
	rec, err := h.service.SaveAnswer(c.Request.Context(), req.UserID, req.QuestionID, req.AnswerType, req.Value)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, toAnswerResponse(rec))
}

func (h *apiHandler) listAnswers(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		badRequest(c, "userId is required")
		return
	}
	records, err := h.service.ListAnswers(c.Request.Context(), userID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	out := make([]answerResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toAnswerResponse(rec))
	}
	ok(c, out)
}

type upsertUserRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *apiHandler) upsertUser(c *gin.Context) {
	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid user payload")
		return
	}
	user, err := h.service.UpsertUser(c.Request.Context(), req.Phone, req.Name, req.Email)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, user)
}

func (h *apiHandler) findUser(c *gin.Context) {
	user, err := h.service.FindUser(c.Request.Context(), c.Query("phone"), c.Query("email"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, user)
}

func (h *apiHandler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file uploaded")
		return
	}
	file, err := header.Open()
	if err != nil {
		fail(c, h.log, err)
		return
	}
	defer file.Close()

	result, err := h.service.Upload(c.Request.Context(), app.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		PreviousURL: c.PostForm("oldUrl"),
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, result)
}
