package http

import (
	"errors"
	"net/http"
	"time"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions wires the HTTP surface.
type RouterOptions struct {
	Service *app.QuizService
	WS      *WSHandler
	Metrics *Metrics
	Log     *zap.Logger
	// UploadDir is served at /uploads when set (local file store).
	UploadDir string
	// MaxUploadBytes caps multipart bodies; defaults to 10 MiB.
	MaxUploadBytes int64
}

// NewRouter builds the gin engine with the REST API, metrics and websocket routes.
func NewRouter(opts RouterOptions) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", opts.Metrics.Handler())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}
	if opts.WS != nil {
		r.GET("/ws", func(c *gin.Context) {
			opts.WS.ServeWS(c.Writer, c.Request)
		})
	}

	h := &apiHandler{service: opts.Service, metrics: opts.Metrics, log: log, maxUpload: opts.MaxUploadBytes}
	api := r.Group("/api")
	api.GET("/questions", h.questions)
	api.GET("/categories", h.categories)
	api.GET("/users/check", h.checkUser)
	api.GET("/users", h.findUser)
	api.POST("/users", h.upsertUser)
	api.POST("/submit", h.submit)
	api.GET("/answers", h.listAnswers)
	api.POST("/answers", h.saveAnswer)
	api.POST("/upload", h.upload)
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, successEnvelope{Success: true, Data: data})
}

// fail maps domain errors onto HTTP statuses.
func fail(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorEnvelope{Error: "validation failed", Message: err.Error()})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorEnvelope{Error: "user not found"})
	case errors.Is(err, domain.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, errorEnvelope{Error: "question not found"})
	case errors.Is(err, domain.ErrDataUnavailable):
		log.Error("reference data unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, errorEnvelope{Error: "reference data unavailable"})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorEnvelope{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorEnvelope{Error: "validation failed", Message: message})
}
