// Package server exposes the registration pipeline over a local HTTP API.
//
// Endpoints:
//
//	POST /v1/events    - extract, build and create an event
//	POST /v1/extract   - extract and build without creating
//	POST /v1/summarize - summarize text
//	POST /v1/classify  - classify text
//	POST /v1/tags      - extract keyword tags
//	GET  /healthz      - liveness
//	GET  /metrics      - prometheus metrics
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartcal/internal/extract"
	"smartcal/internal/jstext"
	"smartcal/internal/models"
	"smartcal/internal/pipeline"
)

const requestIDHeader = "X-Request-ID"

// Registrar runs the extraction pipeline.
type Registrar interface {
	Register(ctx context.Context, text string) (*pipeline.Result, error)
	Preview(ctx context.Context, text string) (*pipeline.Result, error)
}

// Analyzer provides the auxiliary text operations.
type Analyzer interface {
	Summarize(ctx context.Context, text string, maxLen int) string
	Classify(ctx context.Context, text string) (*extract.Classification, error)
	Tags(ctx context.Context, text string) ([]string, error)
}

// TextRequest is the body accepted by every POST endpoint.
type TextRequest struct {
	Text      string `json:"text" binding:"required"`
	MaxLength int    `json:"maxLength,omitempty"`
}

// PreviewResponse is returned by /v1/extract.
type PreviewResponse struct {
	Success bool                 `json:"success"`
	Info    *models.CalendarInfo `json:"info,omitempty"`
	Payload *models.EventPayload `json:"payload,omitempty"`
	Error   string               `json:"error,omitempty"`
	Message string               `json:"message,omitempty"`
	Details string               `json:"details,omitempty"`
}

// ErrorResponse is the body for request-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Server struct {
	logger    *slog.Logger
	registrar Registrar
	analyzer  Analyzer
	engine    *gin.Engine
}

// New builds the router. analyzer may be nil, in which case the auxiliary
// endpoints are not registered.
func New(logger *slog.Logger, registrar Registrar, analyzer Analyzer) *Server {
	s := &Server{
		logger:    logger,
		registrar: registrar,
		analyzer:  analyzer,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/events", s.handleRegister)
		v1.POST("/extract", s.handlePreview)
		if s.analyzer != nil {
			v1.POST("/summarize", s.handleSummarize)
			v1.POST("/classify", s.handleClassify)
			v1.POST("/tags", s.handleTags)
		}
	}
}

// Handler returns the router for use with http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) bind(c *gin.Context) (TextRequest, bool) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil || jstext.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is required", Code: "INVALID_REQUEST"})
		return req, false
	}
	return req, true
}

func (s *Server) handleRegister(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	res, err := s.registrar.Register(c.Request.Context(), req.Text)
	if err != nil {
		s.logger.Warn("Registration failed", "request_id", c.GetString("request_id"), "error", err)
	}
	c.JSON(statusFor(err), pipeline.Respond(res, err))
}

func (s *Server) handlePreview(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	res, err := s.registrar.Preview(c.Request.Context(), req.Text)
	if err != nil {
		s.logger.Warn("Preview failed", "request_id", c.GetString("request_id"), "error", err)
		r := pipeline.Respond(nil, err)
		c.JSON(statusFor(err), PreviewResponse{Error: r.Error, Message: r.Message, Details: r.Details})
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{Success: true, Info: res.Info, Payload: res.Payload})
}

func (s *Server) handleSummarize(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	summary := s.analyzer.Summarize(c.Request.Context(), req.Text, req.MaxLength)
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleClassify(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	cls, err := s.analyzer.Classify(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Code: "CLASSIFY_FAILED"})
		return
	}
	c.JSON(http.StatusOK, cls)
}

func (s *Server) handleTags(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}
	tags, err := s.analyzer.Tags(c.Request.Context(), req.Text)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Code: "TAGS_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
