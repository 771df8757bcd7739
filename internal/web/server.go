// Package web serves the resume analysis form over HTTP.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/analysis"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/logger"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	defaultListen         = ":8080"
	defaultMaxUploadBytes = 10 << 20
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 2 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

//go:embed templates/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"markdown": renderMarkdown,
	"safeURL":  func(s string) template.URL { return template.URL(s) },
}).Parse(indexHTML))

type Config struct {
	Listen         string        `mapstructure:"listen"`
	MaxUploadBytes int64         `mapstructure:"max-upload-bytes"`
	ReadTimeout    time.Duration `mapstructure:"read-timeout"`
	WriteTimeout   time.Duration `mapstructure:"write-timeout"`
}

type runner interface {
	Run(ctx context.Context, in analysis.Input) (*analysis.Result, error)
}

// Server handles HTTP requests
type Server struct {
	pipeline runner
	cfg      Config
	logger   *zap.Logger
}

func NewServer(pipeline runner, cfg Config, logger *zap.Logger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{pipeline: pipeline, cfg: cfg, logger: logger}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleForm)
	r.Post("/api/evaluate", s.handleEvaluate)
	r.Get("/health", s.handleHealth)

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type actionButton struct {
	Value string
	Label string
}

type page struct {
	JobDescription string
	Actions        []actionButton
	Message        string
	Result         *analysis.Result
}

func newPage(jobDescription string) *page {
	p := &page{JobDescription: jobDescription}
	for _, a := range ai.Actions() {
		p.Actions = append(p.Actions, actionButton{Value: a.String(), Label: a.Label()})
	}
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, newPage(""))
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInput(w, r)
	if err != nil {
		p := newPage(in.JobDescription)
		p.Message = err.Error()
		s.render(w, http.StatusBadRequest, p)
		return
	}

	p := newPage(in.JobDescription)
	res, err := s.pipeline.Run(r.Context(), in)
	if err != nil {
		s.logger.Warn("evaluation failed", append(logger.Interaction(chimiddleware.GetReqID(r.Context()), in.Action.String()), zap.Error(err))...)
		p.Message = analysis.Message(err)
		s.render(w, statusFor(err), p)
		return
	}

	p.Result = res
	s.render(w, http.StatusOK, p)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInput(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), in)
	if err != nil {
		s.logger.Warn("evaluation failed", append(logger.Interaction(chimiddleware.GetReqID(r.Context()), in.Action.String()), zap.Error(err))...)
		s.respondError(w, statusFor(err), analysis.Message(err))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"action":   res.Action.String(),
		"heading":  res.Heading,
		"response": res.Text,
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// readInput parses the multipart form. A missing file is not an error here.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (analysis.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return analysis.Input{}, fmt.Errorf("failed to parse form: %w", err)
	}

	in := analysis.Input{JobDescription: r.FormValue("job_description")}

	action, err := ai.ParseAction(r.FormValue("action"))
	if err != nil {
		return in, err
	}
	in.Action = action

	file, _, err := r.FormFile("resume")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return in, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	in.Document, err = io.ReadAll(file)
	if err != nil {
		return in, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return in, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ai.ErrServiceUnavailable), errors.Is(err, ai.ErrServiceResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(w http.ResponseWriter, status int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, p); err != nil {
		s.logger.Error("rendering page", zap.Error(err))
	}
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding json response", zap.Error(err))
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String(logger.FieldRequestID, chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
