package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts []*genai.Part) (string, error)
}

// Evaluator builds the three-part request for an action and forwards it to Gemini.
type Evaluator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

const (
	defaultMaxLogLength = 200

	// The API rejects empty text parts, so a blank job description is sent as this placeholder.
	noJobDescription = "No job description was provided."
)

func NewEvaluator(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, req *ai.Request) (*ai.Evaluation, error) {
	parts, err := buildParts(req)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content request",
		zap.String("action", req.Action.String()),
		zap.Int("image_length", len(req.Image.Data)),
		zap.Int("job_description_length", utf8.RuneCountInString(req.JobDescription)),
		zap.String("job_description_preview", utils.TruncateForLog(req.JobDescription, e.maxLogLen)),
	)

	text, err := e.generator.GenerateContent(ctx, parts)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini generate content response",
		zap.String("action", req.Action.String()),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, e.maxLogLen)),
	)

	return &ai.Evaluation{Action: req.Action, Text: text}, nil
}

// buildParts orders the request as instruction, resume image, job description.
func buildParts(req *ai.Request) ([]*genai.Part, error) {
	if req == nil {
		return nil, errors.New("evaluation request is required")
	}
	if !req.Action.Valid() {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	if req.Image == nil || req.Image.Data == "" {
		return nil, errors.New("resume image is required")
	}

	raw, err := req.Image.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode resume image: %w", err)
	}

	jobDescription := req.JobDescription
	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = noJobDescription
	}

	return []*genai.Part{
		genai.NewPartFromText(req.Action.Prompt()),
		genai.NewPartFromBytes(raw, req.Image.MIMEType),
		genai.NewPartFromText(jobDescription),
	}, nil
}
