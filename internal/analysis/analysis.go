// Package analysis runs one resume evaluation: rasterize the upload, then ask the model.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/document"

	"go.uber.org/zap"
)

// MessageNoDocument is shown when an action is triggered without an upload.
const MessageNoDocument = "Please upload the resume"

type preprocessor interface {
	Process(ctx context.Context, data []byte) (*document.Payload, error)
}

type Input struct {
	Document       []byte
	JobDescription string
	Action         ai.Action
}

type Result struct {
	Action  ai.Action
	Heading string
	Text    string
	Preview *document.Payload
}

// Pipeline holds read-only components and is safe for concurrent use.
type Pipeline struct {
	preprocessor preprocessor
	evaluator    ai.Evaluator
	logger       *zap.Logger
}

func New(p preprocessor, e ai.Evaluator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{preprocessor: p, evaluator: e, logger: logger}
}

// Run executes a single interaction. Every error is terminal for it.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if !in.Action.Valid() {
		return nil, fmt.Errorf("unknown action: %s", in.Action)
	}

	payload, err := p.preprocessor.Process(ctx, in.Document)
	if err != nil {
		return nil, err
	}

	evaluation, err := p.evaluator.Evaluate(ctx, &ai.Request{
		Action:         in.Action,
		Image:          payload,
		JobDescription: in.JobDescription,
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("resume evaluated",
		zap.String("action", in.Action.String()),
		zap.Int("page_width", payload.Width),
		zap.Int("page_height", payload.Height),
	)

	return &Result{
		Action:  in.Action,
		Heading: in.Action.Heading(),
		Text:    evaluation.Text,
		Preview: payload,
	}, nil
}

// Message maps an interaction error to the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, document.ErrEmptyInput):
		return MessageNoDocument
	default:
		return err.Error()
	}
}
