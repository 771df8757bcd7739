package ai

import (
	"context"
	"errors"

	"github.com/spigell/resume-analyzer/internal/document"
)

var (
	// ErrServiceUnavailable is returned when the generation call itself failed.
	ErrServiceUnavailable = errors.New("generation service unavailable")
	// ErrServiceResponse is returned when the service answered without usable text.
	ErrServiceResponse = errors.New("generation service returned no usable text")
)

// Request is a single evaluation of one resume page against a job description.
type Request struct {
	Action         Action
	Image          *document.Payload
	JobDescription string
}

type Evaluation struct {
	Action Action
	Text   string
}

type Evaluator interface {
	Evaluate(ctx context.Context, req *Request) (*Evaluation, error)
}
