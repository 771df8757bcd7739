package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/utils"

	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-1.5-flash"
)

// modelsAPI is the subset of genai.Models used by the generator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to send a single multi-part user turn.
type Generator struct {
	models    modelsAPI
	modelName string
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Generator{models: client.Models, modelName: utils.FirstNonEmpty(model, defaultModel)}, nil
}

// GenerateContent sends the parts as one user turn and returns the text of the first candidate.
func (g *Generator) GenerateContent(ctx context.Context, parts []*genai.Part) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	if len(parts) == 0 {
		return "", errors.New("parts must not be empty")
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %w", ai.ErrServiceUnavailable, err)
	}

	output := responseText(resp)
	if strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("%w: %s", ai.ErrServiceResponse, blockReason(resp))
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		var builder strings.Builder
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			builder.WriteString(part.Text)
		}

		if builder.Len() > 0 {
			return builder.String()
		}
	}

	return ""
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return "empty response"
}
