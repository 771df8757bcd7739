package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-analyzer/internal/ai/gemini"
	"github.com/spigell/resume-analyzer/internal/analysis"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/secrets"

	"go.uber.org/zap"
)

var errConfiguration = errors.New("configuration error")

const apiKeyHint = "set GOOGLE_API_KEY (or GOOGLE_API_KEY_FILE) in the environment, a .env file or gemini.api-key in the config"

// resolveAPIKey fails when no credential is configured so nothing is served without one.
func resolveAPIKey(config *Config) (string, error) {
	if config == nil || config.Gemini == nil {
		return "", fmt.Errorf("%w: gemini api key: %w", errConfiguration, secrets.ErrNotConfigured)
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errConfiguration, err)
	}

	return key, nil
}

// newPipeline wires the preprocessor and the Gemini evaluator once at startup.
func newPipeline(ctx context.Context, config *Config, log *zap.Logger) (*analysis.Pipeline, error) {
	apiKey, err := resolveAPIKey(config)
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, strings.TrimSpace(config.Gemini.Model))
	if err != nil {
		return nil, fmt.Errorf("building gemini generator: %w", err)
	}

	aiLogger := logger.WithProvider(log, "gemini", generator.Model())
	evaluator := gemini.NewEvaluator(generator, config.Gemini.MaxLogLength, aiLogger)
	preprocessor := document.NewPreprocessor(config.Document, log.Named("document"))

	return analysis.New(preprocessor, evaluator, log), nil
}

func loadConfig(log *zap.Logger) *Config {
	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		config = &Config{}
	}

	return config
}

func setupErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if errors.Is(err, errConfiguration) {
		fields = append(fields, zap.String("hint", apiKeyHint))
	}
	return fields
}
