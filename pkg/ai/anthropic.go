package ai

import (
	"context"
	"fmt"
)

// AnthropicConfig placeholder for anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicEngine is a stub implementation that can be expanded once the SDK is available.
type AnthropicEngine struct {
	model string
}

// NewAnthropicEngine constructs a new stub engine.
func NewAnthropicEngine(cfg AnthropicConfig) (*AnthropicEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	return &AnthropicEngine{model: cfg.Model}, nil
}

// Model returns the configured model identifier.
func (a *AnthropicEngine) Model() string {
	return a.model
}

// Grade is not yet implemented for Anthropic models.
func (a *AnthropicEngine) Grade(ctx context.Context, input GradeInput) (GradingResult, error) {
	return GradingResult{}, fmt.Errorf("anthropic grading engine not implemented")
}
