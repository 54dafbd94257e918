package llm

import (
	"fmt"
	"strings"

	"github.com/jmcruz/fiscaltone/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - scoring disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = modelConfig.Provider
	cfg.Model = modelConfig.Model
	cfg.APIKey = modelConfig.APIKey
	cfg.BaseURL = modelConfig.BaseURL
	if modelConfig.Timeout > 0 {
		cfg.Timeout = modelConfig.Timeout
	}
	if modelConfig.MaxTokens > 0 {
		cfg.MaxTokens = modelConfig.MaxTokens
	}
	if modelConfig.MaxRetries > 0 {
		cfg.MaxRetries = modelConfig.MaxRetries
	}
	if modelConfig.InitialBackoff > 0 {
		cfg.InitialBackoff = modelConfig.InitialBackoff
	}
	return cfg
}
