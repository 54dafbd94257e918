package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	return &OpenAIProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		// Log the actual error for debugging (this helps users diagnose API key issues)
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Score classifies one paragraph using OpenAI's Chat Completions API.
// Transient API errors are retried with doubling backoff; a malformed
// completion is not retried, it is a result the caller must record.
func (p *OpenAIProvider) Score(ctx context.Context, req ScoreRequest) (*ScoreResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4o
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 5
	}

	timeout := p.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemContext,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(req.Text),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0, // Deterministic scoring
	}

	var resp openai.ChatCompletionResponse
	var err error
	backoff := p.config.InitialBackoff
	if backoff == 0 {
		backoff = time.Second
	}
	attempts := p.config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err = p.client.CreateChatCompletion(callCtx, chatReq)
		cancel()
		if err == nil {
			break
		}
		if attempt == attempts-1 || ctx.Err() != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	score, err := ParseScore(strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}

	return &ScoreResponse{
		Score:      score,
		RiskIndex:  RiskIndex(score),
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
