package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/jmcruz/fiscaltone/internal/model"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"bare digit", "3", 3, false},
		{"lowest", "1", 1, false},
		{"highest", "5", 5, false},
		{"trailing period", "4.", 4, false},
		{"quoted", `"2"`, 2, false},
		{"surrounding whitespace", "  5 \n", 5, false},
		{"zero out of range", "0", 0, true},
		{"six out of range", "6", 0, true},
		{"prose answer", "El puntaje es 3", 0, true},
		{"empty", "", 0, true},
		{"negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseScore(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScore(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseScore(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRiskIndex(t *testing.T) {
	tests := []struct {
		score int
		want  float64
	}{
		{1, 0.2},
		{2, 0.4},
		{3, 0.6},
		{4, 0.8},
		{5, 1.0},
	}

	for _, tt := range tests {
		if got := RiskIndex(tt.score); got != tt.want {
			t.Errorf("RiskIndex(%d) = %f, want %f", tt.score, got, tt.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	text := "El Consejo Fiscal advierte un deterioro del balance público."
	prompt := BuildPrompt(text)

	requiredElements := []string{
		"puntaje del 1 al 5",
		"nivel de preocupación o alerta fiscal",
		"1 = Sin preocupación fiscal",
		"5 = Alarma fiscal",
		"Texto:",
		text,
	}

	for _, element := range requiredElements {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain %q", element)
		}
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider != nil {
		t.Error("Expected nil provider when disabled")
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "bard"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestNewProvider_KnownNames(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"claude", "anthropic"},
		{"ollama", "ollama"},
		{"OpenAI", "openai"}, // case-insensitive
	}

	for _, tt := range tests {
		p, err := NewProvider(Config{Provider: tt.provider, APIKey: "test-key"})
		if err != nil {
			t.Fatalf("NewProvider(%q) failed: %v", tt.provider, err)
		}
		if p.Name() != tt.wantName {
			t.Errorf("NewProvider(%q).Name() = %q, want %q", tt.provider, p.Name(), tt.wantName)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got %q", config.Provider)
	}
	if config.Timeout <= 0 {
		t.Error("Expected positive timeout")
	}
	if config.MaxTokens != 5 {
		t.Errorf("Expected 5 max tokens for a one-digit answer, got %d", config.MaxTokens)
	}
	if config.MaxRetries <= 0 {
		t.Error("Expected positive retry budget")
	}
}

func TestConfigFromModel(t *testing.T) {
	mc := model.LLMConfig{
		Provider:       "openai",
		Model:          "gpt-4o",
		APIKey:         "sk-test",
		Timeout:        10 * time.Second,
		MaxTokens:      8,
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
	}

	cfg := ConfigFromModel(mc)

	if cfg.Provider != "openai" || cfg.Model != "gpt-4o" || cfg.APIKey != "sk-test" {
		t.Errorf("Identity fields not carried over: %+v", cfg)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.MaxTokens != 8 {
		t.Errorf("Expected max tokens 8, got %d", cfg.MaxTokens)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("Expected max retries 2, got %d", cfg.MaxRetries)
	}
	if cfg.InitialBackoff != 500*time.Millisecond {
		t.Errorf("Expected initial backoff 500ms, got %v", cfg.InitialBackoff)
	}
}

func TestConfigFromModel_ZeroFallsBackToDefaults(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "ollama"})

	defaults := DefaultConfig()
	if cfg.Timeout != defaults.Timeout {
		t.Errorf("Expected default timeout %v, got %v", defaults.Timeout, cfg.Timeout)
	}
	if cfg.MaxRetries != defaults.MaxRetries {
		t.Errorf("Expected default retries %d, got %d", defaults.MaxRetries, cfg.MaxRetries)
	}
}
