// Package llm scores paragraph-level fiscal alert tone through pluggable
// chat-completion providers. The classifier asks for a bare 1-5 integer and
// rejects anything else; a loose parse here would silently corrupt the
// downstream risk index.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Provider defines the interface for fiscal-tone classifiers.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Score rates the fiscal alert level of one paragraph on the 1-5 scale.
	Score(ctx context.Context, req ScoreRequest) (*ScoreResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// ScoreRequest contains the input for one classification call.
type ScoreRequest struct {
	// Text is the paragraph to classify
	Text string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length; the answer is one digit
	MaxTokens int
}

// ScoreResponse contains the classifier's output.
type ScoreResponse struct {
	// Score is the fiscal alert level, 1 (no concern) to 5 (fiscal alarm)
	Score int

	// RiskIndex is Score normalized to 0.0-1.0
	RiskIndex float64

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// MaxRetries bounds retry attempts on transient API errors
	MaxRetries int

	// InitialBackoff is the first retry delay; it doubles per attempt
	InitialBackoff time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Model:          "",
		Timeout:        30 * time.Second,
		MaxTokens:      5,
		MaxRetries:     3,
		InitialBackoff: time.Second,
	}
}

// systemContext frames the classifier as a Fiscal Council analyst. The
// criteria mirror the recurring themes of the Council's published opinions.
const systemContext = `Sabemos que desde aproximadamente 2016 el manejo de las finanzas públicas ha mostrado signos crecientes de deterioro. La pérdida de disciplina fiscal, la falta de transparencia y el relajamiento de las reglas fiscales han sido temas recurrentes en las opiniones del Consejo Fiscal. A ello se suma el impacto de la inestabilidad política sobre la capacidad institucional para llevar una política fiscal prudente y sostenible. En este contexto, el Consejo Fiscal ha venido alertando con más frecuencia y firmeza sobre el incumplimiento de metas fiscales, el deterioro del balance público, y los riesgos de un endeudamiento creciente y potencialmente insostenible.

Criterios comunes en los informes y comunicados del Consejo Fiscal (según categoría):

1. Cumplimiento y disciplina fiscal:
(disciplina fiscal, incumplimiento de metas fiscales, relajamiento de reglas fiscales, uso inadecuado del gasto público, desviación del déficit fiscal, deterioro del marco fiscal, flexibilización sin justificación, política fiscal procíclica)

2. Riesgo y sostenibilidad:
(riesgo fiscal, riesgo de sostenibilidad de la deuda, endeudamiento excesivo, dependencia de ingresos extraordinarios, vulnerabilidad fiscal estructural, uso de medidas transitorias o no permanentes, incertidumbre macrofiscal)

3. Gobernanza e institucionalidad:
(transparencia fiscal, calidad del gasto público, incertidumbre institucional, falta de planificación multianual, cambios frecuentes en autoridades económicas, debilitamiento institucional, independencia fiscal comprometida, ausencia de reforma estructural)`

// BuildPrompt constructs the classification prompt for one paragraph.
func BuildPrompt(text string) string {
	return fmt.Sprintf(`Eres un analista técnico del Consejo Fiscal de Perú. Evalúa el siguiente párrafo extraído de un informe técnico del Consejo Fiscal (CF), donde se emite una opinión sobre el desempeño fiscal del Ministerio de Economía y Finanzas (MEF) en cuanto al cumplimiento de las metas fiscales.

Tu tarea es asignar un **puntaje del 1 al 5** según el **nivel de preocupación o alerta fiscal expresado en el texto**.

Interpretación:
- 1 = Sin preocupación fiscal (cumplimiento de metas, transparencia fiscal, planificación multianual)
- 2 = Ligera preocupación (riesgo fiscal potencial, desviación del déficit, dependencia de ingresos extraordinarios)
- 3 = Neutral (descripción técnica, gestión dentro del marco, sin juicio valorativo)
- 4 = Alta preocupación (incumplimiento de metas, relajamiento fiscal, incertidumbre macroeconómica)
- 5 = Alarma fiscal (críticas severas, riesgo de sostenibilidad de la deuda, independencia fiscal comprometida)

Devuelve solo un número del 1 al 5.

Texto:
"""%s"""`, text)
}

// ParseScore validates a raw completion as a 1-5 score. Anything that is not
// exactly one of those digits is an error; the classifier must not guess.
func ParseScore(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `."'`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return 0, fmt.Errorf("unexpected classifier response %q, want an integer 1-5", raw)
	}
	return n, nil
}

// RiskIndex normalizes a 1-5 score to the 0.0-1.0 scale.
func RiskIndex(score int) float64 {
	return float64(score) / 5
}
