package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
)

// NewLLMService creates the LLM service selected by llm.default_provider
func NewLLMService(config *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := config.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	logger.Info().
		Str("provider", string(provider)).
		Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderGemini:
		return NewGeminiService(&config.Gemini, logger)
	case common.LLMProviderClaude:
		return NewClaudeService(&config.Claude, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider '%s' (supported: gemini, claude)", provider)
	}
}
