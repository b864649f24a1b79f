package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
)

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You are an estimating assistant."},
		{Role: "user", Content: "Group these symbols."},
		{Role: "assistant", Content: "Here is the grouping."},
		{Role: "user", Content: "Now add descriptions."},
	}

	converted, system, err := convertMessagesToClaude(messages)
	require.NoError(t, err)

	assert.Equal(t, "You are an estimating assistant.", system)
	// System messages are extracted, not interleaved
	assert.Len(t, converted, 3)
}

func TestConvertMessagesToClaudeRequiresUserMessage(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "instructions only"},
	})
	assert.Error(t, err)

	_, _, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You are an estimating assistant."},
		{Role: "user", Content: "Group these symbols."},
	}

	contents, system, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	assert.Equal(t, "You are an estimating assistant.", system)
	assert.Len(t, contents, 1)
}

func TestConvertMessagesToGeminiEmpty(t *testing.T) {
	_, _, err := convertMessagesToGemini(nil)
	assert.Error(t, err)
}

func TestNewLLMServiceUnknownProvider(t *testing.T) {
	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = "openai"

	_, err := NewLLMService(config, arbor.NewLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LLM provider")
}

func TestNewClaudeServiceRequiresAPIKey(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Claude.APIKey = ""

	_, err := NewClaudeService(&config.Claude, arbor.NewLogger())
	assert.Error(t, err)
}

func TestNewGeminiServiceRequiresAPIKey(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Gemini.APIKey = ""

	_, err := NewGeminiService(&config.Gemini, arbor.NewLogger())
	assert.Error(t, err)
}
