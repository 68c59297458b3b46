package llm

import (
	"fmt"

	"github.com/prospect-labs/scout/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// NewReasoner creates a reasoning collaborator based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock).
func NewReasoner(provider, apiKey string) (domain.Reasoner, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIReasoner(apiKey), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicReasoner(apiKey), nil

	case ProviderMock:
		return NewMockReasoner(), nil

	default:
		return nil, fmt.Errorf("unknown reasoner provider: %s (valid options: openai, anthropic, mock)", provider)
	}
}
