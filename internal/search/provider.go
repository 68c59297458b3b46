package search

import (
	"fmt"

	"github.com/prospect-labs/scout/internal/domain"
)

const (
	ProviderWebSearch = "websearch"
	ProviderMock      = "mock"
)

// NewGatherer creates an evidence-gathering collaborator based on the
// provider name.
func NewGatherer(provider, endpoint, apiKey string) (domain.EvidenceGatherer, error) {
	switch provider {
	case ProviderWebSearch:
		if endpoint == "" {
			return nil, fmt.Errorf("SEARCH_ENDPOINT is required for websearch provider")
		}
		return NewWebSearchGatherer(endpoint, apiKey), nil

	case ProviderMock:
		return NewMockGatherer(), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s (valid options: websearch, mock)", provider)
	}
}
