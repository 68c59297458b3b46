package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prospect-labs/scout/internal/domain"
)

const maxResultsPerQuery = 8

// WebSearchGatherer gathers evidence from an HTTP search service. The
// endpoint accepts {"query":..., "limit":...} and returns a list of results
// with url, snippet, and an optional credibility score.
type WebSearchGatherer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewWebSearchGatherer(endpoint, apiKey string) *WebSearchGatherer {
	return &WebSearchGatherer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []struct {
		URL         string  `json:"url"`
		Snippet     string  `json:"snippet"`
		Credibility float64 `json:"credibility"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

func (g *WebSearchGatherer) Search(ctx context.Context, h domain.Hypothesis) ([]domain.Evidence, error) {
	body, err := json.Marshal(searchRequest{
		Query: fmt.Sprintf("%s %s", h.EntityID, h.Claim),
		Limit: maxResultsPerQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("search API error: %s", result.Error)
	}

	evidence := make([]domain.Evidence, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Snippet == "" {
			continue
		}
		cred := r.Credibility
		if cred <= 0 {
			cred = 0.5
		}
		evidence = append(evidence, domain.Evidence{
			HypothesisID: h.ID,
			Source:       r.URL,
			Excerpt:      r.Snippet,
			Credibility:  cred,
		})
	}
	return evidence, nil
}
