package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prospect-labs/scout/internal/domain"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
	anthropicModel       = "claude-sonnet-4-20250514"
	anthropicMaxTokens   = 2048
)

type AnthropicReasoner struct {
	apiKey     string
	httpClient *http.Client
}

func NewAnthropicReasoner(apiKey string) *AnthropicReasoner {
	return &AnthropicReasoner{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicReasoner) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     anthropicModel,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read messages response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("messages API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal messages response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("messages API error: %s", result.Error.Message)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("messages API returned no content")
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

func (c *AnthropicReasoner) GenerateHypotheses(ctx context.Context, entityID string, prior []domain.Hypothesis) ([]domain.HypothesisProposal, error) {
	result, err := c.complete(ctx, buildHypothesisPrompt(entityID, prior))
	if err != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", err)
	}

	proposals, err := parseProposals(result)
	if err != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", err)
	}
	return proposals, nil
}

func (c *AnthropicReasoner) ProposeDecision(ctx context.Context, h domain.Hypothesis, evidence []domain.Evidence) (domain.DecisionProposal, error) {
	result, err := c.complete(ctx, buildDecisionPrompt(h, evidence))
	if err != nil {
		return domain.DecisionProposal{}, fmt.Errorf("propose decision: %w", err)
	}

	proposal, err := parseProposal(result)
	if err != nil {
		return domain.DecisionProposal{}, fmt.Errorf("propose decision: %w", err)
	}
	return proposal, nil
}
