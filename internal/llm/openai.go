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
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

type OpenAIReasoner struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIReasoner(apiKey string) *OpenAIReasoner {
	return &OpenAIReasoner{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIReasoner) complete(ctx context.Context, messages []chatMessage, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    messages,
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIReasoner) GenerateHypotheses(ctx context.Context, entityID string, prior []domain.Hypothesis) ([]domain.HypothesisProposal, error) {
	messages := []chatMessage{
		{Role: "user", Content: buildHypothesisPrompt(entityID, prior)},
	}

	result, err := c.complete(ctx, messages, 0.4)
	if err != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", err)
	}

	proposals, err := parseProposals(result)
	if err != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", err)
	}
	return proposals, nil
}

func (c *OpenAIReasoner) ProposeDecision(ctx context.Context, h domain.Hypothesis, evidence []domain.Evidence) (domain.DecisionProposal, error) {
	messages := []chatMessage{
		{Role: "user", Content: buildDecisionPrompt(h, evidence)},
	}

	result, err := c.complete(ctx, messages, 0)
	if err != nil {
		return domain.DecisionProposal{}, fmt.Errorf("propose decision: %w", err)
	}

	proposal, err := parseProposal(result)
	if err != nil {
		return domain.DecisionProposal{}, fmt.Errorf("propose decision: %w", err)
	}
	return proposal, nil
}
