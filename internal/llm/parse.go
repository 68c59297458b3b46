package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prospect-labs/scout/internal/domain"
)

func buildHypothesisPrompt(entityID string, prior []domain.Hypothesis) string {
	priorSection := ""
	if len(prior) > 0 {
		var lines []string
		for _, h := range prior {
			lines = append(lines, fmt.Sprintf("- [%s] %s (confidence %.2f)", h.Category, h.Claim, h.Confidence))
		}
		priorSection = fmt.Sprintf(hypothesisPriorSection, strings.Join(lines, "\n"))
	}
	return fmt.Sprintf(hypothesisPrompt, entityID, priorSection)
}

func buildDecisionPrompt(h domain.Hypothesis, evidence []domain.Evidence) string {
	evidenceText := "(none gathered this pass)"
	if len(evidence) > 0 {
		var lines []string
		for _, ev := range evidence {
			lines = append(lines, fmt.Sprintf("- source=%s credibility=%.2f: %s", ev.Source, ev.Credibility, ev.Excerpt))
		}
		evidenceText = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(decisionPrompt, h.Category, h.Claim, evidenceText)
}

// stripFences removes a markdown code fence if the model wrapped its
// JSON despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

type proposalPayload struct {
	Category          string  `json:"category"`
	Claim             string  `json:"claim"`
	InitialConfidence float64 `json:"initial_confidence"`
}

func parseProposals(raw string) ([]domain.HypothesisProposal, error) {
	var payload []proposalPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse hypothesis proposals: %w", err)
	}

	proposals := make([]domain.HypothesisProposal, 0, len(payload))
	for _, p := range payload {
		claim := strings.TrimSpace(p.Claim)
		if claim == "" {
			continue
		}
		proposals = append(proposals, domain.HypothesisProposal{
			Category:          domain.Category(strings.ToLower(strings.TrimSpace(p.Category))),
			Claim:             claim,
			InitialConfidence: p.InitialConfidence,
		})
	}
	return proposals, nil
}

func parseProposal(raw string) (domain.DecisionProposal, error) {
	var payload struct {
		Decision  string `json:"decision"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return domain.DecisionProposal{}, fmt.Errorf("parse decision: %w", err)
	}
	return domain.DecisionProposal{
		Decision:  payload.Decision,
		Rationale: payload.Rationale,
	}, nil
}
