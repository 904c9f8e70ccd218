package activities

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/llm/model"
)

type (
	// AnalyzeResearchInput is the input to the analyze_research activity.
	AnalyzeResearchInput struct {
		DomainName string               `json:"domain_name"`
		Research   ResearchDomainOutput `json:"research"`
		Tier       model.Tier           `json:"tier,omitempty"`
		BudgetUSD  float64              `json:"budget_usd,omitempty"`
	}

	// AnalyzeResearchOutput is the structured output of analyze_research,
	// the draft configuration the owner reviews in AwaitingOwner.
	AnalyzeResearchOutput struct {
		Topics           []string               `json:"topics"`
		QualityCriteria  domain.QualityCriteria `json:"quality_criteria"`
		SearchAttributes map[string]string      `json:"search_attributes"`
		BootstrapPrompt  string                 `json:"bootstrap_prompt"`
		ResearchSteps    []string               `json:"research_steps"`
		TargetAudience   []string               `json:"target_audience"`
	}
)

var analyzeResearchSchema = []byte(`{
  "type": "object",
  "required": ["topics", "bootstrap_prompt"],
  "properties": {
    "topics": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "quality_criteria": {"type": "object"},
    "search_attributes": {"type": "object"},
    "bootstrap_prompt": {"type": "string", "minLength": 1},
    "research_steps": {"type": "array", "items": {"type": "string"}},
    "target_audience": {"type": "array", "items": {"type": "string"}}
  }
}`)

// AnalyzeResearch executes the analyze_research activity: it turns the raw
// research_domain output into the draft domain configuration presented to
// the owner.
func (a *Activities) AnalyzeResearch(ctx context.Context, in AnalyzeResearchInput) (AnalyzeResearchOutput, error) {
	researchJSON, err := json.Marshal(in.Research)
	if err != nil {
		return AnalyzeResearchOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	prompt := fmt.Sprintf(
		"Given this research output for domain %q: %s\nProduce a draft domain configuration as JSON matching the "+
			"schema: topics, quality_criteria, search_attributes, bootstrap_prompt, research_steps, target_audience.",
		in.DomainName, researchJSON,
	)
	req := model.Request{
		Messages:   []model.Message{{Role: "user", Content: prompt}},
		JSONSchema: analyzeResearchSchema,
	}
	resp, _, err := a.complete(ctx, "analyze_research", in.Tier, req, in.BudgetUSD)
	if err != nil {
		return AnalyzeResearchOutput{}, err
	}
	if err := validateJSON("analyze_research.json", analyzeResearchSchema, []byte(resp.Content)); err != nil {
		return AnalyzeResearchOutput{}, err
	}
	var out AnalyzeResearchOutput
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return AnalyzeResearchOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
