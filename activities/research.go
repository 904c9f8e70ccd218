package activities

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/llm/model"
)

type (
	// ResearchDomainInput is the input to the research_domain activity.
	ResearchDomainInput struct {
		DomainName       string   `json:"domain_name"`
		Description      string   `json:"description"`
		InitialTopics    []string `json:"initial_topics"`
		TargetAudience   []string `json:"target_audience"`
		IncludeHistorical bool    `json:"include_historical"`
		IncludeTechnical  bool    `json:"include_technical"`
		IncludePractical  bool    `json:"include_practical"`
		Tier             model.Tier `json:"tier,omitempty"`
		BudgetUSD        float64    `json:"budget_usd,omitempty"`
	}

	// ResearchDomainOutput is the schema-validated structured output of
	// research_domain.
	ResearchDomainOutput struct {
		Summary         string                 `json:"summary"`
		Topics          []string               `json:"topics"`
		QualityCriteria domain.QualityCriteria `json:"quality_criteria"`
		KnowledgeGaps   []string               `json:"knowledge_gaps"`
		Sources         []string               `json:"sources"`
		Recommendations []string               `json:"recommendations"`
	}
)

var researchDomainSchema = []byte(`{
  "type": "object",
  "required": ["summary", "topics"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "topics": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "quality_criteria": {"type": "object"},
    "knowledge_gaps": {"type": "array", "items": {"type": "string"}},
    "sources": {"type": "array", "items": {"type": "string"}},
    "recommendations": {"type": "array", "items": {"type": "string"}}
  }
}`)

// ResearchDomain executes the research_domain activity: given a proposed
// domain's seed description, it asks the tier gateway for a structured
// research summary used to drive analyze_research and, ultimately, the
// owner's draft domain configuration.
func (a *Activities) ResearchDomain(ctx context.Context, in ResearchDomainInput) (ResearchDomainOutput, error) {
	prompt := fmt.Sprintf(
		"Research the knowledge domain %q. Description: %s. Initial topics: %v. Target audience: %v. "+
			"Return JSON matching the schema: summary, topics, quality_criteria, knowledge_gaps, sources, recommendations.",
		in.DomainName, in.Description, in.InitialTopics, in.TargetAudience,
	)
	req := model.Request{
		Messages:   []model.Message{{Role: "user", Content: prompt}},
		JSONSchema: researchDomainSchema,
	}
	resp, _, err := a.complete(ctx, "research_domain", in.Tier, req, in.BudgetUSD)
	if err != nil {
		return ResearchDomainOutput{}, err
	}
	if err := validateJSON("research_domain.json", researchDomainSchema, []byte(resp.Content)); err != nil {
		return ResearchDomainOutput{}, err
	}
	var out ResearchDomainOutput
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return ResearchDomainOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
