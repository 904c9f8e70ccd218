package activities

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/domainkit/platform/llm/model"
)

type (
	// GenerateExampleQuestionsInput is the input to the
	// generate_example_questions activity.
	GenerateExampleQuestionsInput struct {
		DomainName  string     `json:"domain_name"`
		Description string     `json:"description"`
		Tier        model.Tier `json:"tier,omitempty"`
		BudgetUSD   float64    `json:"budget_usd,omitempty"`
	}

	// ExampleQuestion is one entry of generate_example_questions' ordered
	// output sequence.
	ExampleQuestion struct {
		Question       string  `json:"question"`
		Category       string  `json:"category"`
		Difficulty     string  `json:"difficulty"`
		RelevanceScore float64 `json:"relevance_score"`
	}

	// GenerateExampleQuestionsOutput wraps the ordered question sequence.
	GenerateExampleQuestionsOutput struct {
		Questions []ExampleQuestion `json:"questions"`
	}
)

var generateQuestionsSchema = []byte(`{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "category", "difficulty", "relevance_score"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "category": {"type": "string"},
          "difficulty": {"type": "string"},
          "relevance_score": {"type": "number", "minimum": 0, "maximum": 10}
        }
      }
    }
  }
}`)

// GenerateExampleQuestions executes the generate_example_questions activity,
// producing the ordered sequence of sample questions shown to the owner
// alongside the draft domain configuration.
func (a *Activities) GenerateExampleQuestions(ctx context.Context, in GenerateExampleQuestionsInput) (GenerateExampleQuestionsOutput, error) {
	prompt := fmt.Sprintf(
		"Generate example questions a user might ask a knowledge assistant for domain %q (%s). "+
			"Return JSON: {\"questions\": [{question, category, difficulty, relevance_score}]}.",
		in.DomainName, in.Description,
	)
	req := model.Request{
		Messages:   []model.Message{{Role: "user", Content: prompt}},
		JSONSchema: generateQuestionsSchema,
	}
	resp, _, err := a.complete(ctx, "generate_example_questions", in.Tier, req, in.BudgetUSD)
	if err != nil {
		return GenerateExampleQuestionsOutput{}, err
	}
	if err := validateJSON("generate_example_questions.json", generateQuestionsSchema, []byte(resp.Content)); err != nil {
		return GenerateExampleQuestionsOutput{}, err
	}
	var out GenerateExampleQuestionsOutput
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return GenerateExampleQuestionsOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
