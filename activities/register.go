package activities

import (
	"context"
	"fmt"

	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/retrypolicy"
)

// typedActivity adapts a typed activity method into an engine.ActivityFunc by
// asserting the incoming input to I and boxing the typed output back into
// any. Workflows always pass the matching concrete input type, so the
// assertion only fails if a workflow and its activities have drifted apart.
func typedActivity[I, O any](name string, fn func(context.Context, I) (O, error)) engine.ActivityFunc {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(I)
		if !ok {
			return nil, fmt.Errorf("activity %s: unexpected input type %T", name, input)
		}
		return fn(ctx, in)
	}
}

// Register binds every activity in a to eng under the retry/timeout options
// policy resolves for each, using the retrypolicy.Table's activity name
// constants so the registered name always matches what workflows schedule.
func Register(ctx context.Context, eng engine.Engine, a *Activities, policy *retrypolicy.Table) error {
	defs := []engine.ActivityDefinition{
		{Name: retrypolicy.ResearchDomain, Handler: typedActivity(retrypolicy.ResearchDomain, a.ResearchDomain)},
		{Name: retrypolicy.AnalyzeResearch, Handler: typedActivity(retrypolicy.AnalyzeResearch, a.AnalyzeResearch)},
		{Name: retrypolicy.GenerateExampleQuestions, Handler: typedActivity(retrypolicy.GenerateExampleQuestions, a.GenerateExampleQuestions)},
		{Name: retrypolicy.IndexDomain, Handler: typedActivity(retrypolicy.IndexDomain, a.IndexDomain)},
		{Name: retrypolicy.AssessDocumentRelevance, Handler: typedActivity(retrypolicy.AssessDocumentRelevance, a.AssessDocumentRelevance)},
		{Name: retrypolicy.ExtractText, Handler: typedActivity(retrypolicy.ExtractText, a.ExtractText)},
		{Name: retrypolicy.GenerateEmbeddings, Handler: typedActivity(retrypolicy.GenerateEmbeddings, a.GenerateEmbeddings)},
		{Name: retrypolicy.IndexWeaviate, Handler: typedActivity(retrypolicy.IndexWeaviate, a.IndexWeaviate)},
		{Name: retrypolicy.UpdateGraph, Handler: typedActivity(retrypolicy.UpdateGraph, a.UpdateGraph)},
		{Name: retrypolicy.NotifyContributor, Handler: typedActivity(retrypolicy.NotifyContributor, a.NotifyContributor)},
		{Name: retrypolicy.SendSignalPersistent, Handler: typedActivity(retrypolicy.SendSignalPersistent, a.SendSignalPersistent)},
	}
	for i := range defs {
		defs[i].Options = policy.For(defs[i].Name)
		if err := eng.RegisterActivity(ctx, defs[i]); err != nil {
			return fmt.Errorf("register activity %s: %w", defs[i].Name, err)
		}
	}
	return nil
}
