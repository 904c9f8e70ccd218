// Package bootstrap implements the Domain Bootstrap Workflow (C4): the
// Proposed -> Researching -> Analyzing -> AwaitingOwner -> {Active |
// Rejected} state machine, plus the absorbing Failed state.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/domainkit/platform/activities"
	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/retrypolicy"
	"github.com/domainkit/platform/signal/stream"
	"github.com/domainkit/platform/visibility"
)

// Name is the workflow name registered with the engine.
const Name = "DomainBootstrapWorkflow"

// SignalSubmitOwnerFeedback is the single signal channel the workflow
// waits on in AwaitingOwner. approve() and reject(reason) are expressed as
// domain.OwnerFeedback{Approved: true} and
// domain.OwnerFeedback{Approved: false, Reason: reason} respectively, so
// callers (the HTTP façade) may offer three distinct operations while the
// workflow itself only selects on one channel.
const SignalSubmitOwnerFeedback = "submit_owner_feedback"

// QueryGetStatus is the query name exposing Status.
const QueryGetStatus = "get_bootstrap_status"

type (
	// Input starts a bootstrap run.
	Input struct {
		DomainID             string
		OwnerID              string
		Title                string
		Description          string
		Slug                 string
		InitialTopics        []string
		TargetAudience       []string
		QualityCriteria      domain.QualityCriteria
		OwnerDecisionTimeout time.Duration // 0 uses retrypolicy.OwnerDecisionTimeout
	}

	// Status is the projection returned by QueryGetStatus. It reflects
	// state as of the last completed transition.
	Status struct {
		Status           domain.Status
		ResearchResults  *activities.ResearchDomainOutput
		AnalysisResults  *activities.AnalyzeResearchOutput
		DomainConfig     *domain.Domain
		ExampleQuestions []activities.ExampleQuestion
		OwnerFeedback    *domain.OwnerFeedback
		OwnerApproved    bool
		ErrorMessage     string
	}

	// Result is the workflow's terminal return value.
	Result struct {
		Domain       domain.Domain
		ErrorMessage string
	}
)

// Workflow is the engine.WorkflowFunc for the Domain Bootstrap Workflow.
func Workflow(ctx engine.WorkflowContext, rawInput any) (any, error) {
	in, ok := rawInput.(Input)
	if !ok {
		return nil, fmt.Errorf("bootstrap: unexpected input type %T", rawInput)
	}

	dom := domain.Domain{
		ID:              in.DomainID,
		OwnerID:         in.OwnerID,
		Title:           in.Title,
		Description:     in.Description,
		Slug:            in.Slug,
		Status:          domain.StatusResearching,
		Topics:          in.InitialTopics,
		QualityCriteria: in.QualityCriteria,
		TargetAudience:  in.TargetAudience,
		CreatedAt:       ctx.Now(),
		UpdatedAt:       ctx.Now(),
	}

	st := &Status{Status: domain.StatusResearching, DomainConfig: &dom}
	if err := ctx.SetQueryHandler(QueryGetStatus, func(any) (any, error) { return *st, nil }); err != nil {
		return nil, fmt.Errorf("bootstrap: register query handler: %w", err)
	}

	upsert := func(extra map[string]any) {
		attrs := map[string]any{
			visibility.AttrStatus:     string(dom.Status),
			visibility.AttrQueue:      visibility.QueueDomainBootstrap,
			visibility.AttrAssignee:   in.OwnerID,
			visibility.AttrPriority:   "high",
			visibility.AttrDomainID:   in.DomainID,
			visibility.AttrDomainName: in.Title,
			visibility.AttrOwnerID:   in.OwnerID,
		}
		for k, v := range extra {
			attrs[k] = v
		}
		_ = ctx.UpsertSearchAttributes(attrs)
	}

	emit := func(typ stream.SignalType, data any) {
		var out activities.SendSignalPersistentOutput
		_ = ctx.ExecuteActivity(ctx.Context(), activityRequest(retrypolicy.SendSignalPersistent, activities.SendSignalPersistentInput{
			UserID:     in.OwnerID,
			WorkflowID: ctx.WorkflowID(),
			Type:       typ,
			Payload:    data,
		}), &out)
	}

	fail := func(reason string) (any, error) {
		dom.Status = domain.StatusFailed
		dom.UpdatedAt = ctx.Now()
		st.Status = dom.Status
		st.ErrorMessage = reason
		upsert(nil)
		emit(stream.SignalTypeError, stream.ErrorData{Message: reason})
		return Result{Domain: dom, ErrorMessage: reason}, nil
	}

	upsert(map[string]any{"CreatedAt": dom.CreatedAt})
	emit(stream.SignalTypeStatusUpdate, stream.StatusUpdateData{Status: "started"})

	var research activities.ResearchDomainOutput
	if err := ctx.ExecuteActivity(ctx.Context(), activityRequest(retrypolicy.ResearchDomain, activities.ResearchDomainInput{
		DomainName:        in.Title,
		Description:       in.Description,
		InitialTopics:     in.InitialTopics,
		TargetAudience:    in.TargetAudience,
		IncludeHistorical: in.QualityCriteria.IncludeHistorical,
		IncludeTechnical:  in.QualityCriteria.IncludeTechnical,
		IncludePractical:  in.QualityCriteria.IncludePractical,
	}), &research); err != nil {
		return fail("research_domain failed: " + err.Error())
	}
	st.ResearchResults = &research

	dom.Status = domain.StatusResearching
	st.Status = dom.Status
	progress := 0.3
	upsert(nil)
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: progress, Step: "research_complete"})

	dom.Status = domain.StatusAnalyzing
	st.Status = dom.Status
	upsert(nil)

	var analysis activities.AnalyzeResearchOutput
	if err := ctx.ExecuteActivity(ctx.Context(), activityRequest(retrypolicy.AnalyzeResearch, activities.AnalyzeResearchInput{
		DomainName: in.Title,
		Research:   research,
	}), &analysis); err != nil {
		return fail("analyze_research failed: " + err.Error())
	}
	st.AnalysisResults = &analysis

	var questions activities.GenerateExampleQuestionsOutput
	if err := ctx.ExecuteActivity(ctx.Context(), activityRequest(retrypolicy.GenerateExampleQuestions, activities.GenerateExampleQuestionsInput{
		DomainName:  in.Title,
		Description: in.Description,
	}), &questions); err != nil {
		return fail("generate_example_questions failed: " + err.Error())
	}
	st.ExampleQuestions = questions.Questions

	dom.Topics = analysis.Topics
	dom.QualityCriteria = domain.QualityCriteria{
		MinLength:         in.QualityCriteria.MinLength,
		QualityThreshold:  in.QualityCriteria.QualityThreshold,
		RequiredSections:  in.QualityCriteria.RequiredSections,
		IncludeHistorical: in.QualityCriteria.IncludeHistorical,
		IncludeTechnical:  in.QualityCriteria.IncludeTechnical,
		IncludePractical:  in.QualityCriteria.IncludePractical,
	}
	if !isZeroQualityCriteria(analysis.QualityCriteria) {
		dom.QualityCriteria = analysis.QualityCriteria
	}
	dom.TargetAudience = analysis.TargetAudience
	dom.SearchAttributes = stringMapToAny(analysis.SearchAttributes)
	dom.Status = domain.StatusAwaitingOwner
	dom.UpdatedAt = ctx.Now()
	st.Status = dom.Status

	timeout := in.OwnerDecisionTimeout
	if timeout <= 0 {
		timeout = retrypolicy.OwnerDecisionTimeout
	}
	dueAt := ctx.Now().Add(timeout)
	upsert(map[string]any{visibility.AttrDueAt: dueAt})
	emit(stream.SignalTypeStatusUpdate, stream.StatusUpdateData{Status: "awaiting_owner"})

	var feedback domain.OwnerFeedback
	ok, err := ctx.SignalChannel(SignalSubmitOwnerFeedback).ReceiveWithTimeout(ctx.Context(), &feedback, timeout)
	if err != nil {
		return fail("cancelled while awaiting owner decision: " + err.Error())
	}

	if !ok {
		dom.Status = domain.StatusRejected
		dom.UpdatedAt = ctx.Now()
		st.Status = dom.Status
		st.ErrorMessage = "owner_decision_timeout"
		upsert(nil)
		emit(stream.SignalTypeCompletion, stream.CompletionData{Message: "owner_decision_timeout"})
		return Result{Domain: dom, ErrorMessage: "owner_decision_timeout"}, nil
	}

	st.OwnerFeedback = &feedback
	st.OwnerApproved = feedback.Approved

	if !feedback.Approved {
		dom.Status = domain.StatusRejected
		dom.UpdatedAt = ctx.Now()
		st.Status = dom.Status
		reason := feedback.Reason
		if reason == "" {
			reason = "owner_rejected"
		}
		st.ErrorMessage = reason
		upsert(nil)
		emit(stream.SignalTypeCompletion, stream.CompletionData{Message: reason})
		return Result{Domain: dom, ErrorMessage: reason}, nil
	}

	dom = domain.ApplyOwnerFeedback(dom, feedback)
	dom.Status = domain.StatusActive
	dom.UpdatedAt = ctx.Now()
	st.Status = dom.Status

	var indexed activities.IndexDomainOutput
	if err := ctx.ExecuteActivity(ctx.Context(), activityRequest(retrypolicy.IndexDomain, activities.IndexDomainInput{Domain: dom}), &indexed); err != nil {
		return fail("index_domain failed: " + err.Error())
	}

	upsert(nil)
	emit(stream.SignalTypeCompletion, stream.CompletionData{Result: dom, Message: "active"})
	return Result{Domain: dom}, nil
}

func activityRequest(name string, input any) engine.ActivityRequest {
	return engine.ActivityRequest{Name: name, Input: input}
}

func isZeroQualityCriteria(c domain.QualityCriteria) bool {
	return c.MinLength == 0 && c.QualityThreshold == 0 && len(c.RequiredSections) == 0 &&
		!c.IncludeHistorical && !c.IncludeTechnical && !c.IncludePractical
}

func stringMapToAny(m map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
