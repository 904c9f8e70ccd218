// Package contribution implements the Document Contribution Workflow (C5):
// Uploaded -> Analyzing -> {AutoApproved | PendingReview | AutoRejected} ->
// {Approved | Rejected | Indexed | Failed}.
package contribution

import (
	"fmt"
	"time"

	"github.com/domainkit/platform/activities"
	"github.com/domainkit/platform/actor"
	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/retrypolicy"
	"github.com/domainkit/platform/signal/stream"
	"github.com/domainkit/platform/visibility"
)

// Name is the workflow name registered with the engine.
const Name = "DocumentContributionWorkflow"

// SignalSubmitReview is the single signal channel the workflow waits on in
// PendingReview.
const SignalSubmitReview = "submit_review"

// QueryGetStatus is the query name exposing Status.
const QueryGetStatus = "get_status"

type (
	// Review is the payload of the submit_review signal.
	Review struct {
		Approved     bool
		Feedback     string
		ControllerID string
	}

	// Input starts a contribution run.
	Input struct {
		DocumentID                string
		DomainID                  string
		ContributorID             string
		FileRef                   string
		Data                      []byte
		DomainCriteria            domain.QualityCriteria
		AutoApproveThreshold      float64 // default 8.0
		RejectThreshold           float64 // default 7.0
		ControllerDecisionTimeout time.Duration
		ControllerPool            []string
		Directory                 *actor.Directory // nil when no pool is configured
	}

	// Status is the projection returned by QueryGetStatus.
	Status struct {
		Status            domain.DocumentStatus
		RelevanceScore    *float64
		Analysis          *domain.Analysis
		ControllerDecision *Review
		ControllerID      string
	}

	// Result is the workflow's terminal return value.
	Result struct {
		Document     domain.Document
		ErrorMessage string
	}
)

// Workflow is the engine.WorkflowFunc for the Document Contribution
// Workflow.
func Workflow(ctx engine.WorkflowContext, rawInput any) (any, error) {
	in, ok := rawInput.(Input)
	if !ok {
		return nil, fmt.Errorf("contribution: unexpected input type %T", rawInput)
	}

	autoApprove := in.AutoApproveThreshold
	if autoApprove == 0 {
		autoApprove = 8.0
	}
	reject := in.RejectThreshold
	if reject == 0 {
		reject = 7.0
	}
	timeout := in.ControllerDecisionTimeout
	if timeout <= 0 {
		timeout = retrypolicy.ControllerDecisionTimeout
	}

	doc := domain.Document{
		ID:            in.DocumentID,
		DomainID:      in.DomainID,
		ContributorID: in.ContributorID,
		FileRef:       in.FileRef,
		Status:        domain.DocumentStatusAnalyzing,
		CreatedAt:     ctx.Now(),
		UpdatedAt:     ctx.Now(),
	}

	st := &Status{Status: doc.Status}
	if err := ctx.SetQueryHandler(QueryGetStatus, func(any) (any, error) { return *st, nil }); err != nil {
		return nil, fmt.Errorf("contribution: register query handler: %w", err)
	}

	upsert := func(extra map[string]any) {
		attrs := map[string]any{
			visibility.AttrStatus:        string(doc.Status),
			visibility.AttrQueue:         visibility.QueueDocumentAnalysis,
			visibility.AttrDocumentID:    in.DocumentID,
			visibility.AttrDomainID:      in.DomainID,
			visibility.AttrContributorID: in.ContributorID,
			visibility.AttrPriority:      "normal",
		}
		for k, v := range extra {
			attrs[k] = v
		}
		_ = ctx.UpsertSearchAttributes(attrs)
	}

	emit := func(typ stream.SignalType, data any) {
		var out activities.SendSignalPersistentOutput
		_ = ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.SendSignalPersistent, Input: activities.SendSignalPersistentInput{
			UserID:     in.ContributorID,
			WorkflowID: ctx.WorkflowID(),
			Type:       typ,
			Payload:    data,
		}}, &out)
	}

	notify := func(decision, reason string) {
		var out activities.NotifyContributorOutput
		_ = ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.NotifyContributor, Input: activities.NotifyContributorInput{
			ContributorID: in.ContributorID,
			WorkflowID:    ctx.WorkflowID(),
			Decision:      decision,
			Reason:        reason,
		}}, &out)
	}

	fail := func(reason string) (any, error) {
		doc.Status = domain.DocumentStatusFailed
		doc.UpdatedAt = ctx.Now()
		st.Status = doc.Status
		upsert(nil)
		emit(stream.SignalTypeError, stream.ErrorData{Message: reason})
		return Result{Document: doc, ErrorMessage: reason}, nil
	}

	upsert(nil)
	emit(stream.SignalTypeStatusUpdate, stream.StatusUpdateData{Status: "started"})
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: 0.1, Step: "download"})

	var assessment activities.AssessDocumentRelevanceOutput
	if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.AssessDocumentRelevance, Input: activities.AssessDocumentRelevanceInput{
		DocumentID:     in.DocumentID,
		FileRef:        in.FileRef,
		DomainCriteria: in.DomainCriteria,
	}}, &assessment); err != nil {
		return fail("assess_document_relevance failed: " + err.Error())
	}

	score := assessment.RelevanceScore
	doc.RelevanceScore = &score
	doc.Analysis = domain.Analysis{
		Summary:           assessment.Summary,
		KeyPoints:         assessment.KeyPoints,
		Topics:            assessment.Topics,
		QualityIndicators: assessment.QualityIndicators,
		RejectionReason:   assessment.RejectionReason,
	}
	st.RelevanceScore = doc.RelevanceScore
	st.Analysis = &doc.Analysis
	upsert(map[string]any{visibility.AttrRelevanceScore: fmt.Sprintf("%.2f", score)})

	var approved bool
	switch {
	case score >= autoApprove:
		doc.Status = domain.DocumentStatusApproved
		st.Status = doc.Status
		approved = true

	case score < reject:
		doc.Status = domain.DocumentStatusRejected
		doc.Analysis.RejectionReason = assessment.RejectionReason
		doc.UpdatedAt = ctx.Now()
		st.Status = doc.Status
		upsert(nil)
		notify("rejected", doc.Analysis.RejectionReason)
		emit(stream.SignalTypeCompletion, stream.CompletionData{Message: "auto_rejected"})
		return Result{Document: doc, ErrorMessage: "auto_rejected"}, nil

	default:
		doc.Status = domain.DocumentStatusPendingReview
		st.Status = doc.Status
		controllerID := in.ContributorID
		if len(in.ControllerPool) > 0 && in.Directory != nil {
			assigned, err := in.Directory.AssignController(in.ControllerPool)
			if err != nil {
				return fail("controller assignment failed: " + err.Error())
			}
			controllerID = assigned
			defer in.Directory.ReleaseController(assigned)
		}
		st.ControllerID = controllerID
		dueAt := ctx.Now().Add(timeout)
		upsert(map[string]any{visibility.AttrAssignee: controllerID, visibility.AttrDueAt: dueAt})
		emit(stream.SignalTypeStatusUpdate, stream.StatusUpdateData{Status: "pending_review"})

		var review Review
		ok, err := ctx.SignalChannel(SignalSubmitReview).ReceiveWithTimeout(ctx.Context(), &review, timeout)
		if err != nil {
			return fail("cancelled while awaiting controller decision: " + err.Error())
		}
		if !ok {
			doc.Status = domain.DocumentStatusRejected
			doc.UpdatedAt = ctx.Now()
			st.Status = doc.Status
			upsert(nil)
			notify("rejected", "controller_timeout")
			emit(stream.SignalTypeCompletion, stream.CompletionData{Message: "controller_timeout"})
			return Result{Document: doc, ErrorMessage: "controller_timeout"}, nil
		}
		st.ControllerDecision = &review
		if !review.Approved {
			doc.Status = domain.DocumentStatusRejected
			doc.Analysis.RejectionReason = review.Feedback
			doc.UpdatedAt = ctx.Now()
			st.Status = doc.Status
			upsert(nil)
			notify("rejected", review.Feedback)
			emit(stream.SignalTypeCompletion, stream.CompletionData{Message: "controller_rejected"})
			return Result{Document: doc, ErrorMessage: "controller_rejected"}, nil
		}
		doc.Status = domain.DocumentStatusApproved
		st.Status = doc.Status
		approved = true
	}

	if !approved {
		return fail("unreachable: routing did not resolve to an approval")
	}

	var extracted activities.ExtractedDocument
	if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.ExtractText, Input: activities.ExtractTextInput{
		FileRef: in.FileRef,
		Data:    in.Data,
	}}, &extracted); err != nil {
		doc.Status = domain.DocumentStatusRejected
		doc.Analysis.RejectionReason = "extraction_failed"
		doc.UpdatedAt = ctx.Now()
		st.Status = doc.Status
		upsert(nil)
		notify("rejected", "extraction_failed")
		emit(stream.SignalTypeError, stream.ErrorData{Message: "extraction_failed"})
		return Result{Document: doc, ErrorMessage: "extraction_failed"}, nil
	}
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: 0.5, Step: "extract_text"})

	var embeddings activities.GenerateEmbeddingsOutput
	if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.GenerateEmbeddings, Input: activities.GenerateEmbeddingsInput{
		Chunks: extracted.Chunks,
	}}, &embeddings); err != nil {
		return fail("generate_embeddings failed: " + err.Error())
	}
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: 0.7, Step: "generate_embeddings"})

	var indexed activities.IndexWeaviateOutput
	if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.IndexWeaviate, Input: activities.IndexWeaviateInput{
		Document: doc,
		Vectors:  embeddings.Vectors,
	}}, &indexed); err != nil {
		return fail("index_weaviate failed: " + err.Error())
	}
	doc.IndexRefs.VectorID = indexed.VectorID
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: 0.8, Step: "index_weaviate"})

	var graphResult activities.UpdateGraphOutput
	if err := ctx.ExecuteActivity(ctx.Context(), engine.ActivityRequest{Name: retrypolicy.UpdateGraph, Input: activities.UpdateGraphInput{
		DocumentID: doc.ID,
		Topics:     extracted.Topics,
		Entities:   extracted.Entities,
	}}, &graphResult); err != nil {
		return fail("update_graph failed: " + err.Error())
	}
	doc.IndexRefs.GraphUpdated = graphResult.OK
	emit(stream.SignalTypeProgress, stream.ProgressData{Progress: 0.9, Step: "update_graph"})

	doc.Status = domain.DocumentStatusIndexed
	doc.UpdatedAt = ctx.Now()
	st.Status = doc.Status
	upsert(nil)
	notify("approved", "")
	emit(stream.SignalTypeCompletion, stream.CompletionData{Result: doc, Message: "indexed"})
	return Result{Document: doc}, nil
}
