// Package retrypolicy maps each registered activity to the retry schedule
// and timeout its failure class requires, so both workflows look up the
// same engine.ActivityOptions instead of hand-rolling policies inline.
package retrypolicy

import (
	"time"

	"github.com/domainkit/platform/engine"
)

// Activity names, matching the names both workflows pass to
// engine.WorkflowContext.ExecuteActivity.
const (
	ResearchDomain           = "research_domain"
	AnalyzeResearch          = "analyze_research"
	GenerateExampleQuestions = "generate_example_questions"
	IndexDomain              = "index_domain"
	AssessDocumentRelevance  = "assess_document_relevance"
	ExtractText              = "extract_text"
	GenerateEmbeddings       = "generate_embeddings"
	IndexWeaviate            = "index_weaviate"
	UpdateGraph              = "update_graph"
	NotifyContributor        = "notify_contributor"
	SendSignalPersistent     = "send_signal_persistent"
)

// Class names the retry/timeout profile shared by one or more activities.
type Class string

const (
	// ClassStorage covers network/storage activities: download, index,
	// graph update.
	ClassStorage Class = "storage"
	// ClassLLM covers LLM calls: research, scoring, question generation.
	ClassLLM Class = "llm"
	// ClassLocal covers local, CPU-bound work: text extraction.
	ClassLocal Class = "local"
	// ClassNotification covers best-effort notification delivery, which
	// never fails the workflow.
	ClassNotification Class = "notification"
	// ClassSignal covers signal delivery, which soft-fails per the
	// signal/inbox service's at-least-one-of-{push,persist} policy.
	ClassSignal Class = "signal"
)

// classFor maps each activity to its failure class (spec.md §4.7).
var classFor = map[string]Class{
	ResearchDomain:           ClassLLM,
	AnalyzeResearch:          ClassLLM,
	GenerateExampleQuestions: ClassLLM,
	IndexDomain:              ClassStorage,
	AssessDocumentRelevance:  ClassLLM,
	ExtractText:              ClassLocal,
	GenerateEmbeddings:       ClassStorage,
	IndexWeaviate:            ClassStorage,
	UpdateGraph:              ClassStorage,
	NotifyContributor:        ClassNotification,
	SendSignalPersistent:     ClassSignal,
}

// optionsFor maps each class to the engine.ActivityOptions spec.md §4.7
// prescribes.
var optionsFor = map[Class]engine.ActivityOptions{
	ClassStorage: {
		Timeout: 5 * time.Minute,
		RetryPolicy: engine.RetryPolicy{
			MaxAttempts:        5,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
		},
	},
	ClassLLM: {
		Timeout: 10 * time.Minute,
		RetryPolicy: engine.RetryPolicy{
			MaxAttempts:        3,
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
		},
	},
	ClassLocal: {
		Timeout: 10 * time.Minute,
		RetryPolicy: engine.RetryPolicy{
			MaxAttempts:        3,
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
		},
	},
	ClassNotification: {
		Timeout: time.Minute,
		RetryPolicy: engine.RetryPolicy{
			MaxAttempts:        3,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
		},
	},
	ClassSignal: {
		Timeout: 30 * time.Second,
		RetryPolicy: engine.RetryPolicy{
			MaxAttempts:        3,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
		},
	},
}

// Table resolves an activity name to its engine.ActivityOptions. Build one
// per worker process with NewTable; it is immutable and safe for
// concurrent use after construction.
type Table struct {
	options map[string]engine.ActivityOptions
}

// NewTable builds the default retry/timeout table for every registered
// activity.
func NewTable() *Table {
	options := make(map[string]engine.ActivityOptions, len(classFor))
	for name, class := range classFor {
		options[name] = optionsFor[class]
	}
	return &Table{options: options}
}

// For returns the options for name, or the zero value (engine defaults) if
// name is not a registered activity.
func (t *Table) For(name string) engine.ActivityOptions {
	return t.options[name]
}

// WorkflowTimeouts bounds wall-clock duration for each workflow type.
var WorkflowTimeouts = map[string]time.Duration{
	"DomainBootstrapWorkflow":      30 * 24 * time.Hour,
	"DocumentContributionWorkflow": 14 * 24 * time.Hour,
}

// OwnerDecisionTimeout is the default wall-clock window a domain bootstrap
// workflow waits for submit_owner_feedback before treating the decision as
// a rejection. Per-domain requests may override it, but it must stay
// finite.
const OwnerDecisionTimeout = 7 * 24 * time.Hour

// ControllerDecisionTimeout is the default wall-clock window a document
// contribution workflow waits for submit_review before treating the
// decision as a rejection.
const ControllerDecisionTimeout = 7 * 24 * time.Hour
