package domain

import "time"

// DocumentStatus is a Document's lifecycle state, advanced only by its
// contribution workflow.
type DocumentStatus string

const (
	DocumentStatusPending       DocumentStatus = "pending"
	DocumentStatusAnalyzing     DocumentStatus = "analyzing"
	DocumentStatusPendingReview DocumentStatus = "pending_review"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusRejected      DocumentStatus = "rejected"
	DocumentStatusIndexed       DocumentStatus = "indexed"
	DocumentStatusFailed        DocumentStatus = "failed"
)

// QualityIndicators are the per-dimension scores the relevance-assessment
// activity reports alongside its overall RelevanceScore.
type QualityIndicators struct {
	Clarity      float64 `json:"clarity"`
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
}

// Analysis is the structured output of assess_document_relevance, carried
// unchanged through the rest of the contribution workflow.
type Analysis struct {
	Summary           string            `json:"summary"`
	KeyPoints         []string          `json:"key_points,omitempty"`
	Topics            []string          `json:"topics,omitempty"`
	QualityIndicators QualityIndicators `json:"quality_indicators"`
	RejectionReason   string            `json:"rejection_reason,omitempty"`
}

// IndexRefs records where an Indexed document's content landed in the
// vector and graph stores.
type IndexRefs struct {
	VectorID     string `json:"vector_id,omitempty"`
	GraphUpdated bool   `json:"graph_updated"`
}

// Document is a contributor-submitted file scored for relevance to a
// Domain and, if accepted, indexed into that domain's knowledge base.
type Document struct {
	ID             string         `json:"id"`
	DomainID       string         `json:"domain_id"`
	ContributorID  string         `json:"contributor_id"`
	FileRef        string         `json:"file_ref"`
	Status         DocumentStatus `json:"status"`
	RelevanceScore *float64       `json:"relevance_score,omitempty"` // nil until assess_document_relevance completes
	Analysis       Analysis       `json:"analysis"`
	IndexRefs      IndexRefs      `json:"index_refs"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
