package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/llm/model"
)

type (
	// AssessDocumentRelevanceInput is the input to the
	// assess_document_relevance activity.
	AssessDocumentRelevanceInput struct {
		DocumentID     string                 `json:"document_id"`
		FileRef        string                 `json:"file_ref"`
		DomainCriteria domain.QualityCriteria `json:"domain_criteria"`
		Tier           model.Tier             `json:"tier,omitempty"`
		BudgetUSD      float64                `json:"budget_usd,omitempty"`
	}

	// AssessDocumentRelevanceOutput is the structured, schema-validated
	// output of assess_document_relevance.
	AssessDocumentRelevanceOutput struct {
		RelevanceScore    float64                   `json:"relevance_score"`
		IsRelevant        bool                      `json:"is_relevant"`
		Summary           string                    `json:"summary"`
		KeyPoints         []string                  `json:"key_points"`
		Topics            []string                  `json:"topics"`
		QualityIndicators domain.QualityIndicators `json:"quality_indicators"`
		RejectionReason   string                    `json:"rejection_reason,omitempty"`
	}

	// ExtractedDocument is the shape FileExtractor implementations return
	// and extract_text's output.
	ExtractedDocument struct {
		Text     string         `json:"text"`
		Chunks   []string       `json:"chunks"`
		Metadata map[string]any `json:"metadata"`
		Entities []string       `json:"entities"`
		Topics   []string       `json:"topics"`
	}

	// ExtractTextInput is the input to the extract_text activity.
	ExtractTextInput struct {
		FileRef string `json:"file_ref"`
		Data    []byte `json:"data"`
	}

	// GenerateEmbeddingsInput is the input to the generate_embeddings
	// activity.
	GenerateEmbeddingsInput struct {
		Chunks []string `json:"chunks"`
	}

	// GenerateEmbeddingsOutput wraps the ordered embedding vectors, one per
	// input chunk.
	GenerateEmbeddingsOutput struct {
		Vectors [][]float32 `json:"vectors"`
	}

	// IndexWeaviateInput is the input to the index_weaviate activity.
	IndexWeaviateInput struct {
		Document domain.Document `json:"document"`
		Vectors  [][]float32     `json:"vectors"`
	}

	// IndexWeaviateOutput reports the outcome of indexing a document's
	// chunks.
	IndexWeaviateOutput struct {
		VectorID   string `json:"vector_id"`
		ChunkCount int    `json:"chunk_count"`
	}

	// UpdateGraphInput is the input to the update_graph activity.
	UpdateGraphInput struct {
		DocumentID string   `json:"document_id"`
		Topics     []string `json:"topics"`
		Entities   []string `json:"entities"`
	}

	// UpdateGraphOutput reports whether the graph update succeeded.
	UpdateGraphOutput struct {
		OK bool `json:"ok"`
	}
)

var assessRelevanceSchema = []byte(`{
  "type": "object",
  "required": ["relevance_score", "is_relevant", "summary"],
  "properties": {
    "relevance_score": {"type": "number", "minimum": 0, "maximum": 10},
    "is_relevant": {"type": "boolean"},
    "summary": {"type": "string", "minLength": 1},
    "key_points": {"type": "array", "items": {"type": "string"}},
    "topics": {"type": "array", "items": {"type": "string"}},
    "quality_indicators": {"type": "object"},
    "rejection_reason": {"type": "string"}
  }
}`)

// AssessDocumentRelevance executes the assess_document_relevance activity:
// it scores a contributed document against the owning domain's quality
// criteria so the contribution workflow can route it to auto-approval,
// human review, or auto-rejection.
func (a *Activities) AssessDocumentRelevance(ctx context.Context, in AssessDocumentRelevanceInput) (AssessDocumentRelevanceOutput, error) {
	criteriaJSON, err := json.Marshal(in.DomainCriteria)
	if err != nil {
		return AssessDocumentRelevanceOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	prompt := fmt.Sprintf(
		"Assess document %q (%s) against domain quality criteria: %s. "+
			"Return JSON: relevance_score (0-10), is_relevant, summary, key_points, topics, quality_indicators, rejection_reason.",
		in.DocumentID, in.FileRef, criteriaJSON,
	)
	req := model.Request{
		Messages:   []model.Message{{Role: "user", Content: prompt}},
		JSONSchema: assessRelevanceSchema,
	}
	resp, _, err := a.complete(ctx, "assess_document_relevance", in.Tier, req, in.BudgetUSD)
	if err != nil {
		return AssessDocumentRelevanceOutput{}, err
	}
	if err := validateJSON("assess_document_relevance.json", assessRelevanceSchema, []byte(resp.Content)); err != nil {
		return AssessDocumentRelevanceOutput{}, err
	}
	var out AssessDocumentRelevanceOutput
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return AssessDocumentRelevanceOutput{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// ExtractText executes the extract_text activity over a locally-run
// extraction backend. A failure is returned as ErrExtractionFailure and is
// retried per the extract_text policy; once those attempts are used up the
// caller maps it to Rejected(reason="extraction_failed").
func (a *Activities) ExtractText(ctx context.Context, in ExtractTextInput) (ExtractedDocument, error) {
	doc, err := a.extractor.Extract(ctx, in.FileRef, in.Data)
	if err != nil {
		return ExtractedDocument{}, fmt.Errorf("%w: %v", ErrExtractionFailure, err)
	}
	return doc, nil
}

// GenerateEmbeddings executes the generate_embeddings activity.
func (a *Activities) GenerateEmbeddings(ctx context.Context, in GenerateEmbeddingsInput) (GenerateEmbeddingsOutput, error) {
	vectors, err := a.embeddings.Embed(ctx, in.Chunks)
	if err != nil {
		return GenerateEmbeddingsOutput{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return GenerateEmbeddingsOutput{Vectors: vectors}, nil
}

// IndexWeaviate executes the index_weaviate activity, keyed on the
// document's id so a retried invocation is idempotent.
func (a *Activities) IndexWeaviate(ctx context.Context, in IndexWeaviateInput) (IndexWeaviateOutput, error) {
	metadata := map[string]any{
		"document_id": in.Document.ID,
		"domain_id":   in.Document.DomainID,
		"topics":      in.Document.Analysis.Topics,
	}
	err := a.vectors.Index(ctx, in.Document.ID, in.Vectors, metadata)
	switch {
	case err == nil, errors.Is(err, ErrConflict):
		return IndexWeaviateOutput{VectorID: in.Document.ID, ChunkCount: len(in.Vectors)}, nil
	default:
		return IndexWeaviateOutput{}, ErrStoreUnavailable
	}
}

// UpdateGraph executes the update_graph activity.
func (a *Activities) UpdateGraph(ctx context.Context, in UpdateGraphInput) (UpdateGraphOutput, error) {
	if err := a.graph.Upsert(ctx, in.DocumentID, in.Topics, in.Entities); err != nil {
		return UpdateGraphOutput{}, ErrStoreUnavailable
	}
	return UpdateGraphOutput{OK: true}, nil
}
