package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/llm/model"
	"github.com/domainkit/platform/signal"
	"github.com/domainkit/platform/signal/mongostore"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo/inmem"
	"github.com/domainkit/platform/signal/stream"
)

type fakeModelClient struct {
	content string
	err     error
}

func (c *fakeModelClient) Complete(context.Context, model.TierProfile, model.Request) (model.Response, error) {
	if c.err != nil {
		return model.Response{}, c.err
	}
	return model.Response{Content: c.content, Model: "fake-model"}, nil
}

func newTestRouter(tier model.Tier, client model.Client) *model.TierRouter {
	r := model.NewTierRouter()
	r.Register(tier, client)
	return r
}

type fakeVectorStore struct {
	conflictAfter int
	calls         int
}

func (s *fakeVectorStore) Index(context.Context, string, [][]float32, map[string]any) error {
	s.calls++
	if s.conflictAfter > 0 && s.calls > s.conflictAfter {
		return ErrConflict
	}
	return nil
}

type fakeGraphStore struct{ calls int }

func (s *fakeGraphStore) Upsert(context.Context, string, []string, []string) error {
	s.calls++
	return nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string, []byte) (ExtractedDocument, error) {
	return ExtractedDocument{}, errors.New("corrupt file")
}

type fakeEmbeddings struct{}

func (fakeEmbeddings) Embed(_ context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func mustNewSignalService(t *testing.T) *signal.Service {
	t.Helper()
	store, err := mongostore.NewStore(inmem.New())
	require.NoError(t, err)
	return signal.NewService(stream.NewHub(), store, nil)
}

func TestResearchDomainValidatesAndParsesStructuredOutput(t *testing.T) {
	client := &fakeModelClient{content: `{"summary":"an overview","topics":["a","b"],"quality_criteria":{"min_length":500},"knowledge_gaps":[],"sources":[],"recommendations":[]}`}
	a := New(newTestRouter(model.TierBalanced, client), nil, nil, nil, nil, nil, nil)

	out, err := a.ResearchDomain(context.Background(), ResearchDomainInput{DomainName: "Swedish Architecture"})
	require.NoError(t, err)
	require.Equal(t, "an overview", out.Summary)
	require.Equal(t, []string{"a", "b"}, out.Topics)
	require.Equal(t, 500, out.QualityCriteria.MinLength)
}

func TestResearchDomainRejectsSchemaViolation(t *testing.T) {
	client := &fakeModelClient{content: `{"summary":"","topics":[]}`}
	a := New(newTestRouter(model.TierBalanced, client), nil, nil, nil, nil, nil, nil)

	_, err := a.ResearchDomain(context.Background(), ResearchDomainInput{DomainName: "Empty"})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestResearchDomainWrapsUpstreamFailure(t *testing.T) {
	client := &fakeModelClient{err: errors.New("connection reset")}
	a := New(newTestRouter(model.TierBalanced, client), nil, nil, nil, nil, nil, nil)

	_, err := a.ResearchDomain(context.Background(), ResearchDomainInput{DomainName: "X"})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestAssessDocumentRelevanceParsesQualityIndicators(t *testing.T) {
	client := &fakeModelClient{content: `{"relevance_score":9.2,"is_relevant":true,"summary":"good fit","key_points":["p1"],"topics":["t1"],"quality_indicators":{"clarity":0.9,"completeness":0.8,"accuracy":0.95}}`}
	a := New(newTestRouter(model.TierFastCheap, client), nil, nil, nil, nil, nil, nil)

	out, err := a.AssessDocumentRelevance(context.Background(), AssessDocumentRelevanceInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	require.Equal(t, 9.2, out.RelevanceScore)
	require.True(t, out.IsRelevant)
	require.InDelta(t, 0.9, out.QualityIndicators.Clarity, 0.0001)
}

func TestIndexDomainTreatsConflictAsSuccess(t *testing.T) {
	vectors := &fakeVectorStore{conflictAfter: 1}
	a := New(nil, nil, nil, vectors, nil, nil, nil)

	_, err := a.IndexDomain(context.Background(), IndexDomainInput{Domain: domain.Domain{ID: "dom-1"}})
	require.NoError(t, err)

	_, err = a.IndexDomain(context.Background(), IndexDomainInput{Domain: domain.Domain{ID: "dom-1"}})
	require.NoError(t, err, "re-running index_domain for the same id must remain idempotent")
	require.Equal(t, 2, vectors.calls)
}

func TestExtractTextFailureIsTerminalExtractionFailure(t *testing.T) {
	a := New(nil, failingExtractor{}, nil, nil, nil, nil, nil)

	_, err := a.ExtractText(context.Background(), ExtractTextInput{FileRef: "f.pdf"})
	require.ErrorIs(t, err, ErrExtractionFailure)
}

func TestGenerateEmbeddingsPreservesChunkOrder(t *testing.T) {
	a := New(nil, nil, fakeEmbeddings{}, nil, nil, nil, nil)

	out, err := a.GenerateEmbeddings(context.Background(), GenerateEmbeddingsInput{Chunks: []string{"a", "b", "c"}})
	require.NoError(t, err)
	require.Len(t, out.Vectors, 3)
	require.Equal(t, float32(2), out.Vectors[2][0])
}

func TestUpdateGraphCallsUpsertOnce(t *testing.T) {
	graph := &fakeGraphStore{}
	a := New(nil, nil, nil, nil, graph, nil, nil)

	out, err := a.UpdateGraph(context.Background(), UpdateGraphInput{DocumentID: "doc-1", Topics: []string{"t"}})
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, 1, graph.calls)
}

func TestNotifyContributorNeverFailsTheActivity(t *testing.T) {
	a := New(nil, nil, nil, nil, nil, mustNewSignalService(t), nil)

	out, err := a.NotifyContributor(context.Background(), NotifyContributorInput{ContributorID: "user-1", Decision: "approved"})
	require.NoError(t, err)
	require.True(t, out.Delivered)
}

func TestSendSignalPersistentSucceedsWithNoSubscriber(t *testing.T) {
	a := New(nil, nil, nil, nil, nil, mustNewSignalService(t), nil)

	out, err := a.SendSignalPersistent(context.Background(), SendSignalPersistentInput{
		UserID:     "user-1",
		WorkflowID: "wf-1",
		Type:       stream.SignalTypeProgress,
		Payload:    stream.ProgressData{Progress: 0.5, Step: "extract_text"},
	})
	require.NoError(t, err)
	require.True(t, out.OK)
}
