package contribution

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/domainkit/platform/activities"
	"github.com/domainkit/platform/actor"
	"github.com/domainkit/platform/domain"
	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/engine/inmem"
	"github.com/domainkit/platform/llm/model"
	"github.com/domainkit/platform/retrypolicy"
	"github.com/domainkit/platform/signal"
	"github.com/domainkit/platform/signal/mongostore"
	mongoinmem "github.com/domainkit/platform/signal/mongostore/clients/mongo/inmem"
	"github.com/domainkit/platform/signal/stream"
)

type scriptedClient struct{ score float64 }

func (c *scriptedClient) Complete(context.Context, model.TierProfile, model.Request) (model.Response, error) {
	content := fmt.Sprintf(`{"relevance_score":%.1f,"is_relevant":true,"summary":"s","key_points":["k1"],"topics":["t1"],"quality_indicators":{"clarity":8,"completeness":7,"accuracy":9},"rejection_reason":""}`, c.score)
	return model.Response{Content: content, Model: "fake"}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(context.Context, string, []byte) (activities.ExtractedDocument, error) {
	return activities.ExtractedDocument{Text: "extracted text", Chunks: []string{"chunk1", "chunk2"}, Topics: []string{"t1"}, Entities: []string{"e1"}}, nil
}

type fakeEmbeddings struct{}

func (fakeEmbeddings) Embed(context.Context, []string) ([][]float32, error) {
	return [][]float32{{0.1, 0.2}, {0.3, 0.4}}, nil
}

type fakeVectorStore struct{}

func (fakeVectorStore) Index(context.Context, string, [][]float32, map[string]any) error { return nil }

type fakeGraphStore struct{}

func (fakeGraphStore) Upsert(context.Context, string, []string, []string) error { return nil }

func buildEngine(t *testing.T, score float64) engine.Engine {
	t.Helper()
	eng := inmem.New()
	require.NoError(t, eng.RegisterWorkflow(context.Background(), engine.WorkflowDefinition{Name: Name, TaskQueue: "document-analysis", Handler: Workflow}))

	router := model.NewTierRouter()
	router.Register(model.TierFastCheap, &scriptedClient{score: score})

	store, err := mongostore.NewStore(mongoinmem.New())
	require.NoError(t, err)
	signals := signal.NewService(stream.NewHub(), store, nil)

	a := activities.New(router, fakeExtractor{}, fakeEmbeddings{}, fakeVectorStore{}, fakeGraphStore{}, signals, nil)
	require.NoError(t, activities.Register(context.Background(), eng, a, retrypolicy.NewTable()))
	return eng
}

func TestContributionAutoApprovedReachesIndexed(t *testing.T) {
	eng := buildEngine(t, 9)

	h, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "doc-1",
		Workflow: Name,
		Input: Input{
			DocumentID:    "doc-1",
			DomainID:      "domain-1",
			ContributorID: "contributor-1",
			FileRef:       "s3://bucket/doc-1.pdf",
		},
	})
	require.NoError(t, err)

	var result Result
	require.NoError(t, h.Wait(context.Background(), &result))
	require.Equal(t, domain.DocumentStatusIndexed, result.Document.Status)
	require.Empty(t, result.ErrorMessage)
	require.True(t, result.Document.IndexRefs.GraphUpdated)
}

func TestContributionAutoRejectedNeverExtracts(t *testing.T) {
	eng := buildEngine(t, 3)

	h, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "doc-2",
		Workflow: Name,
		Input: Input{
			DocumentID:    "doc-2",
			DomainID:      "domain-1",
			ContributorID: "contributor-1",
			FileRef:       "s3://bucket/doc-2.pdf",
		},
	})
	require.NoError(t, err)

	var result Result
	require.NoError(t, h.Wait(context.Background(), &result))
	require.Equal(t, domain.DocumentStatusRejected, result.Document.Status)
	require.Equal(t, "auto_rejected", result.ErrorMessage)
}

func TestContributionPendingReviewControllerApproves(t *testing.T) {
	eng := buildEngine(t, 7)
	dir, err := actor.Load([]byte(`
actors:
  - id: controller-a
    kind: human
    name: Controller A
    email: a@example.com
  - id: controller-b
    kind: human
    name: Controller B
    email: b@example.com
`))
	require.NoError(t, err)

	h, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "doc-3",
		Workflow: Name,
		Input: Input{
			DocumentID:                "doc-3",
			DomainID:                  "domain-1",
			ContributorID:             "contributor-1",
			FileRef:                   "s3://bucket/doc-3.pdf",
			ControllerPool:            []string{"controller-a", "controller-b"},
			Directory:                 dir,
			ControllerDecisionTimeout: time.Hour,
		},
	})
	require.NoError(t, err)

	require.NoError(t, h.Signal(context.Background(), SignalSubmitReview, Review{Approved: true, ControllerID: "controller-a"}))

	var result Result
	require.NoError(t, h.Wait(context.Background(), &result))
	require.Equal(t, domain.DocumentStatusIndexed, result.Document.Status)
}

func TestContributionPendingReviewControllerRejects(t *testing.T) {
	eng := buildEngine(t, 7)

	h, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "doc-4",
		Workflow: Name,
		Input: Input{
			DocumentID:    "doc-4",
			DomainID:      "domain-1",
			ContributorID: "contributor-1",
			FileRef:       "s3://bucket/doc-4.pdf",
		},
	})
	require.NoError(t, err)

	require.NoError(t, h.Signal(context.Background(), SignalSubmitReview, Review{Approved: false, Feedback: "needs more sources"}))

	var result Result
	require.NoError(t, h.Wait(context.Background(), &result))
	require.Equal(t, domain.DocumentStatusRejected, result.Document.Status)
	require.Equal(t, "controller_rejected", result.ErrorMessage)
	require.Equal(t, "needs more sources", result.Document.Analysis.RejectionReason)
}

func TestContributionControllerSilentTimesOut(t *testing.T) {
	eng := buildEngine(t, 7)

	h, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:       "doc-5",
		Workflow: Name,
		Input: Input{
			DocumentID:                "doc-5",
			DomainID:                  "domain-1",
			ContributorID:             "contributor-1",
			FileRef:                   "s3://bucket/doc-5.pdf",
			ControllerDecisionTimeout: 10 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	var result Result
	require.NoError(t, h.Wait(context.Background(), &result))
	require.Equal(t, domain.DocumentStatusRejected, result.Document.Status)
	require.Equal(t, "controller_timeout", result.ErrorMessage)
}
