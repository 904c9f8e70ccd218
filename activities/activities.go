package activities

import (
	"context"

	"github.com/google/uuid"

	"github.com/domainkit/platform/llm/model"
	"github.com/domainkit/platform/signal"
	"github.com/domainkit/platform/signal/stream"
	"github.com/domainkit/platform/telemetry"
)

type (
	// FileExtractor is the out-of-scope external collaborator that turns raw
	// file bytes into text, chunks, and lightweight entity/topic metadata.
	// extract_text defines only this narrow contract; the concrete backend
	// (a document-extraction service) is not part of this system.
	FileExtractor interface {
		Extract(ctx context.Context, fileRef string, data []byte) (ExtractedDocument, error)
	}

	// EmbeddingProvider is the out-of-scope external collaborator that turns
	// text chunks into embedding vectors.
	EmbeddingProvider interface {
		Embed(ctx context.Context, chunks []string) ([][]float32, error)
	}

	// VectorStore is the out-of-scope external collaborator backing
	// index_domain and index_weaviate. Implementations must be idempotent
	// on the supplied id: indexing the same id twice leaves the store in
	// the same final state, and SHOULD return ErrConflict (not an error
	// that aborts the workflow) when the id already exists.
	VectorStore interface {
		Index(ctx context.Context, id string, vectors [][]float32, metadata map[string]any) error
	}

	// GraphStore is the out-of-scope external collaborator backing
	// update_graph.
	GraphStore interface {
		Upsert(ctx context.Context, documentID string, topics, entities []string) error
	}

	// Activities bundles the collaborators every registered activity method
	// needs: the LLM tier gateway, the out-of-scope storage backends, and
	// the in-scope signal service used by notify_contributor and
	// send_signal_persistent.
	Activities struct {
		router     *model.TierRouter
		extractor  FileExtractor
		embeddings EmbeddingProvider
		vectors    VectorStore
		graph      GraphStore
		signals    *signal.Service
		logger     telemetry.Logger
	}
)

// New constructs an Activities bundle. logger may be nil, in which case
// activity-level logging is discarded.
func New(router *model.TierRouter, extractor FileExtractor, embeddings EmbeddingProvider, vectors VectorStore, graph GraphStore, signals *signal.Service, logger telemetry.Logger) *Activities {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Activities{
		router:     router,
		extractor:  extractor,
		embeddings: embeddings,
		vectors:    vectors,
		graph:      graph,
		signals:    signals,
		logger:     logger,
	}
}

// complete resolves task's default tier (or tier if explicitly set),
// enforces budgetUSD when positive, and runs the completion.
func (a *Activities) complete(ctx context.Context, task string, tier model.Tier, req model.Request, budgetUSD float64) (model.Response, model.Tier, error) {
	if tier == "" {
		tier = model.TaskDefaultTier[task]
	}
	req.Tier = tier
	client, profile, resolved, err := a.router.ResolveWithBudget(tier, req, budgetUSD)
	if err != nil {
		if budgetUSD > 0 {
			return model.Response{}, "", ErrBudgetExceeded
		}
		return model.Response{}, "", err
	}
	resp, err := client.Complete(ctx, profile, req)
	if err != nil {
		return model.Response{}, "", joinUpstream(err)
	}
	return resp, resolved, nil
}

func joinUpstream(err error) error {
	return &upstreamError{cause: err}
}

type upstreamError struct{ cause error }

func (e *upstreamError) Error() string { return "activities: upstream unavailable: " + e.cause.Error() }

func (e *upstreamError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.cause} }

// notifySignal is a small helper shared by activities that emit a signal as
// part of their own execution (send_signal_persistent, notify_contributor)
// rather than leaving signal emission to the workflow. It assigns the
// signal's id here, not in the workflow: the durable store keys on it, so
// every signal needs one, and only activity code is allowed to call
// something non-deterministic like uuid.NewString.
func (a *Activities) notifySignal(ctx context.Context, sig stream.Signal) (bool, error) {
	if a.signals == nil {
		return false, ErrDeliveryFailure
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if err := a.signals.Send(ctx, sig); err != nil {
		return false, ErrDeliveryFailure
	}
	return true, nil
}
