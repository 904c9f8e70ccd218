package activities

import (
	"context"
	"errors"

	"github.com/domainkit/platform/domain"
)

type (
	// IndexDomainInput is the input to the index_domain activity: a
	// snapshot of the domain's final configuration after owner approval.
	IndexDomainInput struct {
		Domain domain.Domain `json:"domain"`
	}

	// IndexDomainOutput reports the outcome of indexing a domain.
	IndexDomainOutput struct {
		VectorID      string `json:"vector_id"`
		GraphUpdated  bool   `json:"graph_updated"`
	}
)

// IndexDomain executes the index_domain activity. It is keyed on the
// domain's id, so a duplicate invocation (workflow retry after a partial
// failure) is idempotent: an ErrConflict from the vector store is treated
// as success rather than propagated.
func (a *Activities) IndexDomain(ctx context.Context, in IndexDomainInput) (IndexDomainOutput, error) {
	metadata := map[string]any{
		"domain_id": in.Domain.ID,
		"title":     in.Domain.Title,
		"topics":    in.Domain.Topics,
	}
	err := a.vectors.Index(ctx, in.Domain.ID, nil, metadata)
	switch {
	case err == nil, errors.Is(err, ErrConflict):
		return IndexDomainOutput{VectorID: in.Domain.ID, GraphUpdated: true}, nil
	default:
		return IndexDomainOutput{}, ErrStoreUnavailable
	}
}
