package activities

import (
	"context"

	"github.com/domainkit/platform/signal/stream"
)

type (
	// NotifyContributorInput is the input to the notify_contributor
	// activity.
	NotifyContributorInput struct {
		ContributorID string `json:"contributor_id"`
		WorkflowID    string `json:"workflow_id"`
		Decision      string `json:"decision"`
		Reason        string `json:"reason,omitempty"`
	}

	// NotifyContributorOutput reports whether the notification was
	// delivered. Per the retry table this activity's failures are never
	// fatal to the workflow: notify_contributor is logged, not retried to
	// exhaustion-then-Failed.
	NotifyContributorOutput struct {
		Delivered bool `json:"delivered"`
	}
)

// NotifyContributor executes the notify_contributor activity by sending a
// completion signal to the contributor's inbox. A delivery failure is
// reported in the output, not returned as an error: this activity never
// fails the workflow.
func (a *Activities) NotifyContributor(ctx context.Context, in NotifyContributorInput) (NotifyContributorOutput, error) {
	delivered, err := a.notifySignal(ctx, stream.Signal{
		UserID:     in.ContributorID,
		WorkflowID: in.WorkflowID,
		Type:       stream.SignalTypeCompletion,
		Data: stream.CompletionData{
			Result:  in.Decision,
			Message: in.Reason,
		},
	})
	if err != nil {
		a.logger.Warn(ctx, "notify_contributor: delivery failed", "contributor_id", in.ContributorID, "error", err.Error())
	}
	return NotifyContributorOutput{Delivered: delivered}, nil
}
