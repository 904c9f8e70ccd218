package activities

import (
	"context"

	"github.com/domainkit/platform/signal/stream"
)

type (
	// SendSignalPersistentInput is the input to the send_signal_persistent
	// activity.
	SendSignalPersistentInput struct {
		UserID     string           `json:"user_id"`
		WorkflowID string           `json:"workflow_id"`
		Type       stream.SignalType `json:"signal_type"`
		Payload    any              `json:"payload"`
	}

	// SendSignalPersistentOutput reports whether delivery succeeded.
	SendSignalPersistentOutput struct {
		OK bool `json:"ok"`
	}
)

// SendSignalPersistent executes the send_signal_persistent activity: it is
// the activity form of signal.Service.Send, used by workflows that schedule
// signal delivery as a retriable activity rather than calling the service
// inline. Delivery soft-fails per §4.3: returning ErrDeliveryFailure only
// when neither the push nor the persist leg succeeded.
func (a *Activities) SendSignalPersistent(ctx context.Context, in SendSignalPersistentInput) (SendSignalPersistentOutput, error) {
	ok, err := a.notifySignal(ctx, stream.Signal{
		UserID:     in.UserID,
		WorkflowID: in.WorkflowID,
		Type:       in.Type,
		Data:       in.Payload,
	})
	if err != nil {
		return SendSignalPersistentOutput{}, err
	}
	return SendSignalPersistentOutput{OK: ok}, nil
}
