package temporal

import (
	"go.temporal.io/api/serviceerror"

	"github.com/domainkit/platform/engine"
)

// mapSignalError translates Temporal service errors surfaced by
// SignalWorkflow into the engine's backend-agnostic sentinel errors, so
// signal delivery code can branch on workflow lifecycle state without
// importing the Temporal SDK.
func mapSignalError(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *serviceerror.NotFound:
		return engine.ErrWorkflowNotFound
	case *serviceerror.FailedPrecondition:
		return engine.ErrWorkflowCompleted
	default:
		return err
	}
}
