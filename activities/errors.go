// Package activities implements the idempotent, retriable units of work the
// bootstrap and contribution workflows schedule. Each activity accepts a
// typed input, returns a typed output, and surfaces one of the error kinds
// in this file so the calling workflow — never the activity itself — decides
// the resulting state transition.
package activities

import "errors"

// Error kinds an activity may return. Retry exhaustion is handled by the
// engine per the registered retrypolicy.Table entry, not by the activity;
// every kind is retried like any other error, up to that entry's attempts.
// The workflows do not branch on the kind: an activity error that outlasts
// its retries moves the run to Failed with the activity name and error text
// as the reason, except that any extract_text error rejects the document,
// and errors from send_signal_persistent and notify_contributor are ignored.
var (
	// ErrUpstreamUnavailable indicates a transient failure of an external
	// AI provider or store. Retried per policy; on exhaustion the workflow
	// advances to Failed.
	ErrUpstreamUnavailable = errors.New("activities: upstream unavailable")

	// ErrMalformedResponse indicates a structured-output schema violation.
	// Retried a bounded number of times; on exhaustion the workflow treats
	// it as ErrUpstreamUnavailable.
	ErrMalformedResponse = errors.New("activities: malformed response")

	// ErrStoreUnavailable indicates a transient vector/graph/metadata store
	// failure. Retried; exhaustion moves the workflow to Failed.
	ErrStoreUnavailable = errors.New("activities: store unavailable")

	// ErrConflict indicates the target id is already present in an index.
	// Callers treat this as success: indexing activities are keyed on
	// deterministic ids and re-running them is idempotent.
	ErrConflict = errors.New("activities: conflict")

	// ErrBudgetExceeded indicates the LLM cost cap was hit: no tier at or
	// below the requested one fits the call's budget. The workflow marks the
	// run Failed; the reason is the activity's error text, not a fixed
	// "budget" string.
	ErrBudgetExceeded = errors.New("activities: budget exceeded")

	// ErrExtractionFailure indicates an unreadable contributed file. Once the
	// extract_text retries are used up, the contribution workflow marks the
	// document Rejected(reason="extraction_failed").
	ErrExtractionFailure = errors.New("activities: extraction failed")

	// ErrDeliveryFailure indicates the signal service could neither push
	// nor persist a signal. Logged by the caller; never fatal to the
	// workflow.
	ErrDeliveryFailure = errors.New("activities: delivery failed")
)
