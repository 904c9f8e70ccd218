// Package stream delivers signals to live subscribers over an in-process
// push path. A Signal is a named, payload-carrying notification addressed to
// a user and associated with a workflow run (domain bootstrap or document
// contribution). Workflows emit signals at state transitions; subscribers
// (typically a per-user SSE or WebSocket connection) receive them through a
// Sink.
//
// This package implements only the push half of signal delivery. Per the
// platform's delivery policy, a send succeeds if either the push or the
// durable persist (signal/mongostore) succeeds; this package never treats a
// missing subscriber as an error, since the inbox store is the delivery
// path of record when no one is connected.
package stream

import (
	"context"
	"sync"
	"time"
)

type (
	// Sink delivers signals to a single subscriber's transport (SSE,
	// WebSocket). Implementations must be safe for concurrent Send calls:
	// the same user may have signals delivered from multiple workflow
	// activities concurrently.
	Sink interface {
		// Send publishes a signal to the sink's underlying transport. An
		// error indicates the transport is no longer usable; the caller
		// should Unsubscribe the sink.
		Send(ctx context.Context, signal Signal) error

		// Close releases resources owned by the sink. Close is idempotent.
		Close(ctx context.Context) error
	}

	// Signal is a named, payload-carrying notification delivered to a
	// user's live subscribers and, independently, persisted to the
	// durable inbox.
	Signal struct {
		ID         string     `json:"id"`
		UserID     string     `json:"user_id"`
		WorkflowID string     `json:"workflow_id"`
		Type       SignalType `json:"signal_type"`
		Data       any        `json:"data"`
		Timestamp  time.Time  `json:"timestamp"`
	}

	// StatusUpdateData is the typed payload for a status_update signal.
	StatusUpdateData struct {
		Status   string   `json:"status"`
		Message  string   `json:"message,omitempty"`
		Progress *float64 `json:"progress,omitempty"`
	}

	// ProgressData is the typed payload for a progress signal.
	ProgressData struct {
		Progress float64 `json:"progress"`
		Step     string  `json:"step"`
		Message  string  `json:"message,omitempty"`
	}

	// CompletionData is the typed payload for a completion signal.
	CompletionData struct {
		Result  any    `json:"result"`
		Message string `json:"message,omitempty"`
	}

	// ErrorData is the typed payload for an error signal.
	ErrorData struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	}
)

// SignalType enumerates the closed set of signal payload flavors.
type SignalType string

const (
	// SignalTypeStatusUpdate reports a coarse lifecycle transition.
	SignalTypeStatusUpdate SignalType = "status_update"
	// SignalTypeProgress reports fractional progress through a named step.
	SignalTypeProgress SignalType = "progress"
	// SignalTypeCompletion reports a terminal, successful outcome.
	SignalTypeCompletion SignalType = "completion"
	// SignalTypeError reports a terminal failure.
	SignalTypeError SignalType = "error"
)

// Hub is a process-local registry of live subscribers. It maps each user to
// the set of sinks currently receiving their signals. The map is
// process-scoped by design: cross-process delivery is the durable inbox's
// job, not the push path's.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[Sink]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[Sink]struct{})}
}

// Subscribe registers sink to receive signals addressed to userID.
func (h *Hub) Subscribe(userID string, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[Sink]struct{})
		h.subs[userID] = set
	}
	set[sink] = struct{}{}
}

// Unsubscribe removes sink from userID's subscriber set. It is a no-op if
// sink was never subscribed.
func (h *Hub) Unsubscribe(userID string, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		return
	}
	delete(set, sink)
	if len(set) == 0 {
		delete(h.subs, userID)
	}
}

// Push delivers signal to every live subscriber for signal.UserID. It
// returns true if at least one sink accepted the signal; a false return
// means no sink accepted it, either because there were no live subscribers
// or because every Send failed (not an error — the caller should
// fall back to the durable inbox). Sinks whose Send fails are disconnected
// and removed.
func (h *Hub) Push(ctx context.Context, signal Signal) bool {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.subs[signal.UserID]))
	for s := range h.subs[signal.UserID] {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	delivered := false
	var failed []Sink
	for _, s := range sinks {
		if err := s.Send(ctx, signal); err == nil {
			delivered = true
		} else {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		h.Unsubscribe(signal.UserID, s)
		_ = s.Close(ctx)
	}
	return delivered
}

// SubscriberCount reports how many live sinks are registered for userID.
// Useful for diagnostics and tests; not used on the delivery hot path.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}
