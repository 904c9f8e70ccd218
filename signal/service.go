// Package signal implements the Signal + Inbox Service (C3): every
// workflow state transition is sent through Service.Send, which pushes to
// any live subscriber and durably persists to the addressed user's inbox,
// succeeding as long as at least one of the two writes succeeds.
package signal

import (
	"context"
	"errors"
	"time"

	"github.com/domainkit/platform/signal/mongostore"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/stream"
	"github.com/domainkit/platform/telemetry"
)

// ErrDeliveryFailed is returned when neither the push nor the persist leg
// of Send succeeds. Per spec it is never fatal to the calling workflow;
// workflows log it and continue (§7 DeliveryFailure).
var ErrDeliveryFailed = errors.New("signal: neither push nor persist succeeded")

// Service implements the two-write delivery policy over a push Hub and a
// durable Store.
type Service struct {
	hub    *stream.Hub
	store  *mongostore.Store
	logger telemetry.Logger
}

// NewService builds a Service over hub and store. logger may be nil, in
// which case delivery outcomes are not logged.
func NewService(hub *stream.Hub, store *mongostore.Store, logger telemetry.Logger) *Service {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Service{hub: hub, store: store, logger: logger}
}

// Send delivers sig to its addressed user: push to any live subscriber, and
// append to the durable inbox. It returns ErrDeliveryFailed only when both
// writes fail; a failure of either write alone is logged, not returned.
func (s *Service) Send(ctx context.Context, sig stream.Signal) error {
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now().UTC()
	}

	pushed := s.hub.Push(ctx, sig)

	persistErr := s.store.Persist(ctx, sig)
	persisted := persistErr == nil
	if persistErr != nil {
		s.logger.Warn(ctx, "signal: persist failed", "signal_id", sig.ID, "error", persistErr.Error())
	}
	if !pushed {
		s.logger.Debug(ctx, "signal: no live subscriber", "user_id", sig.UserID, "signal_id", sig.ID)
	}

	if !pushed && !persisted {
		return ErrDeliveryFailed
	}
	return nil
}

// Subscribe registers sink to receive live pushes addressed to userID.
func (s *Service) Subscribe(userID string, sink stream.Sink) {
	s.hub.Subscribe(userID, sink)
}

// Unsubscribe removes sink from userID's live subscriber set.
func (s *Service) Unsubscribe(userID string, sink stream.Sink) {
	s.hub.Unsubscribe(userID, sink)
}

// Inbox lists userID's persisted signals, oldest first.
func (s *Service) Inbox(ctx context.Context, userID string, query mongo.InboxQuery) ([]mongo.StoredSignal, error) {
	return s.store.Inbox(ctx, userID, query)
}

// UnreadCount returns how many of userID's persisted signals are unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.store.Inbox(ctx, userID, mongo.InboxQuery{UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead marks signalID read on behalf of userID.
func (s *Service) MarkRead(ctx context.Context, signalID, userID string) error {
	return s.store.MarkRead(ctx, signalID, userID)
}

// MarkAllRead marks every unread signal addressed to userID as read,
// optionally scoped to a single workflow.
func (s *Service) MarkAllRead(ctx context.Context, userID, workflowID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, workflowID)
}
