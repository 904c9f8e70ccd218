package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/stream"
)

// Store implements the durable half of signal delivery by delegating to the
// Mongo client. A Store is the persist side of the "at least one of
// {push, persist} succeeds" delivery policy: InsertSignal must succeed even
// when no live subscriber is connected to receive the push.
type Store struct {
	client mongo.Client
}

// NewStore builds a Store using the provided client.
func NewStore(client mongo.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// Persist appends sig to the durable inbox, idempotent on sig.ID.
func (s *Store) Persist(ctx context.Context, sig stream.Signal) error {
	return s.client.InsertSignal(ctx, sig)
}

// Inbox lists signals addressed to userID, oldest first.
func (s *Store) Inbox(ctx context.Context, userID string, query mongo.InboxQuery) ([]mongo.StoredSignal, error) {
	return s.client.ListInbox(ctx, userID, query)
}

// MarkRead marks a single signal read on behalf of userID. It returns
// mongo.ErrNotOwner when signalID exists but is addressed to a different
// user, and mongo.ErrSignalNotFound when it does not exist at all.
func (s *Store) MarkRead(ctx context.Context, signalID, userID string) error {
	return s.client.MarkRead(ctx, signalID, userID, time.Now())
}

// MarkAllRead marks every unread signal addressed to userID as read,
// optionally scoped to a single workflow, and reports how many were
// updated.
func (s *Store) MarkAllRead(ctx context.Context, userID, workflowID string) (int64, error) {
	return s.client.MarkAllRead(ctx, userID, workflowID, time.Now())
}
