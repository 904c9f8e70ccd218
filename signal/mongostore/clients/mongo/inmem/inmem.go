// Package inmem provides an in-memory implementation of the signal mongo
// client for tests and local tooling.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/stream"
)

// Client provides an in-memory implementation of mongo.Client.
type Client struct {
	mu      sync.RWMutex
	signals map[string]mongo.StoredSignal
}

// New returns a Client with an empty inbox.
func New() *Client {
	return &Client{signals: make(map[string]mongo.StoredSignal)}
}

// Name implements health.Pinger.
func (c *Client) Name() string { return "signal-mongo-inmem" }

// Ping implements health.Pinger and always succeeds.
func (c *Client) Ping(context.Context) error { return nil }

// InsertSignal implements mongo.Client.
func (c *Client) InsertSignal(_ context.Context, sig stream.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.signals[sig.ID]; exists {
		// Mirrors the $setOnInsert semantics of the real client: a
		// re-delivered signal is a no-op, never an overwrite.
		return nil
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}
	c.signals[sig.ID] = mongo.StoredSignal{Signal: sig}
	return nil
}

// ListInbox implements mongo.Client.
func (c *Client) ListInbox(_ context.Context, userID string, query mongo.InboxQuery) ([]mongo.StoredSignal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []mongo.StoredSignal
	for _, s := range c.signals {
		if s.UserID != userID {
			continue
		}
		if query.WorkflowID != "" && s.WorkflowID != query.WorkflowID {
			continue
		}
		if query.UnreadOnly && s.Read {
			continue
		}
		out = append(out, s)
	}
	sortByTimestamp(out)
	return out, nil
}

// MarkRead implements mongo.Client.
func (c *Client) MarkRead(_ context.Context, signalID, userID string, readAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.signals[signalID]
	if !ok {
		return mongo.ErrSignalNotFound
	}
	if s.UserID != userID {
		return mongo.ErrNotOwner
	}
	s.Read = true
	at := readAt.UTC()
	s.ReadAt = &at
	c.signals[signalID] = s
	return nil
}

// MarkAllRead implements mongo.Client.
func (c *Client) MarkAllRead(_ context.Context, userID, workflowID string, readAt time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for id, s := range c.signals {
		if s.UserID != userID || s.Read {
			continue
		}
		if workflowID != "" && s.WorkflowID != workflowID {
			continue
		}
		s.Read = true
		at := readAt.UTC()
		s.ReadAt = &at
		c.signals[id] = s
		count++
	}
	return count, nil
}

// Reset clears all stored signals (useful in tests).
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = make(map[string]mongo.StoredSignal)
}

func sortByTimestamp(signals []mongo.StoredSignal) {
	for i := 1; i < len(signals); i++ {
		for j := i; j > 0 && signals[j].Timestamp.Before(signals[j-1].Timestamp); j-- {
			signals[j], signals[j-1] = signals[j-1], signals[j]
		}
	}
}
