package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/stream"
)

func TestInsertSignalIsIdempotent(t *testing.T) {
	c := New()
	ctx := context.Background()
	sig := stream.Signal{ID: "sig-1", UserID: "user-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}

	require.NoError(t, c.InsertSignal(ctx, sig))
	require.NoError(t, c.InsertSignal(ctx, sig))

	inbox, err := c.ListInbox(ctx, "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestListInboxFiltersByWorkflowAndUnread(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", WorkflowID: "wf-1", Type: stream.SignalTypeProgress}))
	require.NoError(t, c.InsertSignal(ctx, stream.Signal{ID: "s2", UserID: "user-1", WorkflowID: "wf-2", Type: stream.SignalTypeProgress}))
	require.NoError(t, c.MarkRead(ctx, "s1", "user-1", time.Now()))

	byWorkflow, err := c.ListInbox(ctx, "user-1", mongo.InboxQuery{WorkflowID: "wf-2"})
	require.NoError(t, err)
	require.Len(t, byWorkflow, 1)
	require.Equal(t, "s2", byWorkflow[0].ID)

	unread, err := c.ListInbox(ctx, "user-1", mongo.InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "s2", unread[0].ID)
}

func TestMarkReadRejectsNonOwner(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", Type: stream.SignalTypeError}))

	err := c.MarkRead(ctx, "s1", "user-2", time.Now())
	require.ErrorIs(t, err, mongo.ErrNotOwner)
}

func TestMarkReadMissingSignal(t *testing.T) {
	c := New()
	err := c.MarkRead(context.Background(), "missing", "user-1", time.Now())
	require.ErrorIs(t, err, mongo.ErrSignalNotFound)
}

func TestReset(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", Type: stream.SignalTypeProgress}))
	c.Reset()
	inbox, err := c.ListInbox(ctx, "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Empty(t, inbox)
}
