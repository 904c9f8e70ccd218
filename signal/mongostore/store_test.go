package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo/inmem"
	"github.com/domainkit/platform/signal/stream"
)

func TestNewStoreRequiresClient(t *testing.T) {
	_, err := NewStore(nil)
	require.EqualError(t, err, "client is required")
}

func TestPersistIsIdempotentOnSignalID(t *testing.T) {
	store, err := NewStore(inmem.New())
	require.NoError(t, err)
	ctx := context.Background()

	sig := stream.Signal{
		ID:         "sig-1",
		UserID:     "user-1",
		WorkflowID: "wf-1",
		Type:       stream.SignalTypeCompletion,
		Data:       stream.CompletionData{Message: "done"},
		Timestamp:  time.Now(),
	}

	require.NoError(t, store.Persist(ctx, sig))
	require.NoError(t, store.Persist(ctx, sig))

	inbox, err := store.Inbox(ctx, "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	store, err := NewStore(inmem.New())
	require.NoError(t, err)
	ctx := context.Background()

	sig := stream.Signal{ID: "sig-1", UserID: "user-1", Type: stream.SignalTypeStatusUpdate}
	require.NoError(t, store.Persist(ctx, sig))

	err = store.MarkRead(ctx, "sig-1", "user-2")
	require.ErrorIs(t, err, mongo.ErrNotOwner)

	require.NoError(t, store.MarkRead(ctx, "sig-1", "user-1"))

	inbox, err := store.Inbox(ctx, "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.True(t, inbox[0].Read)
	require.NotNil(t, inbox[0].ReadAt)
}

func TestMarkReadMissingSignal(t *testing.T) {
	store, err := NewStore(inmem.New())
	require.NoError(t, err)

	err = store.MarkRead(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, mongo.ErrSignalNotFound)
}

func TestMarkAllReadScopedByWorkflow(t *testing.T) {
	store, err := NewStore(inmem.New())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, stream.Signal{ID: "s1", UserID: "user-1", WorkflowID: "wf-1", Type: stream.SignalTypeProgress}))
	require.NoError(t, store.Persist(ctx, stream.Signal{ID: "s2", UserID: "user-1", WorkflowID: "wf-2", Type: stream.SignalTypeProgress}))

	n, err := store.MarkAllRead(ctx, "user-1", "wf-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	unread, err := store.Inbox(ctx, "user-1", mongo.InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "wf-2", unread[0].WorkflowID)
}
