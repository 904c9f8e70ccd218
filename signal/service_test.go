package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/domainkit/platform/signal/mongostore"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/mongostore/clients/mongo/inmem"
	"github.com/domainkit/platform/signal/stream"
)

type recordingSink struct {
	received []stream.Signal
	fail     bool
}

func (s *recordingSink) Send(_ context.Context, sig stream.Signal) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.received = append(s.received, sig)
	return nil
}

func (s *recordingSink) Close(context.Context) error { return nil }

func mustNewService(t *testing.T) *Service {
	t.Helper()
	store, err := mongostore.NewStore(inmem.New())
	require.NoError(t, err)
	return NewService(stream.NewHub(), store, nil)
}

func TestSendDeliversToBothPushAndPersist(t *testing.T) {
	svc := mustNewService(t)
	sink := &recordingSink{}
	svc.Subscribe("user-1", sink)

	err := svc.Send(context.Background(), stream.Signal{ID: "sig-1", UserID: "user-1", Type: stream.SignalTypeProgress})
	require.NoError(t, err)
	require.Len(t, sink.received, 1)

	inbox, err := svc.Inbox(context.Background(), "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestSendSucceedsViaPersistWithNoSubscriber(t *testing.T) {
	svc := mustNewService(t)

	err := svc.Send(context.Background(), stream.Signal{ID: "sig-1", UserID: "user-1", Type: stream.SignalTypeCompletion})
	require.NoError(t, err)

	inbox, err := svc.Inbox(context.Background(), "user-1", mongo.InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	svc := mustNewService(t)
	ctx := context.Background()
	require.NoError(t, svc.Send(ctx, stream.Signal{ID: "s1", UserID: "user-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))
	require.NoError(t, svc.Send(ctx, stream.Signal{ID: "s2", UserID: "user-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))

	n, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, svc.MarkRead(ctx, "s1", "user-1"))
	n, err = svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	marked, err := svc.MarkAllRead(ctx, "user-1", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), marked)
}

// failingClient makes every persist-side write fail, so Send's only path to
// success is a live subscriber.
type failingClient struct{ *inmem.Client }

func (failingClient) InsertSignal(context.Context, stream.Signal) error {
	return errors.New("mongo unavailable")
}

func TestSendFailsOnlyWhenBothPushAndPersistFail(t *testing.T) {
	store, err := mongostore.NewStore(failingClient{inmem.New()})
	require.NoError(t, err)
	svc := NewService(stream.NewHub(), store, nil)

	sink := &recordingSink{fail: true}
	svc.Subscribe("user-1", sink)

	err = svc.Send(context.Background(), stream.Signal{ID: "sig-1", UserID: "user-1", Type: stream.SignalTypeError})
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.Empty(t, sink.received)
}
