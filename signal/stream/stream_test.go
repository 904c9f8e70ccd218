package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errSendFailed = errors.New("send failed")

type recordingSink struct {
	mu       sync.Mutex
	received []Signal
	closed   bool
}

func (s *recordingSink) Send(_ context.Context, signal Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, signal)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestHubPushDeliversToSubscribedUser(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	sink := &recordingSink{}
	hub.Subscribe("user-1", sink)

	delivered := hub.Push(context.Background(), Signal{
		ID:         "sig-1",
		UserID:     "user-1",
		WorkflowID: "wf-1",
		Type:       SignalTypeStatusUpdate,
		Data:       StatusUpdateData{Status: "researching"},
		Timestamp:  time.Now(),
	})

	if !delivered {
		t.Fatal("expected delivery to subscribed user")
	}
	if sink.count() != 1 {
		t.Fatalf("expected 1 received signal, got %d", sink.count())
	}
}

func TestHubPushWithNoSubscribersReturnsFalse(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	delivered := hub.Push(context.Background(), Signal{
		ID:     "sig-1",
		UserID: "nobody-home",
		Type:   SignalTypeCompletion,
	})

	if delivered {
		t.Fatal("expected no delivery when there are no subscribers")
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	sink := &recordingSink{}
	hub.Subscribe("user-1", sink)
	hub.Unsubscribe("user-1", sink)

	delivered := hub.Push(context.Background(), Signal{UserID: "user-1", Type: SignalTypeProgress})

	if delivered {
		t.Fatal("expected no delivery after unsubscribe")
	}
	if hub.SubscriberCount("user-1") != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.SubscriberCount("user-1"))
	}
}

type failingSink struct {
	closed bool
}

func (s *failingSink) Send(context.Context, Signal) error { return errSendFailed }

func (s *failingSink) Close(context.Context) error {
	s.closed = true
	return nil
}

func TestHubPushDisconnectsFailingSink(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	sink := &failingSink{}
	hub.Subscribe("user-1", sink)

	delivered := hub.Push(context.Background(), Signal{UserID: "user-1", Type: SignalTypeError})

	if delivered {
		t.Fatal("expected no delivery from a failing sink")
	}
	if !sink.closed {
		t.Fatal("expected failing sink to be closed")
	}
	if hub.SubscriberCount("user-1") != 0 {
		t.Fatalf("expected failing sink to be unsubscribed, got %d subscribers", hub.SubscriberCount("user-1"))
	}
}

func TestHubPushFansOutToMultipleSinksForSameUser(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	hub.Subscribe("user-1", sinkA)
	hub.Subscribe("user-1", sinkB)

	hub.Push(context.Background(), Signal{UserID: "user-1", Type: SignalTypeProgress})

	if sinkA.count() != 1 || sinkB.count() != 1 {
		t.Fatalf("expected both sinks to receive the signal, got %d and %d", sinkA.count(), sinkB.count())
	}
}
