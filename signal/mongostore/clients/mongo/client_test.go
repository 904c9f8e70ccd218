package mongo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/domainkit/platform/signal/stream"
)

func TestEnsureIndexes(t *testing.T) {
	signals := newFakeSignalsCollection()
	err := ensureIndexes(context.Background(), signals)
	require.NoError(t, err)
	require.Equal(t, 3, signals.indexCreated)
}

func TestInsertSignalIsIdempotent(t *testing.T) {
	client := mustNewTestClient()
	ctx := context.Background()
	sig := stream.Signal{
		ID:         "sig-1",
		UserID:     "user-1",
		WorkflowID: "wf-1",
		Type:       stream.SignalTypeProgress,
		Data:       stream.ProgressData{Progress: 0.5},
		Timestamp:  time.Now(),
	}

	require.NoError(t, client.InsertSignal(ctx, sig))
	require.NoError(t, client.InsertSignal(ctx, sig))

	inbox, err := client.ListInbox(ctx, "user-1", InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.Equal(t, "sig-1", inbox[0].ID)
	require.False(t, inbox[0].Read)
}

func TestInsertSignalValidation(t *testing.T) {
	client := mustNewTestClient()
	err := client.InsertSignal(context.Background(), stream.Signal{UserID: "user-1"})
	require.EqualError(t, err, "signal id is required")
	err = client.InsertSignal(context.Background(), stream.Signal{ID: "sig-1"})
	require.EqualError(t, err, "signal user id is required")
}

func TestListInboxFiltersByWorkflowAndUnread(t *testing.T) {
	client := mustNewTestClient()
	ctx := context.Background()
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", WorkflowID: "wf-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s2", UserID: "user-1", WorkflowID: "wf-2", Type: stream.SignalTypeProgress, Timestamp: time.Now().Add(time.Second)}))
	require.NoError(t, client.MarkRead(ctx, "s1", "user-1", time.Now()))

	byWorkflow, err := client.ListInbox(ctx, "user-1", InboxQuery{WorkflowID: "wf-2"})
	require.NoError(t, err)
	require.Len(t, byWorkflow, 1)
	require.Equal(t, "s2", byWorkflow[0].ID)

	unread, err := client.ListInbox(ctx, "user-1", InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "s2", unread[0].ID)
}

func TestListInboxOrderedByTimestamp(t *testing.T) {
	client := mustNewTestClient()
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s2", UserID: "user-1", Type: stream.SignalTypeProgress, Timestamp: base.Add(2 * time.Second)}))
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", Type: stream.SignalTypeProgress, Timestamp: base.Add(time.Second)}))

	inbox, err := client.ListInbox(ctx, "user-1", InboxQuery{})
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	require.Equal(t, "s1", inbox[0].ID)
	require.Equal(t, "s2", inbox[1].ID)
}

func TestMarkReadDistinguishesNotFoundFromNotOwner(t *testing.T) {
	client := mustNewTestClient()
	ctx := context.Background()
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", Type: stream.SignalTypeError, Timestamp: time.Now()}))

	err := client.MarkRead(ctx, "s1", "user-2", time.Now())
	require.ErrorIs(t, err, ErrNotOwner)

	err = client.MarkRead(ctx, "missing", "user-1", time.Now())
	require.ErrorIs(t, err, ErrSignalNotFound)

	require.NoError(t, client.MarkRead(ctx, "s1", "user-1", time.Now()))
	inbox, err := client.ListInbox(ctx, "user-1", InboxQuery{})
	require.NoError(t, err)
	require.True(t, inbox[0].Read)
	require.NotNil(t, inbox[0].ReadAt)
}

func TestMarkAllReadScopedToUserAndWorkflow(t *testing.T) {
	client := mustNewTestClient()
	ctx := context.Background()
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s1", UserID: "user-1", WorkflowID: "wf-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s2", UserID: "user-1", WorkflowID: "wf-2", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))
	require.NoError(t, client.InsertSignal(ctx, stream.Signal{ID: "s3", UserID: "user-2", WorkflowID: "wf-1", Type: stream.SignalTypeProgress, Timestamp: time.Now()}))

	n, err := client.MarkAllRead(ctx, "user-1", "wf-1", time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	unread, err := client.ListInbox(ctx, "user-1", InboxQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "wf-2", unread[0].WorkflowID)
}

func mustNewTestClient() *client {
	signals := newFakeSignalsCollection()
	cl, err := newClientWithCollection(nil, signals, time.Second)
	if err != nil {
		panic(err)
	}
	return cl
}

type fakeSignalsCollection struct {
	mu           sync.Mutex
	indexCreated int
	docs         map[string]signalDocument
}

func newFakeSignalsCollection() *fakeSignalsCollection {
	return &fakeSignalsCollection{docs: make(map[string]signalDocument)}
}

func (c *fakeSignalsCollection) FindOne(_ context.Context, filter any, _ ...options.Lister[options.FindOneOptions]) singleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	signalID := filter.(bson.M)["signal_id"].(string)
	doc, ok := c.docs[signalID]
	if !ok {
		return fakeSingleResult{err: mongodriver.ErrNoDocuments}
	}
	copyDoc := doc
	return fakeSingleResult{doc: &copyDoc}
}

func (c *fakeSignalsCollection) Find(_ context.Context, filter any, _ ...options.Lister[options.FindOptions]) (cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := filter.(bson.M)
	userID, _ := f["user_id"].(string)
	workflowID, hasWorkflow := f["workflow_id"].(string)
	readOnly, hasRead := f["read"].(bool)

	docs := make([]signalDocument, 0, len(c.docs))
	for _, doc := range c.docs {
		if doc.UserID != userID {
			continue
		}
		if hasWorkflow && doc.WorkflowID != workflowID {
			continue
		}
		if hasRead && doc.Read != readOnly {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Timestamp.Before(docs[j].Timestamp) })
	asAny := make([]any, len(docs))
	for i, doc := range docs {
		copyDoc := doc
		asAny[i] = &copyDoc
	}
	return newFakeCursor(asAny), nil
}

func (c *fakeSignalsCollection) UpdateOne(_ context.Context, filter any, update any,
	_ ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := filter.(bson.M)
	signalID := f["signal_id"].(string)
	up := update.(bson.M)

	if soi, ok := up["$setOnInsert"].(bson.M); ok {
		if _, exists := c.docs[signalID]; exists {
			return &mongodriver.UpdateResult{MatchedCount: 1}, nil
		}
		c.docs[signalID] = signalDocument{
			SignalID:   soi["signal_id"].(string),
			UserID:     soi["user_id"].(string),
			WorkflowID: soi["workflow_id"].(string),
			SignalType: soi["signal_type"].(stream.SignalType),
			Data:       soi["data"],
			Timestamp:  soi["timestamp"].(time.Time),
			Read:       soi["read"].(bool),
		}
		return &mongodriver.UpdateResult{UpsertedCount: 1}, nil
	}

	userID, hasOwner := f["user_id"].(string)
	doc, ok := c.docs[signalID]
	if !ok || (hasOwner && doc.UserID != userID) {
		return &mongodriver.UpdateResult{MatchedCount: 0}, nil
	}
	if set, ok := up["$set"].(bson.M); ok {
		if v, ok := set["read"].(bool); ok {
			doc.Read = v
		}
		if v, ok := set["read_at"].(time.Time); ok {
			doc.ReadAt = &v
		}
	}
	c.docs[signalID] = doc
	return &mongodriver.UpdateResult{MatchedCount: 1}, nil
}

func (c *fakeSignalsCollection) UpdateMany(_ context.Context, filter any, update any,
	_ ...options.Lister[options.UpdateManyOptions]) (*mongodriver.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := filter.(bson.M)
	userID, _ := f["user_id"].(string)
	workflowID, hasWorkflow := f["workflow_id"].(string)
	up := update.(bson.M)
	set, _ := up["$set"].(bson.M)

	var modified int64
	for id, doc := range c.docs {
		if doc.UserID != userID || doc.Read {
			continue
		}
		if hasWorkflow && doc.WorkflowID != workflowID {
			continue
		}
		if v, ok := set["read"].(bool); ok {
			doc.Read = v
		}
		if v, ok := set["read_at"].(time.Time); ok {
			doc.ReadAt = &v
		}
		c.docs[id] = doc
		modified++
	}
	return &mongodriver.UpdateResult{ModifiedCount: modified}, nil
}

func (c *fakeSignalsCollection) Indexes() indexView {
	return fakeIndexView{parent: &c.indexCreated}
}

type fakeIndexView struct {
	parent *int
}

func (v fakeIndexView) CreateOne(_ context.Context, model mongodriver.IndexModel,
	_ ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	if len(model.Keys.(bson.D)) == 0 {
		return "", errors.New("missing keys")
	}
	*v.parent++
	return "idx", nil
}

type fakeSingleResult struct {
	doc any
	err error
}

func (r fakeSingleResult) Decode(val any) error {
	if r.err != nil {
		return r.err
	}
	switch typed := val.(type) {
	case *signalDocument:
		*typed = *(r.doc.(*signalDocument))
	default:
		return errors.New("unsupported decode target")
	}
	return nil
}

type fakeCursor struct {
	docs []any
	pos  int
}

func newFakeCursor(docs []any) *fakeCursor {
	return &fakeCursor{docs: docs, pos: -1}
}

func (c *fakeCursor) Close(context.Context) error { return nil }

func (c *fakeCursor) Next(context.Context) bool {
	c.pos++
	return c.pos < len(c.docs)
}

func (c *fakeCursor) Decode(val any) error {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return errors.New("no current document")
	}
	switch typed := val.(type) {
	case *signalDocument:
		*typed = *(c.docs[c.pos].(*signalDocument))
	default:
		return errors.New("unsupported decode target")
	}
	return nil
}

func (c *fakeCursor) Err() error { return nil }
