// Package mongo hosts the MongoDB client used by the durable signal inbox.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/domainkit/platform/signal/stream"
)

const (
	defaultSignalsCollection = "signals"
	defaultOpTimeout         = 5 * time.Second
	signalClientName         = "signal-mongo"
)

var (
	// ErrSignalNotFound is returned when a signal id does not exist.
	ErrSignalNotFound = errors.New("signal: not found")
	// ErrNotOwner is returned when a caller attempts to mutate read-state
	// on a signal addressed to a different user.
	ErrNotOwner = errors.New("signal: caller does not own signal")
)

// StoredSignal is a persisted signal with its durable read-state.
type StoredSignal struct {
	stream.Signal
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// InboxQuery filters a user's inbox listing.
type InboxQuery struct {
	WorkflowID string
	UnreadOnly bool
}

// Client exposes Mongo-backed operations for the durable signal inbox.
type Client interface {
	health.Pinger

	InsertSignal(ctx context.Context, sig stream.Signal) error
	ListInbox(ctx context.Context, userID string, query InboxQuery) ([]StoredSignal, error)
	MarkRead(ctx context.Context, signalID, userID string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID, workflowID string, readAt time.Time) (int64, error)
}

// Options configures the Mongo signal client.
type Options struct {
	Client            *mongodriver.Client
	Database          string
	SignalsCollection string
	Timeout           time.Duration
}

type client struct {
	mongo   *mongodriver.Client
	signals collection
	timeout time.Duration
}

// New returns a Client backed by MongoDB.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	signalsCollection := opts.SignalsCollection
	if signalsCollection == "" {
		signalsCollection = defaultSignalsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(signalsCollection)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	wrapper := mongoCollection{coll: coll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return newClientWithCollection(opts.Client, wrapper, timeout)
}

func (c *client) Name() string {
	return signalClientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

// InsertSignal appends sig to the durable inbox. The write is idempotent on
// sig.ID: re-delivering the same signal (the engine's signal delivery is
// at-least-once) inserts it at most once.
func (c *client) InsertSignal(ctx context.Context, sig stream.Signal) error {
	if sig.ID == "" {
		return errors.New("signal id is required")
	}
	if sig.UserID == "" {
		return errors.New("signal user id is required")
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"signal_id": sig.ID}
	update := bson.M{
		// Idempotent insert: a re-delivered signal must never overwrite the
		// stored read-state of an already-persisted one.
		"$setOnInsert": bson.M{
			"signal_id":   sig.ID,
			"user_id":     sig.UserID,
			"workflow_id": sig.WorkflowID,
			"signal_type": sig.Type,
			"data":        sig.Data,
			"timestamp":   sig.Timestamp.UTC(),
			"read":        false,
		},
	}
	_, err := c.signals.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *client) ListInbox(ctx context.Context, userID string, query InboxQuery) ([]StoredSignal, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	filter := bson.M{"user_id": userID}
	if query.WorkflowID != "" {
		filter["workflow_id"] = query.WorkflowID
	}
	if query.UnreadOnly {
		filter["read"] = false
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	cur, err := c.signals.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	var out []StoredSignal
	for cur.Next(ctx) {
		var doc signalDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toStoredSignal())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) MarkRead(ctx context.Context, signalID, userID string, readAt time.Time) error {
	if signalID == "" || userID == "" {
		return errors.New("signal id and user id are required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"signal_id": signalID, "user_id": userID}
	update := bson.M{"$set": bson.M{"read": true, "read_at": readAt.UTC()}}
	res, err := c.signals.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish "doesn't exist" from "exists but owned by someone
		// else" so callers can return the correct not-found/forbidden
		// response without an extra round trip.
		exists, existsErr := c.signalExists(ctx, signalID)
		if existsErr != nil {
			return existsErr
		}
		if exists {
			return ErrNotOwner
		}
		return ErrSignalNotFound
	}
	return nil
}

func (c *client) MarkAllRead(ctx context.Context, userID, workflowID string, readAt time.Time) (int64, error) {
	if userID == "" {
		return 0, errors.New("user id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"user_id": userID, "read": false}
	if workflowID != "" {
		filter["workflow_id"] = workflowID
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": readAt.UTC()}}
	res, err := c.signals.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *client) signalExists(ctx context.Context, signalID string) (bool, error) {
	var doc signalDocument
	err := c.signals.FindOne(ctx, bson.M{"signal_id": signalID}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type signalDocument struct {
	SignalID   string            `bson:"signal_id"`
	UserID     string            `bson:"user_id"`
	WorkflowID string            `bson:"workflow_id"`
	SignalType stream.SignalType `bson:"signal_type"`
	Data       any               `bson:"data"`
	Timestamp  time.Time         `bson:"timestamp"`
	Read       bool              `bson:"read"`
	ReadAt     *time.Time        `bson:"read_at,omitempty"`
}

func (doc signalDocument) toStoredSignal() StoredSignal {
	return StoredSignal{
		Signal: stream.Signal{
			ID:         doc.SignalID,
			UserID:     doc.UserID,
			WorkflowID: doc.WorkflowID,
			Type:       doc.SignalType,
			Data:       doc.Data,
			Timestamp:  doc.Timestamp.UTC(),
		},
		Read:   doc.Read,
		ReadAt: doc.ReadAt,
	}
}

func ensureIndexes(ctx context.Context, signals collection) error {
	signalIDIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "signal_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := signals.Indexes().CreateOne(ctx, signalIDIndex); err != nil {
		return err
	}
	workflowTimestampIndex := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "workflow_id", Value: 1},
			{Key: "timestamp", Value: 1},
		},
	}
	if _, err := signals.Indexes().CreateOne(ctx, workflowTimestampIndex); err != nil {
		return err
	}
	userReadIndex := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "read", Value: 1},
		},
	}
	if _, err := signals.Indexes().CreateOne(ctx, userReadIndex); err != nil {
		return err
	}
	return nil
}

func newClientWithCollection(mongoClient *mongodriver.Client, signals collection, timeout time.Duration) (*client, error) {
	if signals == nil {
		return nil, errors.New("collection is required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		mongo:   mongoClient,
		signals: signals,
		timeout: timeout,
	}, nil
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error)
	UpdateOne(ctx context.Context, filter any, update any,
		opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	UpdateMany(ctx context.Context, filter any, update any,
		opts ...options.Lister[options.UpdateManyOptions]) (*mongodriver.UpdateResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel,
		opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type cursor interface {
	Close(ctx context.Context) error
	Decode(val any) error
	Err() error
	Next(ctx context.Context) bool
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter, opts...)}
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return mongoCursor{cur: cur}, nil
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter any, update any,
	opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) UpdateMany(ctx context.Context, filter any, update any,
	opts ...options.Lister[options.UpdateManyOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateMany(ctx, filter, update, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoCursor struct {
	cur *mongodriver.Cursor
}

func (c mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

func (c mongoCursor) Decode(val any) error {
	return c.cur.Decode(val)
}

func (c mongoCursor) Err() error {
	return c.cur.Err()
}

func (c mongoCursor) Next(ctx context.Context) bool {
	return c.cur.Next(ctx)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel,
	opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
