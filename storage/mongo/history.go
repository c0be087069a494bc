package mongo

import (
	"context"
	"time"

	"wschat/chat"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config represents the MongoDB history store configuration.
type Config struct {
	URI         string
	Database    string
	Collection  string
	MaxPoolSize uint64
	MaxRetry    int
	OpTimeout   time.Duration // per-call budget for Append/Query
}

func (c *Config) norm() {
	if c.Collection == "" {
		c.Collection = "history"
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 100
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 1
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 5 * time.Second
	}
}

// History implements chat.Store on a MongoDB collection. Every call gets its
// own deadline so a slow store cannot stall the caller indefinitely.
type History struct {
	coll      *mongo.Collection
	client    *mongo.Client
	opTimeout time.Duration
}

// Connect dials MongoDB with a bounded retry and returns the history store.
func Connect(ctx context.Context, cfg Config) (*History, error) {
	cfg.norm()
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	opts := options.Client().ApplyURI(cfg.URI).SetMaxPoolSize(cfg.MaxPoolSize)

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to MongoDB %s", cfg.URI)
	}

	return &History{
		coll:      cli.Database(cfg.Database).Collection(cfg.Collection),
		client:    cli,
		opTimeout: cfg.OpTimeout,
	}, nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return cli, nil
}

// EnsureIndexes creates the (chat_id, timestamp) index the Query path relies
// on. Safe to call on every start.
func (h *History) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.opTimeout)
	defer cancel()

	_, err := h.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return errors.Wrap(err, "create history index")
}

// Append inserts a single entry. Entries are append-only: nothing in this
// service updates or deletes them.
func (h *History) Append(ctx context.Context, entry *chat.HistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, h.opTimeout)
	defer cancel()

	if _, err := h.coll.InsertOne(ctx, entry); err != nil {
		return errors.Wrap(err, "insert history entry")
	}
	return nil
}

// Query loads entries of one chat ordered by timestamp ascending, capped at
// limit when limit > 0. Only the read-side fields are projected; chat_id and
// chat_title are implied by the request.
func (h *History) Query(ctx context.Context, chatID string, limit int64) ([]chat.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.D{
			{Key: "user_id", Value: 1},
			{Key: "username", Value: 1},
			{Key: "message", Value: 1},
			{Key: "timestamp", Value: 1},
			{Key: "avatar_16", Value: 1},
			{Key: "avatar_32", Value: 1},
		}).
		SetSort(bson.D{{Key: "timestamp", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := h.coll.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find history entries")
	}
	defer func() { _ = cur.Close(ctx) }()

	var entries []chat.HistoryEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, errors.Wrap(err, "decode history entries")
	}
	return entries, nil
}

// Close disconnects the underlying client.
func (h *History) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}
