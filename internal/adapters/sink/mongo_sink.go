package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// MongoSink buffers messages and writes them to a time-series collection.
type MongoSink struct {
	client    *mongo.Client
	batchSize int

	mu      sync.Mutex
	pending []any
	insert  func(ctx context.Context, docs []any) error
}

func NewMongoConnection(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// NewMongoSink prepares collection as a time-series collection keyed by peer.
func NewMongoSink(ctx context.Context, client *mongo.Client, database, collection string, batchSize int) (*MongoSink, error) {
	db := client.Database(database)

	tsOptions := options.CreateCollection().SetTimeSeriesOptions(
		options.TimeSeries().
			SetTimeField("timestamp").
			SetMetaField("meta").
			SetGranularity("seconds"),
	)
	// Fails when the collection already exists, which is fine.
	_ = db.CreateCollection(ctx, collection, tsOptions)
	coll := db.Collection(collection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "meta.peer", Value: 1},
			{Key: "timestamp", Value: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mongo index: %w", err)
	}

	s := newMongoSink(batchSize, func(ctx context.Context, docs []any) error {
		_, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		return err
	})
	s.client = client
	return s, nil
}

func newMongoSink(batchSize int, insert func(context.Context, []any) error) *MongoSink {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &MongoSink{batchSize: batchSize, insert: insert}
}

func (m *MongoSink) Name() string { return "mongodb" }

func (m *MongoSink) Accept(ctx context.Context, msg domain.Message) error {
	m.mu.Lock()
	m.pending = append(m.pending, toDocument(msg))
	if len(m.pending) < m.batchSize {
		m.mu.Unlock()
		return nil
	}
	docs := m.pending
	m.pending = nil
	m.mu.Unlock()

	return m.insert(ctx, docs)
}

// Flush writes any buffered documents.
func (m *MongoSink) Flush(ctx context.Context) error {
	m.mu.Lock()
	docs := m.pending
	m.pending = nil
	m.mu.Unlock()
	if len(docs) == 0 {
		return nil
	}
	return m.insert(ctx, docs)
}

func (m *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Flush(ctx)
	if m.client != nil {
		if derr := m.client.Disconnect(ctx); err == nil {
			err = derr
		}
	}
	return err
}

func toDocument(msg domain.Message) bson.M {
	return bson.M{
		"timestamp": msg.At,
		"meta": bson.M{
			"peer":      uint32(msg.Peer),
			"kind":      msg.Kind,
			"direction": string(msg.Direction),
		},
		"packet_id": msg.Packet.ID,
		"hop_limit": msg.Packet.HopLimit,
		"rssi":      msg.Packet.RSSI,
		"snr":       msg.Packet.SNR,
		"fields":    msg.Fields,
	}
}

var _ ports.TelemetrySink = (*MongoSink)(nil)
