package queue

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using MongoDB.
type MongoDBStore struct {
	client *mongo.Client
	db     *mongo.Database
	items  *mongo.Collection
	ownsDB bool
}

// NewMongoDBStore connects to MongoDB and opens a queue store.
func NewMongoDBStore(connectionString, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("queue: connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("queue: ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoDBStore{
		client: client,
		db:     db,
		items:  db.Collection("queue"),
		ownsDB: true,
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	_, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "next_retry", Value: 1}}},
		{Keys: bson.D{{Key: "order_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("queue: create indexes: %w", err)
	}
	return nil
}

func (s *MongoDBStore) Close(ctx context.Context) error {
	if s.ownsDB {
		return s.client.Disconnect(ctx)
	}
	return nil
}

func (s *MongoDBStore) Enqueue(ctx context.Context, item Item) error {
	doc := toMongoItem(item)
	_, err := s.items.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("queue: id %s already exists", item.ID)
	}
	if err != nil {
		return fmt.Errorf("queue: insert: %w", err)
	}
	return nil
}

func (s *MongoDBStore) Dequeue(ctx context.Context, id string) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("queue: delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDBStore) UpdateRetry(ctx context.Context, id string, retryCount int, lastRetry time.Time, nextRetry time.Time) error {
	update := bson.M{"$set": bson.M{
		"retry_count": retryCount,
		"last_retry":  lastRetry,
		"next_retry":  nextRetry,
	}}
	result, err := s.items.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("queue: update: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDBStore) MarkStatus(ctx context.Context, id string, status Status) error {
	result, err := s.items.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("queue: update status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDBStore) Get(ctx context.Context, id string) (Item, error) {
	var doc mongoItem
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("queue: query: %w", err)
	}
	return doc.toItem(), nil
}

func (s *MongoDBStore) GetReadyItems(ctx context.Context, now time.Time) ([]Item, error) {
	filter := bson.M{
		"status": string(StatusPending),
		"$or": []bson.M{
			{"next_retry": nil},
			{"next_retry": bson.M{"$lte": now}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("queue: query ready items: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeMongoItems(ctx, cursor)
}

func (s *MongoDBStore) GetAll(ctx context.Context) ([]Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("queue: query all: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeMongoItems(ctx, cursor)
}

func (s *MongoDBStore) GetStats(ctx context.Context, lookup AmountLookup) (Stats, error) {
	items, err := s.GetAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(items, lookup), nil
}

type mongoItem struct {
	ID         string     `bson:"_id"`
	OrderID    string     `bson:"order_id"`
	SignedTx   string     `bson:"signed_tx"`
	RetryCount int        `bson:"retry_count"`
	LastRetry  *time.Time `bson:"last_retry,omitempty"`
	NextRetry  *time.Time `bson:"next_retry,omitempty"`
	Status     string     `bson:"status"`
	CreatedAt  time.Time  `bson:"created_at"`
}

func toMongoItem(i Item) mongoItem {
	return mongoItem{
		ID:         i.ID,
		OrderID:    i.OrderID,
		SignedTx:   i.SignedTx,
		RetryCount: i.RetryCount,
		LastRetry:  i.LastRetry,
		NextRetry:  i.NextRetry,
		Status:     string(i.Status),
		CreatedAt:  i.CreatedAt,
	}
}

func (doc mongoItem) toItem() Item {
	return Item{
		ID:         doc.ID,
		OrderID:    doc.OrderID,
		SignedTx:   doc.SignedTx,
		RetryCount: doc.RetryCount,
		LastRetry:  doc.LastRetry,
		NextRetry:  doc.NextRetry,
		Status:     Status(doc.Status),
		CreatedAt:  doc.CreatedAt,
	}
}

func decodeMongoItems(ctx context.Context, cursor *mongo.Cursor) ([]Item, error) {
	var result []Item
	for cursor.Next(ctx) {
		var doc mongoItem
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("queue: decode: %w", err)
		}
		result = append(result, doc.toItem())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("queue: cursor error: %w", err)
	}
	return result, nil
}
