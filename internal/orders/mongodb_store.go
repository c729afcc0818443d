package orders

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
	client  *mongo.Client
	db      *mongo.Database
	orders  *mongo.Collection
	ownsDB  bool
}

// NewMongoDBStore connects to MongoDB and opens an order store.
func NewMongoDBStore(connectionString, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("orders: connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("orders: ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoDBStore{
		client: client,
		db:     db,
		orders: db.Collection("orders"),
		ownsDB: true,
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("orders: create indexes: %w", err)
	}
	return nil
}

func (s *MongoDBStore) Close(ctx context.Context) error {
	if s.ownsDB {
		return s.client.Disconnect(ctx)
	}
	return nil
}

func (s *MongoDBStore) Create(ctx context.Context, order Order) error {
	doc := toMongoOrder(order)
	_, err := s.orders.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("orders: id %s already exists", order.ID)
	}
	if err != nil {
		return fmt.Errorf("orders: insert: %w", err)
	}
	return nil
}

func (s *MongoDBStore) Get(ctx context.Context, id string) (Order, error) {
	var doc mongoOrder
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("orders: query: %w", err)
	}
	return doc.toOrder(), nil
}

func (s *MongoDBStore) Update(ctx context.Context, order Order) error {
	doc := toMongoOrder(order)
	result, err := s.orders.ReplaceOne(ctx, bson.M{"_id": order.ID}, doc)
	if err != nil {
		return fmt.Errorf("orders: replace: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoDBStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("orders: query by user: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeMongoOrders(ctx, cursor)
}

func (s *MongoDBStore) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.orders.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, fmt.Errorf("orders: query by status: %w", err)
	}
	defer cursor.Close(ctx)
	return decodeMongoOrders(ctx, cursor)
}

func (s *MongoDBStore) Delete(ctx context.Context, id string) error {
	result, err := s.orders.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("orders: delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// mongoOrder is the BSON document shape for an order, keyed by the order id
// as MongoDB's native _id.
type mongoOrder struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"user_id"`
	ChatID       string     `bson:"chat_id"`
	Status       string     `bson:"status"`
	Quote        Quote      `bson:"quote"`
	Signature    *string    `bson:"signature,omitempty"`
	TxHash       *string    `bson:"tx_hash,omitempty"`
	SettlementID *string    `bson:"settlement_id,omitempty"`
	Error        *string    `bson:"error,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	CompletedAt  *time.Time `bson:"completed_at,omitempty"`
}

func toMongoOrder(o Order) mongoOrder {
	return mongoOrder{
		ID:           o.ID,
		UserID:       o.UserID,
		ChatID:       o.ChatID,
		Status:       string(o.Status),
		Quote:        o.Quote,
		Signature:    o.Signature,
		TxHash:       o.TxHash,
		SettlementID: o.SettlementID,
		Error:        o.Error,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		CompletedAt:  o.CompletedAt,
	}
}

func (doc mongoOrder) toOrder() Order {
	return Order{
		ID:           doc.ID,
		UserID:       doc.UserID,
		ChatID:       doc.ChatID,
		Status:       Status(doc.Status),
		Quote:        doc.Quote,
		Signature:    doc.Signature,
		TxHash:       doc.TxHash,
		SettlementID: doc.SettlementID,
		Error:        doc.Error,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		CompletedAt:  doc.CompletedAt,
	}
}

func decodeMongoOrders(ctx context.Context, cursor *mongo.Cursor) ([]Order, error) {
	var result []Order
	for cursor.Next(ctx) {
		var doc mongoOrder
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("orders: decode: %w", err)
		}
		result = append(result, doc.toOrder())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("orders: cursor error: %w", err)
	}
	return result, nil
}
