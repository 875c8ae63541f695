package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/shopdash/pkg/config"
)

const (
	auditConnectTimeout = 10 * time.Second
	auditTrailMax       = 200
)

// MongoRepository is the audit trail of dashboard mutations, one document
// per create, update or delete.
type MongoRepository struct {
	client *mongo.Client
	audit  *mongo.Collection
}

// NewMongoRepository dials cfg.URI. The driver connects lazily, so a bad
// address only shows up on the first Ping or write.
func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), auditConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("shopdash-gateway").
		SetServerSelectionTimeout(auditConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewMongoRepositoryFromClient(client, cfg), nil
}

// NewMongoRepositoryFromClient builds the audit trail on a client the caller
// already holds, such as the mocked one of the mtest harness. Entries go to
// cfg.Collection in cfg.Database; the repository takes ownership of client
// and disconnects it on Close.
func NewMongoRepositoryFromClient(client *mongo.Client, cfg *config.MongoDBConfig) *MongoRepository {
	return &MongoRepository{
		client: client,
		audit:  client.Database(cfg.Database).Collection(cfg.Collection),
	}
}

// Ping reports whether the audit database answers, for the health check.
func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditEntry records one create, update or delete issued from the dashboard.
type AuditEntry struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Session   string    `bson:"session" json:"-"`
	UserID    string    `bson:"user_id" json:"userId"`
	Role      string    `bson:"role" json:"role"`
	View      string    `bson:"view" json:"view"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entityId"`
	Outcome   string    `bson:"outcome" json:"outcome"`
	Message   string    `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// RecordMutation stamps entry and appends it to the trail.
func (m *MongoRepository) RecordMutation(ctx context.Context, entry *AuditEntry) error {
	entry.CreatedAt = time.Now()
	_, err := m.audit.InsertOne(ctx, entry)
	return err
}

// AuditTrail returns the newest entries for a view, optionally narrowed to
// one entity. A limit outside 1..200 reads the newest 200.
func (m *MongoRepository) AuditTrail(ctx context.Context, view, entityID string, limit int64) ([]*AuditEntry, error) {
	if limit <= 0 || limit > auditTrailMax {
		limit = auditTrailMax
	}
	query := bson.M{"view": view}
	if entityID != "" {
		query["entity_id"] = entityID
	}
	newestFirst := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cur, err := m.audit.Find(ctx, query, newestFirst)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := make([]*AuditEntry, 0)
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
