package bridge

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"runtimeops/internal/constants"
	"runtimeops/pkg/metrics"
)

type Repository interface {
	// CountByStatus groups jobs by status, for one user when userID is set.
	CountByStatus(ctx context.Context, userID string) (map[Status]int, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]Row, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database, collection string) *MongoDBRepository {
	if collection == "" {
		collection = constants.DefaultBridgeCollection
	}
	return &MongoDBRepository{collection: db.Collection(collection)}
}

type statusCount struct {
	Status Status `bson:"_id"`
	Count  int    `bson:"count"`
}

func (r *MongoDBRepository) CountByStatus(ctx context.Context, userID string) (counts map[Status]int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("mongodb", "bridge_count_by_status", err, time.Since(start)) }()

	match := bson.M{}
	if userID != "" {
		match["user_id"] = userID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bridge jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []statusCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode bridge job counts: %w", err)
	}

	counts = make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *MongoDBRepository) FindByUser(ctx context.Context, userID string, limit int) (rows []Row, err error) {
	start := time.Now()
	defer func() { metrics.ObserveDatabaseQuery("mongodb", "bridge_find_by_user", err, time.Since(start)) }()

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bridge jobs: %w", err)
	}
	defer cursor.Close(ctx)

	rows = []Row{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode bridge jobs: %w", err)
	}
	return rows, nil
}
