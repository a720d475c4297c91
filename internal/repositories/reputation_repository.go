package repositories

import (
	"context"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReputationRepository is the append-only reputation ledger.
type ReputationRepository interface {
	Append(ctx context.Context, entry *models.ReputationHistory) error
	// Sum returns earned minus lost points over userID's whole ledger.
	Sum(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ReputationHistory, error)
}

type MongoReputationRepository struct {
	collection *mongo.Collection
}

func NewMongoReputationRepository(db *mongo.Database) *MongoReputationRepository {
	return &MongoReputationRepository{collection: db.Collection(reputationHistoryCollection)}
}

func (r *MongoReputationRepository) Append(ctx context.Context, entry *models.ReputationHistory) error {
	entry.ID = primitive.NewObjectID()
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *MongoReputationRepository) Sum(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", models.ReputationLost}},
				bson.M{"$multiply": bson.A{"$points", -1}},
				"$points",
			}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var out []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

func (r *MongoReputationRepository) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ReputationHistory, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.ReputationHistory{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
