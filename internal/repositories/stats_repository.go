package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsRepository holds per-user running aggregates. Every mutation is a
// single-document atomic update; none reads then writes.
type StatsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserStats, error)
	IncrementReputation(ctx context.Context, userID string, delta int) error
	SetReputation(ctx context.Context, userID string, total int) error
	// RecordPomodoro bumps the completed-pomodoro count and the daily streak.
	// today and yesterday are YYYY-MM-DD day keys.
	RecordPomodoro(ctx context.Context, userID, today, yesterday string) (*models.UserStats, error)
	TopByReputation(ctx context.Context, limit int64) ([]models.UserStats, error)
}

type MongoStatsRepository struct {
	collection *mongo.Collection
}

func NewMongoStatsRepository(db *mongo.Database) *MongoStatsRepository {
	return &MongoStatsRepository{collection: db.Collection(userStatsCollection)}
}

func (r *MongoStatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &stats, nil
}

func (r *MongoStatsRepository) IncrementReputation(ctx context.Context, userID string, delta int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"reputation": delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoStatsRepository) SetReputation(ctx context.Context, userID string, total int) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"reputation": total, "updatedAt": time.Now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoStatsRepository) RecordPomodoro(ctx context.Context, userID, today, yesterday string) (*models.UserStats, error) {
	ifNull := func(field string, fallback interface{}) bson.M {
		return bson.M{"$ifNull": bson.A{field, fallback}}
	}
	// Both expressions of the first stage see the document as it was before
	// the update, so the streak is computed against the previous study day.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"currentStreak": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{
						"case": bson.M{"$eq": bson.A{"$lastStudyDay", today}},
						"then": ifNull("$currentStreak", 1),
					},
					bson.M{
						"case": bson.M{"$eq": bson.A{"$lastStudyDay", yesterday}},
						"then": bson.M{"$add": bson.A{ifNull("$currentStreak", 0), 1}},
					},
				},
				"default": 1,
			}},
			"pomodorosCompleted": bson.M{"$add": bson.A{ifNull("$pomodorosCompleted", 0), 1}},
			"reputation":         ifNull("$reputation", 0),
			"lastStudyDay":       today,
			"updatedAt":          time.Now(),
		}}},
		{{Key: "$set", Value: bson.M{
			"longestStreak": bson.M{"$max": bson.A{ifNull("$longestStreak", 0), "$currentStreak"}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stats models.UserStats
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *MongoStatsRepository) TopByReputation(ctx context.Context, limit int64) ([]models.UserStats, error) {
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "reputation", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := []models.UserStats{}
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
