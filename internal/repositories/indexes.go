package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	conversationsCollection     = "conversations"
	messagesCollection          = "messages"
	reputationHistoryCollection = "reputation_history"
	userStatsCollection         = "user_stats"
	studySessionsCollection     = "study_sessions"
)

// EnsureIndexes creates the indexes the read paths depend on. Creating an
// existing index is a no-op, so this runs on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		conversationsCollection: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "read", Value: 1}, {Key: "senderId", Value: 1}}},
		},
		reputationHistoryCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		},
		userStatsCollection: {
			{Keys: bson.D{{Key: "reputation", Value: -1}}},
		},
		studySessionsCollection: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "scheduledAt", Value: -1}}},
		},
	}
	for _, kind := range likeTargetCollections {
		specs[kind] = []mongo.IndexModel{{Keys: bson.D{{Key: "owner_id", Value: 1}}}}
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
