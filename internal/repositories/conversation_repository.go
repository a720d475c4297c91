package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository defines the interface for conversation data operations
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	FindDirect(ctx context.Context, a, b string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string, skip, limit int64) ([]models.Conversation, error)
	// ResetUnread zeroes userID's counter. ErrNotFound when no conversation
	// with that id has userID as a participant.
	ResetUnread(ctx context.Context, id primitive.ObjectID, userID string) error
	// RecordMessage stores the last-message snapshot and increments the
	// counter of every recipient.
	RecordMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage, recipients []string) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection(conversationsCollection)}
}

func (r *MongoConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	now := time.Now()
	conv.ID = primitive.NewObjectID()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int, len(conv.Participants))
	}
	for _, p := range conv.Participants {
		if _, ok := conv.UnreadCounts[p]; !ok {
			conv.UnreadCounts[p] = 0
		}
	}
	_, err := r.collection.InsertOne(ctx, conv)
	return err
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindDirect returns the active two-party conversation between a and b.
func (r *MongoConversationRepository) FindDirect(ctx context.Context, a, b string) (*models.Conversation, error) {
	filter := bson.M{
		"participants": bson.M{"$all": bson.A{a, b}, "$size": 2},
		"isActive":     true,
	}
	var conv models.Conversation
	err := r.collection.FindOne(ctx, filter).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *MongoConversationRepository) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]models.Conversation, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"participants": userID, "isActive": true}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	convs := []models.Conversation{}
	if err = cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *MongoConversationRepository) ResetUnread(ctx context.Context, id primitive.ObjectID, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "participants": userID},
		bson.M{"$set": bson.M{"unreadCounts." + userID: 0}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepository) RecordMessage(ctx context.Context, id primitive.ObjectID, last models.LastMessage, recipients []string) error {
	update := bson.M{
		"$set": bson.M{"lastMessage": last, "updatedAt": last.CreatedAt},
	}
	if len(recipients) > 0 {
		inc := bson.M{}
		for _, p := range recipients {
			inc["unreadCounts."+p] = 1
		}
		update["$inc"] = inc
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
