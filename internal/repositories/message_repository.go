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

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	ListByConversation(ctx context.Context, convID primitive.ObjectID, skip, limit int64) ([]models.Message, error)
	// MarkReadForReader flips every unread message of convID not sent by
	// readerID and returns how many changed.
	MarkReadForReader(ctx context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error)
	AddReaction(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error
	RemoveReaction(ctx context.Context, id primitive.ObjectID, userID, emoji string) error
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection(messagesCollection)}
}

func (r *MongoMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Reactions == nil {
		msg.Reactions = []models.Reaction{}
	}
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *MongoMessageRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *MongoMessageRepository) ListByConversation(ctx context.Context, convID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"conversationId": convID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MongoMessageRepository) MarkReadForReader(ctx context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error) {
	filter := bson.M{
		"conversationId": convID,
		"senderId":       bson.M{"$ne": readerID},
		"read":           false,
	}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true, "readAt": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoMessageRepository) AddReaction(ctx context.Context, id primitive.ObjectID, reaction models.Reaction) error {
	// one reaction per (user, emoji)
	filter := bson.M{
		"_id": id,
		"reactions": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"userId": reaction.UserID,
			"emoji":  reaction.Emoji,
		}}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"reactions": reaction}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrDuplicate
	}
	return nil
}

func (r *MongoMessageRepository) RemoveReaction(ctx context.Context, id primitive.ObjectID, userID, emoji string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"reactions": bson.M{"userId": userID, "emoji": emoji}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
