package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository stores group study sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.StudySession) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.StudySession, error)
	AddParticipant(ctx context.Context, id primitive.ObjectID, userID string) error
	// MarkCompleted moves a scheduled session to completed. ErrNotFound when
	// no scheduled session with that id exists.
	MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type MongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{collection: db.Collection(studySessionsCollection)}
}

func (r *MongoSessionRepository) Create(ctx context.Context, session *models.StudySession) error {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now()
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *MongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.StudySession, error) {
	var session models.StudySession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *MongoSessionRepository) AddParticipant(ctx context.Context, id primitive.ObjectID, userID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SessionScheduled},
		bson.M{"$addToSet": bson.M{"participants": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoSessionRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SessionScheduled},
		bson.M{"$set": bson.M{"status": models.SessionCompleted, "completedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
