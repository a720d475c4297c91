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

// likeTargetCollections maps each likeable variant to its collection.
var likeTargetCollections = map[models.ParentType]string{
	models.ParentQuestion: "questions",
	models.ParentAnswer:   "answers",
	models.ParentPost:     "posts",
	models.ParentBlogPost: "blog_posts",
}

// LikeTargetRepository is the likes capability of one content collection.
type LikeTargetRepository interface {
	OwnerOf(ctx context.Context, id string) (string, error)
	AddLikes(ctx context.Context, id string, delta int) error
}

// MongoLikeTargetRepository implements LikeTargetRepository over one collection.
type MongoLikeTargetRepository struct {
	collection *mongo.Collection
}

func NewMongoLikeTargetRepository(db *mongo.Database, collection string) *MongoLikeTargetRepository {
	return &MongoLikeTargetRepository{collection: db.Collection(collection)}
}

// NewLikeTargets builds one repository per likeable variant.
func NewLikeTargets(db *mongo.Database) map[models.ParentType]LikeTargetRepository {
	out := make(map[models.ParentType]LikeTargetRepository, len(likeTargetCollections))
	for kind, coll := range likeTargetCollections {
		out[kind] = NewMongoLikeTargetRepository(db, coll)
	}
	return out
}

func (r *MongoLikeTargetRepository) OwnerOf(ctx context.Context, id string) (string, error) {
	objID, err := ParseObjectID(id)
	if err != nil {
		return "", err
	}
	var target models.LikeTarget
	opts := options.FindOne().SetProjection(bson.M{"owner_id": 1})
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}, opts).Decode(&target)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", err
	}
	return target.OwnerID, nil
}

// AddLikes adjusts likes_count by delta; the count never drops below zero.
func (r *MongoLikeTargetRepository) AddLikes(ctx context.Context, id string, delta int) error {
	objID, err := ParseObjectID(id)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": objID}
	if delta < 0 {
		filter["likes_count"] = bson.M{"$gte": -delta}
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"likes_count": delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
