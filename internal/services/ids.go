package services

import (
	"github.com/anonto42/studyhub/backend/validators"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, invalidArgument("malformed %s id %q", kind, id)
	}
	return oid, nil
}

func checkUserID(id string) error {
	if !validators.ValidUserID(id) {
		return invalidArgument("malformed user id %q", id)
	}
	return nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageBounds turns a 1-based page and a page size into skip and limit.
func pageBounds(page, limit int) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return int64((page - 1) * limit), int64(limit)
}
