package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup or guarded update matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID is returned for ids that cannot be parsed.
	ErrInvalidID = errors.New("invalid id")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
)

// ParseObjectID converts a hex string into an ObjectID, wrapping ErrInvalidID.
func ParseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}
