package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewID returns a new opaque document id. Ids are ObjectID hex strings, so for
// ids minted by one process lexical order follows creation order.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// Now returns the current UTC time truncated to the millisecond resolution
// MongoDB stores, so in-memory and persisted timestamps compare equal.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate brings t to storage resolution.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
