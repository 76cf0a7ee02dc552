package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PushSubscriptionsStore keeps browser push endpoints per user.
type PushSubscriptionsStore struct {
	coll *mongo.Collection
}

// NewPushSubscriptionsStore returns a PushSubscriptionsStore using given collection.
func NewPushSubscriptionsStore(coll *mongo.Collection) *PushSubscriptionsStore {
	return &PushSubscriptionsStore{coll: coll}
}

// Upsert saves sub keyed by its endpoint: update if exists, insert if not.
func (s *PushSubscriptionsStore) Upsert(ctx context.Context, sub *PushSubscription) error {
	update := bson.M{
		"$set": bson.M{
			"userId": sub.UserID,
			"p256dh": sub.P256dh,
			"auth":   sub.Auth,
		},
		"$setOnInsert": bson.M{
			"_id":       sub.ID,
			"createdAt": sub.CreatedAt,
		},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"endpoint": sub.Endpoint}, update, options.UpdateOne().SetUpsert(true))
	return translate(err)
}

// ListByUser returns every endpoint registered by userID.
func (s *PushSubscriptionsStore) ListByUser(ctx context.Context, userID string) ([]*PushSubscription, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []*PushSubscription
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// DeleteByEndpoint drops an endpoint the push service reported as gone.
func (s *PushSubscriptionsStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"endpoint": endpoint})
	return translate(err)
}
