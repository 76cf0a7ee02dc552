package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotificationsStore stores per-user inbox notifications.
type NotificationsStore struct {
	coll *mongo.Collection
}

// NewNotificationsStore returns a NotificationsStore using given collection.
func NewNotificationsStore(coll *mongo.Collection) *NotificationsStore {
	return &NotificationsStore{coll: coll}
}

// Insert writes a notification into its recipient's inbox.
func (s *NotificationsStore) Insert(ctx context.Context, n *Notification) error {
	_, err := s.coll.InsertOne(ctx, n)
	return translate(err)
}

// ListByRecipient returns the newest notifications of a user's inbox first.
func (s *NotificationsStore) ListByRecipient(ctx context.Context, recipientID string, limit int64) ([]*Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.coll.Find(ctx, bson.M{"recipientId": recipientID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var out []*Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// MarkRead flips the read flag of one notification in recipientID's inbox.
func (s *NotificationsStore) MarkRead(ctx context.Context, recipientID, id string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipientId": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshSender rewrites the sender snapshot on notifications sent by userID.
func (s *NotificationsStore) RefreshSender(ctx context.Context, userID string, snap ProfileSnapshot) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"senderId": userID},
		bson.M{"$set": bson.M{"senderProfile": snap}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}
