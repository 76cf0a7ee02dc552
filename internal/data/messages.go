package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	// coll is reference to "messages" collection in MongoDB
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// Insert persists a message. Id and createdAt are assigned by the caller.
func (m *MessagesStore) Insert(ctx context.Context, msg *Message) error {
	_, err := m.coll.InsertOne(ctx, msg)
	return translate(err)
}

// List returns messages of a conversation ordered oldest→newest by
// (createdAt, _id). With limit > 0 only the most recent limit messages are returned.
func (m *MessagesStore) List(ctx context.Context, conversationID string, limit int64) ([]*Message, error) {
	// Newest first so the limit keeps the tail of the conversation
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := m.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, translate(err)
	}

	// Reverse into chronological order (oldest first, newest last)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Get returns one message of a conversation.
func (m *MessagesStore) Get(ctx context.Context, conversationID, id string) (*Message, error) {
	var msg Message
	err := m.coll.FindOne(ctx, bson.M{"_id": id, "conversationId": conversationID}).Decode(&msg)
	if err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

// Delete removes a single message.
func (m *MessagesStore) Delete(ctx context.Context, conversationID, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": id, "conversationId": conversationID})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByConversation removes every message of a conversation.
func (m *MessagesStore) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{"conversationId": conversationID})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}
