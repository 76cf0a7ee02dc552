package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore provides conversation database operations.
type ConversationsStore struct {
	// coll is reference to "conversations" collection in MongoDB
	coll *mongo.Collection
}

// NewConversationsStore returns a ConversationsStore using given collection.
func NewConversationsStore(coll *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{coll: coll}
}

// Get returns one conversation by id.
func (s *ConversationsStore) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// FindByPairKey returns the conversation stamped with the canonical pair key.
func (s *ConversationsStore) FindByPairKey(ctx context.Context, key string) (*Conversation, error) {
	var conv Conversation
	if err := s.coll.FindOne(ctx, bson.M{"pairKey": key}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// ListByParticipant returns every conversation userID takes part in, most
// recently updated first. Ties are broken by createdAt so legacy duplicates
// come back oldest first.
func (s *ConversationsStore) ListByParticipant(ctx context.Context, userID string) ([]*Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "updatedAt", Value: -1},
		{Key: "createdAt", Value: 1},
	})

	// participantIds is an array; equality on an array field matches any element
	cursor, err := s.coll.Find(ctx, bson.M{"participantIds": userID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var convs []*Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, translate(err)
	}
	return convs, nil
}

// UpsertPair creates conv unless a conversation with the same pair key already
// exists. It returns the stored conversation and whether this call created it.
// Creation is one atomic upsert, so concurrent callers converge on one record.
func (s *ConversationsStore) UpsertPair(ctx context.Context, conv *Conversation) (*Conversation, bool, error) {
	// pairKey comes from the filter on insert; $setOnInsert only fills the rest
	update := bson.M{"$setOnInsert": bson.M{
		"_id":            conv.ID,
		"participantIds": conv.ParticipantIDs,
		"participants":   conv.Participants,
		"unread":         false,
		"createdAt":      conv.CreatedAt,
		"updatedAt":      conv.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored Conversation
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"pairKey": conv.PairKey}, update, opts).Decode(&stored)
	if err != nil {
		// Two upserts racing on the unique pairKey index: the loser reads the winner
		if mongo.IsDuplicateKeyError(err) {
			existing, ferr := s.FindByPairKey(ctx, conv.PairKey)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, false, nil
		}
		return nil, false, translate(err)
	}
	return &stored, stored.ID == conv.ID, nil
}

// AdoptPairKey stamps key on a legacy conversation that predates pair keys.
// It fails with ErrConflict when another record already owns the key.
func (s *ConversationsStore) AdoptPairKey(ctx context.Context, id, key string) error {
	filter := bson.M{"_id": id, "pairKey": bson.M{"$exists": false}}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"pairKey": key}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateSummary records last as the conversation summary, bumps updatedAt,
// sets unread and stamps the sender's lastReadAt. A summary older than the
// stored one is ignored so concurrent senders never regress it; the returned
// bool reports whether the summary was applied.
func (s *ConversationsStore) UpdateSummary(ctx context.Context, id string, last LastMessage) (bool, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"lastMessage": bson.M{"$exists": false}},
			bson.M{"lastMessage": nil},
			bson.M{"lastMessage.timestamp": bson.M{"$lte": last.Timestamp}},
		},
	}
	update := bson.M{"$set": bson.M{
		"lastMessage":                 last,
		"updatedAt":                   last.Timestamp,
		"unread":                      true,
		"lastReadAt." + last.SenderID: last.Timestamp,
	}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Nothing matched: either the conversation is gone or a newer summary won
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, translate(err)
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// ClearUnread sets unread to false when it is true and the last message was
// not sent by viewerID. It reports whether the flag was cleared.
func (s *ConversationsStore) ClearUnread(ctx context.Context, id, viewerID string) (bool, error) {
	filter := bson.M{
		"_id":                  id,
		"unread":               true,
		"lastMessage.senderId": bson.M{"$ne": viewerID},
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"unread": false}})
	if err != nil {
		return false, translate(err)
	}
	return res.ModifiedCount > 0, nil
}

// MarkReadAt stamps lastReadAt for viewerID.
func (s *ConversationsStore) MarkReadAt(ctx context.Context, id, viewerID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$max": bson.M{"lastReadAt." + viewerID: at}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the conversation record for both participants.
func (s *ConversationsStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshParticipant rewrites the denormalized snapshot of userID in every
// conversation they take part in.
func (s *ConversationsStore) RefreshParticipant(ctx context.Context, userID string, snap ProfileSnapshot) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"participantIds": userID},
		bson.M{"$set": bson.M{"participants." + userID: snap}},
	)
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}
