// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "campus_chat"

// Collection names. Messages and notifications are flat collections scoped by
// conversationId / recipientId rather than nested sub-collections.
const (
	UsersCollectionName             = "users"
	ConversationsCollectionName     = "conversations"
	MessagesCollectionName          = "messages"
	NotificationsCollectionName     = "notifications"
	PushSubscriptionsCollectionName = "push_subscriptions"
)

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db is reference to the application database within MongoDB
	db *mongo.Database
}

// New connects to MongoDB and returns a Client for the named database
// (DefaultDatabase when name is empty).
func New(ctx context.Context, mongoURI, name string) (*Client, error) {
	// SetConnectTimeout: fail fast if MongoDB is unreachable
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	// This doesn't actually connect yet, just creates the client
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// If ping doesn't complete in 5 seconds, fail
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if name == "" {
		name = DefaultDatabase
	}

	return &Client{
		client: client,
		db:     client.Database(name),
	}, nil
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection(UsersCollectionName)
}

// ConversationsCollection returns the conversations collection.
func (c *Client) ConversationsCollection() *mongo.Collection {
	return c.db.Collection(ConversationsCollectionName)
}

// MessagesCollection returns the messages collection.
func (c *Client) MessagesCollection() *mongo.Collection {
	return c.db.Collection(MessagesCollectionName)
}

// NotificationsCollection returns the notifications (inbox) collection.
func (c *Client) NotificationsCollection() *mongo.Collection {
	return c.db.Collection(NotificationsCollectionName)
}

// PushSubscriptionsCollection returns the push subscriptions collection.
func (c *Client) PushSubscriptionsCollection() *mongo.Collection {
	return c.db.Collection(PushSubscriptionsCollectionName)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates the indexes every store relies on.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS =====
	// Unique email: prevents duplicate registration
	_, err := c.UsersCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	// ===== CONVERSATIONS =====
	conversationIndexes := []mongo.IndexModel{
		{
			// One conversation per unordered pair. Partial so legacy records
			// without a pair key do not collide on a missing field.
			Keys: bson.D{{Key: "pairKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"pairKey": bson.M{"$exists": true}}),
		},
		{
			// Multikey index for "conversations containing user", newest first
			Keys: bson.D{{Key: "participantIds", Value: 1}, {Key: "updatedAt", Value: -1}},
		},
	}
	if _, err := c.ConversationsCollection().Indexes().CreateMany(ctx, conversationIndexes); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}

	// ===== MESSAGES =====
	// (conversationId, createdAt, _id) is exactly the stream ordering key
	_, err = c.MessagesCollection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}

	// ===== NOTIFICATIONS =====
	notificationIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "senderId", Value: 1}}},
	}
	if _, err := c.NotificationsCollection().Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}

	// ===== PUSH SUBSCRIPTIONS =====
	pushIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	if _, err := c.PushSubscriptionsCollection().Indexes().CreateMany(ctx, pushIndexes); err != nil {
		return fmt.Errorf("failed to create push subscription indexes: %w", err)
	}

	return nil
}

// EnablePreImages turns on change stream pre-images for the conversations
// collection, so a delete event still carries the participant ids. It needs
// MongoDB 6.0+ and must run after CreateIndexes has created the collection.
func (c *Client) EnablePreImages(ctx context.Context) error {
	cmd := bson.D{
		{Key: "collMod", Value: ConversationsCollectionName},
		{Key: "changeStreamPreAndPostImages", Value: bson.D{{Key: "enabled", Value: true}}},
	}
	if err := c.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("failed to enable pre-images on %s: %w", ConversationsCollectionName, err)
	}
	return nil
}
