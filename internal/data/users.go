// Package data provides DB models and stores.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"fmt"

	"github.com/PaulBabatuyi/campus-messaging/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"  // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo" // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrUserExists is returned by CreateUser when the email is already registered.
var ErrUserExists = fmt.Errorf("%w: user already exists", ErrConflict)

// UsersStore performs user DB operations. It is also the authoritative profile
// source that conversation and notification snapshots are copied from.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document with hashed password.
func (u *UsersStore) CreateUser(ctx context.Context, email, hashedPassword, username string) (*User, error) {
	now := Now()
	user := &User{
		ID:        NewID(),
		Email:     normalize.Email(email), // Stored normalized so lookups are case-insensitive
		Password:  hashedPassword,         // Already hashed by auth.HashPassword()
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := u.coll.InsertOne(ctx, user); err != nil {
		// Unique index on email turns a second registration into a duplicate key error
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, translate(err)
	}
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByID finds a user by id.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserExists checks if a user exists by id.
func (u *UsersStore) UserExists(ctx context.Context, id string) (bool, error) {
	// CountDocuments is enough when only existence matters
	count, err := u.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// UpdateProfile changes the public profile of a user and returns the new document.
func (u *UsersStore) UpdateProfile(ctx context.Context, id, username, profilePicture string) (*User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{
		"username":       username,
		"profilePicture": profilePicture,
		"updatedAt":      Now(),
	}}

	var user User
	err := u.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, translate(err)
	}
	return &user, nil
}
