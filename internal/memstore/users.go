package memstore

import (
	"context"
	"sync"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/normalize"
)

type userRecord struct {
	user data.User
}

// Users is the in-memory users store.
type Users struct {
	faults *faults

	mu   sync.RWMutex
	byID map[string]*userRecord
}

// CreateUser stores a new user; the email must be unique.
func (s *Users) CreateUser(ctx context.Context, email, hashedPassword, username string) (*data.User, error) {
	if err := s.faults.check(ctx, OpUserCreate); err != nil {
		return nil, err
	}
	email = normalize.Email(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byID {
		if r.user.Email == email {
			return nil, data.ErrUserExists
		}
	}
	now := data.Now()
	u := data.User{
		ID:        data.NewID(),
		Email:     email,
		Password:  hashedPassword,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[u.ID] = &userRecord{user: u}
	return &u, nil
}

// Put stores u as-is, replacing any user with the same id.
func (s *Users) Put(u data.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = normalize.Email(u.Email)
	s.byID[u.ID] = &userRecord{user: u}
}

// GetUserByEmail finds a user by email.
func (s *Users) GetUserByEmail(ctx context.Context, email string) (*data.User, error) {
	if err := s.faults.check(ctx, OpUserGet); err != nil {
		return nil, err
	}
	email = normalize.Email(email)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.byID {
		if r.user.Email == email {
			u := r.user
			return &u, nil
		}
	}
	return nil, data.ErrNotFound
}

// GetUserByID finds a user by id.
func (s *Users) GetUserByID(ctx context.Context, id string) (*data.User, error) {
	if err := s.faults.check(ctx, OpUserGet); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	u := r.user
	return &u, nil
}

// UserExists reports whether id is a known user.
func (s *Users) UserExists(ctx context.Context, id string) (bool, error) {
	if err := s.faults.check(ctx, OpUserGet); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok, nil
}

// UpdateProfile changes the public profile of a user.
func (s *Users) UpdateProfile(ctx context.Context, id, username, profilePicture string) (*data.User, error) {
	if err := s.faults.check(ctx, OpUserUpdate); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	r.user.Username = username
	r.user.ProfilePicture = profilePicture
	r.user.UpdatedAt = data.Now()
	u := r.user
	return &u, nil
}
