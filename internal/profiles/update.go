package profiles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

// ErrInvalidProfile is returned for an empty or oversized username.
var ErrInvalidProfile = errors.New("invalid profile")

const maxUsernameLen = 64

// Editor changes the authoritative profile.
type Editor interface {
	UpdateProfile(ctx context.Context, id, username, profilePicture string) (*data.User, error)
}

// ParticipantRefresher rewrites conversation snapshots.
type ParticipantRefresher interface {
	RefreshParticipant(ctx context.Context, userID string, snap data.ProfileSnapshot) (int64, error)
}

// SenderRefresher rewrites notification snapshots.
type SenderRefresher interface {
	RefreshSender(ctx context.Context, userID string, snap data.ProfileSnapshot) (int64, error)
}

// Updater applies profile edits and propagates them.
type Updater struct {
	users         Editor
	resolver      *Resolver
	conversations ParticipantRefresher
	notifications SenderRefresher
	gateway       *writegate.Gateway
}

// NewUpdater wires an Updater.
func NewUpdater(users Editor, resolver *Resolver, convs ParticipantRefresher, notifs SenderRefresher, gw *writegate.Gateway) *Updater {
	return &Updater{
		users:         users,
		resolver:      resolver,
		conversations: convs,
		notifications: notifs,
		gateway:       gw,
	}
}

// Update saves the new profile, invalidates the cached snapshot and starts
// the sweep of denormalized copies in the background. Sweep failures are
// reported on the write bus only.
func (u *Updater) Update(ctx context.Context, id, username, profilePicture string) (*data.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidProfile, maxUsernameLen)
	}
	profilePicture = strings.TrimSpace(profilePicture)

	var user *data.User
	err := u.gateway.Do(ctx, writegate.Write{
		Path:      "users/" + id,
		Operation: writegate.OpUpdate,
		Payload:   data.ProfileSnapshot{Username: username, ProfilePicture: profilePicture},
		Actor:     id,
		Apply: func(ctx context.Context) error {
			var err error
			user, err = u.users.UpdateProfile(ctx, id, username, profilePicture)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	if err := u.resolver.Invalidate(ctx, id); err != nil {
		log.Printf("profiles: invalidate %s: %v", id, err)
	}

	snap := user.Snapshot()
	u.gateway.Go(ctx, writegate.Write{
		Path:      "conversations/*/participants/" + id,
		Operation: writegate.OpUpdate,
		Payload:   snap,
		Actor:     id,
		Apply: func(ctx context.Context) error {
			_, err := u.conversations.RefreshParticipant(ctx, id, snap)
			return err
		},
	})
	u.gateway.Go(ctx, writegate.Write{
		Path:      "notifications/*/senderProfile?senderId=" + id,
		Operation: writegate.OpUpdate,
		Payload:   snap,
		Actor:     id,
		Apply: func(ctx context.Context) error {
			_, err := u.notifications.RefreshSender(ctx, id, snap)
			return err
		},
	})
	return user, nil
}
