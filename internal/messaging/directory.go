package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/normalize"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"

	"golang.org/x/sync/singleflight"
)

// Directory resolves an unordered pair of users to their one conversation.
//
// Every conversation carries a pair key derived from its sorted participant
// ids, unique in the store, and creation is a single upsert on that key, so
// concurrent callers on any number of instances converge on one record.
// Within a process concurrent calls for the same pair also share one lookup.
type Directory struct {
	convs    Conversations
	msgs     Messages
	profiles Profiles
	gateway  *writegate.Gateway
	pub      Publisher
	now      Clock
	group    singleflight.Group
}

// NewDirectory wires a Directory.
func NewDirectory(convs Conversations, msgs Messages, profiles Profiles, gw *writegate.Gateway, pub Publisher, now Clock) *Directory {
	if now == nil {
		now = data.Now
	}
	return &Directory{convs: convs, msgs: msgs, profiles: profiles, gateway: gw, pub: pub, now: now}
}

// GetOrCreate returns the id of the conversation between a and b, creating it
// when none exists. The call is symmetric in its arguments.
func (d *Directory) GetOrCreate(ctx context.Context, a, b string) (string, error) {
	a, b = normalize.ID(a), normalize.ID(b)
	if !normalize.ValidID(a) || !normalize.ValidID(b) {
		return "", ErrInvalidUser
	}
	if a == b {
		return "", ErrSelfConversation
	}

	key := normalize.PairKey(a, b)
	// the shared lookup must not die with whichever caller started it
	flightCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key, func() (any, error) {
		return d.getOrCreate(flightCtx, a, b, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Directory) getOrCreate(ctx context.Context, a, b, key string) (string, error) {
	conv, err := d.convs.FindByPairKey(ctx, key)
	if err == nil {
		return conv.ID, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return "", err
	}

	if id, ok, err := d.adoptLegacy(ctx, a, b, key); err != nil || ok {
		return id, err
	}

	snaps, err := d.profiles.Snapshots(ctx, a, b)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrUserNotFound, err)
		}
		return "", err
	}

	ids := []string{a, b}
	sort.Strings(ids)
	now := d.now()
	candidate := &data.Conversation{
		ID:             data.NewID(),
		PairKey:        key,
		ParticipantIDs: ids,
		Participants:   snaps,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var stored *data.Conversation
	var created bool
	err = d.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + candidate.ID,
		Operation: writegate.OpUpsert,
		Payload:   candidate,
		Actor:     a,
		Apply: func(ctx context.Context) error {
			var err error
			stored, created, err = d.convs.UpsertPair(ctx, candidate)
			return err
		},
	})
	if err != nil {
		return "", err
	}
	if created {
		publishInbox(d.pub, stored)
	}
	return stored.ID, nil
}

// adoptLegacy finds a conversation created before pair keys existed by
// scanning a's conversations for b, and stamps the key on the oldest match.
func (d *Directory) adoptLegacy(ctx context.Context, a, b, key string) (string, bool, error) {
	convs, err := d.convs.ListByParticipant(ctx, a)
	if err != nil {
		return "", false, err
	}
	var legacy []*data.Conversation
	for _, c := range convs {
		if c.PairKey == "" && c.HasParticipant(b) {
			legacy = append(legacy, c)
		}
	}
	if len(legacy) == 0 {
		return "", false, nil
	}
	sort.SliceStable(legacy, func(i, j int) bool {
		return legacy[i].CreatedAt.Before(legacy[j].CreatedAt)
	})

	oldest := legacy[0]
	err = d.convs.AdoptPairKey(ctx, oldest.ID, key)
	if errors.Is(err, data.ErrConflict) {
		// another caller adopted or created first
		conv, ferr := d.convs.FindByPairKey(ctx, key)
		if ferr != nil {
			return "", false, ferr
		}
		return conv.ID, true, nil
	}
	if err != nil {
		return "", false, err
	}
	return oldest.ID, true, nil
}

// Get returns a conversation the viewer takes part in.
func (d *Directory) Get(ctx context.Context, id, viewer string) (*data.Conversation, error) {
	conv, err := d.convs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(viewer) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// List returns the viewer's conversations, most recently active first.
func (d *Directory) List(ctx context.Context, viewer string) ([]*data.Conversation, error) {
	return d.convs.ListByParticipant(ctx, viewer)
}

// Delete removes the conversation for both participants. Its messages are
// removed in the background; a later GetOrCreate for the pair creates a new
// conversation with a new id.
func (d *Directory) Delete(ctx context.Context, id, requester string) error {
	conv, err := d.Get(ctx, id, requester)
	if err != nil {
		return err
	}

	err = d.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + id,
		Operation: writegate.OpDelete,
		Actor:     requester,
		Apply: func(ctx context.Context) error {
			return d.convs.Delete(ctx, id)
		},
	})
	if err != nil {
		return err
	}

	d.gateway.Go(ctx, writegate.Write{
		Path:      "conversations/" + id + "/messages",
		Operation: writegate.OpDelete,
		Actor:     requester,
		Apply: func(ctx context.Context) error {
			_, err := d.msgs.DeleteByConversation(ctx, id)
			return err
		},
	})

	ev := feed.Event{Kind: feed.ConversationDeleted, ID: id}
	_, _ = d.pub.Publish(feed.ConversationTopic(id), ev)
	for _, p := range conv.ParticipantIDs {
		_, _ = d.pub.Publish(feed.InboxTopic(p), ev)
	}
	return nil
}
