// Package notify writes denormalized notifications into recipients' inboxes.
// Dispatch is fire-and-forget: the action that triggered a notification never
// waits for it, and a failed inbox write only shows up on the write bus.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Notice is a request to notify RecipientID about something SenderID did.
type Notice struct {
	Type        data.NotificationType `json:"type"`
	SenderID    string                `json:"senderId"`
	RecipientID string                `json:"recipientId"`
	RelatedID   string                `json:"relatedId,omitempty"`
	Message     string                `json:"message,omitempty"`
}

// Store is the inbox persistence the dispatcher needs.
type Store interface {
	Insert(ctx context.Context, n *data.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int64) ([]*data.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
}

// Profiles resolves sender snapshots.
type Profiles interface {
	Snapshot(ctx context.Context, id string) (data.ProfileSnapshot, error)
}

// Pusher delivers a stored notification outside the app, e.g. as web push.
type Pusher interface {
	Push(ctx context.Context, n *data.Notification) error
}

// Dispatcher implements the notification fan-out.
type Dispatcher struct {
	store    Store
	profiles Profiles
	gateway  *writegate.Gateway
	hub      *feed.Hub
	pusher   Pusher
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHub publishes new notifications to live subscribers.
func WithHub(h *feed.Hub) Option { return func(d *Dispatcher) { d.hub = h } }

// WithPusher forwards stored notifications to p.
func WithPusher(p Pusher) Option { return func(d *Dispatcher) { d.pusher = p } }

// NewDispatcher wires a Dispatcher.
func NewDispatcher(store Store, profiles Profiles, gw *writegate.Gateway, opts ...Option) *Dispatcher {
	d := &Dispatcher{store: store, profiles: profiles, gateway: gw}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify writes n into the recipient's inbox in the background. Notices a
// user would send to themselves are skipped.
func (d *Dispatcher) Notify(ctx context.Context, n Notice) {
	if n.SenderID == n.RecipientID {
		return
	}
	id := data.NewID()
	d.gateway.Go(ctx, writegate.Write{
		Path:      "users/" + n.RecipientID + "/notifications/" + id,
		Operation: writegate.OpCreate,
		Payload:   n,
		Actor:     n.SenderID,
		Apply: func(ctx context.Context) error {
			return d.deliver(ctx, id, n)
		},
	})
}

func (d *Dispatcher) deliver(ctx context.Context, id string, n Notice) error {
	if !n.Type.Valid() {
		return fmt.Errorf("%w: notification type %q", writegate.ErrInvalid, n.Type)
	}
	if n.RecipientID == "" {
		return fmt.Errorf("%w: missing recipient", writegate.ErrInvalid)
	}
	snap, err := d.profiles.Snapshot(ctx, n.SenderID)
	if err != nil {
		return err
	}

	rec := &data.Notification{
		ID:            id,
		Type:          n.Type,
		SenderID:      n.SenderID,
		SenderProfile: snap,
		RecipientID:   n.RecipientID,
		RelatedID:     n.RelatedID,
		Message:       n.Message,
		Read:          false,
		CreatedAt:     data.Now(),
	}
	if err := d.store.Insert(ctx, rec); err != nil {
		return err
	}

	if d.hub != nil {
		_, _ = d.hub.Publish(feed.NotificationsTopic(rec.RecipientID), feed.Event{
			Kind:         feed.NotificationAdded,
			ID:           rec.ID,
			Notification: rec,
		})
	}
	if d.pusher != nil {
		if err := d.pusher.Push(ctx, rec); err != nil {
			log.Printf("notify: push %s to %s: %v", rec.ID, rec.RecipientID, err)
		}
	}
	return nil
}

// List returns the newest notifications of recipientID.
func (d *Dispatcher) List(ctx context.Context, recipientID string, limit int64) ([]*data.Notification, error) {
	if limit <= 0 || limit > DefaultListLimit*4 {
		limit = DefaultListLimit
	}
	return d.store.ListByRecipient(ctx, recipientID, limit)
}

// MarkRead flips the read flag of a notification in recipientID's own inbox.
func (d *Dispatcher) MarkRead(ctx context.Context, recipientID, id string) error {
	err := d.gateway.Do(ctx, writegate.Write{
		Path:      "users/" + recipientID + "/notifications/" + id,
		Operation: writegate.OpUpdate,
		Payload:   map[string]bool{"read": true},
		Actor:     recipientID,
		Apply: func(ctx context.Context) error {
			return d.store.MarkRead(ctx, recipientID, id)
		},
	})
	if err != nil {
		return err
	}
	if d.hub != nil {
		_, _ = d.hub.Publish(feed.NotificationsTopic(recipientID), feed.Event{Kind: feed.NotificationModified, ID: id})
	}
	return nil
}
