package feed

import (
	"context"
	"errors"
	"log"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"
)

// Watcher mirrors MongoDB change streams into a Hub so that writes made by
// other server instances reach subscribers connected here. Events published
// locally and again by the watcher are deduplicated by subscribers.
type Watcher struct {
	hub           *Hub
	messages      *mongo.Collection
	conversations *mongo.Collection
	notifications *mongo.Collection
}

// NewWatcher returns a Watcher over the three live collections.
func NewWatcher(hub *Hub, messages, conversations, notifications *mongo.Collection) *Watcher {
	return &Watcher{
		hub:           hub,
		messages:      messages,
		conversations: conversations,
		notifications: notifications,
	}
}

// changeEvent is the subset of a change stream document the watcher uses.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
	// FullDocumentBeforeChange is set on deletes when the collection has
	// pre-images enabled.
	FullDocumentBeforeChange bson.Raw `bson:"fullDocumentBeforeChange"`
}

type routed struct {
	topic string
	event Event
}

type router func(changeEvent) ([]routed, error)

// Run watches until ctx is done or a stream fails.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.watch(ctx, w.messages, routeMessage) })
	g.Go(func() error { return w.watch(ctx, w.conversations, routeConversation) })
	g.Go(func() error { return w.watch(ctx, w.notifications, routeNotification) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) watch(ctx context.Context, coll *mongo.Collection, route router) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: bson.D{
			{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}},
		}}}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer cs.Close(context.WithoutCancel(ctx))

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			log.Printf("feed: decode %s change: %v", coll.Name(), err)
			continue
		}
		out, err := route(ev)
		if err != nil {
			log.Printf("feed: route %s change %s: %v", coll.Name(), ev.DocumentKey.ID, err)
			continue
		}
		for _, r := range out {
			_, _ = w.hub.Publish(r.topic, r.event)
		}
	}
	return cs.Err()
}

func routeMessage(ev changeEvent) ([]routed, error) {
	// A delete only carries the key, so the conversation is unknown here; the
	// instance that deleted the message publishes it locally.
	if ev.OperationType != "insert" {
		return nil, nil
	}
	var m data.Message
	if err := bson.Unmarshal(ev.FullDocument, &m); err != nil {
		return nil, err
	}
	return []routed{{
		topic: ConversationTopic(m.ConversationID),
		event: Event{Kind: MessageAdded, ID: m.ID, Message: &m},
	}}, nil
}

func routeConversation(ev changeEvent) ([]routed, error) {
	if ev.OperationType == "delete" {
		deleted := Event{Kind: ConversationDeleted, ID: ev.DocumentKey.ID}
		out := []routed{{topic: ConversationTopic(ev.DocumentKey.ID), event: deleted}}
		if len(ev.FullDocumentBeforeChange) == 0 {
			// no pre-image: only the deleting instance updates inbox streams
			return out, nil
		}
		var before data.Conversation
		if err := bson.Unmarshal(ev.FullDocumentBeforeChange, &before); err != nil {
			return nil, err
		}
		for _, id := range before.ParticipantIDs {
			out = append(out, routed{topic: InboxTopic(id), event: deleted})
		}
		return out, nil
	}
	if len(ev.FullDocument) == 0 {
		return nil, nil
	}
	var c data.Conversation
	if err := bson.Unmarshal(ev.FullDocument, &c); err != nil {
		return nil, err
	}
	out := make([]routed, 0, len(c.ParticipantIDs))
	for _, id := range c.ParticipantIDs {
		out = append(out, routed{
			topic: InboxTopic(id),
			event: Event{Kind: ConversationUpdated, ID: c.ID, Conversation: &c},
		})
	}
	return out, nil
}

func routeNotification(ev changeEvent) ([]routed, error) {
	if len(ev.FullDocument) == 0 {
		return nil, nil
	}
	var n data.Notification
	if err := bson.Unmarshal(ev.FullDocument, &n); err != nil {
		return nil, err
	}
	kind := NotificationModified
	if ev.OperationType == "insert" {
		kind = NotificationAdded
	}
	return []routed{{
		topic: NotificationsTopic(n.RecipientID),
		event: Event{Kind: kind, ID: n.ID, Notification: &n},
	}}, nil
}
