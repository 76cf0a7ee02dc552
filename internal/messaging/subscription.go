package messaging

import (
	"context"
	"log"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
)

// subscriptionBuffer is the per-subscriber event buffer.
const subscriptionBuffer = 128

// Subscription is a live view of one conversation. Initial holds the newest
// messages at subscribe time in ascending order; Next yields changes after
// that. A message is delivered at most once even when it is published both
// locally and by a change stream watcher.
//
// Close must be called when the view goes away.
type Subscription struct {
	Initial []*data.Message

	conversationID string
	viewer         string
	sink           *feed.ChanSink
	cancel         func()
	reads          *ReadTracker
	seen           map[string]struct{}
}

// Subscribe opens a live view of a conversation for viewer and marks it as
// seen by viewer.
func (s *Stream) Subscribe(ctx context.Context, conversationID, viewer string) (*Subscription, error) {
	if _, err := s.conversation(ctx, conversationID, viewer); err != nil {
		return nil, err
	}

	// register before loading so nothing falls between snapshot and live events
	sink, cancel := s.hub.Subscribe(feed.ConversationTopic(conversationID), subscriptionBuffer)
	initial, err := s.msgs.List(ctx, conversationID, DefaultHistoryLimit)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		Initial:        initial,
		conversationID: conversationID,
		viewer:         viewer,
		sink:           sink,
		cancel:         cancel,
		reads:          s.reads,
		seen:           make(map[string]struct{}, len(initial)),
	}
	for _, m := range initial {
		sub.seen[m.ID] = struct{}{}
	}

	if _, err := s.reads.ClearIfApplicable(ctx, conversationID, viewer); err != nil {
		log.Printf("messaging: mark %s read for %s: %v", conversationID, viewer, err)
	}
	return sub, nil
}

// Next blocks for the next change. It returns ErrConversationDeleted once the
// conversation is gone and feed.ErrSlowConsumer if the subscriber fell behind
// and must resubscribe.
func (sub *Subscription) Next(ctx context.Context) (feed.Event, error) {
	for {
		var ev feed.Event
		select {
		case ev = <-sub.sink.C():
		default:
			select {
			case ev = <-sub.sink.C():
			case <-sub.sink.Dropped():
				return feed.Event{}, feed.ErrSlowConsumer
			case <-ctx.Done():
				return feed.Event{}, ctx.Err()
			}
		}

		switch ev.Kind {
		case feed.ConversationDeleted:
			return feed.Event{}, ErrConversationDeleted
		case feed.MessageAdded:
			if ev.Message == nil {
				continue
			}
			if _, dup := sub.seen[ev.Message.ID]; dup {
				continue
			}
			sub.seen[ev.Message.ID] = struct{}{}
			if ev.Message.SenderID != sub.viewer {
				// the view is open, so the viewer has now seen it
				if _, err := sub.reads.ClearIfApplicable(ctx, sub.conversationID, sub.viewer); err != nil {
					log.Printf("messaging: mark %s read for %s: %v", sub.conversationID, sub.viewer, err)
				}
			}
		}
		return ev, nil
	}
}

// Close stops the subscription.
func (sub *Subscription) Close() { sub.cancel() }

// InboxSubscription is a live view of a user's conversation list.
type InboxSubscription struct {
	Initial []*data.Conversation

	sink   *feed.ChanSink
	cancel func()
}

// WatchInbox opens a live view of user's conversations.
func (s *Stream) WatchInbox(ctx context.Context, user string) (*InboxSubscription, error) {
	sink, cancel := s.hub.Subscribe(feed.InboxTopic(user), subscriptionBuffer)
	convs, err := s.convs.ListByParticipant(ctx, user)
	if err != nil {
		cancel()
		return nil, err
	}
	return &InboxSubscription{Initial: convs, sink: sink, cancel: cancel}, nil
}

// Next blocks for the next conversation change.
func (sub *InboxSubscription) Next(ctx context.Context) (feed.Event, error) {
	select {
	case ev := <-sub.sink.C():
		return ev, nil
	default:
	}
	select {
	case ev := <-sub.sink.C():
		return ev, nil
	case <-sub.sink.Dropped():
		return feed.Event{}, feed.ErrSlowConsumer
	case <-ctx.Done():
		return feed.Event{}, ctx.Err()
	}
}

// Close stops the subscription.
func (sub *InboxSubscription) Close() { sub.cancel() }
