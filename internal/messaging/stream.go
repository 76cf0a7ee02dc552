package messaging

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/notify"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

const (
	// DefaultHistoryLimit is the page size of History when none is given.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps History.
	MaxHistoryLimit = 500
)

// AppendRequest is one message send.
type AppendRequest struct {
	ConversationID string
	SenderID       string
	// ClientRef is echoed on the stored message so the sender can reconcile
	// its optimistic copy.
	ClientRef string
	Payload   Payload
}

// Stream is the time-ordered message sequence of conversations.
//
// Messages are ordered by createdAt, assigned here at millisecond resolution,
// then by id. Ids are generated by this process in increasing order, so two
// messages stamped in the same millisecond keep their insertion order.
type Stream struct {
	convs    Conversations
	msgs     Messages
	reads    *ReadTracker
	notifier Notifier
	gateway  *writegate.Gateway
	hub      *feed.Hub
	now      Clock

	// mu serializes timestamp and id assignment so both increase together
	mu sync.Mutex
}

// NewStream wires a Stream.
func NewStream(convs Conversations, msgs Messages, reads *ReadTracker, notifier Notifier, gw *writegate.Gateway, hub *feed.Hub, now Clock) *Stream {
	if now == nil {
		now = data.Now
	}
	return &Stream{
		convs:    convs,
		msgs:     msgs,
		reads:    reads,
		notifier: notifier,
		gateway:  gw,
		hub:      hub,
		now:      now,
	}
}

func (s *Stream) conversation(ctx context.Context, id, userID string) (*data.Conversation, error) {
	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *Stream) stamp() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return data.NewID(), data.Truncate(s.now())
}

// Append persists a message and returns it. The message insert is the only
// step the caller waits on. The conversation summary update follows; it is
// not atomic with the insert, and if it fails the message stays stored, the
// summary stays stale and the failure is reported on the write bus. The
// recipient's notification is dispatched in the background.
func (s *Stream) Append(ctx context.Context, req AppendRequest) (*data.Message, error) {
	if err := req.Payload.Validate(); err != nil {
		return nil, err
	}
	conv, err := s.conversation(ctx, req.ConversationID, req.SenderID)
	if err != nil {
		return nil, err
	}

	id, createdAt := s.stamp()
	msg := &data.Message{
		ID:             id,
		ConversationID: conv.ID,
		SenderID:       req.SenderID,
		ClientRef:      req.ClientRef,
		CreatedAt:      createdAt,
	}
	req.Payload.apply(msg)

	err = s.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + conv.ID + "/messages/" + msg.ID,
		Operation: writegate.OpCreate,
		Payload:   msg,
		Actor:     req.SenderID,
		Apply: func(ctx context.Context) error {
			return s.msgs.Insert(ctx, msg)
		},
	})
	if err != nil {
		return nil, err
	}

	_, _ = s.hub.Publish(feed.ConversationTopic(conv.ID), feed.Event{
		Kind:    feed.MessageAdded,
		ID:      msg.ID,
		Message: msg,
	})

	summary := req.Payload.SummaryText()
	s.updateSummary(ctx, conv, data.LastMessage{
		Text:      summary,
		SenderID:  req.SenderID,
		Timestamp: msg.CreatedAt,
	})

	s.notifier.Notify(ctx, notify.Notice{
		Type:        data.NotifyNewMessage,
		SenderID:    req.SenderID,
		RecipientID: conv.Other(req.SenderID),
		RelatedID:   conv.ID,
		Message:     summary,
	})
	return msg, nil
}

func (s *Stream) updateSummary(ctx context.Context, conv *data.Conversation, last data.LastMessage) {
	var applied bool
	err := s.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + conv.ID,
		Operation: writegate.OpUpdate,
		Payload:   last,
		Actor:     last.SenderID,
		Apply: func(ctx context.Context) error {
			var err error
			applied, err = s.convs.UpdateSummary(ctx, conv.ID, last)
			return err
		},
	})
	if err != nil {
		log.Printf("messaging: summary of %s left stale: %v", conv.ID, err)
		return
	}
	if !applied {
		return
	}

	lm := last
	conv.LastMessage = &lm
	conv.UpdatedAt = last.Timestamp
	conv.Unread = true
	if conv.LastReadAt == nil {
		conv.LastReadAt = make(map[string]time.Time)
	}
	if last.Timestamp.After(conv.LastReadAt[last.SenderID]) {
		conv.LastReadAt[last.SenderID] = last.Timestamp
	}
	publishInbox(s.hub, conv)
}

// History returns the newest limit messages of a conversation, oldest first.
func (s *Stream) History(ctx context.Context, conversationID, viewer string, limit int64) ([]*data.Message, error) {
	if _, err := s.conversation(ctx, conversationID, viewer); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.msgs.List(ctx, conversationID, limit)
}

// DeleteMessage removes a message. Only its sender may delete it.
func (s *Stream) DeleteMessage(ctx context.Context, conversationID, messageID, requester string) error {
	if _, err := s.conversation(ctx, conversationID, requester); err != nil {
		return err
	}
	msg, err := s.msgs.Get(ctx, conversationID, messageID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if msg.SenderID != requester {
		return ErrNotMessageOwner
	}

	err = s.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + conversationID + "/messages/" + messageID,
		Operation: writegate.OpDelete,
		Actor:     requester,
		Apply: func(ctx context.Context) error {
			return s.msgs.Delete(ctx, conversationID, messageID)
		},
	})
	if err != nil {
		return err
	}
	_, _ = s.hub.Publish(feed.ConversationTopic(conversationID), feed.Event{Kind: feed.MessageDeleted, ID: messageID})
	return nil
}
