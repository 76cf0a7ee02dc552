package main

import (
	"encoding/json"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

func toWireMessage(m *data.Message) *v1.Message {
	if m == nil {
		return nil
	}
	return &v1.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ClientRef:      m.ClientRef,
		CreatedAt:      m.CreatedAt,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		VideoURL:       m.VideoURL,
		AudioURL:       m.AudioURL,
		FileType:       string(m.FileType),
	}
}

func toWireMessages(ms []*data.Message) []*v1.Message {
	out := make([]*v1.Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, toWireMessage(m))
	}
	return out
}

// toWireConversation renders c for viewer; UnreadForMe is viewer specific.
func toWireConversation(c *data.Conversation, viewer string) *v1.Conversation {
	if c == nil {
		return nil
	}
	out := &v1.Conversation{
		ID:          c.ID,
		Unread:      c.Unread,
		UnreadForMe: messaging.UnreadFor(c, viewer),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, id := range c.ParticipantIDs {
		snap := c.Participants[id]
		out.Participants = append(out.Participants, v1.Profile{
			UserID:         id,
			Username:       snap.Username,
			ProfilePicture: snap.ProfilePicture,
		})
	}
	if lm := c.LastMessage; lm != nil {
		out.LastMessage = &v1.LastMessage{Text: lm.Text, SenderID: lm.SenderID, Timestamp: lm.Timestamp}
	}
	return out
}

func toWireNotification(n *data.Notification) *v1.Notification {
	if n == nil {
		return nil
	}
	return &v1.Notification{
		ID:       n.ID,
		Type:     string(n.Type),
		SenderID: n.SenderID,
		SenderProfile: v1.Profile{
			UserID:         n.SenderID,
			Username:       n.SenderProfile.Username,
			ProfilePicture: n.SenderProfile.ProfilePicture,
		},
		RecipientID: n.RecipientID,
		RelatedID:   n.RelatedID,
		Message:     n.Message,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}

func toConversationEvent(ev feed.Event) *v1.ConversationEvent {
	out := &v1.ConversationEvent{Kind: string(ev.Kind), MessageID: ev.ID}
	if ev.Message != nil {
		out.Message = toWireMessage(ev.Message)
		out.MessageID = ev.Message.ID
	}
	return out
}

func toInboxEvent(ev feed.Event, viewer string) *v1.InboxEvent {
	out := &v1.InboxEvent{Kind: string(ev.Kind), ConversationID: ev.ID}
	if ev.Conversation != nil {
		out.Conversation = toWireConversation(ev.Conversation, viewer)
		out.ConversationID = ev.Conversation.ID
	}
	return out
}

func toNotificationEvent(ev feed.Event) *v1.NotificationEvent {
	out := &v1.NotificationEvent{Kind: string(ev.Kind), NotificationID: ev.ID}
	if ev.Notification != nil {
		out.Notification = toWireNotification(ev.Notification)
		out.NotificationID = ev.Notification.ID
	}
	return out
}

func toWireError(e *writegate.Error) *v1.WriteError {
	out := &v1.WriteError{
		Path:      e.Path,
		Operation: string(e.Operation),
		Kind:      string(e.Kind),
		At:        e.At,
	}
	if e.Err != nil {
		out.Message = e.Err.Error()
	}
	if e.Payload != nil {
		if b, err := json.Marshal(e.Payload); err == nil {
			out.AttemptedPayload = b
		}
	}
	return out
}
