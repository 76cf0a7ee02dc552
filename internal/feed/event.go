package feed

import "github.com/PaulBabatuyi/campus-messaging/internal/data"

// Kind identifies what changed.
type Kind string

const (
	MessageAdded         Kind = "message_added"
	MessageDeleted       Kind = "message_deleted"
	ConversationUpdated  Kind = "conversation_updated"
	ConversationDeleted  Kind = "conversation_deleted"
	NotificationAdded    Kind = "notification_added"
	NotificationModified Kind = "notification_modified"
)

// Event is one change pushed to live subscribers. Only the field matching
// Kind is set; deletions carry just the ID.
type Event struct {
	Kind         Kind               `json:"kind"`
	ID           string             `json:"id,omitempty"`
	Message      *data.Message      `json:"message,omitempty"`
	Conversation *data.Conversation `json:"conversation,omitempty"`
	Notification *data.Notification `json:"notification,omitempty"`
}

// ConversationTopic carries message events of one conversation.
func ConversationTopic(conversationID string) string {
	return "conversations/" + conversationID
}

// InboxTopic carries conversation summary events for one user.
func InboxTopic(userID string) string {
	return "users/" + userID + "/conversations"
}

// NotificationsTopic carries notification events for one user.
func NotificationsTopic(userID string) string {
	return "users/" + userID + "/notifications"
}
