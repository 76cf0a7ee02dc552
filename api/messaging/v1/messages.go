// Package v1 is the wire contract of the messaging service: request and
// response types, the gRPC service descriptor and a JSON codec for them.
package v1

import (
	"encoding/json"
	"time"
)

type Empty struct{}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (r *RegisterRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) GetEmail() string {
	if r == nil {
		return ""
	}
	return r.Email
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UpdateProfileRequest struct {
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type Profile struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type LastMessage struct {
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID           string       `json:"id"`
	Participants []Profile    `json:"participants"`
	LastMessage  *LastMessage `json:"lastMessage,omitempty"`
	// Unread is the conversation-level flag; UnreadForMe is computed for the caller.
	Unread      bool      `json:"unread"`
	UnreadForMe bool      `json:"unreadForMe"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GetOrCreateConversationRequest struct {
	OtherUserID string `json:"otherUserId"`
}

type GetOrCreateConversationResponse struct {
	ConversationID string `json:"conversationId"`
}

type ListConversationsRequest struct{}

type ListConversationsResponse struct {
	Conversations []*Conversation `json:"conversations"`
	UnreadCount   int             `json:"unreadCount"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ClientRef      string    `json:"clientRef,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Text           string    `json:"text,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	VideoURL       string    `json:"videoUrl,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	FileType       string    `json:"fileType,omitempty"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	ClientRef      string `json:"clientRef,omitempty"`
	Text           string `json:"text,omitempty"`
	URL            string `json:"url,omitempty"`
	FileType       string `json:"fileType,omitempty"`
}

type GetHistoryRequest struct {
	ConversationID string `json:"conversationId"`
	Limit          int64  `json:"limit,omitempty"`
}

type GetHistoryResponse struct {
	Messages []*Message `json:"messages"`
}

type DeleteMessageRequest struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversationId"`
}

type MarkReadResponse struct {
	Cleared bool `json:"cleared"`
}

type Notification struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SenderID      string    `json:"senderId"`
	SenderProfile Profile   `json:"senderProfile"`
	RecipientID   string    `json:"recipientId"`
	RelatedID     string    `json:"relatedId,omitempty"`
	Message       string    `json:"message,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ListNotificationsRequest struct {
	Limit int64 `json:"limit,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	NotificationID string `json:"notificationId"`
}

type RegisterPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Event kinds on the streams. The first event of Subscribe and
// WatchConversations is always a snapshot.
const (
	EventSnapshot             = "snapshot"
	EventMessageAdded         = "message_added"
	EventMessageDeleted       = "message_deleted"
	EventConversationUpdated  = "conversation_updated"
	EventConversationDeleted  = "conversation_deleted"
	EventNotificationAdded    = "notification_added"
	EventNotificationModified = "notification_modified"
)

type SubscribeRequest struct {
	ConversationID string `json:"conversationId"`
}

type ConversationEvent struct {
	Kind      string     `json:"kind"`
	MessageID string     `json:"messageId,omitempty"`
	Message   *Message   `json:"message,omitempty"`
	Snapshot  []*Message `json:"snapshot,omitempty"`
}

type WatchConversationsRequest struct{}

type InboxEvent struct {
	Kind           string          `json:"kind"`
	ConversationID string          `json:"conversationId,omitempty"`
	Conversation   *Conversation   `json:"conversation,omitempty"`
	Snapshot       []*Conversation `json:"snapshot,omitempty"`
}

type WatchNotificationsRequest struct{}

type NotificationEvent struct {
	Kind           string        `json:"kind"`
	NotificationID string        `json:"notificationId,omitempty"`
	Notification   *Notification `json:"notification,omitempty"`
}

type WatchErrorsRequest struct{}

// WriteError reports a failed write made on the caller's behalf.
type WriteError struct {
	Path             string          `json:"path"`
	Operation        string          `json:"operation"`
	Kind             string          `json:"kind"`
	AttemptedPayload json.RawMessage `json:"attemptedPayload,omitempty"`
	Message          string          `json:"message"`
	At               time.Time       `json:"at"`
}
