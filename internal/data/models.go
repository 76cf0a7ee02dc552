package data

import (
	"time"
)

// User maps to users collection (id, email, password hash, public profile, timestamps)
type User struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	Password       string    `bson:"password"`
	Username       string    `bson:"username"`
	ProfilePicture string    `bson:"profilePicture,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

// Snapshot returns the denormalized public part of the user.
func (u *User) Snapshot() ProfileSnapshot {
	return ProfileSnapshot{Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// ProfileSnapshot is the {username, profilePicture} copy stored on conversations
// and notifications.
type ProfileSnapshot struct {
	Username       string `bson:"username" json:"username"`
	ProfilePicture string `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
}

// LastMessage summarises the most recent message of a conversation.
type LastMessage struct {
	Text      string    `bson:"text" json:"text"`
	SenderID  string    `bson:"senderId" json:"senderId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Conversation maps to conversations collection. Exactly two participants.
type Conversation struct {
	ID             string                     `bson:"_id" json:"id"`
	PairKey        string                     `bson:"pairKey,omitempty" json:"-"`
	ParticipantIDs []string                   `bson:"participantIds" json:"participantIds"`
	Participants   map[string]ProfileSnapshot `bson:"participants" json:"participants"`
	LastMessage    *LastMessage               `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	Unread         bool                       `bson:"unread" json:"unread"`
	LastReadAt     map[string]time.Time       `bson:"lastReadAt,omitempty" json:"lastReadAt,omitempty"`
	CreatedAt      time.Time                  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time                  `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// FileType is the kind of an attachment.
type FileType string

const (
	FileImage FileType = "image"
	FileVideo FileType = "video"
	FileAudio FileType = "audio"
)

// Valid reports whether t is one of the supported attachment kinds.
func (t FileType) Valid() bool {
	return t == FileImage || t == FileVideo || t == FileAudio
}

// Message maps to messages collection; conversationId scopes it to one conversation.
// Payload is either Text or one attachment URL with its FileType.
type Message struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversationId" json:"conversationId"`
	SenderID       string    `bson:"senderId" json:"senderId"`
	ClientRef      string    `bson:"clientRef,omitempty" json:"clientRef,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	Text           string    `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL       string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	VideoURL       string    `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	AudioURL       string    `bson:"audioUrl,omitempty" json:"audioUrl,omitempty"`
	FileType       FileType  `bson:"fileType,omitempty" json:"fileType,omitempty"`
}

// AttachmentURL returns the URL matching the message's FileType, or "".
func (m *Message) AttachmentURL() string {
	switch m.FileType {
	case FileImage:
		return m.ImageURL
	case FileVideo:
		return m.VideoURL
	case FileAudio:
		return m.AudioURL
	}
	return ""
}

// Before orders messages by createdAt, then by id for equal timestamps.
func (m *Message) Before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// NotificationType enumerates the inbox notification kinds.
type NotificationType string

const (
	NotifyNewFollower     NotificationType = "new_follower"
	NotifyLike            NotificationType = "like"
	NotifyComment         NotificationType = "comment"
	NotifyNewMessage      NotificationType = "new_message"
	NotifyCarpoolBooking  NotificationType = "carpool_booking"
	NotifyEventAttendance NotificationType = "event_attendance"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyNewFollower, NotifyLike, NotifyComment, NotifyNewMessage, NotifyCarpoolBooking, NotifyEventAttendance:
		return true
	}
	return false
}

// Notification maps to notifications collection, scoped to recipientId (the user's inbox).
type Notification struct {
	ID            string           `bson:"_id" json:"id"`
	Type          NotificationType `bson:"type" json:"type"`
	SenderID      string           `bson:"senderId" json:"senderId"`
	SenderProfile ProfileSnapshot  `bson:"senderProfile" json:"senderProfile"`
	RecipientID   string           `bson:"recipientId" json:"recipientId"`
	RelatedID     string           `bson:"relatedId,omitempty" json:"relatedId,omitempty"`
	Message       string           `bson:"message,omitempty" json:"message,omitempty"`
	Read          bool             `bson:"read" json:"read"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
}

// PushSubscription is a browser push endpoint registered by a user.
type PushSubscription struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Endpoint  string    `bson:"endpoint"`
	P256dh    string    `bson:"p256dh"`
	Auth      string    `bson:"auth"`
	CreatedAt time.Time `bson:"createdAt"`
}
