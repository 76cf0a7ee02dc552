package messaging

import "errors"

var (
	// ErrSelfConversation is returned when both sides of a pair are the same user.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	// ErrInvalidUser is returned for an empty or malformed user id.
	ErrInvalidUser = errors.New("invalid user id")
	// ErrUserNotFound is returned when a participant has no profile.
	ErrUserNotFound = errors.New("user not found")
	// ErrConversationNotFound is returned for an unknown or deleted conversation.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrNotParticipant is returned when the caller is not part of the conversation.
	ErrNotParticipant = errors.New("not a participant of this conversation")
	// ErrMessageNotFound is returned for an unknown message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotMessageOwner is returned when someone other than the sender deletes a message.
	ErrNotMessageOwner = errors.New("only the sender can delete a message")
	// ErrInvalidPayload is returned for a message that is not exactly one of
	// text or a single attachment.
	ErrInvalidPayload = errors.New("invalid message payload")
	// ErrConversationDeleted ends a subscription whose conversation was deleted.
	ErrConversationDeleted = errors.New("conversation deleted")
)
