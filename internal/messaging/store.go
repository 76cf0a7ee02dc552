// Package messaging implements one-to-one conversations: resolving a pair of
// users to a single conversation, the ordered message stream of a
// conversation, and the read state shown in conversation lists.
package messaging

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/notify"
)

// Conversations is the conversation persistence used by this package. Both
// data.ConversationsStore and memstore.Conversations implement it.
type Conversations interface {
	Get(ctx context.Context, id string) (*data.Conversation, error)
	FindByPairKey(ctx context.Context, key string) (*data.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*data.Conversation, error)
	UpsertPair(ctx context.Context, conv *data.Conversation) (*data.Conversation, bool, error)
	AdoptPairKey(ctx context.Context, id, key string) error
	UpdateSummary(ctx context.Context, id string, last data.LastMessage) (bool, error)
	ClearUnread(ctx context.Context, id, viewerID string) (bool, error)
	MarkReadAt(ctx context.Context, id, viewerID string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Messages is the message persistence used by this package.
type Messages interface {
	Insert(ctx context.Context, msg *data.Message) error
	List(ctx context.Context, conversationID string, limit int64) ([]*data.Message, error)
	Get(ctx context.Context, conversationID, id string) (*data.Message, error)
	Delete(ctx context.Context, conversationID, id string) error
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)
}

// Profiles resolves profile snapshots.
type Profiles interface {
	Snapshots(ctx context.Context, ids ...string) (map[string]data.ProfileSnapshot, error)
}

// Notifier receives fire-and-forget notices.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notice)
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(topic string, ev feed.Event) (int, error)
}

// Clock returns the server time used for createdAt and read marks.
type Clock func() time.Time

func publishInbox(pub Publisher, conv *data.Conversation) {
	for _, id := range conv.ParticipantIDs {
		_, _ = pub.Publish(feed.InboxTopic(id), feed.Event{
			Kind:         feed.ConversationUpdated,
			ID:           conv.ID,
			Conversation: conv,
		})
	}
}
