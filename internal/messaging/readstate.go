package messaging

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

// ReadTracker maintains the read state of conversations.
//
// Two representations are kept side by side. The conversation-level unread
// flag is set by every append, whoever sent it, and cleared only when the
// participant who did not send the last message views the conversation, so
// right after sending, the sender's own row shows as unread. The per-user
// lastReadAt map has no such anomaly: UnreadFor answers "unread for me".
type ReadTracker struct {
	convs   Conversations
	gateway *writegate.Gateway
	pub     Publisher
	now     Clock
}

// NewReadTracker wires a ReadTracker.
func NewReadTracker(convs Conversations, gw *writegate.Gateway, pub Publisher, now Clock) *ReadTracker {
	if now == nil {
		now = data.Now
	}
	return &ReadTracker{convs: convs, gateway: gw, pub: pub, now: now}
}

// ClearIfApplicable records that viewer has seen the conversation. It clears
// the unread flag when the last message came from the other participant and
// reports whether it did. viewer's lastReadAt is raised either way.
func (r *ReadTracker) ClearIfApplicable(ctx context.Context, id, viewer string) (bool, error) {
	at := r.now()
	var cleared bool
	err := r.gateway.Do(ctx, writegate.Write{
		Path:      "conversations/" + id,
		Operation: writegate.OpUpdate,
		Payload:   map[string]any{"unread": false, "lastReadAt." + viewer: at},
		Actor:     viewer,
		Apply: func(ctx context.Context) error {
			var err error
			if cleared, err = r.convs.ClearUnread(ctx, id, viewer); err != nil {
				return err
			}
			return r.convs.MarkReadAt(ctx, id, viewer, at)
		},
	})
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return false, ErrConversationNotFound
		}
		return false, err
	}

	if conv, err := r.convs.Get(ctx, id); err == nil {
		publishInbox(r.pub, conv)
	}
	return cleared, nil
}

// UnreadFor reports whether conv has a message viewer has not seen. A
// viewer's own last message never counts.
func UnreadFor(conv *data.Conversation, viewer string) bool {
	lm := conv.LastMessage
	if lm == nil || lm.SenderID == viewer {
		return false
	}
	return lm.Timestamp.After(conv.LastReadAt[viewer])
}

// UnreadCount is the number of conversations unread for viewer.
func UnreadCount(convs []*data.Conversation, viewer string) int {
	n := 0
	for _, c := range convs {
		if UnreadFor(c, viewer) {
			n++
		}
	}
	return n
}
