package messaging

import (
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	"github.com/google/uuid"
)

// EntryState is the delivery state of a timeline entry.
type EntryState int

const (
	// StatePending is an optimistic entry whose send has not been acknowledged.
	StatePending EntryState = iota
	// StateSent is an entry confirmed by the server.
	StateSent
	// StateFailed is an optimistic entry whose send failed.
	StateFailed
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSent:
		return "sent"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is one row of a Timeline.
type Entry struct {
	Message   data.Message
	ClientRef string
	State     EntryState
	Err       error
}

// Timeline is the client-side view of a conversation. Outgoing messages are
// shown at once as pending; the server copy, matched by client ref, replaces
// them instead of being added twice. Confirmed messages are ordered by
// createdAt then id; pending and failed entries follow in the order they were
// added.
type Timeline struct {
	mu      sync.Mutex
	sent    []*Entry
	local   []*Entry
	ids     map[string]struct{}
	nowFunc func() time.Time
}

// NewTimeline returns a timeline seeded with confirmed messages.
func NewTimeline(initial []*data.Message) *Timeline {
	t := &Timeline{ids: make(map[string]struct{}), nowFunc: time.Now}
	for _, m := range initial {
		t.insertSent(&Entry{Message: *m, ClientRef: m.ClientRef, State: StateSent})
	}
	return t
}

func (t *Timeline) insertSent(e *Entry) {
	if _, ok := t.ids[e.Message.ID]; ok {
		return
	}
	t.ids[e.Message.ID] = struct{}{}
	i := sort.Search(len(t.sent), func(i int) bool {
		return e.Message.Before(&t.sent[i].Message)
	})
	t.sent = append(t.sent, nil)
	copy(t.sent[i+1:], t.sent[i:])
	t.sent[i] = e
}

// AddPending records an outgoing message and returns its client ref.
func (t *Timeline) AddPending(senderID string, p Payload) string {
	ref := uuid.NewString()
	m := data.Message{SenderID: senderID, ClientRef: ref, CreatedAt: t.nowFunc()}
	p.apply(&m)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.local = append(t.local, &Entry{Message: m, ClientRef: ref, State: StatePending})
	return ref
}

// Confirm applies a server message. A pending or failed entry with the same
// client ref is replaced; a message already present is ignored. It reports
// whether an optimistic entry was reconciled.
func (t *Timeline) Confirm(m *data.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	reconciled := false
	if m.ClientRef != "" {
		for i, e := range t.local {
			if e.ClientRef == m.ClientRef {
				t.local = append(t.local[:i], t.local[i+1:]...)
				reconciled = true
				break
			}
		}
	}
	t.insertSent(&Entry{Message: *m, ClientRef: m.ClientRef, State: StateSent})
	return reconciled
}

// Fail marks the pending entry for ref as failed.
func (t *Timeline) Fail(ref string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.local {
		if e.ClientRef == ref && e.State == StatePending {
			e.State = StateFailed
			e.Err = err
			return
		}
	}
}

// Retry moves a failed entry back to pending and returns its payload.
func (t *Timeline) Retry(ref string) (Payload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.local {
		if e.ClientRef == ref && e.State == StateFailed {
			e.State = StatePending
			e.Err = nil
			return PayloadOf(&e.Message), true
		}
	}
	return Payload{}, false
}

// Discard drops a pending or failed entry.
func (t *Timeline) Discard(ref string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.local {
		if e.ClientRef == ref {
			t.local = append(t.local[:i], t.local[i+1:]...)
			return
		}
	}
}

// Remove drops a confirmed message, e.g. after a delete event.
func (t *Timeline) Remove(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[messageID]; !ok {
		return
	}
	delete(t.ids, messageID)
	for i, e := range t.sent {
		if e.Message.ID == messageID {
			t.sent = append(t.sent[:i], t.sent[i+1:]...)
			return
		}
	}
}

// Entries returns a copy of the timeline in display order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.sent)+len(t.local))
	for _, e := range t.sent {
		out = append(out, *e)
	}
	for _, e := range t.local {
		out = append(out, *e)
	}
	return out
}
